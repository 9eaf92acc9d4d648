package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"projectdash/internal/auth"
	"projectdash/internal/config"
	"projectdash/internal/models"
	"projectdash/internal/storage/sqlite"
)

const (
	demoEmail    = "demo@coetzee.dev"
	demoName     = "Demo User"
	demoPassword = "demo123"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo account with sample data",
	Long: `Creates demo@coetzee.dev (password demo123) if it does not exist and,
when the account has no clients yet, a sample client, project and tasks.
Running it again changes nothing.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("db-path", "", "path to the sqlite database file")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.DBPath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	return seed(cmd.Context(), store, cmd.OutOrStdout())
}

func seed(ctx context.Context, store *sqlite.Store, out io.Writer) error {
	user, err := store.GetUserByEmail(ctx, demoEmail)
	if errors.Is(err, sqlite.ErrNotFound) {
		hash, herr := auth.HashPassword(demoPassword)
		if herr != nil {
			return herr
		}
		user, err = store.CreateUser(ctx, demoEmail, demoName, hash)
	}
	if err != nil {
		return fmt.Errorf("demo user: %w", err)
	}
	fmt.Fprintf(out, "Demo user: %s\n", user.Email)

	existing, err := store.ListClients(ctx, user.ID, models.ClientFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Fprintln(out, "Sample data already present")
		return nil
	}

	email := "hello@northwind.test"
	client, err := store.CreateClient(ctx, user.ID, models.ClientInput{
		Name:   "Northwind Traders",
		Email:  &email,
		Status: models.ClientActive,
	})
	if err != nil {
		return fmt.Errorf("sample client: %w", err)
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	due := start.AddDate(0, 1, 0)
	budget := 4800.0
	project, err := store.CreateProject(ctx, user.ID, models.ProjectInput{
		Title:     "Storefront relaunch",
		TechStack: []string{"Go", "SQLite", "TypeScript"},
		ClientID:  &client.ID,
		Status:    models.ProjectActive,
		Priority:  models.PriorityHigh,
		StartDate: &start,
		DueDate:   &due,
		Budget:    &budget,
	})
	if err != nil {
		return fmt.Errorf("sample project: %w", err)
	}

	tasks := []struct {
		title  string
		status models.TaskStatus
	}{
		{"Audit current checkout", models.TaskDone},
		{"Design product pages", models.TaskInProgress},
		{"Wire payment provider", models.TaskTodo},
		{"Load test", models.TaskTodo},
	}
	for _, t := range tasks {
		if _, err := store.CreateTask(ctx, user.ID, models.TaskInput{
			Title:     t.title,
			ProjectID: project.ID,
			Status:    t.status,
		}); err != nil {
			return fmt.Errorf("sample task %q: %w", t.title, err)
		}
	}
	fmt.Fprintf(out, "Seeded client %q with project %q and %d tasks\n", client.Name, project.Title, len(tasks))
	return nil
}
