package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"projectdash/internal/apiclient"
	"projectdash/internal/config"
	"projectdash/internal/dashboard"
	"projectdash/internal/logging"
	"projectdash/internal/viewstate"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print a project's tasks from a running server",
	Long: `board signs in to the API at api_url and prints the tasks of one project,
as a status list or as kanban columns. --view changes the remembered view for
the account; without it the saved preference is used.`,
	RunE: runBoard,
}

func init() {
	f := boardCmd.Flags()
	f.String("project", "", "project id")
	f.String("email", "", "login email")
	f.String("password", "", "login password")
	f.String("view", "", "list or kanban; saved as the new preference")
	f.String("api-url", "", "base URL of the projectdash server")
	f.String("preferences-path", "", "path to the view preferences file")
	_ = boardCmd.MarkFlagRequired("project")
	_ = boardCmd.MarkFlagRequired("email")
	_ = boardCmd.MarkFlagRequired("password")
}

func runBoard(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	projectID, _ := cmd.Flags().GetString("project")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	view, _ := cmd.Flags().GetString("view")

	api, err := apiclient.New(cfg.APIURL, nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	user, err := api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	prefs, err := viewstate.LoadPreferences(cfg.PreferencesPath)
	if err != nil {
		return err
	}
	session := dashboard.NewSession(api, dashboard.Options{
		UserID:      user.ID,
		Logger:      logger,
		Preferences: prefs,
	})
	if view != "" {
		if err := session.SetTaskView(viewstate.ParseTaskView(view)); err != nil {
			return fmt.Errorf("save view: %w", err)
		}
	}

	project, err := session.Project(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	groups, err := session.TaskBoard(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d tasks)\n", project.Title, project.TaskCount)
	return renderBoard(cmd.OutOrStdout(), session.TaskView(), groups)
}

// renderBoard prints one section per status for the list view, or one
// column per status for the kanban view.
func renderBoard(out io.Writer, view viewstate.TaskView, groups []viewstate.Group) error {
	if view != viewstate.KanbanView {
		for _, g := range groups {
			if len(g.Tasks) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n%s\n", g.Status)
			for _, t := range g.Tasks {
				fmt.Fprintf(out, "  %d. %s [%s]\n", t.Order+1, t.Title, t.Priority)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	rows := 0
	for i, g := range groups {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprintf(w, "%s (%d)", g.Status, len(g.Tasks))
		rows = max(rows, len(g.Tasks))
	}
	fmt.Fprintln(w)
	for r := 0; r < rows; r++ {
		for i, g := range groups {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			if r < len(g.Tasks) {
				fmt.Fprint(w, g.Tasks[r].Title)
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
