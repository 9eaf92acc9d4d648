package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"projectdash/internal/auth"
	"projectdash/internal/config"
	"projectdash/internal/storage/sqlite"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	RunE:  runUserAdd,
}

func init() {
	f := userAddCmd.Flags()
	f.String("email", "", "login email")
	f.String("name", "", "display name")
	f.String("password", "", "login password")
	f.String("db-path", "", "path to the sqlite database file")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.CreateUser(cmd.Context(), email, name, hash)
	if errors.Is(err, sqlite.ErrDuplicate) {
		return fmt.Errorf("an account for %s already exists", email)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
	return nil
}
