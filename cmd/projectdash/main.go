package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "projectdash",
	Short: "Clients, projects and task boards for freelancers",
	Long: `projectdash serves the project dashboard API and its web frontend.

Settings come from, in increasing precedence: defaults, a YAML file given
with --config, a .env file, PROJECTDASH_* environment variables and flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, userCmd, seedCmd, boardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
