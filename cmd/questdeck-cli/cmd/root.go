package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "questdeck-cli",
	Short: "QuestDeck developer CLI",
	Long: `QuestDeck CLI is a command-line companion for the QuestDeck server.

Available commands:
  topics     Explore the registered message bus topics
  systems    List the available game systems

Use "questdeck-cli [command] --help" for more information about a command.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
