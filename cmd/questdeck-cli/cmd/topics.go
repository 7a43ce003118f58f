package cmd

import (
	"fmt"
	"os"

	"github.com/questdeck/questdeck/internal/modules/game/topics"
	"github.com/questdeck/questdeck/internal/websocket"
	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the registered message bus topics",
	Long: `Topics are the bus channels modules communicate on. These commands
register the application's topics and let you inspect them.

Examples:
  questdeck-cli topics list
  questdeck-cli topics list --module game
  questdeck-cli topics get client.game.action.submit`,
}

// initTopics registers every topic the server would register at startup.
func initTopics() {
	if err := websocket.RegisterTopics(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: registering websocket topics: %v\n", err)
		os.Exit(1)
	}
	if err := topics.RegisterTopics(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: registering game topics: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
