package cmd

import (
	"fmt"
	"os"

	"github.com/questdeck/questdeck/internal/topicmgr"
	"github.com/spf13/cobra"
)

var topicsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show details for one topic",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initTopics()

		topic, ok := topicmgr.Get(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Topic not found: %s\n", args[0])
			os.Exit(1)
		}

		fmt.Printf("Name:        %s\n", topic.Name())
		fmt.Printf("Module:      %s\n", topic.Module())
		fmt.Printf("Scope:       %s\n", topic.Scope())
		fmt.Printf("Pattern:     %s\n", topic.Pattern())
		fmt.Printf("Description: %s\n", topic.Description())
		if md := topic.Metadata(); len(md) > 0 {
			fmt.Println("Metadata:")
			for k, v := range md {
				fmt.Printf("  %s: %v\n", k, v)
			}
		}
	},
}

func init() {
	topicsCmd.AddCommand(topicsGetCmd)
}
