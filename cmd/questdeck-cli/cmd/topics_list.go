package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/questdeck/questdeck/internal/topicmgr"
	"github.com/spf13/cobra"
)

var listModuleFilter string
var listOutputFormat string

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered topics",
	Run: func(cmd *cobra.Command, args []string) {
		initTopics()

		var list []topicmgr.Topic
		if listModuleFilter != "" {
			list = topicmgr.ListByModule(listModuleFilter)
		} else {
			list = topicmgr.List()
		}
		if len(list) == 0 {
			fmt.Println("No topics found")
			return
		}

		switch listOutputFormat {
		case "json":
			printTopicsJSON(list)
		case "table":
			printTopicsTable(list)
		default:
			fmt.Fprintf(os.Stderr, "Error: unsupported format %q, use table or json\n", listOutputFormat)
			os.Exit(1)
		}
	},
}

func printTopicsTable(list []topicmgr.Topic) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODULE\tSCOPE\tDESCRIPTION")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name(), t.Module(), t.Scope(), t.Description())
	}
	w.Flush()
}

func printTopicsJSON(list []topicmgr.Topic) {
	type topicJSON struct {
		Name        string         `json:"name"`
		Module      string         `json:"module"`
		Scope       string         `json:"scope"`
		Description string         `json:"description"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}
	out := make([]topicJSON, 0, len(list))
	for _, t := range list {
		out = append(out, topicJSON{
			Name:        t.Name(),
			Module:      t.Module(),
			Scope:       string(t.Scope()),
			Description: t.Description(),
			Metadata:    t.Metadata(),
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)
	topicsListCmd.Flags().StringVarP(&listModuleFilter, "module", "m", "", "Filter topics by module name")
	topicsListCmd.Flags().StringVarP(&listOutputFormat, "format", "f", "table", "Output format (table, json)")
}
