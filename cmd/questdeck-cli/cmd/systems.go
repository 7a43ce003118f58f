package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/spf13/cobra"
)

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "List the built-in game systems",
	Long: `Shows the rules systems compiled into the server and the action
types each one handles. Script-backed systems are loaded from the server's
script directory at runtime and do not appear here.`,
	Run: func(cmd *cobra.Command, args []string) {
		reg := gamesystem.NewRegistry()
		reg.MustRegister(gamesystem.NewSRD5())

		names := reg.Names()
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTIE-BREAK\tHANDLED ACTIONS")
		for _, name := range names {
			sys, _ := reg.Get(name)
			fmt.Fprintf(w, "%s\t%s\t%s\n", sys.Name(), sys.TieBreakModifier(), handledActions(sys))
		}
		w.Flush()
	},
}

func handledActions(sys gamesystem.GameSystem) string {
	known := []domain.ActionType{
		domain.ActionMoveToken,
		domain.ActionAttack,
		domain.ActionCastSpell,
	}
	out := ""
	for _, t := range known {
		if _, ok := sys.ActionHandler(t); ok {
			if out != "" {
				out += ", "
			}
			out += string(t)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(systemsCmd)
}
