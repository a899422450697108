package cli

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/profile"
)

var statsCmd = &cobra.Command{
	Use:   "stats <username>",
	Short: "Show a profile's match record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profile.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Player", "Wins", "Losses", "Ties"})
		t.AppendRow(table.Row{p.Username, p.Wins, p.Losses, p.Ties})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
