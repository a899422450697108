package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/discovery"
)

var flagScanWait time.Duration

var hostsCmd = &cobra.Command{
	Use:     "hosts",
	Aliases: []string{"scan"},
	Short:   "Scan the local network for open games",
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts, err := scanHosts(cmd.Context(), flagScanWait)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			fmt.Println("no hosts found")
			return nil
		}
		renderHosts(hosts)
		return nil
	},
}

func init() {
	hostsCmd.Flags().DurationVar(&flagScanWait, "wait", 3*time.Second, "how long to listen for announcements")
	rootCmd.AddCommand(hostsCmd)
}

func scanHosts(ctx context.Context, wait time.Duration) ([]discovery.Host, error) {
	sc := discovery.NewScanner(log)
	if err := sc.Start(ctx, discovery.Options{Port: cfg.DiscoveryPort}); err != nil {
		return nil, err
	}
	defer sc.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	return sc.Hosts(), nil
}

func renderHosts(hosts []discovery.Host) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Address", "Rounds", "Status"})
	for i, h := range hosts {
		t.AppendRow(table.Row{i + 1, h.Name, h.Addr, h.Rounds, h.Status})
	}
	t.Render()
}
