package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/host"
	"github.com/LukeWait/rps-lan/internal/session"
)

var flagRounds int

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a game and wait for a challenger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(cmd)
	},
}

func init() {
	addPlayerFlags(hostCmd)
	hostCmd.Flags().IntVar(&flagRounds, "rounds", 0, "rounds to play (default from config)")
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command) error {
	ctx := cmd.Context()

	name, store, username, err := resolvePlayer(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	rounds := cfg.Rounds
	if flagRounds > 0 {
		rounds = flagRounds
	}

	coord := host.NewCoordinator(log)
	results, err := coord.StartHosting(ctx, host.Config{
		Name:          name,
		Bind:          cfg.Bind,
		SessionPort:   cfg.SessionPort,
		DiscoveryPort: cfg.DiscoveryPort,
		Rounds:        rounds,
	})
	if err != nil {
		return err
	}
	fmt.Printf("hosting as %s, waiting for a challenger (ctrl-c to stop)\n", name)

	var s *session.Session
	select {
	case <-ctx.Done():
		coord.StopHosting()
		return ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return res.Err
		}
		s = res.Session
	}

	return playSession(ctx, s, store, username)
}
