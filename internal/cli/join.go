package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/discovery"
	"github.com/LukeWait/rps-lan/internal/session"
	"github.com/LukeWait/rps-lan/internal/transport"
)

var joinCmd = &cobra.Command{
	Use:   "join [host:port]",
	Short: "Join a hosted game",
	Long: `Join a hosted game. With an address, connect straight to it.
Without one, scan the local network, list what answered and pick from
the list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(cmd, args)
	},
}

func init() {
	addPlayerFlags(joinCmd)
	joinCmd.Flags().DurationVar(&flagScanWait, "wait", 3*time.Second, "how long to scan when no address is given")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	addr := ""
	rounds := cfg.Rounds
	if len(args) == 1 {
		addr = args[0]
	} else {
		h, err := pickHost(cmd)
		if err != nil {
			return err
		}
		addr = h.Addr
		rounds = h.Rounds
	}

	name, store, username, err := resolvePlayer(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Println("connecting to", addr)
	peer, err := transport.Dial(ctx, addr, log, transport.Options{})
	if err != nil {
		return err
	}

	s := session.New(ctx, peer, session.RoleJoiner, name, rounds, log)
	return playSession(ctx, s, store, username)
}

func pickHost(cmd *cobra.Command) (discovery.Host, error) {
	fmt.Println("scanning for hosts...")
	hosts, err := scanHosts(cmd.Context(), flagScanWait)
	if err != nil {
		return discovery.Host{}, err
	}
	if len(hosts) == 0 {
		return discovery.Host{}, fmt.Errorf("no hosts found, try again or pass an address")
	}
	renderHosts(hosts)
	if len(hosts) == 1 {
		return hosts[0], nil
	}

	line, err := promptLine(fmt.Sprintf("pick a host (1-%d): ", len(hosts)))
	if err != nil {
		return discovery.Host{}, err
	}
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > len(hosts) {
		return discovery.Host{}, fmt.Errorf("no such host %q", line)
	}
	return hosts[i-1], nil
}
