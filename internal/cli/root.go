// Package cli wires the terminal commands together: discovery scans,
// hosting, joining, and the local profile store.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukeWait/rps-lan/internal/config"
	"github.com/LukeWait/rps-lan/internal/logging"
)

var (
	flagConfigDir string
	flagLogLevel  string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rps",
	Short: "Rock Paper Scissors over the local network, with chat",
	Long: `rps hosts and joins Rock Paper Scissors matches on the local network.
Hosts announce themselves over UDP broadcast; no server or internet
connection is involved. A chat channel runs alongside every match.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := flagConfigDir
		if dir == "" {
			dir = config.DefaultDir()
		}
		var err error
		cfg, err = config.Load(dir)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		log, err = logging.New(level)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config and data directory (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command. Interrupts cancel the command context
// so sessions can say goodbye before the process exits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}
