package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/profile"
)

var (
	flagUser string
	flagName string
)

func addPlayerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagUser, "user", "", "registered profile to play as (prompts for password)")
	cmd.Flags().StringVar(&flagName, "name", "", "display name when playing without a profile")
}

// resolvePlayer picks the display name for a match. With --user it
// authenticates against the profile store and returns it open so the
// result can be recorded; the caller closes it.
func resolvePlayer(ctx context.Context) (name string, store *profile.Store, username string, err error) {
	if flagUser == "" {
		name = flagName
		if name == "" {
			if u, uerr := user.Current(); uerr == nil && u.Username != "" {
				name = u.Username
			} else {
				name = "player"
			}
		}
		return name, nil, "", nil
	}

	store, err = profile.Open(cfg.DataDir)
	if err != nil {
		return "", nil, "", err
	}
	pw, err := promptLine(fmt.Sprintf("password for %s: ", flagUser))
	if err != nil {
		_ = store.Close()
		return "", nil, "", err
	}
	p, err := store.Authenticate(ctx, flagUser, pw)
	if err != nil {
		_ = store.Close()
		return "", nil, "", err
	}
	return p.Username, store, p.Username, nil
}

// stdin is shared so prompts and the in-match reader never fight over
// buffered bytes.
var stdin = bufio.NewReader(os.Stdin)

func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
