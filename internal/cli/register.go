package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LukeWait/rps-lan/internal/profile"
)

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a local profile for tracking match results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profile.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		pw, err := promptLine("password: ")
		if err != nil {
			return err
		}
		confirm, err := promptLine("confirm password: ")
		if err != nil {
			return err
		}
		if pw != confirm {
			return fmt.Errorf("passwords do not match")
		}
		avatar, err := promptLine("avatar (optional): ")
		if err != nil {
			return err
		}

		if err := store.Register(cmd.Context(), args[0], pw, avatar); err != nil {
			return err
		}
		fmt.Printf("profile %s created\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
