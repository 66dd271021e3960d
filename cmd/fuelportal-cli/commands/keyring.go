package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	keyringCmd.AddCommand(keyringSetCmd)
	keyringCmd.AddCommand(keyringDeleteCmd)
	rootCmd.AddCommand(keyringCmd)
}

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manages the portal password kept in the OS keyring.",
}

var keyringSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Reads the password of the configured username from stdin and stores it in the keyring.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		if g.config.Username == "" {
			return fmt.Errorf("a username was not specified, set it in the config or with --username")
		}

		fmt.Fprintf(os.Stderr, "Password for %s: ", g.config.Username)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("the password is empty")
		}

		err = g.keyring.Store(g.config.Username, password)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "stored.")
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Removes the password of the configured username from the keyring.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		return g.keyring.Delete(g.config.Username)
	},
}
