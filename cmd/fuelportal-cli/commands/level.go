package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(levelCmd)
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Prints the fill level of the tank in percent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, closeStore, err := newFetcher(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeStore()

		level, err := fetcher.FetchLevel(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d%%\n", level)
		return nil
	},
}
