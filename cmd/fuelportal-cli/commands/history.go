package commands

import (
	"fmt"
	"myfuelportal-backend/internal/history"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "The amount of readings to show, 0 shows all of them.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>]",
	Short: "Prints the readings stored by `watch`, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		if g.config.History.File == "" && g.config.History.Url == "" {
			return fmt.Errorf("a history database was not specified in the config")
		}

		store, db, err := history.Open(cmd.Context(), g.config.History)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer db.Close()

		readings, err := store.Pull(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{
			"Read at", "Level", "Remaining", "Price", "Mode", "Last delivery", "Next delivery",
		})
		for _, reading := range readings {
			t.AppendRow(table.Row{
				reading.Time.Local().Format(time.DateTime),
				showInt(reading.Level, "%"),
				showInt(reading.Tank.FuelRemaining, "gal."),
				showPrice(reading.Tank.Price),
				showMode(reading.Tank.DeliveryMode),
				showDate(reading.Tank.LastDelivery),
				showDate(reading.Tank.NextDelivery),
			})
		}
		t.AppendFooter(table.Row{"Readings", len(readings)})
		t.Render()
		return nil
	},
}
