package commands

import (
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tankCmd)
}

var tankCmd = &cobra.Command{
	Use:   "tank",
	Short: "Prints everything the portal shows about the tank.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, closeStore, err := newFetcher(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer closeStore()

		reading, err := fetcher.FetchReading(cmd.Context())
		if err != nil {
			return err
		}
		renderReading(reading)
		return nil
	},
}

func renderReading(reading fuelportal.Reading) {
	tank := reading.Tank

	t := newTable()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Level", showInt(reading.Level, "%")},
		{"Tank size", showInt(tank.TankSize, "gal.")},
		{"Fuel remaining", showInt(tank.FuelRemaining, "gal.")},
		{"Price", showPrice(tank.Price)},
		{"Delivery mode", showMode(tank.DeliveryMode)},
		{"Last delivery", showDate(tank.LastDelivery)},
		{"Next delivery", showDate(tank.NextDelivery)},
		{"Data last read", showDate(tank.DataLastRead)},
	})
	t.AppendFooter(table.Row{"Read at", reading.Time.Format(time.DateTime)})
	t.Render()
}
