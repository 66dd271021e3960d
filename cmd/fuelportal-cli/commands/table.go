package commands

import (
	"fmt"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

const missing = "-"

func showInt(value *int, unit string) string {
	if value == nil {
		return missing
	}
	if unit == "" {
		return fmt.Sprint(*value)
	}
	return fmt.Sprintf("%d %s", *value, unit)
}

func showPrice(value *float64) string {
	if value == nil {
		return missing
	}
	return fmt.Sprintf("$%.3f", *value)
}

func showMode(value *fuelportal.DeliveryMode) string {
	if value == nil {
		return missing
	}
	return string(*value)
}

func showDate(value *fuelportal.Date) string {
	if value == nil {
		return missing
	}
	return value.Format()
}
