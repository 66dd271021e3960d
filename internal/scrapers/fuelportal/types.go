package fuelportal

import (
	"fmt"
	"time"
)

// DefaultTargetUrl is the tank page of the portal.
const DefaultTargetUrl = "https://mysuperioraccountlogin.com/Tank"

type Credentials struct {
	Username string
	Password string
}

// String never includes the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q}", c.Username)
}

type DeliveryMode string

const (
	DeliveryMonitored DeliveryMode = "Monitored"
	DeliveryAutomatic DeliveryMode = "Automatic"
)

// Date is a calendar date as shown by the portal, it carries no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const portalDateLayout = "1/2/2006"

// ParseDate parses a M/D/YYYY date, leading zeros are optional.
func ParseDate(text string) (Date, error) {
	t, err := time.Parse(portalDateLayout, text)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Format renders the date the way the portal does (MM/DD/YYYY).
func (d Date) Format() string {
	return fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, d.Year)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Tank is the information shown on the tank page, every field is nil when the
// page does not show it (or shows something that cannot be understood).
type Tank struct {
	// gallons
	TankSize *int
	// gallons
	FuelRemaining *int
	// per gallon
	Price        *float64
	DeliveryMode *DeliveryMode
	LastDelivery *Date
	NextDelivery *Date
	DataLastRead *Date
}

// Missing returns the names of the fields that could not be extracted.
func (t Tank) Missing() []string {
	var missing []string
	if t.TankSize == nil {
		missing = append(missing, "tank_size")
	}
	if t.FuelRemaining == nil {
		missing = append(missing, "fuel_remaining")
	}
	if t.Price == nil {
		missing = append(missing, "price")
	}
	if t.DeliveryMode == nil {
		missing = append(missing, "delivery_mode")
	}
	if t.LastDelivery == nil {
		missing = append(missing, "last_delivery")
	}
	if t.NextDelivery == nil {
		missing = append(missing, "next_delivery")
	}
	if t.DataLastRead == nil {
		missing = append(missing, "data_last_read")
	}
	return missing
}

// Reading is everything read from one load of the tank page.
type Reading struct {
	Time time.Time
	// fill level percentage, nil when the page has no progress bar
	Level *int
	Tank  Tank
}
