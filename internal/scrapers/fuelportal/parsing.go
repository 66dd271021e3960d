package fuelportal

import (
	"myfuelportal-backend/pkg/htmlutil"
	"regexp"
	"strconv"
	"strings"
)

// tankField finds the text of one field of the tank page and stores its
// parsed value in the Tank, it returns false if the page did not have it.
type tankField struct {
	name  string
	find  func(doc htmlutil.Document) (string, bool)
	parse func(text string, tank *Tank) bool
}

var (
	tankSizeRegex      = regexp.MustCompile(`(\d+) gal\.`)
	fuelRemainingRegex = regexp.MustCompile(`(\d+) gallons in tank`)
	lastDeliveryRegex  = regexp.MustCompile(`(?m)Last Delivery:\s*(\d{1,2}/\d{1,2}/\d{4})`)
	nextDeliveryRegex  = regexp.MustCompile(`(?m)Estimated Next Delivery:\s*(\d{1,2}/\d{1,2}/\d{4})`)
	dataLastReadRegex  = regexp.MustCompile(`(?m)Reading Date:\s*(\d{1,2}/\d{1,2}/\d{4})`)
)

// findMatch returns the first capture group of the first text node that regex matches.
func findMatch(regex *regexp.Regexp) func(doc htmlutil.Document) (string, bool) {
	return func(doc htmlutil.Document) (string, bool) {
		text, ok := doc.FindText(regex.MatchString)
		if !ok {
			return "", false
		}
		groups := regex.FindStringSubmatch(text)
		if len(groups) < 2 {
			return "", false
		}
		return groups[1], true
	}
}

func parseInt(set func(*Tank, *int)) func(text string, tank *Tank) bool {
	return func(text string, tank *Tank) bool {
		value, err := strconv.Atoi(text)
		if err != nil {
			return false
		}
		set(tank, &value)
		return true
	}
}

func parseDate(set func(*Tank, *Date)) func(text string, tank *Tank) bool {
	return func(text string, tank *Tank) bool {
		date, err := ParseDate(text)
		if err != nil {
			return false
		}
		set(tank, &date)
		return true
	}
}

var tankFields = []tankField{
	{
		name: "tank_size",
		find: findMatch(tankSizeRegex),
		parse: parseInt(func(t *Tank, v *int) {
			t.TankSize = v
		}),
	},
	{
		name: "fuel_remaining",
		find: findMatch(fuelRemainingRegex),
		parse: parseInt(func(t *Tank, v *int) {
			t.FuelRemaining = v
		}),
	},
	{
		name: "price",
		find: func(doc htmlutil.Document) (string, bool) {
			span, ok := doc.FindElement("span", func(el htmlutil.Element) bool {
				return strings.HasPrefix(strings.TrimSpace(el.Text()), "$")
			})
			if !ok {
				return "", false
			}
			return strings.TrimSpace(span.Text()), true
		},
		parse: func(text string, tank *Tank) bool {
			price, err := strconv.ParseFloat(strings.TrimPrefix(text, "$"), 64)
			if err != nil {
				return false
			}
			tank.Price = &price
			return true
		},
	},
	{
		name: "delivery_mode",
		find: func(doc htmlutil.Document) (string, bool) {
			div, ok := doc.FindElement("div", func(el htmlutil.Element) bool {
				return htmlutil.HasClass(el, "text-2")
			})
			if !ok {
				return "", false
			}
			return div.Text(), true
		},
		parse: func(text string, tank *Tank) bool {
			var mode DeliveryMode
			switch text {
			case string(DeliveryMonitored):
				mode = DeliveryMonitored
			case string(DeliveryAutomatic):
				mode = DeliveryAutomatic
			default:
				return false
			}
			tank.DeliveryMode = &mode
			return true
		},
	},
	{
		name: "last_delivery",
		find: findMatch(lastDeliveryRegex),
		parse: parseDate(func(t *Tank, d *Date) {
			t.LastDelivery = d
		}),
	},
	{
		name: "next_delivery",
		find: findMatch(nextDeliveryRegex),
		parse: parseDate(func(t *Tank, d *Date) {
			t.NextDelivery = d
		}),
	},
	{
		name: "data_last_read",
		find: findMatch(dataLastReadRegex),
		parse: parseDate(func(t *Tank, d *Date) {
			t.DataLastRead = d
		}),
	},
}

// TankContainer is the element of the tank page that holds the tank's details.
const TankContainer = "div.box-body"

// ParseTank extracts every field of the tank page it can find, fields that
// are missing or that cannot be parsed are left nil.
func ParseTank(doc htmlutil.Document) Tank {
	if scoped, ok := doc.Scope(TankContainer); ok {
		doc = scoped
	}

	var tank Tank
	for _, field := range tankFields {
		text, ok := field.find(doc)
		if !ok {
			continue
		}
		field.parse(text, &tank)
	}
	return tank
}
