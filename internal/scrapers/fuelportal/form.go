package fuelportal

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func inputType(s *goquery.Selection) string {
	return strings.ToLower(strings.TrimSpace(s.AttrOr("type", "text")))
}

// serializeForm collects the values a browser would submit for form, the
// submit control that sends it is the first named one.
func serializeForm(form *goquery.Selection) url.Values {
	values := url.Values{}
	submitted := false

	form.Find("input, textarea, select, button").Each(func(_ int, control *goquery.Selection) {
		name, ok := control.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := control.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(control) {
		case "textarea":
			values.Add(name, control.Text())
		case "select":
			option := control.Find("option[selected]").First()
			if option.Length() == 0 {
				option = control.Find("option").First()
			}
			if option.Length() == 0 {
				return
			}
			values.Add(name, option.AttrOr("value", strings.TrimSpace(option.Text())))
		case "button":
			kind := strings.ToLower(control.AttrOr("type", "submit"))
			if kind != "submit" || submitted {
				return
			}
			submitted = true
			values.Add(name, control.AttrOr("value", ""))
		case "input":
			switch inputType(control) {
			case "submit":
				if submitted {
					return
				}
				submitted = true
				values.Add(name, control.AttrOr("value", ""))
			case "button", "reset", "image", "file":
				return
			case "checkbox", "radio":
				if _, checked := control.Attr("checked"); !checked {
					return
				}
				values.Add(name, control.AttrOr("value", "on"))
			default:
				values.Add(name, control.AttrOr("value", ""))
			}
		}
	})

	return values
}

// formHasControl reports whether form has a text-like control with the given name.
func formHasControl(form *goquery.Selection, name string) bool {
	found := false
	form.Find("input, textarea").EachWithBreak(func(_ int, control *goquery.Selection) bool {
		if control.AttrOr("name", "") != name {
			return true
		}
		switch inputType(control) {
		case "submit", "button", "reset", "image", "file", "checkbox", "radio":
			return true
		}
		found = true
		return false
	})
	return found
}

func hasPasswordInput(s *goquery.Selection) bool {
	found := false
	s.Find("input").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		found = inputType(input) == "password"
		return !found
	})
	return found
}
