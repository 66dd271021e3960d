package fuelportal

import (
	"fmt"
	"math"
	"myfuelportal-backend/pkg/htmlutil"
	"strconv"
	"strings"
)

const (
	field_progress_bar = "progress bar"
	field_level        = "aria-valuenow"
)

// ParseLevel reads the fill percentage off the tank page's progress bar.
func ParseLevel(doc htmlutil.Document) (int, error) {
	bar, ok := doc.FindElement("div", func(el htmlutil.Element) bool {
		return htmlutil.HasClass(el, "progress-bar")
	})
	if !ok {
		return 0, extractionError(field_progress_bar, "couldn't find progress bar div")
	}

	raw, ok := bar.Attr(field_level)
	if !ok {
		return 0, extractionError(field_level, "progress bar has no value")
	}
	raw = strings.TrimSpace(raw)

	level, err := strconv.Atoi(raw)
	if err == nil {
		return level, nil
	}
	value, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		e := extractionError(field_level, fmt.Sprintf("failed to parse progress bar value %q", raw))
		e.Cause = err
		return 0, e
	}
	if value < math.MinInt || value >= math.MaxInt {
		return 0, extractionError(field_level, fmt.Sprintf("progress bar value %q is out of range", raw))
	}
	return int(value), nil
}
