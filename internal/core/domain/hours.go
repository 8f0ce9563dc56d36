package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// WorkedHours returns the span between two HH:MM clock values in hours,
// rounded to two decimals. A departure clock earlier than the arrival clock
// is taken to be after midnight, so 24h is added.
func WorkedHours(arrival, departure string) (float64, error) {
	a, err := time.Parse(ClockLayout, arrival)
	if err != nil {
		return 0, fmt.Errorf("arrival time %q: %w", arrival, err)
	}
	d, err := time.Parse(ClockLayout, departure)
	if err != nil {
		return 0, fmt.Errorf("departure time %q: %w", departure, err)
	}
	diff := d.Sub(a)
	if diff < 0 {
		diff += 24 * time.Hour
	}
	return Round2(diff.Hours()), nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatHours renders hours the way they are stored: shortest decimal form.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// ParseHours reads a WorkedHours cell. Empty or non-numeric cells count as
// zero and report ok=false.
func ParseHours(cell string) (float64, bool) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", "."))
	if cell == "" {
		return 0, false
	}
	h, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, false
	}
	return h, true
}
