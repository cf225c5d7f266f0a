package plans

import (
	"strings"
	"time"
)

// Category is the billing period of a plan; it alone determines subscription duration.
type Category string

// Category constants (single source of truth)
const (
	Monthly   Category = "monthly"
	Quarterly Category = "quarterly"
	Annual    Category = "annual"
)

// Categories lists every purchasable category in display order.
var Categories = []Category{Monthly, Quarterly, Annual}

// ParseCategory normalizes user input and reports whether it names a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Monthly, Quarterly, Annual:
		return c, true
	}
	return "", false
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case Monthly, Quarterly, Annual:
		return true
	}
	return false
}

// Months is the number of calendar months one period of c lasts.
func (c Category) Months() int {
	switch c {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Annual:
		return 12
	default:
		return 0
	}
}

// AddTo returns t advanced by one period of c.
func (c Category) AddTo(t time.Time) time.Time {
	return t.AddDate(0, c.Months(), 0)
}

// Rank orders categories for listing.
func (c Category) Rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}
