package estimate

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".")

// ParseNumber coerces a cell value into a float. Blank, non-numeric and
// non-finite input yields 0 so that one bad cell never poisons the sheet.
// Comma decimal separators and grouping spaces are accepted.
func ParseNumber(v any) float64 {
	if s, ok := v.(string); ok {
		s = numberCleaner.Replace(strings.TrimSpace(s))
		if s == "" {
			return 0
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// IsBlank reports whether a raw cell value is empty.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
