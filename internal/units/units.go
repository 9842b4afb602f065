// Package units provides shared constants and conversion for distance units
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	KM = "km"
	MI = "mi"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KM, MI}

// kmPerMile is the international mile.
const kmPerMile = 1.609344

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertDistance converts a distance recorded in kilometres to the target
// units. Trip exports store distance in km.
func ConvertDistance(km float64, targetUnits string) float64 {
	switch targetUnits {
	case MI:
		return km / kmPerMile
	default:
		return km
	}
}

// Label returns the display suffix for a unit, e.g. "12.5 km".
func Label(unit string) string {
	if unit == MI {
		return "mi"
	}
	return "km"
}

// FormatDistance converts and formats km for display with one decimal.
func FormatDistance(km float64, unit string) string {
	return fmt.Sprintf("%.1f %s", ConvertDistance(km, unit), Label(unit))
}
