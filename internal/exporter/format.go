package exporter

import (
	"strconv"
)

// formatFloat formats a value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatOptional formats a nullable ratio; nil becomes an empty cell
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatInt formats an integer for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
