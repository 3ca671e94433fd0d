// Package format renders values the way Brazilian trade reports print them:
// "." groups thousands, "," separates decimals and months are named in
// Portuguese.
package format

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NotAvailable is printed for undefined ratios (division by zero)
const NotAvailable = "n/d"

var months = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// round rounds half away from zero at the given number of places
func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Number formats v with pt-BR separators and a fixed number of decimals
func Number(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	if decimals < 0 {
		decimals = 0
	}
	layout := "#.###,"
	if decimals > 0 {
		layout += strings.Repeat("#", decimals)
	}
	return humanize.FormatFloat(layout, round(v, int32(decimals)))
}

// USD formats a dollar amount: US$ 1.234.567,89
func USD(v float64) string {
	return "US$ " + Number(v, 2)
}

// Compact abbreviates large values: 1,23 bi, 45,6 mi, 7,8 mil
func Compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return Number(v/1e9, 2) + " bi"
	case abs >= 1e6:
		return Number(v/1e6, 1) + " mi"
	case abs >= 1e3:
		return Number(v/1e3, 1) + " mil"
	}
	return Number(v, 0)
}

// Percent formats a percentage with one decimal. Nil means undefined.
func Percent(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return Number(*p, 1) + "%"
}

// Tonnes converts kilograms to tonnes: 1.234,5 t
func Tonnes(kg float64) string {
	return Number(kg/1000, 1) + " t"
}

// PricePerKg formats an average price. Nil means no weight was declared.
func PricePerKg(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return "US$ " + Number(*p, 2) + "/kg"
}

// MonthName returns the Portuguese month name, or "" when m is out of range
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return months[m-1]
}

// MonthAbbrev returns the lower-case three letter month: jan, fev, mar, ...
func MonthAbbrev(m int) string {
	name := MonthName(m)
	if name == "" {
		return ""
	}
	return strings.ToLower(string([]rune(name)[:3]))
}
