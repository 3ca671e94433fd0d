package analytics

import (
	"sort"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// Summary holds the headline numbers of a table
type Summary struct {
	Records     int           `json:"records"`
	FOB         float64       `json:"fob_usd"`
	NetWeight   float64       `json:"net_weight_kg"`
	AvgPrice    *float64      `json:"avg_price_usd_kg"`
	Products    int           `json:"products"`
	Countries   int           `json:"countries"`
	FirstPeriod *trade.Period `json:"first_period,omitempty"`
	LastPeriod  *trade.Period `json:"last_period,omitempty"`
}

// Summarize totals a table
func Summarize(t *trade.Table) Summary {
	v := t.View()
	s := Summary{Records: v.Len()}

	products := make(map[string]struct{})
	countries := make(map[string]struct{})
	for i := 0; i < v.Len(); i++ {
		s.FOB += v.FOB[i]
		s.NetWeight += v.NetWeight[i]
		products[v.NCM[i]] = struct{}{}
		countries[v.Country[i]] = struct{}{}
	}
	s.Products = len(products)
	s.Countries = len(countries)
	s.AvgPrice = ratio(s.FOB, s.NetWeight)

	if first, last, ok := t.PeriodRange(); ok {
		s.FirstPeriod, s.LastPeriod = &first, &last
	}
	return s
}

// Point is one month of a MonthlySeries
type Point struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	FOB       float64  `json:"fob_usd"`
	NetWeight float64  `json:"net_weight_kg"`
	AvgPrice  *float64 `json:"avg_price_usd_kg"`
}

// MonthlySeries sums FOB and weight per month, sorted chronologically.
// Months without records are absent.
func MonthlySeries(t *trade.Table) []Point {
	v := t.View()
	index := make(map[trade.Period]int)
	points := make([]Point, 0)

	for i := 0; i < v.Len(); i++ {
		p := trade.Period{Year: v.Year[i], Month: v.Month[i]}
		pi, ok := index[p]
		if !ok {
			pi = len(points)
			index[p] = pi
			points = append(points, Point{Year: p.Year, Month: p.Month})
		}
		points[pi].FOB += v.FOB[i]
		points[pi].NetWeight += v.NetWeight[i]
	}

	for i := range points {
		points[i].AvgPrice = ratio(points[i].FOB, points[i].NetWeight)
	}
	sort.Slice(points, func(i, j int) bool {
		return trade.Period{Year: points[i].Year, Month: points[i].Month}.Before(
			trade.Period{Year: points[j].Year, Month: points[j].Month})
	})
	return points
}

// BalancePoint compares exports and imports for one year
type BalancePoint struct {
	Year      int      `json:"year"`
	ExportFOB float64  `json:"export_fob_usd"`
	ImportFOB float64  `json:"import_fob_usd"`
	Balance   float64  `json:"balance_usd"`
	Coverage  *float64 `json:"coverage"`
}

// TradeBalance computes exports minus imports per year. Coverage is
// exports/imports and is nil for years without imports.
func TradeBalance(t *trade.Table) []BalancePoint {
	v := t.View()
	byYear := make(map[int]*BalancePoint)

	for i := 0; i < v.Len(); i++ {
		bp, ok := byYear[v.Year[i]]
		if !ok {
			bp = &BalancePoint{Year: v.Year[i]}
			byYear[v.Year[i]] = bp
		}
		switch v.Flow[i] {
		case trade.FlowExport:
			bp.ExportFOB += v.FOB[i]
		case trade.FlowImport:
			bp.ImportFOB += v.FOB[i]
		}
	}

	out := make([]BalancePoint, 0, len(byYear))
	for _, bp := range byYear {
		bp.Balance = bp.ExportFOB - bp.ImportFOB
		bp.Coverage = ratio(bp.ExportFOB, bp.ImportFOB)
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
