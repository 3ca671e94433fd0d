// Package analytics aggregates trade tables into the views the dashboard
// serves: totals, grouped rankings, monthly series, year-over-year price
// comparisons, treemaps and the export/import balance.
//
// Every function is pure and takes an already filtered *trade.Table.
// Ratios that would divide by zero are returned as nil pointers so callers
// can render them as "n/d" instead of Inf or NaN.
package analytics
