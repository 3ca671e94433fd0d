package analytics

import (
	"fmt"
	"sort"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// YoYOptions configures YearOverYear. Zero values pick defaults: the latest
// year as CompareYear, the year before it as BaseYear, MetricFOB and no limit.
type YoYOptions struct {
	BaseYear    int
	CompareYear int
	// SamePeriod restricts both years to the months present in CompareYear.
	SamePeriod bool
	N          int
	Metric     Metric
}

// YoYRow compares one key across the two years. Changes are percentages;
// nil means the base value is zero (or the price is undefined).
type YoYRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	BaseFOB    float64  `json:"base_fob_usd"`
	CompareFOB float64  `json:"compare_fob_usd"`
	FOBChange  *float64 `json:"fob_change_pct"`

	BaseWeight    float64  `json:"base_net_weight_kg"`
	CompareWeight float64  `json:"compare_net_weight_kg"`
	WeightChange  *float64 `json:"net_weight_change_pct"`

	BasePrice    *float64 `json:"base_avg_price_usd_kg"`
	ComparePrice *float64 `json:"compare_avg_price_usd_kg"`
	PriceChange  *float64 `json:"avg_price_change_pct"`
}

// YoYResult is the comparison table plus a totals row over every key
type YoYResult struct {
	Dimension   Dimension `json:"dimension"`
	Metric      Metric    `json:"metric"`
	BaseYear    int       `json:"base_year"`
	CompareYear int       `json:"compare_year"`
	SamePeriod  bool      `json:"same_period"`
	Months      []int     `json:"months,omitempty"`
	Rows        []YoYRow  `json:"rows"`
	Total       YoYRow    `json:"total"`
}

type yoyAcc struct {
	label   string
	fob, kg float64
}

// YearOverYear pivots the table by key for two years and computes the
// change of FOB, net weight and average price (FOB/kg).
//
// Keys missing from the base year get nil changes. Keys missing from the
// compare year get zero compare values, so their FOB change is -100%.
// An explicitly requested year must exist in the table; the default base
// year may be absent, in which case every change is nil.
func YearOverYear(t *trade.Table, dim Dimension, opts YoYOptions) (YoYResult, error) {
	if dim == DimYear {
		return YoYResult{}, fmt.Errorf("%w: cannot compare years by year", ErrInvalidDimension)
	}
	key, err := keyerFor(dim)
	if err != nil {
		return YoYResult{}, err
	}
	metric, err := ParseMetric(string(opts.Metric))
	if err != nil {
		return YoYResult{}, err
	}

	years := t.Years()
	if len(years) == 0 {
		return YoYResult{}, ErrNoData
	}
	present := make(map[int]bool, len(years))
	for _, y := range years {
		present[y] = true
	}

	compare := opts.CompareYear
	if compare == 0 {
		compare = years[len(years)-1]
	} else if !present[compare] {
		return YoYResult{}, fmt.Errorf("%w: %d", ErrYearNotAvailable, compare)
	}
	base := opts.BaseYear
	if base == 0 {
		base = compare - 1
	} else if !present[base] {
		return YoYResult{}, fmt.Errorf("%w: %d", ErrYearNotAvailable, base)
	}
	if base >= compare {
		return YoYResult{}, fmt.Errorf("%w: %d >= %d", ErrInvalidYearRange, base, compare)
	}

	res := YoYResult{Dimension: dim, Metric: metric, BaseYear: base, CompareYear: compare, SamePeriod: opts.SamePeriod}

	v := t.View()
	var months map[int]bool
	if opts.SamePeriod {
		months = make(map[int]bool)
		for i := 0; i < v.Len(); i++ {
			if v.Year[i] == compare {
				months[v.Month[i]] = true
			}
		}
		for m := 1; m <= 12; m++ {
			if months[m] {
				res.Months = append(res.Months, m)
			}
		}
	}

	baseAcc := make(map[string]*yoyAcc)
	cmpAcc := make(map[string]*yoyAcc)
	var keys []string
	seen := make(map[string]bool)

	for i := 0; i < v.Len(); i++ {
		var acc map[string]*yoyAcc
		switch v.Year[i] {
		case base:
			acc = baseAcc
		case compare:
			acc = cmpAcc
		default:
			continue
		}
		if months != nil && !months[v.Month[i]] {
			continue
		}

		k, label := key(v, i)
		a, ok := acc[k]
		if !ok {
			a = &yoyAcc{label: label}
			acc[k] = a
		}
		a.fob += v.FOB[i]
		a.kg += v.NetWeight[i]

		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	var totalBase, totalCmp yoyAcc
	rows := make([]YoYRow, 0, len(keys))
	for _, k := range keys {
		b, c := baseAcc[k], cmpAcc[k]
		if b == nil {
			b = &yoyAcc{}
		}
		if c == nil {
			c = &yoyAcc{}
		}
		label := c.label
		if label == "" {
			label = b.label
		}
		rows = append(rows, compareRow(k, label, *b, *c))

		totalBase.fob += b.fob
		totalBase.kg += b.kg
		totalCmp.fob += c.fob
		totalCmp.kg += c.kg
	}

	sort.Slice(rows, func(i, j int) bool {
		vi, vj := rows[i].compareValue(metric), rows[j].compareValue(metric)
		if vi != vj {
			return vi > vj
		}
		return rows[i].Key < rows[j].Key
	})
	if opts.N > 0 && len(rows) > opts.N {
		rows = rows[:opts.N]
	}

	res.Rows = rows
	res.Total = compareRow("total", "Total", totalBase, totalCmp)
	return res, nil
}

func compareRow(key, label string, b, c yoyAcc) YoYRow {
	row := YoYRow{
		Key:           key,
		Label:         label,
		BaseFOB:       b.fob,
		CompareFOB:    c.fob,
		FOBChange:     pctChange(b.fob, c.fob),
		BaseWeight:    b.kg,
		CompareWeight: c.kg,
		WeightChange:  pctChange(b.kg, c.kg),
		BasePrice:     ratio(b.fob, b.kg),
		ComparePrice:  ratio(c.fob, c.kg),
	}
	row.PriceChange = pctChangePtr(row.BasePrice, row.ComparePrice)
	return row
}

func (r YoYRow) compareValue(m Metric) float64 {
	if m == MetricWeight {
		return r.CompareWeight
	}
	return r.CompareFOB
}
