package analytics

import (
	"sort"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// OthersKey and OthersLabel identify the bucket holding everything outside a top-N
const (
	OthersKey   = "outros"
	OthersLabel = "Outros"
)

// Group is one aggregated row of GroupBy
type Group struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	FOB       float64  `json:"fob_usd"`
	NetWeight float64  `json:"net_weight_kg"`
	AvgPrice  *float64 `json:"avg_price_usd_kg"`
	Share     float64  `json:"share_pct"`
	Records   int      `json:"records"`
}

func (g Group) value(m Metric) float64 {
	if m == MetricWeight {
		return g.NetWeight
	}
	return g.FOB
}

// GroupBy sums FOB and net weight per dimension key. Groups are returned in
// ascending key order. A group's label is the one of its first row.
func GroupBy(t *trade.Table, dim Dimension) ([]Group, error) {
	key, err := keyerFor(dim)
	if err != nil {
		return nil, err
	}

	v := t.View()
	total := 0.0
	for _, fob := range v.FOB {
		total += fob
	}
	return aggregate(v, nil, key, total), nil
}

// aggregate groups the rows listed in idx (every row when idx is nil).
// Shares are computed against total.
func aggregate(v trade.View, idx []int, key keyer, total float64) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	add := func(i int) {
		k, label := key(v, i)
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, Group{Key: k, Label: label})
		}
		g := &groups[gi]
		g.FOB += v.FOB[i]
		g.NetWeight += v.NetWeight[i]
		g.Records++
	}
	if idx == nil {
		for i := 0; i < v.Len(); i++ {
			add(i)
		}
	} else {
		for _, i := range idx {
			add(i)
		}
	}

	for i := range groups {
		groups[i].AvgPrice = ratio(groups[i].FOB, groups[i].NetWeight)
		groups[i].Share = share(groups[i].FOB, total)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// SortGroups orders groups by metric descending, ties by key ascending
func SortGroups(groups []Group, metric Metric) {
	sort.SliceStable(groups, func(i, j int) bool {
		vi, vj := groups[i].value(metric), groups[j].value(metric)
		if vi != vj {
			return vi > vj
		}
		return groups[i].Key < groups[j].Key
	})
}

// TopN returns the n largest groups by metric. With withOthers the remaining
// groups are folded into a trailing "Outros" group, so shares still add up
// to the full total. n <= 0 keeps every group. The input is not modified.
func TopN(groups []Group, n int, metric Metric, withOthers bool) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	SortGroups(sorted, metric)

	if n <= 0 || n >= len(sorted) {
		return sorted
	}

	top := sorted[:n:n]
	if !withOthers {
		return top
	}

	others := Group{Key: OthersKey, Label: OthersLabel}
	for _, g := range sorted[n:] {
		others.FOB += g.FOB
		others.NetWeight += g.NetWeight
		others.Share += g.Share
		others.Records += g.Records
	}
	others.AvgPrice = ratio(others.FOB, others.NetWeight)
	return append(top, others)
}
