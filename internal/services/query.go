package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// Query selects and shapes a dashboard view. Zero fields fall back to
// defaults: export flow, product dimension, FOB metric, the configured top-n.
type Query struct {
	Flow      string   `query:"flow" validate:"omitempty,oneof=export import"`
	Years     []int    `query:"year" validate:"omitempty,dive,gte=1989,lte=2100"`
	Months    []int    `query:"month" validate:"omitempty,dive,gte=1,lte=12"`
	Countries []string `query:"country" validate:"omitempty,dive,min=1,max=80"`
	UFs       []string `query:"uf" validate:"omitempty,dive,uf"`
	NCMPrefix string   `query:"ncm" validate:"omitempty,max=8,digits"`

	Dimension string `query:"by" validate:"omitempty,oneof=product chapter heading country uf year month"`
	Metric    string `query:"metric" validate:"omitempty,oneof=fob weight"`
	N         int    `query:"n" validate:"omitempty,gte=1,lte=500"`
	Others    bool   `query:"others"`

	BaseYear    int  `query:"base" validate:"omitempty,gte=1989,lte=2100"`
	CompareYear int  `query:"compare" validate:"omitempty,gte=1989,lte=2100"`
	SamePeriod  bool `query:"same_period"`

	Levels []string `query:"levels,comma" validate:"omitempty,max=2,dive,oneof=product chapter heading country uf year month"`
}

// Filter converts the selection fields. An empty flow stays empty here;
// views that need a single flow apply the export default themselves.
func (q Query) Filter() trade.Filter {
	return trade.Filter{
		Flow:      trade.Flow(q.Flow),
		Years:     q.Years,
		Months:    q.Months,
		Countries: q.Countries,
		UFs:       q.UFs,
		NCMPrefix: q.NCMPrefix,
	}
}

func (q Query) flow() trade.Flow {
	if q.Flow == "" {
		return trade.FlowExport
	}
	return trade.Flow(q.Flow)
}

func (q Query) dimension(def analytics.Dimension) (analytics.Dimension, error) {
	if q.Dimension == "" {
		return def, nil
	}
	return analytics.ParseDimension(q.Dimension)
}

func (q Query) metric() (analytics.Metric, error) {
	return analytics.ParseMetric(q.Metric)
}

// topN clamps the requested n to [1, max], using def when unset
func (q Query) topN(def, max int) int {
	n := q.N
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

func (q Query) levels() ([]analytics.Dimension, error) {
	if len(q.Levels) == 0 {
		return []analytics.Dimension{analytics.DimCountry, analytics.DimProduct}, nil
	}
	out := make([]analytics.Dimension, 0, len(q.Levels))
	for _, l := range q.Levels {
		d, err := analytics.ParseDimension(l)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Describe renders the active filters for report headers, e.g.
// "fluxo=export; ano=2023,2024; ncm=0207"
func (q Query) Describe() string {
	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+"="+value)
		}
	}
	add("fluxo", q.Flow)
	add("ano", joinInts(q.Years))
	add("mes", joinInts(q.Months))
	add("pais", strings.Join(q.Countries, ","))
	add("uf", strings.Join(q.UFs, ","))
	add("ncm", q.NCMPrefix)
	if q.SamePeriod {
		add("mesmo_periodo", "sim")
	}
	if len(parts) == 0 {
		return "sem filtros"
	}
	return strings.Join(parts, "; ")
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

var dimensionNames = map[analytics.Dimension]string{
	analytics.DimProduct: "produtos",
	analytics.DimChapter: "capítulos",
	analytics.DimHeading: "posições",
	analytics.DimCountry: "países",
	analytics.DimUF:      "estados",
	analytics.DimYear:    "anos",
	analytics.DimMonth:   "meses",
}

func topTitle(n int, dim analytics.Dimension, flow trade.Flow, metric analytics.Metric) string {
	unit := "US$"
	if metric == analytics.MetricWeight {
		unit = "kg"
	}
	return fmt.Sprintf("%s: top %d %s (%s)", flow.Label(), n, dimensionNames[dim], unit)
}
