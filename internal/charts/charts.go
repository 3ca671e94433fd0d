// Package charts renders dashboard views as PNG images with gonum/plot.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/format"
)

// ErrEmpty is returned when there is nothing to draw
var ErrEmpty = errors.New("charts: no data to plot")

// maxLabelRunes truncates long product names on the category axis
const maxLabelRunes = 22

// pixelsPerInch is the resolution gonum's PNG canvas renders at
const pixelsPerInch = 96

var barColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Renderer draws charts of a fixed pixel size
type Renderer struct {
	width, height vg.Length
}

// NewRenderer creates a renderer producing widthPx x heightPx images
func NewRenderer(widthPx, heightPx int) *Renderer {
	if widthPx <= 0 {
		widthPx = 1000
	}
	if heightPx <= 0 {
		heightPx = 600
	}
	return &Renderer{
		width:  vg.Length(widthPx) * vg.Inch / pixelsPerInch,
		height: vg.Length(heightPx) * vg.Inch / pixelsPerInch,
	}
}

// TopBar draws one bar per group, in the given order, with values in
// millions of USD (or thousands of tonnes for the weight metric).
func (r *Renderer) TopBar(title string, groups []analytics.Group, metric analytics.Metric) ([]byte, error) {
	if len(groups) == 0 {
		return nil, ErrEmpty
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)

	p.Y.Label.Text = "US$ milhões"
	if metric == analytics.MetricWeight {
		p.Y.Label.Text = "mil toneladas"
	}
	p.Y.Tick.Marker = ptBRTicks{}

	values := make(plotter.Values, len(groups))
	labels := make([]string, len(groups))
	for i, g := range groups {
		v := g.FOB
		if metric == analytics.MetricWeight {
			v = g.NetWeight
		}
		values[i] = v / 1e6
		labels[i] = truncate(g.Label, maxLabelRunes)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("charts: bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid())
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0

	return r.png(p)
}

// Monthly draws one FOB line per year over the twelve months
func (r *Renderer) Monthly(title string, points []analytics.Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}

	byYear := make(map[int]plotter.XYs)
	for _, pt := range points {
		byYear[pt.Year] = append(byYear[pt.Year], plotter.XY{X: float64(pt.Month - 1), Y: pt.FOB / 1e6})
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "US$ milhões"
	p.Y.Tick.Marker = ptBRTicks{}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, y := range years {
		xys := byYear[y]
		sort.Slice(xys, func(a, b int) bool { return xys[a].X < xys[b].X })

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("charts: line for %d: %w", y, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(strconv.Itoa(y), line)
	}

	monthLabels := make([]string, 12)
	for m := 1; m <= 12; m++ {
		monthLabels[m-1] = format.MonthAbbrev(m)
	}
	p.NominalX(monthLabels...)
	p.Y.Min = 0

	return r.png(p)
}

func (r *Renderer) png(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, fmt.Errorf("charts: create canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("charts: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ptBRTicks labels the default ticks with Brazilian separators
type ptBRTicks struct{}

func (ptBRTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = format.Number(ticks[i].Value, decimalsFor(max-min))
		}
	}
	return ticks
}

func decimalsFor(span float64) int {
	switch {
	case span >= 10:
		return 0
	case span >= 1:
		return 1
	}
	return 2
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
