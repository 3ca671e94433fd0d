package trade

import (
	"io"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table is an immutable columnar set of trade records
type Table struct {
	df dataframe.DataFrame
}

// View exposes a Table's columns as typed slices. Index i across all slices
// describes row i. Views are snapshots; mutating them does not affect the Table.
type View struct {
	Flow      []Flow
	Year      []int
	Month     []int
	NCM       []string
	Product   []string
	Country   []string
	UF        []string
	FOB       []float64
	NetWeight []float64
}

// Len returns the number of rows in the view
func (v View) Len() int {
	return len(v.Year)
}

// Record reassembles row i
func (v View) Record(i int) Record {
	return Record{
		Flow:      v.Flow[i],
		Year:      v.Year[i],
		Month:     v.Month[i],
		NCM:       v.NCM[i],
		Product:   v.Product[i],
		Country:   v.Country[i],
		UF:        v.UF[i],
		FOB:       v.FOB[i],
		NetWeight: v.NetWeight[i],
	}
}

// NewTable builds a table from records. Records are stored as given; callers
// are expected to Normalize and Validate them first.
func NewTable(records []Record) *Table {
	n := len(records)
	flows := make([]string, n)
	years := make([]int, n)
	months := make([]int, n)
	ncms := make([]string, n)
	products := make([]string, n)
	countries := make([]string, n)
	ufs := make([]string, n)
	fob := make([]float64, n)
	weight := make([]float64, n)

	for i, r := range records {
		flows[i] = string(r.Flow)
		years[i] = r.Year
		months[i] = r.Month
		ncms[i] = r.NCM
		products[i] = r.Product
		countries[i] = r.Country
		ufs[i] = r.UF
		fob[i] = r.FOB
		weight[i] = r.NetWeight
	}

	df := dataframe.New(
		series.New(flows, series.String, ColFlow),
		series.New(years, series.Int, ColYear),
		series.New(months, series.Int, ColMonth),
		series.New(ncms, series.String, ColNCM),
		series.New(products, series.String, ColProduct),
		series.New(countries, series.String, ColCountry),
		series.New(ufs, series.String, ColUF),
		series.New(fob, series.Float, ColFOB),
		series.New(weight, series.Float, ColNetWeight),
	)
	return &Table{df: df}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.df.Nrow()
}

// View extracts the typed columns
func (t *Table) View() View {
	if t.Len() == 0 {
		return View{}
	}

	flowCol := t.df.Col(ColFlow).Records()
	flows := make([]Flow, len(flowCol))
	for i, f := range flowCol {
		flows[i] = Flow(f)
	}

	return View{
		Flow:      flows,
		Year:      t.ints(ColYear),
		Month:     t.ints(ColMonth),
		NCM:       t.df.Col(ColNCM).Records(),
		Product:   t.df.Col(ColProduct).Records(),
		Country:   t.df.Col(ColCountry).Records(),
		UF:        t.df.Col(ColUF).Records(),
		FOB:       t.df.Col(ColFOB).Float(),
		NetWeight: t.df.Col(ColNetWeight).Float(),
	}
}

func (t *Table) ints(col string) []int {
	values, err := t.df.Col(col).Int()
	if err != nil {
		// Int columns are built from Go ints and never hold NaN.
		panic("trade: corrupt int column " + col + ": " + err.Error())
	}
	return values
}

// Records returns every row as a Record
func (t *Table) Records() []Record {
	v := t.View()
	out := make([]Record, v.Len())
	for i := range out {
		out[i] = v.Record(i)
	}
	return out
}

// Filter returns the rows matching f. A zero Filter returns t itself.
func (t *Table) Filter(f Filter) *Table {
	if f.IsZero() || t.Len() == 0 {
		return t
	}

	v := t.View()
	m := f.matcher()
	idx := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if m.match(v, i) {
			idx = append(idx, i)
		}
	}
	return t.subset(idx)
}

func (t *Table) subset(idx []int) *Table {
	switch {
	case len(idx) == 0:
		return NewTable(nil)
	case len(idx) == t.Len():
		return t
	}

	sub := t.df.Subset(idx)
	if sub.Err != nil {
		v := t.View()
		records := make([]Record, len(idx))
		for i, j := range idx {
			records[i] = v.Record(j)
		}
		return NewTable(records)
	}
	return &Table{df: sub}
}

// Concat stacks tables sharing the canonical schema
func Concat(tables ...*Table) *Table {
	var out *Table
	for _, t := range tables {
		if t.Len() == 0 {
			continue
		}
		if out == nil {
			out = t
			continue
		}
		merged := out.df.RBind(t.df)
		if merged.Err != nil {
			out = NewTable(append(out.Records(), t.Records()...))
			continue
		}
		out = &Table{df: merged}
	}
	if out == nil {
		return NewTable(nil)
	}
	return out
}

// WriteCSV writes the table with a header row of canonical column names
func (t *Table) WriteCSV(w io.Writer) error {
	return t.df.WriteCSV(w)
}

// Years returns the distinct years in ascending order
func (t *Table) Years() []int {
	return distinctInts(t.View().Year)
}

// Months returns the distinct months in ascending order
func (t *Table) Months() []int {
	return distinctInts(t.View().Month)
}

// Countries returns the distinct partner countries sorted by name
func (t *Table) Countries() []string {
	return distinctStrings(t.View().Country)
}

// UFs returns the distinct states
func (t *Table) UFs() []string {
	return distinctStrings(t.View().UF)
}

// Chapters returns the distinct HS chapters
func (t *Table) Chapters() []string {
	ncm := t.View().NCM
	chapters := make([]string, len(ncm))
	for i, code := range ncm {
		chapters[i] = Chapter(code)
	}
	return distinctStrings(chapters)
}

// Flows returns the flows present in the table in canonical order
func (t *Table) Flows() []Flow {
	seen := make(map[Flow]bool, 2)
	for _, f := range t.View().Flow {
		seen[f] = true
	}
	var out []Flow
	for _, f := range Flows {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}

// Period is a year and month pair
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether p is earlier than o
func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

// PeriodRange returns the earliest and latest periods. ok is false for an
// empty table.
func (t *Table) PeriodRange() (first, last Period, ok bool) {
	v := t.View()
	for i := 0; i < v.Len(); i++ {
		p := Period{Year: v.Year[i], Month: v.Month[i]}
		if !ok {
			first, last, ok = p, p, true
			continue
		}
		if p.Before(first) {
			first = p
		}
		if last.Before(p) {
			last = p
		}
	}
	return first, last, ok
}

func distinctInts(values []int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func distinctStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
