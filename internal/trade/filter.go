package trade

import "strings"

// Filter selects table rows. Set fields combine with AND; empty fields do not
// restrict. Country and UF comparisons ignore case and diacritics.
type Filter struct {
	Flow      Flow     `json:"flow,omitempty"`
	Years     []int    `json:"years,omitempty"`
	Months    []int    `json:"months,omitempty"`
	Countries []string `json:"countries,omitempty"`
	UFs       []string `json:"ufs,omitempty"`
	NCMPrefix string   `json:"ncm_prefix,omitempty"`
}

// IsZero reports whether the filter keeps every row
func (f Filter) IsZero() bool {
	return f.Flow == "" && len(f.Years) == 0 && len(f.Months) == 0 &&
		len(f.Countries) == 0 && len(f.UFs) == 0 && f.NCMPrefix == ""
}

// Match reports whether a single record passes the filter
func (f Filter) Match(r Record) bool {
	v := View{
		Flow: []Flow{r.Flow}, Year: []int{r.Year}, Month: []int{r.Month},
		NCM: []string{r.NCM}, Product: []string{r.Product}, Country: []string{r.Country},
		UF: []string{r.UF}, FOB: []float64{r.FOB}, NetWeight: []float64{r.NetWeight},
	}
	return f.matcher().match(v, 0)
}

type matcher struct {
	flow      Flow
	years     map[int]bool
	months    map[int]bool
	countries map[string]bool
	ufs       map[string]bool
	prefix    string

	// memo of cleaned text values, distinct values are few
	cleaned map[string]string
}

func (f Filter) matcher() *matcher {
	m := &matcher{
		flow:    f.Flow,
		prefix:  NormalizePrefix(f.NCMPrefix),
		cleaned: make(map[string]string),
	}
	if len(f.Years) > 0 {
		m.years = make(map[int]bool, len(f.Years))
		for _, y := range f.Years {
			m.years[y] = true
		}
	}
	if len(f.Months) > 0 {
		m.months = make(map[int]bool, len(f.Months))
		for _, mo := range f.Months {
			m.months[mo] = true
		}
	}
	if len(f.Countries) > 0 {
		m.countries = make(map[string]bool, len(f.Countries))
		for _, c := range f.Countries {
			m.countries[CleanColumnName(c)] = true
		}
	}
	if len(f.UFs) > 0 {
		m.ufs = make(map[string]bool, len(f.UFs))
		for _, uf := range f.UFs {
			m.ufs[strings.ToUpper(strings.TrimSpace(uf))] = true
		}
	}
	return m
}

func (m *matcher) match(v View, i int) bool {
	if m.flow != "" && v.Flow[i] != m.flow {
		return false
	}
	if m.years != nil && !m.years[v.Year[i]] {
		return false
	}
	if m.months != nil && !m.months[v.Month[i]] {
		return false
	}
	if m.ufs != nil && !m.ufs[v.UF[i]] {
		return false
	}
	if m.prefix != "" && !strings.HasPrefix(v.NCM[i], m.prefix) {
		return false
	}
	if m.countries != nil && !m.countries[m.clean(v.Country[i])] {
		return false
	}
	return true
}

func (m *matcher) clean(s string) string {
	if c, ok := m.cleaned[s]; ok {
		return c
	}
	c := CleanColumnName(s)
	m.cleaned[s] = c
	return c
}

// NormalizePrefix keeps only the digits of an NCM prefix filter ("84.71" -> "8471")
func NormalizePrefix(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
