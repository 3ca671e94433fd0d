package loader

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// ErrFlowUnknown is returned for files with no flow column and no DefaultFlow
var ErrFlowUnknown = errors.New("file has no flow column and no default flow")

// rowParser converts raw string rows into records using a mapped header
type rowParser struct {
	idx  map[string]int
	opts Options
	// width is the minimum row length covering every mapped column
	width int
}

func newRowParser(header []string, opts Options) (*rowParser, error) {
	idx := trade.MapHeader(header)
	if missing := trade.MissingColumns(idx); len(missing) > 0 {
		return nil, apierrors.NewParsingError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil).
			WithContext("header", header)
	}
	if _, ok := idx[trade.ColFlow]; !ok && !opts.DefaultFlow.Valid() {
		return nil, apierrors.NewParsingError("cannot determine trade flow", ErrFlowUnknown)
	}

	width := 0
	for _, i := range idx {
		if i+1 > width {
			width = i + 1
		}
	}
	return &rowParser{idx: idx, opts: opts, width: width}, nil
}

func (p *rowParser) cell(row []string, col string) string {
	i, ok := p.idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parse returns the record for row, or a skip reason and detail
func (p *rowParser) parse(row []string) (rec trade.Record, reason, detail string) {
	if len(row) < p.width {
		return rec, SkipShortRow, fmt.Sprintf("%d fields, want %d", len(row), p.width)
	}

	rec.Flow = p.opts.DefaultFlow
	if raw := p.cell(row, trade.ColFlow); raw != "" {
		f, err := trade.ParseFlow(raw)
		if err != nil {
			return rec, SkipInvalidFlow, raw
		}
		rec.Flow = f
	}
	if !rec.Flow.Valid() {
		return rec, SkipInvalidFlow, "empty flow"
	}

	year, err := parseInt(p.cell(row, trade.ColYear))
	if err != nil || year <= 0 {
		return rec, SkipInvalidYear, p.cell(row, trade.ColYear)
	}
	month, err := parseInt(p.cell(row, trade.ColMonth))
	if err != nil || month < 1 || month > 12 {
		return rec, SkipInvalidMonth, p.cell(row, trade.ColMonth)
	}
	rec.Year, rec.Month = year, month

	rec.NCM = trade.NormalizeNCM(p.cell(row, trade.ColNCM))
	if len(rec.NCM) != 8 {
		return rec, SkipInvalidNCM, p.cell(row, trade.ColNCM)
	}

	rawFOB := p.cell(row, trade.ColFOB)
	if rawFOB == "" {
		return rec, SkipMissingFOB, "empty FOB value"
	}
	if rec.FOB, err = ParseNumber(rawFOB); err != nil {
		return rec, SkipInvalidNumber, rawFOB
	}
	// net weight is often blank for goods declared by unit
	if raw := p.cell(row, trade.ColNetWeight); raw != "" {
		if rec.NetWeight, err = ParseNumber(raw); err != nil {
			return rec, SkipInvalidNumber, raw
		}
	}
	if rec.FOB < 0 || rec.NetWeight < 0 {
		return rec, SkipNegative, fmt.Sprintf("fob=%v kg=%v", rec.FOB, rec.NetWeight)
	}

	rec.Product = p.cell(row, trade.ColProduct)
	rec.Country = p.cell(row, trade.ColCountry)
	rec.UF = p.cell(row, trade.ColUF)
	rec = rec.Normalize()

	if p.opts.UF != "" && rec.UF != "" && rec.UF != p.opts.UF {
		return rec, SkipOtherUF, rec.UF
	}
	if rec.UF == "" {
		rec.UF = p.opts.UF
	}
	return rec, "", ""
}

func parseInt(s string) (int, error) {
	if f, err := ParseNumber(s); err == nil && f == float64(int(f)) {
		return int(f), nil
	}
	return strconv.Atoi(s)
}

// ParseNumber parses plain ("1234.5"), Brazilian ("1.234,5") and US
// ("1,234.5") number formats. When both separators appear the last one is
// the decimal separator. A lone comma is a decimal comma; several dots with
// no comma are thousands separators. A single dot with no comma is always a
// decimal point, so "1.500" is 1.5: grouped Brazilian values must carry a
// decimal comma ("1.500,0") to be read as thousands. NaN and infinities are
// rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "US$", "", "$", "").Replace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number: %w", s, strconv.ErrSyntax)
	}
	return v, nil
}
