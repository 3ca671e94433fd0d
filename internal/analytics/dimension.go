package analytics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/format"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidMetric    = errors.New("invalid metric")
	ErrYearNotAvailable = errors.New("year not available")
	ErrInvalidYearRange = errors.New("base year must be before compare year")
)

// Dimension is a grouping key
type Dimension string

const (
	DimProduct Dimension = "product"
	DimChapter Dimension = "chapter"
	DimHeading Dimension = "heading"
	DimCountry Dimension = "country"
	DimUF      Dimension = "uf"
	DimYear    Dimension = "year"
	DimMonth   Dimension = "month"
)

// Dimensions lists every supported dimension
var Dimensions = []Dimension{DimProduct, DimChapter, DimHeading, DimCountry, DimUF, DimYear, DimMonth}

// ParseDimension validates a dimension name
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
}

// Metric selects the value used to rank groups
type Metric string

const (
	MetricFOB    Metric = "fob"
	MetricWeight Metric = "weight"
)

// ParseMetric validates a metric name. Empty means MetricFOB.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricFOB:
		return MetricFOB, nil
	case MetricWeight:
		return MetricWeight, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
}

// keyer extracts a group key and a display label from row i of a view
type keyer func(v trade.View, i int) (key, label string)

func keyerFor(dim Dimension) (keyer, error) {
	switch dim {
	case DimProduct:
		return func(v trade.View, i int) (string, string) { return v.NCM[i], v.Product[i] }, nil
	case DimChapter:
		return func(v trade.View, i int) (string, string) {
			c := trade.Chapter(v.NCM[i])
			return c, c
		}, nil
	case DimHeading:
		return func(v trade.View, i int) (string, string) {
			h := trade.Heading(v.NCM[i])
			return h, h
		}, nil
	case DimCountry:
		return func(v trade.View, i int) (string, string) { return v.Country[i], v.Country[i] }, nil
	case DimUF:
		return func(v trade.View, i int) (string, string) { return v.UF[i], v.UF[i] }, nil
	case DimYear:
		return func(v trade.View, i int) (string, string) {
			y := strconv.Itoa(v.Year[i])
			return y, y
		}, nil
	case DimMonth:
		return func(v trade.View, i int) (string, string) {
			return fmt.Sprintf("%02d", v.Month[i]), format.MonthName(v.Month[i])
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
}

// ratio returns num/den, or nil when den is zero
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	r := num / den
	return &r
}

// pctChange returns (cmp-base)/base*100, or nil when base is zero
func pctChange(base, cmp float64) *float64 {
	if base == 0 {
		return nil
	}
	r := (cmp - base) / base * 100
	return &r
}

func pctChangePtr(base, cmp *float64) *float64 {
	if base == nil || cmp == nil {
		return nil
	}
	return pctChange(*base, *cmp)
}

// ErrNoData is returned when an operation needs at least one row
var ErrNoData = errors.New("no data")
