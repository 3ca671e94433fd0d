package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestNumber(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1234567.891, 2, "1.234.567,89"},
		{0, 2, "0,00"},
		{999.995, 2, "1.000,00"},
		{-1500, 2, "-1.500,00"},
		{-0.001, 2, "0,00"},
		{12.34, 0, "12"},
		{2.5, 0, "3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Number(tt.v, tt.decimals), "%v", tt.v)
	}
}

func TestUSD(t *testing.T) {
	assert.Equal(t, "US$ 1.234.567,89", USD(1234567.891))
	assert.Equal(t, "US$ 0,00", USD(0))
}

func TestCompact(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1_234_567_890, "1,23 bi"},
		{45_600_000, "45,6 mi"},
		{7_800, "7,8 mil"},
		{950, "950"},
		{-2_500_000, "-2,5 mi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compact(tt.v))
	}
}

func TestPercentAndPrice(t *testing.T) {
	assert.Equal(t, "12,3%", Percent(ptr(12.345)))
	assert.Equal(t, "-100,0%", Percent(ptr(-100)))
	assert.Equal(t, NotAvailable, Percent(nil))

	assert.Equal(t, "US$ 2,50/kg", PricePerKg(ptr(2.5)))
	assert.Equal(t, NotAvailable, PricePerKg(nil))
}

func TestTonnes(t *testing.T) {
	assert.Equal(t, "1.234,6 t", Tonnes(1_234_567))
}

func TestMonthNames(t *testing.T) {
	assert.Equal(t, "Janeiro", MonthName(1))
	assert.Equal(t, "Março", MonthName(3))
	assert.Equal(t, "", MonthName(13))
	assert.Equal(t, "mar", MonthAbbrev(3))
	assert.Equal(t, "dez", MonthAbbrev(12))
	assert.Equal(t, "", MonthAbbrev(0))
}
