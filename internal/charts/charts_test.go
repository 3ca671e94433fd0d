package charts

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
)

func TestTopBar(t *testing.T) {
	r := NewRenderer(800, 400)
	groups := []analytics.Group{
		{Key: "02071400", Label: "Pedaços e miudezas, comestíveis de galos e galinhas", FOB: 3_500_000, NetWeight: 1_200_000},
		{Key: "84181000", Label: "Refrigeradores", FOB: 2_000_000, NetWeight: 100_000},
		{Key: analytics.OthersKey, Label: analytics.OthersLabel, FOB: 800_000},
	}

	for _, metric := range []analytics.Metric{analytics.MetricFOB, analytics.MetricWeight} {
		out, err := r.TopBar("Principais produtos", groups, metric)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 800, img.Bounds().Dx())
		assert.Equal(t, 400, img.Bounds().Dy())
	}

	_, err := r.TopBar("vazio", nil, analytics.MetricFOB)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMonthly(t *testing.T) {
	r := NewRenderer(0, 0)
	points := []analytics.Point{
		{Year: 2024, Month: 2, FOB: 2e6},
		{Year: 2023, Month: 1, FOB: 1e6},
		{Year: 2024, Month: 1, FOB: 1.5e6},
		{Year: 2023, Month: 2, FOB: 3e6},
	}

	out, err := r.Monthly("Evolução mensal", points)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())

	_, err = r.Monthly("vazio", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Frango", truncate("Frango", 10))
	assert.Equal(t, "Pedaç…", truncate("Pedaços de frango", 6))
}

func TestPtBRTicks(t *testing.T) {
	ticks := ptBRTicks{}.Ticks(0, 2500)
	require.NotEmpty(t, ticks)
	for _, tk := range ticks {
		if tk.Value == 2000 && tk.Label != "" {
			assert.Equal(t, "2.000", tk.Label)
		}
	}
	assert.Equal(t, 2, decimalsFor(0.5))
}
