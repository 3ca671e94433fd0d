package exporter

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

func sampleTable() *trade.Table {
	return trade.NewTable([]trade.Record{
		{Flow: trade.FlowExport, Year: 2023, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "China", UF: "SC", FOB: 1000, NetWeight: 500},
		{Flow: trade.FlowExport, Year: 2024, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "Japão", UF: "SC", FOB: 1500, NetWeight: 600},
		{Flow: trade.FlowExport, Year: 2024, Month: 2, NCM: "84181000", Product: "Refrigeradores, \"frost free\"", Country: "Chile", UF: "SC", FOB: 300, NetWeight: 0},
	})
}

func TestWriteRecords_RoundTripsThroughLoader(t *testing.T) {
	table := sampleTable()

	var buf bytes.Buffer
	sw, err := NewCSVWriter(nil).NewStreamWriter(&buf, RecordHeaders)
	require.NoError(t, err)
	require.NoError(t, WriteRecords(sw, table))
	require.NoError(t, sw.Close())

	opts := loader.DefaultOptions()
	opts.Delimiter = ','
	records, report, err := loader.ParseCSV(context.Background(), &buf, opts)
	require.NoError(t, err)
	assert.Zero(t, report.RowsSkipped)
	assert.Equal(t, table.Records(), records)
}

func TestGroupRows(t *testing.T) {
	groups, err := analytics.GroupBy(sampleTable(), analytics.DimProduct)
	require.NoError(t, err)

	rows := GroupRows(analytics.TopN(groups, 0, analytics.MetricFOB, false))
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(GroupHeaders))
	assert.Equal(t, []string{"1", "02071400", "Pedaços de frango", "2500.00", "1100.00", "2.27", "89.29", "2"}, rows[0])
	assert.Equal(t, "", rows[1][5], "undefined price is an empty cell")
}

func TestYoYRows(t *testing.T) {
	res, err := analytics.YearOverYear(sampleTable(), analytics.DimProduct, analytics.YoYOptions{})
	require.NoError(t, err)

	headers := YoYHeaders(res.BaseYear, res.CompareYear)
	assert.Equal(t, "fob_usd_2023", headers[2])
	assert.Equal(t, "fob_usd_2024", headers[3])

	rows := YoYRows(res)
	require.Len(t, rows, 3, "two keys plus the totals row")
	for _, r := range rows {
		assert.Len(t, r, len(headers))
	}
	assert.Equal(t, "02071400", rows[0][0])
	assert.Equal(t, "50.00", rows[0][4])
	assert.Equal(t, "", rows[1][4], "absent in base year")
	assert.Equal(t, "total", rows[2][0])
}
