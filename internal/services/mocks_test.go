package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Load(ctx context.Context) (*trade.Table, loader.LoadReport, error) {
	args := m.Called(ctx)
	var t *trade.Table
	if v := args.Get(0); v != nil {
		t = v.(*trade.Table)
	}
	return t, args.Get(1).(loader.LoadReport), args.Error(2)
}

func (m *mockSource) Name() string {
	return "file"
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, msgType string, data interface{}) {
	m.Called(ctx, msgType, data)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleTable holds three export rows over two years and one import row
func sampleTable() *trade.Table {
	return trade.NewTable([]trade.Record{
		{Flow: trade.FlowExport, Year: 2023, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "China", UF: "SC", FOB: 1000, NetWeight: 500},
		{Flow: trade.FlowExport, Year: 2023, Month: 2, NCM: "84181000", Product: "Refrigeradores", Country: "Estados Unidos", UF: "SC", FOB: 2000, NetWeight: 100},
		{Flow: trade.FlowExport, Year: 2024, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "Japão", UF: "SC", FOB: 1500, NetWeight: 600},
		{Flow: trade.FlowImport, Year: 2024, Month: 3, NCM: "85044090", Product: "Conversores", Country: "China", UF: "SC", FOB: 700, NetWeight: 20},
	})
}

func sampleReport() loader.LoadReport {
	return loader.LoadReport{Source: "file", RowsRead: 5, RowsKept: 4, RowsSkipped: 1}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Dashboard.DefaultTopN = 10
	cfg.Dashboard.MaxTopN = 50
	cfg.Dashboard.ChartWidth = 400
	cfg.Dashboard.ChartHeight = 300
	return cfg
}

// loadedService returns a service whose dataset is sampleTable
func loadedService(t *testing.T) *DashboardService {
	t.Helper()

	src := &mockSource{}
	src.On("Load", mock.Anything).Return(sampleTable(), sampleReport(), nil)

	svc := NewDashboardService(src, testConfig(), nil, nil, quietLogger())
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)
	return svc
}
