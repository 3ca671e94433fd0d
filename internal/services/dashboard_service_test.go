package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
	ws "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/websocket"
)

func TestDashboardService_NotLoaded(t *testing.T) {
	svc := NewDashboardService(&mockSource{}, testConfig(), nil, nil, quietLogger())
	ctx := context.Background()

	assert.False(t, svc.Loaded())
	st := svc.Status(ctx)
	assert.False(t, st.Loaded)
	assert.Equal(t, "file", st.Source)

	_, err := svc.Summary(ctx, Query{})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = svc.Top(ctx, Query{})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = svc.Filters(ctx)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = svc.ExportRecords(ctx, Query{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestDashboardService_Reload(t *testing.T) {
	src := &mockSource{}
	src.On("Load", mock.Anything).Return(sampleTable(), sampleReport(), nil).Once()
	notifier := &mockNotifier{}
	notifier.On("Publish", mock.Anything, ws.TypeDatasetUpdated, mock.AnythingOfType("services.DatasetStatus")).Once()

	svc := NewDashboardService(src, testConfig(), notifier, nil, quietLogger())
	st, err := svc.Reload(context.Background())
	require.NoError(t, err)

	assert.True(t, st.Loaded)
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, []int{2023, 2024}, st.Years)
	assert.Equal(t, []trade.Flow{trade.FlowExport, trade.FlowImport}, st.Flows)
	assert.Equal(t, 1, st.Reloads)
	require.NotNil(t, st.Report)
	assert.Equal(t, 1, st.Report.RowsSkipped)
	assert.NotNil(t, st.LoadedAt)
	assert.True(t, svc.Loaded())

	src.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDashboardService_ReloadFailureKeepsDataset(t *testing.T) {
	src := &mockSource{}
	src.On("Load", mock.Anything).Return(sampleTable(), sampleReport(), nil).Once()
	src.On("Load", mock.Anything).Return(nil, loader.LoadReport{}, errors.New("disk gone")).Once()
	notifier := &mockNotifier{}
	notifier.On("Publish", mock.Anything, ws.TypeDatasetUpdated, mock.Anything).Once()
	notifier.On("Publish", mock.Anything, ws.TypeDatasetFailed, mock.Anything).Once()

	svc := NewDashboardService(src, testConfig(), notifier, nil, quietLogger())
	ctx := context.Background()
	_, err := svc.Reload(ctx)
	require.NoError(t, err)

	st, err := svc.Reload(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.True(t, st.Loaded, "previous dataset is still served")
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, "disk gone", st.LastError)

	sum, err := svc.Summary(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Records)

	notifier.AssertExpectations(t)
}

func TestDashboardService_ReloadInProgress(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	src := &mockSource{}
	src.On("Load", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(sampleTable(), sampleReport(), nil).Once()

	svc := NewDashboardService(src, testConfig(), nil, nil, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Reload(context.Background())
		done <- err
	}()

	<-started
	_, err := svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrReloadInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, svc.Loaded())
	src.AssertNumberOfCalls(t, "Load", 1)
}

func TestDashboardService_LoadTimeout(t *testing.T) {
	src := &mockSource{}
	src.On("Load", mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "load runs under a deadline")
		}).
		Return(sampleTable(), sampleReport(), nil)

	cfg := testConfig()
	cfg.Data.LoadTimeout = time.Minute
	svc := NewDashboardService(src, cfg, nil, nil, quietLogger())
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)
}

func TestDashboardService_StartAutoRefresh(t *testing.T) {
	var calls atomic.Int32
	src := &mockSource{}
	src.On("Load", mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(sampleTable(), sampleReport(), nil)

	svc := NewDashboardService(src, testConfig(), nil, nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartAutoRefresh(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	// disabled refresh never calls the source
	idle := NewDashboardService(&mockSource{}, testConfig(), nil, nil, quietLogger())
	idle.StartAutoRefresh(ctx, 0)
	assert.False(t, idle.Loaded())
}

func TestDashboardService_Filters(t *testing.T) {
	svc := loadedService(t)

	opts, err := svc.Filters(context.Background())
	require.NoError(t, err)
	require.Len(t, opts.Flows, 2)

	exp := opts.Flows[0]
	assert.Equal(t, trade.FlowExport, exp.Flow)
	assert.Equal(t, []int{2023, 2024}, exp.Years)
	assert.Equal(t, []int{1, 2}, exp.Months)
	assert.Equal(t, []string{"China", "Estados Unidos", "Japão"}, exp.Countries)
	assert.Equal(t, []string{"02", "84"}, exp.Chapters)
	require.NotNil(t, exp.FirstPeriod)
	assert.Equal(t, trade.Period{Year: 2023, Month: 1}, *exp.FirstPeriod)

	imp := opts.Flows[1]
	assert.Equal(t, []int{2024}, imp.Years)
	assert.Equal(t, []string{"85"}, imp.Chapters)

	assert.Equal(t, analytics.Dimensions, opts.Dimensions)
	assert.Equal(t, 10, opts.DefaultN)
	assert.Equal(t, 50, opts.MaxN)
}

func TestDashboardService_Summary(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   Query
		records int
		fob     float64
	}{
		{"defaults to exports", Query{}, 3, 4500},
		{"imports", Query{Flow: "import"}, 1, 700},
		{"year filter", Query{Years: []int{2023}}, 2, 3000},
		{"country filter", Query{Countries: []string{"japao"}}, 1, 1500},
		{"empty selection is zero", Query{Years: []int{1999}}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := svc.Summary(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.records, sum.Records)
			assert.InDelta(t, tt.fob, sum.FOB, 1e-9)
		})
	}
}

func TestDashboardService_Top(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	groups, err := svc.Top(ctx, Query{Dimension: "country", N: 1, Others: true})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Estados Unidos", groups[0].Label)
	assert.Equal(t, analytics.OthersKey, groups[1].Key)
	assert.InDelta(t, 2500.0, groups[1].FOB, 1e-9)

	groups, err = svc.Top(ctx, Query{Metric: "weight"})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "02071400", groups[0].Key, "product is the default dimension")

	_, err = svc.Top(ctx, Query{Years: []int{1999}})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = svc.Top(ctx, Query{Dimension: "port"})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = svc.Top(ctx, Query{Metric: "cif"})
	assert.ErrorIs(t, err, ErrInvalidMetric)
}

func TestDashboardService_TopClampsN(t *testing.T) {
	svc := loadedService(t)
	svc.limits.MaxTopN = 1

	groups, err := svc.Top(context.Background(), Query{Dimension: "country", N: 500})
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestDashboardService_Monthly(t *testing.T) {
	svc := loadedService(t)

	points, err := svc.Monthly(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 2023, points[0].Year)
	assert.Equal(t, 1, points[0].Month)
	assert.Equal(t, 2024, points[2].Year)
}

func TestDashboardService_YoY(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	res, err := svc.YoY(ctx, Query{Years: []int{2024}})
	require.NoError(t, err, "year filter does not hide the base year")
	assert.Equal(t, 2023, res.BaseYear)
	assert.Equal(t, 2024, res.CompareYear)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "02071400", res.Rows[0].Key)
	require.NotNil(t, res.Rows[0].FOBChange)
	assert.InDelta(t, 50.0, *res.Rows[0].FOBChange, 1e-9)
	assert.InDelta(t, 3000.0, res.Total.BaseFOB, 1e-9)
	assert.InDelta(t, 1500.0, res.Total.CompareFOB, 1e-9)

	_, err = svc.YoY(ctx, Query{CompareYear: 2030})
	assert.ErrorIs(t, err, ErrYearNotAvailable)

	_, err = svc.YoY(ctx, Query{BaseYear: 2024, CompareYear: 2023})
	assert.ErrorIs(t, err, ErrInvalidYearRange)

	_, err = svc.YoY(ctx, Query{Dimension: "year"})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestDashboardService_Treemap(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	root, err := svc.Treemap(ctx, Query{})
	require.NoError(t, err)
	assert.InDelta(t, 4500.0, root.Value, 1e-9)
	require.Len(t, root.Children, 3)
	assert.Equal(t, "Estados Unidos", root.Children[0].Name)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "84181000", root.Children[0].Children[0].Key)

	_, err = svc.Treemap(ctx, Query{Levels: []string{"uf", "uf"}})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestDashboardService_Balance(t *testing.T) {
	svc := loadedService(t)

	points, err := svc.Balance(context.Background(), Query{Flow: "export"})
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, 2023, points[0].Year)
	assert.InDelta(t, 3000.0, points[0].Balance, 1e-9)
	assert.Nil(t, points[0].Coverage)

	assert.InDelta(t, 700.0, points[1].ImportFOB, 1e-9, "flow filter is ignored")
	assert.InDelta(t, 800.0, points[1].Balance, 1e-9)
}

func TestDashboardService_Charts(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()
	pngMagic := []byte("\x89PNG")

	top, err := svc.TopChart(ctx, Query{Dimension: "country"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(top, pngMagic))

	monthly, err := svc.MonthlyChart(ctx, Query{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(monthly, pngMagic))

	_, err = svc.TopChart(ctx, Query{Years: []int{1999}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDashboardService_ExportRecords(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := svc.ExportRecords(ctx, Query{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "empty flow exports both flows")

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	buf.Reset()
	n, err = svc.ExportRecords(ctx, Query{Flow: "import"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDashboardService_ExportTop(t *testing.T) {
	svc := loadedService(t)

	var buf bytes.Buffer
	n, err := svc.ExportTop(context.Background(), Query{Dimension: "country"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Estados Unidos", rows[1][2])
}

func TestDashboardService_ExportYoY(t *testing.T) {
	svc := loadedService(t)

	var buf bytes.Buffer
	n, err := svc.ExportYoY(context.Background(), Query{Dimension: "country"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "three countries and the totals row")

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "fob_usd_2023", rows[0][2])
	assert.Equal(t, "fob_usd_2024", rows[0][3])
	assert.Equal(t, "Japão", rows[1][0])

	_, err = svc.ExportYoY(context.Background(), Query{BaseYear: 2019, CompareYear: 2024}, &buf)
	assert.ErrorIs(t, err, ErrYearNotAvailable)
}

func TestDashboardService_ExportWorkbook(t *testing.T) {
	svc := loadedService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportWorkbook(context.Background(), Query{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Resumo", "Top produtos", "Comparativo 2023 x 2024", "Balança"}, f.GetSheetList())

	err = NewDashboardService(&mockSource{}, testConfig(), nil, nil, quietLogger()).
		ExportWorkbook(context.Background(), Query{}, &buf)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}
