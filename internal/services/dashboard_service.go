package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/charts"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/config"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/exporter"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/loader"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
	ws "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/websocket"
)

// Notifier receives dataset lifecycle events. *websocket.Hub implements it.
type Notifier interface {
	Publish(ctx context.Context, msgType string, data interface{})
}

// DatasetStatus describes the dataset currently served
type DatasetStatus struct {
	Loaded    bool               `json:"loaded"`
	Source    string             `json:"source"`
	Rows      int                `json:"rows"`
	Years     []int              `json:"years,omitempty"`
	Flows     []trade.Flow       `json:"flows,omitempty"`
	LoadedAt  *time.Time         `json:"loaded_at,omitempty"`
	Reloads   int                `json:"reloads"`
	LastError string             `json:"last_error,omitempty"`
	Report    *loader.LoadReport `json:"report,omitempty"`
}

// DashboardService serves aggregated views of the loaded trade table
type DashboardService struct {
	source      loader.Source
	notifier    Notifier
	metrics     *infrastructure.BusinessMetrics
	renderer    *charts.Renderer
	csv         *exporter.CSVWriter
	limits      config.DashboardConfig
	loadTimeout time.Duration
	logger      *slog.Logger

	// reloadMu serializes Reload; mu guards the fields below it
	reloadMu sync.Mutex
	mu       sync.RWMutex
	table    *trade.Table
	report   loader.LoadReport
	loadedAt time.Time
	reloads  int
	lastErr  error
}

// NewDashboardService creates a service over source. The dataset stays
// unloaded until the first Reload. notifier and metrics may be nil.
func NewDashboardService(source loader.Source, cfg *config.Config, notifier Notifier, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	return &DashboardService{
		source:      source,
		notifier:    notifier,
		metrics:     metrics,
		renderer:    charts.NewRenderer(cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight),
		csv:         exporter.NewCSVWriter(logger),
		limits:      cfg.Dashboard,
		loadTimeout: cfg.Data.LoadTimeout,
		logger:      infrastructure.WithComponent(logger, "dashboard_service"),
	}
}

// Reload loads the dataset from the source and swaps it in. On failure the
// previous table keeps being served. Concurrent calls fail fast with
// ErrReloadInProgress.
func (s *DashboardService) Reload(ctx context.Context) (DatasetStatus, error) {
	if !s.reloadMu.TryLock() {
		return s.Status(ctx), ErrReloadInProgress
	}
	defer s.reloadMu.Unlock()

	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	s.logger.InfoContext(ctx, "loading dataset", slog.String("source", s.source.Name()))
	start := time.Now()
	table, report, err := s.source.Load(ctx)
	duration := time.Since(start)
	s.metrics.RecordDatasetLoad(ctx, s.source.Name(), duration, report.RowsKept, report.RowsSkipped, err)

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		s.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", s.source.Name()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		s.notify(ctx, ws.TypeDatasetFailed, map[string]interface{}{
			"source": s.source.Name(),
			"error":  err.Error(),
		})
		return s.Status(ctx), fmt.Errorf("reload dataset: %w", err)
	}

	s.mu.Lock()
	s.table = table
	s.report = report
	s.loadedAt = time.Now()
	s.reloads++
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", s.source.Name()),
		slog.Int("rows", table.Len()),
		slog.Int("rows_skipped", report.RowsSkipped),
		slog.Any("skip_reasons", report.SkipReasons()),
		slog.Int("files", len(report.Files)),
		slog.Duration("duration", duration))

	status := s.Status(ctx)
	s.notify(ctx, ws.TypeDatasetUpdated, status)
	return status, nil
}

func (s *DashboardService) notify(ctx context.Context, msgType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(ctx, msgType, data)
	}
}

// StartAutoRefresh reloads the dataset every interval until ctx is done.
// A non-positive interval disables refreshing.
func (s *DashboardService) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx := infrastructure.EnsureTraceID(ctx)
				if _, err := s.Reload(tickCtx); err != nil && !errors.Is(err, ErrReloadInProgress) {
					s.logger.WarnContext(tickCtx, "scheduled reload failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Loaded reports whether a dataset is being served
func (s *DashboardService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

// Status describes the current dataset and the last load
func (s *DashboardService) Status(ctx context.Context) DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := DatasetStatus{Source: s.source.Name(), Reloads: s.reloads}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.table == nil {
		return st
	}

	report := s.report
	loadedAt := s.loadedAt
	st.Loaded = true
	st.Rows = s.table.Len()
	st.Years = s.table.Years()
	st.Flows = s.table.Flows()
	st.LoadedAt = &loadedAt
	st.Report = &report
	return st
}

func (s *DashboardService) current() (*trade.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrDatasetNotLoaded
	}
	return s.table, nil
}

// rows applies f to the current table and fails with ErrNoData when nothing
// is left
func (s *DashboardService) rows(f trade.Filter) (*trade.Table, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	out := t.Filter(f)
	if out.Len() == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// flowRows selects q's rows for a single flow (export by default)
func (s *DashboardService) flowRows(q Query) (*trade.Table, error) {
	f := q.Filter()
	f.Flow = q.flow()
	return s.rows(f)
}

// FlowOptions lists the filter values available for one flow
type FlowOptions struct {
	Flow        trade.Flow    `json:"flow"`
	Label       string        `json:"label"`
	Years       []int         `json:"years"`
	Months      []int         `json:"months"`
	Countries   []string      `json:"countries"`
	UFs         []string      `json:"ufs"`
	Chapters    []string      `json:"chapters"`
	FirstPeriod *trade.Period `json:"first_period,omitempty"`
	LastPeriod  *trade.Period `json:"last_period,omitempty"`
}

// FilterOptions feeds the dashboard's filter widgets
type FilterOptions struct {
	Flows      []FlowOptions         `json:"flows"`
	Dimensions []analytics.Dimension `json:"dimensions"`
	Metrics    []analytics.Metric    `json:"metrics"`
	DefaultN   int                   `json:"default_n"`
	MaxN       int                   `json:"max_n"`
}

// Filters returns the available filter values per flow
func (s *DashboardService) Filters(ctx context.Context) (FilterOptions, error) {
	t, err := s.current()
	if err != nil {
		return FilterOptions{}, err
	}

	opts := FilterOptions{
		Dimensions: analytics.Dimensions,
		Metrics:    []analytics.Metric{analytics.MetricFOB, analytics.MetricWeight},
		DefaultN:   s.limits.DefaultTopN,
		MaxN:       s.limits.MaxTopN,
	}
	for _, flow := range t.Flows() {
		ft := t.Filter(trade.Filter{Flow: flow})
		fo := FlowOptions{
			Flow:      flow,
			Label:     flow.Label(),
			Years:     ft.Years(),
			Months:    ft.Months(),
			Countries: ft.Countries(),
			UFs:       ft.UFs(),
			Chapters:  ft.Chapters(),
		}
		if first, last, ok := ft.PeriodRange(); ok {
			fo.FirstPeriod, fo.LastPeriod = &first, &last
		}
		opts.Flows = append(opts.Flows, fo)
	}
	return opts, nil
}

// Summary totals the selected rows. An empty selection yields a zero
// summary rather than ErrNoData.
func (s *DashboardService) Summary(ctx context.Context, q Query) (analytics.Summary, error) {
	t, err := s.flowRows(q)
	switch {
	case errors.Is(err, ErrNoData):
		return analytics.Summary{}, nil
	case err != nil:
		return analytics.Summary{}, err
	}
	return analytics.Summarize(t), nil
}

// Top ranks the selected rows by dimension
func (s *DashboardService) Top(ctx context.Context, q Query) ([]analytics.Group, error) {
	t, err := s.flowRows(q)
	if err != nil {
		return nil, err
	}
	return s.top(t, q)
}

func (s *DashboardService) top(t *trade.Table, q Query) ([]analytics.Group, error) {
	dim, err := q.dimension(analytics.DimProduct)
	if err != nil {
		return nil, err
	}
	metric, err := q.metric()
	if err != nil {
		return nil, err
	}
	groups, err := analytics.GroupBy(t, dim)
	if err != nil {
		return nil, err
	}
	return analytics.TopN(groups, q.topN(s.limits.DefaultTopN, s.limits.MaxTopN), metric, q.Others), nil
}

// Monthly returns the month-by-month series of the selected rows
func (s *DashboardService) Monthly(ctx context.Context, q Query) ([]analytics.Point, error) {
	t, err := s.flowRows(q)
	if err != nil {
		return nil, err
	}
	return analytics.MonthlySeries(t), nil
}

// YoY compares two years. The query's year filter is ignored because the
// compared years are chosen by BaseYear and CompareYear.
func (s *DashboardService) YoY(ctx context.Context, q Query) (analytics.YoYResult, error) {
	f := q.Filter()
	f.Flow = q.flow()
	f.Years = nil
	t, err := s.rows(f)
	if err != nil {
		return analytics.YoYResult{}, err
	}

	dim, err := q.dimension(analytics.DimProduct)
	if err != nil {
		return analytics.YoYResult{}, err
	}
	metric, err := q.metric()
	if err != nil {
		return analytics.YoYResult{}, err
	}

	n := 0
	if q.N > 0 {
		n = q.topN(s.limits.DefaultTopN, s.limits.MaxTopN)
	}
	return analytics.YearOverYear(t, dim, analytics.YoYOptions{
		BaseYear:    q.BaseYear,
		CompareYear: q.CompareYear,
		SamePeriod:  q.SamePeriod,
		N:           n,
		Metric:      metric,
	})
}

// Treemap builds a FOB hierarchy, country then product unless q.Levels says otherwise
func (s *DashboardService) Treemap(ctx context.Context, q Query) (analytics.TreemapNode, error) {
	t, err := s.flowRows(q)
	if err != nil {
		return analytics.TreemapNode{}, err
	}
	levels, err := q.levels()
	if err != nil {
		return analytics.TreemapNode{}, err
	}
	return analytics.Treemap(t, levels, q.topN(s.limits.DefaultTopN, s.limits.MaxTopN))
}

// Balance compares exports and imports per year. The flow filter is ignored.
func (s *DashboardService) Balance(ctx context.Context, q Query) ([]analytics.BalancePoint, error) {
	f := q.Filter()
	f.Flow = ""
	t, err := s.rows(f)
	if err != nil {
		return nil, err
	}
	return analytics.TradeBalance(t), nil
}

// TopChart renders Top as a PNG bar chart
func (s *DashboardService) TopChart(ctx context.Context, q Query) ([]byte, error) {
	t, err := s.flowRows(q)
	if err != nil {
		return nil, err
	}
	groups, err := s.top(t, q)
	if err != nil {
		return nil, err
	}

	dim, _ := q.dimension(analytics.DimProduct)
	metric, _ := q.metric()
	png, err := s.renderer.TopBar(topTitle(len(groups), dim, q.flow(), metric), groups, metric)
	if err != nil {
		return nil, fmt.Errorf("render top chart: %w", err)
	}
	s.metrics.RecordChart(ctx, "top")
	return png, nil
}

// MonthlyChart renders Monthly as a PNG line chart, one line per year
func (s *DashboardService) MonthlyChart(ctx context.Context, q Query) ([]byte, error) {
	points, err := s.Monthly(ctx, q)
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.Monthly(q.flow().Label()+": valor FOB mensal (US$)", points)
	if err != nil {
		return nil, fmt.Errorf("render monthly chart: %w", err)
	}
	s.metrics.RecordChart(ctx, "monthly")
	return png, nil
}

// ExportRecords streams the selected rows as CSV and returns the row count.
// Unlike the aggregated views an empty flow exports both flows.
func (s *DashboardService) ExportRecords(ctx context.Context, q Query, w io.Writer) (int, error) {
	t, err := s.rows(q.Filter())
	if err != nil {
		return 0, err
	}

	sw, err := s.csv.NewStreamWriter(w, exporter.RecordHeaders)
	if err != nil {
		return 0, err
	}
	if err := exporter.WriteRecords(sw, t); err != nil {
		return sw.Rows(), err
	}
	if err := sw.Close(); err != nil {
		return sw.Rows(), err
	}
	s.metrics.RecordReport(ctx, "csv", "records")
	return sw.Rows(), nil
}

// ExportTop writes the Top ranking as CSV and returns the row count
func (s *DashboardService) ExportTop(ctx context.Context, q Query, w io.Writer) (int, error) {
	groups, err := s.Top(ctx, q)
	if err != nil {
		return 0, err
	}
	rows := exporter.GroupRows(groups)
	if err := s.csv.WriteSimple(w, exporter.GroupHeaders, rows); err != nil {
		return 0, err
	}
	s.metrics.RecordReport(ctx, "csv", "top")
	return len(rows), nil
}

// ExportYoY writes the year-over-year comparison as CSV, totals row last,
// and returns the row count
func (s *DashboardService) ExportYoY(ctx context.Context, q Query, w io.Writer) (int, error) {
	res, err := s.YoY(ctx, q)
	if err != nil {
		return 0, err
	}
	rows := exporter.YoYRows(res)
	if err := s.csv.WriteSimple(w, exporter.YoYHeaders(res.BaseYear, res.CompareYear), rows); err != nil {
		return 0, err
	}
	s.metrics.RecordReport(ctx, "csv", "yoy")
	return len(rows), nil
}

// ExportWorkbook writes an XLSX report with the summary, the Top ranking,
// the year-over-year comparison and the trade balance of the selection
func (s *DashboardService) ExportWorkbook(ctx context.Context, q Query, w io.Writer) error {
	t, err := s.flowRows(q)
	if err != nil {
		return err
	}
	groups, err := s.top(t, q)
	if err != nil {
		return err
	}
	yoy, err := s.YoY(ctx, q)
	if err != nil {
		return err
	}
	balance, err := s.Balance(ctx, q)
	if err != nil {
		return err
	}

	wb, err := exporter.NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	dim, _ := q.dimension(analytics.DimProduct)
	meta := exporter.ReportMeta{
		Flow:        q.flow(),
		Filter:      q.Describe(),
		Source:      s.source.Name(),
		GeneratedAt: time.Now(),
	}
	if err := wb.AddSummary(meta, analytics.Summarize(t)); err != nil {
		return err
	}
	if err := wb.AddTop("Top "+dimensionNames[dim], groups); err != nil {
		return err
	}
	if err := wb.AddYoY(yoy); err != nil {
		return err
	}
	if err := wb.AddBalance(balance); err != nil {
		return err
	}
	if err := wb.Write(w); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "workbook written", slog.Any("sheets", wb.Sheets()))

	s.metrics.RecordReport(ctx, "xlsx", "yoy")
	return nil
}
