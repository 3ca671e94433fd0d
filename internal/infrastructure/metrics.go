package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the dashboard's application metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetRowsLoaded   metric.Int64Counter
	DatasetRowsSkipped  metric.Int64Counter
	DatasetRows         metric.Int64Gauge

	// Report metrics
	ReportsGenerated metric.Int64Counter
	ChartsRendered   metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.DatasetLoadsTotal, err = meter.Int64Counter(
		"dataset_loads_total",
		metric.WithDescription("Total number of dataset loads by source and status"),
	); err != nil {
		return nil, err
	}

	if m.DatasetLoadDuration, err = meter.Float64Histogram(
		"dataset_load_duration_seconds",
		metric.WithDescription("Dataset load duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.DatasetRowsLoaded, err = meter.Int64Counter(
		"dataset_rows_loaded_total",
		metric.WithDescription("Trade rows accepted during loads"),
	); err != nil {
		return nil, err
	}

	if m.DatasetRowsSkipped, err = meter.Int64Counter(
		"dataset_rows_skipped_total",
		metric.WithDescription("Trade rows rejected during loads"),
	); err != nil {
		return nil, err
	}

	if m.DatasetRows, err = meter.Int64Gauge(
		"dataset_rows",
		metric.WithDescription("Rows in the dataset currently served"),
	); err != nil {
		return nil, err
	}

	if m.ReportsGenerated, err = meter.Int64Counter(
		"reports_generated_total",
		metric.WithDescription("CSV and XLSX reports generated"),
	); err != nil {
		return nil, err
	}

	if m.ChartsRendered, err = meter.Int64Counter(
		"charts_rendered_total",
		metric.WithDescription("PNG charts rendered"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordDatasetLoad records the outcome of a dataset load
func (m *BusinessMetrics) RecordDatasetLoad(ctx context.Context, source string, duration time.Duration, kept, skipped int, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)

	m.DatasetLoadsTotal.Add(ctx, 1, attrs)
	m.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		return
	}

	src := metric.WithAttributes(attribute.String("source", source))
	m.DatasetRowsLoaded.Add(ctx, int64(kept), src)
	m.DatasetRowsSkipped.Add(ctx, int64(skipped), src)
	m.DatasetRows.Record(ctx, int64(kept), src)
}

// RecordReport counts a generated report of the given kind ("csv", "xlsx")
func (m *BusinessMetrics) RecordReport(ctx context.Context, kind, name string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", kind),
		attribute.String("report", name),
	))
}

// RecordChart counts a rendered chart
func (m *BusinessMetrics) RecordChart(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.ChartsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("chart", name)))
}
