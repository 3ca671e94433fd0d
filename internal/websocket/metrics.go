package websocket

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/infrastructure"
)

// hubMetrics records hub activity on the global meter provider. A nil
// *hubMetrics records nothing.
type hubMetrics struct {
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messagesDropped    metric.Int64Counter
}

func newHubMetrics(logger *slog.Logger) *hubMetrics {
	meter := otel.Meter(infrastructure.MeterName + "/websocket")

	var (
		m   hubMetrics
		err error
	)
	if m.connectionsActive, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	); err != nil {
		logger.Warn("websocket metrics disabled", slog.String("error", err.Error()))
		return nil
	}
	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	); err != nil {
		logger.Warn("websocket metrics disabled", slog.String("error", err.Error()))
		return nil
	}
	if m.messagesSent, err = meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Messages queued to WebSocket clients"),
	); err != nil {
		logger.Warn("websocket metrics disabled", slog.String("error", err.Error()))
		return nil
	}
	if m.messagesDropped, err = meter.Int64Counter(
		"websocket_messages_dropped_total",
		metric.WithDescription("Messages dropped because a queue was full"),
	); err != nil {
		logger.Warn("websocket metrics disabled", slog.String("error", err.Error()))
		return nil
	}
	return &m
}

func (m *hubMetrics) connected(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, 1)
}

func (m *hubMetrics) disconnected(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds())
}

func (m *hubMetrics) sent(ctx context.Context, msgType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.messagesSent.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", msgType)))
}

func (m *hubMetrics) dropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
