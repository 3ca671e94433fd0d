package http

import (
	"context"
	"io"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

// DashboardServiceInterface defines the read side of the dashboard
type DashboardServiceInterface interface {
	Filters(ctx context.Context) (services.FilterOptions, error)
	Summary(ctx context.Context, q services.Query) (analytics.Summary, error)
	Top(ctx context.Context, q services.Query) ([]analytics.Group, error)
	Monthly(ctx context.Context, q services.Query) ([]analytics.Point, error)
	YoY(ctx context.Context, q services.Query) (analytics.YoYResult, error)
	Treemap(ctx context.Context, q services.Query) (analytics.TreemapNode, error)
	Balance(ctx context.Context, q services.Query) ([]analytics.BalancePoint, error)

	TopChart(ctx context.Context, q services.Query) ([]byte, error)
	MonthlyChart(ctx context.Context, q services.Query) ([]byte, error)

	ExportRecords(ctx context.Context, q services.Query, w io.Writer) (int, error)
	ExportTop(ctx context.Context, q services.Query, w io.Writer) (int, error)
	ExportYoY(ctx context.Context, q services.Query, w io.Writer) (int, error)
	ExportWorkbook(ctx context.Context, q services.Query, w io.Writer) error
}

// DatasetServiceInterface defines dataset status and reload operations
type DatasetServiceInterface interface {
	Status(ctx context.Context) services.DatasetStatus
	Reload(ctx context.Context) (services.DatasetStatus, error)
}

// HealthServiceInterface defines the health checks
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
