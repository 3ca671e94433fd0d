package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Filters(ctx context.Context) (services.FilterOptions, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.FilterOptions), args.Error(1)
}

func (m *MockDashboardService) Summary(ctx context.Context, q services.Query) (analytics.Summary, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(analytics.Summary), args.Error(1)
}

func (m *MockDashboardService) Top(ctx context.Context, q services.Query) ([]analytics.Group, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.Group), args.Error(1)
}

func (m *MockDashboardService) Monthly(ctx context.Context, q services.Query) ([]analytics.Point, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.Point), args.Error(1)
}

func (m *MockDashboardService) YoY(ctx context.Context, q services.Query) (analytics.YoYResult, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(analytics.YoYResult), args.Error(1)
}

func (m *MockDashboardService) Treemap(ctx context.Context, q services.Query) (analytics.TreemapNode, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(analytics.TreemapNode), args.Error(1)
}

func (m *MockDashboardService) Balance(ctx context.Context, q services.Query) ([]analytics.BalancePoint, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.BalancePoint), args.Error(1)
}

func (m *MockDashboardService) TopChart(ctx context.Context, q services.Query) ([]byte, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDashboardService) MonthlyChart(ctx context.Context, q services.Query) ([]byte, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDashboardService) ExportRecords(ctx context.Context, q services.Query, w io.Writer) (int, error) {
	args := m.Called(ctx, q, w)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardService) ExportTop(ctx context.Context, q services.Query, w io.Writer) (int, error) {
	args := m.Called(ctx, q, w)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardService) ExportYoY(ctx context.Context, q services.Query, w io.Writer) (int, error) {
	args := m.Called(ctx, q, w)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardService) ExportWorkbook(ctx context.Context, q services.Query, w io.Writer) error {
	return m.Called(ctx, q, w).Error(0)
}

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Status(ctx context.Context) services.DatasetStatus {
	return m.Called(ctx).Get(0).(services.DatasetStatus)
}

func (m *MockDatasetService) Reload(ctx context.Context) (services.DatasetStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.DatasetStatus), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

// writeBody makes an export mock write s to its io.Writer argument
func writeBody(s string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_, _ = io.WriteString(args.Get(2).(io.Writer), s)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(testLogger(), false)
}
