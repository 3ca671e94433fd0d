package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDatasetStatus struct {
	mock.Mock
}

func (m *mockDatasetStatus) Status(ctx context.Context) DatasetStatus {
	return m.Called(ctx).Get(0).(DatasetStatus)
}

type fixedClients int

func (c fixedClients) ClientCount() int { return int(c) }

func TestHealthService_HealthAndLiveness(t *testing.T) {
	hs := NewHealthService("1.2.0", "2026-01-01T00:00:00Z", nil, nil, quietLogger())
	ctx := context.Background()

	health := hs.HealthCheck(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.0", health.Version)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")
	assert.Contains(t, live.Runtime, "go_version")
}

func TestHealthService_Readiness(t *testing.T) {
	loadedAt := time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		status  DatasetStatus
		want    string
		message string
	}{
		{
			name:    "loaded",
			status:  DatasetStatus{Loaded: true, Source: "sqlite", LoadedAt: &loadedAt},
			want:    "ready",
			message: "dataset loaded from sqlite",
		},
		{
			name:    "not loaded",
			status:  DatasetStatus{Source: "file"},
			want:    "not_ready",
			message: "dataset not loaded",
		},
		{
			name:    "failed load",
			status:  DatasetStatus{Source: "file", LastError: "no such file"},
			want:    "not_ready",
			message: "dataset not loaded: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &mockDatasetStatus{}
			ds.On("Status", mock.Anything).Return(tt.status)

			hs := NewHealthService("dev", "", ds, fixedClients(2), quietLogger())
			got := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.want, got.Status)
			dataset, ok := got.Services["dataset"].(ServiceHealth)
			require.True(t, ok)
			assert.Equal(t, tt.message, dataset.Message)
			ds.AssertExpectations(t)
		})
	}
}

func TestHealthService_ReadinessWithoutDataset(t *testing.T) {
	hs := NewHealthService("dev", "", nil, nil, quietLogger())
	got := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", got.Status)
}

func TestHealthService_ReadinessWithDashboard(t *testing.T) {
	svc := loadedService(t)
	hs := NewHealthService("dev", "", svc, fixedClients(0), quietLogger())
	assert.Equal(t, "ready", hs.ReadinessCheck(context.Background()).Status)
}

func TestHealthService_Version(t *testing.T) {
	v := NewHealthService("1.2.0", "2026-01-01T00:00:00Z", nil, nil, quietLogger()).Version()
	assert.Equal(t, "1.2.0", v["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", v["build_time"])
	assert.Contains(t, v, "go_version")

	v = NewHealthService("dev", "", nil, nil, quietLogger()).Version()
	assert.NotContains(t, v, "build_time")
}
