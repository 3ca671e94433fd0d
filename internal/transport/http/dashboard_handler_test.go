package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

func serveDashboard(m *MockDashboardService, target string) *httptest.ResponseRecorder {
	handler := NewDashboardHandler(m, testLogger(), testErrorHandler())
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func TestDashboardHandler_GetTop(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockDashboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "binds the query string",
			target: "/top?flow=import&year=2023,2024&by=country&n=5&others=true",
			setupMock: func(m *MockDashboardService) {
				q := services.Query{Flow: "import", Years: []int{2023, 2024}, Dimension: "country", N: 5, Others: true}
				m.On("Top", mock.Anything, q).Return([]analytics.Group{{Key: "China", Label: "China", FOB: 10}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":1`,
		},
		{
			name:   "repeated parameters",
			target: "/top?year=2023&year=2024&uf=SC",
			setupMock: func(m *MockDashboardService) {
				q := services.Query{Years: []int{2023, 2024}, UFs: []string{"SC"}}
				m.On("Top", mock.Anything, q).Return([]analytics.Group{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:   "country names keep their commas",
			target: "/top?country=Virgens%2C+Ilhas+(Brit%C3%A2nicas)&country=China",
			setupMock: func(m *MockDashboardService) {
				q := services.Query{Countries: []string{"Virgens, Ilhas (Britânicas)", "China"}}
				m.On("Top", mock.Anything, q).Return([]analytics.Group{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:   "no data",
			target: "/top?year=1999",
			setupMock: func(m *MockDashboardService) {
				m.On("Top", mock.Anything, mock.Anything).Return(nil, services.ErrNoData)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"NO_DATA"`,
		},
		{
			name:   "dataset not loaded",
			target: "/top",
			setupMock: func(m *MockDashboardService) {
				m.On("Top", mock.Anything, mock.Anything).Return(nil, services.ErrDatasetNotLoaded)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"DATASET_NOT_LOADED"`,
		},
		{
			name:   "internal error",
			target: "/top",
			setupMock: func(m *MockDashboardService) {
				m.On("Top", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Internal Server Error"`,
		},
		{
			name:           "n above limit",
			target:         "/top?n=1000",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"VALIDATION_FAILED"`,
		},
		{
			name:           "unknown flow",
			target:         "/top?flow=transit",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `flow must be one of: export, import`,
		},
		{
			name:           "bad uf",
			target:         "/top?uf=S1",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `two-letter state code`,
		},
		{
			name:           "non numeric year",
			target:         "/top?year=abc",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `must be a list of integers`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockDashboardService)
			tt.setupMock(m)

			rec := serveDashboard(m, tt.target)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			m.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Views(t *testing.T) {
	tests := []struct {
		target string
		method string
		ret    interface{}
		count  string
	}{
		{"/summary", "Summary", analytics.Summary{Records: 3, FOB: 4500}, `"count":3`},
		{"/monthly", "Monthly", []analytics.Point{{Year: 2024, Month: 1}}, `"count":1`},
		{"/yoy?base=2023&compare=2024", "YoY", analytics.YoYResult{Rows: []analytics.YoYRow{{Key: "a"}, {Key: "b"}}}, `"count":2`},
		{"/treemap?levels=country,product", "Treemap", analytics.TreemapNode{Key: "total", Children: []analytics.TreemapNode{{Key: "China"}}}, `"count":1`},
		{"/balance", "Balance", []analytics.BalancePoint{{Year: 2023}, {Year: 2024}}, `"count":2`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m := new(MockDashboardService)
			m.On(tt.method, mock.Anything, mock.AnythingOfType("services.Query")).Return(tt.ret, nil)

			rec := serveDashboard(m, tt.target)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.count)
			m.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_YoYErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: 2030", services.ErrYearNotAvailable), http.StatusNotFound, "YEAR_NOT_AVAILABLE"},
		{fmt.Errorf("%w: base 2024 >= compare 2023", services.ErrInvalidYearRange), http.StatusBadRequest, "INVALID_REQUEST"},
		{fmt.Errorf("%w: cannot compare years by year", services.ErrInvalidDimension), http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			m := new(MockDashboardService)
			m.On("YoY", mock.Anything, mock.Anything).Return(analytics.YoYResult{}, tt.err)

			rec := serveDashboard(m, "/yoy")

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestDashboardHandler_GetFilters(t *testing.T) {
	m := new(MockDashboardService)
	m.On("Filters", mock.Anything).Return(services.FilterOptions{
		Flows: []services.FlowOptions{{Flow: "export", Years: []int{2024}}},
	}, nil)

	rec := serveDashboard(m, "/filters")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"years":[2024]`)
}

func TestDashboardHandler_Charts(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	m := new(MockDashboardService)
	m.On("TopChart", mock.Anything, mock.Anything).Return(png, nil)
	m.On("MonthlyChart", mock.Anything, mock.Anything).Return(nil, services.ErrNoData)

	rec := serveDashboard(m, "/charts/top.png?by=country")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = serveDashboard(m, "/charts/monthly.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_DATA")
}

func TestDashboardHandler_Exports(t *testing.T) {
	t.Run("top csv", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportTop", mock.Anything, mock.Anything, mock.Anything).
			Run(writeBody("rank,key\n1,China\n")).Return(1, nil)

		rec := serveDashboard(m, "/export/top.csv?by=country")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "balanca-sc-top-export.csv")
		assert.Equal(t, "rank,key\n1,China\n", rec.Body.String())
	})

	t.Run("records csv without flow", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportRecords", mock.Anything, services.Query{}, mock.Anything).
			Run(writeBody("flow\n")).Return(0, nil)

		rec := serveDashboard(m, "/export/records.csv")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "balanca-sc-registros-todos.csv")
	})

	t.Run("yoy csv", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportYoY", mock.Anything, services.Query{BaseYear: 2023, CompareYear: 2024}, mock.Anything).
			Run(writeBody("chave\n")).Return(1, nil)

		rec := serveDashboard(m, "/export/yoy.csv?base=2023&compare=2024")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "balanca-sc-comparativo-export.csv")
		m.AssertExpectations(t)
	})

	t.Run("workbook", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportWorkbook", mock.Anything, services.Query{Flow: "import"}, mock.Anything).
			Run(writeBody("PK")).Return(nil)

		rec := serveDashboard(m, "/export/yoy.xlsx?flow=import")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "balanca-sc-comparativo-import.xlsx")
	})

	t.Run("error before output", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportTop", mock.Anything, mock.Anything, mock.Anything).Return(0, services.ErrNoData)

		rec := serveDashboard(m, "/export/top.csv")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
		assert.Contains(t, rec.Body.String(), "NO_DATA")
	})

	t.Run("error after output keeps the stream", func(t *testing.T) {
		m := new(MockDashboardService)
		m.On("ExportRecords", mock.Anything, mock.Anything, mock.Anything).
			Run(writeBody("partial")).Return(10, errors.New("client gone"))

		rec := serveDashboard(m, "/export/records.csv")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
	})
}
