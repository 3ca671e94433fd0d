package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), includeStack)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "validation api error",
			err:        NewValidationErrors([]ValidationError{{Field: "n", Message: "must be at most 100"}}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   CodeValidationFailed,
		},
		{
			name:       "dataset not loaded",
			err:        New(http.StatusServiceUnavailable, CodeDatasetNotLoaded, "dataset not loaded"),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDataNotReady,
			wantCode:   CodeDatasetNotLoaded,
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("handler: %w", New(http.StatusNotFound, CodeYearNotAvailable, "year 1990 not in dataset")),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotFound,
			wantCode:   CodeYearNotAvailable,
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("missing column vl_fob", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDataInvalid,
			wantCode:   string(ErrTypeParsing),
		},
		{
			name:       "storage app error hides detail",
			err:        NewStorageError("insert failed", fmt.Errorf("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantCode:   string(ErrTypeStorage),
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("something broke"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(false)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/dashboard/summary", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestErrorHandler_ValidationErrorsExtension(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/top", nil)

	newTestHandler(false).HandleError(rec, req, NewValidationErrors([]ValidationError{
		{Field: "metric", Message: "must be one of [fob weight]"},
	}))

	var body struct {
		Errors []ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "metric", body.Errors[0].Field)
}

func TestErrorHandler_StackOnlyForServerErrors(t *testing.T) {
	h := newTestHandler(true)

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
	assert.Contains(t, rec.Body.String(), "stack")

	rec = httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), ErrNotFound)
	assert.NotContains(t, rec.Body.String(), "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(true).HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/x", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "kaboom")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	h := newTestHandler(false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("bad float")
	err := NewParsingError("row 3", cause).WithContext("file", "EXP_2024.csv")

	assert.Equal(t, "[PARSING] row 3: bad float", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "EXP_2024.csv", err.Context["file"])

	assert.Equal(t, "[CONFIG] unknown data source", NewConfigError("unknown data source", nil).Error())
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad", "", "").
		WithExtension("status", 999).
		WithExtension("hint", "check n")

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, float64(400), body["status"], "standard members win over extensions")
	assert.Equal(t, "check n", body["hint"])
	assert.NotContains(t, body, "detail")
}
