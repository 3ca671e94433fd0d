package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/middleware"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

type contextKey string

const queryKey contextKey = "dashboard_query"

// DashboardHandler serves the aggregated views, charts and exports
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    middleware.NewQueryValidator(),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.QueryCtx)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/filters", h.GetFilters)
		r.Get("/summary", h.GetSummary)
		r.Get("/top", h.GetTop)
		r.Get("/monthly", h.GetMonthly)
		r.Get("/yoy", h.GetYoY)
		r.Get("/treemap", h.GetTreemap)
		r.Get("/balance", h.GetBalance)
	})

	r.Get("/charts/top.png", h.GetTopChart)
	r.Get("/charts/monthly.png", h.GetMonthlyChart)

	r.Get("/export/records.csv", h.ExportRecords)
	r.Get("/export/top.csv", h.ExportTop)
	r.Get("/export/yoy.csv", h.ExportYoY)
	r.Get("/export/yoy.xlsx", h.ExportWorkbook)

	return r
}

// QueryCtx binds and validates the query string into a services.Query
func (h *DashboardHandler) QueryCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q services.Query
		if err := h.validator.Bind(r, &q); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), queryKey, q)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func queryFrom(r *http.Request) services.Query {
	q, _ := r.Context().Value(queryKey).(services.Query)
	return q
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.DebugContext(r.Context(), op+" failed",
		slog.String("error", err.Error()),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
	h.errorHandler.HandleError(w, r, mapServiceError(err))
}

func success(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}

// GetFilters handles GET /api/dashboard/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Filters(r.Context())
	if err != nil {
		h.fail(w, r, "filters", err)
		return
	}
	success(w, r, opts, len(opts.Flows))
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "summary", err)
		return
	}
	success(w, r, sum, sum.Records)
}

// GetTop handles GET /api/dashboard/top
func (h *DashboardHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Top(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "top", err)
		return
	}
	success(w, r, groups, len(groups))
}

// GetMonthly handles GET /api/dashboard/monthly
func (h *DashboardHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.Monthly(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "monthly", err)
		return
	}
	success(w, r, points, len(points))
}

// GetYoY handles GET /api/dashboard/yoy
func (h *DashboardHandler) GetYoY(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.YoY(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "yoy", err)
		return
	}
	success(w, r, res, len(res.Rows))
}

// GetTreemap handles GET /api/dashboard/treemap
func (h *DashboardHandler) GetTreemap(w http.ResponseWriter, r *http.Request) {
	root, err := h.service.Treemap(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "treemap", err)
		return
	}
	success(w, r, root, len(root.Children))
}

// GetBalance handles GET /api/dashboard/balance
func (h *DashboardHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.Balance(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "balance", err)
		return
	}
	success(w, r, points, len(points))
}

// GetTopChart handles GET /api/dashboard/charts/top.png
func (h *DashboardHandler) GetTopChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.TopChart(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "top chart", err)
		return
	}
	writePNG(w, png)
}

// GetMonthlyChart handles GET /api/dashboard/charts/monthly.png
func (h *DashboardHandler) GetMonthlyChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.MonthlyChart(r.Context(), queryFrom(r))
	if err != nil {
		h.fail(w, r, "monthly chart", err)
		return
	}
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ExportRecords handles GET /api/dashboard/export/records.csv
func (h *DashboardHandler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	aw := newAttachment(w, contentTypeCSV, exportName("registros", q.Flow, "csv"))

	n, err := h.service.ExportRecords(r.Context(), q, aw)
	h.finishExport(aw, r, "records export", n, err)
}

// ExportTop handles GET /api/dashboard/export/top.csv
func (h *DashboardHandler) ExportTop(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	aw := newAttachment(w, contentTypeCSV, exportName("top", flowOrDefault(q.Flow), "csv"))

	n, err := h.service.ExportTop(r.Context(), q, aw)
	h.finishExport(aw, r, "top export", n, err)
}

// ExportYoY handles GET /api/dashboard/export/yoy.csv
func (h *DashboardHandler) ExportYoY(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	aw := newAttachment(w, contentTypeCSV, exportName("comparativo", flowOrDefault(q.Flow), "csv"))

	n, err := h.service.ExportYoY(r.Context(), q, aw)
	h.finishExport(aw, r, "yoy export", n, err)
}

// ExportWorkbook handles GET /api/dashboard/export/yoy.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	aw := newAttachment(w, contentTypeXLSX, exportName("comparativo", flowOrDefault(q.Flow), "xlsx"))

	err := h.service.ExportWorkbook(r.Context(), q, aw)
	h.finishExport(aw, r, "workbook export", -1, err)
}

func (h *DashboardHandler) finishExport(aw *attachmentWriter, r *http.Request, op string, rows int, err error) {
	if err == nil {
		h.logger.InfoContext(r.Context(), op+" completed",
			slog.Int("rows", rows),
			slog.Int64("bytes", aw.written),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
		return
	}
	if !aw.started {
		h.fail(aw.ResponseWriter, r, op, err)
		return
	}
	// Headers are gone; the client sees a truncated file.
	h.logger.ErrorContext(r.Context(), op+" aborted mid-stream",
		slog.String("error", err.Error()),
		slog.Int64("bytes", aw.written),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
}

func flowOrDefault(flow string) string {
	if flow == "" {
		return "export"
	}
	return flow
}

func exportName(kind, flow, ext string) string {
	if flow == "" {
		flow = "todos"
	}
	return fmt.Sprintf("balanca-sc-%s-%s.%s", kind, flow, ext)
}
