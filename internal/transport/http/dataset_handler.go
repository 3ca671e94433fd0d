package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

// DatasetHandler exposes the dataset status and manual reloads
type DatasetHandler struct {
	service      DatasetServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetStatus)
	r.Post("/reload", h.Reload)
	return r
}

// GetStatus handles GET /api/dataset
func (h *DatasetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status(r.Context())
	success(w, r, st, st.Rows)
}

// Reload handles POST /api/dataset/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "dataset reload requested", slog.String("request_id", reqID))

	st, err := h.service.Reload(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrReloadInProgress) {
			h.errorHandler.HandleError(w, r, mapServiceError(err))
			return
		}
		h.logger.ErrorContext(r.Context(), "dataset reload failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadGateway,
			apierrors.CodeServiceUnavailable,
			"Dataset reload failed; the previous dataset is still served",
			st,
		))
		return
	}
	success(w, r, st, st.Rows)
}
