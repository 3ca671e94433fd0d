package http

import (
	"errors"
	"net/http"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/services"
)

// mapServiceError converts service sentinels to API errors. Unknown errors
// pass through and become 500s in the error handler.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		return apierrors.New(http.StatusServiceUnavailable, apierrors.CodeDatasetNotLoaded,
			"The trade dataset has not been loaded yet")
	case errors.Is(err, services.ErrNoData):
		return apierrors.New(http.StatusNotFound, apierrors.CodeNoData,
			"No records match the selected filters")
	case errors.Is(err, services.ErrYearNotAvailable):
		return apierrors.New(http.StatusNotFound, apierrors.CodeYearNotAvailable, err.Error())
	case errors.Is(err, services.ErrInvalidYearRange),
		errors.Is(err, services.ErrInvalidDimension),
		errors.Is(err, services.ErrInvalidMetric):
		return apierrors.NewWithDetails(http.StatusBadRequest, apierrors.CodeInvalidRequest,
			"Invalid request parameters", err.Error())
	case errors.Is(err, services.ErrReloadInProgress):
		return apierrors.New(http.StatusConflict, apierrors.CodeReloadInProgress,
			"A dataset reload is already running")
	}
	return err
}
