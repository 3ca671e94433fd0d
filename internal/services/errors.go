package services

import (
	"errors"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/analytics"
)

// Dashboard service errors. The analytics sentinels are re-exported so
// handlers only depend on this package.
var (
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrReloadInProgress = errors.New("dataset reload already in progress")

	ErrNoData           = analytics.ErrNoData
	ErrInvalidDimension = analytics.ErrInvalidDimension
	ErrInvalidMetric    = analytics.ErrInvalidMetric
	ErrYearNotAvailable = analytics.ErrYearNotAvailable
	ErrInvalidYearRange = analytics.ErrInvalidYearRange
)
