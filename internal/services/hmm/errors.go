package hmm

import "RegimeModel/internal/domain/errs"

var (
	// ErrInsufficientData is returned when there are fewer than K+1 observations.
	ErrInsufficientData = errs.Model("ERR_INSUFFICIENT_DATA", "insufficient data")
	// ErrInvalidParameter is returned for K < 2, non-finite inputs or malformed parameters.
	ErrInvalidParameter = errs.Model("ERR_INVALID_PARAMETER", "invalid parameter")
	// ErrDegenerateCovariance is returned when a state covariance cannot be kept positive-definite.
	ErrDegenerateCovariance = errs.Model("ERR_DEGENERATE_COVARIANCE", "degenerate covariance")
	// ErrDimensionMismatch is returned when observation dimensionality disagrees with the model.
	ErrDimensionMismatch = errs.Model("ERR_DIMENSION_MISMATCH", "dimension mismatch")
)
