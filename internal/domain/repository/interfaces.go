package repository

import (
	"context"

	"RegimeModel/internal/domain/models"
)

// ReportPublisher ships a finished performance report downstream.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.PerformanceReport) error
}

type Metrics interface {
	RecordStage(stage string, seconds float64, err error)
	RecordFit(iterations int, logLikelihood float64, converged bool)
	RecordSamples(stage string, n int)
	RecordReport(r *models.PerformanceReport)
}
