package service

import "RegimeModel/internal/domain/models"

// RegimeEngine fits a hidden Markov model and decodes regimes with it.
type RegimeEngine interface {
	Fit(obs []models.Observation, opts models.RegimeFitOptions) (models.RegimeModel, error)
	Decode(m models.RegimeModel, obs []models.Observation) (*models.RegimeDecoding, error)
}

// SignalGenerator maps regimes and trend confirmation to a tradable signal.
type SignalGenerator interface {
	Generate(regimes []int, returns []float64, trend []bool) (*models.Signals, error)
}

// BacktestEvaluator scores a signal against buy-and-hold.
type BacktestEvaluator interface {
	Evaluate(signal []int, returns []float64) (*models.PerformanceReport, error)
}
