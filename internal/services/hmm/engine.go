package hmm

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"RegimeModel/internal/domain/models"
	"RegimeModel/internal/domain/repository"
	"RegimeModel/pkg/logger"
)

// Engine runs Fit and Decode with logging and metrics.
type Engine struct {
	l       *logger.Logger
	metrics repository.Metrics
}

// NewEngine builds an Engine. metrics may be nil.
func NewEngine(l *logger.Logger, metrics repository.Metrics) *Engine {
	if l == nil {
		l = logger.Nop()
	}
	return &Engine{l: l, metrics: metrics}
}

// Fit estimates a model and returns it as a *FittedModel.
func (e *Engine) Fit(obs []models.Observation, opts FitOptions) (models.RegimeModel, error) {
	start := time.Now()
	e.l.Info("Fitting regime model",
		logger.Int("n_states", opts.K),
		logger.String("covariance", string(opts.Covariance)),
		logger.Int("samples", len(obs)),
		logger.Int("max_iter", opts.MaxIter),
	)
	if opts.OnIteration == nil {
		opts.OnIteration = func(iter int, ll float64) {
			e.l.Debug("EM iteration", logger.Int("iter", iter), logger.Float64("log_likelihood", ll))
		}
	}

	m, err := Fit(obs, opts)
	if err != nil {
		e.l.Error("Regime model fit failed", logger.Error(err))
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordFit(m.Iterations(), m.LogLikelihood(), m.Converged())
	}
	e.l.Info("Regime model fitted",
		logger.Int("iterations", m.Iterations()),
		logger.Float64("log_likelihood", m.LogLikelihood()),
		logger.Bool("converged", m.Converged()),
		logger.Duration("took", time.Since(start)),
	)
	return m, nil
}

// Decode accepts only models produced by this package.
func (e *Engine) Decode(rm models.RegimeModel, obs []models.Observation) (*Decoding, error) {
	m, ok := rm.(*FittedModel)
	if !ok {
		err := fmt.Errorf("%w: model of type %T was not fitted by this engine", ErrInvalidParameter, rm)
		e.l.Error("Regime decode failed", logger.Error(err))
		return nil, err
	}
	d, err := Decode(m, obs)
	if err != nil {
		e.l.Error("Regime decode failed", logger.Error(err))
		return nil, err
	}

	counts := make([]int, m.K())
	for _, s := range d.States {
		counts[s]++
	}
	for k := range counts {
		e.l.Info("Regime summary",
			logger.Int("regime", k),
			logger.Int("days", counts[k]),
			logger.Float64("mean_prob", stat.Mean(d.StateProbabilities(k), nil)),
		)
	}
	return d, nil
}

