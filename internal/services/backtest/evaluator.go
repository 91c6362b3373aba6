package backtest

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
)

const DefaultAnnualization = 252

var (
	ErrNoReturns      = errs.Backtest("ERR_NO_RETURNS", "no returns to evaluate")
	ErrLengthMismatch = errs.Backtest("ERR_LENGTH_MISMATCH", "signal and returns differ in length")
	ErrInvalidReturn  = errs.Backtest("ERR_INVALID_RETURN", "non-finite return")
	ErrAnnualization  = errs.Backtest("ERR_ANNUALIZATION", "annualization factor must be positive")
)

// Evaluator scores long/flat signals with a fixed annualization factor.
type Evaluator struct {
	annualization float64
}

// NewEvaluator returns an Evaluator; a non-positive factor falls back to
// DefaultAnnualization.
func NewEvaluator(annualization float64) *Evaluator {
	if annualization <= 0 {
		annualization = DefaultAnnualization
	}
	return &Evaluator{annualization: annualization}
}

func (e *Evaluator) Evaluate(signal []int, returns []float64) (*models.PerformanceReport, error) {
	return Evaluate(signal, returns, e.annualization)
}

// Evaluate compares the lagged signal against buy-and-hold.
func Evaluate(signal []int, returns []float64, annualization float64) (*models.PerformanceReport, error) {
	if annualization <= 0 || math.IsNaN(annualization) || math.IsInf(annualization, 0) {
		return nil, fmt.Errorf("%w: %v", ErrAnnualization, annualization)
	}
	if len(returns) == 0 {
		return nil, ErrNoReturns
	}
	if len(signal) != len(returns) {
		return nil, fmt.Errorf("%w: %d signals, %d returns", ErrLengthMismatch, len(signal), len(returns))
	}
	for t, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidReturn, t)
		}
	}

	strategy := StrategyReturns(signal, returns)
	return &models.PerformanceReport{
		Samples:   len(returns),
		Generated: time.Now().UTC(),
		Metrics: []models.Metric{
			{Name: models.MetricBenchmarkSharpe, Value: Sharpe(returns, annualization)},
			{Name: models.MetricStrategySharpe, Value: Sharpe(strategy, annualization)},
			{Name: models.MetricBenchmarkCAGR, Value: CAGR(returns, annualization)},
			{Name: models.MetricStrategyCAGR, Value: CAGR(strategy, annualization)},
			{Name: models.MetricBenchmarkTotalReturn, Value: TotalReturn(returns)},
			{Name: models.MetricStrategyTotalReturn, Value: TotalReturn(strategy)},
		},
	}, nil
}

// StrategyReturns applies yesterday's binarized signal to today's return.
// The first step is always out of the market.
func StrategyReturns(signal []int, returns []float64) []float64 {
	out := make([]float64, len(returns))
	for t := 1; t < len(returns); t++ {
		if signal[t-1] > 0 {
			out[t] = returns[t]
		}
	}
	return out
}

// Sharpe is the annualized mean over sample standard deviation. It is NaN
// for fewer than two samples or zero dispersion.
func Sharpe(xs []float64, annualization float64) float64 {
	if len(xs) < 2 || constant(xs) {
		return math.NaN()
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if std == 0 {
		return math.NaN()
	}
	return mean / std * math.Sqrt(annualization)
}

// TotalReturn compounds log returns.
func TotalReturn(xs []float64) float64 {
	return math.Exp(floats.Sum(xs)) - 1
}

// CAGR annualizes compounded log returns over len(xs)/annualization years.
func CAGR(xs []float64, annualization float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	years := float64(len(xs)) / annualization
	if years <= 0 {
		return math.NaN()
	}
	return math.Pow(math.Exp(floats.Sum(xs)), 1/years) - 1
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
