package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
)

var (
	ErrEmptySeries   = errs.Feature("ERR_EMPTY_SERIES", "empty price series")
	ErrInvalidClose  = errs.Feature("ERR_INVALID_CLOSE", "invalid close price")
	ErrUnordered     = errs.Feature("ERR_UNORDERED_DATES", "dates are not strictly ascending")
	ErrInvalidWindow = errs.Feature("ERR_INVALID_WINDOW", "invalid window")
	ErrNoRows        = errs.Feature("ERR_NO_ROWS", "no rows survive warm-up")
)

// Options sets the rolling windows. A zero moving-average window disables
// trend features.
type Options struct {
	VolatilityWindow int
	MAFast           int
	MASlow           int
}

// DefaultOptions returns a 20-day volatility window and 9/21-day averages.
func DefaultOptions() Options {
	return Options{VolatilityWindow: 20, MAFast: 9, MASlow: 21}
}

// TrendEnabled reports whether both moving averages are configured.
func (o Options) TrendEnabled() bool { return o.MAFast > 0 && o.MASlow > 0 }

func (o Options) validate() error {
	if o.VolatilityWindow < 2 {
		return fmt.Errorf("%w: volatility window %d, need at least 2", ErrInvalidWindow, o.VolatilityWindow)
	}
	if o.MAFast < 0 || o.MASlow < 0 {
		return fmt.Errorf("%w: negative moving-average window", ErrInvalidWindow)
	}
	return nil
}

// Build derives one feature row per bar and drops the warm-up rows where
// any feature is undefined.
func Build(bars []models.Bar, opts Options) ([]models.FeatureRow, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return nil, fmt.Errorf("%w: %v on %s", ErrInvalidClose, b.Close, b.Date.Format("2006-01-02"))
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%w: %s follows %s", ErrUnordered, b.Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))
		}
		closes[i] = b.Close
	}

	returns := ComputeLogReturns(closes)
	trend := opts.TrendEnabled()

	// Bar i has a return when i >= 1, a volatility when W returns end at
	// it, and moving averages once enough closes precede it.
	first := opts.VolatilityWindow
	if trend {
		first = max(first, opts.MAFast-1, opts.MASlow-1)
	}
	if first >= len(bars) {
		return nil, fmt.Errorf("%w: %d bars, first usable index %d", ErrNoRows, len(bars), first)
	}

	rows := make([]models.FeatureRow, 0, len(bars)-first)
	for i := first; i < len(bars); i++ {
		row := models.FeatureRow{
			Date:       bars[i].Date,
			Close:      closes[i],
			LogReturn:  returns[i-1],
			Volatility: RollingVolatility(returns[:i], opts.VolatilityWindow),
			MAFast:     math.NaN(),
			MASlow:     math.NaN(),
			HasTrend:   trend,
		}
		if trend {
			row.MAFast = SimpleMovingAverage(closes[:i+1], opts.MAFast)
			row.MASlow = SimpleMovingAverage(closes[:i+1], opts.MASlow)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}). The result has one
// element fewer than closes.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// RollingVolatility returns the sample standard deviation of the last
// window values, or NaN when fewer are available.
func RollingVolatility(returns []float64, window int) float64 {
	if window < 2 || len(returns) < window {
		return math.NaN()
	}
	return stat.StdDev(returns[len(returns)-window:], nil)
}

// SimpleMovingAverage averages the last window values.
func SimpleMovingAverage(xs []float64, window int) float64 {
	if window <= 0 || len(xs) < window {
		return math.NaN()
	}
	return stat.Mean(xs[len(xs)-window:], nil)
}

// Observations projects rows onto [LogReturn, Volatility] vectors.
func Observations(rows []models.FeatureRow) []models.Observation {
	out := make([]models.Observation, len(rows))
	for i, r := range rows {
		out[i] = r.Observation()
	}
	return out
}

// Returns extracts the log-return column.
func Returns(rows []models.FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.LogReturn
	}
	return out
}

// Trend reports fast MA above slow MA per row, or nil when the rows carry
// no trend features.
func Trend(rows []models.FeatureRow) []bool {
	if len(rows) == 0 || !rows[0].HasTrend {
		return nil
	}
	out := make([]bool, len(rows))
	for i, r := range rows {
		out[i] = r.MAFast > r.MASlow
	}
	return out
}
