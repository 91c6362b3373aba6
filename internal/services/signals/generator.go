package signals

import (
	"fmt"
	"math"
	"sort"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
)

var (
	ErrInsufficientRegimes = errs.Signal("ERR_INSUFFICIENT_REGIMES", "need at least 2 distinct regimes")
	ErrLengthMismatch      = errs.Signal("ERR_LENGTH_MISMATCH", "input lengths differ")
	ErrInvalidReturn       = errs.Signal("ERR_INVALID_RETURN", "non-finite return")
)

// Generator implements the regime-and-trend signal.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

func (Generator) Generate(regimes []int, returns []float64, trend []bool) (*models.Signals, error) {
	return Generate(regimes, returns, trend)
}

// Generate marks the top half of regimes by mean return as favorable
// and confirms them with the trend flag. A nil trend always confirms.
func Generate(regimes []int, returns []float64, trend []bool) (*models.Signals, error) {
	if len(regimes) != len(returns) {
		return nil, fmt.Errorf("%w: %d regimes, %d returns", ErrLengthMismatch, len(regimes), len(returns))
	}
	if trend != nil && len(trend) != len(regimes) {
		return nil, fmt.Errorf("%w: %d regimes, %d trend flags", ErrLengthMismatch, len(regimes), len(trend))
	}

	ranking, err := RankRegimes(regimes, returns)
	if err != nil {
		return nil, err
	}
	topK := max(1, len(ranking)/2)

	favorable := make(map[int]bool, topK)
	out := &models.Signals{
		Regime:    make([]int, len(regimes)),
		Trend:     make([]int, len(regimes)),
		Main:      make([]int, len(regimes)),
		Favorable: make([]int, 0, topK),
	}
	for i := range ranking {
		if i < topK {
			ranking[i].Favorable = true
			favorable[ranking[i].Regime] = true
			out.Favorable = append(out.Favorable, ranking[i].Regime)
		}
	}
	out.Ranking = ranking

	for t, r := range regimes {
		if favorable[r] {
			out.Regime[t] = 1
		}
		if trend == nil || trend[t] {
			out.Trend[t] = 1
		}
		out.Main[t] = out.Regime[t] & out.Trend[t]
	}
	return out, nil
}

// RankRegimes returns per-regime statistics ordered by mean return,
// highest first. Equal means keep the lower label first.
func RankRegimes(regimes []int, returns []float64) ([]models.RegimeStat, error) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for t, r := range regimes {
		if math.IsNaN(returns[t]) || math.IsInf(returns[t], 0) {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidReturn, t)
		}
		sums[r] += returns[t]
		counts[r]++
	}
	if len(counts) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInsufficientRegimes, len(counts))
	}

	out := make([]models.RegimeStat, 0, len(counts))
	for r, n := range counts {
		out = append(out, models.RegimeStat{Regime: r, Count: n, MeanReturn: sums[r] / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanReturn != out[j].MeanReturn {
			return out[i].MeanReturn > out[j].MeanReturn
		}
		return out[i].Regime < out[j].Regime
	})
	return out, nil
}
