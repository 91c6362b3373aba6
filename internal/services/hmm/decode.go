package hmm

import (
	"fmt"
	"math"

	"RegimeModel/internal/domain/models"
)

// Decoding carries the Viterbi path and smoothed posteriors.
type Decoding = models.RegimeDecoding

// Decode computes posteriors and the most likely state path of obs under
// the frozen model m.
func Decode(m *FittedModel, obs []models.Observation) (*Decoding, error) {
	if m == nil || m.params == nil {
		return nil, fmt.Errorf("%w: model is not fitted", ErrInvalidParameter)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observations to decode", ErrInsufficientData)
	}
	xs, err := toVectors(obs, m.params.Dim())
	if err != nil {
		return nil, err
	}
	logB, err := logEmissions(m.params, xs)
	if err != nil {
		return nil, err
	}
	post, err := forwardBackward(m.params, logB, false)
	if err != nil {
		return nil, err
	}
	return &Decoding{
		States:        viterbi(m.params, logB),
		Posteriors:    post.gamma,
		LogLikelihood: post.logLik,
	}, nil
}

// viterbi runs in log space with explicit backpointers. Ties resolve to
// the lowest state index.
func viterbi(p *Params, logB [][]float64) []int {
	T, k := len(logB), p.K()
	logA := matrix(k, k)
	for j := 0; j < k; j++ {
		for s := 0; s < k; s++ {
			logA[j][s] = math.Log(p.Trans.At(j, s))
		}
	}

	delta := matrix(T, k)
	back := make([][]int, T)
	for s := 0; s < k; s++ {
		delta[0][s] = math.Log(p.Pi[s]) + logB[0][s]
	}
	for t := 1; t < T; t++ {
		back[t] = make([]int, k)
		for s := 0; s < k; s++ {
			best, arg := math.Inf(-1), 0
			for j := 0; j < k; j++ {
				if v := delta[t-1][j] + logA[j][s]; v > best {
					best, arg = v, j
				}
			}
			delta[t][s] = best + logB[t][s]
			back[t][s] = arg
		}
	}

	path := make([]int, T)
	best := math.Inf(-1)
	for s := 0; s < k; s++ {
		if delta[T-1][s] > best {
			best, path[T-1] = delta[T-1][s], s
		}
	}
	for t := T - 1; t > 0; t-- {
		path[t-1] = back[t][path[t]]
	}
	return path
}
