package models

// CovarianceKind selects the emission covariance structure of a regime model.
type CovarianceKind string

const (
	CovarianceFull     CovarianceKind = "full"
	CovarianceDiagonal CovarianceKind = "diagonal"
)

// RegimeFitOptions controls regime model estimation.
type RegimeFitOptions struct {
	K          int
	Covariance CovarianceKind
	MaxIter    int     // 0 means the engine default
	Seed       int64   // initialization seed
	Tolerance  float64 // minimum log-likelihood improvement; 0 means the engine default

	// OnIteration, when set, observes the log-likelihood evaluated at the
	// start of each accepted EM iteration.
	OnIteration func(iter int, logLik float64)
}

// RegimeModel is a fitted, immutable regime model.
type RegimeModel interface {
	K() int
	Dim() int
	Converged() bool
	Iterations() int
	LogLikelihood() float64
}

// RegimeDecoding holds the per-timestep regime assignment of a sequence.
type RegimeDecoding struct {
	States        []int       // most likely path, each in [0, K)
	Posteriors    [][]float64 // T×K smoothed state probabilities
	LogLikelihood float64
}

// StateProbabilities returns the posterior probability of state k at
// every timestep.
func (d *RegimeDecoding) StateProbabilities(k int) []float64 {
	out := make([]float64, len(d.Posteriors))
	for t, row := range d.Posteriors {
		if k >= 0 && k < len(row) {
			out[t] = row[k]
		}
	}
	return out
}
