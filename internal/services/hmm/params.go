package hmm

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"RegimeModel/internal/domain/models"
)

type CovarianceKind = models.CovarianceKind

const (
	CovarianceFull     = models.CovarianceFull
	CovarianceDiagonal = models.CovarianceDiagonal
)

// ParseCovarianceKind accepts "full", "diag" and "diagonal".
func ParseCovarianceKind(s string) (CovarianceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return CovarianceFull, nil
	case "diag", "diagonal":
		return CovarianceDiagonal, nil
	default:
		return "", fmt.Errorf("%w: unknown covariance kind %q", ErrInvalidParameter, s)
	}
}

const stochasticTolerance = 1e-9

// Params is one snapshot of Gaussian HMM parameters.
type Params struct {
	Kind  CovarianceKind
	Pi    []float64       // initial state distribution, length K
	Trans *mat.Dense      // K×K row-stochastic transition matrix
	Means []*mat.VecDense // per-state mean, length Dim
	Covs  []*mat.SymDense // per-state covariance, Dim×Dim, SPD
}

// K returns the number of hidden states.
func (p *Params) K() int { return len(p.Pi) }

// Dim returns the observation dimensionality.
func (p *Params) Dim() int {
	if len(p.Means) == 0 {
		return 0
	}
	return p.Means[0].Len()
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	out := &Params{
		Kind:  p.Kind,
		Pi:    append([]float64(nil), p.Pi...),
		Trans: mat.DenseCopyOf(p.Trans),
		Means: make([]*mat.VecDense, len(p.Means)),
		Covs:  make([]*mat.SymDense, len(p.Covs)),
	}
	for k := range p.Means {
		out.Means[k] = mat.VecDenseCopyOf(p.Means[k])
	}
	for k := range p.Covs {
		c := mat.NewSymDense(p.Covs[k].SymmetricDim(), nil)
		c.CopySym(p.Covs[k])
		out.Covs[k] = c
	}
	return out
}

// Validate checks shapes, stochasticity and positive-definiteness.
func (p *Params) Validate() error {
	k := p.K()
	if k < 2 {
		return fmt.Errorf("%w: need at least 2 states, got %d", ErrInvalidParameter, k)
	}
	if p.Trans == nil || len(p.Means) != k || len(p.Covs) != k {
		return fmt.Errorf("%w: parameter shapes disagree with K=%d", ErrInvalidParameter, k)
	}
	if r, c := p.Trans.Dims(); r != k || c != k {
		return fmt.Errorf("%w: transition matrix is %dx%d, want %dx%d", ErrInvalidParameter, r, c, k, k)
	}
	if err := checkDistribution("pi", p.Pi); err != nil {
		return err
	}
	for j := 0; j < k; j++ {
		if err := checkDistribution(fmt.Sprintf("transition row %d", j), p.Trans.RawRowView(j)); err != nil {
			return err
		}
	}
	d := p.Dim()
	if d == 0 {
		return fmt.Errorf("%w: zero-dimensional emissions", ErrInvalidParameter)
	}
	for s := 0; s < k; s++ {
		if p.Means[s].Len() != d || p.Covs[s].SymmetricDim() != d {
			return fmt.Errorf("%w: state %d emission has wrong dimension", ErrDimensionMismatch, s)
		}
		for i := 0; i < d; i++ {
			if !finite(p.Means[s].AtVec(i)) {
				return fmt.Errorf("%w: state %d mean is not finite", ErrInvalidParameter, s)
			}
		}
		if !isPositiveDefinite(p.Covs[s]) {
			return fmt.Errorf("%w: state %d covariance is not positive-definite", ErrDegenerateCovariance, s)
		}
	}
	return nil
}

func checkDistribution(name string, xs []float64) error {
	sum := 0.0
	for _, x := range xs {
		if !finite(x) || x < 0 {
			return fmt.Errorf("%w: %s has invalid probability %v", ErrInvalidParameter, name, x)
		}
		sum += x
	}
	if math.Abs(sum-1) > stochasticTolerance {
		return fmt.Errorf("%w: %s sums to %v", ErrInvalidParameter, name, sum)
	}
	return nil
}

func isPositiveDefinite(s *mat.SymDense) bool {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !finite(s.At(i, j)) {
				return false
			}
		}
	}
	var chol mat.Cholesky
	return chol.Factorize(s)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
