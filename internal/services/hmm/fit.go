package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"RegimeModel/internal/domain/models"
)

const (
	DefaultMaxIter   = 500
	DefaultTolerance = 1e-4
	DefaultSeed      = 42
)

// FitOptions controls Baum-Welch estimation.
type FitOptions = models.RegimeFitOptions

// withDefaults fills zero values and rejects out-of-range settings.
func withDefaults(o FitOptions) (FitOptions, error) {
	if o.K < 2 {
		return o, fmt.Errorf("%w: need at least 2 states, got %d", ErrInvalidParameter, o.K)
	}
	switch {
	case o.MaxIter < 0:
		return o, fmt.Errorf("%w: max iterations %d is negative", ErrInvalidParameter, o.MaxIter)
	case o.MaxIter == 0:
		o.MaxIter = DefaultMaxIter
	}
	switch {
	case math.IsNaN(o.Tolerance):
		return o, fmt.Errorf("%w: tolerance is NaN", ErrInvalidParameter)
	case o.Tolerance < 0:
		return o, fmt.Errorf("%w: tolerance %v is negative", ErrInvalidParameter, o.Tolerance)
	case o.Tolerance == 0:
		o.Tolerance = DefaultTolerance
	}
	kind, err := ParseCovarianceKind(string(o.Covariance))
	if err != nil {
		return o, err
	}
	o.Covariance = kind
	return o, nil
}

// FittedModel is a frozen Gaussian HMM. Accessors return copies.
type FittedModel struct {
	params     *Params
	trace      []float64
	converged  bool
	iterations int
}

// Params returns a copy of the model parameters.
func (m *FittedModel) Params() *Params { return m.params.Clone() }

// K returns the number of hidden states.
func (m *FittedModel) K() int { return m.params.K() }

// Dim returns the observation dimensionality.
func (m *FittedModel) Dim() int { return m.params.Dim() }

// Converged reports whether the improvement threshold stopped EM.
func (m *FittedModel) Converged() bool { return m.converged }

// Iterations returns the number of EM iterations run.
func (m *FittedModel) Iterations() int { return m.iterations }

// LogLikelihoods returns the per-iteration log-likelihood trace.
func (m *FittedModel) LogLikelihoods() []float64 {
	return append([]float64(nil), m.trace...)
}

// LogLikelihood returns the last recorded log-likelihood, or NaN for a
// model built with FromParams.
func (m *FittedModel) LogLikelihood() float64 {
	if len(m.trace) == 0 {
		return math.NaN()
	}
	return m.trace[len(m.trace)-1]
}

// Fit estimates a Gaussian HMM from obs with Baum-Welch.
func Fit(obs []models.Observation, opts FitOptions) (*FittedModel, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	if len(obs) < opts.K+1 {
		return nil, fmt.Errorf("%w: %d observations for %d states", ErrInsufficientData, len(obs), opts.K)
	}

	xs, err := toVectors(obs, 0)
	if err != nil {
		return nil, err
	}
	init, err := initialParams(xs, opts.K, opts.Covariance, opts.Seed)
	if err != nil {
		return nil, err
	}
	return fitFrom(init, xs, opts)
}

// FromParams freezes known parameters into a model usable with Decode.
func FromParams(p *Params) (*FittedModel, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil parameters", ErrInvalidParameter)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	kind, err := ParseCovarianceKind(string(p.Kind))
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	out.Kind = kind
	return &FittedModel{params: out}, nil
}

// emState is one EM snapshot. step never mutates it.
type emState struct {
	params    *Params
	collapsed []int
}

func step(s emState, xs []*mat.VecDense) (emState, float64, error) {
	logB, err := logEmissions(s.params, xs)
	if err != nil {
		return emState{}, 0, err
	}
	post, err := forwardBackward(s.params, logB, true)
	if err != nil {
		return emState{}, 0, err
	}
	next, collapsed, err := mStep(s.params, xs, post, s.collapsed)
	if err != nil {
		return emState{}, 0, err
	}
	return emState{params: next, collapsed: collapsed}, post.logLik, nil
}

// fitFrom iterates EM from init. The returned parameters are always the
// snapshot whose log-likelihood was recorded last, so the trace never
// decreases. A step that would lower the likelihood ends the fit; it
// counts as converged only when the drop is within Tolerance.
func fitFrom(init *Params, xs []*mat.VecDense, opts FitOptions) (*FittedModel, error) {
	state := emState{params: init, collapsed: make([]int, init.K())}
	kept := state
	trace := make([]float64, 0, 64)
	prev := math.Inf(-1)
	converged := false

	for iter := 1; iter <= opts.MaxIter; iter++ {
		next, ll, err := step(state, xs)
		if err != nil {
			return nil, err
		}
		if ll < prev {
			converged = prev-ll < opts.Tolerance
			break
		}
		trace = append(trace, ll)
		if opts.OnIteration != nil {
			opts.OnIteration(iter, ll)
		}
		kept, state = state, next
		if ll-prev < opts.Tolerance {
			converged = true
			break
		}
		prev = ll
	}

	return &FittedModel{
		params:     kept.params,
		trace:      trace,
		converged:  converged,
		iterations: len(trace),
	}, nil
}

// toVectors validates obs and converts them to gonum vectors. dim 0
// takes the dimension from the first observation.
func toVectors(obs []models.Observation, dim int) ([]*mat.VecDense, error) {
	if dim == 0 && len(obs) > 0 {
		dim = obs[0].Dim()
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimensional observations", ErrInvalidParameter)
	}
	out := make([]*mat.VecDense, len(obs))
	for t, o := range obs {
		if o.Dim() != dim {
			return nil, fmt.Errorf("%w: observation %d has %d values, want %d", ErrDimensionMismatch, t, o.Dim(), dim)
		}
		for _, v := range o.Values {
			if !finite(v) {
				return nil, fmt.Errorf("%w: observation %d is not finite", ErrInvalidParameter, t)
			}
		}
		out[t] = mat.NewVecDense(dim, append([]float64(nil), o.Values...))
	}
	return out, nil
}
