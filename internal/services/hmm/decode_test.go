package hmm

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"RegimeModel/internal/domain/models"
	"RegimeModel/pkg/logger"
)

func knownParams() *Params {
	return &Params{
		Kind:  CovarianceFull,
		Pi:    []float64{0.5, 0.5},
		Trans: mat.NewDense(2, 2, []float64{0.95, 0.05, 0.05, 0.95}),
		Means: []*mat.VecDense{
			mat.NewVecDense(2, []float64{-0.01, 0.01}),
			mat.NewVecDense(2, []float64{0.01, 0.03}),
		},
		Covs: []*mat.SymDense{
			mat.NewSymDense(2, []float64{1e-4, 0, 0, 1e-5}),
			mat.NewSymDense(2, []float64{1e-4, 2e-6, 2e-6, 1e-5}),
		},
	}
}

func TestFromParams_Validation(t *testing.T) {
	_, err := FromParams(nil)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	bad := knownParams()
	bad.Trans.Set(0, 0, 0.9)
	_, err = FromParams(bad)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	bad = knownParams()
	bad.Pi = []float64{0.6, 0.6}
	_, err = FromParams(bad)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	bad = knownParams()
	bad.Covs[1] = mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err = FromParams(bad)
	assert.True(t, errors.Is(err, ErrDegenerateCovariance))

	bad = knownParams()
	bad.Means[1] = mat.NewVecDense(3, []float64{0, 0, 0})
	_, err = FromParams(bad)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	p := knownParams()
	m, err := FromParams(p)
	require.NoError(t, err)
	p.Pi[0] = 0.9
	assert.Equal(t, 0.5, m.Params().Pi[0], "model must not alias caller parameters")
	assert.True(t, math.IsNaN(m.LogLikelihood()))
}

func TestDecode_PosteriorsAndLabels(t *testing.T) {
	m, err := FromParams(knownParams())
	require.NoError(t, err)

	obs := observations(
		[]float64{-0.01, 0.01},
		[]float64{-0.012, 0.011},
		[]float64{0.011, 0.03},
		[]float64{0.009, 0.031},
		[]float64{0.01, 0.029},
	)
	d, err := Decode(m, obs)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1, 1}, d.States)
	require.Len(t, d.Posteriors, len(obs))
	for _, row := range d.Posteriors {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}
	assert.False(t, math.IsNaN(d.LogLikelihood))
	assert.Len(t, d.StateProbabilities(1), len(obs))
	assert.Greater(t, d.StateProbabilities(1)[4], 0.5)
}

func TestDecode_LongSequenceStaysFinite(t *testing.T) {
	m, err := FromParams(knownParams())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	values := make([][]float64, 5000)
	for i := range values {
		c := -0.01
		if (i/100)%2 == 1 {
			c = 0.01
		}
		values[i] = []float64{c + 0.01*rng.NormFloat64(), c + 0.02 + 0.003*rng.NormFloat64()}
	}
	d, err := Decode(m, observations(values...))
	require.NoError(t, err)
	require.False(t, math.IsInf(d.LogLikelihood, 0) || math.IsNaN(d.LogLikelihood))
	for ti, row := range d.Posteriors {
		sum := 0.0
		for _, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "t=%d", ti)
			sum += v
		}
		require.InDelta(t, 1.0, sum, 1e-6, "t=%d", ti)
	}
	for _, s := range d.States {
		require.True(t, s == 0 || s == 1)
	}
}

func TestDecode_TiesGoToLowestState(t *testing.T) {
	sym := &Params{
		Pi:    []float64{0.5, 0.5},
		Trans: mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5}),
		Means: []*mat.VecDense{mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{1})},
		Covs:  []*mat.SymDense{mat.NewSymDense(1, []float64{2}), mat.NewSymDense(1, []float64{2})},
	}
	m, err := FromParams(sym)
	require.NoError(t, err)

	d, err := Decode(m, observations([]float64{0}, []float64{3}, []float64{1}, []float64{-4}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, d.States)
	for _, row := range d.Posteriors {
		assert.InDelta(t, 0.5, row[0], 1e-12)
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil, observations([]float64{1, 2}))
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	m, err := FromParams(knownParams())
	require.NoError(t, err)

	_, err = Decode(m, nil)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = Decode(m, observations([]float64{0.1, 0.2, 0.3}))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = Decode(m, observations([]float64{0.1, math.NaN()}))
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestDecode_HeldOutObservations(t *testing.T) {
	train, _ := twoRegimeSeries(8, 300)
	m, err := Fit(train, FitOptions{K: 2, Seed: 42})
	require.NoError(t, err)

	held, _ := twoRegimeSeries(9, 60)
	d, err := Decode(m, held)
	require.NoError(t, err)
	assert.Len(t, d.States, 60)
	assert.NotEqual(t, d.States[0], d.States[30])
}

type fitRecorder struct {
	iterations int
	logLik     float64
	converged  bool
	calls      int
}

func (r *fitRecorder) RecordStage(string, float64, error)     {}
func (r *fitRecorder) RecordSamples(string, int)              {}
func (r *fitRecorder) RecordReport(*models.PerformanceReport) {}

func (r *fitRecorder) RecordFit(iterations int, ll float64, converged bool) {
	r.iterations, r.logLik, r.converged = iterations, ll, converged
	r.calls++
}

func TestEngine_LogsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	rec := &fitRecorder{}
	e := NewEngine(logger.NewWriter(&buf, zerolog.DebugLevel), rec)

	obs, _ := twoRegimeSeries(10, 200)
	m, err := e.Fit(obs, FitOptions{K: 2, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, m.Iterations(), rec.iterations)
	assert.Equal(t, m.LogLikelihood(), rec.logLik)
	assert.Equal(t, m.Converged(), rec.converged)

	_, err = e.Decode(m, obs)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, m.Iterations(), strings.Count(out, `"message":"EM iteration"`))
	assert.Contains(t, out, "Regime model fitted")
	assert.Equal(t, 2, strings.Count(out, "Regime summary"))

	_, err = e.Fit(obs[:1], FitOptions{K: 2})
	require.Error(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Contains(t, buf.String(), "Regime model fit failed")
}

type foreignModel struct{}

func (foreignModel) K() int                 { return 2 }
func (foreignModel) Dim() int               { return 2 }
func (foreignModel) Converged() bool        { return true }
func (foreignModel) Iterations() int        { return 1 }
func (foreignModel) LogLikelihood() float64 { return 0 }

func TestEngine_DecodeRejectsForeignModel(t *testing.T) {
	e := NewEngine(nil, nil)
	obs, _ := twoRegimeSeries(12, 20)

	_, err := e.Decode(foreignModel{}, obs)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	_, err = e.Decode(nil, obs)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}
