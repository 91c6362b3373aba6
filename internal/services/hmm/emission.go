package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// logEmissions returns log b_k(o_t) for every timestep and state.
func logEmissions(p *Params, xs []*mat.VecDense) ([][]float64, error) {
	k := p.K()
	dists := make([]*distmv.Normal, k)
	for s := 0; s < k; s++ {
		n, ok := distmv.NewNormal(vecData(p.Means[s]), p.Covs[s], nil)
		if !ok {
			return nil, fmt.Errorf("%w: state %d covariance is not positive-definite", ErrDegenerateCovariance, s)
		}
		dists[s] = n
	}

	out := make([][]float64, len(xs))
	buf := make([]float64, len(xs)*k)
	for t, x := range xs {
		row := buf[t*k : (t+1)*k : (t+1)*k]
		data := vecData(x)
		for s, n := range dists {
			row[s] = n.LogProb(data)
		}
		out[t] = row
	}
	return out, nil
}

// scaleEmissions exponentiates log emissions after subtracting the
// per-timestep maximum. The returned shifts restore the true scale.
func scaleEmissions(logB [][]float64) ([][]float64, []float64, error) {
	b := make([][]float64, len(logB))
	shifts := make([]float64, len(logB))
	for t, row := range logB {
		m := math.Inf(-1)
		for _, v := range row {
			if v > m {
				m = v
			}
		}
		if math.IsInf(m, -1) || math.IsNaN(m) {
			return nil, nil, fmt.Errorf("%w: observation %d has zero density under every state", ErrDegenerateCovariance, t)
		}
		scaled := make([]float64, len(row))
		for s, v := range row {
			scaled[s] = math.Exp(v - m)
		}
		b[t] = scaled
		shifts[t] = m
	}
	return b, shifts, nil
}

func vecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
