package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// posterior is the E-step output for one parameter snapshot.
type posterior struct {
	gamma  [][]float64 // T×K state occupancy
	xiSum  [][]float64 // K×K expected transition counts, nil unless requested
	logLik float64
}

// forwardBackward runs the rescaled forward and backward recursions.
// Forward is processed t=0..T-1 and backward t=T-1..0.
func forwardBackward(p *Params, logB [][]float64, withXi bool) (*posterior, error) {
	T, k := len(logB), p.K()
	b, shifts, err := scaleEmissions(logB)
	if err != nil {
		return nil, err
	}
	a := rows(p.Trans)

	alpha := matrix(T, k)
	scale := make([]float64, T)
	logLik := 0.0
	for t := 0; t < T; t++ {
		c := 0.0
		for s := 0; s < k; s++ {
			var v float64
			if t == 0 {
				v = p.Pi[s]
			} else {
				for j := 0; j < k; j++ {
					v += alpha[t-1][j] * a[j][s]
				}
			}
			v *= b[t][s]
			alpha[t][s] = v
			c += v
		}
		if c <= 0 || !finite(c) {
			return nil, fmt.Errorf("%w: forward pass lost all probability mass at t=%d", ErrDegenerateCovariance, t)
		}
		for s := 0; s < k; s++ {
			alpha[t][s] /= c
		}
		scale[t] = c
		logLik += math.Log(c) + shifts[t]
	}

	beta := matrix(T, k)
	for s := 0; s < k; s++ {
		beta[T-1][s] = 1
	}
	for t := T - 2; t >= 0; t-- {
		for j := 0; j < k; j++ {
			v := 0.0
			for s := 0; s < k; s++ {
				v += a[j][s] * b[t+1][s] * beta[t+1][s]
			}
			beta[t][j] = v / scale[t+1]
		}
	}

	gamma := matrix(T, k)
	for t := 0; t < T; t++ {
		sum := 0.0
		for s := 0; s < k; s++ {
			gamma[t][s] = alpha[t][s] * beta[t][s]
			sum += gamma[t][s]
		}
		for s := 0; s < k; s++ {
			gamma[t][s] /= sum
		}
	}

	out := &posterior{gamma: gamma, logLik: logLik}
	if !withXi {
		return out, nil
	}

	xiSum := matrix(k, k)
	xi := matrix(k, k)
	for t := 0; t < T-1; t++ {
		sum := 0.0
		for j := 0; j < k; j++ {
			for s := 0; s < k; s++ {
				v := alpha[t][j] * a[j][s] * b[t+1][s] * beta[t+1][s]
				xi[j][s] = v
				sum += v
			}
		}
		if sum <= 0 {
			continue
		}
		for j := 0; j < k; j++ {
			for s := 0; s < k; s++ {
				xiSum[j][s] += xi[j][s] / sum
			}
		}
	}
	out.xiSum = xiSum
	return out, nil
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func matrix(r, c int) [][]float64 {
	buf := make([]float64, r*c)
	out := make([][]float64, r)
	for i := range out {
		out[i] = buf[i*c : (i+1)*c : (i+1)*c]
	}
	return out
}
