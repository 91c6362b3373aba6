package hmm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	selfTransition = 0.7
	lloydPasses    = 25
)

// initialParams seeds EM with k-means++ centers, the regularized global
// covariance, a uniform start distribution and a self-biased transition
// matrix.
func initialParams(xs []*mat.VecDense, k int, kind CovarianceKind, seed int64) (*Params, error) {
	rng := rand.New(rand.NewSource(seed))
	means := lloyd(xs, kmeansPlusPlus(xs, k, rng))

	global, err := globalCovariance(xs, kind)
	if err != nil {
		return nil, err
	}

	p := &Params{
		Kind:  kind,
		Pi:    make([]float64, k),
		Trans: mat.NewDense(k, k, nil),
		Means: means,
		Covs:  make([]*mat.SymDense, k),
	}
	off := (1 - selfTransition) / float64(k-1)
	for i := 0; i < k; i++ {
		p.Pi[i] = 1 / float64(k)
		for j := 0; j < k; j++ {
			if i == j {
				p.Trans.Set(i, j, selfTransition)
			} else {
				p.Trans.Set(i, j, off)
			}
		}
		c := mat.NewSymDense(global.SymmetricDim(), nil)
		c.CopySym(global)
		p.Covs[i] = c
	}
	return p, nil
}

// kmeansPlusPlus picks k initial centers, each drawn with probability
// proportional to its squared distance from the nearest chosen center.
func kmeansPlusPlus(xs []*mat.VecDense, k int, rng *rand.Rand) []*mat.VecDense {
	centers := make([]*mat.VecDense, 0, k)
	centers = append(centers, mat.VecDenseCopyOf(xs[rng.Intn(len(xs))]))

	dist := make([]float64, len(xs))
	for len(centers) < k {
		total := 0.0
		for i, x := range xs {
			d := math.Inf(1)
			for _, c := range centers {
				if v := sqDist(x, c); v < d {
					d = v
				}
			}
			dist[i] = d
			total += d
		}

		pick := -1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					pick = i
					break
				}
			}
		}
		if pick < 0 {
			pick = rng.Intn(len(xs))
		}
		centers = append(centers, mat.VecDenseCopyOf(xs[pick]))
	}
	return centers
}

// lloyd refines centers until assignments stop changing. Ties go to the
// lowest center index; an empty cluster keeps its center.
func lloyd(xs []*mat.VecDense, centers []*mat.VecDense) []*mat.VecDense {
	k, d := len(centers), centers[0].Len()
	assign := make([]int, len(xs))
	for i := range assign {
		assign[i] = -1
	}

	for pass := 0; pass < lloydPasses; pass++ {
		changed := false
		for i, x := range xs {
			best, bestDist := 0, math.Inf(1)
			for c := range centers {
				if v := sqDist(x, centers[c]); v < bestDist {
					best, bestDist = c, v
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]*mat.VecDense, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = mat.NewVecDense(d, nil)
		}
		for i, x := range xs {
			sums[assign[i]].AddVec(sums[assign[i]], x)
			counts[assign[i]]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			sums[c].ScaleVec(1/float64(counts[c]), sums[c])
			centers[c] = sums[c]
		}
	}
	return centers
}

// globalCovariance is the MLE covariance of the whole sample plus the
// diagonal floor.
func globalCovariance(xs []*mat.VecDense, kind CovarianceKind) (*mat.SymDense, error) {
	d := xs[0].Len()
	mean := mat.NewVecDense(d, nil)
	for _, x := range xs {
		mean.AddVec(mean, x)
	}
	mean.ScaleVec(1/float64(len(xs)), mean)

	cov := mat.NewSymDense(d, nil)
	diff := mat.NewVecDense(d, nil)
	w := 1 / float64(len(xs))
	for _, x := range xs {
		diff.SubVec(x, mean)
		cov.SymRankOne(cov, w, diff)
	}
	regularize(cov, kind)
	if !isPositiveDefinite(cov) {
		return nil, fmt.Errorf("%w: sample covariance is not positive-definite", ErrDegenerateCovariance)
	}
	return cov, nil
}

func sqDist(a, b mat.Vector) float64 {
	s := 0.0
	for i := 0; i < a.Len(); i++ {
		v := a.AtVec(i) - b.AtVec(i)
		s += v * v
	}
	return s
}
