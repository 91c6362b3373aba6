package hmm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	covarianceFloor = 1e-6
	minOccupancy    = 1e-10
	maxCollapsed    = 5
)

// mStep re-estimates parameters from the E-step posteriors. prev is not
// modified. collapsed counts consecutive iterations each state spent
// below minOccupancy.
func mStep(prev *Params, xs []*mat.VecDense, post *posterior, collapsed []int) (*Params, []int, error) {
	k, d, T := prev.K(), prev.Dim(), len(xs)
	next := &Params{
		Kind:  prev.Kind,
		Pi:    make([]float64, k),
		Trans: mat.NewDense(k, k, nil),
		Means: make([]*mat.VecDense, k),
		Covs:  make([]*mat.SymDense, k),
	}
	counts := make([]int, k)

	copy(next.Pi, post.gamma[0])
	normalize(next.Pi)

	for j := 0; j < k; j++ {
		denom := 0.0
		for t := 0; t < T-1; t++ {
			denom += post.gamma[t][j]
		}
		if denom < minOccupancy {
			next.Trans.SetRow(j, prev.Trans.RawRowView(j))
			continue
		}
		row := make([]float64, k)
		for s := 0; s < k; s++ {
			row[s] = post.xiSum[j][s] / denom
		}
		normalize(row)
		next.Trans.SetRow(j, row)
	}

	for s := 0; s < k; s++ {
		occ := 0.0
		for t := 0; t < T; t++ {
			occ += post.gamma[t][s]
		}
		if occ < minOccupancy {
			counts[s] = collapsed[s] + 1
			if counts[s] >= maxCollapsed {
				return nil, nil, fmt.Errorf("%w: state %d has carried no probability mass for %d iterations", ErrDegenerateCovariance, s, counts[s])
			}
			next.Means[s] = mat.VecDenseCopyOf(prev.Means[s])
			c := mat.NewSymDense(d, nil)
			c.CopySym(prev.Covs[s])
			next.Covs[s] = c
			continue
		}

		mean, cov := weightedMoments(xs, post.gamma, s, occ)
		regularize(cov, prev.Kind)
		if !isPositiveDefinite(cov) {
			return nil, nil, fmt.Errorf("%w: state %d", ErrDegenerateCovariance, s)
		}
		next.Means[s] = mean
		next.Covs[s] = cov
	}
	return next, counts, nil
}

// weightedMoments returns the γ-weighted mean and MLE covariance of
// state s.
func weightedMoments(xs []*mat.VecDense, gamma [][]float64, s int, occ float64) (*mat.VecDense, *mat.SymDense) {
	d := xs[0].Len()
	mean := mat.NewVecDense(d, nil)
	for t, x := range xs {
		mean.AddScaledVec(mean, gamma[t][s], x)
	}
	mean.ScaleVec(1/occ, mean)

	cov := mat.NewSymDense(d, nil)
	diff := mat.NewVecDense(d, nil)
	for t, x := range xs {
		diff.SubVec(x, mean)
		cov.SymRankOne(cov, gamma[t][s]/occ, diff)
	}
	return mean, cov
}

// regularize zeroes off-diagonal terms for the diagonal kind and adds
// the floor to the diagonal.
func regularize(cov *mat.SymDense, kind CovarianceKind) {
	n := cov.SymmetricDim()
	for i := 0; i < n; i++ {
		if kind == CovarianceDiagonal {
			for j := i + 1; j < n; j++ {
				cov.SetSym(i, j, 0)
			}
		}
		cov.SetSym(i, i, cov.At(i, i)+covarianceFloor)
	}
}

func normalize(xs []float64) {
	if sum := floats.Sum(xs); sum > 0 {
		floats.Scale(1/sum, xs)
	}
}
