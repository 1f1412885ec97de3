package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumSeries       = errors.New("need at least 2 series to compute a correlation matrix")
	ErrSeriesLenMismatch   = errors.New("some series length is not consistent")
	ErrInsufficientOverlap = errors.New("insufficient overlapping observations for a series pair")
	ErrEigenDecomposition  = errors.New("eigen decomposition did not converge")
	ErrNotSquare           = errors.New("matrix is not square")
)

// MinPairObservations is the smallest number of jointly observed points used for a
// pairwise correlation estimate.
const MinPairObservations = 3

func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy)) * upperPerc))
	if upperIdx >= len(yCopy) {
		upperIdx = len(yCopy) - 1
	}

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] >= upper || y[i] <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// OutlierOptions configures the Tukey fence used to mask observations before estimating
// pairwise correlations
type OutlierOptions struct {
	UpperPercentile float64
	LowerPercentile float64
	TukeyFactor     float64
}

func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// PairwiseOptions configures PairwiseCorrelation. A nil OutlierOptions disables masking.
type PairwiseOptions struct {
	OutlierOptions *OutlierOptions
}

// PairwiseCorrelation estimates a raw correlation matrix from equally long series where
// missing observations are NaN. Every pair uses only the points observed in both series,
// so the result is symmetric with unit diagonal but need not be positive semi-definite.
func PairwiseCorrelation(series [][]float64, opt *PairwiseOptions) (*mat.SymDense, error) {
	if len(series) < 2 {
		return nil, ErrMinimumSeries
	}
	m := len(series[0])
	for i, s := range series {
		if len(s) != m {
			return nil, fmt.Errorf("series %d has length %d instead of %d, %w", i, len(s), m, ErrSeriesLenMismatch)
		}
	}

	masked := series
	if opt != nil && opt.OutlierOptions != nil {
		o := opt.OutlierOptions
		masked = make([][]float64, len(series))
		for i, s := range series {
			c := make([]float64, m)
			copy(c, s)
			for _, idx := range DetectOutliers(c, o.LowerPercentile, o.UpperPercentile, o.TukeyFactor) {
				c[idx] = math.NaN()
			}
			masked[i] = c
		}
	}

	n := len(masked)
	res := mat.NewSymDense(n, nil)
	x := make([]float64, 0, m)
	y := make([]float64, 0, m)
	for i := 0; i < n; i++ {
		res.SetSym(i, i, 1.0)
		for j := 0; j < i; j++ {
			x = x[:0]
			y = y[:0]
			for k := 0; k < m; k++ {
				if math.IsNaN(masked[i][k]) || math.IsNaN(masked[j][k]) {
					continue
				}
				x = append(x, masked[i][k])
				y = append(y, masked[j][k])
			}
			if len(x) < MinPairObservations {
				return nil, fmt.Errorf("series %d and %d share %d observations, %w", i, j, len(x), ErrInsufficientOverlap)
			}
			c := stat.Correlation(x, y, nil)
			if math.IsNaN(c) {
				// constant series over the overlap carries no co-movement
				c = 0.0
			}
			res.SetSym(i, j, c)
		}
	}
	return res, nil
}

// Eigenvalues returns the ascending eigenvalues of a symmetric matrix
func Eigenvalues(m mat.Symmetric) ([]float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, false); !ok {
		return nil, ErrEigenDecomposition
	}
	return eig.Values(nil), nil
}

// MinEigenvalue returns the smallest eigenvalue of a symmetric matrix
func MinEigenvalue(m mat.Symmetric) (float64, error) {
	vals, err := Eigenvalues(m)
	if err != nil {
		return 0.0, err
	}
	return floats.Min(vals), nil
}

// AsSymmetric returns m as a mat.Symmetric reading its lower triangle
func AsSymmetric(m mat.Matrix) (mat.Symmetric, error) {
	if s, ok := m.(mat.Symmetric); ok {
		return s, nil
	}
	r, c := m.Dims()
	if r != c {
		return nil, ErrNotSquare
	}
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j <= i; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s, nil
}

// IsCorrelationMatrix reports whether m is symmetric with unit diagonal and no eigenvalue
// below -tol
func IsCorrelationMatrix(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c || r == 0 {
		return false
	}
	for i := 0; i < r; i++ {
		if math.Abs(m.At(i, i)-1.0) > tol {
			return false
		}
		for j := 0; j < i; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	s, err := AsSymmetric(m)
	if err != nil {
		return false
	}
	minEig, err := MinEigenvalue(s)
	if err != nil {
		return false
	}
	return minEig >= -tol
}

// FrobeniusDistance returns the Frobenius norm of a-b
func FrobeniusDistance(a, b mat.Matrix) float64 {
	var diff mat.Dense
	diff.Sub(a, b)
	return mat.Norm(&diff, 2)
}
