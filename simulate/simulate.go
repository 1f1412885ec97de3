// Package simulate generates sample series with a known correlation structure. Observations
// can be removed by setting them to NaN to mimic series that were sampled over different
// ranges.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoLoadings       = errors.New("no factor loadings")
	ErrLoadingDims      = errors.New("every series needs the same number of factor loadings")
	ErrLoadingNorm      = errors.New("factor loadings of a series must have norm at most 1")
	ErrNonPositiveCount = errors.New("number of samples must be positive")
)

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetConst sets the observations in [start, end) to val
func (s Series) SetConst(val float64, start, end int) Series {
	start, end = clampRange(len(s), start, end)
	for i := start; i < end; i++ {
		s[i] = val
	}
	return s
}

// MaskRange marks the observations in [start, end) as missing
func (s Series) MaskRange(start, end int) Series {
	return s.SetConst(math.NaN(), start, end)
}

// MaskOutside marks every observation outside [start, end) as missing
func (s Series) MaskOutside(start, end int) Series {
	start, end = clampRange(len(s), start, end)
	s.MaskRange(0, start)
	s.MaskRange(end, len(s))
	return s
}

func clampRange(n, start, end int) (int, int) {
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	return start, end
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave with the given period in samples
func GenerateWaveY(n int, amp, period, order, offset float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/period*(float64(i)+offset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise with standard deviation scale
func GenerateNoise(rng *rand.Rand, n int, scale float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*scale)
	}
	return Series(y)
}

func checkLoadings(loadings [][]float64) (int, error) {
	if len(loadings) == 0 {
		return 0, ErrNoLoadings
	}
	k := len(loadings[0])
	for i, l := range loadings {
		if len(l) != k {
			return 0, fmt.Errorf("series %d has %d loadings instead of %d, %w", i, len(l), k, ErrLoadingDims)
		}
		if norm := floats.Norm(l, 2); norm > 1.0 || math.IsNaN(norm) {
			return 0, fmt.Errorf("series %d has norm %.3f, %w", i, norm, ErrLoadingNorm)
		}
	}
	return k, nil
}

// FactorSeries generates m samples of one series per row of loadings. Series i is
// Σ_k loadings[i][k]·f_k plus idiosyncratic noise scaled so every series has unit variance,
// which gives the series the correlation matrix returned by FactorCorrelation.
func FactorSeries(rng *rand.Rand, loadings [][]float64, m int) ([]Series, error) {
	if m < 1 {
		return nil, ErrNonPositiveCount
	}
	k, err := checkLoadings(loadings)
	if err != nil {
		return nil, err
	}

	factors := make([]Series, k)
	for j := range factors {
		factors[j] = GenerateNoise(rng, m, 1.0)
	}

	series := make([]Series, len(loadings))
	for i, l := range loadings {
		idio := math.Sqrt(math.Max(1.0-floats.Dot(l, l), 0.0))
		s := GenerateNoise(rng, m, idio)
		for j, f := range factors {
			floats.AddScaled(s, l[j], f)
		}
		series[i] = s
	}
	return series, nil
}

// FactorCorrelation returns the correlation matrix of series generated by FactorSeries
func FactorCorrelation(loadings [][]float64) (*mat.SymDense, error) {
	if _, err := checkLoadings(loadings); err != nil {
		return nil, err
	}
	n := len(loadings)
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		c.SetSym(i, i, 1.0)
		for j := 0; j < i; j++ {
			c.SetSym(i, j, floats.Dot(loadings[i], loadings[j]))
		}
	}
	return c, nil
}
