package simulate

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestSeries(t *testing.T) {
	numPnts := 7
	s := Series(GenerateConstY(numPnts, 1))

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series([]float64{3, 3, 3, 3, 3, 3, 3}), res)

	s.SetConst(2.0, 2, 4)
	assert.Equal(t, Series([]float64{3, 3, 2, 2, 3, 3, 3}), s)

	s.SetConst(5.0, -3, 1)
	assert.Equal(t, Series([]float64{5, 3, 2, 2, 3, 3, 3}), s)

	s.MaskOutside(1, 5)
	assert.True(t, math.IsNaN(s[0]))
	assert.Equal(t, []float64{3, 2, 2, 3}, []float64(s[1:5]))
	assert.True(t, math.IsNaN(s[5]))
	assert.True(t, math.IsNaN(s[6]))

	s.MaskRange(2, 100)
	assert.Equal(t, 3.0, s[1])
	for i := 2; i < numPnts; i++ {
		assert.True(t, math.IsNaN(s[i]), i)
	}
}

func TestGenerateWaveY(t *testing.T) {
	y := GenerateWaveY(8, 2.0, 4.0, 1.0, 0.0)
	expected := []float64{0, 2, 0, -2, 0, 2, 0, -2}
	for i := range expected {
		assert.InDelta(t, expected[i], y[i], 1e-12, i)
	}
}

func TestFactorCorrelation(t *testing.T) {
	loadings := [][]float64{
		{0.8, 0.0},
		{0.6, 0.6},
		{0.0, -0.5},
	}
	c, err := FactorCorrelation(loadings)
	require.NoError(t, err)

	expected := [][]float64{
		{1.0, 0.48, 0.0},
		{0.48, 1.0, -0.3},
		{0.0, -0.3, 1.0},
	}
	for i := range expected {
		for j := range expected[i] {
			assert.InDelta(t, expected[i][j], c.At(i, j), 1e-12)
		}
	}
}

func TestFactorSeries(t *testing.T) {
	loadings := [][]float64{
		{0.9, 0.1},
		{0.7, -0.3},
		{-0.2, 0.8},
	}
	rng := rand.New(rand.NewPCG(5, 8))
	series, err := FactorSeries(rng, loadings, 20000)
	require.NoError(t, err)
	require.Len(t, series, 3)

	expected, err := FactorCorrelation(loadings)
	require.NoError(t, err)
	for i := range series {
		assert.InDelta(t, 1.0, stat.Variance(series[i], nil), 0.05)
		for j := 0; j < i; j++ {
			assert.InDelta(t, expected.At(i, j), stat.Correlation(series[i], series[j], nil), 0.03, "%d,%d", i, j)
		}
	}
}

func TestFactorSeriesErrors(t *testing.T) {
	testData := map[string]struct {
		loadings [][]float64
		m        int
		err      error
	}{
		"no samples":   {[][]float64{{0.5}}, 0, ErrNonPositiveCount},
		"no loadings":  {nil, 10, ErrNoLoadings},
		"ragged":       {[][]float64{{0.5}, {0.1, 0.2}}, 10, ErrLoadingDims},
		"norm above 1": {[][]float64{{0.8, 0.8}}, 10, ErrLoadingNorm},
		"nan loading":  {[][]float64{{math.NaN()}}, 10, ErrLoadingNorm},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 1))
			_, err := FactorSeries(rng, td.loadings, td.m)
			assert.ErrorIs(t, err, td.err)
		})
	}
}
