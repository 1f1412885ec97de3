package decomposer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEziAbortConditionValidate(t *testing.T) {
	testData := map[string]struct {
		abort *EziAbortCondition
		err   error
	}{
		"nil":                       {nil, nil},
		"only iterations":           {&EziAbortCondition{Tolerance1: math.NaN(), Tolerance2: math.NaN(), MaxIterations: 5}, nil},
		"only first tolerance":      {&EziAbortCondition{Tolerance1: 1e-6, Tolerance2: math.NaN()}, nil},
		"negative tolerance":        {&EziAbortCondition{Tolerance1: -1}, ErrNegativeTolerance},
		"negative second":           {&EziAbortCondition{Tolerance2: -1}, ErrNegativeTolerance},
		"negative max iterations":   {&EziAbortCondition{MaxIterations: -1}, ErrNegativeMaxIterations},
		"never satisfied":           {&EziAbortCondition{Tolerance1: math.NaN(), Tolerance2: math.NaN()}, ErrInvalidAbortCondition},
		"unbounded with tolerance":  {&EziAbortCondition{Tolerance1: 1e-8, Tolerance2: math.NaN()}, nil},
		"unbounded zero tolerances": {&EziAbortCondition{Tolerance1: 0, Tolerance2: 0}, ErrInvalidAbortCondition},
		"unbounded zero and nan":    {&EziAbortCondition{Tolerance1: math.NaN(), Tolerance2: 0}, ErrInvalidAbortCondition},
		"bounded zero tolerances":   {&EziAbortCondition{Tolerance1: 0, Tolerance2: 0, MaxIterations: 2}, nil},
		"unbounded second only":     {&EziAbortCondition{Tolerance1: 0, Tolerance2: 1e-12}, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			abort, err := td.abort.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)

				_, err = NewEzi(&EziOptions{Abort: td.abort})
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.NotNil(t, abort)
		})
	}

	_, err := NewEzi(&EziOptions{MaxRank: -2})
	assert.ErrorIs(t, err, ErrNegativeMaxRank)
}

func TestEziAbortConditionIsSatisfied(t *testing.T) {
	q := []float64{1, 0.5, 0.5, 1}
	qNorm := []float64{1, 0.5, 0.5, 1}

	testData := map[string]struct {
		abort     *EziAbortCondition
		p         []float64
		qNorm     []float64
		prev      float64
		expected  bool
		expectedA float64
	}{
		"normalized reconstruction matches": {
			abort:     &EziAbortCondition{Tolerance1: 1e-8, Tolerance2: math.NaN()},
			p:         []float64{1, 0.6, 0.6, 1},
			qNorm:     qNorm,
			prev:      math.Inf(1),
			expected:  true,
			expectedA: math.Sqrt(0.02),
		},
		"normalized reconstruction far": {
			abort:     &EziAbortCondition{Tolerance1: 1e-8, Tolerance2: math.NaN()},
			p:         []float64{1, 0.6, 0.6, 1},
			qNorm:     []float64{1, 0.4, 0.4, 1},
			prev:      math.Inf(1),
			expected:  false,
			expectedA: math.Sqrt(0.02),
		},
		"distance stalls": {
			abort:     &EziAbortCondition{Tolerance1: math.NaN(), Tolerance2: 1e-6},
			p:         []float64{1, 0.6, 0.6, 1},
			qNorm:     []float64{1, 0.4, 0.4, 1},
			prev:      math.Sqrt(0.02),
			expected:  true,
			expectedA: math.Sqrt(0.02),
		},
		"reference order compares the difference": {
			abort:     &EziAbortCondition{Tolerance1: 1e-8, Tolerance2: math.NaN(), ReferenceOperandOrder: true},
			p:         []float64{1, 0.6, 0.6, 1},
			qNorm:     qNorm,
			prev:      math.Inf(1),
			expected:  false,
			expectedA: math.Sqrt(0.02),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			p := append([]float64(nil), td.p...)
			a := td.prev
			satisfied := td.abort.IsSatisfied(2, p, q, td.qNorm, &a)
			assert.Equal(t, td.expected, satisfied)
			assert.InDelta(t, td.expectedA, a, 1e-12)
			assert.InDeltaSlice(t, []float64{0, 0.1, 0.1, 0}, p, 1e-12)
		})
	}
}

func TestEziDecompose(t *testing.T) {
	ezi, err := NewEzi(&EziOptions{RecordHistory: true})
	require.Nil(t, err)

	b, s, err := ezi.Decompose(mat.NewDense(3, 3, invalidRaw), nil)
	require.Nil(t, err)

	state := s.(*EziState)
	assert.Equal(t, MethodEzi, state.Method())
	assert.True(t, state.Converged)
	assert.Equal(t, 2, state.Rank())
	assert.Greater(t, state.Iterations, 1)
	assert.Less(t, state.Iterations, DefaultEziMaxIterations)
	assert.Len(t, state.NormHistory, state.Iterations-1)
	assert.Len(t, state.EigenvalueHistory, state.Iterations)

	expected := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		1, 1, 0,
		0, 0, 1,
	})
	assert.True(t, mat.EqualApprox(expected, reconstruct(b), 1e-6))
	assert.True(t, isValidDecomposition(b, 1e-8))
}

func TestEziMaxIterations(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 19))
	raw := randomSymmetric(rng, 5)

	testData := map[string]struct {
		opt *EziOptions
	}{
		"never converges": {
			&EziOptions{Abort: &EziAbortCondition{Tolerance1: 0, Tolerance2: 0, MaxIterations: 3}, RecordHistory: true},
		},
		"single iteration honors max rank": {
			&EziOptions{MaxRank: 2, Abort: &EziAbortCondition{Tolerance1: 0, Tolerance2: 0, MaxIterations: 1}, RecordHistory: true},
		},
		"reference operand order": {
			&EziOptions{MaxRank: 3, Abort: &EziAbortCondition{Tolerance1: 0, Tolerance2: 0, MaxIterations: 4, ReferenceOperandOrder: true}},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ezi, err := NewEzi(td.opt)
			require.Nil(t, err)

			b, s, err := ezi.Decompose(raw, nil)
			require.Nil(t, err)

			state := s.(*EziState)
			maxIter := td.opt.Abort.MaxIterations
			assert.False(t, state.Converged)
			assert.Equal(t, maxIter, state.Iterations)
			if td.opt.RecordHistory {
				assert.Len(t, state.NormHistory, maxIter-1)
			}
			if td.opt.MaxRank > 0 {
				assert.LessOrEqual(t, state.Rank(), td.opt.MaxRank)
			}
			assert.True(t, isValidDecomposition(b, 1e-8))
		})
	}
}

func TestEziOptionsUnchangedByConstruction(t *testing.T) {
	raw := mat.NewDense(3, 3, []float64{
		1.0, 0.5, 0.2,
		0.5, 1.0, 0.1,
		0.2, 0.1, 1.0,
	})

	opt := &EziOptions{}
	_, err := NewEzi(opt)
	require.Nil(t, err)
	assert.Nil(t, opt.Abort)

	abort := &EziAbortCondition{Tolerance1: math.NaN(), Tolerance2: math.NaN(), MaxIterations: 3}
	opt = &EziOptions{Abort: abort}
	ezi, err := NewEzi(opt)
	require.Nil(t, err)

	abort.MaxIterations = 1
	opt.MaxRank = 1

	_, s, err := ezi.Decompose(raw, nil)
	require.Nil(t, err)
	state := s.(*EziState)
	assert.Equal(t, 3, state.Iterations)
	assert.Equal(t, 3, state.Rank())
}

func TestEziMonotonicImprovement(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 29))

	for trial := 0; trial < 5; trial++ {
		raw := randomSymmetric(rng, 6)
		ezi, err := NewEzi(&EziOptions{
			Abort:         &EziAbortCondition{Tolerance1: 1e-14, Tolerance2: math.NaN(), MaxIterations: 60},
			RecordHistory: true,
		})
		require.Nil(t, err)

		_, s, err := ezi.Decompose(raw, nil)
		require.Nil(t, err)

		// the first entry measures the distance to the raw matrix, later entries the
		// distance between consecutive iterates
		history := s.(*EziState).NormHistory
		for k := 2; k < len(history); k++ {
			assert.LessOrEqual(t, history[k], history[k-1]+1e-10, "trial %d iteration %d", trial, k)
		}
	}
}
