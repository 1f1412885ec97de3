package decomposer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aouyang1/go-correlation/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/mat"
)

// invalidRaw has an off diagonal entry above 1
var invalidRaw = []float64{
	1, 1.2, 0,
	1.2, 1, 0,
	0, 0, 1,
}

func reconstruct(b mat.Matrix) *mat.Dense {
	var c mat.Dense
	c.Mul(b, b.T())
	return &c
}

func randomSymmetric(rng *rand.Rand, n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1.0)
		for j := 0; j < i; j++ {
			v := rng.Float64()*2.0 - 1.0
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
	return m
}

func randomUnitRows(rng *rand.Rand, n, r int) *mat.Dense {
	b := mat.NewDense(n, r, nil)
	for i := 0; i < n; i++ {
		var ss float64
		for j := 0; j < r; j++ {
			v := rng.NormFloat64()
			b.Set(i, j, v)
			ss += v * v
		}
		for j := 0; j < r; j++ {
			b.Set(i, j, b.At(i, j)/math.Sqrt(ss))
		}
	}
	return b
}

// isValidDecomposition checks the unit diagonal and the eigenvalues of b·bᵀ
func isValidDecomposition(b mat.Matrix, tol float64) bool {
	return stats.IsCorrelationMatrix(reconstruct(b), tol)
}

func TestCallOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		co       *CallOptions
		expected blas.Uplo
		err      error
	}{
		"nil":        {nil, blas.Lower, nil},
		"zero value": {&CallOptions{}, blas.Lower, nil},
		"upper":      {&CallOptions{Uplo: blas.Upper}, blas.Upper, nil},
		"all":        {&CallOptions{Uplo: blas.All}, 0, ErrInvalidTriangle},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			co, err := td.co.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, co.Uplo)
		})
	}

	// the caller's options are not modified
	co := &CallOptions{}
	_, err := co.Validate()
	require.Nil(t, err)
	assert.Equal(t, blas.Uplo(0), co.Uplo)
}

func TestCheckRaw(t *testing.T) {
	withNaN := mat.NewDense(2, 2, []float64{1, math.NaN(), 0.5, 1})

	testData := map[string]struct {
		raw      mat.Matrix
		uplo     blas.Uplo
		expected int
		err      error
	}{
		"nil":                  {nil, blas.Lower, 0, ErrNilMatrix},
		"not square":           {mat.NewDense(2, 3, nil), blas.Lower, 0, ErrNotSquare},
		"nan in read triangle": {withNaN, blas.Upper, 0, ErrNonFiniteEntry},
		"nan in other half":    {withNaN, blas.Lower, 2, nil},
		"infinite diagonal":    {mat.NewDense(1, 1, []float64{math.Inf(1)}), blas.Lower, 0, ErrNonFiniteEntry},
		"valid":                {mat.NewDense(3, 3, invalidRaw), blas.Lower, 3, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			n, err := checkRaw(td.raw, td.uplo)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, n)
		})
	}
}

func TestMethodText(t *testing.T) {
	for method, name := range methodNames {
		b, err := method.MarshalText()
		require.Nil(t, err)
		assert.Equal(t, name, string(b))

		var parsed Method
		require.Nil(t, parsed.UnmarshalText(b))
		assert.Equal(t, method, parsed)
	}

	_, err := Method(7).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownMethod)

	var parsed Method
	assert.ErrorIs(t, parsed.UnmarshalText([]byte("svd")), ErrUnknownMethod)
}

func TestWorkspaceFor(t *testing.T) {
	ws := newEigenWorkspace(3)
	assert.Same(t, ws, workspaceFor(Workspace(ws), 3, newEigenWorkspace))

	other := workspaceFor(Workspace(ws), 4, newEigenWorkspace)
	assert.NotSame(t, ws, other)
	assert.Equal(t, 4, other.Dim())

	ezi := workspaceFor(Workspace(ws), 3, newEziWorkspace)
	assert.Equal(t, 3, ezi.Dim())

	fresh := workspaceFor(nil, 2, newSapWorkspace)
	assert.Equal(t, 2, fresh.Dim())

	var typedNil *eziWorkspace
	assert.Equal(t, 0, typedNil.Dim())
}

func TestDecomposersShareCallOptions(t *testing.T) {
	ezn, err := NewEzn(nil)
	require.Nil(t, err)
	ezi, err := NewEzi(nil)
	require.Nil(t, err)
	sap, err := NewSap(nil)
	require.Nil(t, err)

	raw := mat.NewDense(3, 3, invalidRaw)
	for _, d := range []Decomposer{ezn, ezi, sap} {
		ws := d.NewWorkspace(3)
		dst := make([]float64, 9)
		co := &CallOptions{Dst: dst, Workspace: ws}

		// a reused workspace gives the same result
		first, state, err := d.Decompose(raw, co)
		require.Nil(t, err)
		second, _, err := d.Decompose(raw, &CallOptions{Workspace: ws})
		require.Nil(t, err)

		assert.Equal(t, 2, state.Rank())
		assert.True(t, mat.EqualApprox(first, second, 1e-12), state.Method().String())
		assert.Same(t, &dst[0], &first.RawMatrix().Data[0], state.Method().String())
		assert.True(t, isValidDecomposition(first, 1e-8), state.Method().String())

		// a workspace of another dimension is replaced
		_, _, err = d.Decompose(raw, &CallOptions{Workspace: d.NewWorkspace(5)})
		assert.Nil(t, err)
	}
}
