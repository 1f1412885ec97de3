package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxCheck(t *testing.T) {
	testData := map[string]struct {
		box Box
		dim int
		err error
	}{
		"valid": {
			box: Box{Lower: []float64{0, -1}, Upper: []float64{1, 1}},
			dim: 2,
		},
		"length mismatch": {
			box: Box{Lower: []float64{0}, Upper: []float64{1, 1}},
			dim: 2,
			err: ErrBoundsLenMismatch,
		},
		"inverted": {
			box: Box{Lower: []float64{1}, Upper: []float64{0}},
			dim: 1,
			err: ErrInvalidBounds,
		},
		"nan bound": {
			box: Box{Lower: []float64{math.NaN()}, Upper: []float64{0}},
			dim: 1,
			err: ErrInvalidBounds,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.box.Check(td.dim)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestBoxRoundTrip(t *testing.T) {
	box := Box{Lower: []float64{-2, 0, 10}, Upper: []float64{2, 1, 20}}
	x := []float64{0.5, 1, 10}
	y := make([]float64, 3)
	back := make([]float64, 3)

	box.ToInternal(y, x)
	box.ToExternal(back, y)
	assert.InDeltaSlice(t, x, back, 1e-12)

	// any internal point lands inside the box
	box.ToExternal(back, []float64{100, -37, 1e6})
	for i := range back {
		assert.GreaterOrEqual(t, back[i], box.Lower[i])
		assert.LessOrEqual(t, back[i], box.Upper[i])
	}
}

func TestUnconstrained(t *testing.T) {
	var u Unconstrained
	assert.Nil(t, u.Check(3))
	dst := make([]float64, 2)
	u.ToInternal(dst, []float64{1, 2})
	assert.Equal(t, []float64{1, 2}, dst)
	u.ToExternal(dst, []float64{3, 4})
	assert.Equal(t, []float64{3, 4}, dst)
}
