package optimizer

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrBoundsLenMismatch = errors.New("bounds length does not match dimension")
	ErrInvalidBounds     = errors.New("lower bound must be below upper bound")
)

// Constraint maps between the caller's coordinates and the unconstrained coordinates the
// optimizer searches in
type Constraint interface {
	// Check validates the constraint for a run of the given dimension
	Check(dim int) error

	// ToInternal writes the search coordinates of the external point x into dst
	ToInternal(dst, x []float64)

	// ToExternal writes the external point of the search coordinates y into dst
	ToExternal(dst, y []float64)
}

// Unconstrained is the identity mapping
type Unconstrained struct{}

func (Unconstrained) Check(int) error { return nil }

func (Unconstrained) ToInternal(dst, x []float64) { copy(dst, x) }

func (Unconstrained) ToExternal(dst, y []float64) { copy(dst, y) }

// Box restricts every coordinate to [Lower[i], Upper[i]] through the transformation
// x = l + (u-l)(1+sin y)/2
type Box struct {
	Lower []float64
	Upper []float64
}

func (b Box) Check(dim int) error {
	if len(b.Lower) != dim || len(b.Upper) != dim {
		return fmt.Errorf("got %d lower and %d upper bounds for dimension %d, %w", len(b.Lower), len(b.Upper), dim, ErrBoundsLenMismatch)
	}
	for i := range b.Lower {
		if !(b.Lower[i] < b.Upper[i]) {
			return fmt.Errorf("coordinate %d, %w", i, ErrInvalidBounds)
		}
	}
	return nil
}

func (b Box) ToInternal(dst, x []float64) {
	for i := range x {
		s := 2.0*(x[i]-b.Lower[i])/(b.Upper[i]-b.Lower[i]) - 1.0
		s = math.Max(-1.0, math.Min(1.0, s))
		dst[i] = math.Asin(s)
	}
}

func (b Box) ToExternal(dst, y []float64) {
	for i := range y {
		dst[i] = b.Lower[i] + (b.Upper[i]-b.Lower[i])*(1.0+math.Sin(y[i]))/2.0
	}
}
