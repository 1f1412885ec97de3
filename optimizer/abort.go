package optimizer

import (
	"errors"
	"math"
)

const (
	DefaultTolerance              = 1e-10
	DefaultMaxEvaluations         = 100000
	DefaultMaxIterations          = 10000
	DefaultRequiredAcceptedPoints = 2
)

var (
	ErrNegativeTolerance      = errors.New("negative tolerance")
	ErrNegativeMaxEvaluations = errors.New("negative max evaluations")
	ErrNegativeMaxIterations  = errors.New("negative max iterations")
	ErrNegativeAcceptedPoints = errors.New("negative required number of accepted points")
	ErrInvalidAbortCondition  = errors.New("abort condition can never be satisfied")
)

// AbortCondition decides when a run stops. A zero MaxEvaluations or MaxIterations means
// unbounded; a NaN Tolerance disables the function value test.
type AbortCondition struct {
	// Tolerance bounds the change of the function value between consecutive checks, both
	// absolute and relative to the current value.
	Tolerance float64 `json:"tolerance"`

	MaxEvaluations int `json:"max_evaluations"`
	MaxIterations  int `json:"max_iterations"`

	// RequiredAcceptedPoints is the number of consecutive checks that must satisfy the
	// tolerance test before the run reports a proper result.
	RequiredAcceptedPoints int `json:"required_accepted_points"`
}

// NewDefaultAbortCondition returns a freshly allocated default abort condition
func NewDefaultAbortCondition() *AbortCondition {
	return &AbortCondition{
		Tolerance:              DefaultTolerance,
		MaxEvaluations:         DefaultMaxEvaluations,
		MaxIterations:          DefaultMaxIterations,
		RequiredAcceptedPoints: DefaultRequiredAcceptedPoints,
	}
}

// Validate runs basic validation on the abort condition
func (a *AbortCondition) Validate() (*AbortCondition, error) {
	if a == nil {
		a = NewDefaultAbortCondition()
	}
	cp := *a
	a = &cp
	if a.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	if a.MaxEvaluations < 0 {
		return nil, ErrNegativeMaxEvaluations
	}
	if a.MaxIterations < 0 {
		return nil, ErrNegativeMaxIterations
	}
	if a.RequiredAcceptedPoints < 0 {
		return nil, ErrNegativeAcceptedPoints
	}
	if math.IsNaN(a.Tolerance) && a.MaxEvaluations == 0 && a.MaxIterations == 0 {
		return nil, ErrInvalidAbortCondition
	}
	return a, nil
}

// IsSatisfied reports whether the change from previous to current is within tolerance
func (a *AbortCondition) IsSatisfied(previous, current float64) bool {
	diff := math.Abs(previous - current)
	return diff <= a.Tolerance || diff <= a.Tolerance*math.Abs(current)
}

// acceptance counts consecutive satisfied checks
type acceptance struct {
	abort *AbortCondition
	last  float64
	count int
}

func newAcceptance(abort *AbortCondition, initial float64) *acceptance {
	return &acceptance{abort: abort, last: initial}
}

func (a *acceptance) accept(current float64) bool {
	if a.abort.IsSatisfied(a.last, current) {
		a.count++
	} else {
		a.count = 0
	}
	a.last = current

	required := a.abort.RequiredAcceptedPoints
	if required < 1 {
		required = 1
	}
	return a.count >= required
}
