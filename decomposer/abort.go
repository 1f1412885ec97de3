package decomposer

import (
	"math"

	"github.com/aouyang1/go-correlation/floatsunrolled"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultEziTolerance1 applies to ‖qNormalized − q‖, not to the ‖qNormalized − (p − q)‖
	// criterion selected by ReferenceOperandOrder
	DefaultEziTolerance1    = 1e-8
	DefaultEziTolerance2    = 1e-12
	DefaultEziMaxIterations = 1000
)

// EziAbortCondition decides when EZI stops iterating. A NaN or zero tolerance disables its
// test and a zero MaxIterations means unbounded.
type EziAbortCondition struct {
	// Tolerance1 bounds the distance between the current iterate and the reconstruction of
	// its row normalized decomposition
	Tolerance1 float64 `json:"tolerance1"`

	// Tolerance2 bounds the change of the distance between consecutive iterates
	Tolerance2 float64 `json:"tolerance2"`

	// MaxIterations may only be 0 when one of the tolerances is positive
	MaxIterations int `json:"max_iterations"`

	// ReferenceOperandOrder measures the normalized reconstruction against the difference of
	// the consecutive iterates instead of the current iterate
	ReferenceOperandOrder bool `json:"reference_operand_order"`
}

// NewDefaultEziAbortCondition returns a freshly allocated default EZI abort condition
func NewDefaultEziAbortCondition() *EziAbortCondition {
	return &EziAbortCondition{
		Tolerance1:    DefaultEziTolerance1,
		Tolerance2:    DefaultEziTolerance2,
		MaxIterations: DefaultEziMaxIterations,
	}
}

// Validate runs basic validation on the abort condition
func (c *EziAbortCondition) Validate() (*EziAbortCondition, error) {
	if c == nil {
		c = NewDefaultEziAbortCondition()
	}
	cp := *c
	c = &cp
	if c.Tolerance1 < 0 || c.Tolerance2 < 0 {
		return nil, ErrNegativeTolerance
	}
	if c.MaxIterations < 0 {
		return nil, ErrNegativeMaxIterations
	}
	if !testsDistance(c.Tolerance1) && !testsDistance(c.Tolerance2) && c.MaxIterations == 0 {
		return nil, ErrInvalidAbortCondition
	}
	return c, nil
}

// testsDistance reports whether a distance, compared with a strict less than, can ever pass tol
func testsDistance(tol float64) bool {
	return tol > 0
}

// IsSatisfied compares the n×n iterates. p is overwritten with p-q and a, the previous
// distance between iterates, is replaced by the current one.
func (c *EziAbortCondition) IsSatisfied(n int, p, q, qNormalized []float64, a *float64) bool {
	size := n * n
	p, q, qNormalized = p[:size], q[:size], qNormalized[:size]

	floatsunrolled.SubTo(p, p, q)
	normA := floats.Norm(p, 2)

	var normB float64
	if c.ReferenceOperandOrder {
		normB = math.Sqrt(floatsunrolled.SquaredDistance(qNormalized, p))
	} else {
		normB = math.Sqrt(floatsunrolled.SquaredDistance(qNormalized, q))
	}

	prev := *a
	*a = normA
	return normB < c.Tolerance1 || math.Abs(prev-normA) < c.Tolerance2
}
