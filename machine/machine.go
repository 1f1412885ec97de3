// Package machine holds machine-scale floating point constants used as floors and caps
// by the numerical routines in this module.
package machine

import "math"

const (
	// Epsilon is the difference between 1.0 and the next representable float64.
	Epsilon = 2.220446049250313e-16

	// Small is Epsilon squared.
	Small = Epsilon * Epsilon

	// ExtremeTinyEpsilon is used as a positive floor for quantities that must not reach zero.
	ExtremeTinyEpsilon = Small * Small

	// Large is the reciprocal of Small.
	Large = 1.0 / Small

	// ExtremeLargeValue caps quantities that would otherwise overflow.
	ExtremeLargeValue = 1.0 / ExtremeTinyEpsilon
)

var (
	SqrtEpsilon       = math.Sqrt(Epsilon)
	FourthRootEpsilon = math.Sqrt(SqrtEpsilon)
)
