package optimizer

import (
	"math"

	"github.com/aouyang1/go-correlation/machine"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// curveSearch selects the quadratic space curve through q0, x and q1 instead of a direction
const curveSearch = -1

// linearQuadraticMinimization minimizes the objective along direction j, or along the
// extrapolation curve when j is curveSearch, by fitting a parabola. d2 carries the second
// derivative estimate along the search line and is updated. x1 is an initial step guess
// whose value f1 is known when fk is set. At most nits step halvings are tried. The current
// point and value move to the accepted step, which is returned. An invalid function value
// leaves the current point in place and returns 0.
func (r *praxisRun) linearQuadraticMinimization(j, nits int, d2 *float64, x1, f1 float64, fk bool) float64 {
	sf1 := f1
	sx1 := x1
	k := 0
	xm := 0.0
	fm := r.fx
	f0 := r.fx
	dz := *d2 < machine.Epsilon

	// step size
	s := floats.Norm(r.x, 2)
	curv := *d2
	if dz {
		curv = r.dmn
	}
	t2 := machine.FourthRootEpsilon*math.Sqrt(math.Abs(r.fx)/curv+s*r.ldt) + machine.SqrtEpsilon*r.ldt
	s = machine.FourthRootEpsilon*s + r.t
	if dz && s < t2 {
		t2 = s
	}
	t2 = math.Max(t2, machine.Small)
	t2 = math.Min(t2, 0.01*r.h)

	if fk && f1 <= fm {
		xm = x1
		fm = f1
	}
	if !fk || math.Abs(x1) < t2 {
		if x1 >= 0 {
			x1 = t2
		} else {
			x1 = -t2
		}
		f1 = r.lineValue(j, x1)
		if r.invalid {
			return r.abandonSearch()
		}
	}
	if f1 <= fm {
		xm = x1
		fm = f1
	}

	var x2, f2 float64
	for {
		// second evaluation to estimate the second derivative
		if dz {
			if f1 <= f0 {
				x2 = 2.0 * x1
			} else {
				x2 = -x1
			}
			f2 = r.lineValue(j, x2)
			if r.invalid {
				return r.abandonSearch()
			}
			if f2 <= fm {
				xm = x2
				fm = f2
			}
			*d2 = (x2*(f1-f0) - x1*(f2-f0)) / ((x1 * x2) * (x1 - x2))
		}

		// first derivative at 0
		d1 := (f1-f0)/x1 - x1*(*d2)
		dz = true

		// predicted minimum
		if *d2 <= machine.Small {
			if d1 >= 0 {
				x2 = -r.h
			} else {
				x2 = r.h
			}
		} else {
			x2 = -0.5 * d1 / *d2
		}
		if math.Abs(x2) > r.h {
			if x2 <= 0 {
				x2 = -r.h
			} else {
				x2 = r.h
			}
		}

		ok := true
		for {
			f2 = r.lineValue(j, x2)
			if r.invalid {
				return r.abandonSearch()
			}
			if k >= nits || f2 <= f0 {
				break
			}
			k++
			if f0 < f1 && x1*x2 > 0 {
				ok = false
				break
			}
			x2 *= 0.5
		}
		if ok {
			break
		}
	}

	r.nl++
	if fm < f2 {
		x2 = xm
	} else {
		fm = f2
	}

	if math.Abs(x2*(x2-x1)) > machine.Small {
		*d2 = (x2*(f1-f0) - x1*(fm-f0)) / ((x1 * x2) * (x1 - x2))
	} else if k > 0 {
		*d2 = 0
	}
	*d2 = math.Max(*d2, machine.Small)

	x1 = x2
	r.fx = fm
	if sf1 < r.fx {
		r.fx = sf1
		x1 = sx1
	}

	if j != curveSearch {
		blas64.Axpy(x1, r.column(j), blas64.Vector{N: r.n, Inc: 1, Data: r.x})
	}
	return x1
}

func (r *praxisRun) abandonSearch() float64 {
	r.fx = r.badF
	return 0
}

// lineValue evaluates the objective at step l along direction j or along the quadratic
// curve through q0, x and q1 parameterized by arc length
func (r *praxisRun) lineValue(j int, l float64) float64 {
	if j != curveSearch {
		col := r.v[j*r.n : (j+1)*r.n]
		for i := 0; i < r.n; i++ {
			r.trial[i] = r.x[i] + l*col[i]
		}
		return r.evaluate(r.trial)
	}

	r.setCurveWeights(l)
	for i := 0; i < r.n; i++ {
		r.trial[i] = r.qa*r.q0[i] + r.qb*r.x[i] + r.qc*r.q1[i]
	}
	return r.evaluate(r.trial)
}

// setCurveWeights computes the Lagrange weights of q0, x and q1 at curve parameter l, where
// q0 sits at -qd0, x at 0 and q1 at qd1
func (r *praxisRun) setCurveWeights(l float64) {
	r.qa = l * (l - r.qd1) / (r.qd0 + r.qd1) / r.qd0
	r.qb = -(l + r.qd0) * (l - r.qd1) / r.qd1 / r.qd0
	r.qc = (l + r.qd0) * l / r.qd1 / (r.qd0 + r.qd1)
}

// quadraticExtrapolation searches along the parabola through the last two pivot points and
// the current point to follow curved valleys
func (r *praxisRun) quadraticExtrapolation() {
	n := r.n
	r.fx, r.qf1 = r.qf1, r.fx
	for i := 0; i < n; i++ {
		r.x[i], r.q1[i] = r.q1[i], r.x[i]
	}
	r.qd1 = floats.Distance(r.x, r.q1, 2)

	if r.qd0 <= 0 || r.qd1 <= 0 || r.nl < 3*n*n {
		r.fx = r.qf1
		r.qa = 0
		r.qb = 0
		r.qc = 1
	} else {
		var s float64
		l := r.linearQuadraticMinimization(curveSearch, 2, &s, r.qd1, r.qf1, true)
		if r.invalid {
			return
		}
		r.setCurveWeights(l)
	}
	r.qd0 = r.qd1

	for i := 0; i < n; i++ {
		s := r.q0[i]
		r.q0[i] = r.x[i]
		r.x[i] = r.qa*s + r.qb*r.x[i] + r.qc*r.q1[i]
	}
}
