package optimizer

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aouyang1/go-correlation/machine"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultScalingFactor    = 1.0
	DefaultExpectedDistance = 1.0
	DefaultStepTolerance    = 1e-8

	// seeds of the stream used when no Source is configured
	defaultSeed1 = 0x9e3779b97f4a7c15
	defaultSeed2 = 0xbf58476d1ce4e5b9
)

var (
	ErrInvalidScalingFactor    = errors.New("scaling factor must be a non-negative number")
	ErrInvalidExpectedDistance = errors.New("expected distance must be a non-negative number")
	ErrInvalidStepTolerance    = errors.New("step tolerance must be a non-negative number")
)

// PraxisOptions configures Brent's principal axis method
type PraxisOptions struct {
	// ScalingFactor above 1.0 enables rescaling of the axes for badly scaled problems. It
	// bounds the ratio of the applied scale factors.
	ScalingFactor float64 `json:"scaling_factor"`

	// ExpectedDistance is a guess of the distance from the initial point to the minimum and
	// bounds the step of every line search.
	ExpectedDistance float64 `json:"expected_distance"`

	// StepTolerance is the absolute resolution in the search coordinates
	StepTolerance float64 `json:"step_tolerance"`

	Abort *AbortCondition `json:"abort"`

	// Source drives the random perturbations applied while the search is ill-conditioned.
	// Runs sharing a Source must not execute concurrently. A nil Source gives every run its
	// own stream with a fixed seed.
	Source rand.Source `json:"-"`

	// Constraint maps the search to the caller's coordinates. nil means Unconstrained.
	Constraint Constraint `json:"-"`
}

// NewDefaultPraxisOptions returns a default set of PRAXIS options
func NewDefaultPraxisOptions() *PraxisOptions {
	return &PraxisOptions{
		ScalingFactor:    DefaultScalingFactor,
		ExpectedDistance: DefaultExpectedDistance,
		StepTolerance:    DefaultStepTolerance,
		Abort:            NewDefaultAbortCondition(),
		Constraint:       Unconstrained{},
	}
}

// Validate runs basic validation on PRAXIS options
func (p *PraxisOptions) Validate() (*PraxisOptions, error) {
	if p == nil {
		p = NewDefaultPraxisOptions()
	}
	o := *p
	p = &o
	if p.ScalingFactor < 0 || math.IsNaN(p.ScalingFactor) {
		return nil, ErrInvalidScalingFactor
	}
	if p.ExpectedDistance < 0 || math.IsNaN(p.ExpectedDistance) {
		return nil, ErrInvalidExpectedDistance
	}
	if p.StepTolerance < 0 || math.IsNaN(p.StepTolerance) {
		return nil, ErrInvalidStepTolerance
	}
	abort, err := p.Abort.Validate()
	if err != nil {
		return nil, err
	}
	p.Abort = abort
	if p.Constraint == nil {
		p.Constraint = Unconstrained{}
	}
	return p, nil
}

// Praxis minimizes functions without derivatives using Brent's principal axis method. It is
// safe for concurrent use; the runs it creates are not.
type Praxis struct {
	opt *PraxisOptions
}

// NewPraxis initializes a PRAXIS optimizer
func NewPraxis(opt *PraxisOptions) (*Praxis, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Praxis{opt: opt}, nil
}

// NewRun allocates the state of a single minimization of dim variables
func (p *Praxis) NewRun(dim int) (Run, error) {
	if dim < 1 {
		return nil, fmt.Errorf("got %d, %w", dim, ErrInvalidDimension)
	}
	if err := p.opt.Constraint.Check(dim); err != nil {
		return nil, err
	}

	src := p.opt.Source
	if src == nil {
		src = rand.NewPCG(defaultSeed1, defaultSeed2)
	}

	return &praxisRun{
		opt:   p.opt,
		n:     dim,
		rng:   newUniformStream(src),
		ext:   make([]float64, dim),
		best:  make([]float64, dim),
		bad:   make([]float64, dim),
		x:     make([]float64, dim),
		y:     make([]float64, dim),
		z:     make([]float64, dim),
		d:     make([]float64, dim),
		q0:    make([]float64, dim),
		q1:    make([]float64, dim),
		trial: make([]float64, dim),
		sv:    make([]float64, dim),
		v:     make([]float64, dim*dim),
	}, nil
}

// uniformStream is the private single consumer adapter of the configured random source
type uniformStream struct {
	r *rand.Rand
}

func newUniformStream(src rand.Source) *uniformStream {
	return &uniformStream{r: rand.New(src)}
}

// next returns a uniform sample in [0, 1)
func (u *uniformStream) next() float64 {
	return u.r.Float64()
}

// praxisRun holds the mutable state of one minimization. Search directions are the columns
// of v stored column-major, so direction j is v[j*n : (j+1)*n].
type praxisRun struct {
	opt *PraxisOptions
	n   int
	f   Function
	rng *uniformStream

	ext   []float64
	best  []float64
	bestF float64

	// bad holds the caller coordinates of the first invalid function value
	bad     []float64
	badF    float64
	invalid bool

	x, y, z []float64
	d       []float64 // curvature estimates along each direction
	q0, q1  []float64 // pivot points of the quadratic extrapolation
	trial   []float64
	sv      []float64
	v       []float64

	fx, qf1            float64
	qa, qb, qc         float64
	qd0, qd1           float64
	h, t, t2, ldt, dmn float64

	nl, nf int
	illc   bool

	svd mat.SVD
	w   mat.Dense
}

func (r *praxisRun) SetFunction(f Function) {
	r.f = f
}

// FindMinimum minimizes the objective starting at x and overwrites x with the result. For
// every status except InvalidFunctionValue the best point evaluated is returned; an invalid
// function value returns the point that produced it.
func (r *praxisRun) FindMinimum(x []float64) (Result, error) {
	if r.f == nil {
		return Result{}, ErrNoFunction
	}
	if len(x) != r.n {
		return Result{}, fmt.Errorf("got %d coordinates for dimension %d, %w", len(x), r.n, ErrPointLenMismatch)
	}

	r.opt.Constraint.ToInternal(r.x, x)
	r.nf = 0
	r.nl = 0
	r.bestF = math.Inf(1)
	r.invalid = false
	r.fx = r.evaluate(r.x)

	var res Result
	if r.invalid {
		res.Status = InvalidFunctionValue
	} else {
		res.Status, res.Iterations = r.minimize()
	}
	res.Evaluations = r.nf

	if res.Status == InvalidFunctionValue {
		res.Minimum = r.badF
		copy(x, r.bad)
		return res, nil
	}
	res.Minimum = r.bestF
	r.opt.Constraint.ToExternal(x, r.best)
	return res, nil
}

// evaluate calls the objective at the search coordinates p and records the best point. The
// first invalid value latches the run; every search returns without evaluating again.
func (r *praxisRun) evaluate(p []float64) float64 {
	if r.invalid {
		return r.badF
	}
	r.nf++
	r.opt.Constraint.ToExternal(r.ext, p)
	val := r.f(r.ext)
	if isInvalid(val) {
		r.invalid = true
		r.badF = val
		copy(r.bad, r.ext)
		return val
	}
	if val < r.bestF {
		r.bestF = val
		copy(r.best, p)
	}
	return val
}

func (r *praxisRun) column(j int) blas64.Vector {
	return blas64.Vector{N: r.n, Inc: 1, Data: r.v[j*r.n : (j+1)*r.n]}
}

func (r *praxisRun) row(i int) blas64.Vector {
	return blas64.Vector{N: r.n, Inc: r.n, Data: r.v[i:]}
}

// minimize runs the outer iterations and returns the termination and iteration count
func (r *praxisRun) minimize() (Termination, int) {
	n := r.n
	abort := r.opt.Abort

	r.t = machine.Small + math.Abs(r.opt.StepTolerance)
	r.t2 = r.t
	r.dmn = machine.Small
	r.h = math.Max(r.opt.ExpectedDistance, 100.0*r.t)
	r.ldt = r.h
	r.illc = true

	for i := range r.v {
		r.v[i] = 0
	}
	for j := 0; j < n; j++ {
		r.v[j*n+j] = 1.0
		r.d[j] = 0
	}
	r.qd0 = 0
	r.qd1 = 0
	copy(r.q0, r.x)
	copy(r.q1, r.x)
	r.qf1 = r.fx

	acc := newAcceptance(abort, r.fx)

	for iter := 1; abort.MaxIterations == 0 || iter <= abort.MaxIterations; iter++ {
		sf := r.d[0]
		r.d[0] = 0
		s := r.linearQuadraticMinimization(0, 2, &r.d[0], 0, r.fx, false)
		if r.invalid {
			return InvalidFunctionValue, iter
		}
		if s <= 0 {
			blas64.Scal(-1, r.column(0))
		}
		if sf <= 0.9*r.d[0] || r.d[0] <= 0.9*sf {
			for i := 1; i < n; i++ {
				r.d[i] = 0
			}
		}

		if n == 1 {
			if status, done := r.checkTermination(acc); done {
				return status, iter
			}
		}

		for k := 1; k < n; k++ {
			if status, done := r.processDirection(k); done {
				return status, iter
			}
			if status, done := r.checkTermination(acc); done {
				return status, iter
			}
		}

		r.quadraticExtrapolation()
		if r.invalid {
			return InvalidFunctionValue, iter
		}
		r.updateDirections()
	}
	return IterationLimitExceeded, abort.MaxIterations
}

// processDirection performs the searches of inner step k and replaces the direction with
// the largest improvement by the conjugate direction it found
func (r *praxisRun) processDirection(k int) (Termination, bool) {
	n := r.n
	copy(r.y, r.x)
	sf := r.fx

	var kl int
	for {
		kl = k
		df := 0.0
		if r.illc {
			r.perturb()
			if r.invalid {
				return InvalidFunctionValue, true
			}
		}

		for k2 := k; k2 < n; k2++ {
			sl := r.fx
			s := r.linearQuadraticMinimization(k2, 2, &r.d[k2], 0, r.fx, false)
			if r.invalid {
				return InvalidFunctionValue, true
			}
			var improvement float64
			if r.illc {
				improvement = r.d[k2] * (s + r.z[k2]) * (s + r.z[k2])
			} else {
				improvement = sl - r.fx
			}
			if df <= improvement {
				df = improvement
				kl = k2
			}
		}

		// retry once with random steps when there was not much improvement
		if r.illc || math.Abs(100.0*machine.Epsilon*r.fx) <= df {
			break
		}
		r.illc = true
	}

	for k2 := 0; k2 < k; k2++ {
		r.linearQuadraticMinimization(k2, 2, &r.d[k2], 0, r.fx, false)
		if r.invalid {
			return InvalidFunctionValue, true
		}
	}

	f1 := r.fx
	r.fx = sf
	for i := 0; i < n; i++ {
		tmp := r.x[i]
		r.x[i] = r.y[i]
		r.y[i] = tmp - r.y[i]
	}
	lds := floats.Norm(r.y, 2)

	if lds > machine.Small {
		// drop direction kl and insert the normalized displacement at position k
		for j := kl; j > k; j-- {
			copy(r.v[j*n:(j+1)*n], r.v[(j-1)*n:j*n])
			r.d[j] = r.d[j-1]
		}
		r.d[k] = 0
		col := r.v[k*n : (k+1)*n]
		for i := 0; i < n; i++ {
			col[i] = r.y[i] / lds
		}

		lds = r.linearQuadraticMinimization(k, 4, &r.d[k], lds, f1, true)
		if r.invalid {
			return InvalidFunctionValue, true
		}
		if lds <= 0 {
			lds = -lds
			blas64.Scal(-1, r.column(k))
		}
	}

	ldfac := 0.01
	if r.illc {
		ldfac = 0.1
	}
	r.ldt = math.Max(ldfac*r.ldt, lds)
	r.t2 = machine.SqrtEpsilon*floats.Norm(r.x, 2) + r.t
	return 0, false
}

// perturb takes a random step along every direction to escape a resolution valley. The
// step scale is deliberately not grown on repeated perturbations; growing it performed
// worse in practice.
func (r *praxisRun) perturb() {
	for j := 0; j < r.n; j++ {
		s := (0.1*r.ldt + r.t2) * (r.rng.next() - 0.5)
		r.z[j] = s
		blas64.Axpy(s, r.column(j), blas64.Vector{N: r.n, Inc: 1, Data: r.x})
	}
	r.fx = r.evaluate(r.x)
}

func (r *praxisRun) checkTermination(acc *acceptance) (Termination, bool) {
	if r.invalid {
		return InvalidFunctionValue, true
	}
	if acc.accept(r.fx) {
		return ProperResult, true
	}
	if maxEvals := r.opt.Abort.MaxEvaluations; maxEvals > 0 && r.nf >= maxEvals {
		return EvaluationLimitExceeded, true
	}
	return 0, false
}

// updateDirections rebuilds an orthogonal principal axis direction set from the curvature
// estimates of the last iteration, sorted by decreasing curvature
func (r *praxisRun) updateDirections() {
	n := r.n
	scbd := r.opt.ScalingFactor

	for j := 0; j < n; j++ {
		r.d[j] = 1.0 / math.Sqrt(math.Max(r.d[j], machine.Small))
	}
	dn := floats.Max(r.d)
	for j := 0; j < n; j++ {
		blas64.Scal(r.d[j]/dn, r.column(j))
	}

	if scbd > 1.0 {
		for i := 0; i < n; i++ {
			r.z[i] = math.Max(machine.FourthRootEpsilon, blas64.Nrm2(r.row(i)))
		}
		s := floats.Min(r.z)
		for i := 0; i < n; i++ {
			sl := s / r.z[i]
			r.z[i] = 1.0 / sl
			if r.z[i] > scbd {
				sl = 1.0 / scbd
				r.z[i] = scbd
			}
			blas64.Scal(sl, r.row(i))
		}
	}

	// the column-major v read row-major is its transpose; the right singular vectors of the
	// transpose are the principal axes
	vt := mat.NewDense(n, n, r.v)
	if ok := r.svd.Factorize(vt, mat.SVDFull); !ok {
		r.resetDirections()
		return
	}
	r.svd.VTo(&r.w)
	r.svd.Values(r.sv)
	for j := 0; j < n; j++ {
		col := r.v[j*n : (j+1)*n]
		for i := 0; i < n; i++ {
			col[i] = r.w.At(i, j)
		}
		r.d[j] = r.sv[j]
	}

	if scbd > 1.0 {
		for i := 0; i < n; i++ {
			blas64.Scal(r.z[i], r.row(i))
		}
		for j := 0; j < n; j++ {
			s := blas64.Nrm2(r.column(j))
			r.d[j] *= s
			if s > 0 {
				blas64.Scal(1.0/s, r.column(j))
			}
		}
	}

	for i := 0; i < n; i++ {
		dni := dn * r.d[i]
		switch {
		case dni > machine.Large:
			r.d[i] = machine.ExtremeTinyEpsilon
		case dni < machine.Small:
			r.d[i] = machine.ExtremeLargeValue
		default:
			r.d[i] = 1.0 / dni / dni
		}
	}

	r.sortDirections()

	r.dmn = math.Max(r.d[n-1], machine.Small)
	r.illc = r.dmn < machine.SqrtEpsilon*r.d[0]
}

// resetDirections falls back to the coordinate axes
func (r *praxisRun) resetDirections() {
	n := r.n
	for i := range r.v {
		r.v[i] = 0
	}
	for j := 0; j < n; j++ {
		r.v[j*n+j] = 1.0
		r.d[j] = machine.Small
	}
	r.dmn = machine.Small
	r.illc = true
}

// sortDirections selection sorts d descending and permutes the columns of v alongside
func (r *praxisRun) sortDirections() {
	n := r.n
	for j := 0; j < n-1; j++ {
		k := j
		s := r.d[j]
		for i := j + 1; i < n; i++ {
			if s < r.d[i] {
				k = i
				s = r.d[i]
			}
		}
		if k > j {
			r.d[k] = r.d[j]
			r.d[j] = s
			blas64.Swap(r.column(j), r.column(k))
		}
	}
}
