package optimizer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// minStallIterations is the least number of consecutive simplex iterations without
// improvement before a run is considered converged. A simplex often keeps its best vertex
// for a few iterations while it reshapes.
const minStallIterations = 100

var ErrInvalidSimplexSize = errors.New("simplex size must be a non-negative number")

// NelderMeadOptions configures the gonum Nelder-Mead adapter
type NelderMeadOptions struct {
	Abort *AbortCondition `json:"abort"`

	// SimplexSize is the edge length of the initial simplex. 0 uses gonum's default.
	SimplexSize float64 `json:"simplex_size"`
}

func NewDefaultNelderMeadOptions() *NelderMeadOptions {
	return &NelderMeadOptions{
		Abort: NewDefaultAbortCondition(),
	}
}

// Validate runs basic validation on Nelder-Mead options
func (o *NelderMeadOptions) Validate() (*NelderMeadOptions, error) {
	if o == nil {
		o = NewDefaultNelderMeadOptions()
	}
	cp := *o
	o = &cp
	if o.SimplexSize < 0 || math.IsNaN(o.SimplexSize) {
		return nil, ErrInvalidSimplexSize
	}
	abort, err := o.Abort.Validate()
	if err != nil {
		return nil, err
	}
	o.Abort = abort
	return o, nil
}

// NelderMead adapts gonum's downhill simplex method to the Optimizer interface
type NelderMead struct {
	opt *NelderMeadOptions
}

func NewNelderMead(opt *NelderMeadOptions) (*NelderMead, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &NelderMead{opt: opt}, nil
}

func (nm *NelderMead) NewRun(dim int) (Run, error) {
	if dim < 1 {
		return nil, fmt.Errorf("got %d, %w", dim, ErrInvalidDimension)
	}
	return &nelderMeadRun{opt: nm.opt, n: dim}, nil
}

type nelderMeadRun struct {
	opt *NelderMeadOptions
	n   int
	f   Function
}

func (r *nelderMeadRun) SetFunction(f Function) {
	r.f = f
}

var statusTermination = map[optimize.Status]Termination{
	optimize.Success:                  ProperResult,
	optimize.FunctionThreshold:        ProperResult,
	optimize.FunctionConvergence:      ProperResult,
	optimize.StepConvergence:          ProperResult,
	optimize.MethodConverge:           ProperResult,
	optimize.FunctionNegativeInfinity: InvalidFunctionValue,
	optimize.FunctionEvaluationLimit:  EvaluationLimitExceeded,
	optimize.IterationLimit:           IterationLimitExceeded,
}

func (r *nelderMeadRun) FindMinimum(x []float64) (Result, error) {
	if r.f == nil {
		return Result{}, ErrNoFunction
	}
	if len(x) != r.n {
		return Result{}, fmt.Errorf("got %d coordinates for dimension %d, %w", len(x), r.n, ErrPointLenMismatch)
	}

	abort := r.opt.Abort
	problem := optimize.Problem{
		Func: func(p []float64) float64 { return r.f(p) },
	}
	settings := &optimize.Settings{
		FuncEvaluations: abort.MaxEvaluations,
		MajorIterations: abort.MaxIterations,
	}
	if !math.IsNaN(abort.Tolerance) {
		settings.Converger = &optimize.FunctionConverge{
			Absolute:   abort.Tolerance,
			Relative:   abort.Tolerance,
			Iterations: max(abort.RequiredAcceptedPoints, minStallIterations),
		}
	}
	method := &optimize.NelderMead{SimplexSize: r.opt.SimplexSize}

	res, err := optimize.Minimize(problem, x, settings, method)
	if res == nil {
		return Result{}, fmt.Errorf("nelder-mead did not start, %w", err)
	}

	out := Result{
		Minimum:     res.F,
		Evaluations: res.Stats.FuncEvaluations,
		Iterations:  res.Stats.MajorIterations,
	}
	copy(x, res.X)
	if isInvalid(res.F) {
		out.Status = InvalidFunctionValue
		return out, nil
	}

	status, known := statusTermination[res.Status]
	if !known {
		if err == nil {
			err = ErrUnknownStatus
		}
		return out, fmt.Errorf("nelder-mead stopped with %s, %w", res.Status, err)
	}
	out.Status = status
	return out, nil
}
