// Package optimizer provides derivative-free minimizers of scalar functions of several
// variables. An Optimizer is an immutable factory; each Run it creates owns its own mutable
// state and must not be used by more than one goroutine at a time.
package optimizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

var (
	ErrInvalidDimension = errors.New("dimension must be at least 1")
	ErrNoFunction       = errors.New("no function set to minimize")
	ErrPointLenMismatch = errors.New("initial point length does not match run dimension")
	ErrUnknownStatus    = errors.New("unknown termination status")
	ErrInvalidMinimum   = errors.New("minimum must be a number or a non-finite float name")
)

// Function is the objective to minimize. Implementations must not retain x.
type Function func(x []float64) float64

// Optimizer creates minimization runs for a fixed number of variables
type Optimizer interface {
	NewRun(dim int) (Run, error)
}

// Run is a single minimization instance
type Run interface {
	// SetFunction sets the objective used by FindMinimum
	SetFunction(f Function)

	// FindMinimum starts at x and overwrites it with the located argmin. Numerical
	// non-convergence is reported through Result.Status, never as an error.
	FindMinimum(x []float64) (Result, error)
}

// Termination classifies how a run stopped
type Termination int

const (
	ProperResult Termination = iota
	InvalidFunctionValue
	EvaluationLimitExceeded
	IterationLimitExceeded
)

var terminationNames = map[Termination]string{
	ProperResult:            "proper_result",
	InvalidFunctionValue:    "invalid_function_value",
	EvaluationLimitExceeded: "evaluation_limit_exceeded",
	IterationLimitExceeded:  "iteration_limit_exceeded",
}

func (t Termination) String() string {
	if name, exists := terminationNames[t]; exists {
		return name
	}
	return fmt.Sprintf("termination(%d)", int(t))
}

func (t Termination) MarshalText() ([]byte, error) {
	if _, exists := terminationNames[t]; !exists {
		return nil, fmt.Errorf("%d, %w", int(t), ErrUnknownStatus)
	}
	return []byte(t.String()), nil
}

func (t *Termination) UnmarshalText(text []byte) error {
	for term, name := range terminationNames {
		if name == string(text) {
			*t = term
			return nil
		}
	}
	return fmt.Errorf("%q, %w", string(text), ErrUnknownStatus)
}

// Result summarizes a finished run
type Result struct {
	Minimum     float64     `json:"minimum"`
	Status      Termination `json:"status"`
	Evaluations int         `json:"evaluations"`
	Iterations  int         `json:"iterations"`
}

type resultJSON struct {
	Minimum     json.RawMessage `json:"minimum"`
	Status      Termination     `json:"status"`
	Evaluations int             `json:"evaluations"`
	Iterations  int             `json:"iterations"`
}

// MarshalJSON writes a NaN or infinite minimum as the quoted strings "NaN", "+Inf" and "-Inf"
func (r Result) MarshalJSON() ([]byte, error) {
	var minimum []byte
	if isInvalid(r.Minimum) {
		minimum = strconv.AppendQuote(nil, strconv.FormatFloat(r.Minimum, 'g', -1, 64))
	} else {
		minimum = strconv.AppendFloat(nil, r.Minimum, 'g', -1, 64)
	}
	return json.Marshal(resultJSON{
		Minimum:     minimum,
		Status:      r.Status,
		Evaluations: r.Evaluations,
		Iterations:  r.Iterations,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var minimum float64
	if len(raw.Minimum) > 0 && raw.Minimum[0] == '"' {
		var name string
		if err := json.Unmarshal(raw.Minimum, &name); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(name, 64)
		if err != nil || !isInvalid(v) {
			return fmt.Errorf("%q, %w", name, ErrInvalidMinimum)
		}
		minimum = v
	} else if len(raw.Minimum) > 0 {
		if err := json.Unmarshal(raw.Minimum, &minimum); err != nil {
			return err
		}
	}

	*r = Result{
		Minimum:     minimum,
		Status:      raw.Status,
		Evaluations: raw.Evaluations,
		Iterations:  raw.Iterations,
	}
	return nil
}

func isInvalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
