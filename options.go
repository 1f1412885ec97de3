package correlation

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-correlation/decomposer"
	"github.com/aouyang1/go-correlation/optimizer"
)

var (
	ErrUnknownMethod           = errors.New("unknown repair method")
	ErrNegativeParallelization = errors.New("negative parallelization")
	ErrNegativeTolerance       = errors.New("negative validity tolerance")
)

const DefaultTolerance = 1e-8

// Method selects the decomposition used to repair a raw correlation matrix
type Method string

const (
	MethodEzn Method = "ezn"
	MethodEzi Method = "ezi"
	MethodSap Method = "sap"

	// MethodSapNelderMead runs the angle refinement with gonum's Nelder-Mead instead of PRAXIS
	MethodSapNelderMead Method = "sap-nm"
)

// Methods lists every supported repair method
var Methods = []Method{MethodEzn, MethodEzi, MethodSap, MethodSapNelderMead}

// ParseMethod returns the method named by s
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%q, %w", s, ErrUnknownMethod)
}

// Options configures a Repairer
type Options struct {
	Method Method `json:"method"`

	// MaxRank bounds the rank of the repaired matrix. 0 keeps every positive eigenvalue.
	MaxRank int `json:"max_rank"`

	EziAbort   *decomposer.EziAbortCondition `json:"ezi_abort"`
	Praxis     *optimizer.PraxisOptions      `json:"praxis"`
	NelderMead *optimizer.NelderMeadOptions  `json:"nelder_mead"`

	// RecordDiagnostics keeps the EZI norm and eigenvalue history and the SAP angles
	RecordDiagnostics bool `json:"record_diagnostics"`

	// Parallelization limits the number of concurrent repairs in RepairBatch. 0 means one per
	// CPU.
	Parallelization int `json:"parallelization"`

	// Tolerance is the slack allowed when validating the repaired matrix
	Tolerance float64 `json:"tolerance"`
}

// NewDefaultOptions repairs with EZI using its default abort condition
func NewDefaultOptions() *Options {
	return &Options{
		Method:     MethodEzi,
		EziAbort:   decomposer.NewDefaultEziAbortCondition(),
		Praxis:     optimizer.NewDefaultPraxisOptions(),
		NelderMead: optimizer.NewDefaultNelderMeadOptions(),
		Tolerance:  DefaultTolerance,
	}
}

// Validate runs basic validation on the options and returns a copy with defaults filled in
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	opt := *o
	if opt.Method == "" {
		opt.Method = MethodEzi
	}
	if _, err := ParseMethod(string(opt.Method)); err != nil {
		return nil, err
	}
	if opt.MaxRank < 0 {
		return nil, decomposer.ErrNegativeMaxRank
	}
	if opt.Parallelization < 0 {
		return nil, ErrNegativeParallelization
	}
	if opt.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	if opt.Tolerance == 0 {
		opt.Tolerance = DefaultTolerance
	}
	return &opt, nil
}

func (o *Options) newDecomposer() (decomposer.Decomposer, error) {
	switch o.Method {
	case MethodEzn:
		d, err := decomposer.NewEzn(&decomposer.EznOptions{MaxRank: o.MaxRank})
		if err != nil {
			return nil, err
		}
		return d, nil
	case MethodEzi:
		d, err := decomposer.NewEzi(&decomposer.EziOptions{
			MaxRank:       o.MaxRank,
			Abort:         o.EziAbort,
			RecordHistory: o.RecordDiagnostics,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case MethodSap, MethodSapNelderMead:
		opt, err := o.newOptimizer()
		if err != nil {
			return nil, err
		}
		d, err := decomposer.NewSap(&decomposer.SapOptions{
			MaxRank:      o.MaxRank,
			Optimizer:    opt,
			RecordAngles: o.RecordDiagnostics,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%q, %w", o.Method, ErrUnknownMethod)
	}
}

func (o *Options) newOptimizer() (optimizer.Optimizer, error) {
	if o.Method == MethodSapNelderMead {
		nm, err := optimizer.NewNelderMead(o.NelderMead)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize nelder-mead, %w", err)
		}
		return nm, nil
	}
	p, err := optimizer.NewPraxis(o.Praxis)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize praxis, %w", err)
	}
	return p, nil
}
