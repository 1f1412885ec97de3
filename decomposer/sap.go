package decomposer

import (
	"log/slog"

	"github.com/aouyang1/go-correlation/floatsunrolled"
	mat_ "github.com/aouyang1/go-correlation/mat"
	"github.com/aouyang1/go-correlation/optimizer"
	"gonum.org/v1/gonum/mat"
)

// SapOptions configures the angle parameterized decomposition
type SapOptions struct {
	// MaxRank caps the number of columns of the decomposed matrix. 0 only discards negative
	// eigenvalues.
	MaxRank int `json:"max_rank"`

	// Optimizer minimizes the squared Frobenius distance over the angles
	Optimizer optimizer.Optimizer `json:"-"`

	// RecordAngles keeps the initial and final angles in the state
	RecordAngles bool `json:"record_angles"`
}

// NewDefaultSapOptions returns SAP options refining with a default PRAXIS optimizer
func NewDefaultSapOptions() *SapOptions {
	// default PRAXIS options always validate
	praxis, _ := optimizer.NewPraxis(optimizer.NewDefaultPraxisOptions())
	return &SapOptions{
		Optimizer: praxis,
	}
}

// Validate runs basic validation on SAP options
func (s *SapOptions) Validate() (*SapOptions, error) {
	if s == nil {
		s = NewDefaultSapOptions()
	}
	cp := *s
	s = &cp
	if s.MaxRank < 0 {
		return nil, ErrNegativeMaxRank
	}
	if s.Optimizer == nil {
		return nil, ErrNoOptimizer
	}
	return s, nil
}

// SapState is the diagnostics record of a SAP decomposition
type SapState struct {
	Retained int `json:"rank"`

	// Initial is the state of the EZN decomposition the angles start from
	Initial   *EznState        `json:"initial"`
	Optimizer optimizer.Result `json:"optimizer"`

	InitialObjective float64 `json:"initial_objective"`
	FinalObjective   float64 `json:"final_objective"`

	InitialAngles [][]float64 `json:"initial_angles,omitempty"`
	FinalAngles   [][]float64 `json:"final_angles,omitempty"`
}

func (s *SapState) Rank() int { return s.Retained }

func (s *SapState) Method() Method { return MethodSap }

// Sap refines the EZN decomposition by minimizing the squared Frobenius distance between
// B·Bᵀ and the raw matrix over the hyperspherical angles of the rows of B, which keeps every
// row at unit norm
type Sap struct {
	opt *SapOptions
	ezn *Ezn
}

func NewSap(opt *SapOptions) (*Sap, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	ezn, err := NewEzn(&EznOptions{MaxRank: opt.MaxRank})
	if err != nil {
		return nil, err
	}
	return &Sap{opt: opt, ezn: ezn}, nil
}

func (s *Sap) NewWorkspace(n int) Workspace {
	return newSapWorkspace(n)
}

func (s *Sap) Decompose(raw mat.Matrix, co *CallOptions) (*mat.Dense, State, error) {
	co, err := co.Validate()
	if err != nil {
		return nil, nil, err
	}
	n, err := checkRaw(raw, co.Uplo)
	if err != nil {
		return nil, nil, err
	}
	ws := workspaceFor(co.Workspace, n, newSapWorkspace)

	if err := mat_.Symmetrize(ws.raw, raw, co.Uplo); err != nil {
		return nil, nil, err
	}
	initial, err := s.ezn.decompose(ws.eigenWorkspace, raw, co.Uplo)
	if err != nil {
		return nil, nil, err
	}
	rank := initial.Retained
	compact(ws.b, ws.a, n, n, n-rank, rank)

	state := &SapState{
		Retained: rank,
		Initial:  initial,
	}

	final := ws.b
	if rank == 1 {
		state.InitialObjective = ws.objective(ws.b, rank)
		state.Optimizer = optimizer.Result{Minimum: state.InitialObjective, Status: optimizer.ProperResult}
	} else {
		final, err = s.refine(ws, rank, state)
		if err != nil {
			return nil, nil, err
		}
	}
	state.FinalObjective = ws.objective(final, rank)

	b := outputDense(co.Dst, n, rank)
	copy(b.RawMatrix().Data, final[:n*rank])
	return b, state, nil
}

// refine runs the optimizer from the angles of the initial decomposition and returns the
// decomposition at the angles found
func (s *Sap) refine(ws *sapWorkspace, rank int, state *SapState) ([]float64, error) {
	n := ws.n
	dim := n * (rank - 1)
	theta := ws.theta[:dim]
	angleParameters(theta, ws.b, n, rank)

	objective := func(t []float64) float64 {
		parametricMatrix(ws.param, t, n, rank)
		return ws.objective(ws.param, rank)
	}
	state.InitialObjective = objective(theta)
	if s.opt.RecordAngles {
		state.InitialAngles = angleRows(theta, n, rank-1)
	}

	run, err := s.opt.Optimizer.NewRun(dim)
	if err != nil {
		return nil, err
	}
	run.SetFunction(objective)
	res, err := run.FindMinimum(theta)
	if err != nil {
		return nil, err
	}
	state.Optimizer = res

	if res.Status != optimizer.ProperResult {
		slog.Warn("angle optimization stopped without a proper result", "status", res.Status.String(), "evaluations", res.Evaluations, "iterations", res.Iterations)
	}
	if res.Status == optimizer.InvalidFunctionValue {
		return ws.b, nil
	}
	if s.opt.RecordAngles {
		state.FinalAngles = angleRows(theta, n, rank-1)
	}
	parametricMatrix(ws.param, theta, n, rank)
	return ws.param, nil
}

// objective returns the squared Frobenius distance between b·bᵀ, b being n×rank, and the
// symmetrized raw matrix
func (ws *sapWorkspace) objective(b []float64, rank int) float64 {
	mat_.Reconstruct(ws.bbt, b, ws.n, rank, rank)
	return floatsunrolled.SquaredDistance(ws.bbt, ws.raw)
}
