package decomposer

import (
	"log/slog"
	"math"

	mat_ "github.com/aouyang1/go-correlation/mat"
	"gonum.org/v1/gonum/mat"
)

// EziOptions configures iterated eigenvalue zeroing
type EziOptions struct {
	// MaxRank caps the number of columns of the decomposed matrix. 0 only discards negative
	// eigenvalues.
	MaxRank int `json:"max_rank"`

	Abort *EziAbortCondition `json:"abort"`

	// RecordHistory keeps the distance between iterates and the eigenvalues of every
	// iteration in the state
	RecordHistory bool `json:"record_history"`
}

func NewDefaultEziOptions() *EziOptions {
	return &EziOptions{
		Abort: NewDefaultEziAbortCondition(),
	}
}

// Validate runs basic validation on EZI options
func (e *EziOptions) Validate() (*EziOptions, error) {
	if e == nil {
		e = NewDefaultEziOptions()
	}
	cp := *e
	e = &cp
	if e.MaxRank < 0 {
		return nil, ErrNegativeMaxRank
	}
	abort, err := e.Abort.Validate()
	if err != nil {
		return nil, err
	}
	e.Abort = abort
	return e, nil
}

// EziState is the diagnostics record of an EZI decomposition
type EziState struct {
	Retained int `json:"rank"`

	// Iterations counts the initial zeroing. It equals the abort condition's MaxIterations
	// when the iteration did not converge.
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`

	// NormHistory holds the Frobenius distance between consecutive iterates
	NormHistory       []float64   `json:"norm_history,omitempty"`
	EigenvalueHistory [][]float64 `json:"eigenvalue_history,omitempty"`
}

func (s *EziState) Rank() int { return s.Retained }

func (s *EziState) Method() Method { return MethodEzi }

// Ezi alternates eigenvalue zeroing with resetting the diagonal to 1 until the iterate is
// close to a correlation matrix
type Ezi struct {
	opt *EziOptions
}

func NewEzi(opt *EziOptions) (*Ezi, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Ezi{opt: opt}, nil
}

func (e *Ezi) NewWorkspace(n int) Workspace {
	return newEziWorkspace(n)
}

func (e *Ezi) Decompose(raw mat.Matrix, co *CallOptions) (*mat.Dense, State, error) {
	co, err := co.Validate()
	if err != nil {
		return nil, nil, err
	}
	n, err := checkRaw(raw, co.Uplo)
	if err != nil {
		return nil, nil, err
	}
	ws := workspaceFor(co.Workspace, n, newEziWorkspace)
	abort := e.opt.Abort
	state := &EziState{}

	if err := mat_.Symmetrize(ws.p, raw, co.Uplo); err != nil {
		return nil, nil, err
	}
	minZero := minToZero(n, e.opt.MaxRank)
	maxIter := abort.MaxIterations

	// the first zeroing only discards negative eigenvalues unless it is the only one
	initZero := 0
	if maxIter == 1 {
		initZero = minZero
	}
	copy(ws.a, ws.p)
	rank, err := e.step(ws, initZero, state)
	if err != nil {
		return nil, nil, err
	}
	setUnitDiagonal(ws.q, n)

	a := math.Inf(1)
	state.Iterations = maxIter
	for k := 1; maxIter == 0 || k < maxIter; k++ {
		copy(ws.a, ws.q)
		rank, err = e.step(ws, minZero, state)
		if err != nil {
			return nil, nil, err
		}
		satisfied := abort.IsSatisfied(n, ws.p, ws.q, ws.qNorm, &a)
		if e.opt.RecordHistory {
			state.NormHistory = append(state.NormHistory, a)
		}
		if satisfied {
			state.Iterations = k + 1
			state.Converged = true
			break
		}
		copy(ws.p, ws.q)
		setUnitDiagonal(ws.q, n)
	}
	if !state.Converged {
		slog.Warn("ezi reached max iterations without converging", "max_iterations", maxIter, "dim", n, "rank", rank)
	}

	state.Retained = rank
	b := outputDense(co.Dst, n, rank)
	compact(b.RawMatrix().Data, ws.bNorm, n, n, n-rank, rank)
	return b, state, nil
}

// step zeroes the eigenvalues of the matrix held in ws.a and rebuilds q and its row
// normalized counterpart qNorm from the decomposition
func (e *Ezi) step(ws *eziWorkspace, minZero int, state *EziState) (int, error) {
	rank, err := ws.zero(minZero, false)
	if err != nil {
		return 0, err
	}
	if e.opt.RecordHistory {
		state.EigenvalueHistory = append(state.EigenvalueHistory, append([]float64(nil), ws.w...))
	}

	ws.reconstruct(ws.q, ws.a, rank)
	copy(ws.bNorm, ws.a)
	normalizeBlock(ws.bNorm, ws.n, ws.n, ws.n-rank, rank)
	ws.reconstruct(ws.qNorm, ws.bNorm, rank)
	return rank, nil
}
