package decomposer

import (
	mat_ "github.com/aouyang1/go-correlation/mat"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/mat"
)

// EznOptions configures eigenvalue zeroing with normalization
type EznOptions struct {
	// MaxRank caps the number of columns of the decomposed matrix. 0 only discards negative
	// eigenvalues.
	MaxRank int `json:"max_rank"`
}

func NewDefaultEznOptions() *EznOptions {
	return &EznOptions{}
}

// Validate runs basic validation on EZN options
func (e *EznOptions) Validate() (*EznOptions, error) {
	if e == nil {
		e = NewDefaultEznOptions()
	}
	cp := *e
	e = &cp
	if e.MaxRank < 0 {
		return nil, ErrNegativeMaxRank
	}
	return e, nil
}

// EznState is the diagnostics record of an EZN decomposition
type EznState struct {
	Retained int `json:"rank"`

	// Eigenvalues of the symmetrized raw matrix in ascending order, before zeroing
	Eigenvalues []float64 `json:"eigenvalues"`

	// Zeroed is the number of discarded eigenvalues
	Zeroed int `json:"zeroed"`
}

func (s *EznState) Rank() int { return s.Retained }

func (s *EznState) Method() Method { return MethodEzn }

// Ezn decomposes a raw correlation matrix in one pass: the smallest and all negative
// eigenvalues are zeroed, the remaining eigenvectors scaled by the root of their eigenvalue
// and the rows renormalized to unit length.
type Ezn struct {
	opt *EznOptions
}

func NewEzn(opt *EznOptions) (*Ezn, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Ezn{opt: opt}, nil
}

func (e *Ezn) NewWorkspace(n int) Workspace {
	return newEigenWorkspace(n)
}

// Decompose returns the n×rank decomposition of raw with the retained columns in ascending
// eigenvalue order
func (e *Ezn) Decompose(raw mat.Matrix, co *CallOptions) (*mat.Dense, State, error) {
	co, err := co.Validate()
	if err != nil {
		return nil, nil, err
	}
	n, err := checkRaw(raw, co.Uplo)
	if err != nil {
		return nil, nil, err
	}
	ws := workspaceFor(co.Workspace, n, newEigenWorkspace)

	state, err := e.decompose(ws, raw, co.Uplo)
	if err != nil {
		return nil, nil, err
	}

	rank := state.Retained
	b := outputDense(co.Dst, n, rank)
	compact(b.RawMatrix().Data, ws.a, n, n, n-rank, rank)
	return b, state, nil
}

// DecomposePacked decomposes an n×n matrix given in packed lower triangular storage
func (e *Ezn) DecomposePacked(n int, packed []float64, co *CallOptions) (*mat.Dense, State, error) {
	raw, err := mat_.NewSymDenseFromPacked(n, packed)
	if err != nil {
		return nil, nil, err
	}
	var opt CallOptions
	if co != nil {
		opt = *co
	}
	opt.Uplo = blas.Lower
	return e.Decompose(raw, &opt)
}

// decompose leaves the decomposition in the last rank columns of ws.a
func (e *Ezn) decompose(ws *eigenWorkspace, raw mat.Matrix, uplo blas.Uplo) (*EznState, error) {
	if err := mat_.Symmetrize(ws.a, raw, uplo); err != nil {
		return nil, err
	}
	rank, err := ws.zero(minToZero(ws.n, e.opt.MaxRank), true)
	if err != nil {
		return nil, err
	}
	return &EznState{
		Retained:    rank,
		Eigenvalues: append([]float64(nil), ws.w...),
		Zeroed:      ws.n - rank,
	}, nil
}
