// Package decomposer builds valid correlation matrices from raw symmetric estimates. Every
// decomposer returns an n×rank matrix B with unit norm rows, so B·Bᵀ has a unit diagonal and
// no negative eigenvalues.
package decomposer

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/mat"
)

// Method identifies a decomposition algorithm
type Method int

const (
	MethodEzn Method = iota
	MethodEzi
	MethodSap
)

var methodNames = map[Method]string{
	MethodEzn: "ezn",
	MethodEzi: "ezi",
	MethodSap: "sap",
}

func (m Method) String() string {
	if name, exists := methodNames[m]; exists {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func (m Method) MarshalText() ([]byte, error) {
	if _, exists := methodNames[m]; !exists {
		return nil, fmt.Errorf("%d, %w", int(m), ErrUnknownMethod)
	}
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	for method, name := range methodNames {
		if name == string(text) {
			*m = method
			return nil
		}
	}
	return fmt.Errorf("%q, %w", string(text), ErrUnknownMethod)
}

// Decomposer turns a raw correlation matrix into a decomposed matrix B. Implementations are
// immutable and safe for concurrent use as long as every goroutine passes its own Workspace.
type Decomposer interface {
	// NewWorkspace allocates scratch buffers for n×n inputs
	NewWorkspace(n int) Workspace

	// Decompose returns the n×rank matrix B along with the diagnostics of the call
	Decompose(raw mat.Matrix, co *CallOptions) (*mat.Dense, State, error)
}

// State is the diagnostics record of a single decomposition
type State interface {
	Rank() int
	Method() Method
}

// CallOptions carries optional per call buffers
type CallOptions struct {
	// Dst backs the returned matrix when it holds at least n*rank values
	Dst []float64

	// Workspace is reused when it belongs to the decomposer's family and has the input's
	// dimension. Otherwise a fresh one is allocated for the call.
	Workspace Workspace

	// Uplo selects the triangle of the raw matrix that is read. The zero value reads the
	// lower triangle.
	Uplo blas.Uplo
}

// Validate runs basic validation on call options and returns a copy with defaults filled in
func (c *CallOptions) Validate() (*CallOptions, error) {
	if c == nil {
		return &CallOptions{Uplo: blas.Lower}, nil
	}
	co := *c
	switch co.Uplo {
	case 0:
		co.Uplo = blas.Lower
	case blas.Lower, blas.Upper:
	default:
		return nil, ErrInvalidTriangle
	}
	return &co, nil
}

// checkRaw validates the read triangle of raw and returns its dimension
func checkRaw(raw mat.Matrix, uplo blas.Uplo) (int, error) {
	if raw == nil {
		return 0, ErrNilMatrix
	}
	n, c := raw.Dims()
	if n == 0 {
		return 0, ErrEmptyMatrix
	}
	if n != c {
		return 0, fmt.Errorf("got %dx%d, %w", n, c, ErrNotSquare)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := raw.At(i, j)
			if uplo == blas.Upper {
				v = raw.At(j, i)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("at (%d, %d), %w", i, j, ErrNonFiniteEntry)
			}
		}
	}
	return n, nil
}

// minToZero is the number of smallest eigenvalues that must be discarded to respect maxRank
func minToZero(n, maxRank int) int {
	if maxRank <= 0 {
		return 0
	}
	return n - min(maxRank, n)
}

// outputDense wraps dst when it is large enough and allocates otherwise
func outputDense(dst []float64, n, rank int) *mat.Dense {
	if len(dst) >= n*rank {
		return mat.NewDense(n, rank, dst[:n*rank])
	}
	return mat.NewDense(n, rank, nil)
}

// compact copies the cols wide block starting at column offset of the row-major src with
// the given stride into the densely packed n×cols dst
func compact(dst, src []float64, n, stride, offset, cols int) {
	for i := 0; i < n; i++ {
		copy(dst[i*cols:(i+1)*cols], src[i*stride+offset:i*stride+offset+cols])
	}
}

// workspaceFor returns ws when it is of type T with dimension n and a fresh workspace
// otherwise
func workspaceFor[T Workspace](ws Workspace, n int, alloc func(int) T) T {
	if typed, ok := ws.(T); ok && typed.Dim() == n {
		return typed
	}
	if ws != nil {
		slog.Debug("allocating workspace, supplied one does not fit", "type", fmt.Sprintf("%T", ws), "dim", ws.Dim(), "required_dim", n)
	}
	return alloc(n)
}
