package decomposer

import (
	"math"

	"github.com/aouyang1/go-correlation/floatsunrolled"
	mat_ "github.com/aouyang1/go-correlation/mat"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// eigenWorkspace is the workspace of EZN and the base of the other families
type eigenWorkspace struct {
	n int

	// a holds the symmetric input, then the eigenvectors as columns, then the decomposed
	// matrix with the retained block in its last columns
	a    []float64
	w    []float64 // ascending eigenvalues
	work []float64
}

func newEigenWorkspace(n int) *eigenWorkspace {
	ws := &eigenWorkspace{
		n: n,
		a: make([]float64, n*n),
		w: make([]float64, n),
	}

	// workspace query
	work := []float64{0}
	lapack64.Syev(lapack.EVCompute, ws.symmetric(), ws.w, work, -1)
	ws.work = make([]float64, int(work[0]))
	return ws
}

func (ws *eigenWorkspace) Dim() int {
	if ws == nil {
		return 0
	}
	return ws.n
}

func (ws *eigenWorkspace) symmetric() blas64.Symmetric {
	return blas64.Symmetric{N: ws.n, Stride: ws.n, Data: ws.a, Uplo: blas.Upper}
}

// eigen decomposes the symmetric matrix held in a in place
func (ws *eigenWorkspace) eigen() error {
	if ok := lapack64.Syev(lapack.EVCompute, ws.symmetric(), ws.w, ws.work, len(ws.work)); !ok {
		return ErrEigenDecomposition
	}
	return nil
}

// zero runs eigenvalue zeroing on the matrix held in a. At least minZero of the smallest
// eigenvalues and every negative one are discarded, and the eigenvectors of the rest are
// scaled by the root of their eigenvalue. The retained block ends up in the last rank
// columns of a and the discarded columns are zeroed. With normalize set every row of the
// retained block is scaled to unit norm. The eigenvalues in w are left untouched.
func (ws *eigenWorkspace) zero(minZero int, normalize bool) (int, error) {
	if err := ws.eigen(); err != nil {
		return 0, err
	}

	n := ws.n
	rank := n
	for i := 0; i < n && (i < minZero || ws.w[i] < 0); i++ {
		rank--
	}
	if rank == 0 {
		return 0, ErrRankDeficient
	}

	offset := n - rank
	for j := 0; j < n; j++ {
		var scale float64
		if j >= offset {
			scale = math.Sqrt(ws.w[j])
		}
		blas64.Scal(scale, blas64.Vector{N: n, Inc: n, Data: ws.a[j:]})
	}

	if normalize {
		normalizeBlock(ws.a, n, n, offset, rank)
	}
	return rank, nil
}

// reconstruct writes B·Bᵀ of the retained block of b into dst
func (ws *eigenWorkspace) reconstruct(dst, b []float64, rank int) {
	mat_.Reconstruct(dst, b[ws.n-rank:], ws.n, rank, ws.n)
}

// normalizeBlock scales the cols wide block starting at column offset of every row to unit
// norm. A row without weight in the block is set to the unit vector of the block's last
// column, the direction of the largest retained eigenvalue.
func normalizeBlock(data []float64, n, stride, offset, cols int) {
	block := data[offset:]
	mat_.NormalizeRows(block, n, cols, stride)
	for i := 0; i < n; i++ {
		row := block[i*stride : i*stride+cols]
		if floatsunrolled.Dot(row, row) > 0.5 {
			continue
		}
		for j := range row {
			row[j] = 0
		}
		row[cols-1] = 1.0
	}
}

// setUnitDiagonal resets the diagonal of the n×n row-major matrix m to 1
func setUnitDiagonal(m []float64, n int) {
	for i := 0; i < n; i++ {
		m[i*n+i] = 1.0
	}
}
