// Package mat contains construction and reshaping helpers layered on gonum's mat package.
package mat

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-correlation/floatsunrolled"
	"github.com/aouyang1/go-correlation/machine"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch      = errors.New("column size mismatch")
	ErrPackedLenInvalid = errors.New("packed length does not match n*(n+1)/2")
	ErrNotSquare        = errors.New("matrix is not square")
	ErrInvalidTriangle  = errors.New("triangular part must be blas.Lower or blas.Upper")
	ErrBufferTooSmall   = errors.New("buffer too small for matrix dimensions")
)

func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, mat.ErrZeroLength
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// PackedLen returns the number of stored values of an n×n symmetric matrix in packed form
func PackedLen(n int) int {
	return n * (n + 1) / 2
}

// NewSymDenseFromPacked expands packed symmetric storage. The packed slice holds the lower
// triangle row by row, a00, a10, a11, a20, a21, a22, ...
func NewSymDenseFromPacked(n int, packed []float64) (*mat.SymDense, error) {
	if n <= 0 {
		return nil, mat.ErrZeroLength
	}
	if len(packed) != PackedLen(n) {
		return nil, fmt.Errorf("got %d packed values for n=%d, %w", len(packed), n, ErrPackedLenInvalid)
	}
	s := mat.NewSymDense(n, nil)
	var k int
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			s.SetSym(i, j, packed[k])
			k++
		}
	}
	return s, nil
}

// Symmetrize fills dst with the full n×n row-major symmetric matrix described by the uplo
// triangle of raw. Only that triangle of raw is read.
func Symmetrize(dst []float64, raw mat.Matrix, uplo blas.Uplo) error {
	n, c := raw.Dims()
	if n != c {
		return fmt.Errorf("got %dx%d, %w", n, c, ErrNotSquare)
	}
	if uplo != blas.Lower && uplo != blas.Upper {
		return ErrInvalidTriangle
	}
	if len(dst) < n*n {
		return ErrBufferTooSmall
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var v float64
			if uplo == blas.Lower {
				v = raw.At(i, j)
			} else {
				v = raw.At(j, i)
			}
			dst[i*n+j] = v
			dst[j*n+i] = v
		}
	}
	return nil
}

// NormalizeRows scales every row of the first cols columns of the row-major r×stride
// buffer to unit Euclidean norm. Rows with a vanishing norm are left untouched.
func NormalizeRows(data []float64, r, cols, stride int) {
	for i := 0; i < r; i++ {
		row := data[i*stride : i*stride+cols]
		ss := floatsunrolled.Dot(row, row)
		if ss < machine.ExtremeTinyEpsilon {
			continue
		}
		inv := 1.0 / math.Sqrt(ss)
		for j := range row {
			row[j] *= inv
		}
	}
}

// Reconstruct computes dst = b*bᵀ where b is an r×cols view with the given stride of a
// row-major buffer and dst is an r×r row-major buffer.
func Reconstruct(dst []float64, b []float64, r, cols, stride int) {
	bg := blas64.General{Rows: r, Cols: cols, Stride: stride, Data: b}
	cg := blas64.General{Rows: r, Cols: r, Stride: r, Data: dst}
	blas64.Gemm(blas.NoTrans, blas.Trans, 1, bg, bg, 0, cg)
}
