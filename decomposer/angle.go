package decomposer

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-correlation/machine"
	"gonum.org/v1/gonum/mat"
)

// AngleParameters returns the n×(r-1) hyperspherical angles of the n×r matrix b, whose rows
// must have unit norm. It is a left inverse of ParametricMatrix.
func AngleParameters(b mat.Matrix) (*mat.Dense, error) {
	n, r := b.Dims()
	if r < 2 {
		return nil, fmt.Errorf("got %d columns, %w", r, ErrAngleRank)
	}
	data := make([]float64, n*r)
	for i := 0; i < n; i++ {
		for j := 0; j < r; j++ {
			data[i*r+j] = b.At(i, j)
		}
	}
	theta := mat.NewDense(n, r-1, nil)
	angleParameters(theta.RawMatrix().Data, data, n, r)
	return theta, nil
}

// ParametricMatrix returns the n×(m+1) matrix with unit norm rows described by the n×m
// angles theta
func ParametricMatrix(theta mat.Matrix) *mat.Dense {
	n, m := theta.Dims()
	data := make([]float64, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			data[i*m+j] = theta.At(i, j)
		}
	}
	b := mat.NewDense(n, m+1, nil)
	parametricMatrix(b.RawMatrix().Data, data, n, m+1)
	return b
}

// angleParameters writes the angles of the row-major n×r matrix b into theta, n×(r-1)
func angleParameters(theta, b []float64, n, r int) {
	m := r - 1
	for i := 0; i < n; i++ {
		row := b[i*r : (i+1)*r]
		angles := theta[i*m : (i+1)*m]

		prod := 1.0
		for k := 0; k < m; k++ {
			if prod < machine.ExtremeTinyEpsilon {
				angles[k] = 0
				continue
			}
			angles[k] = math.Acos(clampUnit(row[k] / prod))
			prod *= math.Sin(angles[k])
		}

		// acos only covers [0, pi], so the last column is recovered through the sign of the
		// last angle
		if math.Signbit(row[r-1]) != math.Signbit(prod) {
			angles[m-1] = -angles[m-1]
		}
	}
}

// parametricMatrix writes the row-major n×r matrix of the angles theta, n×(r-1), into b
func parametricMatrix(b, theta []float64, n, r int) {
	m := r - 1
	for i := 0; i < n; i++ {
		row := b[i*r : (i+1)*r]
		angles := theta[i*m : (i+1)*m]

		prod := 1.0
		for k := 0; k < m; k++ {
			s, c := math.Sincos(angles[k])
			row[k] = prod * c
			prod *= s
		}
		row[m] = prod
	}
}

func clampUnit(x float64) float64 {
	return math.Max(-1.0, math.Min(1.0, x))
}

// angleRows copies the flat row-major n×m angles into rows
func angleRows(theta []float64, n, m int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = append([]float64(nil), theta[i*m:(i+1)*m]...)
	}
	return rows
}
