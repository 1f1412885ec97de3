package decomposer

import (
	"errors"
)

var (
	ErrNilMatrix             = errors.New("no raw correlation matrix")
	ErrEmptyMatrix           = errors.New("raw correlation matrix has no rows")
	ErrNotSquare             = errors.New("raw correlation matrix is not square")
	ErrNonFiniteEntry        = errors.New("raw correlation matrix has a non-finite entry")
	ErrInvalidTriangle       = errors.New("triangular part must be blas.Lower or blas.Upper")
	ErrNegativeMaxRank       = errors.New("negative maximal rank")
	ErrRankDeficient         = errors.New("every eigenvalue was zeroed")
	ErrEigenDecomposition    = errors.New("eigen decomposition did not converge")
	ErrNoOptimizer           = errors.New("no optimizer to refine angle parameters")
	ErrNegativeTolerance     = errors.New("negative tolerance")
	ErrNegativeMaxIterations = errors.New("negative max iterations")
	ErrInvalidAbortCondition = errors.New("abort condition can never be satisfied")
	ErrAngleRank             = errors.New("angle parameterization needs at least 2 columns")
	ErrUnknownMethod         = errors.New("unknown decomposition method")
)
