package decomposer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aouyang1/go-correlation/stats"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gonum.org/v1/gonum/mat"
)

type decomposerFactory func(maxRank int) (Decomposer, error)

var factories = map[string]struct {
	factory decomposerFactory
	tests   int
	maxDim  int
}{
	"ezn": {
		factory: func(maxRank int) (Decomposer, error) { return NewEzn(&EznOptions{MaxRank: maxRank}) },
		tests:   200,
		maxDim:  8,
	},
	"ezi": {
		factory: func(maxRank int) (Decomposer, error) { return NewEzi(&EziOptions{MaxRank: maxRank}) },
		tests:   100,
		maxDim:  8,
	},
	"sap": {
		factory: func(maxRank int) (Decomposer, error) {
			opt := NewDefaultSapOptions()
			opt.MaxRank = maxRank
			return NewSap(opt)
		},
		tests:  15,
		maxDim: 4,
	},
}

// checkDecomposition verifies the unit diagonal, the rank bound and that b·bᵀ has no
// negative eigenvalue
func checkDecomposition(b *mat.Dense, state State, n, maxRank int) bool {
	r, c := b.Dims()
	if r != n || c != state.Rank() {
		return false
	}
	if maxRank > 0 && c > min(maxRank, n) {
		return false
	}
	corr := reconstruct(b)
	for i := 0; i < n; i++ {
		if math.Abs(corr.At(i, i)-1.0) > 1e-8 {
			return false
		}
	}
	sym, err := stats.AsSymmetric(corr)
	if err != nil {
		return false
	}
	minEig, err := stats.MinEigenvalue(sym)
	if err != nil {
		return false
	}
	return minEig >= -1e-10
}

func TestDecompositionProperties(t *testing.T) {
	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			parameters := gopter.DefaultTestParameters()
			parameters.MinSuccessfulTests = f.tests
			properties := gopter.NewProperties(parameters)

			properties.Property("unit diagonal, bounded rank and positive semidefinite", prop.ForAll(
				func(seed uint64, n, maxRank int) bool {
					rng := rand.New(rand.NewPCG(seed, seed+1))
					raw := randomSymmetric(rng, n)

					d, err := f.factory(maxRank)
					if err != nil {
						return false
					}
					b, state, err := d.Decompose(raw, nil)
					if err != nil {
						t.Logf("n=%d max rank=%d: %v", n, maxRank, err)
						return false
					}
					return checkDecomposition(b, state, n, maxRank)
				},
				gen.UInt64(),
				gen.IntRange(2, f.maxDim),
				gen.IntRange(0, f.maxDim),
			))
			properties.TestingRun(t)
		})
	}
}
