// floatsunrolled is inspired by the SIMD blog post
// https://github.com/camdencheek/simd_blog/blob/main/main.go
//
// The kernels process four elements per step and finish any remainder with a scalar tail,
// so they accept slices of any length. They back the squared Frobenius distances that
// dominate the decomposer objective and convergence checks.
package floatsunrolled

import (
	"errors"
)

const UnrollBatch = 4

var (
	ErrSliceLengthMismatch       = errors.New("slices must have equal lengths")
	ErrOutputSliceLengthMismatch = errors.New("output slice length not the same as input")
)

func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(ErrSliceLengthMismatch)
	}

	var sum float64
	i := 0
	for ; i+UnrollBatch <= len(a); i += UnrollBatch {
		aTmp := a[i : i+UnrollBatch : i+UnrollBatch]
		bTmp := b[i : i+UnrollBatch : i+UnrollBatch]
		s0 := aTmp[0] * bTmp[0]
		s1 := aTmp[1] * bTmp[1]
		s2 := aTmp[2] * bTmp[2]
		s3 := aTmp[3] * bTmp[3]
		sum += s0 + s1 + s2 + s3
	}
	for ; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func SubTo(dst, s, t []float64) []float64 {
	if len(s) != len(t) {
		panic(ErrSliceLengthMismatch)
	}

	if dst == nil {
		dst = make([]float64, len(s))
	} else if len(dst) != len(s) {
		panic(ErrOutputSliceLengthMismatch)
	}

	i := 0
	for ; i+UnrollBatch <= len(s); i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		tTmp := t[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] = sTmp[0] - tTmp[0]
		dstTmp[1] = sTmp[1] - tTmp[1]
		dstTmp[2] = sTmp[2] - tTmp[2]
		dstTmp[3] = sTmp[3] - tTmp[3]
	}
	for ; i < len(s); i++ {
		dst[i] = s[i] - t[i]
	}

	return dst
}

// SquaredDistance returns the sum of squared element differences of s and t
func SquaredDistance(s, t []float64) float64 {
	if len(s) != len(t) {
		panic(ErrSliceLengthMismatch)
	}

	var sum float64
	i := 0
	for ; i+UnrollBatch <= len(s); i += UnrollBatch {
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		tTmp := t[i : i+UnrollBatch : i+UnrollBatch]
		d0 := sTmp[0] - tTmp[0]
		d1 := sTmp[1] - tTmp[1]
		d2 := sTmp[2] - tTmp[2]
		d3 := sTmp[3] - tTmp[3]
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	for ; i < len(s); i++ {
		d := s[i] - t[i]
		sum += d * d
	}
	return sum
}
