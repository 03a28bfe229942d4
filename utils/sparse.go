// Package utils carries small numeric helpers shared by the grid,
// discretization and solver packages.
package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sparser is the slice of the james-bowman sparse API the module relies on:
// matrix shape plus nonzero iteration.
type Sparser interface {
	Dims() (r, c int)
	DoNonZero(fn func(i, j int, v float64))
}

// SparseInfNorm returns the infinity norm (max absolute row sum).
func SparseInfNorm(m Sparser) float64 {
	r, _ := m.Dims()
	rowSum := make([]float64, r)
	m.DoNonZero(func(i, j int, v float64) {
		rowSum[i] += math.Abs(v)
	})
	var norm float64
	for _, s := range rowSum {
		if s > norm {
			norm = s
		}
	}
	return norm
}

// SparseMulVec computes dst = m*x through the nonzero structure.
func SparseMulVec(dst []float64, m Sparser, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	m.DoNonZero(func(i, j int, v float64) {
		dst[i] += v * x[j]
	})
}

// SparseToDense expands m into a dense matrix, for direct factorization.
func SparseToDense(m Sparser) *mat.Dense {
	r, c := m.Dims()
	d := mat.NewDense(r, c, nil)
	m.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}
