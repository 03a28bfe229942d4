// Package params holds the cell-wise material data and boundary conditions
// consumed by the discretization.
package params

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SecondOrderTensor is a rank-2 permeability field, one symmetric 3x3 tensor
// per cell, sliced to the grid dimension at the point of use.
type SecondOrderTensor struct {
	NumCells int
	// perm holds NumCells row-major 3x3 blocks.
	perm []float64
}

// NewIsotropicTensor builds a field k(c)*I from per-cell scalars.
func NewIsotropicTensor(kxx []float64) *SecondOrderTensor {
	t := &SecondOrderTensor{NumCells: len(kxx), perm: make([]float64, 9*len(kxx))}
	for c, k := range kxx {
		t.perm[9*c+0] = k
		t.perm[9*c+4] = k
		t.perm[9*c+8] = k
	}
	return t
}

// NewDiagonalTensor builds a field diag(kxx, kyy, kzz) from per-cell slices.
// kyy and kzz may be nil, defaulting to kxx.
func NewDiagonalTensor(kxx, kyy, kzz []float64) *SecondOrderTensor {
	t := NewIsotropicTensor(kxx)
	if kyy != nil {
		for c, k := range kyy {
			t.perm[9*c+4] = k
		}
	}
	if kzz != nil {
		for c, k := range kzz {
			t.perm[9*c+8] = k
		}
	}
	return t
}

// Set stores one full tensor for cell c.
func (t *SecondOrderTensor) Set(c int, k *mat.Dense) {
	r, cc := k.Dims()
	if r != 3 || cc != 3 {
		panic(fmt.Sprintf("permeability tensor must be 3x3, got %dx%d", r, cc))
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.perm[9*c+3*i+j] = k.At(i, j)
		}
	}
}

// Cell returns the dim x dim leading block of cell c's tensor.
func (t *SecondOrderTensor) Cell(c, dim int) *mat.Dense {
	k := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			k.Set(i, j, t.perm[9*c+3*i+j])
		}
	}
	return k
}
