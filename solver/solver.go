// Package solver solves the global hybrid system H x = rhs. Any sparse
// solver works; a dense LU direct solve covers the moderate face counts of
// single grids, and conjugate gradients serve large symmetric systems.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meshflow/hybridvem/utils"
)

// Direct factorizes H densely with LU and solves. Dirichlet rows make H
// unsymmetric, which LU handles without pivoting trouble.
func Direct(H utils.Sparser, rhs []float64) ([]float64, error) {
	r, c := H.Dims()
	if r != c || r != len(rhs) {
		return nil, fmt.Errorf("shape mismatch: matrix %dx%d, rhs %d", r, c, len(rhs))
	}
	var lu mat.LU
	lu.Factorize(utils.SparseToDense(H))
	x := mat.NewVecDense(r, nil)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(r, rhs)); err != nil {
		return nil, fmt.Errorf("direct solve: %w", err)
	}
	out := make([]float64, r)
	copy(out, x.RawVector().Data)
	return out, nil
}

// CG runs conjugate gradients on a symmetric positive definite H until the
// residual norm drops below tol*|rhs| or maxIter iterations pass.
func CG(H utils.Sparser, rhs []float64, tol float64, maxIter int) ([]float64, error) {
	n := len(rhs)
	var (
		x  = make([]float64, n)
		r  = make([]float64, n)
		p  = make([]float64, n)
		hp = make([]float64, n)
	)
	copy(r, rhs)
	copy(p, rhs)
	rr := dot(r, r)
	bNorm := math.Sqrt(rr)
	if bNorm == 0 {
		return x, nil
	}
	for it := 0; it < maxIter; it++ {
		utils.SparseMulVec(hp, H, p)
		alpha := rr / dot(p, hp)
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * hp[i]
		}
		rrNext := dot(r, r)
		if math.Sqrt(rrNext) <= tol*bNorm {
			return x, nil
		}
		beta := rrNext / rr
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
		rr = rrNext
	}
	return nil, fmt.Errorf("cg: no convergence after %d iterations (residual %g)",
		maxIter, math.Sqrt(rr)/bNorm)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
