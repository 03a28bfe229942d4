// Package vem discretizes second order elliptic flow with the hybridized
// dual virtual element method: per cell a local saddle point block is built
// from the H(div) flux-mass kernel, condensed onto the face-trace unknowns,
// and scattered into a global sparse system posed purely on faces.
package vem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularLocalSystem flags a non-invertible local flux-mass block,
// typically degenerate cell geometry.
var ErrSingularLocalSystem = errors.New("singular local system")

// consistencyTol bounds the relative mismatch allowed between G and F*D in
// MassHdiv; exact geometry satisfies G = F*D identically.
const consistencyTol = 1e-8

// MassHdiv builds the local H(div) flux-mass matrix of one cell: the
// discrete inner product on its normal-flux degrees of freedom, weighted by
// the permeability K (dim x dim). fCenters and normals are dim x nf with
// normals area weighted and outward; weights scales the flux dofs (unit for
// the hybrid method); stabWeight is the VEM stabilization weight, for this
// method diam^(2-dim). Returns the nf x nf SPD matrix A and the projection
// PiS onto the monomial space.
func MassHdiv(K *mat.Dense, cCenter []float64, cVolume float64,
	fCenters, normals *mat.Dense, weights []float64,
	diam, stabWeight float64) (A, PiS *mat.Dense, err error) {
	var (
		dim, nf = fCenters.Dims()
	)

	// D[f,i] = n_f . K grad m_i with grad m_i = e_i/diam.
	D := mat.NewDense(nf, dim, nil)
	for f := 0; f < nf; f++ {
		for i := 0; i < dim; i++ {
			var s float64
			for k := 0; k < dim; k++ {
				s += normals.At(k, f) * K.At(k, i)
			}
			D.Set(f, i, s/diam)
		}
	}

	// G = grad K grad^T * volume = K * volume / diam^2.
	G := mat.NewDense(dim, dim, nil)
	G.Scale(cVolume/(diam*diam), K)

	// F[i,f] = w_f * m_i(x_f) = w_f * (x_f - x_c)_i / diam.
	F := mat.NewDense(dim, nf, nil)
	for i := 0; i < dim; i++ {
		for f := 0; f < nf; f++ {
			F.Set(i, f, weights[f]*(fCenters.At(i, f)-cCenter[i])/diam)
		}
	}

	// The divergence theorem gives G = F*D on exact geometry; a mismatch
	// means the cell is degenerate.
	var FD mat.Dense
	FD.Mul(F, D)
	var diff, scale float64
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			diff = math.Max(diff, math.Abs(G.At(i, j)-FD.At(i, j)))
			scale = math.Max(scale, math.Abs(G.At(i, j)))
		}
	}
	if diff > consistencyTol*math.Max(scale, 1) {
		return nil, nil, fmt.Errorf("%w: local consistency G != F*D (|G-FD| = %g)",
			ErrSingularLocalSystem, diff)
	}

	// Projection onto monomials, PiS = G^-1 F.
	var piS mat.Dense
	if err = piS.Solve(G, F); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingularLocalSystem, err)
	}

	// I - D PiS spans the stabilized complement.
	var dPi mat.Dense
	dPi.Mul(D, &piS)
	iPi := eye(nf)
	iPi.Sub(iPi, &dPi)

	var invK mat.Dense
	if err = invK.Inverse(K); err != nil {
		return nil, nil, fmt.Errorf("%w: permeability not invertible: %v",
			ErrSingularLocalSystem, err)
	}
	w := stabWeight * mat.Norm(&invK, math.Inf(1))

	// A = PiS^T G PiS + w * (I - D PiS)^T (I - D PiS).
	var gp, cons, stab mat.Dense
	gp.Mul(G, &piS)
	cons.Mul(piS.T(), &gp)
	stab.Mul(iPi.T(), iPi)
	stab.Scale(w, &stab)
	out := mat.NewDense(nf, nf, nil)
	out.Add(&cons, &stab)
	return out, &piS, nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
