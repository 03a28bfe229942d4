package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MapGrid expresses cell centers, face normals and face centers in the
// grid's intrinsic dimension. A 3-d grid maps to itself; a planar 2-d grid
// is rotated so its plane coincides with the xy-plane, then truncated to two
// rows. The rotation applied is returned so callers can map vectors back.
func (g *Grid) MapGrid() (cCenters, fNormals, fCenters, R *mat.Dense, err error) {
	if g.CellCenters == nil {
		return nil, nil, nil, nil, fmt.Errorf("geometry not computed for %s", g.Name)
	}
	R = mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if g.Dim == 3 {
		cCenters = mat.DenseCopyOf(g.CellCenters)
		fNormals = mat.DenseCopyOf(g.FaceNormals)
		fCenters = mat.DenseCopyOf(g.FaceCenters)
		return
	}

	n, err := g.planeNormal()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	R = rotationToZ(n)

	rotate := func(m *mat.Dense) *mat.Dense {
		var r mat.Dense
		r.Mul(R, m)
		return &r
	}
	cc := rotate(g.CellCenters)
	fn := rotate(g.FaceNormals)
	fc := rotate(g.FaceCenters)

	// Truncate to the intrinsic dimension.
	trunc := func(m *mat.Dense) *mat.Dense {
		_, nc := m.Dims()
		out := mat.NewDense(g.Dim, nc, nil)
		for i := 0; i < g.Dim; i++ {
			for j := 0; j < nc; j++ {
				out.Set(i, j, m.At(i, j))
			}
		}
		return out
	}
	return trunc(cc), trunc(fn), trunc(fc), R, nil
}

// planeNormal finds the unit normal of the plane spanned by the grid nodes
// via an SVD of the centered node cloud. The normal is flipped to a
// nonnegative z component so planar grids map deterministically.
func (g *Grid) planeNormal() ([3]float64, error) {
	var (
		_, n     = g.Nodes.Dims()
		centered = mat.NewDense(3, n, nil)
		mean     [3]float64
	)
	for k := 0; k < 3; k++ {
		for j := 0; j < n; j++ {
			mean[k] += g.Nodes.At(k, j)
		}
		mean[k] /= float64(n)
	}
	for k := 0; k < 3; k++ {
		for j := 0; j < n; j++ {
			centered.Set(k, j, g.Nodes.At(k, j)-mean[k])
		}
	}
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return [3]float64{}, fmt.Errorf("SVD of node cloud failed for %s", g.Name)
	}
	var u mat.Dense
	svd.UTo(&u)
	// Left singular vector of the smallest singular value spans the normal.
	var nrm [3]float64
	for k := 0; k < 3; k++ {
		nrm[k] = u.At(k, 2)
	}
	if nrm[2] < 0 {
		for k := range nrm {
			nrm[k] = -nrm[k]
		}
	}
	return nrm, nil
}

// rotationToZ builds the rotation taking unit vector n onto (0,0,1) by
// Rodrigues' formula about the axis n x e_z.
func rotationToZ(n [3]float64) *mat.Dense {
	var (
		cosT = n[2]
		// axis = n x e_z = (n_y, -n_x, 0)
		ax   = [3]float64{n[1], -n[0], 0}
		sinT = math.Sqrt(ax[0]*ax[0] + ax[1]*ax[1])
	)
	if sinT < 1e-14 {
		if cosT > 0 {
			return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
		}
		// Half turn about the x-axis.
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1})
	}
	for k := range ax {
		ax[k] /= sinT
	}
	kmat := mat.NewDense(3, 3, []float64{
		0, -ax[2], ax[1],
		ax[2], 0, -ax[0],
		-ax[1], ax[0], 0,
	})
	var k2 mat.Dense
	k2.Mul(kmat, kmat)
	R := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	var term mat.Dense
	term.Scale(sinT, kmat)
	R.Add(R, &term)
	term.Scale(1-cosT, &k2)
	R.Add(R, &term)
	return R
}
