package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func unitSquareTwoTriangles(t *testing.T) *Grid {
	t.Helper()
	p := mat.NewDense(2, 4, []float64{
		0, 1, 1, 0,
		0, 0, 1, 1,
	})
	g, err := NewTriangleGrid(p, [][3]int{{0, 1, 2}, {0, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, g.ComputeGeometry())
	return g
}

func TestGeometryTriangle(t *testing.T) {
	g := unitSquareTwoTriangles(t)

	assert.InDelta(t, 0.5, g.CellVolumes[0], 1e-14)
	assert.InDelta(t, 0.5, g.CellVolumes[1], 1e-14)

	var total float64
	for _, v := range g.CellVolumes {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-14)

	// Area-weighted normals: magnitude equals the face area.
	for f := 0; f < g.NumFaces; f++ {
		var n2 float64
		for k := 0; k < 3; k++ {
			n2 += g.FaceNormals.At(k, f) * g.FaceNormals.At(k, f)
		}
		assert.InDelta(t, g.FaceAreas[f], math.Sqrt(n2), 1e-14, "face %d", f)
	}

	// sign * normal points outward from every cell.
	for c := 0; c < g.NumCells; c++ {
		for i, f := range g.CellFaceIDs[c] {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += g.CellFaceSgns[c][i] * g.FaceNormals.At(k, f) *
					(g.FaceCenters.At(k, f) - g.CellCenters.At(k, c))
			}
			assert.Greater(t, dot, 0.0, "cell %d face %d", c, f)
		}
	}

	diams := g.CellDiameters()
	assert.InDelta(t, math.Sqrt2, diams[0], 1e-14)
	assert.InDelta(t, math.Sqrt2, diams[1], 1e-14)
}

func TestGeometryTetrahedron(t *testing.T) {
	p := mat.NewDense(3, 4, []float64{
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	g, err := NewTetrahedralGrid(p, [][4]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, g.ComputeGeometry())

	assert.InDelta(t, 1.0/6, g.CellVolumes[0], 1e-14)

	// Outward orientation for the single cell.
	for i, f := range g.CellFaceIDs[0] {
		var dot float64
		for k := 0; k < 3; k++ {
			dot += g.CellFaceSgns[0][i] * g.FaceNormals.At(k, f) *
				(g.FaceCenters.At(k, f) - g.CellCenters.At(k, 0))
		}
		assert.Greater(t, dot, 0.0, "face %d", f)
	}

	// Gauss: the outward area-weighted normals of a closed cell sum to zero.
	var sum [3]float64
	for i, f := range g.CellFaceIDs[0] {
		for k := 0; k < 3; k++ {
			sum[k] += g.CellFaceSgns[0][i] * g.FaceNormals.At(k, f)
		}
	}
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 0.0, sum[k], 1e-14)
	}
}

func TestMapGridPlanar(t *testing.T) {
	g := unitSquareTwoTriangles(t)
	cc, fn, fc, R, err := g.MapGrid()
	require.NoError(t, err)

	// A grid in the xy-plane maps through the identity.
	assert.InDelta(t, 1.0, R.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, R.At(1, 1), 1e-12)
	assert.InDelta(t, 1.0, R.At(2, 2), 1e-12)

	r, c := cc.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, g.NumCells, c)
	for j := 0; j < g.NumCells; j++ {
		assert.InDelta(t, g.CellCenters.At(0, j), cc.At(0, j), 1e-12)
		assert.InDelta(t, g.CellCenters.At(1, j), cc.At(1, j), 1e-12)
	}
	for f := 0; f < g.NumFaces; f++ {
		assert.InDelta(t, g.FaceNormals.At(0, f), fn.At(0, f), 1e-12)
		assert.InDelta(t, g.FaceCenters.At(1, f), fc.At(1, f), 1e-12)
	}
}

func TestMapGridIdentity3D(t *testing.T) {
	p := mat.NewDense(3, 4, []float64{
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	g, err := NewTetrahedralGrid(p, [][4]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, g.ComputeGeometry())

	_, fn, _, R, err := g.MapGrid()
	require.NoError(t, err)
	assert.Equal(t, 1.0, R.At(2, 2))
	r, _ := fn.Dims()
	assert.Equal(t, 3, r)
}

func TestRotationToZ(t *testing.T) {
	// Rotate an arbitrary unit normal onto e_z.
	n := [3]float64{1, 2, 2}
	for k := range n {
		n[k] /= 3
	}
	R := rotationToZ(n)
	var nz [3]float64
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			nz[i] += R.At(i, k) * n[k]
		}
	}
	assert.InDelta(t, 0.0, nz[0], 1e-12)
	assert.InDelta(t, 0.0, nz[1], 1e-12)
	assert.InDelta(t, 1.0, nz[2], 1e-12)
}
