package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// checkIncidence verifies the signed cell-face invariants: interior faces
// carry one +1 and one -1, boundary faces exactly one entry, and every face
// column of FaceNodes has exactly Dim nodes.
func checkIncidence(t *testing.T, g *Grid) {
	t.Helper()
	count := make([]int, g.NumFaces)
	sum := make([]float64, g.NumFaces)
	for c := 0; c < g.NumCells; c++ {
		require.Len(t, g.CellFaceIDs[c], g.Dim+1)
		for i, f := range g.CellFaceIDs[c] {
			sgn := g.CellFaceSgns[c][i]
			assert.Contains(t, []float64{1, -1}, sgn)
			assert.Equal(t, sgn, g.CellFaces.At(f, c))
			count[f]++
			sum[f] += sgn
		}
	}
	for f := 0; f < g.NumFaces; f++ {
		switch count[f] {
		case 1:
		case 2:
			assert.Zero(t, sum[f], "interior face %d sign sum", f)
		default:
			t.Errorf("face %d bordered by %d cells", f, count[f])
		}
		require.Len(t, g.FaceNodeIDs[f], g.Dim)
		var nnz int
		for n := 0; n < g.NumNodes; n++ {
			if g.FaceNodes.At(n, f) != 0 {
				nnz++
			}
		}
		assert.Equal(t, g.Dim, nnz, "face %d node count", f)
	}
}

func TestTriangleGrid(t *testing.T) {
	// Two triangles sharing the diagonal of the unit square.
	p := mat.NewDense(2, 4, []float64{
		0, 1, 1, 0,
		0, 0, 1, 1,
	})
	tri := [][3]int{{0, 1, 2}, {0, 2, 3}}
	g, err := NewTriangleGrid(p, tri)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Dim)
	assert.Equal(t, 4, g.NumNodes)
	assert.Equal(t, 2, g.NumCells)
	assert.Equal(t, 5, g.NumFaces)
	checkIncidence(t, g)

	// The shared diagonal is the single interior face.
	assert.Len(t, g.BoundaryFaces(), 4)

	// First occurrence gets +1: cell 0 reached every one of its edges first.
	for i := range g.CellFaceIDs[0] {
		assert.Equal(t, 1.0, g.CellFaceSgns[0][i])
	}
}

func TestTriangleGridRejectsEmbedded(t *testing.T) {
	p := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 0, 1,
		0, 0, 0,
	})
	_, err := NewTriangleGrid(p, [][3]int{{0, 1, 2}})
	assert.Error(t, err)
}

func TestInvalidSimplex(t *testing.T) {
	p := mat.NewDense(2, 4, []float64{
		0, 1, 1, 0,
		0, 0, 1, 1,
	})
	_, err := NewTriangleGrid(p, [][3]int{{0, 1, 1}})
	assert.ErrorIs(t, err, ErrInvalidSimplex)

	_, err = NewTriangleGrid(p, [][3]int{{0, 1, 7}})
	assert.ErrorIs(t, err, ErrInvalidSimplex)
}

func TestInsufficientPoints(t *testing.T) {
	p := mat.NewDense(2, 3, []float64{
		0, 1, 0,
		0, 0, 0,
	})
	p.Set(0, 2, 0) // all three collapse onto two distinct points
	p.Set(1, 2, 0)
	_, err := NewTriangleGrid(p, [][3]int{{0, 1, 2}})
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestStructuredTriangleGrid(t *testing.T) {
	cases := [][2]int{{1, 1}, {2, 2}, {3, 2}, {4, 7}}
	for _, nx := range cases {
		g, err := NewStructuredTriangleGrid(nx, [2]float64{1, 1})
		require.NoError(t, err)
		assert.Equal(t, 2*nx[0]*nx[1], g.NumCells, "nx=%v", nx)
		assert.Equal(t, (nx[0]+1)*(nx[1]+1), g.NumNodes, "nx=%v", nx)
		checkIncidence(t, g)
	}
}

func TestTetrahedralGrid(t *testing.T) {
	// Unit cube split into six tetrahedra around the main diagonal 0-6.
	p := mat.NewDense(3, 8, []float64{
		0, 1, 1, 0, 0, 1, 1, 0,
		0, 0, 1, 1, 0, 0, 1, 1,
		0, 0, 0, 0, 1, 1, 1, 1,
	})
	tet := [][4]int{
		{0, 1, 2, 6},
		{0, 2, 3, 6},
		{0, 3, 7, 6},
		{0, 7, 4, 6},
		{0, 4, 5, 6},
		{0, 5, 1, 6},
	}
	g, err := NewTetrahedralGrid(p, tet)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Dim)
	assert.Equal(t, 8, g.NumNodes)
	assert.Equal(t, 6, g.NumCells)
	// 6 interior faces around the diagonal plus 12 boundary faces.
	assert.Equal(t, 18, g.NumFaces)
	assert.Len(t, g.BoundaryFaces(), 12)
	checkIncidence(t, g)
}

func TestSingleTetrahedron(t *testing.T) {
	p := mat.NewDense(3, 4, []float64{
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	g, err := NewTetrahedralGrid(p, [][4]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumFaces)
	assert.Len(t, g.BoundaryFaces(), 4)
	checkIncidence(t, g)
}

func TestPointGrid(t *testing.T) {
	g := NewPointGrid([3]float64{1, 2, 3})
	assert.Equal(t, 0, g.Dim)
	assert.Equal(t, 1, g.NumCells)
	assert.Equal(t, 0, g.NumFaces)
	require.NoError(t, g.ComputeGeometry())
}

func TestTriangleGridDelaunayRejectsEmbedded(t *testing.T) {
	p := mat.NewDense(3, 4, []float64{
		0, 1, 1, 0,
		0, 0, 1, 1,
		0, 0, 0, 0,
	})
	_, err := NewTriangleGridDelaunay(p)
	require.Error(t, err)
	// Wrong row count is a shape problem, not a point-count problem.
	assert.NotErrorIs(t, err, ErrInsufficientPoints)
}

func TestTriangleGridDelaunay(t *testing.T) {
	p := mat.NewDense(2, 5, []float64{
		0, 1, 1, 0, 0.5,
		0, 0, 1, 1, 0.5,
	})
	g, err := NewTriangleGridDelaunay(p)
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumCells)
	checkIncidence(t, g)
}
