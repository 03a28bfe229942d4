package grid

import (
	"fmt"

	"github.com/pradeep-pyro/triangle"
	"gonum.org/v1/gonum/mat"
)

// NewTriangleGridDelaunay builds a 2-d grid from a bare point cloud,
// delegating connectivity to a Delaunay triangulation. Tetrahedral grids
// have no such fallback and always require explicit connectivity.
func NewTriangleGridDelaunay(p *mat.Dense) (*Grid, error) {
	nr, n := p.Dims()
	if nr != 2 {
		return nil, fmt.Errorf("triangle grids require a 2 x N point set, got %d rows", nr)
	}
	if err := validatePoints(p, 2); err != nil {
		return nil, err
	}
	pts := make([][2]float64, n)
	for j := 0; j < n; j++ {
		pts[j] = [2]float64{p.At(0, j), p.At(1, j)}
	}
	faces := triangle.Delaunay(pts)
	tri := make([][3]int, len(faces))
	for i, f := range faces {
		tri[i] = [3]int{int(f[0]), int(f[1]), int(f[2])}
	}
	return NewTriangleGrid(p, tri)
}
