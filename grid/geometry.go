package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ComputeGeometry fills cell centers, cell volumes, face centers, face areas
// and area-weighted face normals. The stored normal of every face is oriented
// outward from the cell holding its +1 incidence entry, so that
// sign(cell,face) * normal always points out of the cell.
func (g *Grid) ComputeGeometry() error {
	if g.Dim == 0 {
		return nil
	}

	g.CellCenters = mat.NewDense(3, g.NumCells, nil)
	g.CellVolumes = make([]float64, g.NumCells)
	g.FaceCenters = mat.NewDense(3, g.NumFaces, nil)
	g.FaceNormals = mat.NewDense(3, g.NumFaces, nil)
	g.FaceAreas = make([]float64, g.NumFaces)

	for c, nn := range g.CellNodeIDs {
		for k := 0; k < 3; k++ {
			var s float64
			for _, n := range nn {
				s += g.Nodes.At(k, n)
			}
			g.CellCenters.Set(k, c, s/float64(len(nn)))
		}
		vol := g.cellVolume(nn)
		if vol <= 0 {
			return fmt.Errorf("%w: cell %d has volume %v", ErrTopology, c, vol)
		}
		g.CellVolumes[c] = vol
	}

	for f, nn := range g.FaceNodeIDs {
		for k := 0; k < 3; k++ {
			var s float64
			for _, n := range nn {
				s += g.Nodes.At(k, n)
			}
			g.FaceCenters.Set(k, f, s/float64(len(nn)))
		}
		nrm := g.faceNormal(nn)
		area := math.Sqrt(nrm[0]*nrm[0] + nrm[1]*nrm[1] + nrm[2]*nrm[2])
		if area <= 0 {
			return fmt.Errorf("%w: face %d has zero area", ErrTopology, f)
		}
		g.FaceAreas[f] = area
		for k := 0; k < 3; k++ {
			g.FaceNormals.Set(k, f, nrm[k])
		}
	}

	// Fix the stored orientation against the +1 cell of each face: for a
	// simplex the direction from cell center to face center is outward.
	for c, ff := range g.CellFaceIDs {
		for i, f := range ff {
			if g.CellFaceSgns[c][i] != 1 {
				continue
			}
			var dot float64
			for k := 0; k < 3; k++ {
				dot += g.FaceNormals.At(k, f) *
					(g.FaceCenters.At(k, f) - g.CellCenters.At(k, c))
			}
			if dot < 0 {
				for k := 0; k < 3; k++ {
					g.FaceNormals.Set(k, f, -g.FaceNormals.At(k, f))
				}
			}
		}
	}
	return nil
}

// cellVolume is the triangle area (dim 2) or tetrahedron volume (dim 3).
func (g *Grid) cellVolume(nn []int) float64 {
	switch g.Dim {
	case 2:
		ux := g.Nodes.At(0, nn[1]) - g.Nodes.At(0, nn[0])
		uy := g.Nodes.At(1, nn[1]) - g.Nodes.At(1, nn[0])
		vx := g.Nodes.At(0, nn[2]) - g.Nodes.At(0, nn[0])
		vy := g.Nodes.At(1, nn[2]) - g.Nodes.At(1, nn[0])
		return 0.5 * math.Abs(ux*vy-uy*vx)
	case 3:
		return math.Abs(tripleProduct(g.Nodes, [4]int{nn[0], nn[1], nn[2], nn[3]})) / 6
	}
	panic("unsupported grid dimension")
}

// faceNormal returns the area-weighted normal of a face in an arbitrary
// orientation; ComputeGeometry fixes the sign afterwards.
func (g *Grid) faceNormal(nn []int) [3]float64 {
	switch g.Dim {
	case 2:
		// Edge rotated a quarter turn: (dy, -dx, 0) has the edge length
		// as magnitude.
		dx := g.Nodes.At(0, nn[1]) - g.Nodes.At(0, nn[0])
		dy := g.Nodes.At(1, nn[1]) - g.Nodes.At(1, nn[0])
		return [3]float64{dy, -dx, 0}
	case 3:
		var u, v [3]float64
		for k := 0; k < 3; k++ {
			u[k] = g.Nodes.At(k, nn[1]) - g.Nodes.At(k, nn[0])
			v[k] = g.Nodes.At(k, nn[2]) - g.Nodes.At(k, nn[0])
		}
		return [3]float64{
			0.5 * (u[1]*v[2] - u[2]*v[1]),
			0.5 * (u[2]*v[0] - u[0]*v[2]),
			0.5 * (u[0]*v[1] - u[1]*v[0]),
		}
	}
	panic("unsupported grid dimension")
}
