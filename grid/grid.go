// Package grid builds simplex mesh topology (triangles and tetrahedra) from
// point sets and connectivity, with deduplicated faces and a signed cell-face
// incidence fixing the outward-normal convention per cell.
package grid

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Grid holds the topology and, after ComputeGeometry, the geometric
// quantities of a simplex mesh. Nodes are always stored embedded in 3-space;
// a 2-d grid carries a zero third coordinate.
type Grid struct {
	Dim  int
	Name string

	NumNodes int
	NumFaces int
	NumCells int

	// Nodes is 3 x NumNodes.
	Nodes *mat.Dense

	// FaceNodes is the node-face incidence, NumNodes x NumFaces, with
	// exactly Dim unit entries per column. Built once, never mutated.
	FaceNodes *sparse.CSR

	// CellFaces is the signed face-cell incidence, NumFaces x NumCells,
	// entries in {+1,-1}. The sign times the stored face normal points
	// outward from the cell.
	CellFaces *sparse.CSR

	// Slice forms of the incidence relations, in construction order.
	// CellFaceIDs[c] lists the Dim+1 global faces of cell c and
	// CellFaceSgns[c] their signs; FaceNodeIDs[f] lists the Dim nodes of
	// face f in ascending order.
	CellFaceIDs  [][]int
	CellFaceSgns [][]float64
	CellNodeIDs  [][]int
	FaceNodeIDs  [][]int

	// Geometry, populated by ComputeGeometry. CellCenters and FaceCenters
	// are 3 x NumCells / 3 x NumFaces; FaceNormals are area weighted.
	CellCenters *mat.Dense
	CellVolumes []float64
	FaceCenters *mat.Dense
	FaceNormals *mat.Dense
	FaceAreas   []float64
}

// newGrid assembles the sparse incidence matrices from the slice forms and
// verifies the topology invariants.
func newGrid(dim int, name string, nodes *mat.Dense, faceNodeIDs [][]int,
	cellNodeIDs [][]int, cellFaceIDs [][]int, cellFaceSgns [][]float64) (*Grid, error) {
	var (
		_, numNodes = nodes.Dims()
		numFaces    = len(faceNodeIDs)
		numCells    = len(cellFaceIDs)
	)
	g := &Grid{
		Dim:          dim,
		Name:         name,
		NumNodes:     numNodes,
		NumFaces:     numFaces,
		NumCells:     numCells,
		Nodes:        nodes,
		CellFaceIDs:  cellFaceIDs,
		CellFaceSgns: cellFaceSgns,
		CellNodeIDs:  cellNodeIDs,
		FaceNodeIDs:  faceNodeIDs,
	}

	fnDOK := sparse.NewDOK(numNodes, numFaces)
	for f, nn := range faceNodeIDs {
		for _, n := range nn {
			fnDOK.Set(n, f, 1)
		}
	}
	g.FaceNodes = fnDOK.ToCSR()

	cfDOK := sparse.NewDOK(numFaces, numCells)
	for c, ff := range cellFaceIDs {
		for i, f := range ff {
			cfDOK.Set(f, c, cellFaceSgns[c][i])
		}
	}
	g.CellFaces = cfDOK.ToCSR()

	if err := g.checkTopology(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkTopology fails fast on incidence violations so that corrupted indices
// never reach assembly.
func (g *Grid) checkTopology() error {
	for f, nn := range g.FaceNodeIDs {
		if len(nn) != g.Dim {
			return fmt.Errorf("%w: face %d has %d nodes, want %d",
				ErrTopology, f, len(nn), g.Dim)
		}
	}
	for c, ff := range g.CellFaceIDs {
		if len(ff) != g.Dim+1 {
			return fmt.Errorf("%w: cell %d has %d faces, want %d",
				ErrTopology, c, len(ff), g.Dim+1)
		}
		seen := make(map[int]bool, len(ff))
		for _, f := range ff {
			if seen[f] {
				return fmt.Errorf("%w: cell %d holds face %d twice",
					ErrTopology, c, f)
			}
			seen[f] = true
		}
	}
	// Interior faces must carry one +1 and one -1; boundary faces exactly
	// one nonzero entry.
	count := make([]int, g.NumFaces)
	sum := make([]float64, g.NumFaces)
	for c, ff := range g.CellFaceIDs {
		for i, f := range ff {
			count[f]++
			sum[f] += g.CellFaceSgns[c][i]
		}
	}
	for f := 0; f < g.NumFaces; f++ {
		switch count[f] {
		case 1:
			// boundary face
		case 2:
			if sum[f] != 0 {
				return fmt.Errorf("%w: interior face %d has sign sum %v",
					ErrTopology, f, sum[f])
			}
		default:
			return fmt.Errorf("%w: face %d bordered by %d cells",
				ErrTopology, f, count[f])
		}
	}
	return nil
}

// BoundaryFaces returns the faces bordered by exactly one cell, ascending.
func (g *Grid) BoundaryFaces() (bf []int) {
	count := make([]int, g.NumFaces)
	for _, ff := range g.CellFaceIDs {
		for _, f := range ff {
			count[f]++
		}
	}
	for f, n := range count {
		if n == 1 {
			bf = append(bf, f)
		}
	}
	return
}

// FaceSgns returns, per face, the incidence sign of its first bordering cell
// in traversal order. For boundary faces this is the unique entry.
func (g *Grid) FaceSgns() []float64 {
	sgns := make([]float64, g.NumFaces)
	seen := make([]bool, g.NumFaces)
	for c, ff := range g.CellFaceIDs {
		for i, f := range ff {
			if !seen[f] {
				seen[f] = true
				sgns[f] = g.CellFaceSgns[c][i]
			}
		}
	}
	return sgns
}

// CellDiameters returns, per cell, the largest distance between two of its
// vertices.
func (g *Grid) CellDiameters() []float64 {
	diams := make([]float64, g.NumCells)
	for c, nn := range g.CellNodeIDs {
		var dMax float64
		for i := 0; i < len(nn); i++ {
			for j := i + 1; j < len(nn); j++ {
				d := nodeDist(g.Nodes, nn[i], nn[j])
				if d > dMax {
					dMax = d
				}
			}
		}
		diams[c] = dMax
	}
	return diams
}

func nodeDist(nodes *mat.Dense, a, b int) float64 {
	var s float64
	for k := 0; k < 3; k++ {
		d := nodes.At(k, a) - nodes.At(k, b)
		s += d * d
	}
	return math.Sqrt(s)
}
