package grid

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NewTriangleGrid builds a 2-d grid from a 2 x N point set and a triangle
// connectivity list. The three edges of each triangle are enumerated opposite
// to their vertices as (0,1), (1,2), (2,0); shared edges are deduplicated on
// their sorted node pair. The first cell to reach an edge in traversal order
// gets the +1 incidence entry, the second the -1.
func NewTriangleGrid(p *mat.Dense, tri [][3]int) (*Grid, error) {
	nr, numNodes := p.Dims()
	if nr != 2 {
		return nil, fmt.Errorf("triangle grids require a 2 x N point set, got %d rows", nr)
	}
	if err := validatePoints(p, 2); err != nil {
		return nil, err
	}

	// Embed with a zero third coordinate.
	nodes := mat.NewDense(3, numNodes, nil)
	for j := 0; j < numNodes; j++ {
		nodes.Set(0, j, p.At(0, j))
		nodes.Set(1, j, p.At(1, j))
	}

	var (
		numCells     = len(tri)
		faceNodeIDs  [][]int
		faceIndex    = make(map[[2]int]int)
		cellFaceIDs  = make([][]int, numCells)
		cellFaceSgns = make([][]float64, numCells)
		cellNodeIDs  = make([][]int, numCells)
		edgeOf       = [3][2]int{{0, 1}, {1, 2}, {2, 0}}
	)
	for c, t := range tri {
		if err := validateSimplex(t[:], numNodes); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
		cellNodeIDs[c] = []int{t[0], t[1], t[2]}
		cellFaceIDs[c] = make([]int, 3)
		cellFaceSgns[c] = make([]float64, 3)
		for i, e := range edgeOf {
			key := [2]int{t[e[0]], t[e[1]]}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			f, ok := faceIndex[key]
			if !ok {
				f = len(faceNodeIDs)
				faceIndex[key] = f
				faceNodeIDs = append(faceNodeIDs, []int{key[0], key[1]})
				cellFaceSgns[c][i] = 1 // first occurrence
			} else {
				cellFaceSgns[c][i] = -1
			}
			cellFaceIDs[c][i] = f
		}
	}
	return newGrid(2, "TriangleGrid", nodes, faceNodeIDs, cellNodeIDs,
		cellFaceIDs, cellFaceSgns)
}

// NewTetrahedralGrid builds a 3-d grid from a 3 x N point set and a
// tetrahedron connectivity list. Handedness is normalized first: any
// tetrahedron with a positive signed volume (scalar triple product of the
// edge vectors from vertex 0) has its first two vertices swapped. The four
// triangular faces are then enumerated as (1,0,2), (0,1,3), (2,0,3),
// (1,2,3), deduplicated on their sorted node triple, and signed by the
// parity of the permutation sorting the triple: an occurrence whose argsort
// has an adjacent rank difference of one gets -1, otherwise +1. Consistent
// handedness makes the two occurrences of any interior face carry opposite
// parity.
func NewTetrahedralGrid(p *mat.Dense, tet [][4]int) (*Grid, error) {
	nr, numNodes := p.Dims()
	if nr != 3 {
		return nil, fmt.Errorf("tetrahedral grids require a 3 x N point set, got %d rows", nr)
	}
	if err := validatePoints(p, 3); err != nil {
		return nil, err
	}

	nodes := mat.NewDense(3, numNodes, nil)
	nodes.Copy(p)

	var (
		numCells     = len(tet)
		faceNodeIDs  [][]int
		faceIndex    = make(map[[3]int]int)
		cellFaceIDs  = make([][]int, numCells)
		cellFaceSgns = make([][]float64, numCells)
		cellNodeIDs  = make([][]int, numCells)
		faceOf       = [4][3]int{{1, 0, 2}, {0, 1, 3}, {2, 0, 3}, {1, 2, 3}}
	)
	for c, t := range tet {
		if err := validateSimplex(t[:], numNodes); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
		if tripleProduct(nodes, t) > 0 {
			t[0], t[1] = t[1], t[0]
		}
		cellNodeIDs[c] = []int{t[0], t[1], t[2], t[3]}
		cellFaceIDs[c] = make([]int, 4)
		cellFaceSgns[c] = make([]float64, 4)
		for i, fv := range faceOf {
			tuple := [3]int{t[fv[0]], t[fv[1]], t[fv[2]]}
			key := tuple
			sort.Ints(key[:])
			f, ok := faceIndex[key]
			if !ok {
				f = len(faceNodeIDs)
				faceIndex[key] = f
				faceNodeIDs = append(faceNodeIDs, []int{key[0], key[1], key[2]})
			}
			cellFaceIDs[c][i] = f
			cellFaceSgns[c][i] = tetFaceSgn(tuple)
		}
	}
	return newGrid(3, "TetrahedralGrid", nodes, faceNodeIDs, cellNodeIDs,
		cellFaceIDs, cellFaceSgns)
}

// tetFaceSgn applies the adjacent-rank-difference test on the argsort of the
// face tuple. This trick is tied to the simplex face enumeration above and
// does not generalize to other cell types.
func tetFaceSgn(tuple [3]int) float64 {
	var s [3]int // s[k] = position in tuple of the k-th smallest node
	for k := range s {
		s[k] = k
	}
	sort.Slice(s[:], func(a, b int) bool { return tuple[s[a]] < tuple[s[b]] })
	if s[1]-s[0] == 1 || s[2]-s[1] == 1 {
		return -1
	}
	return 1
}

func tripleProduct(nodes *mat.Dense, t [4]int) float64 {
	var d [3][3]float64 // edge vectors from vertex 0
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			d[i][k] = nodes.At(k, t[i+1]) - nodes.At(k, t[0])
		}
	}
	cx := d[0][1]*d[1][2] - d[1][1]*d[0][2]
	cy := d[0][2]*d[1][0] - d[1][2]*d[0][0]
	cz := d[0][0]*d[1][1] - d[1][0]*d[0][1]
	return d[2][0]*cx + d[2][1]*cy + d[2][2]*cz
}

// NewStructuredTriangleGrid splits an nx[0] x nx[1] Cartesian grid over a
// physdims[0] x physdims[1] domain into two triangles per quad, yielding
// 2*nx[0]*nx[1] cells on (nx[0]+1)*(nx[1]+1) nodes.
func NewStructuredTriangleGrid(nx [2]int, physdims [2]float64) (*Grid, error) {
	if nx[0] < 1 || nx[1] < 1 {
		return nil, fmt.Errorf("%w: structured grid needs at least one cell per direction",
			ErrInsufficientPoints)
	}
	var (
		nxp = nx[0] + 1
		nyp = nx[1] + 1
		p   = mat.NewDense(2, nxp*nyp, nil)
	)
	for j := 0; j < nyp; j++ {
		for i := 0; i < nxp; i++ {
			n := j*nxp + i
			p.Set(0, n, physdims[0]*float64(i)/float64(nx[0]))
			p.Set(1, n, physdims[1]*float64(j)/float64(nx[1]))
		}
	}
	tri := make([][3]int, 0, 2*nx[0]*nx[1])
	for j := 0; j < nx[1]; j++ {
		for i := 0; i < nx[0]; i++ {
			i1 := j*nxp + i      // lower left
			i2 := i1 + 1         // lower right
			i3 := i1 + nxp + 1   // upper right
			i4 := i1 + nxp       // upper left
			tri = append(tri, [3]int{i1, i2, i3}, [3]int{i1, i3, i4})
		}
	}
	g, err := NewTriangleGrid(p, tri)
	if err != nil {
		return nil, err
	}
	g.Name = "StructuredTriangleGrid"
	return g, nil
}

// NewPointGrid builds the degenerate 0-dimensional grid: a single cell on a
// single node with no faces, used in mixed-dimensional couplings.
func NewPointGrid(pt [3]float64) *Grid {
	g := &Grid{
		Dim:          0,
		Name:         "PointGrid",
		NumNodes:     1,
		NumCells:     1,
		Nodes:        mat.NewDense(3, 1, pt[:]),
		CellFaceIDs:  [][]int{{}},
		CellFaceSgns: [][]float64{{}},
		CellNodeIDs:  [][]int{{0}},
	}
	g.CellCenters = mat.NewDense(3, 1, pt[:])
	g.CellVolumes = []float64{1}
	return g
}

func validateSimplex(t []int, numNodes int) error {
	for i, v := range t {
		if v < 0 || v >= numNodes {
			return fmt.Errorf("%w: vertex index %d out of range", ErrInvalidSimplex, v)
		}
		for j := 0; j < i; j++ {
			if t[j] == v {
				return fmt.Errorf("%w: repeated vertex %d", ErrInvalidSimplex, v)
			}
		}
	}
	return nil
}

func validatePoints(p *mat.Dense, dim int) error {
	_, n := p.Dims()
	distinct := make(map[[3]float64]bool, n)
	for j := 0; j < n; j++ {
		var key [3]float64
		for k := 0; k < dim; k++ {
			key[k] = p.At(k, j)
		}
		distinct[key] = true
	}
	if len(distinct) < dim+1 {
		return fmt.Errorf("%w: %d distinct points for a %d-d grid",
			ErrInsufficientPoints, len(distinct), dim)
	}
	return nil
}
