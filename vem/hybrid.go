package vem

import (
	"fmt"
	"log"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/meshflow/hybridvem/grid"
	"github.com/meshflow/hybridvem/params"
	"github.com/meshflow/hybridvem/utils"
)

// Data carries the cell-wise coefficients and boundary conditions of one
// discretization call. K and Source may be nil: the assembler substitutes
// unit isotropic permeability / a zero source and logs a notice.
type Data struct {
	K      *params.SecondOrderTensor
	Source []float64
	BC     *params.BoundaryCondition
	BCVal  params.BoundaryValues
}

// HybridDualVEM discretizes a second order elliptic equation with the hybrid
// dual virtual element method. The global system is posed on one trace
// unknown per face; cell velocity and pressure are eliminated per cell by
// static condensation and recovered afterwards by ComputeUP.
type HybridDualVEM struct{}

// NDof returns the number of degrees of freedom: one per face, except for
// the degenerate 0-d grid which carries a single unknown.
func (hd HybridDualVEM) NDof(g *grid.Grid) int {
	if g.Dim == 0 {
		return 1
	}
	return g.NumFaces
}

// MatrixRHS assembles the global hybrid matrix and right-hand side.
func (hd HybridDualVEM) MatrixRHS(g *grid.Grid, data *Data) (*sparse.CSR, []float64, error) {
	// A 0-d grid yields the identity: the single trace unknown equals the
	// cell pressure directly.
	if g.Dim == 0 {
		one := sparse.NewDOK(1, 1)
		one.Set(0, 0, 1)
		return one.ToCSR(), []float64{0}, nil
	}

	la, err := newLocalAssembler(g, data)
	if err != nil {
		return nil, nil, err
	}

	var (
		H   = sparse.NewDOK(g.NumFaces, g.NumFaces)
		rhs = make([]float64, g.NumFaces)
	)
	for c := 0; c < g.NumCells; c++ {
		L, rloc, faces, err := la.condensedBlock(c)
		if err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w", c, err)
		}
		// Accumulate: faces shared by two cells receive both contributions.
		for i, fi := range faces {
			for j, fj := range faces {
				H.Set(fi, fj, H.At(fi, fj)+L.At(i, j))
			}
			rhs[fi] += rloc[i]
		}
	}

	if err := hd.applyBC(g, data, H, rhs); err != nil {
		return nil, nil, err
	}
	return H.ToCSR(), rhs, nil
}

// applyBC applies Dirichlet and Neumann conditions in one pass over the
// tagged faces. The infinity norm used to scale Dirichlet rows is taken
// before any row is modified.
func (hd HybridDualVEM) applyBC(g *grid.Grid, data *Data, H *sparse.DOK, rhs []float64) error {
	if data == nil || data.BC == nil {
		return nil
	}
	bc := data.BC
	if bc.NumFaces != g.NumFaces {
		return fmt.Errorf("boundary condition sized for %d faces, grid has %d",
			bc.NumFaces, g.NumFaces)
	}
	bcVal := data.BCVal.Normalize()

	var hasDir bool
	for _, d := range bc.IsDir {
		if d {
			hasDir = true
			break
		}
	}
	if hasDir {
		norm := utils.SparseInfNorm(H)
		// Collect the row entries first; zeroing while iterating would
		// mutate the structure under the iterator.
		rowCols := make(map[int][]int)
		H.DoNonZero(func(i, j int, v float64) {
			if bc.IsDir[i] {
				rowCols[i] = append(rowCols[i], j)
			}
		})
		dirVal := bcVal[params.Dirichlet]
		for f := 0; f < g.NumFaces; f++ {
			if !bc.IsDir[f] {
				continue
			}
			for _, j := range rowCols[f] {
				H.Set(f, j, 0)
			}
			H.Set(f, f, norm)
			rhs[f] = 0
			if dirVal != nil {
				rhs[f] = norm * dirVal[f]
			}
		}
	}

	neuVal := bcVal[params.Neumann]
	if neuVal != nil {
		sgns := g.FaceSgns()
		for f := 0; f < g.NumFaces; f++ {
			if bc.IsNeu[f] {
				rhs[f] += sgns[f] * neuVal[f] * g.FaceAreas[f]
			}
		}
	}
	return nil
}

// ComputeUP recovers the face velocity and cell pressure from the solved
// trace unknowns l by re-running the per-cell local solves. Local matrices
// are recomputed, not cached, keeping assembly and recovery independent.
func (hd HybridDualVEM) ComputeUP(g *grid.Grid, l []float64, data *Data) (u, p []float64, err error) {
	if g.Dim == 0 {
		return []float64{}, []float64{l[0]}, nil
	}
	if len(l) != g.NumFaces {
		return nil, nil, fmt.Errorf("hybrid solution has %d entries, grid has %d faces",
			len(l), g.NumFaces)
	}

	la, err := newLocalAssembler(g, data)
	if err != nil {
		return nil, nil, err
	}

	u = make([]float64, g.NumFaces)
	p = make([]float64, g.NumCells)
	for c := 0; c < g.NumCells; c++ {
		A, faces, sgns, err := la.localBlocks(c)
		if err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w", c, err)
		}
		ndof := len(faces)
		B := constVec(ndof, -1)
		C := eye(ndof)

		lLoc := mat.NewDense(ndof, 1, nil)
		for i, f := range faces {
			lLoc.Set(i, 0, l[f])
		}

		// S = 1/(B^T A^-1 B) via linear solves for conditioning.
		var invAB mat.Dense
		if err := invAB.Solve(A, B); err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w: %v", c, ErrSingularLocalSystem, err)
		}
		S := 1 / dotCol(B, &invAB)

		var cl mat.Dense
		cl.Mul(C, lLoc)
		var invACl mat.Dense
		if err := invACl.Solve(A, &cl); err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w: %v", c, ErrSingularLocalSystem, err)
		}

		fLoc := la.source[c] * g.CellVolumes[c]
		p[c] = S * (fLoc - dotCol(B, &invACl))

		// u = -sgn .* A^-1 (B p + C l)
		var bp mat.Dense
		bp.Scale(p[c], B)
		bp.Add(&bp, &cl)
		var uLoc mat.Dense
		if err := uLoc.Solve(A, &bp); err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w: %v", c, ErrSingularLocalSystem, err)
		}
		for i, f := range faces {
			u[f] = -sgns[i] * uLoc.At(i, 0)
		}
	}
	return u, p, nil
}

// localAssembler precomputes the per-call geometry and coefficient data
// shared by assembly and recovery.
type localAssembler struct {
	g        *grid.Grid
	cCenters *mat.Dense // dim x numCells, mapped to the intrinsic frame
	fNormals *mat.Dense // dim x numFaces
	fCenters *mat.Dense // dim x numFaces
	diams    []float64
	weight   []float64 // stabilization weight diam^(2-dim)
	k        *params.SecondOrderTensor
	source   []float64
}

func newLocalAssembler(g *grid.Grid, data *Data) (*localAssembler, error) {
	if g.CellCenters == nil {
		return nil, fmt.Errorf("geometry not computed for %s", g.Name)
	}
	if data == nil {
		data = &Data{}
	}
	k := data.K
	if k == nil {
		log.Printf("vem: permeability not assigned, assuming unit isotropic")
		kxx := make([]float64, g.NumCells)
		for i := range kxx {
			kxx[i] = 1
		}
		k = params.NewIsotropicTensor(kxx)
	}
	source := data.Source
	if source == nil {
		log.Printf("vem: scalar source not assigned, assuming null")
		source = make([]float64, g.NumCells)
	}
	if len(source) != g.NumCells {
		return nil, fmt.Errorf("source has %d entries, grid has %d cells",
			len(source), g.NumCells)
	}

	cc, fn, fc, _, err := g.MapGrid()
	if err != nil {
		return nil, err
	}
	diams := g.CellDiameters()
	weight := make([]float64, g.NumCells)
	for c, d := range diams {
		weight[c] = math.Pow(d, float64(2-g.Dim))
	}
	return &localAssembler{
		g:        g,
		cCenters: cc,
		fNormals: fn,
		fCenters: fc,
		diams:    diams,
		weight:   weight,
		k:        k,
		source:   source,
	}, nil
}

// localBlocks builds the flux-mass matrix of cell c together with its global
// faces and incidence signs. Normals handed to the kernel are oriented
// outward by the signs.
func (la *localAssembler) localBlocks(c int) (A *mat.Dense, faces []int, sgns []float64, err error) {
	var (
		g     = la.g
		dim   = g.Dim
		ndof  = len(g.CellFaceIDs[c])
		fC    = mat.NewDense(dim, ndof, nil)
		nrm   = mat.NewDense(dim, ndof, nil)
		ones  = make([]float64, ndof)
		cCntr = make([]float64, dim)
	)
	faces = g.CellFaceIDs[c]
	sgns = g.CellFaceSgns[c]
	for i, f := range faces {
		for k := 0; k < dim; k++ {
			fC.Set(k, i, la.fCenters.At(k, f))
			nrm.Set(k, i, sgns[i]*la.fNormals.At(k, f))
		}
		ones[i] = 1
	}
	for k := 0; k < dim; k++ {
		cCntr[k] = la.cCenters.At(k, c)
	}
	K := la.k.Cell(c, dim)
	A, _, err = MassHdiv(K, cCntr, g.CellVolumes[c], fC, nrm, ones,
		la.diams[c], la.weight[c])
	return A, faces, sgns, err
}

// condensedBlock eliminates the cell velocity and pressure of cell c,
// returning the face-trace block L and its right-hand side contribution.
func (la *localAssembler) condensedBlock(c int) (L *mat.Dense, rloc []float64, faces []int, err error) {
	A, faces, _, err := la.localBlocks(c)
	if err != nil {
		return nil, nil, nil, err
	}
	ndof := len(faces)
	B := constVec(ndof, -1)
	C := eye(ndof)

	var invA mat.Dense
	if err := invA.Inverse(A); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrSingularLocalSystem, err)
	}
	var invAB mat.Dense
	invAB.Mul(&invA, B)
	S := 1 / dotCol(B, &invAB)

	// L = C^T (invA B S B^T invA - invA) C
	var outer mat.Dense
	outer.Mul(&invAB, invAB.T())
	outer.Scale(S, &outer)
	outer.Sub(&outer, &invA)
	var tmp, cond mat.Dense
	tmp.Mul(C.T(), &outer)
	cond.Mul(&tmp, C)

	// rloc = C^T invA B S f_loc
	fLoc := la.source[c] * la.g.CellVolumes[c]
	var r mat.Dense
	r.Scale(S*fLoc, &invAB)
	var rT mat.Dense
	rT.Mul(C.T(), &r)
	rloc = make([]float64, ndof)
	for i := 0; i < ndof; i++ {
		rloc[i] = rT.At(i, 0)
	}
	return &cond, rloc, faces, nil
}

// constVec is an n x 1 column with every entry set to v.
func constVec(n int, v float64) *mat.Dense {
	d := make([]float64, n)
	for i := range d {
		d[i] = v
	}
	return mat.NewDense(n, 1, d)
}

// dotCol is a^T b for n x 1 columns.
func dotCol(a, b *mat.Dense) float64 {
	n, _ := a.Dims()
	var s float64
	for i := 0; i < n; i++ {
		s += a.At(i, 0) * b.At(i, 0)
	}
	return s
}
