package vem

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/james-bowman/sparse"

	"github.com/meshflow/hybridvem/grid"
)

type triplet struct {
	i, j int
	v    float64
}

// MatrixRHSParallel assembles the same system as MatrixRHS with the cell
// loop split across workers. Cell contributions are independent, so each
// worker fills a private triplet list and partial right-hand side; a single
// accumulation pass merges them, which keeps the duplicate-entry summation
// without fine-grained locking. nWorkers <= 0 uses GOMAXPROCS.
func (hd HybridDualVEM) MatrixRHSParallel(g *grid.Grid, data *Data, nWorkers int) (*sparse.CSR, []float64, error) {
	if g.Dim == 0 {
		return hd.MatrixRHS(g, data)
	}
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	if nWorkers > g.NumCells {
		nWorkers = g.NumCells
	}

	la, err := newLocalAssembler(g, data)
	if err != nil {
		return nil, nil, err
	}

	var (
		wg       sync.WaitGroup
		triplets = make([][]triplet, nWorkers)
		partials = make([][]float64, nWorkers)
		errs     = make([]error, nWorkers)
		chunk    = (g.NumCells + nWorkers - 1) / nWorkers
	)
	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var (
				lo  = w * chunk
				hi  = min(lo+chunk, g.NumCells)
				rhs = make([]float64, g.NumFaces)
			)
			for c := lo; c < hi; c++ {
				L, rloc, faces, err := la.condensedBlock(c)
				if err != nil {
					errs[w] = fmt.Errorf("cell %d: %w", c, err)
					return
				}
				for i, fi := range faces {
					for j, fj := range faces {
						triplets[w] = append(triplets[w],
							triplet{fi, fj, L.At(i, j)})
					}
					rhs[fi] += rloc[i]
				}
			}
			partials[w] = rhs
		}(w)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		H   = sparse.NewDOK(g.NumFaces, g.NumFaces)
		rhs = make([]float64, g.NumFaces)
	)
	for w := 0; w < nWorkers; w++ {
		for _, t := range triplets[w] {
			H.Set(t.i, t.j, H.At(t.i, t.j)+t.v)
		}
		for f, v := range partials[w] {
			rhs[f] += v
		}
	}
	if err := hd.applyBC(g, data, H, rhs); err != nil {
		return nil, nil, err
	}
	return H.ToCSR(), rhs, nil
}
