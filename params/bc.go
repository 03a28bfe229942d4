package params

import (
	"errors"
	"fmt"
	"strings"
)

// Boundary condition labels, matched case-insensitively.
const (
	Dirichlet = "dir"
	Neumann   = "neu"
)

// ErrUnknownBoundaryLabel flags a boundary label outside {dir, neu}.
var ErrUnknownBoundaryLabel = errors.New("unknown boundary condition label")

// BoundaryCondition tags a subset of faces as Dirichlet or Neumann. Untagged
// faces stay internal coupling unknowns.
type BoundaryCondition struct {
	NumFaces int
	IsDir    []bool
	IsNeu    []bool
}

// NewBoundaryCondition tags faces[i] with labels[i]. Labels are matched
// case-insensitively against "dir" and "neu". A face carries at most one
// label: tagging the same face with both is an error, so the Dirichlet and
// Neumann treatments can never stack on one rhs entry.
func NewBoundaryCondition(numFaces int, faces []int, labels []string) (*BoundaryCondition, error) {
	if len(faces) != len(labels) {
		return nil, fmt.Errorf("got %d faces but %d labels", len(faces), len(labels))
	}
	bc := &BoundaryCondition{
		NumFaces: numFaces,
		IsDir:    make([]bool, numFaces),
		IsNeu:    make([]bool, numFaces),
	}
	for i, f := range faces {
		if f < 0 || f >= numFaces {
			return nil, fmt.Errorf("face %d out of range [0,%d)", f, numFaces)
		}
		switch strings.ToLower(labels[i]) {
		case Dirichlet:
			if bc.IsNeu[f] {
				return nil, fmt.Errorf("face %d tagged both %q and %q", f, Dirichlet, Neumann)
			}
			bc.IsDir[f] = true
		case Neumann:
			if bc.IsDir[f] {
				return nil, fmt.Errorf("face %d tagged both %q and %q", f, Dirichlet, Neumann)
			}
			bc.IsNeu[f] = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownBoundaryLabel, labels[i])
		}
	}
	return bc, nil
}

// BoundaryValues maps lowercase labels to full-length per-face value slices;
// values are read only at faces tagged with the matching label.
type BoundaryValues map[string][]float64

// Normalize lowercases the keys, so "Dir" and "dir" address the same slice.
func (bv BoundaryValues) Normalize() BoundaryValues {
	out := make(BoundaryValues, len(bv))
	for k, v := range bv {
		out[strings.ToLower(k)] = v
	}
	return out
}
