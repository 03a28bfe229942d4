package grid

import "errors"

var (
	// ErrInvalidSimplex flags a simplex with repeated vertex indices or
	// indices outside the point set.
	ErrInvalidSimplex = errors.New("invalid simplex")

	// ErrInsufficientPoints flags a point set with fewer distinct points
	// than the dim+1 needed to form a single simplex.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrTopology flags a violation of the incidence invariants detected
	// after construction (face count per cell, interior sign sum).
	ErrTopology = errors.New("inconsistent mesh topology")
)
