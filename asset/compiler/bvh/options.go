package bvh

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions = errors.New("bvh: invalid build options")
)

// The strategy used for selecting node splits.
type Strategy uint8

const (
	// Binned SAH with optional spatial splits.
	SurfaceAreaHeuristic Strategy = iota

	// Split every node at the median centroid along its longest axis. This
	// strategy ignores all cost parameters and is mostly useful as a baseline.
	MedianSplit
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case SurfaceAreaHeuristic:
		return "sah"
	case MedianSplit:
		return "median"
	}
	return "unknown"
}

// Parse a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "sah":
		return SurfaceAreaHeuristic, nil
	case "median":
		return MedianSplit, nil
	}
	return SurfaceAreaHeuristic, fmt.Errorf("%w: unknown split strategy %q", ErrInvalidOptions, name)
}

// Options control the BVH builder.
type Options struct {
	Strategy Strategy

	// Cost of traversing an internal node and cost of intersecting a single
	// primitive. Only their ratio affects the result.
	TraversalCost float32
	TriangleCost  float32

	// Number of SAH histogram bins per axis.
	NumBins int

	// Nodes with fewer references than MinLeafSize always become leafs.
	// Nodes with up to MaxLeafSize references become leafs if that is
	// cheaper (or equally expensive) than splitting them.
	MinLeafSize int
	MaxLeafSize int

	// The builder emits a leaf once this depth is reached. A zero value
	// disables the limit.
	MaxDepth int

	// Spatial splits are only evaluated for nodes above this depth. A zero
	// value disables spatial splits.
	MaxSpatialDepth int

	// Spatial splits are only evaluated when the overlap between the
	// children of the best object split (as a fraction of the parent node
	// area) exceeds this value.
	MinOverlap float32

	// The maximum number of references that spatial splits may duplicate
	// expressed as a fraction of the primitive count.
	ExtraRefsBudget float32
}

// Default options for building per-mesh (bottom level) trees.
func DefaultMeshOptions() Options {
	return Options{
		Strategy:        SurfaceAreaHeuristic,
		TraversalCost:   1.0,
		TriangleCost:    1.0,
		NumBins:         64,
		MinLeafSize:     4,
		MaxLeafSize:     16,
		MaxDepth:        64,
		MaxSpatialDepth: 48,
		MinOverlap:      1e-5,
		ExtraRefsBudget: 0.3,
	}
}

// Default options for building the scene (top level) tree. Every leaf holds
// exactly one mesh instance; spatial splits are disabled.
func DefaultSceneOptions() Options {
	return Options{
		Strategy:        SurfaceAreaHeuristic,
		TraversalCost:   1.0,
		TriangleCost:    1.0,
		NumBins:         64,
		MinLeafSize:     2,
		MaxLeafSize:     1,
		MaxDepth:        0,
		MaxSpatialDepth: 0,
		ExtraRefsBudget: 0,
	}
}

// Validate the options.
func (o Options) Validate() error {
	switch {
	case o.Strategy != SurfaceAreaHeuristic && o.Strategy != MedianSplit:
		return fmt.Errorf("%w: unknown split strategy %d", ErrInvalidOptions, o.Strategy)
	case o.NumBins < 2:
		return fmt.Errorf("%w: at least 2 bins are required; got %d", ErrInvalidOptions, o.NumBins)
	case o.TraversalCost < 0 || o.TriangleCost <= 0:
		return fmt.Errorf("%w: traversal cost must be >= 0 and triangle cost > 0", ErrInvalidOptions)
	case o.MinLeafSize < 0 || o.MaxLeafSize < 0 || o.MaxDepth < 0 || o.MaxSpatialDepth < 0:
		return fmt.Errorf("%w: leaf sizes and depth limits must be >= 0", ErrInvalidOptions)
	case o.MinOverlap < 0 || o.ExtraRefsBudget < 0:
		return fmt.Errorf("%w: overlap and reference budget must be >= 0", ErrInvalidOptions)
	}
	return nil
}

// Returns true if these options allow the builder to duplicate references.
func (o Options) SpatialSplits() bool {
	return o.Strategy == SurfaceAreaHeuristic && o.MaxSpatialDepth > 0 && o.ExtraRefsBudget > 0
}
