package bvh

import (
	"github.com/achilleasa/accel/types"
	"github.com/chewxy/math32"
)

// A candidate split produced by the SAH evaluator. Cost is NaN when no
// useful split exists.
type Split struct {
	Axis Axis

	// For object splits, references whose centroid falls in a bin < Bin go
	// to the left child. Position is the world-space location of the split
	// plane for both object and spatial splits.
	Bin      int
	Position float32

	// The SAH cost normalized by the parent node area.
	Cost float32

	LeftBounds, RightBounds types.AABB
	LeftCount, RightCount   int

	// Area of the intersection of the child bounds as a fraction of the
	// parent node area.
	Overlap float32
}

// Returns true if this split can be used.
func (s Split) Valid() bool {
	return !math32.IsNaN(s.Cost)
}

func invalidSplit() Split {
	return Split{Cost: math32.NaN()}
}

type objectBin struct {
	bounds types.AABB
	count  int
}

type spatialBin struct {
	bounds      types.AABB
	enter, exit int
}

// Calculate the cost of a split with the given child bounds and counts.
func splitCost(opts *Options, parentArea float32, leftBounds types.AABB, leftCount int, rightBounds types.AABB, rightCount int) float32 {
	invArea := float32(1.0)
	if parentArea > 0 {
		invArea = 1.0 / parentArea
	}
	return opts.TraversalCost + opts.TriangleCost*
		(float32(leftCount)*leftBounds.SurfaceArea()+float32(rightCount)*rightBounds.SurfaceArea())*invArea
}

// Map a coordinate to a bin index.
func binIndex(c, origin, scale float32, numBins int) int {
	bin := int((c - origin) * scale)
	if bin < 0 {
		return 0
	} else if bin >= numBins {
		return numBins - 1
	}
	return bin
}

// Find the lowest cost object split for the reference range [start, start+count)
// by binning reference centroids along each axis.
func (b *builder) findObjectSplit(start, count int, bounds, centroidBounds types.AABB) Split {
	numBins := b.opts.NumBins
	parentArea := bounds.SurfaceArea()
	extents := centroidBounds.Extents()

	best := invalidSplit()
	bins := make([]objectBin, numBins)
	rightBounds := make([]types.AABB, numBins)
	rightCounts := make([]int, numBins)

	for axis := XAxis; axis <= ZAxis; axis++ {
		if extents[axis] <= 0 {
			continue
		}

		origin := centroidBounds.Min[axis]
		scale := float32(numBins) / extents[axis]
		for i := range bins {
			bins[i] = objectBin{bounds: types.EmptyAABB()}
		}

		for _, ref := range b.refs[start : start+count] {
			bin := binIndex(ref.Box.Center()[axis], origin, scale, numBins)
			bins[bin].bounds = bins[bin].bounds.GrowBox(ref.Box)
			bins[bin].count++
		}

		// Sweep right to left to compute suffix bounds/counts
		acc, accCount := types.EmptyAABB(), 0
		for i := numBins - 1; i > 0; i-- {
			acc = acc.GrowBox(bins[i].bounds)
			accCount += bins[i].count
			rightBounds[i] = acc
			rightCounts[i] = accCount
		}

		// Sweep left to right evaluating each bin boundary
		leftBox, leftCount := types.EmptyAABB(), 0
		for i := 1; i < numBins; i++ {
			leftBox = leftBox.GrowBox(bins[i-1].bounds)
			leftCount += bins[i-1].count
			if leftCount == 0 || rightCounts[i] == 0 {
				continue
			}

			cost := splitCost(&b.opts, parentArea, leftBox, leftCount, rightBounds[i], rightCounts[i])
			if best.Valid() && cost >= best.Cost {
				continue
			}

			best = Split{
				Axis:        axis,
				Bin:         i,
				Position:    origin + float32(i)/scale,
				Cost:        cost,
				LeftBounds:  leftBox,
				RightBounds: rightBounds[i],
				LeftCount:   leftCount,
				RightCount:  rightCounts[i],
			}
		}
	}

	if best.Valid() && parentArea > 0 {
		best.Overlap = types.Intersection(best.LeftBounds, best.RightBounds).SurfaceArea() / parentArea
	}
	return best
}

// Find the lowest cost spatial split for the reference range [start, start+count).
// Each reference is chopped into the bins it overlaps; the bins track how many
// references start (enter) and end (exit) inside them.
func (b *builder) findSpatialSplit(start, count int, bounds types.AABB) Split {
	numBins := b.opts.NumBins
	parentArea := bounds.SurfaceArea()
	extents := bounds.Extents()

	best := invalidSplit()
	bins := make([]spatialBin, numBins)
	rightBounds := make([]types.AABB, numBins)
	rightCounts := make([]int, numBins)

	for axis := XAxis; axis <= ZAxis; axis++ {
		if extents[axis] <= 0 {
			continue
		}

		origin := bounds.Min[axis]
		binSize := extents[axis] / float32(numBins)
		invBinSize := 1.0 / binSize
		for i := range bins {
			bins[i] = spatialBin{bounds: types.EmptyAABB()}
		}

		for _, ref := range b.refs[start : start+count] {
			first := binIndex(ref.Box.Min[axis], origin, invBinSize, numBins)
			last := binIndex(ref.Box.Max[axis], origin, invBinSize, numBins)

			cur := ref
			for bin := first; bin < last; bin++ {
				left, right := b.splitter.SplitReference(cur, axis, origin+binSize*float32(bin+1))
				bins[bin].bounds = bins[bin].bounds.GrowBox(left)
				cur.Box = right
			}
			bins[last].bounds = bins[last].bounds.GrowBox(cur.Box)
			bins[first].enter++
			bins[last].exit++
		}

		acc, accCount := types.EmptyAABB(), 0
		for i := numBins - 1; i > 0; i-- {
			acc = acc.GrowBox(bins[i].bounds)
			accCount += bins[i].exit
			rightBounds[i] = acc
			rightCounts[i] = accCount
		}

		leftBox, leftCount := types.EmptyAABB(), 0
		for i := 1; i < numBins; i++ {
			leftBox = leftBox.GrowBox(bins[i-1].bounds)
			leftCount += bins[i-1].enter
			if leftCount == 0 || rightCounts[i] == 0 {
				continue
			}

			cost := splitCost(&b.opts, parentArea, leftBox, leftCount, rightBounds[i], rightCounts[i])
			if best.Valid() && cost >= best.Cost {
				continue
			}

			best = Split{
				Axis:        axis,
				Bin:         i,
				Position:    origin + binSize*float32(i),
				Cost:        cost,
				LeftBounds:  leftBox,
				RightBounds: rightBounds[i],
				LeftCount:   leftCount,
				RightCount:  rightCounts[i],
			}
		}
	}

	if best.Valid() && parentArea > 0 {
		best.Overlap = types.Intersection(best.LeftBounds, best.RightBounds).SurfaceArea() / parentArea
	}
	return best
}
