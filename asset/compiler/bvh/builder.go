package bvh

import (
	"cmp"
	"slices"
	"time"

	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
	"github.com/chewxy/math32"
)

// The parameters for building a single tree node. Requests only live for
// the duration of a buildNode call.
type splitRequest struct {
	start, count int
	slot         int32

	bounds         types.AABB
	centroidBounds types.AABB
	level          int
}

type builder struct {
	logger   log.Logger
	opts     Options
	splitter Splitter

	// Primitive references. Spatial splits append duplicated references
	// after the end of the range being split; this is safe because the
	// right child is always built before the left one so any references
	// past the end of the current range have already been emitted.
	refs []Reference

	// Packed primitive indices referenced by leafs. Only the goroutine
	// running the build appends to this list.
	indices []int

	arena *nodeArena

	// The maximum number of duplicated references allowed for this build
	// and the number of duplicates created so far.
	dupBudget  int
	duplicates int

	stats Stats
}

// Construct a BVH tree over a list of primitive bounding boxes. The index
// of each box in prims is used as its primitive id. If splitter is nil, a
// BoxSplitter is used for spatial splits.
//
// The builder never fails: degenerate input always degrades to median
// splits and leafs. Option fields that fail validation are replaced by their
// defaults.
func Build(prims []types.AABB, opts Options, splitter Splitter) *Tree {
	if opts.Validate() != nil {
		opts = sanitize(opts)
	}
	if splitter == nil {
		splitter = BoxSplitter{}
	}

	numPrims := len(prims)
	dupBudget := 0
	if opts.SpatialSplits() {
		dupBudget = int(math32.Floor(float32(numPrims) * opts.ExtraRefsBudget))
	}

	// Pre-size the arena for a tree without duplicates plus the requested
	// budget; additional blocks of the same size are appended on demand.
	regularNodes := 2*numPrims - 1
	if regularNodes < 1 {
		regularNodes = 1
	}
	blockSize := int(float32(regularNodes) * (1.0 + opts.ExtraRefsBudget))

	b := &builder{
		logger:    log.New("bvh builder"),
		opts:      opts,
		splitter:  splitter,
		refs:      make([]Reference, numPrims, numPrims+dupBudget),
		indices:   make([]int, 0, numPrims+dupBudget),
		arena:     newNodeArena(blockSize),
		dupBudget: dupBudget,
		stats: Stats{
			Primitives: numPrims,
		},
	}

	start := time.Now()

	bounds, centroidBounds := types.EmptyAABB(), types.EmptyAABB()
	for index, box := range prims {
		b.refs[index] = Reference{Box: box, PrimitiveID: index}
		bounds = bounds.GrowBox(box)
		centroidBounds = centroidBounds.Grow(box.Center())
	}

	root := b.arena.alloc()
	b.buildNode(splitRequest{
		start:          0,
		count:          numPrims,
		slot:           root,
		bounds:         bounds,
		centroidBounds: centroidBounds,
	})

	b.stats.Duplicates = b.duplicates
	b.stats.References = len(b.indices)
	b.stats.Nodes = b.arena.len()
	b.stats.ArchivedBlocks = b.arena.archived()
	b.stats.BuildTime = time.Since(start)

	b.logger.Debugf(
		"BVH tree build time: %d ms, height: %d, nodes: %d, leafs: %d, splits (object/spatial/median): %d/%d/%d, duplicates: %d/%d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.Height, b.stats.Nodes, b.stats.Leaves,
		b.stats.ObjectSplits, b.stats.SpatialSplits, b.stats.MedianSplits,
		b.stats.Duplicates, b.dupBudget,
	)

	return &Tree{
		Nodes:   b.arena.nodes(),
		Root:    root,
		Indices: b.indices,
		Stats:   b.stats,
	}
}

// Replace invalid option values with defaults.
func sanitize(opts Options) Options {
	def := DefaultMeshOptions()
	if opts.Strategy != SurfaceAreaHeuristic && opts.Strategy != MedianSplit {
		opts.Strategy = def.Strategy
	}
	if opts.NumBins < 2 {
		opts.NumBins = def.NumBins
	}
	if opts.TraversalCost < 0 {
		opts.TraversalCost = def.TraversalCost
	}
	if opts.TriangleCost <= 0 {
		opts.TriangleCost = def.TriangleCost
	}
	if opts.MinLeafSize < 0 {
		opts.MinLeafSize = def.MinLeafSize
	}
	if opts.MaxLeafSize < 0 {
		opts.MaxLeafSize = def.MaxLeafSize
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxSpatialDepth < 0 {
		opts.MaxSpatialDepth = 0
	}
	if opts.MinOverlap < 0 {
		opts.MinOverlap = def.MinOverlap
	}
	if opts.ExtraRefsBudget < 0 {
		opts.ExtraRefsBudget = 0
	}
	return opts
}

// Build the node described by req and store it at req.slot.
func (b *builder) buildNode(req splitRequest) {
	if req.level > b.stats.Height {
		b.stats.Height = req.level
	}

	if req.count <= 1 || req.count < b.opts.MinLeafSize || (b.opts.MaxDepth > 0 && req.level >= b.opts.MaxDepth) {
		b.createLeaf(req)
		return
	}

	mid, end := 0, req.start+req.count
	if b.opts.Strategy == MedianSplit {
		mid = b.medianSplit(req)
	} else {
		var leaf bool
		if mid, end, leaf = b.sahSplit(req); leaf {
			b.createLeaf(req)
			return
		}
	}

	left := splitRequest{start: req.start, count: mid - req.start, level: req.level + 1}
	right := splitRequest{start: mid, count: end - mid, level: req.level + 1}
	left.bounds, left.centroidBounds = b.rangeBounds(left.start, left.count)
	right.bounds, right.centroidBounds = b.rangeBounds(right.start, right.count)
	left.slot = b.arena.alloc()
	right.slot = b.arena.alloc()

	b.arena.set(req.slot, Node{
		Kind:   Internal,
		Bounds: req.bounds,
		Left:   left.slot,
		Right:  right.slot,
	})

	// Right first; see the comment on builder.refs
	b.buildNode(right)
	b.buildNode(left)
}

// Select and perform a split for req using the SAH. Returns the index of
// the first reference in the right child and the end of the (possibly grown)
// reference range or true if a leaf should be created instead.
func (b *builder) sahSplit(req splitRequest) (mid, end int, leaf bool) {
	end = req.start + req.count

	objSplit := b.findObjectSplit(req.start, req.count, req.bounds, req.centroidBounds)

	spatialSplit := invalidSplit()
	if objSplit.Valid() &&
		req.level < b.opts.MaxSpatialDepth &&
		objSplit.Overlap > b.opts.MinOverlap &&
		b.duplicates < b.dupBudget &&
		b.arena.len() < b.arena.blockSize {
		spatialSplit = b.findSpatialSplit(req.start, req.count, req.bounds)
	}

	bestCost := math32.Inf(1)
	if objSplit.Valid() {
		bestCost = objSplit.Cost
	}
	useSpatial := spatialSplit.Valid() && spatialSplit.Cost < bestCost
	if useSpatial {
		bestCost = spatialSplit.Cost
	}

	// Leafs win ties
	leafCost := b.opts.TriangleCost * float32(req.count)
	if req.count <= b.opts.MaxLeafSize && leafCost <= bestCost {
		return 0, end, true
	}

	if useSpatial {
		if mid, dupCount, ok := b.performSpatialSplit(req, spatialSplit); ok {
			b.stats.SpatialSplits++
			return mid, end + dupCount, false
		}
	}

	if objSplit.Valid() {
		if mid, ok := b.performObjectSplit(req, objSplit); ok {
			b.stats.ObjectSplits++
			return mid, end, false
		}
	}

	return b.medianSplit(req), end, false
}

// Partition the reference range by object split bin. Returns false if one
// of the partitions is empty.
func (b *builder) performObjectSplit(req splitRequest, split Split) (int, bool) {
	axis := split.Axis
	origin := req.centroidBounds.Min[axis]
	scale := float32(b.opts.NumBins) / req.centroidBounds.Extents()[axis]

	refs := b.refs[req.start : req.start+req.count]
	mid := 0
	for i := range refs {
		if binIndex(refs[i].Box.Center()[axis], origin, scale, b.opts.NumBins) < split.Bin {
			refs[i], refs[mid] = refs[mid], refs[i]
			mid++
		}
	}

	if mid == 0 || mid == len(refs) {
		return 0, false
	}
	return req.start + mid, true
}

type refSide uint8

const (
	sideLeft refSide = iota
	sideRight
)

// Partition the reference range using a spatial split plane. References
// straddling the plane are either kept whole on one side or duplicated,
// depending on which option yields the lowest SAH cost. Duplicates are
// appended after the end of the range. Returns the index of the first
// reference in the right partition and the number of duplicates or false if
// one of the partitions is empty.
func (b *builder) performSpatialSplit(req splitRequest, split Split) (int, int, bool) {
	axis, pos := split.Axis, split.Position
	end := req.start + req.count

	leftArea := split.LeftBounds.SurfaceArea()
	rightArea := split.RightBounds.SurfaceArea()
	leftCount := float32(split.LeftCount)
	rightCount := float32(split.RightCount)
	dupCost := leftArea*leftCount + rightArea*rightCount

	sides := make([]refSide, req.count, req.count+b.dupBudget-b.duplicates)
	dups := make([]Reference, 0)
	leftRefs := 0

	for i := req.start; i < end; i++ {
		ref := b.refs[i]
		side := sideLeft

		switch {
		case ref.Box.Max[axis] <= pos:
		case ref.Box.Min[axis] >= pos:
			side = sideRight
		default:
			leftBox, rightBox := b.splitter.SplitReference(ref, axis, pos)
			switch {
			case !rightBox.Valid():
				b.refs[i].Box = leftBox
			case !leftBox.Valid():
				b.refs[i].Box = rightBox
				side = sideRight
			default:
				unsplitLeftCost := types.Union(split.LeftBounds, ref.Box).SurfaceArea()*leftCount + rightArea*(rightCount-1)
				unsplitRightCost := leftArea*(leftCount-1) + types.Union(split.RightBounds, ref.Box).SurfaceArea()*rightCount
				canDuplicate := b.duplicates < b.dupBudget

				// First-found wins: left, right, duplicate
				switch {
				case unsplitLeftCost <= unsplitRightCost && (unsplitLeftCost <= dupCost || !canDuplicate):
				case unsplitRightCost <= dupCost || !canDuplicate:
					side = sideRight
				default:
					b.refs[i].Box = leftBox
					dups = append(dups, Reference{Box: rightBox, PrimitiveID: ref.PrimitiveID})
					b.duplicates++
				}
			}
		}

		sides[i-req.start] = side
		if side == sideLeft {
			leftRefs++
		}
	}

	if len(dups) != 0 {
		b.refs = append(b.refs[:end], dups...)
		for range dups {
			sides = append(sides, sideRight)
		}
	} else if leftRefs == 0 || leftRefs == req.count {
		return 0, 0, false
	}

	// Stable partition: left refs first
	refs := b.refs[req.start : req.start+len(sides)]
	partitioned := make([]Reference, 0, len(refs))
	for i, ref := range refs {
		if sides[i] == sideLeft {
			partitioned = append(partitioned, ref)
		}
	}
	for i, ref := range refs {
		if sides[i] == sideRight {
			partitioned = append(partitioned, ref)
		}
	}
	copy(refs, partitioned)

	return req.start + leftRefs, len(dups), true
}

// Sort the reference range by centroid along the longest centroid axis and
// split it in half.
func (b *builder) medianSplit(req splitRequest) int {
	axis := req.centroidBounds.MaxDim()
	slices.SortStableFunc(b.refs[req.start:req.start+req.count], func(r1, r2 Reference) int {
		if c := cmp.Compare(r1.Box.Center()[axis], r2.Box.Center()[axis]); c != 0 {
			return c
		}
		return cmp.Compare(r1.PrimitiveID, r2.PrimitiveID)
	})

	b.stats.MedianSplits++
	return req.start + req.count/2
}

// Emit a leaf for the reference range of req.
func (b *builder) createLeaf(req splitRequest) {
	node := Node{
		Kind:   Leaf,
		Bounds: req.bounds,
		Start:  int32(len(b.indices)),
		Count:  int32(req.count),
	}
	for _, ref := range b.refs[req.start : req.start+req.count] {
		b.indices = append(b.indices, ref.PrimitiveID)
	}
	b.arena.set(req.slot, node)

	b.stats.Leaves++
}

// Calculate the bounds and centroid bounds of a reference range.
func (b *builder) rangeBounds(start, count int) (bounds, centroidBounds types.AABB) {
	bounds, centroidBounds = types.EmptyAABB(), types.EmptyAABB()
	for _, ref := range b.refs[start : start+count] {
		bounds = bounds.GrowBox(ref.Box)
		centroidBounds = centroidBounds.Grow(ref.Box.Center())
	}
	return bounds, centroidBounds
}
