package bvh

import (
	"testing"

	"github.com/achilleasa/accel/types"
	"github.com/chewxy/math32"
)

func newTestBuilder(boxes []types.AABB, opts Options) *builder {
	b := &builder{
		opts:     opts,
		splitter: BoxSplitter{},
		refs:     make([]Reference, len(boxes)),
		arena:    newNodeArena(2*len(boxes) - 1),
	}
	for index, box := range boxes {
		b.refs[index] = Reference{Box: box, PrimitiveID: index}
	}
	return b
}

func TestFindObjectSplit(t *testing.T) {
	boxes := []types.AABB{
		{Min: types.Vec3{-2, 0, -2}, Max: types.Vec3{-1, 1, -1}},
		{Min: types.Vec3{1, 0, -2}, Max: types.Vec3{2, 1, -1}},
		{Min: types.Vec3{-2, 0, 1}, Max: types.Vec3{-1, 1, 2}},
		{Min: types.Vec3{1, 0, 1}, Max: types.Vec3{2, 1, 2}},
	}

	b := newTestBuilder(boxes, DefaultMeshOptions())
	bounds, centroidBounds := b.rangeBounds(0, len(boxes))
	split := b.findObjectSplit(0, len(boxes), bounds, centroidBounds)

	if !split.Valid() {
		t.Fatal("expected a valid object split")
	}

	// X and Z splits are equally good; the first evaluated axis wins
	if split.Axis != XAxis {
		t.Fatalf("expected split axis to be X; got %d", split.Axis)
	}
	if split.LeftCount != 2 || split.RightCount != 2 {
		t.Fatalf("expected a 2/2 split; got %d/%d", split.LeftCount, split.RightCount)
	}

	// cost = 1 + (2 * 18 + 2 * 18) / 48
	if expCost := float32(2.5); math32.Abs(split.Cost-expCost) > 1e-5 {
		t.Fatalf("expected split cost to be %f; got %f", expCost, split.Cost)
	}
	if split.Overlap != 0 {
		t.Fatalf("expected disjoint children to have zero overlap; got %f", split.Overlap)
	}
}

func TestFindObjectSplitOverlap(t *testing.T) {
	boxes := []types.AABB{
		{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{3, 1, 1}},
		{Min: types.Vec3{1, 0, 0}, Max: types.Vec3{4, 1, 1}},
	}

	b := newTestBuilder(boxes, DefaultMeshOptions())
	bounds, centroidBounds := b.rangeBounds(0, len(boxes))
	split := b.findObjectSplit(0, len(boxes), bounds, centroidBounds)

	if !split.Valid() {
		t.Fatal("expected a valid object split")
	}

	// The overlap is the [1, 3] slab: area 10 out of 18
	expOverlap := float32(10.0 / 18.0)
	if math32.Abs(split.Overlap-expOverlap) > 1e-5 {
		t.Fatalf("expected overlap to be %f; got %f", expOverlap, split.Overlap)
	}
}

func TestFindObjectSplitDegenerateCentroids(t *testing.T) {
	box := types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}}
	boxes := []types.AABB{box, box, box, box}

	b := newTestBuilder(boxes, DefaultMeshOptions())
	bounds, centroidBounds := b.rangeBounds(0, len(boxes))
	if split := b.findObjectSplit(0, len(boxes), bounds, centroidBounds); split.Valid() {
		t.Fatalf("expected an invalid split for coincident centroids; got %+v", split)
	}
}

func TestFindSpatialSplit(t *testing.T) {
	// Two long boxes that overlap along X but can be separated by a plane
	// along Y
	boxes := []types.AABB{
		{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{10, 1, 1}},
		{Min: types.Vec3{0, 3, 0}, Max: types.Vec3{10, 4, 1}},
	}

	opts := DefaultMeshOptions()
	opts.NumBins = 4
	b := newTestBuilder(boxes, opts)
	bounds, _ := b.rangeBounds(0, len(boxes))
	split := b.findSpatialSplit(0, len(boxes), bounds)

	if !split.Valid() {
		t.Fatal("expected a valid spatial split")
	}
	if split.Axis != YAxis {
		t.Fatalf("expected split axis to be Y; got %d", split.Axis)
	}
	if split.LeftCount != 1 || split.RightCount != 1 {
		t.Fatalf("expected a 1/1 split; got %d/%d", split.LeftCount, split.RightCount)
	}
	if split.Position <= 1 || split.Position >= 3 {
		t.Fatalf("expected split plane to lie between the boxes; got %f", split.Position)
	}
}

func TestFindSpatialSplitDegenerateBounds(t *testing.T) {
	point := types.AABB{Min: types.Vec3{1, 1, 1}, Max: types.Vec3{1, 1, 1}}
	boxes := []types.AABB{point, point}

	b := newTestBuilder(boxes, DefaultMeshOptions())
	bounds, _ := b.rangeBounds(0, len(boxes))
	if split := b.findSpatialSplit(0, len(boxes), bounds); split.Valid() {
		t.Fatalf("expected an invalid split for zero extent bounds; got %+v", split)
	}
}

func TestPerformSpatialSplitDuplicates(t *testing.T) {
	unit := func(minX, maxX float32) types.AABB {
		return types.AABB{Min: types.Vec3{minX, 0, 0}, Max: types.Vec3{maxX, 1, 1}}
	}
	boxes := []types.AABB{unit(0, 1), unit(3, 4), unit(0, 4)}
	split := Split{
		Axis:        XAxis,
		Position:    2,
		Cost:        1,
		LeftBounds:  unit(0, 2),
		RightBounds: unit(2, 4),
		LeftCount:   2,
		RightCount:  2,
	}

	// With budget available the straddling reference is duplicated:
	// dup cost 40 < unsplit cost 46
	b := newTestBuilder(boxes, DefaultMeshOptions())
	b.dupBudget = 1
	req := splitRequest{start: 0, count: 3}
	req.bounds, req.centroidBounds = b.rangeBounds(0, 3)

	mid, dupCount, ok := b.performSpatialSplit(req, split)
	if !ok {
		t.Fatal("expected spatial split to succeed")
	}
	if mid != 2 || dupCount != 1 || len(b.refs) != 4 {
		t.Fatalf("expected mid 2, 1 duplicate and 4 refs; got mid %d, %d duplicates and %d refs", mid, dupCount, len(b.refs))
	}
	for _, ref := range b.refs[:mid] {
		if ref.Box.Max[XAxis] > 2 {
			t.Fatalf("expected left reference %v to end at the split plane", ref)
		}
	}
	for _, ref := range b.refs[mid:] {
		if ref.Box.Min[XAxis] < 2 {
			t.Fatalf("expected right reference %v to start at the split plane", ref)
		}
	}
	if b.duplicates != 1 {
		t.Fatalf("expected builder to track 1 duplicate; got %d", b.duplicates)
	}

	// Without budget the straddler is kept whole; left wins the tie
	b = newTestBuilder(boxes, DefaultMeshOptions())
	mid, dupCount, ok = b.performSpatialSplit(req, split)
	if !ok {
		t.Fatal("expected spatial split to succeed")
	}
	if mid != 2 || dupCount != 0 || len(b.refs) != 3 {
		t.Fatalf("expected mid 2, no duplicates and 3 refs; got mid %d, %d duplicates and %d refs", mid, dupCount, len(b.refs))
	}
	if b.refs[1].PrimitiveID != 2 || b.refs[1].Box != unit(0, 4) {
		t.Fatalf("expected straddling reference to be kept whole on the left; got %+v", b.refs[1])
	}
}

func TestPerformSpatialSplitCollapse(t *testing.T) {
	box := types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}}
	boxes := []types.AABB{box, box}

	b := newTestBuilder(boxes, DefaultMeshOptions())
	req := splitRequest{start: 0, count: 2}
	req.bounds, req.centroidBounds = b.rangeBounds(0, 2)

	// A plane past the boxes puts everything on the left
	split := Split{Axis: XAxis, Position: 5, Cost: 1, LeftBounds: box, RightBounds: box, LeftCount: 2, RightCount: 1}
	if _, _, ok := b.performSpatialSplit(req, split); ok {
		t.Fatal("expected spatial split with an empty child to be rejected")
	}
}
