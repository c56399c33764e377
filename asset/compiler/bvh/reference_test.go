package bvh

import (
	"testing"

	"github.com/achilleasa/accel/types"
)

func TestBoxSplitter(t *testing.T) {
	ref := Reference{
		Box: types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{4, 2, 2}},
	}

	left, right := BoxSplitter{}.SplitReference(ref, XAxis, 1)
	expLeft := types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 2, 2}}
	expRight := types.AABB{Min: types.Vec3{1, 0, 0}, Max: types.Vec3{4, 2, 2}}
	if left != expLeft {
		t.Fatalf("expected left box to be %v; got %v", expLeft, left)
	}
	if right != expRight {
		t.Fatalf("expected right box to be %v; got %v", expRight, right)
	}

	// Plane outside the box
	left, right = BoxSplitter{}.SplitReference(ref, YAxis, 5)
	if left != ref.Box {
		t.Fatalf("expected left box to be the whole reference; got %v", left)
	}
	if right.Valid() {
		t.Fatalf("expected right box to be empty; got %v", right)
	}
}

func TestTriangleSplitter(t *testing.T) {
	tri := [3]types.Vec3{{0, 0, 0}, {4, 0, 0}, {0, 4, 0}}
	splitter := TriangleSplitter{Triangles: [][3]types.Vec3{tri}}
	ref := Reference{Box: types.AABBFromPoints(tri[:]...), PrimitiveID: 0}

	left, right := splitter.SplitReference(ref, XAxis, 2)

	// Left part: (0,0) (2,0) (2,2) (0,4)
	expLeft := types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{2, 4, 0}}
	if left != expLeft {
		t.Fatalf("expected left box to be %v; got %v", expLeft, left)
	}

	// Right part: (2,0) (4,0) (2,2); tighter than clipping the box
	expRight := types.AABB{Min: types.Vec3{2, 0, 0}, Max: types.Vec3{4, 2, 0}}
	if right != expRight {
		t.Fatalf("expected right box to be %v; got %v", expRight, right)
	}

	if !ref.Box.Contains(left) || !ref.Box.Contains(right) {
		t.Fatal("expected split parts to be contained in the reference box")
	}
}

func TestTriangleSplitterClippedReference(t *testing.T) {
	tri := [3]types.Vec3{{0, 0, 0}, {4, 0, 0}, {0, 4, 0}}
	splitter := TriangleSplitter{Triangles: [][3]types.Vec3{tri}}

	// A reference that only covers the x in [0, 1] slab of the triangle
	ref := Reference{Box: types.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 4, 0}}}

	left, right := splitter.SplitReference(ref, YAxis, 3.5)
	if !ref.Box.Contains(left) || !ref.Box.Contains(right) {
		t.Fatalf("expected split parts %v, %v to be contained in %v", left, right, ref.Box)
	}
	if left.Max[YAxis] != 3.5 || right.Min[YAxis] != 3.5 {
		t.Fatalf("expected parts to meet at the split plane; got %v, %v", left, right)
	}
}
