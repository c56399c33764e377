package bvh

import "github.com/achilleasa/accel/types"

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// A reference to a primitive. Spatial splits may create several references
// to the same primitive, each one bounding a different part of it.
type Reference struct {
	Box         types.AABB
	PrimitiveID int
}

// The Splitter interface is implemented by objects that can clip a primitive
// reference against an axis-aligned plane.
type Splitter interface {
	// Split ref at pos along axis and return the bounds of the parts that
	// lie on either side of the plane. Both returned boxes must be contained
	// in ref.Box. A part that does not exist is reported as an empty box.
	SplitReference(ref Reference, axis Axis, pos float32) (left, right types.AABB)
}

// A splitter that clips the reference box itself. It can be used with any
// primitive type but produces looser bounds than a primitive-aware splitter.
type BoxSplitter struct{}

// SplitReference implements Splitter.
func (BoxSplitter) SplitReference(ref Reference, axis Axis, pos float32) (left, right types.AABB) {
	left, right = ref.Box, ref.Box
	if pos < left.Max[axis] {
		left.Max[axis] = pos
	}
	if pos > right.Min[axis] {
		right.Min[axis] = pos
	}
	return left, right
}

// A splitter that clips the triangle referenced by each primitive id instead
// of its bounding box.
type TriangleSplitter struct {
	Triangles [][3]types.Vec3
}

// SplitReference implements Splitter.
func (s TriangleSplitter) SplitReference(ref Reference, axis Axis, pos float32) (left, right types.AABB) {
	left, right = types.EmptyAABB(), types.EmptyAABB()

	tri := s.Triangles[ref.PrimitiveID]
	for i := 0; i < 3; i++ {
		v0, v1 := tri[i], tri[(i+1)%3]
		p0, p1 := v0[axis], v1[axis]

		if p0 <= pos {
			left = left.Grow(v0)
		}
		if p0 >= pos {
			right = right.Grow(v0)
		}

		// Edge crosses plane
		if (p0 < pos && p1 > pos) || (p0 > pos && p1 < pos) {
			p := v0.Lerp(v1, (pos-p0)/(p1-p0))
			p[axis] = pos
			left = left.Grow(p)
			right = right.Grow(p)
		}
	}

	// The reference may already be a clipped part of the triangle
	left = types.Intersection(left, ref.Box)
	right = types.Intersection(right, ref.Box)
	if left.Valid() && left.Max[axis] > pos {
		left.Max[axis] = pos
	}
	if right.Valid() && right.Min[axis] < pos {
		right.Min[axis] = pos
	}
	return left, right
}
