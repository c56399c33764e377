package types

import "github.com/chewxy/math32"

// An axis-aligned bounding box. A box whose min exceeds its max along any
// axis is considered empty.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Create an empty box that can be grown to contain other boxes/points.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Create the bounding box of a set of points.
func AABBFromPoints(points ...Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Grow(p)
	}
	return box
}

// Return a copy of the box grown to contain point p.
func (b AABB) Grow(p Vec3) AABB {
	return AABB{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Return a copy of the box grown to contain box b2. Growing by an empty box
// is a no-op.
func (b AABB) GrowBox(b2 AABB) AABB {
	if !b2.Valid() {
		return b
	}
	return AABB{Min: MinVec3(b.Min, b2.Min), Max: MaxVec3(b.Max, b2.Max)}
}

// Union of two boxes.
func Union(b1, b2 AABB) AABB {
	return b1.GrowBox(b2)
}

// Intersection of two boxes. The result is empty if the boxes do not overlap.
func Intersection(b1, b2 AABB) AABB {
	return AABB{Min: MaxVec3(b1.Min, b2.Min), Max: MinVec3(b1.Max, b2.Max)}
}

// Returns true if the box is not empty. Flat boxes (min == max along an axis)
// are valid.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Get the box extents. Empty boxes have zero extents.
func (b AABB) Extents() Vec3 {
	if !b.Valid() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Calculate the box surface area. Returns 0 for empty boxes.
func (b AABB) SurfaceArea() float32 {
	if !b.Valid() {
		return 0
	}
	side := b.Max.Sub(b.Min)
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// Get the axis index with the largest extent.
func (b AABB) MaxDim() int {
	ext := b.Extents()
	dim := 0
	if ext[1] > ext[dim] {
		dim = 1
	}
	if ext[2] > ext[dim] {
		dim = 2
	}
	return dim
}

// Returns true if b fully contains b2. Every box contains an empty box.
func (b AABB) Contains(b2 AABB) bool {
	if !b2.Valid() {
		return true
	}
	return b.Min[0] <= b2.Min[0] && b.Min[1] <= b2.Min[1] && b.Min[2] <= b2.Min[2] &&
		b.Max[0] >= b2.Max[0] && b.Max[1] >= b2.Max[1] && b.Max[2] >= b2.Max[2]
}

// Transform the box by m and return the axis-aligned box that bounds the
// result. Each basis vector of m is scaled by the box min/max components and
// the per-axis extremes are summed together with the translation; this is
// equivalent to transforming all 8 corners.
func (b AABB) Transform(m Mat4) AABB {
	if !b.Valid() {
		return b
	}

	out := AABB{Min: m.Col3(3), Max: m.Col3(3)}
	for axis := 0; axis < 3; axis++ {
		basis := m.Col3(axis)
		lo := basis.Mul(b.Min[axis])
		hi := basis.Mul(b.Max[axis])
		out.Min = out.Min.Add(MinVec3(lo, hi))
		out.Max = out.Max.Add(MaxVec3(lo, hi))
	}
	return out
}
