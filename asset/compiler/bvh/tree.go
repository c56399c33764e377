package bvh

import (
	"fmt"
	"time"

	"github.com/achilleasa/accel/types"
)

// Build statistics.
type Stats struct {
	// Number of input primitives and number of references stored in leafs.
	// The difference is the number of references duplicated by spatial splits.
	Primitives int
	References int
	Duplicates int

	Nodes  int
	Leaves int
	Height int

	ObjectSplits  int
	SpatialSplits int
	MedianSplits  int

	// Number of node blocks appended after the initial node allocation.
	ArchivedBlocks int

	BuildTime time.Duration
}

// Ratio of leaf references to input primitives.
func (s Stats) DuplicationRatio() float32 {
	if s.Primitives == 0 {
		return 0
	}
	return float32(s.References) / float32(s.Primitives)
}

// A BVH tree. Trees are immutable once built.
type Tree struct {
	Nodes []Node
	Root  int32

	// Primitive ids referenced by leaf nodes. A primitive may appear more
	// than once if it was duplicated by a spatial split.
	Indices []int

	Stats Stats
}

// Get the root node bounds.
func (t *Tree) Bounds() types.AABB {
	return t.Nodes[t.Root].Bounds
}

// Get the primitive ids referenced by a leaf node.
func (t *Tree) LeafPrimitives(n *Node) []int {
	return t.Indices[n.Start : n.Start+n.Count]
}

// Visit all nodes in depth-first pre-order (left child first). The visitor
// receives the node index and its depth; returning false prunes the subtree.
func (t *Tree) Walk(visitor func(index int32, node *Node, depth int) bool) {
	var walk func(index int32, depth int)
	walk = func(index int32, depth int) {
		node := &t.Nodes[index]
		if !visitor(index, node, depth) || node.IsLeaf() {
			return
		}
		walk(node.Left, depth+1)
		walk(node.Right, depth+1)
	}
	walk(t.Root, 0)
}

// Get the tree height. A tree consisting only of a root leaf has height 0.
func (t *Tree) Height() int {
	height := 0
	t.Walk(func(_ int32, _ *Node, depth int) bool {
		if depth > height {
			height = depth
		}
		return true
	})
	return height
}

// Calculate the expected traversal cost of the tree using the SAH:
//
// cost(leaf) = triangle cost * count
// cost(node) = traversal cost + Σ area(child) / area(node) * cost(child)
func (t *Tree) SAHCost(opts Options) float32 {
	var cost func(index int32) float32
	cost = func(index int32) float32 {
		node := &t.Nodes[index]
		if node.IsLeaf() {
			return opts.TriangleCost * float32(node.Count)
		}

		area := node.Bounds.SurfaceArea()
		if area <= 0 {
			return opts.TraversalCost + cost(node.Left) + cost(node.Right)
		}

		left, right := &t.Nodes[node.Left], &t.Nodes[node.Right]
		return opts.TraversalCost +
			left.Bounds.SurfaceArea()/area*cost(node.Left) +
			right.Bounds.SurfaceArea()/area*cost(node.Right)
	}
	return cost(t.Root)
}

// Check the tree structure: every internal node has two distinct in-range
// children, every node except the root has exactly one parent, parent
// bounds contain child bounds, leaf ranges are in bounds and every primitive
// id in [0, numPrimitives) is referenced by at least one leaf.
func (t *Tree) Validate(numPrimitives int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("bvh: tree has no nodes")
	}

	parents := make([]int, len(t.Nodes))
	covered := make([]bool, numPrimitives)
	for index := range t.Nodes {
		node := &t.Nodes[index]
		if node.IsLeaf() {
			if node.Start < 0 || node.Count < 0 || int(node.Start+node.Count) > len(t.Indices) {
				return fmt.Errorf("bvh: leaf %d range [%d, %d) out of bounds", index, node.Start, node.Start+node.Count)
			}
			for _, primID := range t.LeafPrimitives(node) {
				if primID < 0 || primID >= numPrimitives {
					return fmt.Errorf("bvh: leaf %d references unknown primitive %d", index, primID)
				}
				covered[primID] = true
			}
			continue
		}

		for _, child := range []int32{node.Left, node.Right} {
			if child < 0 || int(child) >= len(t.Nodes) || child == int32(index) {
				return fmt.Errorf("bvh: node %d has invalid child %d", index, child)
			}
			if !node.Bounds.Contains(t.Nodes[child].Bounds) {
				return fmt.Errorf("bvh: node %d bounds %v do not contain child %d bounds %v", index, node.Bounds, child, t.Nodes[child].Bounds)
			}
			parents[child]++
		}
		if node.Left == node.Right {
			return fmt.Errorf("bvh: node %d references the same child twice", index)
		}
	}

	for index, count := range parents {
		switch {
		case int32(index) == t.Root && count != 0:
			return fmt.Errorf("bvh: root node %d has a parent", index)
		case int32(index) != t.Root && count != 1:
			return fmt.Errorf("bvh: node %d has %d parents", index, count)
		}
	}

	visited := 0
	t.Walk(func(_ int32, _ *Node, _ int) bool {
		visited++
		return true
	})
	if visited != len(t.Nodes) {
		return fmt.Errorf("bvh: only %d out of %d nodes are reachable from the root", visited, len(t.Nodes))
	}

	for primID, ok := range covered {
		if !ok {
			return fmt.Errorf("bvh: primitive %d is not referenced by any leaf", primID)
		}
	}
	return nil
}
