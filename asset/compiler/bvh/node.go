package bvh

import (
	"sync"
	"sync/atomic"

	"github.com/achilleasa/accel/types"
)

type NodeKind uint8

const (
	Internal NodeKind = iota
	Leaf
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "internal"
}

// A BVH tree node. Internal nodes use Left/Right to index their children in
// the owning tree's node list. Leaf nodes use Start/Count to index the
// tree's packed primitive index list.
type Node struct {
	Kind   NodeKind
	Bounds types.AABB

	Left, Right int32
	Start       int32
	Count       int32
}

// IsLeaf returns true for leaf nodes.
func (n *Node) IsLeaf() bool {
	return n.Kind == Leaf
}

// A node arena that hands out node slots by atomically incrementing a
// counter. Slots are stored in fixed-size blocks; when the current block is
// exhausted a new one is appended and older blocks are kept in the archive
// so existing slot indices remain stable.
type nodeArena struct {
	blockSize int

	mu     sync.RWMutex
	blocks [][]Node

	count atomic.Int32
}

func newNodeArena(blockSize int) *nodeArena {
	if blockSize < 1 {
		blockSize = 1
	}
	return &nodeArena{
		blockSize: blockSize,
		blocks:    [][]Node{make([]Node, blockSize)},
	}
}

// Allocate a node slot and return its index.
func (a *nodeArena) alloc() int32 {
	index := a.count.Add(1) - 1

	block := int(index) / a.blockSize
	a.mu.RLock()
	needsGrowth := block >= len(a.blocks)
	a.mu.RUnlock()

	if needsGrowth {
		a.mu.Lock()
		for block >= len(a.blocks) {
			a.blocks = append(a.blocks, make([]Node, a.blockSize))
		}
		a.mu.Unlock()
	}

	return index
}

// Store node at the given slot.
func (a *nodeArena) set(index int32, node Node) {
	a.mu.RLock()
	a.blocks[int(index)/a.blockSize][int(index)%a.blockSize] = node
	a.mu.RUnlock()
}

// Number of allocated slots.
func (a *nodeArena) len() int {
	return int(a.count.Load())
}

// Number of blocks that were appended after the initial one.
func (a *nodeArena) archived() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.blocks) - 1
}

// Copy all allocated nodes into a contiguous slice.
func (a *nodeArena) nodes() []Node {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := a.len()
	out := make([]Node, 0, count)
	for _, block := range a.blocks {
		remaining := count - len(out)
		if remaining <= 0 {
			break
		}
		if remaining > len(block) {
			remaining = len(block)
		}
		out = append(out, block[:remaining]...)
	}
	return out
}
