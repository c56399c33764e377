package compiler

import (
	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
)

// The translator flattens the mesh and scene BVH trees into a single node
// list. Mesh trees are stored back to back followed by the scene tree.
type translator struct {
	meshes    []*input.Mesh
	instances []*input.MeshInstance
	blas      []*bvh.Tree
	tlas      *bvh.Tree

	out *scene.Scene
}

// Flatten all trees into a new scene.
func (tr *translator) process() *scene.Scene {
	tr.out = &scene.Scene{}
	tr.processBLAS()
	tr.processTLAS()
	return tr.out
}

// Flatten the mesh trees and build the triangle index, vertex and normal
// lists. Each tree is stored in depth-first pre-order.
func (tr *translator) processBLAS() {
	var numNodes, numIndices, numVertices int
	for meshIndex, tree := range tr.blas {
		numNodes += len(tree.Nodes)
		numIndices += len(tree.Indices)
		numVertices += len(tr.meshes[meshIndex].VerticesUVX)
	}

	out := tr.out
	out.BvhNodeList = make([]scene.BvhNode, numNodes, numNodes+len(tr.tlas.Nodes))
	out.MeshBvhRoots = make([]uint32, len(tr.blas))
	out.TriangleIndexList = make([]scene.TriangleIndices, 0, numIndices)
	out.VertexList = make([]types.Vec4, 0, numVertices)
	out.NormalList = make([]types.Vec4, 0, numVertices)

	var cursor uint32
	for meshIndex, tree := range tr.blas {
		mesh := tr.meshes[meshIndex]
		triStart := uint32(len(out.TriangleIndexList))
		vertexOffset := int32(len(out.VertexList))

		out.MeshBvhRoots[meshIndex] = cursor
		cursor = tr.flattenBLAS(tree, tree.Root, cursor, triStart)

		for _, primID := range tree.Indices {
			first := vertexOffset + 3*int32(primID)
			out.TriangleIndexList = append(out.TriangleIndexList, scene.TriangleIndices{X: first, Y: first + 1, Z: first + 2})
		}
		out.VertexList = append(out.VertexList, mesh.VerticesUVX...)
		out.NormalList = append(out.NormalList, mesh.NormalsUVY...)
	}

	out.TopLevelIndex = cursor
}

// Flatten the mesh subtree rooted at nodeIndex starting at the given cursor
// and return the next free node index. Leaf triangle ranges are offset by
// triStart.
func (tr *translator) flattenBLAS(tree *bvh.Tree, nodeIndex int32, cursor, triStart uint32) uint32 {
	node := &tree.Nodes[nodeIndex]
	self := cursor
	tr.out.BvhNodeList[self].SetBBox(node.Bounds)

	if node.IsLeaf() {
		tr.out.BvhNodeList[self].SetPrimitives(triStart+uint32(node.Start), uint32(node.Count))
		return cursor + 1
	}

	left := cursor + 1
	right := tr.flattenBLAS(tree, node.Left, left, triStart)
	next := tr.flattenBLAS(tree, node.Right, right, triStart)
	tr.out.BvhNodeList[self].SetChildNodes(left, right)
	return next
}

// Flatten the scene tree starting at TopLevelIndex and refresh the instance
// transforms. Any previously flattened scene tree is replaced; mesh nodes
// are never modified.
func (tr *translator) processTLAS() {
	out := tr.out
	out.BvhNodeList = append(out.BvhNodeList[:out.TopLevelIndex], make([]scene.BvhNode, len(tr.tlas.Nodes))...)
	tr.flattenTLAS(tr.tlas.Root, out.TopLevelIndex)

	out.InstanceTransforms = make([]types.Mat4, len(tr.instances))
	for index, mi := range tr.instances {
		// Rays are moved to instance space during traversal
		out.InstanceTransforms[index] = mi.Transform.Inv()
	}
}

// Flatten the scene subtree rooted at nodeIndex starting at the given
// cursor and return the next free node index.
func (tr *translator) flattenTLAS(nodeIndex int32, cursor uint32) uint32 {
	node := &tr.tlas.Nodes[nodeIndex]
	self := cursor
	tr.out.BvhNodeList[self].SetBBox(node.Bounds)

	if node.IsLeaf() {
		instIndex := tr.tlas.LeafPrimitives(node)[0]
		mi := tr.instances[instIndex]
		tr.out.BvhNodeList[self].SetMeshInstance(tr.out.MeshBvhRoots[mi.MeshIndex], mi.MaterialIndex, uint32(instIndex))
		return cursor + 1
	}

	left := cursor + 1
	right := tr.flattenTLAS(node.Left, left)
	next := tr.flattenTLAS(node.Right, right)
	tr.out.BvhNodeList[self].SetChildNodes(left, right)
	return next
}

// Re-flatten the scene tree in place after a rebuild and return the range
// of modified nodes.
func (tr *translator) updateTLAS() DirtyRange {
	tr.processTLAS()
	return DirtyRange{
		Start: tr.out.TopLevelIndex,
		End:   uint32(len(tr.out.BvhNodeList)),
	}
}
