package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/accel/types"
	"github.com/olekukonko/tablewriter"
)

// The size of a serialized BvhNode in bytes.
const BvhNodeSize = 36

// The kind of a flattened BVH node as encoded in its leaf flag.
type NodeKind uint8

const (
	InternalNode NodeKind = iota
	MeshLeaf
	InstanceLeaf
)

// Bvh nodes are comprised of two Vec3 holding the node bounds and a
// multipurpose Vec3 whose value depends on the node type. All integers are
// stored as float32 values.
//
//   - For internal nodes (top/bottom BVH): (left child, right child, 0)
//   - For bottom BVH leafs: (first triangle index, triangle count, 1)
//   - For top BVH leafs: (mesh BVH root, material index, -(instance index + 1))
type BvhNode struct {
	BBoxMin types.Vec3
	BBoxMax types.Vec3
	LRLeaf  types.Vec3
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox types.AABB) {
	n.BBoxMin = bbox.Min
	n.BBoxMax = bbox.Max
}

// Get bounding box.
func (n *BvhNode) BBox() types.AABB {
	return types.AABB{Min: n.BBoxMin, Max: n.BBoxMax}
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LRLeaf = types.Vec3{float32(left), float32(right), 0}
}

// Get left and right child node indices.
func (n *BvhNode) GetChildNodes() (left, right uint32) {
	return uint32(n.LRLeaf[0]), uint32(n.LRLeaf[1])
}

// Set triangle index and count.
func (n *BvhNode) SetPrimitives(firstTriIndex, count uint32) {
	n.LRLeaf = types.Vec3{float32(firstTriIndex), float32(count), 1}
}

// Get triangle index and count.
func (n *BvhNode) GetPrimitives() (firstTriIndex, count uint32) {
	return uint32(n.LRLeaf[0]), uint32(n.LRLeaf[1])
}

// Set mesh instance.
func (n *BvhNode) SetMeshInstance(bvhRoot, materialIndex, instanceIndex uint32) {
	n.LRLeaf = types.Vec3{float32(bvhRoot), float32(materialIndex), -float32(instanceIndex + 1)}
}

// Get mesh instance.
func (n *BvhNode) GetMeshInstance() (bvhRoot, materialIndex, instanceIndex uint32) {
	return uint32(n.LRLeaf[0]), uint32(n.LRLeaf[1]), uint32(-n.LRLeaf[2]) - 1
}

// Get node kind.
func (n *BvhNode) Kind() NodeKind {
	switch {
	case n.LRLeaf[2] > 0:
		return MeshLeaf
	case n.LRLeaf[2] < 0:
		return InstanceLeaf
	}
	return InternalNode
}

// The vertex indices of a triangle.
type TriangleIndices struct {
	X, Y, Z int32
}

type Scene struct {
	// Mesh BVH nodes followed by the scene BVH nodes. The first scene BVH
	// node is stored at TopLevelIndex.
	BvhNodeList   []BvhNode
	TopLevelIndex uint32

	// The BVH root node of each mesh.
	MeshBvhRoots []uint32

	// Triangle vertex indices in the order referenced by mesh BVH leafs.
	TriangleIndexList []TriangleIndices

	// Vertex positions and normals; the w component of each holds the u
	// and v texture coordinate respectively.
	VertexList []types.Vec4
	NormalList []types.Vec4

	// Inverse transformation matrix of each mesh instance for moving rays
	// to instance space.
	InstanceTransforms []types.Mat4

	// Material names indexed by the material index stored in scene BVH
	// leafs.
	Materials []string
}

// Get the number of mesh instances.
func (sc *Scene) NumInstances() int {
	return len(sc.InstanceTransforms)
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	meshNodes := sc.BvhNodeList[:sc.TopLevelIndex]
	sceneNodes := sc.BvhNodeList[sc.TopLevelIndex:]

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.VertexList, sc.NormalList, sc.TriangleIndexList)})
	table.Append([]string{"", "Vertices", fmt.Sprint(len(sc.VertexList)), fmtSize(sc.VertexList)})
	table.Append([]string{"", "Normals", fmt.Sprint(len(sc.NormalList)), fmtSize(sc.NormalList)})
	table.Append([]string{"", "Tri. indices", fmt.Sprint(len(sc.TriangleIndexList)), fmtSize(sc.TriangleIndexList)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"BVH", "---", "", fmtSize(sc.BvhNodeList, sc.MeshBvhRoots)})
	table.Append([]string{"", "Mesh nodes", fmt.Sprint(len(meshNodes)), fmtSize(meshNodes)})
	table.Append([]string{"", "Scene nodes", fmt.Sprint(len(sceneNodes)), fmtSize(sceneNodes)})
	table.Append([]string{"", "Mesh roots", fmt.Sprint(len(sc.MeshBvhRoots)), fmtSize(sc.MeshBvhRoots)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Instances", "---", fmt.Sprint(len(sc.InstanceTransforms)), fmtSize(sc.InstanceTransforms)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.VertexList, sc.NormalList, sc.TriangleIndexList, sc.BvhNodeList, sc.MeshBvhRoots, sc.InstanceTransforms), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
