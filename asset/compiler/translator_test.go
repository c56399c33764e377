package compiler

import (
	"testing"

	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
	"github.com/stretchr/testify/require"
)

func TestTranslatorEncoding(t *testing.T) {
	sc := input.NewScene()
	sc.Meshes = append(sc.Meshes, gridMesh("quad", 1))
	sc.MeshInstances = append(sc.MeshInstances,
		&input.MeshInstance{MeshIndex: 0, MaterialIndex: 3, Transform: types.Ident4()},
		&input.MeshInstance{MeshIndex: 0, MaterialIndex: 7, Transform: types.Translate4(types.Vec3{10, 0, 0})},
	)

	acc, err := Compile(sc, testOptions())
	require.NoError(t, err)

	out := acc.Scene()
	require.Equal(t, uint32(1), out.TopLevelIndex)
	require.Equal(t, []uint32{0}, out.MeshBvhRoots)
	require.Equal(t, []scene.TriangleIndices{{X: 0, Y: 1, Z: 2}, {X: 3, Y: 4, Z: 5}}, out.TriangleIndexList)

	expNodes := []scene.BvhNode{
		// quad mesh leaf
		{BBoxMin: types.Vec3{0, 0, 0}, BBoxMax: types.Vec3{1, 1, 0}, LRLeaf: types.Vec3{0, 2, 1}},
		// scene root
		{BBoxMin: types.Vec3{0, 0, 0}, BBoxMax: types.Vec3{11, 1, 0}, LRLeaf: types.Vec3{2, 3, 0}},
		// instance leafs
		{BBoxMin: types.Vec3{0, 0, 0}, BBoxMax: types.Vec3{1, 1, 0}, LRLeaf: types.Vec3{0, 3, -1}},
		{BBoxMin: types.Vec3{10, 0, 0}, BBoxMax: types.Vec3{11, 1, 0}, LRLeaf: types.Vec3{0, 7, -2}},
	}
	require.Equal(t, expNodes, out.BvhNodeList)

	// Swap the instance positions; the scene leafs swap places
	instances := []*input.MeshInstance{
		{MeshIndex: 0, MaterialIndex: 3, Transform: types.Translate4(types.Vec3{10, 0, 0})},
		{MeshIndex: 0, MaterialIndex: 7, Transform: types.Ident4()},
	}
	dirty, err := acc.UpdateInstances(instances)
	require.NoError(t, err)
	require.Equal(t, DirtyRange{Start: 1, End: 4}, dirty)

	expNodes[2].LRLeaf = types.Vec3{0, 7, -2}
	expNodes[3].LRLeaf = types.Vec3{0, 3, -1}
	require.Equal(t, expNodes, out.BvhNodeList)
}

func TestTranslatorMultipleMeshes(t *testing.T) {
	sc := input.NewScene()
	sc.Meshes = append(sc.Meshes, gridMesh("quad", 1), gridMesh("grid", 2))
	sc.MeshInstances = append(sc.MeshInstances,
		&input.MeshInstance{MeshIndex: 1, Transform: types.Ident4()},
	)

	acc, err := Compile(sc, testOptions())
	require.NoError(t, err)

	// The second mesh triangle ranges and vertex indices follow the
	// first mesh
	out := acc.Scene()
	require.Equal(t, []uint32{0, 1}, out.MeshBvhRoots)
	requireFlattened(t, acc)

	for _, node := range out.BvhNodeList[1:out.TopLevelIndex] {
		if node.Kind() != scene.MeshLeaf {
			continue
		}
		first, count := node.GetPrimitives()
		require.True(t, first >= 2 && first+count <= 10, "expected grid leaf range [%d, %d) after the quad triangles", first, first+count)
		for _, tri := range out.TriangleIndexList[first : first+count] {
			require.True(t, tri.X >= 6, "expected grid triangle vertices after the quad vertices; got %d", tri.X)
		}
	}

	// A single instance scene tree is a leaf pointing at the grid root
	require.Len(t, out.BvhNodeList, int(out.TopLevelIndex)+1)
	bvhRoot, _, instIndex := out.BvhNodeList[out.TopLevelIndex].GetMeshInstance()
	require.Equal(t, uint32(1), bvhRoot)
	require.Equal(t, uint32(0), instIndex)
}
