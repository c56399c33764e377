package scene

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/achilleasa/accel/types"
)

func TestBvhNodeEncoding(t *testing.T) {
	var node BvhNode

	node.SetChildNodes(4, 9)
	if node.Kind() != InternalNode {
		t.Fatalf("expected node kind to be internal; got %d", node.Kind())
	}
	if left, right := node.GetChildNodes(); left != 4 || right != 9 {
		t.Fatalf("expected children to be (4, 9); got (%d, %d)", left, right)
	}

	node.SetPrimitives(12, 3)
	if node.Kind() != MeshLeaf {
		t.Fatalf("expected node kind to be a mesh leaf; got %d", node.Kind())
	}
	if exp := (types.Vec3{12, 3, 1}); node.LRLeaf != exp {
		t.Fatalf("expected encoded leaf to be %v; got %v", exp, node.LRLeaf)
	}

	node.SetMeshInstance(7, 2, 0)
	if node.Kind() != InstanceLeaf {
		t.Fatalf("expected node kind to be an instance leaf; got %d", node.Kind())
	}
	if exp := (types.Vec3{7, 2, -1}); node.LRLeaf != exp {
		t.Fatalf("expected encoded leaf to be %v; got %v", exp, node.LRLeaf)
	}
	if root, mat, inst := node.GetMeshInstance(); root != 7 || mat != 2 || inst != 0 {
		t.Fatalf("expected instance (7, 2, 0); got (%d, %d, %d)", root, mat, inst)
	}
}

func TestBvhNodeWireLayout(t *testing.T) {
	if size := binary.Size(BvhNode{}); size != BvhNodeSize {
		t.Fatalf("expected node size to be %d bytes; got %d", BvhNodeSize, size)
	}

	node := BvhNode{}
	node.SetBBox(types.AABB{Min: types.Vec3{1, 2, 3}, Max: types.Vec3{4, 5, 6}})
	node.SetMeshInstance(10, 20, 29)

	var buf bytes.Buffer
	if err := binary.Write(&buf, ByteOrder, []BvhNode{node}); err != nil {
		t.Fatal(err)
	}

	var fields [9]float32
	if err := binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, &fields); err != nil {
		t.Fatal(err)
	}
	expFields := [9]float32{1, 2, 3, 4, 5, 6, 10, 20, -30}
	if fields != expFields {
		t.Fatalf("expected wire fields to be %v; got %v", expFields, fields)
	}
}

func TestSceneStats(t *testing.T) {
	sc := &Scene{
		BvhNodeList:        make([]BvhNode, 5),
		TopLevelIndex:      2,
		MeshBvhRoots:       []uint32{0},
		TriangleIndexList:  make([]TriangleIndices, 3),
		VertexList:         make([]types.Vec4, 9),
		NormalList:         make([]types.Vec4, 9),
		InstanceTransforms: make([]types.Mat4, 2),
	}

	stats := sc.Stats()
	for _, exp := range []string{"Mesh nodes", "Scene nodes", "Tri. indices", "Instances"} {
		if !strings.Contains(stats, exp) {
			t.Fatalf("expected stats table to contain %q; got:\n%s", exp, stats)
		}
	}

	meta := sc.Metadata()
	if meta.Nodes != 5 || meta.TopLevelIndex != 2 || meta.Instances != 2 || meta.Version != ArchiveVersion {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}
