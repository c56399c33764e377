package writer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/types"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func testScene() *scene.Scene {
	sc := &scene.Scene{
		BvhNodeList:        make([]scene.BvhNode, 3),
		TopLevelIndex:      1,
		MeshBvhRoots:       []uint32{0},
		TriangleIndexList:  []scene.TriangleIndices{{X: 0, Y: 1, Z: 2}},
		VertexList:         []types.Vec4{{0, 0, 0, 0}, {1, 0, 0, 1}, {0, 1, 0, 0}},
		NormalList:         []types.Vec4{{0, 0, 1, 0}, {0, 0, 1, 0}, {0, 0, 1, 1}},
		InstanceTransforms: []types.Mat4{types.Ident4(), types.Ident4()},
		Materials:          []string{"white"},
	}
	sc.BvhNodeList[0].SetPrimitives(0, 1)
	sc.BvhNodeList[1].SetMeshInstance(0, 0, 0)
	sc.BvhNodeList[2].SetMeshInstance(0, 0, 1)
	return sc
}

func TestWriteArchive(t *testing.T) {
	sc := testScene()

	var buf bytes.Buffer
	require.NoError(t, writeArchive(&buf, sc))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	sizes := make(map[string]uint64)
	for _, f := range zr.File {
		sizes[f.Name] = f.UncompressedSize64
	}

	expSizes := map[string]uint64{
		scene.NodesFile:      3 * scene.BvhNodeSize,
		scene.IndicesFile:    12,
		scene.VerticesFile:   3 * 16,
		scene.NormalsFile:    3 * 16,
		scene.BlasRootsFile:  4,
		scene.TransformsFile: 2 * 64,
	}
	for name, expSize := range expSizes {
		require.Contains(t, sizes, name)
		require.Equal(t, expSize, sizes[name], name)
	}

	rc, err := zr.Open(scene.MetadataFile)
	require.NoError(t, err)
	defer rc.Close()

	var meta scene.Metadata
	require.NoError(t, json.NewDecoder(rc).Decode(&meta))
	require.Equal(t, sc.Metadata(), meta)
}

func TestWriteScene(t *testing.T) {
	zipFile := filepath.Join(t.TempDir(), "scene.zip")
	require.NoError(t, WriteScene(testScene(), zipFile))

	info, err := os.Stat(zipFile)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	err = WriteScene(testScene(), filepath.Join(t.TempDir(), "missing", "scene.zip"))
	require.Error(t, err)
}
