package reader

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/asset/scene/writer"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

const testSceneOBJ = `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0 0 1
v 1 0 1
g quad
usemtl white
f 1 2 3 4
g roof
usemtl red
f 1 2 6 5
f 4 3 6 5
instance quad 0 0 0 0 0 0 1 1 1
instance quad 3 0 0 0 45 0 1 1 1
instance roof 0 2 0 0 0 0 1 2 1
`

func compileTestScene(t *testing.T) *scene.Scene {
	t.Helper()
	manifest, err := newWavefrontReader().Read(asset.NewResourceFromStream("scene.obj", strings.NewReader(testSceneOBJ)))
	require.NoError(t, err)

	acc, err := compiler.Compile(manifest.Scene, manifest.Options)
	require.NoError(t, err)
	return acc.Scene()
}

func TestZipRoundTrip(t *testing.T) {
	sc := compileTestScene(t)
	zipFile := filepath.Join(t.TempDir(), "scene.zip")
	require.NoError(t, writer.WriteScene(sc, zipFile))

	readBack, err := ReadCompiledScene(zipFile)
	require.NoError(t, err)
	require.Equal(t, sc, readBack)
	require.Equal(t, []string{"white", "red"}, readBack.Materials)
}

// Rewrite a valid archive, letting mutate replace or drop entries.
func rewriteArchive(t *testing.T, sc *scene.Scene, mutate func(name string, data []byte) ([]byte, bool)) string {
	t.Helper()
	srcFile := filepath.Join(t.TempDir(), "src.zip")
	require.NoError(t, writer.WriteScene(sc, srcFile))

	zr, err := zip.OpenReader(srcFile)
	require.NoError(t, err)
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var data bytes.Buffer
		_, err = data.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)

		out, keep := mutate(f.Name, data.Bytes())
		if !keep {
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(out)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	dstFile := filepath.Join(t.TempDir(), "dst.zip")
	require.NoError(t, os.WriteFile(dstFile, buf.Bytes(), 0644))
	return dstFile
}

func TestZipCorruptArchive(t *testing.T) {
	sc := compileTestScene(t)

	specs := []struct {
		descr  string
		mutate func(string, []byte) ([]byte, bool)
		expErr string
	}{
		{
			descr: "missing node list",
			mutate: func(name string, data []byte) ([]byte, bool) {
				return data, name != scene.NodesFile
			},
			expErr: "missing nodes.bin",
		},
		{
			descr: "truncated transforms",
			mutate: func(name string, data []byte) ([]byte, bool) {
				if name == scene.TransformsFile {
					return data[:len(data)-4], true
				}
				return data, true
			},
			expErr: "transforms.bin",
		},
		{
			descr: "unsupported version",
			mutate: func(name string, data []byte) ([]byte, bool) {
				if name == scene.MetadataFile {
					meta := sc.Metadata()
					meta.Version = scene.ArchiveVersion + 1
					data, _ = json.Marshal(meta)
				}
				return data, true
			},
			expErr: "unsupported archive version",
		},
		{
			descr: "negative triangle count",
			mutate: func(name string, data []byte) ([]byte, bool) {
				if name == scene.MetadataFile {
					meta := sc.Metadata()
					meta.Triangles = -1
					data, _ = json.Marshal(meta)
				}
				return data, true
			},
			expErr: "invalid element count -1",
		},
		{
			descr: "vertex count larger than the vertex list",
			mutate: func(name string, data []byte) ([]byte, bool) {
				if name == scene.MetadataFile {
					meta := sc.Metadata()
					meta.Vertices = 1 << 40
					data, _ = json.Marshal(meta)
				}
				return data, true
			},
			expErr: "vertices.bin: expected",
		},
		{
			descr: "top level index out of range",
			mutate: func(name string, data []byte) ([]byte, bool) {
				if name == scene.MetadataFile {
					meta := sc.Metadata()
					meta.TopLevelIndex = uint32(meta.Nodes)
					data, _ = json.Marshal(meta)
				}
				return data, true
			},
			expErr: "top level index",
		},
	}

	for _, spec := range specs {
		_, err := ReadCompiledScene(rewriteArchive(t, sc, spec.mutate))
		require.ErrorIs(t, err, scene.ErrCorruptArchive, spec.descr)
		require.Contains(t, err.Error(), spec.expErr, spec.descr)
	}
}

func TestZipNotAnArchive(t *testing.T) {
	zipFile := filepath.Join(t.TempDir(), "scene.zip")
	require.NoError(t, os.WriteFile(zipFile, []byte("not a zip file"), 0644))

	_, err := ReadCompiledScene(zipFile)
	require.ErrorIs(t, err, scene.ErrCorruptArchive)
}
