package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/types"
	"github.com/stretchr/testify/require"
)

const testMeshOBJ = `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
g first
f 1 2 3
g second
f 1 3 4
`

func writeManifest(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "quad.obj"), []byte(testMeshOBJ), 0644))

	manifestFile := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(manifestFile, []byte(manifest), 0644))
	return manifestFile
}

func TestManifest(t *testing.T) {
	manifestFile := writeManifest(t, `{
  "meshes": [{"name": "quad", "path": "models/quad.obj"}],
  "materials": ["red", "green"],
  "instances": [
    {"mesh": "quad", "material": "green", "translate": [5, 0, 0], "scale": [2, 2, 2]},
    {"mesh": "quad", "matrix": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 7, 0, 1]}
  ],
  "bvh": {
    "workers": 3,
    "mesh": {"num_bins": 8, "min_leaf_size": 1, "extra_refs_budget": 0},
    "scene": {"strategy": "median"}
  }
}`)

	manifest, err := ReadScene(manifestFile)
	require.NoError(t, err)

	sc := manifest.Scene
	require.Len(t, sc.Meshes, 1)
	require.Equal(t, "quad", sc.Meshes[0].Name)
	require.Equal(t, 2, sc.Meshes[0].NumTriangles(), "groups should be merged into a single mesh")

	require.Len(t, sc.Materials, 2)
	require.False(t, sc.Materials[0].Used)
	require.True(t, sc.Materials[1].Used)

	require.Len(t, sc.MeshInstances, 2)
	require.Equal(t, uint32(1), sc.MeshInstances[0].MaterialIndex)
	require.Equal(t, types.AABB{Min: types.Vec3{5, 0, 0}, Max: types.Vec3{7, 2, 0}}, sc.MeshInstances[0].BBox(sc.Meshes[0]))
	require.Equal(t, types.Vec3{0, 7, 0}, sc.MeshInstances[1].Transform.Col3(3))

	opts := manifest.Options
	require.Equal(t, 3, opts.Workers)
	require.Equal(t, 8, opts.Mesh.NumBins)
	require.Equal(t, 1, opts.Mesh.MinLeafSize)
	require.Equal(t, float32(0), opts.Mesh.ExtraRefsBudget)
	require.Equal(t, bvh.DefaultMeshOptions().MaxLeafSize, opts.Mesh.MaxLeafSize)
	require.Equal(t, bvh.MedianSplit, opts.Scene.Strategy)
}

func TestManifestDefaultInstances(t *testing.T) {
	manifestFile := writeManifest(t, `{"meshes": [{"name": "a", "path": "models/quad.obj"}, {"name": "b", "path": "models/quad.obj"}]}`)

	manifest, err := ReadScene(manifestFile)
	require.NoError(t, err)
	require.Len(t, manifest.Scene.MeshInstances, 2)
	for index, inst := range manifest.Scene.MeshInstances {
		require.Equal(t, uint32(index), inst.MeshIndex)
		require.Equal(t, types.Ident4(), inst.Transform)
	}
}

func TestManifestAutoRegistersMaterials(t *testing.T) {
	manifestFile := writeManifest(t, `{
  "meshes": [{"name": "quad", "path": "models/quad.obj"}],
  "instances": [{"mesh": "quad", "material": "gold"}, {"mesh": "quad", "material": "gold"}]
}`)

	manifest, err := ReadScene(manifestFile)
	require.NoError(t, err)
	require.Len(t, manifest.Scene.Materials, 1)
	require.Equal(t, "gold", manifest.Scene.Materials[0].Name)
}

func TestManifestErrors(t *testing.T) {
	specs := []struct {
		manifest string
		expErr   string
	}{
		{`{"meshes": [`, "scene.json"},
		{`{"meshes": [], "cameras": []}`, "scene.json"},
		{`{"meshes": [{"name": "quad"}]}`, "name and path are required"},
		{`{"meshes": [{"name": "quad", "path": "models/quad.obj"}, {"name": "quad", "path": "models/quad.obj"}]}`, `duplicate mesh name "quad"`},
		{`{"meshes": [{"name": "quad", "path": "models/quad.obj"}], "instances": [{"mesh": "tri"}]}`, `unknown mesh with name "tri"`},
		{`{"meshes": [{"name": "quad", "path": "models/quad.obj"}], "materials": ["red"], "instances": [{"mesh": "quad", "material": "blue"}]}`, `unknown material with name "blue"`},
		{`{"meshes": [{"name": "quad", "path": "models/quad.obj"}], "instances": [{"mesh": "quad", "matrix": [1, 0, 0]}]}`, "expected matrix to contain 16 values"},
		{`{"meshes": [{"name": "quad", "path": "models/quad.obj"}], "instances": [{"mesh": "quad", "matrix": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1], "scale": [1, 1, 1]}]}`, "cannot be combined"},
		{`{"bvh": {"mesh": {"strategy": "octree"}}}`, "octree"},
	}

	for specIndex, spec := range specs {
		_, err := ReadScene(writeManifest(t, spec.manifest))
		require.ErrorIs(t, err, ErrSyntax, "spec %d", specIndex)
		require.Contains(t, err.Error(), spec.expErr, "spec %d", specIndex)
	}
}

func TestManifestMissingMesh(t *testing.T) {
	manifestFile := writeManifest(t, `{"meshes": [{"name": "quad", "path": "models/missing.obj"}]}`)

	_, err := ReadScene(manifestFile)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), `mesh "quad"`)
}

func TestUnsupportedSceneFormat(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scene.fbx")
	require.NoError(t, os.WriteFile(file, []byte{}, 0644))

	_, err := ReadScene(file)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadCompiledScene(file)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
