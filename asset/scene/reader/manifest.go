package reader

import (
	"fmt"
	"time"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
	"github.com/segmentio/encoding/json"
)

// A JSON scene manifest:
//
//	{
//	  "meshes": [{"name": "bunny", "path": "models/bunny.obj"}],
//	  "materials": ["gold"],
//	  "instances": [
//	    {"mesh": "bunny", "material": "gold", "translate": [0, 1, 0], "rotate": [0, 90, 0], "scale": [2, 2, 2]},
//	    {"mesh": "bunny", "matrix": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1]}
//	  ],
//	  "bvh": {"workers": 4, "mesh": {"num_bins": 32}, "scene": {"strategy": "median"}}
//	}
//
// Mesh paths are resolved relative to the manifest. All polygons of a
// wavefront file are merged into a single mesh. Matrices are specified in
// column-major order.
type manifestJSON struct {
	Meshes    []meshJSON     `json:"meshes"`
	Materials []string       `json:"materials"`
	Instances []instanceJSON `json:"instances"`
	Bvh       *bvhJSON       `json:"bvh"`
}

type meshJSON struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type instanceJSON struct {
	Mesh      string      `json:"mesh"`
	Material  string      `json:"material"`
	Matrix    []float32   `json:"matrix"`
	Translate *types.Vec3 `json:"translate"`
	Rotate    *types.Vec3 `json:"rotate"`
	Scale     *types.Vec3 `json:"scale"`
}

type bvhJSON struct {
	Workers *int            `json:"workers"`
	Mesh    *bvhOptionsJSON `json:"mesh"`
	Scene   *bvhOptionsJSON `json:"scene"`
}

type bvhOptionsJSON struct {
	Strategy        *string  `json:"strategy"`
	TraversalCost   *float32 `json:"traversal_cost"`
	TriangleCost    *float32 `json:"triangle_cost"`
	NumBins         *int     `json:"num_bins"`
	MinLeafSize     *int     `json:"min_leaf_size"`
	MaxLeafSize     *int     `json:"max_leaf_size"`
	MaxDepth        *int     `json:"max_depth"`
	MaxSpatialDepth *int     `json:"max_spatial_depth"`
	MinOverlap      *float32 `json:"min_overlap"`
	ExtraRefsBudget *float32 `json:"extra_refs_budget"`
}

// Override the fields of opts that are present in the JSON block.
func (o *bvhOptionsJSON) apply(opts *bvh.Options) error {
	if o == nil {
		return nil
	}
	if o.Strategy != nil {
		strategy, err := bvh.ParseStrategy(*o.Strategy)
		if err != nil {
			return err
		}
		opts.Strategy = strategy
	}
	setFloat(&opts.TraversalCost, o.TraversalCost)
	setFloat(&opts.TriangleCost, o.TriangleCost)
	setInt(&opts.NumBins, o.NumBins)
	setInt(&opts.MinLeafSize, o.MinLeafSize)
	setInt(&opts.MaxLeafSize, o.MaxLeafSize)
	setInt(&opts.MaxDepth, o.MaxDepth)
	setInt(&opts.MaxSpatialDepth, o.MaxSpatialDepth)
	setFloat(&opts.MinOverlap, o.MinOverlap)
	setFloat(&opts.ExtraRefsBudget, o.ExtraRefsBudget)
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float32, src *float32) {
	if src != nil {
		*dst = *src
	}
}

type manifestReader struct {
	logger log.Logger
}

func newManifestReader() *manifestReader {
	return &manifestReader{
		logger: log.New("manifest reader"),
	}
}

// Read scene manifest.
func (r *manifestReader) Read(res *asset.Resource) (*Manifest, error) {
	r.logger.Noticef(`parsing scene manifest from "%s"`, res.Path())
	start := time.Now()

	var doc manifestJSON
	dec := json.NewDecoder(res)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: [%s] %v", ErrSyntax, res.Path(), err)
	}

	manifest := &Manifest{
		Scene:   input.NewScene(),
		Options: compiler.DefaultOptions(),
	}
	if err := r.applyOptions(doc.Bvh, &manifest.Options); err != nil {
		return nil, fmt.Errorf("%w: [%s] bvh: %v", ErrSyntax, res.Path(), err)
	}

	meshIndices := make(map[string]int, len(doc.Meshes))
	for index, meshDef := range doc.Meshes {
		if meshDef.Name == "" || meshDef.Path == "" {
			return nil, fmt.Errorf("%w: [%s] mesh %d: name and path are required", ErrSyntax, res.Path(), index)
		}
		if _, exists := meshIndices[meshDef.Name]; exists {
			return nil, fmt.Errorf("%w: [%s] mesh %d: duplicate mesh name %q", ErrSyntax, res.Path(), index, meshDef.Name)
		}

		mesh, err := r.loadMesh(meshDef, res)
		if err != nil {
			return nil, err
		}
		meshIndices[meshDef.Name] = len(manifest.Scene.Meshes)
		manifest.Scene.Meshes = append(manifest.Scene.Meshes, mesh)
	}

	matIndices := make(map[string]int, len(doc.Materials))
	for _, name := range doc.Materials {
		matIndices[name] = len(manifest.Scene.Materials)
		manifest.Scene.Materials = append(manifest.Scene.Materials, &input.Material{Name: name})
	}

	for index, instDef := range doc.Instances {
		inst, err := r.parseInstance(instDef, manifest.Scene, meshIndices, matIndices, len(doc.Materials) != 0)
		if err != nil {
			return nil, fmt.Errorf("%w: [%s] instance %d: %v", ErrSyntax, res.Path(), index, err)
		}
		manifest.Scene.MeshInstances = append(manifest.Scene.MeshInstances, inst)
	}

	// If no mesh instances are defined, create instances for each defined mesh
	if len(doc.Instances) == 0 {
		for meshIndex := range manifest.Scene.Meshes {
			manifest.Scene.MeshInstances = append(manifest.Scene.MeshInstances, &input.MeshInstance{
				MeshIndex: uint32(meshIndex),
				Transform: types.Ident4(),
			})
		}
	}

	r.logger.Noticef("parsed scene manifest in %d ms", time.Since(start).Nanoseconds()/1e6)
	return manifest, nil
}

func (r *manifestReader) applyOptions(doc *bvhJSON, opts *compiler.Options) error {
	if doc == nil {
		return nil
	}
	setInt(&opts.Workers, doc.Workers)
	if err := doc.Mesh.apply(&opts.Mesh); err != nil {
		return err
	}
	return doc.Scene.apply(&opts.Scene)
}

// Load a wavefront file and merge all of its polygons into a single mesh.
func (r *manifestReader) loadMesh(meshDef meshJSON, manifestRes *asset.Resource) (*input.Mesh, error) {
	res, err := asset.NewResource(meshDef.Path, manifestRes)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", meshDef.Name, err)
	}
	defer res.Close()

	wf := newWavefrontReader()
	wf.pushFrame(fmt.Sprintf("referenced from %s [mesh %q]", manifestRes.Path(), meshDef.Name))
	if err := wf.parse(res); err != nil {
		return nil, err
	}

	mesh := input.NewMesh(meshDef.Name)
	for _, part := range wf.rawScene.Meshes {
		mesh.VerticesUVX = append(mesh.VerticesUVX, part.VerticesUVX...)
		mesh.NormalsUVY = append(mesh.NormalsUVY, part.NormalsUVY...)
	}
	mesh.MarkBBoxDirty()

	r.logger.Infof(`loaded mesh "%s" from "%s" (%d triangles)`, meshDef.Name, res.Path(), mesh.NumTriangles())
	return mesh, nil
}

func (r *manifestReader) parseInstance(instDef instanceJSON, sc *input.Scene, meshIndices, matIndices map[string]int, strictMaterials bool) (*input.MeshInstance, error) {
	meshIndex, exists := meshIndices[instDef.Mesh]
	if !exists {
		return nil, fmt.Errorf("unknown mesh with name %q", instDef.Mesh)
	}

	inst := &input.MeshInstance{
		MeshIndex: uint32(meshIndex),
		Transform: types.Ident4(),
	}

	if instDef.Material != "" {
		matIndex, exists := matIndices[instDef.Material]
		if !exists {
			if strictMaterials {
				return nil, fmt.Errorf("unknown material with name %q", instDef.Material)
			}
			matIndex = len(sc.Materials)
			matIndices[instDef.Material] = matIndex
			sc.Materials = append(sc.Materials, &input.Material{Name: instDef.Material})
		}
		sc.Materials[matIndex].Used = true
		inst.MaterialIndex = uint32(matIndex)
	}

	hasTRS := instDef.Translate != nil || instDef.Rotate != nil || instDef.Scale != nil
	switch {
	case instDef.Matrix != nil && hasTRS:
		return nil, fmt.Errorf("matrix cannot be combined with translate/rotate/scale")
	case instDef.Matrix != nil:
		if len(instDef.Matrix) != 16 {
			return nil, fmt.Errorf("expected matrix to contain 16 values; got %d", len(instDef.Matrix))
		}
		copy(inst.Transform[:], instDef.Matrix)
	case hasTRS:
		translation, rotation, scale := types.Vec3{}, types.Vec3{}, types.Vec3{1, 1, 1}
		if instDef.Translate != nil {
			translation = *instDef.Translate
		}
		if instDef.Rotate != nil {
			rotation = *instDef.Rotate
		}
		if instDef.Scale != nil {
			scale = *instDef.Scale
		}
		inst.Transform = composeTransform(translation, rotation, scale)
	}

	return inst, nil
}
