package compiler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoMeshes         = errors.New("compiler: scene contains no meshes")
	ErrNoInstances      = errors.New("compiler: scene contains no mesh instances")
	ErrInvalidMeshIndex = errors.New("compiler: invalid mesh index")
	ErrMalformedMesh    = errors.New("compiler: malformed mesh")
	ErrTopologyChanged  = errors.New("compiler: mesh instance topology changed")
	ErrInvalidInstance  = errors.New("compiler: invalid mesh instance")
)

// A range of flattened BVH nodes [Start, End) modified by an update.
type DirtyRange struct {
	Start, End uint32
}

// Get the number of nodes in the range.
func (r DirtyRange) Len() int {
	return int(r.End - r.Start)
}

// An Accelerator owns the two-level BVH of a scene: one tree per mesh and a
// scene tree over the mesh instances together with their flattened
// representation.
//
// Updates are serialized; readers should access the flattened scene via
// View to avoid observing a partially updated node list.
type Accelerator struct {
	logger log.Logger
	opts   Options

	mu        sync.RWMutex
	meshes    []*input.Mesh
	instances []*input.MeshInstance
	materials []string

	blas []*bvh.Tree
	tlas *bvh.Tree

	tr  *translator
	out *scene.Scene
}

// Compile a scene representation parsed by a scene reader into a flattened
// two-level BVH.
func Compile(parsedScene *input.Scene, opts Options) (*Accelerator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	acc := &Accelerator{
		logger:    log.New("scene compiler"),
		opts:      opts,
		meshes:    append([]*input.Mesh(nil), parsedScene.Meshes...),
		instances: make([]*input.MeshInstance, len(parsedScene.MeshInstances)),
		materials: make([]string, len(parsedScene.Materials)),
	}
	for index, mi := range parsedScene.MeshInstances {
		if mi == nil {
			return nil, fmt.Errorf("%w: instance %d is nil", ErrInvalidInstance, index)
		}
		inst := *mi
		acc.instances[index] = &inst
	}
	for index, mat := range parsedScene.Materials {
		acc.materials[index] = mat.Name
	}

	if err := acc.validateInstances(acc.instances); err != nil {
		return nil, err
	}

	start := time.Now()
	acc.logger.Noticef("compiling scene (%d meshes, %d mesh instances)", len(acc.meshes), len(acc.instances))

	acc.blas = make([]*bvh.Tree, len(acc.meshes))
	meshIndices := make([]int, len(acc.meshes))
	for index := range meshIndices {
		meshIndices[index] = index
	}
	if err := acc.buildMeshTrees(meshIndices...); err != nil {
		return nil, err
	}
	acc.buildSceneTree()
	acc.translate()

	acc.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return acc, nil
}

// Check that the instance list is not empty and references valid meshes.
func (acc *Accelerator) validateInstances(instances []*input.MeshInstance) error {
	if len(acc.meshes) == 0 {
		return ErrNoMeshes
	}
	if len(instances) == 0 {
		return ErrNoInstances
	}
	for index, mi := range instances {
		if mi == nil {
			return fmt.Errorf("%w: instance %d is nil", ErrInvalidInstance, index)
		}
		if int(mi.MeshIndex) >= len(acc.meshes) {
			return fmt.Errorf("%w: instance %d references mesh %d; scene contains %d meshes", ErrInvalidMeshIndex, index, mi.MeshIndex, len(acc.meshes))
		}
		if len(acc.materials) != 0 && int(mi.MaterialIndex) >= len(acc.materials) {
			return fmt.Errorf("compiler: instance %d references undefined material %d", index, mi.MaterialIndex)
		}
	}
	return nil
}

func validateMesh(mesh *input.Mesh) error {
	switch {
	case len(mesh.VerticesUVX) == 0:
		return fmt.Errorf("%w: mesh %q contains no triangles", ErrMalformedMesh, mesh.Name)
	case len(mesh.VerticesUVX)%3 != 0:
		return fmt.Errorf("%w: mesh %q vertex count %d is not a multiple of 3", ErrMalformedMesh, mesh.Name, len(mesh.VerticesUVX))
	case len(mesh.NormalsUVY) != len(mesh.VerticesUVX):
		return fmt.Errorf("%w: mesh %q has %d vertices but %d normals", ErrMalformedMesh, mesh.Name, len(mesh.VerticesUVX), len(mesh.NormalsUVY))
	}
	return nil
}

// Build the BVH trees for the given meshes in parallel. Returns once all
// builds have completed.
func (acc *Accelerator) buildMeshTrees(meshIndices ...int) error {
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(acc.opts.workers())
	for _, meshIndex := range meshIndices {
		g.Go(func() error {
			mesh := acc.meshes[meshIndex]
			if err := validateMesh(mesh); err != nil {
				return err
			}

			acc.logger.Infof(`building BVH tree for "%s" (%d primitives)`, mesh.Name, mesh.NumTriangles())
			tree := bvh.Build(mesh.TriangleBounds(), acc.opts.Mesh, bvh.TriangleSplitter{Triangles: mesh.Triangles()})
			instrumentBuild(meshLevel, tree.Stats)

			acc.blas[meshIndex] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	acc.logger.Infof("built %d mesh BVH trees in %d ms", len(meshIndices), time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Build the scene BVH tree so that each instance ends up in its own leaf.
func (acc *Accelerator) buildSceneTree() {
	boxes := make([]types.AABB, len(acc.instances))
	for index, mi := range acc.instances {
		boxes[index] = mi.BBox(acc.meshes[mi.MeshIndex])
	}

	acc.logger.Infof("building scene BVH tree (%d mesh instances)", len(acc.instances))
	acc.tlas = bvh.Build(boxes, acc.opts.Scene, nil)
	instrumentBuild(sceneLevel, acc.tlas.Stats)
}

// Flatten all trees into a new scene.
func (acc *Accelerator) translate() {
	acc.tr = &translator{
		meshes:    acc.meshes,
		instances: acc.instances,
		blas:      acc.blas,
		tlas:      acc.tlas,
	}
	acc.out = acc.tr.process()
	acc.out.Materials = acc.materials
}

// Replace the geometry of a mesh. The mesh tree and the scene tree are
// rebuilt and all trees are flattened again as mesh node offsets may change.
func (acc *Accelerator) UpdateMesh(meshIndex int, mesh *input.Mesh) error {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if meshIndex < 0 || meshIndex >= len(acc.meshes) {
		return fmt.Errorf("%w: %d", ErrInvalidMeshIndex, meshIndex)
	}

	prev := acc.meshes[meshIndex]
	acc.meshes[meshIndex] = mesh
	if err := acc.buildMeshTrees(meshIndex); err != nil {
		acc.meshes[meshIndex] = prev
		return err
	}

	acc.buildSceneTree()
	acc.translate()
	return nil
}

// Replace the transforms and materials of the scene mesh instances. The
// number of instances and the meshes they reference must not change;
// otherwise ErrTopologyChanged is returned. Only the scene tree is rebuilt
// and flattened in place; the returned range holds the modified nodes.
func (acc *Accelerator) UpdateInstances(instances []*input.MeshInstance) (DirtyRange, error) {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if len(instances) != len(acc.instances) {
		return DirtyRange{}, fmt.Errorf("%w: expected %d instances; got %d", ErrTopologyChanged, len(acc.instances), len(instances))
	}
	for index, mi := range instances {
		if mi == nil {
			return DirtyRange{}, fmt.Errorf("%w: instance %d is nil", ErrInvalidInstance, index)
		}
		if mi.MeshIndex != acc.instances[index].MeshIndex {
			return DirtyRange{}, fmt.Errorf("%w: instance %d mesh changed from %d to %d", ErrTopologyChanged, index, acc.instances[index].MeshIndex, mi.MeshIndex)
		}
	}
	if err := acc.validateInstances(instances); err != nil {
		return DirtyRange{}, err
	}

	for index, mi := range instances {
		*acc.instances[index] = *mi
	}

	start := time.Now()
	acc.buildSceneTree()
	acc.tr.tlas = acc.tlas
	dirty := acc.tr.updateTLAS()
	instrumentTLASRebuild()

	acc.logger.Infof("rebuilt scene BVH tree in %d ms; dirty nodes [%d, %d)", time.Since(start).Nanoseconds()/1e6, dirty.Start, dirty.End)
	return dirty, nil
}

// Invoke fn with the flattened scene. Updates are blocked while fn runs.
func (acc *Accelerator) View(fn func(sc *scene.Scene)) {
	acc.mu.RLock()
	defer acc.mu.RUnlock()
	fn(acc.out)
}

// Get the flattened scene. The returned value is modified in place by
// UpdateInstances and replaced by UpdateMesh.
func (acc *Accelerator) Scene() *scene.Scene {
	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return acc.out
}

// Get the BVH tree of a mesh.
func (acc *Accelerator) MeshTree(meshIndex int) *bvh.Tree {
	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return acc.blas[meshIndex]
}

// Get the scene BVH tree.
func (acc *Accelerator) SceneTree() *bvh.Tree {
	acc.mu.RLock()
	defer acc.mu.RUnlock()
	return acc.tlas
}
