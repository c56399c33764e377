package compiler

import (
	"fmt"
	"runtime"

	"github.com/achilleasa/accel/asset/compiler/bvh"
)

// Options control the scene compiler.
type Options struct {
	// The max number of mesh BVH trees built in parallel. A zero value
	// uses one worker per CPU.
	Workers int

	// Options for building mesh (bottom level) and scene (top level) trees.
	Mesh  bvh.Options
	Scene bvh.Options
}

// Get the default compiler options.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
		Mesh:    bvh.DefaultMeshOptions(),
		Scene:   bvh.DefaultSceneOptions(),
	}
}

// Validate the options.
func (o Options) Validate() error {
	if o.Workers < 0 {
		return fmt.Errorf("%w: worker count must be >= 0", bvh.ErrInvalidOptions)
	}
	if err := o.Mesh.Validate(); err != nil {
		return fmt.Errorf("mesh bvh: %w", err)
	}
	if err := o.Scene.Validate(); err != nil {
		return fmt.Errorf("scene bvh: %w", err)
	}
	if o.Scene.MinLeafSize > 2 || o.Scene.MaxLeafSize > 1 || o.Scene.MaxDepth != 0 {
		return fmt.Errorf("%w: scene bvh leafs must hold exactly one instance", bvh.ErrInvalidOptions)
	}
	if o.Scene.SpatialSplits() {
		return fmt.Errorf("%w: scene bvh cannot use spatial splits", bvh.ErrInvalidOptions)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers == 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}
