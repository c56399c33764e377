package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/achilleasa/accel/asset/scene/reader"
	"github.com/achilleasa/accel/asset/scene/writer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

// Flags that override the BVH options requested by a scene file.
var BvhFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "workers",
		Usage: "max number of mesh trees built in parallel (default: number of CPUs)",
	},
	cli.StringFlag{
		Name:  "strategy",
		Usage: "mesh tree split strategy: sah or median",
	},
	cli.IntFlag{
		Name:  "num-bins",
		Usage: "number of SAH bins per axis",
	},
	cli.IntFlag{
		Name:  "min-leaf-size",
		Usage: "mesh tree nodes with fewer triangles always become leaves",
	},
	cli.IntFlag{
		Name:  "max-leaf-size",
		Usage: "max number of triangles in a mesh tree leaf",
	},
	cli.IntFlag{
		Name:  "max-depth",
		Usage: "max mesh tree depth",
	},
	cli.IntFlag{
		Name:  "max-spatial-depth",
		Usage: "max mesh tree depth where spatial splits are evaluated",
	},
	cli.Float64Flag{
		Name:  "min-overlap",
		Usage: "min child overlap (relative to the parent area) that triggers a spatial split search",
	},
	cli.Float64Flag{
		Name:  "budget",
		Usage: "max number of duplicate references as a fraction of the mesh triangle count; 0 disables spatial splits",
	},
	cli.StringFlag{
		Name:  "scene-strategy",
		Usage: "scene tree split strategy: sah or median",
	},
}

// Compile scenes to the binary archive format.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file")
	}
	outFile := ctx.String("out")
	if outFile != "" && ctx.NArg() > 1 {
		return errors.New("the out flag can only be used with a single scene file")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		acc, err := compileScene(ctx, sceneFile)
		if err != nil {
			if errors.Is(err, reader.ErrUnsupportedFormat) {
				logger.Warningf("skipping unsupported file %s", sceneFile)
				continue
			}
			return err
		}

		// Display compiled scene info
		logger.Noticef("bvh information:\n%s", acc.BuildReport())
		logger.Noticef("scene information:\n%s", acc.Scene().Stats())

		zipFile := outFile
		if zipFile == "" {
			zipFile = strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".zip"
		}
		if err = writer.WriteScene(acc.Scene(), zipFile); err != nil {
			return err
		}
	}

	return writeMetrics(ctx)
}

// Read a scene file and compile it using the scene options overridden by any
// BVH flags.
func compileScene(ctx *cli.Context, sceneFile string) (*compiler.Accelerator, error) {
	manifest, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, err
	}

	opts := manifest.Options
	if err = applyBvhFlags(ctx, &opts); err != nil {
		return nil, err
	}
	return compiler.Compile(manifest.Scene, opts)
}

func applyBvhFlags(ctx *cli.Context, opts *compiler.Options) error {
	if ctx.IsSet("workers") {
		opts.Workers = ctx.Int("workers")
	}
	for flag, target := range map[string]*bvh.Strategy{
		"strategy":       &opts.Mesh.Strategy,
		"scene-strategy": &opts.Scene.Strategy,
	} {
		if !ctx.IsSet(flag) {
			continue
		}
		strategy, err := bvh.ParseStrategy(ctx.String(flag))
		if err != nil {
			return fmt.Errorf("%s: %w", flag, err)
		}
		*target = strategy
	}
	for flag, target := range map[string]*int{
		"num-bins":          &opts.Mesh.NumBins,
		"min-leaf-size":     &opts.Mesh.MinLeafSize,
		"max-leaf-size":     &opts.Mesh.MaxLeafSize,
		"max-depth":         &opts.Mesh.MaxDepth,
		"max-spatial-depth": &opts.Mesh.MaxSpatialDepth,
	} {
		if ctx.IsSet(flag) {
			*target = ctx.Int(flag)
		}
	}
	for flag, target := range map[string]*float32{
		"min-overlap": &opts.Mesh.MinOverlap,
		"budget":      &opts.Mesh.ExtraRefsBudget,
	} {
		if ctx.IsSet(flag) {
			*target = float32(ctx.Float64(flag))
		}
	}
	return nil
}

// Dump the build metrics in the prometheus text format if requested.
func writeMetrics(ctx *cli.Context) error {
	metricsFile := ctx.String("metrics-file")
	if metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("could not write metrics: %w", err)
	}
	logger.Infof("wrote build metrics to %s", metricsFile)
	return nil
}
