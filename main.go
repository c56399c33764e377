package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/accel/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	outputFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "out, o",
			Usage: "zip archive filename for the compiled scene",
		},
		cli.StringFlag{
			Name:  "metrics-file",
			Usage: "write build metrics to this file in the prometheus text format",
		},
	}

	app := cli.NewApp()
	app.Name = "accel"
	app.Usage = "build two-level BVH acceleration structures for ray tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, notice, warning or error",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile scenes into a GPU-friendly binary format",
			Description: `
Parse a scene definition from a wavefront obj file or a JSON scene manifest,
build a BVH tree for each mesh and a scene BVH tree over the mesh instances
and flatten them into a single node list.

The compiled scene is written to a zip archive next to each scene file unless
an output file is specified.`,
			ArgsUsage: "scene_file1.obj scene_file2.json ...",
			Flags:     append(append([]cli.Flag{}, outputFlags...), cmd.BvhFlags...),
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display compiled scene information",
			ArgsUsage: "scene.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "retransform",
			Usage: "update the mesh instances of a compiled scene",
			Description: `
Compile a scene and replace its mesh instance transforms and materials with the
ones defined by a second scene file. Only the scene BVH tree is rebuilt and the
mesh BVH trees are left untouched. Both files must define the same number of
instances referencing the same meshes.`,
			ArgsUsage: "scene_file updated_scene_file",
			Flags:     append(append([]cli.Flag{}, outputFlags...), cmd.BvhFlags...),
			Action:    cmd.RetransformScene,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
