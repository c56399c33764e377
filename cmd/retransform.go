package cmd

import (
	"errors"
	"strings"

	"github.com/achilleasa/accel/asset/scene/reader"
	"github.com/achilleasa/accel/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile a scene and then apply the mesh instance transforms and materials
// of a second scene file using an incremental scene tree update.
func RetransformScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 2 {
		return errors.New("expected a scene file and a scene file with the updated mesh instances")
	}
	sceneFile, updateFile := ctx.Args().Get(0), ctx.Args().Get(1)

	logger.Noticef("parsing and compiling scene: %s", sceneFile)
	acc, err := compileScene(ctx, sceneFile)
	if err != nil {
		return err
	}

	update, err := reader.ReadScene(updateFile)
	if err != nil {
		return err
	}
	dirty, err := acc.UpdateInstances(update.Scene.MeshInstances)
	if err != nil {
		return err
	}

	sc := acc.Scene()
	logger.Noticef(
		"updated %d mesh instances; rewrote %d of %d nodes [%d, %d)",
		len(update.Scene.MeshInstances), dirty.Len(), len(sc.BvhNodeList), dirty.Start, dirty.End,
	)
	logger.Noticef("bvh information:\n%s", acc.BuildReport())

	zipFile := ctx.String("out")
	if zipFile == "" {
		zipFile = strings.TrimSuffix(updateFile, ".json")
		zipFile = strings.TrimSuffix(zipFile, ".obj") + ".zip"
	}
	if err = writer.WriteScene(sc, zipFile); err != nil {
		return err
	}

	return writeMetrics(ctx)
}
