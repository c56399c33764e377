package writer

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/segmentio/encoding/json"
)

type zipSceneWriter struct {
	logger   log.Logger
	filename string
}

// Create a new zip scene writer.
func newZipSceneWriter(filename string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:   log.New("zip writer"),
		filename: filename,
	}
}

// Write compiled scene to the zip file. The file is replaced if it exists.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef(`writing compiled scene to "%s"`, w.filename)
	start := time.Now()

	f, err := os.Create(w.filename)
	if err != nil {
		return err
	}

	if err = writeArchive(f, sc); err != nil {
		f.Close()
		os.Remove(w.filename)
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	w.logger.Noticef("wrote compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write the scene archive entries to out.
func writeArchive(out io.Writer, sc *scene.Scene) error {
	zw := zip.NewWriter(out)

	meta, err := json.MarshalIndent(sc.Metadata(), "", "  ")
	if err != nil {
		return err
	}
	ew, err := zw.Create(scene.MetadataFile)
	if err != nil {
		return err
	}
	if _, err = ew.Write(meta); err != nil {
		return err
	}

	entries := []struct {
		name string
		data interface{}
	}{
		{scene.NodesFile, sc.BvhNodeList},
		{scene.IndicesFile, sc.TriangleIndexList},
		{scene.VerticesFile, sc.VertexList},
		{scene.NormalsFile, sc.NormalList},
		{scene.BlasRootsFile, sc.MeshBvhRoots},
		{scene.TransformsFile, sc.InstanceTransforms},
	}
	for _, entry := range entries {
		ew, err := zw.Create(entry.name)
		if err != nil {
			return err
		}
		if err = binary.Write(ew, scene.ByteOrder, entry.data); err != nil {
			return fmt.Errorf("writer: failed to write %s: %w", entry.name, err)
		}
	}

	return zw.Close()
}
