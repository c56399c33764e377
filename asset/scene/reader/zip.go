package reader

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/scene"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
	"github.com/segmentio/encoding/json"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader.
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scene.ErrCorruptArchive, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	var meta scene.Metadata
	if err := readEntry(entries, scene.MetadataFile, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&meta)
	}); err != nil {
		return nil, err
	}
	if meta.Version != scene.ArchiveVersion {
		return nil, fmt.Errorf("%w: unsupported archive version %d", scene.ErrCorruptArchive, meta.Version)
	}
	if int(meta.TopLevelIndex) >= meta.Nodes {
		return nil, fmt.Errorf("%w: top level index %d out of range", scene.ErrCorruptArchive, meta.TopLevelIndex)
	}

	// Validate the entry sizes before allocating any buffers
	for _, entry := range []struct {
		name     string
		count    int
		elemSize int
	}{
		{scene.NodesFile, meta.Nodes, scene.BvhNodeSize},
		{scene.IndicesFile, meta.Triangles, binary.Size(scene.TriangleIndices{})},
		{scene.VerticesFile, meta.Vertices, binary.Size(types.Vec4{})},
		{scene.NormalsFile, meta.Vertices, binary.Size(types.Vec4{})},
		{scene.BlasRootsFile, meta.Meshes, binary.Size(uint32(0))},
		{scene.TransformsFile, meta.Instances, binary.Size(types.Mat4{})},
	} {
		if err := checkEntrySize(entries, entry.name, entry.count, entry.elemSize); err != nil {
			return nil, err
		}
	}

	sc := &scene.Scene{
		BvhNodeList:        make([]scene.BvhNode, meta.Nodes),
		TopLevelIndex:      meta.TopLevelIndex,
		MeshBvhRoots:       make([]uint32, meta.Meshes),
		TriangleIndexList:  make([]scene.TriangleIndices, meta.Triangles),
		VertexList:         make([]types.Vec4, meta.Vertices),
		NormalList:         make([]types.Vec4, meta.Vertices),
		InstanceTransforms: make([]types.Mat4, meta.Instances),
		Materials:          meta.Materials,
	}

	for name, target := range map[string]interface{}{
		scene.NodesFile:      sc.BvhNodeList,
		scene.IndicesFile:    sc.TriangleIndexList,
		scene.VerticesFile:   sc.VertexList,
		scene.NormalsFile:    sc.NormalList,
		scene.BlasRootsFile:  sc.MeshBvhRoots,
		scene.TransformsFile: sc.InstanceTransforms,
	} {
		if err := readEntry(entries, name, func(r io.Reader) error {
			return readBinary(r, entries[name], target)
		}); err != nil {
			return nil, err
		}
	}

	for name := range entries {
		switch name {
		case scene.MetadataFile, scene.NodesFile, scene.IndicesFile, scene.VerticesFile, scene.NormalsFile, scene.BlasRootsFile, scene.TransformsFile:
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", name)
		}
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}

// Check that an entry exists and holds exactly count packed elements.
func checkEntrySize(entries map[string]*zip.File, name string, count, elemSize int) error {
	f, exists := entries[name]
	if !exists {
		return fmt.Errorf("%w: missing %s", scene.ErrCorruptArchive, name)
	}
	if count < 0 {
		return fmt.Errorf("%w: %s: invalid element count %d", scene.ErrCorruptArchive, name, count)
	}
	if expSize := uint64(count) * uint64(elemSize); expSize != f.UncompressedSize64 {
		return fmt.Errorf("%w: %s: expected %d bytes; got %d", scene.ErrCorruptArchive, name, expSize, f.UncompressedSize64)
	}
	return nil
}

// Open a zip entry and pass its contents to fn.
func readEntry(entries map[string]*zip.File, name string, fn func(io.Reader) error) error {
	f, exists := entries[name]
	if !exists {
		return fmt.Errorf("%w: missing %s", scene.ErrCorruptArchive, name)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", scene.ErrCorruptArchive, name, err)
	}
	defer rc.Close()

	if err = fn(rc); err != nil {
		return fmt.Errorf("%w: failed to load %s: %v", scene.ErrCorruptArchive, name, err)
	}
	return nil
}

// Decode a packed binary entry into target, which must be sized according
// to the archive metadata.
func readBinary(r io.Reader, f *zip.File, target interface{}) error {
	if expSize := binary.Size(target); expSize >= 0 && uint64(expSize) != f.UncompressedSize64 {
		return fmt.Errorf("expected %d bytes; got %d", expSize, f.UncompressedSize64)
	}
	return binary.Read(r, scene.ByteOrder, target)
}
