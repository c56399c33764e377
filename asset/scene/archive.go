package scene

import (
	"encoding/binary"
	"errors"
)

// The current version of the compiled scene archive format.
const ArchiveVersion = 1

// Compiled scene archive entries. All binary entries are stored as packed
// little-endian arrays.
const (
	MetadataFile   = "scene.json"
	NodesFile      = "nodes.bin"
	IndicesFile    = "indices.bin"
	VerticesFile   = "vertices.bin"
	NormalsFile    = "normals.bin"
	BlasRootsFile  = "blas_roots.bin"
	TransformsFile = "transforms.bin"
)

// The byte order used by all binary archive entries.
var ByteOrder = binary.LittleEndian

var ErrCorruptArchive = errors.New("scene: corrupt archive")

// Archive metadata describing the size of each binary entry.
type Metadata struct {
	Version       int      `json:"version"`
	TopLevelIndex uint32   `json:"top_level_index"`
	Nodes         int      `json:"nodes"`
	Triangles     int      `json:"triangles"`
	Vertices      int      `json:"vertices"`
	Meshes        int      `json:"meshes"`
	Instances     int      `json:"instances"`
	Materials     []string `json:"materials,omitempty"`
}

// Generate the archive metadata for a scene.
func (sc *Scene) Metadata() Metadata {
	return Metadata{
		Version:       ArchiveVersion,
		TopLevelIndex: sc.TopLevelIndex,
		Nodes:         len(sc.BvhNodeList),
		Triangles:     len(sc.TriangleIndexList),
		Vertices:      len(sc.VertexList),
		Meshes:        len(sc.MeshBvhRoots),
		Instances:     len(sc.InstanceTransforms),
		Materials:     sc.Materials,
	}
}
