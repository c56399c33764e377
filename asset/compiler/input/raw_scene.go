package input

import (
	"github.com/achilleasa/accel/types"
)

// A named material. Instances reference materials by their index in the
// scene material list.
type Material struct {
	Name string

	// True if material is referenced by a mesh instance.
	Used bool
}

// A triangle mesh stored as a flat triangle list; each consecutive vertex
// triplet forms one triangle. The texture coordinates are packed into the
// w components: VerticesUVX holds (position, u) and NormalsUVY holds
// (normal, v) for each vertex.
type Mesh struct {
	Name        string
	VerticesUVX []types.Vec4
	NormalsUVY  []types.Vec4

	bbox            types.AABB
	bboxNeedsUpdate bool
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		VerticesUVX:     make([]types.Vec4, 0),
		NormalsUVY:      make([]types.Vec4, 0),
		bboxNeedsUpdate: true,
	}
}

// Append a triangle to the mesh.
func (m *Mesh) AddTriangle(vertices, normals [3]types.Vec3, uvs [3]types.Vec2) {
	for i := 0; i < 3; i++ {
		m.VerticesUVX = append(m.VerticesUVX, vertices[i].Vec4(uvs[i][0]))
		m.NormalsUVY = append(m.NormalsUVY, normals[i].Vec4(uvs[i][1]))
	}
	m.bboxNeedsUpdate = true
}

// Get the number of triangles in the mesh.
func (m *Mesh) NumTriangles() int {
	return len(m.VerticesUVX) / 3
}

// Get the vertex positions of a triangle.
func (m *Mesh) Triangle(index int) [3]types.Vec3 {
	v := m.VerticesUVX[3*index : 3*index+3]
	return [3]types.Vec3{v[0].Vec3(), v[1].Vec3(), v[2].Vec3()}
}

// Get the vertex positions of all mesh triangles.
func (m *Mesh) Triangles() [][3]types.Vec3 {
	tris := make([][3]types.Vec3, m.NumTriangles())
	for index := range tris {
		tris[index] = m.Triangle(index)
	}
	return tris
}

// Get the bounding box of each mesh triangle.
func (m *Mesh) TriangleBounds() []types.AABB {
	boxes := make([]types.AABB, m.NumTriangles())
	for index := range boxes {
		tri := m.Triangle(index)
		boxes[index] = types.AABBFromPoints(tri[:]...)
	}
	return boxes
}

// Mark the bbox of this mesh as dirty. This must be called after modifying
// the vertex list in place.
func (m *Mesh) MarkBBoxDirty() {
	m.bboxNeedsUpdate = true
}

// Get mesh bounding box.
func (m *Mesh) BBox() types.AABB {
	if m.bboxNeedsUpdate {
		m.bbox = types.EmptyAABB()
		for _, v := range m.VerticesUVX {
			m.bbox = m.bbox.Grow(v.Vec3())
		}
		m.bboxNeedsUpdate = false
	}

	return m.bbox
}

// A mesh instance applies a transformation and a material to a particular
// Mesh.
type MeshInstance struct {
	MeshIndex     uint32
	MaterialIndex uint32
	Transform     types.Mat4
}

// Get the world-space bounding box of the instance.
func (mi *MeshInstance) BBox(mesh *Mesh) types.AABB {
	return mesh.BBox().Transform(mi.Transform)
}

// The scene contains all elements that are processed by the scene compiler.
type Scene struct {
	Meshes        []*Mesh
	MeshInstances []*MeshInstance
	Materials     []*Material
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Meshes:        make([]*Mesh, 0),
		MeshInstances: make([]*MeshInstance, 0),
		Materials:     make([]*Material, 0),
	}
}
