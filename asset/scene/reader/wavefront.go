package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/log"
	"github.com/achilleasa/accel/types"
)

type wavefrontSceneReader struct {
	logger log.Logger

	// The parsed scene.
	rawScene *input.Scene

	// A map of material names to their index in the scene material list.
	matNameToIndex map[string]int

	// Currently selected material.
	curMaterial int

	// The material of each parsed mesh; set by the first face of the mesh.
	meshMaterials []int

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// scene files include other files.
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:         log.New("wavefront scene reader"),
		rawScene:       input.NewScene(),
		matNameToIndex: make(map[string]int),
		curMaterial:    -1,
		vertexList:     make([]types.Vec3, 0),
		normalList:     make([]types.Vec3, 0),
		uvList:         make([]types.Vec2, 0),
		errStack:       make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*Manifest, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	if err := r.parse(sceneRes); err != nil {
		return nil, err
	}

	// If no mesh instances are defined, create instances for each defined mesh
	if len(r.rawScene.MeshInstances) == 0 {
		r.createDefaultMeshInstances()
	}

	r.logger.Noticef("parsed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return &Manifest{
		Scene:   r.rawScene,
		Options: compiler.DefaultOptions(),
	}, nil
}

// Generate a mesh instance with an identity transformation for each defined mesh.
func (r *wavefrontSceneReader) createDefaultMeshInstances() {
	for meshIndex := range r.rawScene.Meshes {
		r.rawScene.MeshInstances = append(r.rawScene.MeshInstances, &input.MeshInstance{
			MeshIndex:     uint32(meshIndex),
			MaterialIndex: r.meshMaterial(meshIndex),
			Transform:     types.Ident4(),
		})
	}
}

func (r *wavefrontSceneReader) meshMaterial(meshIndex int) uint32 {
	if r.meshMaterials[meshIndex] < 0 {
		return 0
	}
	return uint32(r.meshMaterials[meshIndex])
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%w: %s", ErrSyntax, strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Select a material by name, registering it with the scene if needed.
func (r *wavefrontSceneReader) useMaterial(name string) {
	matIndex, exists := r.matNameToIndex[name]
	if !exists {
		r.rawScene.Materials = append(r.rawScene.Materials, &input.Material{Name: name})
		matIndex = len(r.rawScene.Materials) - 1
		r.matNameToIndex[name] = matIndex
	}
	r.curMaterial = matIndex
}

// Start a new mesh.
func (r *wavefrontSceneReader) newMesh(name string) {
	r.verifyLastParsedMesh()
	r.rawScene.Meshes = append(r.rawScene.Meshes, input.NewMesh(name))
	r.meshMaterials = append(r.meshMaterials, -1)
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "mtllib":
			r.logger.Infof(`[%s: %d] skipping material library "%s"`, res.Path(), lineNum, strings.Join(lineTokens[1:], " "))
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'usemtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			r.useMaterial(lineTokens[1])
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.newMesh(lineTokens[1])
		case "f":
			// If no object has been defined create a default one
			if len(r.rawScene.Meshes) == 0 {
				r.newMesh("default")
			}

			meshIndex := len(r.rawScene.Meshes) - 1
			if err := r.parseFace(r.rawScene.Meshes[meshIndex], lineTokens, relVertexOffset, relUvOffset, relNormalOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			if r.meshMaterials[meshIndex] < 0 {
				if r.curMaterial < 0 {
					r.useMaterial("default")
				}
				r.meshMaterials[meshIndex] = r.curMaterial
			}
		case "instance":
			instance, err := r.parseMeshInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.rawScene.MeshInstances = append(r.rawScene.MeshInstances, instance)
		}
	}
	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}

	r.verifyLastParsedMesh()
	return nil
}

// Drop the last parsed mesh if it contains no triangles.
func (r *wavefrontSceneReader) verifyLastParsedMesh() {
	lastMeshIndex := len(r.rawScene.Meshes) - 1
	if lastMeshIndex >= 0 && r.rawScene.Meshes[lastMeshIndex].NumTriangles() == 0 {
		r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.rawScene.Meshes[lastMeshIndex].Name)
		r.rawScene.Meshes = r.rawScene.Meshes[:lastMeshIndex]
		r.meshMaterials = r.meshMaterials[:lastMeshIndex]
	}
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees around the X, Y and Z axis
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseMeshInstance(lineTokens []string) (*input.MeshInstance, error) {
	if len(lineTokens) != 11 {
		return nil, fmt.Errorf(`unsupported syntax for "instance"; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	// Find object by name
	meshName := lineTokens[1]
	meshIndex := -1
	for index, mesh := range r.rawScene.Meshes {
		if mesh.Name == meshName {
			meshIndex = index
			break
		}
	}
	if meshIndex == -1 {
		return nil, fmt.Errorf(`unknown mesh with name "%s"`, meshName)
	}

	var trs [3]types.Vec3
	for index := 2; index < 11; index++ {
		v, err := strconv.ParseFloat(lineTokens[index], 32)
		if err != nil {
			return nil, err
		}
		trs[(index-2)/3][(index-2)%3] = float32(v)
	}

	return &input.MeshInstance{
		MeshIndex:     uint32(meshIndex),
		MaterialIndex: r.meshMaterial(meshIndex),
		Transform:     composeTransform(trs[0], trs[1], trs[2]),
	}, nil
}

// Generate the matrix M = T * R * S where R applies the yaw, pitch and roll
// rotations in that order.
func composeTransform(translation, rotation, scale types.Vec3) types.Mat4 {
	rotMat := types.Rotate4(types.Vec3{0, 0, 1}, rotation[2]).
		Mul4(types.Rotate4(types.Vec3{0, 1, 0}, rotation[1])).
		Mul4(types.Rotate4(types.Vec3{1, 0, 0}, rotation[0]))
	return types.Translate4(translation).Mul4(rotMat).Mul4(types.Scale4(scale))
}

// Parse face definition and append its triangles to the mesh. Each face
// definition consists of 3 or more arguments, one for each vertex. Each one
// of the vertex arguments is comprised of 1, 2 or 3 args separated by a
// slash character. The following formats are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the
// end of the vertex/uv list. Polygons with more than 3 vertices are
// triangulated as a fan around the first vertex.
func (r *wavefrontSceneReader) parseFace(mesh *input.Mesh, lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) error {
	numVertices := len(lineTokens) - 1
	if numVertices < 3 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, numVertices)
	}

	vertices := make([]types.Vec3, numVertices)
	normals := make([]types.Vec3, numVertices)
	uv := make([]types.Vec2, numVertices)
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < numVertices; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[vOffset]

		// Parse UV coords if specified
		if expIndices > 1 && vTokens[1] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
			uv[arg] = r.uvList[vOffset]
		}

		// Parse normal coords if specified
		if expIndices > 2 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals[arg] = r.normalList[vOffset]
			hasNormals = true
		}
	}

	// If no normals are available generate them from the vertices
	if !hasNormals {
		faceNormal := vertices[1].Sub(vertices[0]).Cross(vertices[2].Sub(vertices[0])).Normalize()
		for index := range normals {
			normals[index] = faceNormal
		}
	}

	for index := 1; index+1 < numVertices; index++ {
		mesh.AddTriangle(
			[3]types.Vec3{vertices[0], vertices[index], vertices[index+1]},
			[3]types.Vec3{normals[0], normals[index], normals[index+1]},
			[3]types.Vec2{uv[0], uv[index], uv[index+1]},
		)
	}

	return nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
