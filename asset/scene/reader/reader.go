package reader

import (
	"errors"
	"fmt"

	"github.com/achilleasa/accel/asset"
	"github.com/achilleasa/accel/asset/compiler"
	"github.com/achilleasa/accel/asset/compiler/input"
	"github.com/achilleasa/accel/asset/scene"
)

var (
	ErrUnsupportedFormat = errors.New("reader: unsupported file format")
	ErrSyntax            = errors.New("reader: syntax error")
)

// A parsed scene together with the compiler options it requests.
type Manifest struct {
	Scene   *input.Scene
	Options compiler.Options
}

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*Manifest, error)
}

// Read scene from file. Wavefront (.obj) files and JSON scene manifests
// (.json) are supported.
func ReadScene(filename string) (*Manifest, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch res.Ext() {
	case ".obj":
		reader = newWavefrontReader()
	case ".json":
		reader = newManifestReader()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Ext())
	}
	return reader.Read(res)
}

// Read a compiled scene from a zip file.
func ReadCompiledScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if res.Ext() != ".zip" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Ext())
	}
	return newZipSceneReader().Read(res)
}
