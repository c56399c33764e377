package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("resource: unsupported scheme")
	ErrFetchFailed       = errors.New("resource: fetch failed")
)

// A Resource wraps a streamable local file or remote http(s) resource.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the lower-case extension of the resource path including the
// leading dot.
func (r *Resource) Ext() string {
	return strings.ToLower(path.Ext(r.url.Path))
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Resolve the location of a resource. If relTo is specified and
// pathToResource is relative, the location is resolved against the
// directory containing relTo.
func Resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	loc, err := url.Parse(filepath.ToSlash(strings.ReplaceAll(pathToResource, `\`, `/`)))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid path %q: %w", pathToResource, err)
	}

	if loc.Scheme != "" || relTo == nil || path.IsAbs(loc.Path) {
		return loc, nil
	}

	base := *relTo.url
	if base.Scheme == "" {
		abs, err := filepath.Abs(base.Path)
		if err != nil {
			return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", base.Path, err)
		}
		base.Path = filepath.ToSlash(abs)
	}
	base.Path = path.Join(path.Dir(base.Path), loc.Path)
	return &base, nil
}

// Create a new Resource data stream. Relative paths are resolved using
// Resolve. Local files are opened directly while http/https URLs are fetched
// using the net/http package. The caller must close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	loc, err := Resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch loc.Scheme {
	case "":
		reader, err = os.Open(filepath.FromSlash(path.Clean(loc.Path)))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		resp, err := http.Get(loc.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, loc, err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s: status %d", ErrFetchFailed, loc, resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, loc.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        loc,
	}, nil
}

// Create a resource from a reader. The name is used for resolving relative
// resources and for error messages.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	loc, err := url.Parse(filepath.ToSlash(name))
	if err != nil {
		loc = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        loc,
	}
}
