// Package respath holds resolved-resource data and pure path helpers used
// across the resolve, loader and module subsystems. Nothing here carries
// state.
package respath

import (
	"path/filepath"
	"strings"
)

// ResourceData is a concrete resolved resource: an absolute path plus the
// optional ?query and #fragment suffixes as written in the request.
// Query keeps its leading '?', Fragment its leading '#'.
type ResourceData struct {
	// Resource is the full resource string: path + query + fragment.
	Resource string
	Path     string
	Query    string
	Fragment string
}

// NewResourceData builds a ResourceData from its parts.
func NewResourceData(path, query, fragment string) ResourceData {
	return ResourceData{
		Resource: path + query + fragment,
		Path:     path,
		Query:    query,
		Fragment: fragment,
	}
}

// ParseResource splits a resource string of the form path?query#fragment.
// The first '#' terminates the query; the first '?' before it starts it.
func ParseResource(resource string) ResourceData {
	path := resource
	query := ""
	fragment := ""
	if i := strings.IndexByte(path, '#'); i >= 0 {
		fragment = path[i:]
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		query = path[i:]
		path = path[:i]
	}
	return ResourceData{Resource: resource, Path: path, Query: query, Fragment: fragment}
}

// Context returns the directory holding the resource.
func (r ResourceData) Context() string {
	return filepath.Dir(r.Path)
}
