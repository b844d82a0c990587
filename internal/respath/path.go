package respath

import (
	"path/filepath"
	"strings"
)

// Relative returns path relative to root with forward slashes. When path
// cannot be made relative it is returned unchanged.
func Relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Contextify shortens a (possibly loader-prefixed) request for display:
// every '!'-separated segment is rewritten relative to root and prefixed
// with "./" when it does not already walk upwards.
func Contextify(root, request string) string {
	parts := strings.Split(request, "!")
	for i, part := range parts {
		if part == "" || !filepath.IsAbs(splitQuery(part)) {
			continue
		}
		path, query := part, ""
		if q := strings.IndexByte(part, '?'); q >= 0 {
			path, query = part[:q], part[q:]
		}
		rel := Relative(root, path)
		if !strings.HasPrefix(rel, "../") {
			rel = "./" + rel
		}
		parts[i] = rel + query
	}
	return strings.Join(parts, "!")
}

func splitQuery(s string) string {
	if q := strings.IndexByte(s, '?'); q >= 0 {
		return s[:q]
	}
	return s
}

// ChunkName derives a synthetic chunk name from a resource path: the
// root-relative path with the extension chopped, segments joined by '_',
// then '_' and the bare extension appended.
func ChunkName(root, uri string) string {
	rel := Relative(root, uri)
	ext := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, ext)
	segs := make([]string, 0, 4)
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		segs = append(segs, seg)
	}
	return strings.Join(segs, "_") + "_" + strings.TrimPrefix(ext, ".")
}

// ModuleID derives a synthetic module id: the root-relative path with an
// explicit "./" prefix.
func ModuleID(root, uri string) string {
	rel := Relative(root, uri)
	if strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "./") {
		return rel
	}
	return "./" + rel
}
