package module

import (
	"io"

	"forge/internal/respath"
	"forge/internal/sources"
)

// BuildInfo is the out-of-band metadata one build accumulates. Owned by the
// module while building, read-only afterwards; the dependency graph and
// watch-mode invalidation consume it.
type BuildInfo struct {
	Hash      sources.Digest
	Cacheable bool

	FileDependencies    respath.Set
	ContextDependencies respath.Set
	MissingDependencies respath.Set
	BuildDependencies   respath.Set

	AssetFilenames []string
}

// ExportsType classifies the export shape the parser detected.
type ExportsType uint8

const (
	ExportsUnset ExportsType = iota
	ExportsDefault
	ExportsNamespace
	ExportsFlagged
	ExportsDynamic
)

func (t ExportsType) String() string {
	switch t {
	case ExportsDefault:
		return "default"
	case ExportsNamespace:
		return "namespace"
	case ExportsFlagged:
		return "flagged"
	case ExportsDynamic:
		return "dynamic"
	}
	return "unset"
}

// BuildMeta is the export-shape classification computed during parse. It
// participates in the build hash: changing the shape must change the hash.
type BuildMeta struct {
	StrictEsm        bool
	ExportsType      ExportsType
	HasDefaultExport bool
	SideEffectFree   bool
}

// WriteHash feeds the classification into w.
func (m *BuildMeta) WriteHash(w io.Writer) {
	flags := []byte{byte(m.ExportsType), 0, 0, 0}
	if m.StrictEsm {
		flags[1] = 1
	}
	if m.HasDefaultExport {
		flags[2] = 1
	}
	if m.SideEffectFree {
		flags[3] = 1
	}
	_, _ = w.Write(flags)
}
