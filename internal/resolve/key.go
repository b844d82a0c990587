package resolve

import (
	"strings"
)

// DependencyCategory classifies the import construct a request came from.
type DependencyCategory string

const (
	CategoryUnknown  DependencyCategory = "unknown"
	CategoryEsm      DependencyCategory = "esm"
	CategoryCommonJS DependencyCategory = "commonjs"
	CategoryURL      DependencyCategory = "url"
	CategoryLoader   DependencyCategory = "loader"
)

// Key selects a resolver configuration. Two keys with equal override content
// and flags are the same key: equality is by value, never identity.
type Key struct {
	// Options carries per-rule resolve overrides, nil when the base
	// configuration applies unchanged.
	Options *Options
	// ResolveToContext requests a directory instead of a file.
	ResolveToContext   bool
	DependencyType     string
	DependencyCategory DependencyCategory
}

// cacheKey renders the canonical value-equality form used by the factory map.
func (k Key) cacheKey() string {
	var b strings.Builder
	if k.Options != nil {
		k.Options.cacheKey(&b)
	} else {
		b.WriteString("base;")
	}
	if k.ResolveToContext {
		b.WriteString("ctx;")
	}
	b.WriteString(k.DependencyType)
	b.WriteByte('|')
	b.WriteString(string(k.DependencyCategory))
	return b.String()
}
