// Package resolve maps request specifiers to concrete resources. It wraps a
// small node-style path resolution engine behind per-configuration Resolver
// instances produced and cached by a Factory.
package resolve

import (
	"strconv"
	"strings"
)

// Alias rewrites a specifier prefix before filesystem probing. Ignore marks
// the specifier as intentionally resolving to nothing (null-loader style).
type Alias struct {
	From   string
	To     string
	Ignore bool
}

// Options configures one resolver. The zero value is usable; Normalize fills
// defaults.
type Options struct {
	// Extensions tried, in order, when the path as written does not exist.
	Extensions []string
	// Alias rewrites, applied by longest matching prefix.
	Alias []Alias
	// Modules are directory names walked upwards for bare specifiers.
	Modules []string
	// MainFiles tried when a directory is requested.
	MainFiles []string
	// PreferRelative makes bare specifiers try a relative interpretation
	// first.
	PreferRelative bool
}

// DefaultOptions returns the base configuration used when the config file
// does not override resolution.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".js", ".json"},
		Modules:    []string{"node_modules"},
		MainFiles:  []string{"index"},
	}
}

// Merge overlays o with the per-rule override. Non-empty override slices
// replace the base wholesale, matching how per-rule resolve overrides behave
// in the configuration layer.
func (o Options) Merge(override *Options) Options {
	if override == nil {
		return o
	}
	merged := o
	if len(override.Extensions) > 0 {
		merged.Extensions = override.Extensions
	}
	if len(override.Alias) > 0 {
		merged.Alias = override.Alias
	}
	if len(override.Modules) > 0 {
		merged.Modules = override.Modules
	}
	if len(override.MainFiles) > 0 {
		merged.MainFiles = override.MainFiles
	}
	if override.PreferRelative {
		merged.PreferRelative = true
	}
	return merged
}

// cacheKey writes a canonical encoding of the options into b. Two Options
// with equal content produce equal encodings regardless of identity.
func (o *Options) cacheKey(b *strings.Builder) {
	writeList := func(tag string, items []string) {
		b.WriteString(tag)
		b.WriteByte('=')
		for _, it := range items {
			b.WriteString(it)
			b.WriteByte(',')
		}
		b.WriteByte(';')
	}
	writeList("ext", o.Extensions)
	writeList("mod", o.Modules)
	writeList("main", o.MainFiles)
	b.WriteString("alias=")
	for _, a := range o.Alias {
		b.WriteString(a.From)
		b.WriteString("->")
		if a.Ignore {
			b.WriteString("<ignore>")
		} else {
			b.WriteString(a.To)
		}
		b.WriteByte(',')
	}
	b.WriteByte(';')
	b.WriteString("rel=")
	b.WriteString(strconv.FormatBool(o.PreferRelative))
	b.WriteByte(';')
}
