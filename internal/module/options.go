package module

import (
	"io"

	"fortio.org/safecast"
)

// Devtool selects source-map emission.
type Devtool string

const (
	// DevtoolNone emits no source maps.
	DevtoolNone Devtool = ""
	// DevtoolSourceMap emits full source maps.
	DevtoolSourceMap Devtool = "source-map"
	// DevtoolCheapSourceMap tracks original content without full maps.
	DevtoolCheapSourceMap Devtool = "cheap-source-map"
)

// Enabled reports whether any source-map handling is on.
func (d Devtool) Enabled() bool {
	return d != DevtoolNone
}

// FullMap reports whether full source maps are emitted.
func (d Devtool) FullMap() bool {
	return d == DevtoolSourceMap
}

// OutputOptions is the normalized slice of output configuration the build
// hash depends on.
type OutputOptions struct {
	// HashDigestLength truncates rendered hex hashes; 0 keeps them whole.
	HashDigestLength int
	HashSalt         string
}

// WriteHash feeds the normalized options into w so builds under different
// output configurations never share a hash.
func (o *OutputOptions) WriteHash(w io.Writer) {
	_, _ = w.Write([]byte(o.HashSalt))
	n, err := safecast.Conv[uint8](o.HashDigestLength)
	if err != nil {
		n = 0
	}
	_, _ = w.Write([]byte{n})
}

// RenderHash renders a digest's hex form honoring HashDigestLength.
func (o *OutputOptions) RenderHash(hex string) string {
	if o.HashDigestLength > 0 && o.HashDigestLength < len(hex) {
		return hex[:o.HashDigestLength]
	}
	return hex
}

// Options is the compiler-options view the module core needs.
type Options struct {
	// Context is the project root directory; user-facing paths are
	// rendered relative to it.
	Context string
	Devtool Devtool
	Output  OutputOptions
}
