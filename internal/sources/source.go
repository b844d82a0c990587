// Package sources models module content as it flows through the build:
// raw bytes off disk, transformed text out of loader chains, and the
// source-map-carrying variants used when devtool output is enabled.
package sources

import (
	"io"
)

// Source is an immutable piece of module content.
type Source interface {
	// String returns the content as text (lossy for binary content).
	String() string
	// Buffer returns the content bytes.
	Buffer() []byte
	// Map returns the attached source map, nil when there is none.
	Map() *SourceMap
	// Size returns the content length in bytes.
	Size() int
	// WriteHash feeds the content identity into w.
	WriteHash(w io.Writer)
}

// RawSource is plain content with no origin tracking. Binary module content
// is always a RawSource: source-map wrapping never applies to it.
type RawSource struct {
	data   []byte
	binary bool
}

// NewRawSource wraps text content.
func NewRawSource(text string) *RawSource {
	return &RawSource{data: []byte(text)}
}

// NewRawBufferSource wraps binary content.
func NewRawBufferSource(data []byte) *RawSource {
	return &RawSource{data: data, binary: true}
}

func (s *RawSource) String() string  { return string(s.data) }
func (s *RawSource) Buffer() []byte  { return s.data }
func (s *RawSource) Map() *SourceMap { return nil }
func (s *RawSource) Size() int       { return len(s.data) }
func (s *RawSource) WriteHash(w io.Writer) {
	_, _ = w.Write([]byte("raw"))
	_, _ = w.Write(s.data)
}

// IsBinary reports whether the source was constructed from a buffer.
func (s *RawSource) IsBinary() bool { return s.binary }

// OriginalSource is text content that remembers the request it came from,
// used when only map generation (not full maps) is enabled.
type OriginalSource struct {
	data []byte
	name string
}

// NewOriginalSource wraps content tagged with the originating request.
func NewOriginalSource(text, name string) *OriginalSource {
	return &OriginalSource{data: []byte(text), name: name}
}

func (s *OriginalSource) String() string  { return string(s.data) }
func (s *OriginalSource) Buffer() []byte  { return s.data }
func (s *OriginalSource) Map() *SourceMap { return nil }
func (s *OriginalSource) Size() int       { return len(s.data) }
func (s *OriginalSource) Name() string    { return s.name }
func (s *OriginalSource) WriteHash(w io.Writer) {
	_, _ = w.Write([]byte("original"))
	_, _ = w.Write([]byte(s.name))
	_, _ = w.Write(s.data)
}

// SourceMapSource is text content with a full source map produced by the
// loader chain.
type SourceMapSource struct {
	data []byte
	name string
	m    *SourceMap
}

// NewSourceMapSource wraps content with its map.
func NewSourceMapSource(text, name string, m *SourceMap) *SourceMapSource {
	return &SourceMapSource{data: []byte(text), name: name, m: m}
}

func (s *SourceMapSource) String() string  { return string(s.data) }
func (s *SourceMapSource) Buffer() []byte  { return s.data }
func (s *SourceMapSource) Map() *SourceMap { return s.m }
func (s *SourceMapSource) Size() int       { return len(s.data) }
func (s *SourceMapSource) Name() string    { return s.name }
func (s *SourceMapSource) WriteHash(w io.Writer) {
	_, _ = w.Write([]byte("sourcemap"))
	_, _ = w.Write([]byte(s.name))
	_, _ = w.Write(s.data)
	if s.m != nil {
		_, _ = w.Write([]byte(s.m.Mappings))
	}
}

// HashSource computes the digest of a source through WriteHash.
func HashSource(s Source) Digest {
	h := NewHasher()
	s.WriteHash(h)
	return h.Sum()
}
