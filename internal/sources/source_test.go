package sources

import "testing"

func TestHashOfDeterministic(t *testing.T) {
	a := HashOf([]byte("content"))
	b := HashOf([]byte("content"))
	if a != b {
		t.Fatalf("HashOf not deterministic: %s vs %s", a.Hex(), b.Hex())
	}
	if a == HashOf([]byte("other")) {
		t.Fatalf("different content hashed equal")
	}
	if a.IsZero() {
		t.Fatalf("hash of non-empty content is zero")
	}
}

func TestCombineOrderSensitive(t *testing.T) {
	a := HashOf([]byte("a"))
	b := HashOf([]byte("b"))
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine ignores operand order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatalf("Combine not deterministic")
	}
}

func TestSourceVariantsHashDistinctly(t *testing.T) {
	raw := NewRawSource("body")
	orig := NewOriginalSource("body", "./a.js")
	mapped := NewSourceMapSource("body", "./a.js", &SourceMap{Version: 3, Mappings: "AAAA"})

	hr := HashSource(raw)
	ho := HashSource(orig)
	hm := HashSource(mapped)
	if hr == ho || ho == hm || hr == hm {
		t.Fatalf("source variants with identical text must hash distinctly")
	}
}

func TestRawSourceBinary(t *testing.T) {
	buf := NewRawBufferSource([]byte{0x00, 0x01})
	if !buf.IsBinary() {
		t.Fatalf("buffer source must report binary")
	}
	if NewRawSource("text").IsBinary() {
		t.Fatalf("text source must not report binary")
	}
	if buf.Size() != 2 {
		t.Fatalf("Size = %d, want 2", buf.Size())
	}
	if buf.Map() != nil {
		t.Fatalf("raw source must have no map")
	}
}

func TestSourceMapJSON(t *testing.T) {
	m, err := SourceMapFromJSON([]byte(`{"version":3,"sources":["a.ts"],"mappings":"AAAA"}`))
	if err != nil {
		t.Fatalf("SourceMapFromJSON returned error: %v", err)
	}
	if m.Version != 3 || len(m.Sources) != 1 || m.Sources[0] != "a.ts" {
		t.Fatalf("unexpected map: %+v", m)
	}
	if _, err := SourceMapFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected error for truncated json")
	}
}
