package sources

import (
	"crypto/sha256"
	"hash"
)

// Hasher accumulates content identity into a Digest. It satisfies io.Writer
// so Source.WriteHash and the Write*Hash helpers can feed it directly.
type Hasher struct {
	h hash.Hash
}

// NewHasher creates a sha256-backed hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (w *Hasher) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum finalizes the digest.
func (w *Hasher) Sum() Digest {
	var out Digest
	copy(out[:], w.h.Sum(nil))
	return out
}
