// Package cache persists build outcomes across rebuilds: an in-memory map
// for watch-mode rebuilds in one process, and a zstd-compressed msgpack
// disk cache surviving restarts.
package cache

import (
	"sync"

	"forge/internal/module"
	"forge/internal/sources"
)

type memEntry struct {
	content sources.Digest
	payload *Payload
}

// MemoryCache keeps validated build payloads per module identifier, keyed
// by the resource content digest observed when the entry was stored.
type MemoryCache struct {
	mu    sync.RWMutex
	byMod map[module.Identifier]memEntry
}

// NewMemoryCache creates a cache with the given capacity hint.
func NewMemoryCache(capHint int) *MemoryCache {
	return &MemoryCache{byMod: make(map[module.Identifier]memEntry, capHint)}
}

// Get returns the payload stored for id, provided the resource content
// digest still matches.
func (c *MemoryCache) Get(id module.Identifier, content sources.Digest) (*Payload, bool) {
	c.mu.RLock()
	rec, ok := c.byMod[id]
	c.mu.RUnlock()
	if !ok || rec.content != content {
		return nil, false
	}
	return rec.payload, true
}

// Put stores a payload for id under the given content digest.
func (c *MemoryCache) Put(id module.Identifier, content sources.Digest, payload *Payload) {
	c.mu.Lock()
	c.byMod[id] = memEntry{content: content, payload: payload}
	c.mu.Unlock()
}
