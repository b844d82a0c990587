package resolve

import (
	"sync"
)

// Factory produces and caches Resolver instances keyed by effective
// configuration. The cache is append-only: base options are immutable for
// the factory's lifetime, so a key always maps to the same merged
// configuration.
type Factory struct {
	base  Options
	cache *statCache

	mu        sync.RWMutex
	resolvers map[string]*Resolver
}

// NewFactory creates a factory over the given base options.
func NewFactory(base Options) *Factory {
	return &Factory{
		base:      base,
		cache:     newStatCache(),
		resolvers: make(map[string]*Resolver),
	}
}

// Get returns the resolver for key, constructing it on first use by merging
// the key's overrides onto the base options. Concurrent callers racing on
// first use may both construct; exactly one instance wins the insert and the
// loser is discarded, so steady-state lookups always observe one resolver
// per key.
func (f *Factory) Get(key Key) *Resolver {
	ck := key.cacheKey()

	f.mu.RLock()
	r, ok := f.resolvers[ck]
	f.mu.RUnlock()
	if ok {
		return r
	}

	merged := f.base.Merge(key.Options)
	built := &Resolver{
		options:          merged,
		resolveToContext: key.ResolveToContext,
		engine:           newEngine(f.cache),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.resolvers[ck]; ok {
		return existing
	}
	f.resolvers[ck] = built
	return built
}

// ClearEntries purges the underlying engine's filesystem cache, for cases
// such as externally deleted files. Cached resolver instances stay valid.
func (f *Factory) ClearEntries() {
	f.cache.clear()
}
