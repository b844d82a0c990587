package loader

import (
	"forge/internal/diag"
	"forge/internal/respath"
	"forge/internal/sources"
)

// Context is the mutable state threaded through a loader chain. Content is
// nil during pitching until some step produces it.
type Context struct {
	Content        []byte
	SourceMap      *sources.SourceMap
	AdditionalData string

	Resource respath.ResourceData

	// Cacheable is true until some step declares its output uncacheable.
	Cacheable bool

	FileDependencies    respath.Set
	ContextDependencies respath.Set
	MissingDependencies respath.Set
	BuildDependencies   respath.Set
	AssetFilenames      respath.Set

	Diagnostics *diag.Bag

	items Chain
	index int
}

func newContext(chain Chain, resource respath.ResourceData, maxDiagnostics int) *Context {
	return &Context{
		Resource:            resource,
		Cacheable:           true,
		FileDependencies:    respath.NewSet(),
		ContextDependencies: respath.NewSet(),
		MissingDependencies: respath.NewSet(),
		BuildDependencies:   respath.NewSet(),
		AssetFilenames:      respath.NewSet(),
		Diagnostics:         diag.NewBag(maxDiagnostics),
		items:               chain,
	}
}

// CurrentLoader returns the step currently executing.
func (c *Context) CurrentLoader() *Item {
	return c.items[c.index]
}

// RemainingRequest lists identifiers of the steps after the current one.
func (c *Context) RemainingRequest() []string {
	if c.index+1 >= len(c.items) {
		return nil
	}
	return Chain(c.items[c.index+1:]).Identifiers()
}
