package resolve

import (
	"forge/internal/respath"
)

// Result is a resolution outcome. Ignored is a distinct success: the
// specifier intentionally resolves to nothing and must not be treated as
// failure upstream.
type Result struct {
	Ignored  bool
	Resource respath.ResourceData

	// FileDependencies and MissingDependencies list the filesystem paths this
	// resolution consulted: existing entries checked and paths found absent.
	// Best effort, may be empty; populated even when the resolution fails so
	// watchers can invalidate on the paths that were probed.
	FileDependencies    []string
	MissingDependencies []string
}

// Resolver answers "does specifier resolve from this directory, and to what"
// for one merged configuration. Resolvers hold no per-call state and are safe
// for concurrent use; obtain them from a Factory.
type Resolver struct {
	options          Options
	resolveToContext bool
	engine           *engine
}

// Options returns the merged configuration this resolver was built with.
func (r *Resolver) Options() *Options {
	return &r.options
}

// Resolve maps specifier from dir to a resource. The specifier may carry
// ?query and #fragment suffixes; they bypass filesystem probing and are
// reattached to the resolved path.
func (r *Resolver) Resolve(dir, specifier string) (Result, error) {
	parsed := respath.ParseResource(specifier)

	var log probeLog
	res, err := r.engine.resolve(&r.options, r.resolveToContext, dir, parsed.Path, &log)

	result := Result{
		FileDependencies:    log.files,
		MissingDependencies: log.missing,
	}
	if err != nil {
		return result, err
	}
	if res.ignored {
		result.Ignored = true
		return result, nil
	}
	result.Resource = respath.NewResourceData(res.path, parsed.Query, parsed.Fragment)
	return result, nil
}
