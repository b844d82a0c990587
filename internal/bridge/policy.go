package bridge

import (
	"fmt"
	"strings"

	"forge/internal/loader"
	"forge/internal/module"
	"forge/internal/resolve"
)

// chainJoin separates step identifiers inside a collapsed chain identifier.
const chainJoin = "$"

// Policy is the loader-selection plugin: it decides, per module, whether
// the transform chain runs natively or is handed to the worker, and it
// resolves loader request strings into steps.
type Policy struct {
	conduit Conduit
}

// NewPolicy binds the policy to the worker conduit.
func NewPolicy(conduit Conduit) *Policy {
	return &Policy{conduit: conduit}
}

// BeforeLoaders inspects the assigned chain. Zero or one steps run as they
// are. Longer chains containing any inline-origin step or any step that is
// not a builtin transform collapse into a single foreign step carrying the
// concatenated identifiers: all or nothing, native and foreign steps never
// interleave within one build. Partial interleaving would marshal the full
// loader context across the boundary after every step.
func (p *Policy) BeforeLoaders(m *module.Module) error {
	chain := m.Chain()
	if len(chain) <= 1 {
		return nil
	}

	foreign := m.ContainsInlineLoader()
	if !foreign {
		for _, it := range chain {
			if !strings.HasPrefix(it.Identifier(), loader.BuiltinPrefix) {
				foreign = true
				break
			}
		}
	}
	if !foreign {
		return nil
	}

	id := strings.Join(chain.Identifiers(), chainJoin)
	m.SetChain(loader.Chain{
		{Loader: NewForeignLoader(p.conduit, id)},
	})
	return nil
}

// ResolveLoader maps a loader request to a step. Builtin-prefixed requests
// dispatch to the static registry without touching the filesystem. Anything
// else resolves its bare path through the resolver, reattaches the ?query
// suffix verbatim, and wraps the result as a foreign adapter. A loader must
// name a real resource: Ignored is always an error here.
func (p *Policy) ResolveLoader(_ *module.Options, contextDir string, resolver *resolve.Resolver, request, options string) (loader.Loader, error) {
	if loader.IsBuiltin(request) {
		return loader.GetBuiltin(request, options)
	}

	path, query := loader.SplitQuery(request)
	result, err := resolver.Resolve(contextDir, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve loader: %s in %s: %w", path, contextDir, err)
	}
	if result.Ignored {
		return nil, fmt.Errorf("failed to resolve loader: %s", path)
	}
	return NewForeignLoader(p.conduit, result.Resource.Path+query), nil
}
