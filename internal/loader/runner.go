package loader

import (
	"context"
	"fmt"
	"os"

	"forge/internal/diag"
	"forge/internal/respath"
	"forge/internal/sources"
)

// RunResult is what a completed chain hands to parsing.
type RunResult struct {
	Content        []byte
	SourceMap      *sources.SourceMap
	AdditionalData string
	Cacheable      bool

	FileDependencies    respath.Set
	ContextDependencies respath.Set
	MissingDependencies respath.Set
	BuildDependencies   respath.Set
	AssetFilenames      respath.Set

	Diagnostics []diag.Diagnostic
}

// ReadResource loads the raw bytes behind a resource. The default reads from
// the filesystem; tests and asset pipelines substitute their own.
type ReadResource func(resource respath.ResourceData) ([]byte, error)

func readFromDisk(resource respath.ResourceData) ([]byte, error) {
	return os.ReadFile(resource.Path)
}

// Options configures one runner invocation.
type Options struct {
	// Read loads the resource when no pitch short-circuits. Nil means the
	// filesystem.
	Read ReadResource
	// MaxDiagnostics bounds the per-run diagnostic bag. 0 means unbounded.
	MaxDiagnostics int
}

// Run executes the chain against the resource: pitch outside-in, then the
// normal phase inside-out over whatever content pitching or resource loading
// produced. A step error aborts the run; the module layer turns that into
// build-failed state rather than a fatal error.
func Run(ctx context.Context, chain Chain, resource respath.ResourceData, opts Options) (*RunResult, error) {
	read := opts.Read
	if read == nil {
		read = readFromDisk
	}

	lc := newContext(chain, resource, opts.MaxDiagnostics)

	// Execution marks are scoped to one run. A rebuild reuses the module's
	// chain, so stale marks from an earlier run must not skip steps.
	for _, it := range chain {
		it.normalExecuted = false
	}

	// Pitch phase. A step that produces content short-circuits the steps
	// after it; the normal phase then starts at the step before it.
	normalFrom := len(chain) - 1
	for i := 0; i < len(chain); i++ {
		lc.index = i
		it := chain[i]
		if err := it.Loader.Pitch(ctx, lc); err != nil {
			return nil, fmt.Errorf("loader %s pitch: %w", it.Identifier(), err)
		}
		if lc.Content != nil {
			normalFrom = i - 1
			break
		}
	}

	// No pitch produced content: load the resource itself.
	if lc.Content == nil {
		raw, err := read(resource)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", resource.Path, err)
		}
		lc.Content = raw
		lc.FileDependencies.Add(resource.Path)
	}

	// Normal phase, inside-out. Steps whose normal phase already ran on the
	// other side of a runtime boundary are skipped.
	for i := normalFrom; i >= 0; i-- {
		lc.index = i
		it := chain[i]
		if it.normalExecuted {
			continue
		}
		it.normalExecuted = true
		if err := it.Loader.Run(ctx, lc); err != nil {
			return nil, fmt.Errorf("loader %s: %w", it.Identifier(), err)
		}
	}

	return &RunResult{
		Content:             lc.Content,
		SourceMap:           lc.SourceMap,
		AdditionalData:      lc.AdditionalData,
		Cacheable:           lc.Cacheable,
		FileDependencies:    lc.FileDependencies,
		ContextDependencies: lc.ContextDependencies,
		MissingDependencies: lc.MissingDependencies,
		BuildDependencies:   lc.BuildDependencies,
		AssetFilenames:      lc.AssetFilenames,
		Diagnostics:         lc.Diagnostics.Items(),
	}, nil
}
