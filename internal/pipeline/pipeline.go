// Package pipeline orchestrates the compilation: it fans module build
// requests out over a bounded worker pool, deduplicates modules by
// identifier, consults the build caches, and collects code generation
// artifacts once the graph is complete.
package pipeline

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"forge/internal/cache"
	"forge/internal/diag"
	"forge/internal/jsdialect"
	"forge/internal/loader"
	"forge/internal/module"
	"forge/internal/resolve"
	"forge/internal/sources"
)

// Options configures a pipeline.
type Options struct {
	Module  *module.Options
	Resolve resolve.Options

	// Jobs bounds build concurrency; zero means one worker per CPU.
	Jobs           int
	MaxDiagnostics int

	Driver   module.PluginDriver
	Registry *module.Registry

	// Memory and Disk are optional build caches; nil disables each tier.
	Memory *cache.MemoryCache
	Disk   *cache.DiskCache

	Logger *log.Logger
	Sink   ProgressSink
	// Read substitutes resource loading; nil means the filesystem.
	Read loader.ReadResource
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Modules holds every constructed module keyed by identifier, failed
	// builds included.
	Modules map[module.Identifier]*module.Module
	// Artifacts holds per-module code generation output, in Modules' keys.
	Artifacts map[module.Identifier]*module.CodeGenerationResult

	Diagnostics []diag.Diagnostic
	Timings     Timings

	CacheHits int
	Built     int
}

// HasErrors reports whether any collected diagnostic is an error.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Pipeline drives whole-graph builds. Safe for one Run at a time.
type Pipeline struct {
	opts            Options
	resolverFactory *resolve.Factory
	factory         *module.Factory
	logger          *log.Logger
}

// New wires a pipeline from options, filling defaults.
func New(opts Options) *Pipeline {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	if opts.Driver == nil {
		opts.Driver = module.NopDriver{}
	}
	if opts.Registry == nil {
		r := module.NewRegistry()
		jsdialect.Register(r)
		opts.Registry = r
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	resolverFactory := resolve.NewFactory(opts.Resolve)
	return &Pipeline{
		opts:            opts,
		resolverFactory: resolverFactory,
		factory:         module.NewFactory(opts.Module, resolverFactory, opts.Registry, opts.Driver),
		logger:          logger,
	}
}

// ResolverFactory exposes the shared resolver factory, letting callers
// invalidate the stat cache between watch-mode runs.
func (p *Pipeline) ResolverFactory() *resolve.Factory { return p.resolverFactory }

// request is one pending module construction.
type request struct {
	context  string
	spec     string
	importer string
	optional bool
	depType  string
	category resolve.DependencyCategory
}

// Run builds the full module graph reachable from the entries, then runs
// code generation over every module. Build failures surface as diagnostics
// on the result, not as the returned error; the error reports pipeline
// breakdowns such as cancellation or plugin faults.
func (p *Pipeline) Run(ctx context.Context, entries []string) (*Result, error) {
	result := &Result{
		Modules:   make(map[module.Identifier]*module.Module),
		Artifacts: make(map[module.Identifier]*module.CodeGenerationResult),
	}

	var (
		mu   sync.Mutex
		next []request
	)
	for _, entry := range entries {
		next = append(next, request{
			context:  p.opts.Module.Context,
			spec:     entry,
			depType:  "entry",
			category: resolve.CategoryEsm,
		})
	}

	buildStart := time.Now()
	// Wave-based breadth-first traversal: each wave builds its requests in
	// parallel, dependencies discovered by a wave form the next one.
	for len(next) > 0 {
		wave := next
		next = nil

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Jobs)
		for _, req := range wave {
			req := req
			g.Go(func() error {
				deps, err := p.buildOne(gctx, req, result, &mu)
				if err != nil {
					return err
				}
				mu.Lock()
				next = append(next, deps...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}
	}
	result.Timings.Set(StageBuild, time.Since(buildStart))
	p.logger.Debug("module graph complete",
		"modules", len(result.Modules), "built", result.Built, "cached", result.CacheHits)

	if err := p.codegen(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// buildOne creates and builds one module, returning its dependency requests.
// Duplicate identifiers are detected after creation and never built twice.
func (p *Pipeline) buildOne(ctx context.Context, req request, result *Result, mu *sync.Mutex) ([]request, error) {
	created, resolveErr := p.factory.Create(&module.CreateArgs{
		Context:            req.context,
		Request:            req.spec,
		Importer:           req.importer,
		Optional:           req.optional,
		DependencyType:     req.depType,
		DependencyCategory: req.category,
	})
	if resolveErr != nil {
		var re *resolve.ResolveError
		if errors.As(resolveErr, &re) {
			mu.Lock()
			result.Diagnostics = append(result.Diagnostics, re.Diagnostic())
			mu.Unlock()
			if re.Severity < diag.SevError {
				return nil, nil
			}
			emit(p.opts.Sink, req.spec, StageResolve, StatusError, resolveErr, 0)
			return nil, nil
		}
		emit(p.opts.Sink, req.spec, StageResolve, StatusError, resolveErr, 0)
		return nil, resolveErr
	}
	if created.Ignored {
		return nil, nil
	}
	m := created.Module

	mu.Lock()
	if _, ok := result.Modules[m.Identifier()]; ok {
		mu.Unlock()
		return nil, nil
	}
	result.Modules[m.Identifier()] = m
	mu.Unlock()

	start := time.Now()
	emit(p.opts.Sink, m.UserRequest(), StageBuild, StatusWorking, nil, 0)

	if p.restoreFromCache(m) {
		mu.Lock()
		result.CacheHits++
		mu.Unlock()
		emit(p.opts.Sink, m.UserRequest(), StageBuild, StatusCached, nil, time.Since(start))
		return p.dependencyRequests(m), nil
	}

	built, err := m.Build(ctx, &module.BuildContext{
		Options:        p.opts.Module,
		Driver:         p.opts.Driver,
		Read:           p.opts.Read,
		MaxDiagnostics: p.opts.MaxDiagnostics,
	})
	if err != nil {
		emit(p.opts.Sink, m.UserRequest(), StageBuild, StatusError, err, time.Since(start))
		return nil, err
	}

	mu.Lock()
	result.Built++
	result.Diagnostics = append(result.Diagnostics, built.Diagnostics...)
	mu.Unlock()

	status := StatusDone
	if m.State().Kind() == module.StateBuiltFailed {
		status = StatusError
		p.logger.Warn("module build failed", "module", m.ReadableIdentifier(p.opts.Module))
	}
	emit(p.opts.Sink, m.UserRequest(), StageBuild, status, nil, time.Since(start))

	p.storeInCache(m)
	return p.dependencyRequests(m), nil
}

func (p *Pipeline) dependencyRequests(m *module.Module) []request {
	deps := m.Dependencies()
	if len(deps) == 0 {
		return nil
	}
	out := make([]request, 0, len(deps))
	for _, d := range deps {
		out = append(out, request{
			context:  m.Context(),
			spec:     d.Request,
			importer: m.Resource().Path,
			optional: d.Optional,
			depType:  d.Type,
			category: d.Category,
		})
	}
	return out
}

// cacheKey derives the content-addressed key a module's payload is stored
// under. The second return is false when the resource has no cacheable
// content, for example builtin-prefixed loader test fixtures.
func (p *Pipeline) cacheKey(m *module.Module) (sources.Digest, sources.Digest, bool) {
	path := m.Resource().Path
	if path == "" {
		return sources.Digest{}, sources.Digest{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sources.Digest{}, sources.Digest{}, false
	}
	content := sources.HashOf(data)
	key := sources.Combine(sources.HashOf([]byte(m.Identifier())), content)
	return key, content, true
}

func (p *Pipeline) restoreFromCache(m *module.Module) bool {
	if p.opts.Memory == nil && p.opts.Disk == nil {
		return false
	}
	key, content, ok := p.cacheKey(m)
	if !ok {
		return false
	}

	if p.opts.Memory != nil {
		if payload, hit := p.opts.Memory.Get(m.Identifier(), content); hit {
			cache.Restore(m, payload)
			return true
		}
	}
	if p.opts.Disk != nil {
		var payload cache.Payload
		hit, err := p.opts.Disk.Get(key, &payload)
		if err != nil {
			p.logger.Debug("disk cache read failed", "module", m.UserRequest(), "err", err)
			return false
		}
		if hit && payload.Identifier == string(m.Identifier()) {
			cache.Restore(m, &payload)
			if p.opts.Memory != nil {
				p.opts.Memory.Put(m.Identifier(), content, &payload)
			}
			return true
		}
	}
	return false
}

func (p *Pipeline) storeInCache(m *module.Module) {
	if p.opts.Memory == nil && p.opts.Disk == nil {
		return
	}
	payload := cache.Snapshot(m)
	if payload == nil {
		return
	}
	key, content, ok := p.cacheKey(m)
	if !ok {
		return
	}
	if p.opts.Memory != nil {
		p.opts.Memory.Put(m.Identifier(), content, payload)
	}
	if p.opts.Disk != nil {
		if err := p.opts.Disk.Put(key, payload); err != nil {
			p.logger.Debug("disk cache write failed", "module", m.UserRequest(), "err", err)
		}
	}
}

// codegen generates artifacts for every module in the graph, in parallel.
func (p *Pipeline) codegen(ctx context.Context, result *Result) error {
	start := time.Now()
	comp := &module.Compilation{Options: p.opts.Module}

	ids := make([]module.Identifier, 0, len(result.Modules))
	for id := range result.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Jobs)
	for _, id := range ids {
		id := id
		m := result.Modules[id]
		g.Go(func() error {
			cg, err := m.CodeGeneration(comp)
			if err != nil {
				emit(p.opts.Sink, m.UserRequest(), StageCodegen, StatusError, err, 0)
				return err
			}
			mu.Lock()
			result.Artifacts[id] = cg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	result.Timings.Set(StageCodegen, time.Since(start))
	emit(p.opts.Sink, "", StageCodegen, StatusDone, nil, time.Since(start))
	return nil
}
