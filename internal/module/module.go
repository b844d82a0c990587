package module

import (
	"context"
	"sync"

	"forge/internal/diag"
	"forge/internal/loader"
	"forge/internal/resolve"
	"forge/internal/respath"
	"forge/internal/sources"
)

// Module is one buildable unit: identity, request strings, resolved
// resource, loader chain and build state. Per-module state is exclusively
// owned by the running build; the module graph guarantees no two concurrent
// builds share an identifier.
type Module struct {
	id      Identifier
	context string

	// request is the full request including loaders from config;
	// userRequest is what the user wrote without configured loaders;
	// rawRequest is the request before resolution.
	request     string
	userRequest string
	rawRequest  string

	moduleType         ModuleType
	parserAndGenerator ParserAndGenerator

	// matchResource is the inline "match resource" override, nil normally.
	matchResource *respath.ResourceData
	resource      respath.ResourceData

	chain                loader.Chain
	containsInlineLoader bool

	resolveOptions *resolve.Options

	debugID uint64

	originalSource sources.Source
	state          BuildState

	buildInfo BuildInfo
	buildMeta BuildMeta

	dependencies   []Dependency
	presentational []PresentationalDependency

	sizeMu sync.Mutex
	sizes  map[SourceType]float64
}

// NewModule constructs a module. debugID comes from a sequence owned by the
// factory, keeping instance numbering out of process-global state.
func NewModule(
	request, userRequest, rawRequest string,
	moduleType ModuleType,
	pg ParserAndGenerator,
	matchResource *respath.ResourceData,
	resource respath.ResourceData,
	resolveOptions *resolve.Options,
	chain loader.Chain,
	containsInlineLoader bool,
	debugID uint64,
) *Module {
	return &Module{
		id:                   NewIdentifier(moduleType, request),
		context:              resource.Context(),
		request:              request,
		userRequest:          userRequest,
		rawRequest:           rawRequest,
		moduleType:           moduleType,
		parserAndGenerator:   pg,
		matchResource:        matchResource,
		resource:             resource,
		resolveOptions:       resolveOptions,
		chain:                chain,
		containsInlineLoader: containsInlineLoader,
		debugID:              debugID,
		sizes:                make(map[SourceType]float64),
	}
}

// Identifier returns the canonical graph key.
func (m *Module) Identifier() Identifier { return m.id }

// Equal reports identity equality: two modules are the same module iff
// their identifiers match, whatever their mutable state.
func (m *Module) Equal(other *Module) bool {
	return other != nil && m.id == other.id
}

func (m *Module) Request() string     { return m.request }
func (m *Module) UserRequest() string { return m.userRequest }
func (m *Module) RawRequest() string  { return m.rawRequest }

func (m *Module) Type() ModuleType { return m.moduleType }

// Context returns the directory holding the module's resource.
func (m *Module) Context() string { return m.context }

// Resource returns the resolved resource data.
func (m *Module) Resource() respath.ResourceData { return m.resource }

// MatchResource returns the inline match-resource override, nil when unset.
func (m *Module) MatchResource() *respath.ResourceData { return m.matchResource }

// ResolveOptions returns the per-rule resolve overrides bound to the module.
func (m *Module) ResolveOptions() *resolve.Options { return m.resolveOptions }

// Chain returns the module's loader chain.
func (m *Module) Chain() loader.Chain { return m.chain }

// SetChain replaces the chain. Only the loader-selection policy may call
// this, once, before loaders run.
func (m *Module) SetChain(chain loader.Chain) { m.chain = chain }

// ContainsInlineLoader reports whether any chain step came from '!' syntax.
func (m *Module) ContainsInlineLoader() bool { return m.containsInlineLoader }

// State returns the current build state.
func (m *Module) State() BuildState { return m.state }

// OriginalSource returns the content as it came out of the loader chain,
// available after a successful build.
func (m *Module) OriginalSource() sources.Source { return m.originalSource }

// BuildInfo returns the metadata of the last build.
func (m *Module) BuildInfo() *BuildInfo { return &m.buildInfo }

// BuildMeta returns the export classification of the last build.
func (m *Module) BuildMeta() *BuildMeta { return &m.buildMeta }

// Dependencies returns the module dependencies discovered by the last build.
func (m *Module) Dependencies() []Dependency { return m.dependencies }

// PresentationalDependencies returns parse-time code-shaping instructions.
func (m *Module) PresentationalDependencies() []PresentationalDependency {
	return m.presentational
}

// SourceTypes lists the artifact types this module can produce.
func (m *Module) SourceTypes() []SourceType {
	return m.parserAndGenerator.SourceTypes()
}

// ReadableIdentifier shortens the user request for display.
func (m *Module) ReadableIdentifier(opts *Options) string {
	return respath.Contextify(opts.Context, m.userRequest)
}

// NameForCondition exposes the query-less resource path for rule matching.
func (m *Module) NameForCondition() string {
	return m.resource.Path
}

// LibIdent returns the contextified user request used for library ids.
func (m *Module) LibIdent(contextDir string) string {
	return respath.Contextify(contextDir, m.userRequest)
}

// BuildContext carries the collaborators one build needs.
type BuildContext struct {
	Options *Options
	Driver  PluginDriver
	// Read substitutes resource loading; nil means the filesystem.
	Read           loader.ReadResource
	MaxDiagnostics int
}

// BuildResult is the outcome of one build attempt. A loader failure is
// carried as a diagnostic here, not as a Go error: failed builds are data
// the pipeline routes around.
type BuildResult struct {
	BuildInfo                  BuildInfo
	BuildMeta                  BuildMeta
	Dependencies               []Dependency
	PresentationalDependencies []PresentationalDependency
	Diagnostics                []diag.Diagnostic
}

// Build drives one attempt: before-loaders hook, loader chain, parse, hash.
// Every attempt fully replaces build state, build info, discovered
// dependencies and the size cache; a rebuild never inherits edges from a
// previous attempt.
func (m *Module) Build(ctx context.Context, bc *BuildContext) (*BuildResult, error) {
	m.buildInfo = BuildInfo{}
	m.buildMeta = BuildMeta{}
	m.state = Unbuilt()
	m.originalSource = nil
	m.dependencies = nil
	m.presentational = nil
	m.sizeMu.Lock()
	m.sizes = make(map[SourceType]float64)
	m.sizeMu.Unlock()

	// The hook runs unconditionally; it decides for itself whether the
	// chain needs a cross-runtime switch.
	if err := bc.Driver.BeforeLoaders(m); err != nil {
		return nil, err
	}

	bag := diag.NewBag(bc.MaxDiagnostics)

	loaded, err := loader.Run(ctx, m.chain, m.loadableResource(), loader.Options{
		Read:           bc.Read,
		MaxDiagnostics: bc.MaxDiagnostics,
	})
	if err != nil {
		// Build failure is data. Transition to BuiltFailed, hash the
		// failure deterministically so failed builds participate in
		// incremental caching, and report success with a diagnostic.
		m.state = BuiltFailed(err.Error())
		m.buildInfo.Hash = m.failureHash(&bc.Options.Output, err.Error())
		bag.Add(diag.Error(diag.BuildFailed, err.Error()))
		return &BuildResult{
			BuildInfo:   m.buildInfo,
			BuildMeta:   BuildMeta{},
			Diagnostics: bag.Items(),
		}, nil
	}
	bag.Extend(loaded.Diagnostics)

	original := m.createSource(bc.Options, loaded)
	m.originalSource = original

	parsed, err := m.parserAndGenerator.Parse(&ParseContext{
		Source:           original,
		ModuleIdentifier: m.id,
		ModuleType:       m.moduleType,
		UserRequest:      m.userRequest,
		Resource:         m.resource,
		AdditionalData:   loaded.AdditionalData,
		CompilerOptions:  bc.Options,
		BuildInfo:        &m.buildInfo,
		BuildMeta:        &m.buildMeta,
	})
	if err != nil {
		m.state = BuiltFailed(err.Error())
		m.buildInfo.Hash = m.failureHash(&bc.Options.Output, err.Error())
		bag.Add(diag.Error(diag.ParseFailed, err.Error()))
		return &BuildResult{
			BuildInfo:   m.buildInfo,
			BuildMeta:   BuildMeta{},
			Diagnostics: bag.Items(),
		}, nil
	}
	bag.Extend(parsed.Diagnostics)

	m.state = NewBuilt(parsed.Source, bag)
	m.dependencies = parsed.Dependencies
	m.presentational = parsed.PresentationalDependencies

	m.buildInfo.Cacheable = loaded.Cacheable
	m.buildInfo.FileDependencies = loaded.FileDependencies
	m.buildInfo.ContextDependencies = loaded.ContextDependencies
	m.buildInfo.MissingDependencies = loaded.MissingDependencies
	m.buildInfo.BuildDependencies = loaded.BuildDependencies
	m.buildInfo.AssetFilenames = loaded.AssetFilenames.Sorted()
	m.buildInfo.Hash = m.successHash(&bc.Options.Output)

	return &BuildResult{
		BuildInfo:                  m.buildInfo,
		BuildMeta:                  m.buildMeta,
		Dependencies:               parsed.Dependencies,
		PresentationalDependencies: parsed.PresentationalDependencies,
		Diagnostics:                bag.Items(),
	}, nil
}

// loadableResource honors the inline match-resource override when present.
func (m *Module) loadableResource() respath.ResourceData {
	if m.matchResource != nil {
		return *m.matchResource
	}
	return m.resource
}

// createSource wraps loader output per the devtool mode. Binary content
// always bypasses source-map wrapping.
func (m *Module) createSource(opts *Options, loaded *loader.RunResult) sources.Source {
	if m.moduleType.IsBinary() {
		return sources.NewRawBufferSource(loaded.Content)
	}
	content := string(loaded.Content)
	if opts.Devtool.FullMap() && loaded.SourceMap != nil {
		return sources.NewSourceMapSource(content, m.request, loaded.SourceMap)
	}
	if opts.Devtool.Enabled() {
		return sources.NewOriginalSource(content, m.request)
	}
	return sources.NewRawSource(content)
}

// Size reports the module's size for one artifact type, memoized per build
// and floored at 1 so size-based heuristics downstream never divide by zero.
func (m *Module) Size(sourceType SourceType) float64 {
	m.sizeMu.Lock()
	defer m.sizeMu.Unlock()
	if size, ok := m.sizes[sourceType]; ok {
		return size
	}
	size := m.parserAndGenerator.Size(m, sourceType)
	if size < 1.0 {
		size = 1.0
	}
	m.sizes[sourceType] = size
	return size
}

func (m *Module) successHash(output *OutputOptions) sources.Digest {
	h := sources.NewHasher()
	output.WriteHash(h)
	m.buildMeta.WriteHash(h)
	_, _ = h.Write([]byte(m.id))
	if m.originalSource != nil {
		m.originalSource.WriteHash(h)
	}
	return h.Sum()
}

func (m *Module) failureHash(output *OutputOptions, message string) sources.Digest {
	h := sources.NewHasher()
	output.WriteHash(h)
	_, _ = h.Write([]byte("failed"))
	_, _ = h.Write([]byte(m.id))
	_, _ = h.Write([]byte(message))
	return h.Sum()
}
