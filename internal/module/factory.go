package module

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"forge/internal/loader"
	"forge/internal/resolve"
	"forge/internal/respath"
)

// matchResourceSeparator splits an inline match-resource override from the
// rest of the request: "override.js!=!loader!./real.js".
const matchResourceSeparator = "!=!"

// Factory constructs modules: it resolves the resource, resolves every
// inline loader specifier through the plugin driver, and assigns the loader
// chain. It also owns the debug-id sequence, so instance numbering needs no
// process-global counter.
type Factory struct {
	options         *Options
	resolverFactory *resolve.Factory
	registry        *Registry
	driver          PluginDriver

	mu          sync.Mutex
	nextDebugID uint64
}

// NewFactory wires a module factory.
func NewFactory(options *Options, resolverFactory *resolve.Factory, registry *Registry, driver PluginDriver) *Factory {
	return &Factory{
		options:         options,
		resolverFactory: resolverFactory,
		registry:        registry,
		driver:          driver,
		nextDebugID:     1,
	}
}

// CreateArgs describes one module construction request.
type CreateArgs struct {
	// Context is the directory the request resolves from; empty means the
	// project root.
	Context string
	Request string
	// Importer is the absolute path of the requesting module, if any.
	Importer string
	Optional bool

	DependencyType     string
	DependencyCategory resolve.DependencyCategory

	// ModuleType overrides extension-based inference when set.
	ModuleType ModuleType
	// ConfiguredLoaders are the rule-assigned (non-inline) steps.
	ConfiguredLoaders []loader.Loader
	ResolveOptions    *resolve.Options

	FileDependencies    respath.Set
	MissingDependencies respath.Set
}

// CreateResult carries the constructed module. Ignored marks a specifier
// that intentionally resolved to nothing; no module exists then.
type CreateResult struct {
	Module  *Module
	Ignored bool
}

// Create builds one module from a request.
func (f *Factory) Create(args *CreateArgs) (*CreateResult, error) {
	contextDir := args.Context
	if contextDir == "" {
		contextDir = f.options.Context
	}

	request := args.Request
	var matchResource *respath.ResourceData
	if i := strings.Index(request, matchResourceSeparator); i >= 0 {
		mr := respath.ParseResource(request[:i])
		if !filepath.IsAbs(mr.Path) {
			mr = respath.ParseResource(filepath.Join(contextDir, request[:i]))
		}
		matchResource = &mr
		request = request[i+len(matchResourceSeparator):]
	}

	parsed := loader.ParseRequest(request)

	result, resolveErr := resolve.Resolve(resolve.Args{
		Context:             contextDir,
		Specifier:           parsed.Resource,
		Importer:            args.Importer,
		Optional:            args.Optional,
		DependencyType:      args.DependencyType,
		DependencyCategory:  args.DependencyCategory,
		ResolveOptions:      args.ResolveOptions,
		FileDependencies:    args.FileDependencies,
		MissingDependencies: args.MissingDependencies,
	}, f.resolverFactory, f.options.Context)
	if resolveErr != nil {
		return nil, resolveErr
	}
	if result.Ignored {
		return &CreateResult{Ignored: true}, nil
	}
	resource := result.Resource

	inline, err := f.resolveInlineLoaders(contextDir, parsed.Loaders)
	if err != nil {
		return nil, err
	}

	chain := make(loader.Chain, 0, len(inline)+len(args.ConfiguredLoaders))
	for _, l := range inline {
		chain = append(chain, &loader.Item{Loader: l, InlineOrigin: true})
	}
	if !parsed.DisableAll && !parsed.DisableConfigured {
		for _, l := range args.ConfiguredLoaders {
			chain = append(chain, &loader.Item{Loader: l})
		}
	}

	moduleType := args.ModuleType
	if moduleType == "" {
		moduleType = inferModuleType(resource.Path)
	}
	pg, err := f.registry.Get(moduleType)
	if err != nil {
		return nil, err
	}

	fullRequest := buildFullRequest(chain, resource)
	debugID := f.nextID()

	m := NewModule(
		fullRequest,
		resource.Resource,
		args.Request,
		moduleType,
		pg,
		matchResource,
		resource,
		args.ResolveOptions,
		chain,
		len(inline) > 0,
		debugID,
	)
	return &CreateResult{Module: m}, nil
}

func (f *Factory) nextID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextDebugID
	f.nextDebugID++
	return id
}

// resolveInlineLoaders maps each '!'-syntax loader specifier to a transform
// step via the plugin driver. Loader resolution is distinct from module
// resolution: a loader must name a real resource, so Ignored is an error.
func (f *Factory) resolveInlineLoaders(contextDir string, specs []string) ([]loader.Loader, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	resolver := f.resolverFactory.Get(resolve.Key{
		DependencyType:     "loader",
		DependencyCategory: resolve.CategoryLoader,
	})
	out := make([]loader.Loader, 0, len(specs))
	for _, spec := range specs {
		_, query := loader.SplitQuery(spec)
		l, err := f.driver.ResolveLoader(f.options, contextDir, resolver, spec, strings.TrimPrefix(query, "?"))
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, fmt.Errorf("no plugin resolved loader %q in %s", spec, contextDir)
		}
		out = append(out, l)
	}
	return out, nil
}

func buildFullRequest(chain loader.Chain, resource respath.ResourceData) string {
	if len(chain) == 0 {
		return resource.Resource
	}
	parts := make([]string, 0, len(chain)+1)
	parts = append(parts, chain.Identifiers()...)
	parts = append(parts, resource.Resource)
	return strings.Join(parts, "!")
}

func inferModuleType(path string) ModuleType {
	switch filepath.Ext(path) {
	case ".mjs":
		return TypeJsEsm
	case ".cjs":
		return TypeJsCjs
	case ".json":
		return TypeJSON
	case ".css":
		return TypeCSS
	case ".js", "":
		return TypeJs
	default:
		return TypeAsset
	}
}
