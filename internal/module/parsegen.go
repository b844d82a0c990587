package module

import (
	"fmt"
	"sync"

	"forge/internal/diag"
	"forge/internal/resolve"
	"forge/internal/respath"
	"forge/internal/sources"
)

// SourceType is a named category of generated output a module can produce.
type SourceType string

const (
	SourceTypeJavaScript SourceType = "javascript"
	SourceTypeCSS        SourceType = "css"
	SourceTypeAsset      SourceType = "asset"
)

// Dependency describes one outgoing edge discovered during parse: a request
// to be resolved and attached by the module graph.
type Dependency struct {
	Request  string
	Category resolve.DependencyCategory
	// Type names the construct, e.g. "esm import" or "cjs require".
	Type     string
	Optional bool
}

// PresentationalDependency is a code-shaping instruction that does not
// create a graph edge; generators consume it during code generation.
type PresentationalDependency struct {
	Kind    string
	Payload string
}

// ParseContext is everything a parser may consult. BuildInfo and BuildMeta
// are mutated in place during parse.
type ParseContext struct {
	Source           sources.Source
	ModuleIdentifier Identifier
	ModuleType       ModuleType
	UserRequest      string
	Resource         respath.ResourceData
	AdditionalData   string
	CompilerOptions  *Options

	BuildInfo *BuildInfo
	BuildMeta *BuildMeta
}

// ParseResult is what a parser hands back: the (possibly rewritten) source
// plus the discovered dependencies.
type ParseResult struct {
	Source                     sources.Source
	Dependencies               []Dependency
	PresentationalDependencies []PresentationalDependency
	Diagnostics                []diag.Diagnostic
}

// GenerateContext carries per-artifact generation state.
type GenerateContext struct {
	Compilation         *Compilation
	RequestedSourceType SourceType
	// RuntimeRequirements collects runtime globals the artifact needs.
	RuntimeRequirements map[string]struct{}
	Data                map[string]string
}

// ParserAndGenerator is the pluggable per-module-type capability: parse
// built source into dependencies, generate per-output-type artifacts, and
// report sizes. Supplied by the registry; treated as opaque by the module
// state machine.
type ParserAndGenerator interface {
	SourceTypes() []SourceType
	Parse(pc *ParseContext) (*ParseResult, error)
	Generate(source sources.Source, m *Module, gc *GenerateContext) (sources.Source, error)
	Size(m *Module, sourceType SourceType) float64
}

// Registry maps module types to parser/generator constructors.
type Registry struct {
	mu sync.RWMutex
	m  map[ModuleType]func() ParserAndGenerator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[ModuleType]func() ParserAndGenerator)}
}

// Register binds a constructor to a module type.
func (r *Registry) Register(t ModuleType, ctor func() ParserAndGenerator) {
	r.mu.Lock()
	r.m[t] = ctor
	r.mu.Unlock()
}

// Get instantiates the capability for a module type.
func (r *Registry) Get(t ModuleType) (ParserAndGenerator, error) {
	r.mu.RLock()
	ctor, ok := r.m[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no parser and generator registered for module type %q", t)
	}
	return ctor(), nil
}
