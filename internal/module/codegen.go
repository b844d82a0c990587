package module

import (
	"encoding/json"
	"fmt"

	"forge/internal/sources"
)

// Compilation is the view of the surrounding compilation code generation
// needs. The full dependency graph lives outside this core.
type Compilation struct {
	Options *Options
}

// Artifact is one generated output, stamped with its content hash.
type Artifact struct {
	Source sources.Source
	Hash   sources.Digest
}

// CodeGenerationResult packages the per-output-type artifacts of one module.
type CodeGenerationResult struct {
	artifacts map[SourceType]Artifact

	// RuntimeRequirements accumulates runtime globals across artifacts.
	RuntimeRequirements map[string]struct{}
	Data                map[string]string

	// Hash covers every artifact under the output hash settings.
	Hash sources.Digest
}

func newCodeGenerationResult() *CodeGenerationResult {
	return &CodeGenerationResult{
		artifacts:           make(map[SourceType]Artifact),
		RuntimeRequirements: make(map[string]struct{}),
		Data:                make(map[string]string),
	}
}

// Add stamps and stores an artifact for one source type.
func (r *CodeGenerationResult) Add(sourceType SourceType, source sources.Source) {
	r.artifacts[sourceType] = Artifact{
		Source: source,
		Hash:   sources.HashSource(source),
	}
}

// Get returns the artifact for sourceType, if one was generated.
func (r *CodeGenerationResult) Get(sourceType SourceType) (Artifact, bool) {
	a, ok := r.artifacts[sourceType]
	return a, ok
}

// SourceTypes lists the types that produced artifacts.
func (r *CodeGenerationResult) Len() int {
	return len(r.artifacts)
}

func (r *CodeGenerationResult) setHash(output *OutputOptions) {
	h := sources.NewHasher()
	output.WriteHash(h)
	for _, st := range []SourceType{SourceTypeJavaScript, SourceTypeCSS, SourceTypeAsset} {
		if a, ok := r.artifacts[st]; ok {
			_, _ = h.Write([]byte(st))
			_, _ = h.Write(a.Hash[:])
		}
	}
	r.Hash = h.Sum()
}

// CodeGeneration emits the module's artifacts. A module built with failure
// still generates: script-capable modules emit a synthetic artifact raising
// the stored message at the consumer's runtime, so downstream observes a
// deferred, catchable error instead of a missing module. Calling this on a
// never-built module is a programmer error.
func (m *Module) CodeGeneration(comp *Compilation) (*CodeGenerationResult, error) {
	switch m.state.Kind() {
	case StateBuiltSucceed:
		result := newCodeGenerationResult()
		for _, sourceType := range m.SourceTypes() {
			generated, err := m.parserAndGenerator.Generate(m.state.Source(), m, &GenerateContext{
				Compilation:         comp,
				RequestedSourceType: sourceType,
				RuntimeRequirements: result.RuntimeRequirements,
				Data:                result.Data,
			})
			if err != nil {
				return nil, err
			}
			result.Add(sourceType, generated)
		}
		result.setHash(&comp.Options.Output)
		return result, nil

	case StateBuiltFailed:
		result := newCodeGenerationResult()
		if m.hasSourceType(SourceTypeJavaScript) {
			message, _ := json.Marshal(m.state.FailureMessage())
			result.Add(SourceTypeJavaScript,
				sources.NewRawSource(fmt.Sprintf("throw new Error(%s);\n", message)))
		}
		result.setHash(&comp.Options.Output)
		return result, nil

	default:
		return nil, fmt.Errorf("failed to generate code: source is not built for module %s", m.request)
	}
}

func (m *Module) hasSourceType(want SourceType) bool {
	for _, st := range m.SourceTypes() {
		if st == want {
			return true
		}
	}
	return false
}
