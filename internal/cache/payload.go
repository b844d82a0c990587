package cache

import (
	"forge/internal/module"
	"forge/internal/respath"
	"forge/internal/sources"
)

// Current schema version - increment when Payload format changes.
const schemaVersion uint16 = 1

// PayloadDependency is the cached form of one discovered dependency.
type PayloadDependency struct {
	Request  string `msgpack:"request"`
	Category string `msgpack:"category"`
	Type     string `msgpack:"type"`
	Optional bool   `msgpack:"optional"`
}

// Payload is everything needed to rehydrate a built module without running
// its loaders or parser again.
type Payload struct {
	Schema uint16 `msgpack:"schema"`

	Identifier string `msgpack:"identifier"`
	Request    string `msgpack:"request"`

	// Build state
	Failed         bool   `msgpack:"failed"`
	FailureMessage string `msgpack:"failureMessage"`
	SourceContent  []byte `msgpack:"sourceContent"`
	SourceIsBinary bool   `msgpack:"sourceIsBinary"`

	// Build info
	Hash                sources.Digest `msgpack:"hash"`
	Cacheable           bool           `msgpack:"cacheable"`
	FileDependencies    []string       `msgpack:"fileDependencies"`
	ContextDependencies []string       `msgpack:"contextDependencies"`
	MissingDependencies []string       `msgpack:"missingDependencies"`
	BuildDependencies   []string       `msgpack:"buildDependencies"`
	AssetFilenames      []string       `msgpack:"assetFilenames"`

	// Build meta
	StrictEsm        bool  `msgpack:"strictEsm"`
	ExportsType      uint8 `msgpack:"exportsType"`
	HasDefaultExport bool  `msgpack:"hasDefaultExport"`
	SideEffectFree   bool  `msgpack:"sideEffectFree"`

	Dependencies []PayloadDependency `msgpack:"dependencies"`
}

// Snapshot captures a just-built module into a payload. Returns nil when
// the build declared itself uncacheable.
func Snapshot(m *module.Module) *Payload {
	info := m.BuildInfo()
	state := m.State()
	if state.Kind() == module.StateUnbuilt {
		return nil
	}
	if state.Kind() == module.StateBuiltSucceed && !info.Cacheable {
		return nil
	}

	p := &Payload{
		Schema:     schemaVersion,
		Identifier: string(m.Identifier()),
		Request:    m.Request(),

		Hash:                info.Hash,
		Cacheable:           info.Cacheable,
		FileDependencies:    info.FileDependencies.Sorted(),
		ContextDependencies: info.ContextDependencies.Sorted(),
		MissingDependencies: info.MissingDependencies.Sorted(),
		BuildDependencies:   info.BuildDependencies.Sorted(),
		AssetFilenames:      info.AssetFilenames,
	}

	meta := m.BuildMeta()
	p.StrictEsm = meta.StrictEsm
	p.ExportsType = uint8(meta.ExportsType)
	p.HasDefaultExport = meta.HasDefaultExport
	p.SideEffectFree = meta.SideEffectFree

	if state.Kind() == module.StateBuiltFailed {
		p.Failed = true
		p.FailureMessage = state.FailureMessage()
	} else {
		src := state.Source()
		p.SourceContent = src.Buffer()
		if raw, ok := src.(*sources.RawSource); ok {
			p.SourceIsBinary = raw.IsBinary()
		}
	}

	for _, d := range m.Dependencies() {
		p.Dependencies = append(p.Dependencies, PayloadDependency{
			Request:  d.Request,
			Category: string(d.Category),
			Type:     d.Type,
			Optional: d.Optional,
		})
	}
	return p
}

// Restore rehydrates m from the payload.
func Restore(m *module.Module, p *Payload) {
	var state module.BuildState
	if p.Failed {
		state = module.BuiltFailed(p.FailureMessage)
	} else if p.SourceIsBinary {
		state = module.BuiltSucceed(sources.NewRawBufferSource(p.SourceContent))
	} else {
		state = module.BuiltSucceed(sources.NewRawSource(string(p.SourceContent)))
	}

	info := module.BuildInfo{
		Hash:                p.Hash,
		Cacheable:           p.Cacheable,
		FileDependencies:    respath.NewSet(p.FileDependencies...),
		ContextDependencies: respath.NewSet(p.ContextDependencies...),
		MissingDependencies: respath.NewSet(p.MissingDependencies...),
		BuildDependencies:   respath.NewSet(p.BuildDependencies...),
		AssetFilenames:      p.AssetFilenames,
	}
	meta := module.BuildMeta{
		StrictEsm:        p.StrictEsm,
		ExportsType:      module.ExportsType(p.ExportsType),
		HasDefaultExport: p.HasDefaultExport,
		SideEffectFree:   p.SideEffectFree,
	}

	deps := make([]module.Dependency, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		deps = append(deps, module.Dependency{
			Request:  d.Request,
			Category: resolveCategory(d.Category),
			Type:     d.Type,
			Optional: d.Optional,
		})
	}

	m.Restore(state, info, meta, deps, nil)
}
