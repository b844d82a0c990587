// Package bridge connects the native loader engine to an external worker
// runtime. It carries the loader context across the boundary as msgpack
// payloads, adapts foreign transforms into chain steps, and hosts the
// loader-selection policy that decides when a chain leaves the native side.
package bridge

import (
	"forge/internal/loader"
	"forge/internal/respath"
	"forge/internal/sources"
)

// WireContext is the loader context as serialized across the runtime
// boundary. Source maps travel as their JSON encoding; the worker never
// needs the native representation.
type WireContext struct {
	Content        []byte `msgpack:"content"`
	SourceMap      []byte `msgpack:"sourceMap"`
	AdditionalData string `msgpack:"additionalData"`

	Resource         string `msgpack:"resource"`
	ResourcePath     string `msgpack:"resourcePath"`
	ResourceQuery    string `msgpack:"resourceQuery"`
	ResourceFragment string `msgpack:"resourceFragment"`

	Cacheable bool `msgpack:"cacheable"`

	FileDependencies    []string `msgpack:"fileDependencies"`
	ContextDependencies []string `msgpack:"contextDependencies"`
	MissingDependencies []string `msgpack:"missingDependencies"`
	BuildDependencies   []string `msgpack:"buildDependencies"`
	AssetFilenames      []string `msgpack:"assetFilenames"`

	CurrentLoader string `msgpack:"currentLoader"`
	IsPitching    bool   `msgpack:"isPitching"`
}

// WireResult is the worker's answer. Content, source map and the dependency
// lists are authoritative: they replace the native fields wholesale, never
// merge into them.
type WireResult struct {
	Content        []byte `msgpack:"content"`
	SourceMap      []byte `msgpack:"sourceMap"`
	AdditionalData string `msgpack:"additionalData"`

	Cacheable bool `msgpack:"cacheable"`

	FileDependencies    []string `msgpack:"fileDependencies"`
	ContextDependencies []string `msgpack:"contextDependencies"`
	MissingDependencies []string `msgpack:"missingDependencies"`
	BuildDependencies   []string `msgpack:"buildDependencies"`

	// IsPitching echoes the phase the worker finished in. False on a
	// pitch call means the worker already ran the normal phase for the
	// current step.
	IsPitching bool `msgpack:"isPitching"`
}

// snapshotContext captures the native loader context for the wire.
func snapshotContext(lc *loader.Context, currentLoader string, pitching bool) (*WireContext, error) {
	wc := &WireContext{
		Content:        lc.Content,
		AdditionalData: lc.AdditionalData,

		Resource:         lc.Resource.Resource,
		ResourcePath:     lc.Resource.Path,
		ResourceQuery:    lc.Resource.Query,
		ResourceFragment: lc.Resource.Fragment,

		Cacheable: lc.Cacheable,

		FileDependencies:    lc.FileDependencies.Sorted(),
		ContextDependencies: lc.ContextDependencies.Sorted(),
		MissingDependencies: lc.MissingDependencies.Sorted(),
		BuildDependencies:   lc.BuildDependencies.Sorted(),
		AssetFilenames:      lc.AssetFilenames.Sorted(),

		CurrentLoader: currentLoader,
		IsPitching:    pitching,
	}
	if lc.SourceMap != nil {
		data, err := lc.SourceMap.ToJSON()
		if err != nil {
			return nil, err
		}
		wc.SourceMap = data
	}
	return wc, nil
}

// applyResult writes the worker's answer back into the native context.
func applyResult(res *WireResult, lc *loader.Context) error {
	lc.Cacheable = res.Cacheable
	lc.Content = res.Content
	lc.AdditionalData = res.AdditionalData

	lc.FileDependencies = respath.NewSet(res.FileDependencies...)
	lc.ContextDependencies = respath.NewSet(res.ContextDependencies...)
	lc.MissingDependencies = respath.NewSet(res.MissingDependencies...)
	lc.BuildDependencies = respath.NewSet(res.BuildDependencies...)

	lc.SourceMap = nil
	if len(res.SourceMap) > 0 {
		m, err := sources.SourceMapFromJSON(res.SourceMap)
		if err != nil {
			return err
		}
		lc.SourceMap = m
	}
	return nil
}
