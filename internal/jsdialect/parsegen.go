package jsdialect

import (
	"encoding/json"
	"fmt"

	"forge/internal/module"
	"forge/internal/sources"
)

// Register installs the default capabilities into the registry.
func Register(r *module.Registry) {
	for _, t := range []module.ModuleType{module.TypeJs, module.TypeJsEsm, module.TypeJsCjs} {
		r.Register(t, func() module.ParserAndGenerator { return &ScriptParserAndGenerator{} })
	}
	r.Register(module.TypeJSON, func() module.ParserAndGenerator { return &JSONParserAndGenerator{} })
	r.Register(module.TypeCSS, func() module.ParserAndGenerator { return &CSSParserAndGenerator{} })
	r.Register(module.TypeAsset, func() module.ParserAndGenerator { return &AssetParserAndGenerator{} })
}

// ScriptParserAndGenerator handles js, js/esm and js/cjs modules.
type ScriptParserAndGenerator struct{}

func (*ScriptParserAndGenerator) SourceTypes() []module.SourceType {
	return []module.SourceType{module.SourceTypeJavaScript}
}

func (*ScriptParserAndGenerator) Parse(pc *module.ParseContext) (*module.ParseResult, error) {
	text := pc.Source.String()
	result := scan(text)

	// Export-shape classification feeds the build hash and downstream
	// interop decisions.
	esm := pc.ModuleType == module.TypeJsEsm || result.hasEsmSyntax
	if pc.ModuleType == module.TypeJsCjs {
		esm = false
	}
	if esm {
		pc.BuildMeta.StrictEsm = true
		pc.BuildMeta.ExportsType = module.ExportsNamespace
		pc.BuildMeta.HasDefaultExport = result.hasDefault
	} else if result.hasCjsExports {
		pc.BuildMeta.ExportsType = module.ExportsDynamic
	}

	var presentational []module.PresentationalDependency
	if esm && result.hasCjsExports {
		// Mixed syntax: decorate the module object the way the runtime
		// expects for namespace modules.
		presentational = append(presentational, module.PresentationalDependency{
			Kind:    "module-decorator",
			Payload: "harmony",
		})
	}

	return &module.ParseResult{
		Source:                     pc.Source,
		Dependencies:               result.deps,
		PresentationalDependencies: presentational,
	}, nil
}

func (*ScriptParserAndGenerator) Generate(source sources.Source, m *module.Module, gc *module.GenerateContext) (sources.Source, error) {
	if gc.RequestedSourceType != module.SourceTypeJavaScript {
		return nil, fmt.Errorf("script module %s cannot generate %s", m.Request(), gc.RequestedSourceType)
	}
	gc.RuntimeRequirements["module"] = struct{}{}
	if m.BuildMeta().StrictEsm {
		gc.RuntimeRequirements["makeNamespaceObject"] = struct{}{}
	}
	return source, nil
}

func (*ScriptParserAndGenerator) Size(m *module.Module, _ module.SourceType) float64 {
	if src := m.State().Source(); src != nil {
		return float64(src.Size())
	}
	return 0
}

// JSONParserAndGenerator wraps JSON content as a script exporting the data.
type JSONParserAndGenerator struct{}

func (*JSONParserAndGenerator) SourceTypes() []module.SourceType {
	return []module.SourceType{module.SourceTypeJavaScript}
}

func (*JSONParserAndGenerator) Parse(pc *module.ParseContext) (*module.ParseResult, error) {
	var v any
	if err := json.Unmarshal(pc.Source.Buffer(), &v); err != nil {
		return nil, fmt.Errorf("invalid json in %s: %w", pc.Resource.Path, err)
	}
	pc.BuildMeta.ExportsType = module.ExportsDefault
	pc.BuildMeta.HasDefaultExport = true
	return &module.ParseResult{Source: pc.Source}, nil
}

func (*JSONParserAndGenerator) Generate(source sources.Source, _ *module.Module, gc *module.GenerateContext) (sources.Source, error) {
	gc.RuntimeRequirements["module"] = struct{}{}
	return sources.NewRawSource("module.exports = " + source.String() + ";\n"), nil
}

func (*JSONParserAndGenerator) Size(m *module.Module, _ module.SourceType) float64 {
	if src := m.State().Source(); src != nil {
		return float64(src.Size())
	}
	return 0
}

// CSSParserAndGenerator passes styling content through untouched.
type CSSParserAndGenerator struct{}

func (*CSSParserAndGenerator) SourceTypes() []module.SourceType {
	return []module.SourceType{module.SourceTypeCSS}
}

func (*CSSParserAndGenerator) Parse(pc *module.ParseContext) (*module.ParseResult, error) {
	return &module.ParseResult{Source: pc.Source}, nil
}

func (*CSSParserAndGenerator) Generate(source sources.Source, _ *module.Module, _ *module.GenerateContext) (sources.Source, error) {
	return source, nil
}

func (*CSSParserAndGenerator) Size(m *module.Module, _ module.SourceType) float64 {
	if src := m.State().Source(); src != nil {
		return float64(src.Size())
	}
	return 0
}

// AssetParserAndGenerator emits binary resources verbatim.
type AssetParserAndGenerator struct{}

func (*AssetParserAndGenerator) SourceTypes() []module.SourceType {
	return []module.SourceType{module.SourceTypeAsset}
}

func (*AssetParserAndGenerator) Parse(pc *module.ParseContext) (*module.ParseResult, error) {
	return &module.ParseResult{Source: pc.Source}, nil
}

func (*AssetParserAndGenerator) Generate(source sources.Source, _ *module.Module, _ *module.GenerateContext) (sources.Source, error) {
	return source, nil
}

func (*AssetParserAndGenerator) Size(m *module.Module, _ module.SourceType) float64 {
	if src := m.State().Source(); src != nil {
		return float64(src.Size())
	}
	return 0
}
