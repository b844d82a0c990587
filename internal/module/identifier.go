// Package module owns the module lifecycle state machine: identity, build
// state, the resolve → load → parse → hash sequence, and per-output-type
// code generation.
package module

// ModuleType names the dialect a module's resource is parsed as.
type ModuleType string

const (
	TypeJs    ModuleType = "js"
	TypeJsEsm ModuleType = "js/esm"
	TypeJsCjs ModuleType = "js/cjs"
	TypeCSS   ModuleType = "css"
	TypeJSON  ModuleType = "json"
	TypeAsset ModuleType = "asset"
)

// DefaultType is the type whose prefix is omitted from identifiers.
const DefaultType = TypeJs

// IsBinary reports whether content of this type is raw bytes, never text.
func (t ModuleType) IsBinary() bool {
	return t == TypeAsset
}

// Identifier is the canonical graph key of a module, computed once at
// construction from (module type, request) and never recomputed.
type Identifier string

// NewIdentifier derives the identifier. The default module type contributes
// no prefix, every other type is encoded as "type|request".
func NewIdentifier(moduleType ModuleType, request string) Identifier {
	if moduleType == DefaultType {
		return Identifier(request)
	}
	return Identifier(string(moduleType) + "|" + request)
}
