package module

import (
	"forge/internal/diag"
	"forge/internal/sources"
)

// StateKind tags the build state of a module.
type StateKind uint8

const (
	// StateUnbuilt means build() has not completed for this module yet.
	StateUnbuilt StateKind = iota
	// StateBuiltSucceed means the last build produced a usable source.
	StateBuiltSucceed
	// StateBuiltFailed means the last build failed; the failure message is
	// retained for degraded code generation.
	StateBuiltFailed
)

// BuildState is a tagged union replaced wholesale on every transition:
// the success variant owns the built source, the failure variant owns the
// message. It is never partially mutated.
type BuildState struct {
	kind    StateKind
	source  sources.Source
	message string
}

// Unbuilt is the initial state; rebuilds re-enter through it.
func Unbuilt() BuildState {
	return BuildState{}
}

// BuiltSucceed wraps a successfully built source.
func BuiltSucceed(source sources.Source) BuildState {
	return BuildState{kind: StateBuiltSucceed, source: source}
}

// BuiltFailed records a failed build.
func BuiltFailed(message string) BuildState {
	return BuildState{kind: StateBuiltFailed, message: message}
}

// NewBuilt classifies a finished build: any error-severity diagnostic makes
// the build failed with the joined error messages, otherwise it succeeded.
func NewBuilt(source sources.Source, diagnostics *diag.Bag) BuildState {
	if diagnostics.HasErrors() {
		return BuiltFailed(diagnostics.ErrorMessages())
	}
	return BuiltSucceed(source)
}

// Kind returns the state tag.
func (s BuildState) Kind() StateKind {
	return s.kind
}

// Source returns the built source; nil unless the state is BuiltSucceed.
func (s BuildState) Source() sources.Source {
	return s.source
}

// FailureMessage returns the stored failure; empty unless BuiltFailed.
func (s BuildState) FailureMessage() string {
	return s.message
}
