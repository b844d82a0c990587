// Package diag defines the diagnostic model shared by the resolve, loader and
// module-build subsystems.
//
// Diagnostics are data, not Go errors: a failed resolution or loader run is
// carried alongside an otherwise successful result so the pipeline can route
// around it (an erroring bundle is still a bundle). Only API misuse is
// reported as a Go error.
//
// Each Diagnostic carries two messages: Message is user facing and uses paths
// relative to the compilation context (stable across machines, safe to hash);
// Detail is the internal form with absolute paths, used for stats and logs.
package diag

type Diagnostic struct {
	Severity Severity
	Code     Code
	// Message is the user-facing text, relative paths only.
	Message string
	// Detail is the internal text with absolute paths. Empty means
	// Message is already complete.
	Detail string
}

// DetailOrMessage returns Detail when present, Message otherwise.
func (d *Diagnostic) DetailOrMessage() string {
	if d.Detail != "" {
		return d.Detail
	}
	return d.Message
}

// Error constructs an error-severity diagnostic.
func Error(code Code, message string) Diagnostic {
	return Diagnostic{Severity: SevError, Code: code, Message: message}
}

// Warning constructs a warning-severity diagnostic.
func Warning(code Code, message string) Diagnostic {
	return Diagnostic{Severity: SevWarning, Code: code, Message: message}
}
