package loader

import (
	"strings"
)

// ParsedRequest is a module request split into its inline loader specifiers
// and the trailing resource specifier.
type ParsedRequest struct {
	// Loaders are the '!'-separated loader specifiers, outermost first.
	Loaders []string
	// Resource is the final specifier naming the module's resource.
	Resource string
	// DisableConfigured is set by a leading '!': configured (non-inline)
	// normal loaders are skipped for this request.
	DisableConfigured bool
	// DisableAll is set by a leading '!!': only inline loaders apply.
	DisableAll bool
}

// ParseRequest splits an inline module request of the form
// "loaderA!loaderB!./resource". Leading '!' and '!!' carry webpack-style
// disable semantics and are consumed, not treated as empty specifiers.
func ParseRequest(request string) ParsedRequest {
	var p ParsedRequest
	switch {
	case strings.HasPrefix(request, "!!"):
		p.DisableAll = true
		request = request[2:]
	case strings.HasPrefix(request, "-!"):
		p.DisableConfigured = true
		request = request[2:]
	case strings.HasPrefix(request, "!"):
		p.DisableConfigured = true
		request = request[1:]
	}
	parts := strings.Split(request, "!")
	p.Resource = parts[len(parts)-1]
	p.Loaders = parts[:len(parts)-1]
	return p
}

// SplitQuery splits a loader specifier into its bare path and the ?query
// suffix (kept verbatim, '?' included). The query never participates in
// filesystem resolution; it is reattached to the resolved path.
func SplitQuery(specifier string) (path, query string) {
	if i := strings.IndexByte(specifier, '?'); i >= 0 {
		return specifier[:i], specifier[i:]
	}
	return specifier, ""
}
