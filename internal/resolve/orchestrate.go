package resolve

import (
	"errors"
	"fmt"
	"path/filepath"

	"forge/internal/diag"
	"forge/internal/respath"
)

// Args describes one resolution request from module construction.
type Args struct {
	// Context is the directory the specifier is resolved from.
	Context   string
	Specifier string
	// Importer is the absolute path of the requesting module, empty for
	// entry requests.
	Importer string
	// Optional downgrades a resolve failure to a warning.
	Optional bool

	DependencyType     string
	DependencyCategory DependencyCategory
	ResolveOptions     *Options
	ResolveToContext   bool

	// FileDependencies and MissingDependencies, when non-nil, receive the
	// filesystem paths this resolution consulted.
	FileDependencies    respath.Set
	MissingDependencies respath.Set
}

// ResolveError carries the two-tier failure report: a user-facing message
// with paths relative to the project root, and an internal message with
// absolute paths.
type ResolveError struct {
	Message  string
	Internal string
	Severity diag.Severity
	Cycle    bool
}

func (e *ResolveError) Error() string {
	return e.Internal
}

// Diagnostic converts the error to its diagnostic form.
func (e *ResolveError) Diagnostic() diag.Diagnostic {
	code := diag.ResolveFailed
	if e.Cycle {
		code = diag.ResolveCycle
	}
	return diag.Diagnostic{
		Severity: e.Severity,
		Code:     code,
		Message:  e.Message,
		Detail:   e.Internal,
	}
}

// Resolve is the entry point module construction uses: pick a resolver for
// the request, run it, record consulted paths, and convert a low-level
// failure into a two-tier report.
func Resolve(args Args, factory *Factory, rootContext string) (Result, *ResolveError) {
	resolver := factory.Get(Key{
		Options:            args.ResolveOptions,
		ResolveToContext:   args.ResolveToContext,
		DependencyType:     args.DependencyType,
		DependencyCategory: args.DependencyCategory,
	})

	result, err := resolver.Resolve(args.Context, args.Specifier)

	if args.FileDependencies != nil {
		args.FileDependencies.AddAll(result.FileDependencies)
	}
	if args.MissingDependencies != nil {
		args.MissingDependencies.AddAll(result.MissingDependencies)
	}

	if err == nil {
		return result, nil
	}
	return Result{}, describeFailure(err, &args, rootContext)
}

func describeFailure(err error, args *Args, rootContext string) *ResolveError {
	sev := diag.SevError
	if args.Optional {
		sev = diag.SevWarning
	}

	var cycle *CycleError
	if errors.As(err, &cycle) {
		relImporter := args.Importer
		if relImporter != "" {
			relImporter = respath.Relative(rootContext, args.Importer)
		}
		return &ResolveError{
			// Relative path in the user message keeps hashes stable
			// across machines.
			Message:  fmt.Sprintf("Can't resolve %q in %s, maybe it had cycle alias", args.Specifier, relImporter),
			Internal: fmt.Sprintf("Can't resolve %q in %s, maybe it had cycle alias", args.Specifier, args.Importer),
			Severity: sev,
			Cycle:    true,
		}
	}

	if args.Importer == "" {
		msg := fmt.Sprintf("Failed to resolve %s in project root", args.Specifier)
		return &ResolveError{Message: msg, Internal: msg, Severity: sev}
	}
	return &ResolveError{
		Message:  fmt.Sprintf("Failed to resolve %s in %s", args.Specifier, respath.Relative(rootContext, filepath.Clean(args.Context))),
		Internal: fmt.Sprintf("Failed to resolve %s in %s", args.Specifier, args.Importer),
		Severity: sev,
	}
}
