package diag

// Severity ranks how strongly a diagnostic should interrupt a bundling run.
// Severities are ordered; comparisons like s >= SevError are meaningful.
type Severity uint8

const (
	// SevInfo is advisory output that never affects the build outcome.
	SevInfo Severity = iota
	// SevWarning marks recoverable conditions, such as an optional import
	// that failed to resolve.
	SevWarning
	// SevError marks failures that make the emitted bundle unreliable.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
