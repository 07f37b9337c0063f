//nolint:revive // types is a standard Go package name pattern
package types

// OutcomeKind distinguishes the ways a compilation attempt can end.
type OutcomeKind string

const (
	// OutcomeSuccess means an artifact was produced and the backend exited cleanly.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeCompileError means a backend ran and reported errors.
	OutcomeCompileError OutcomeKind = "compile_error"
	// OutcomeTimeout means a backend exceeded its wall-clock budget.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeUnsafe means the pre-flight safety gate rejected the markup; no backend ran.
	OutcomeUnsafe OutcomeKind = "unsafe"
	// OutcomeNoCompiler means no backend was usable, so nothing was attempted.
	OutcomeNoCompiler OutcomeKind = "no_compiler"
)

// Severity levels for compilation diagnostics.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// CompilationError is one structured diagnostic extracted from a backend log.
type CompilationError struct {
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Category   string `json:"category,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CompilationOutcome is the result of one compilation attempt.
type CompilationOutcome struct {
	Success     bool               `json:"success"`
	Kind        OutcomeKind        `json:"kind"`
	Backend     string             `json:"backend,omitempty"`
	Artifact    string             `json:"artifact,omitempty"`
	DownloadURL string             `json:"download_url,omitempty"` // set when the store issues temporary links
	Log         string             `json:"log"`
	Errors      []CompilationError `json:"errors"`
	Warnings    []string           `json:"warnings"`
}

// ErrorMessages joins every error message, for storing on the owning record.
func (o *CompilationOutcome) ErrorMessages() []string {
	msgs := make([]string, 0, len(o.Errors))
	for _, e := range o.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}
