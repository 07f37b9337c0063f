//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
)

// CompilationStatus is the lifecycle state of a resume record driven by the pipeline.
type CompilationStatus string

// Status values. Compiled and Error are terminal.
const (
	StatusDraft      CompilationStatus = "draft"
	StatusGenerating CompilationStatus = "generating"
	StatusGenerated  CompilationStatus = "generated"
	StatusCompiling  CompilationStatus = "compiling"
	StatusCompiled   CompilationStatus = "compiled"
	StatusError      CompilationStatus = "error"
)

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

var allowedTransitions = map[CompilationStatus][]CompilationStatus{
	StatusDraft:      {StatusGenerating},
	StatusGenerating: {StatusGenerated, StatusError},
	// generated -> compiling on a compile request; -> generating on regeneration
	StatusGenerated: {StatusCompiling, StatusGenerating},
	// compiling -> generated when no compiler was available
	StatusCompiling: {StatusCompiled, StatusError, StatusGenerated},
}

// IsTerminal reports whether no further transition is driven by the pipeline.
func (s CompilationStatus) IsTerminal() bool {
	return s == StatusCompiled || s == StatusError
}

// CanTransition reports whether moving from s to next is allowed.
func (s CompilationStatus) CanTransition(next CompilationStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns the new status.
func (s CompilationStatus) Transition(next CompilationStatus) (CompilationStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Restart returns the state a new pipeline run starts from. A record that reached a terminal
// state begins a new run as a draft; any other state is kept.
func (s CompilationStatus) Restart() CompilationStatus {
	if s.IsTerminal() || s == "" {
		return StatusDraft
	}
	return s
}
