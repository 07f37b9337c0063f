package compile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable means a backend is not usable on this host; the pipeline moves on.
	ErrBackendUnavailable = errors.New("compiler backend unavailable")
	// ErrTimeout means a backend exceeded its wall-clock budget.
	ErrTimeout = errors.New("compilation timed out")
	// ErrNoCompilerAvailable means every configured backend was unavailable.
	ErrNoCompilerAvailable = errors.New("no compiler available")
)

// UnsafeMarkupError lists the dangerous constructs found by the safety gate
type UnsafeMarkupError struct {
	Issues []string
}

func (e *UnsafeMarkupError) Error() string {
	return fmt.Sprintf("unsafe markup: %s", strings.Join(e.Issues, "; "))
}

// Error represents an infrastructure failure while preparing or running a compilation
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compile error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBackendUnavailable, fmt.Sprintf(format, args...))
}
