package artifacts

import "fmt"

// Error represents a failure to persist or locate an artifact
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("artifact error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
