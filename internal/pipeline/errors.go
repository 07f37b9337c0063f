package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested resume record does not exist.
var ErrNotFound = errors.New("resume not found")

// ErrNotGenerated is returned when compilation is requested before any markup was generated.
var ErrNotGenerated = errors.New("resume has no generated markup")

// StepError reports which pipeline step failed.
type StepError struct {
	Step  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline step %s failed: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}
