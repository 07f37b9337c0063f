package synthesis

import "fmt"

// GenerationError wraps a failure of the generative text service. It is always fatal for the call.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// InputError represents a template or facts bundle that cannot be sent for generation
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid synthesis input: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid synthesis input: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}
