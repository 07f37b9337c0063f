package similarity

import (
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch means the embedder returned a different number of vectors than texts.
	ErrCountMismatch = errors.New("embedding count mismatch")
	// ErrDimensionMismatch means two vectors cannot be compared.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CacheError represents a failure talking to the embedding cache
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("embedding cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("embedding cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}
