package llm

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrAllCredentialsCoolingDown is returned when every credential slot is inside its cool-down window.
var ErrAllCredentialsCoolingDown = errors.New("all credentials are cooling down")

// ErrNoCredentials is returned when a pool is built without any usable key.
var ErrNoCredentials = errors.New("no credentials configured")

// ErrGenerationTimeout is returned when a single provider call exceeds Config.GenerationTimeout.
var ErrGenerationTimeout = errors.New("generation timed out")

// RateLimitError represents a request rejected because of rate limiting or quota
type RateLimitError struct {
	Message string
	Cause   error
}

func (e *RateLimitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rate limited: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// IsRateLimited reports whether err is a rate-limit or quota signal from the provider:
// an HTTP 429 from the REST transport or RESOURCE_EXHAUSTED from the gRPC one.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return status.Code(err) == codes.ResourceExhausted
}
