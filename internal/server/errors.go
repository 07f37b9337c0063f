package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/pipeline"
	"github.com/jonathan/latex-resume-agent/internal/synthesis"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// errRecordsDisabled is returned by /resumes routes when no store is configured.
var errRecordsDisabled = errors.New("resume records are not configured on this server")

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		input      *synthesis.InputError
		generation *synthesis.GenerationError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &input):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, db.ErrStatusConflict),
		errors.Is(err, pipeline.ErrNotGenerated):
		return http.StatusConflict
	case errors.Is(err, llm.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &generation):
		return http.StatusBadGateway
	case errors.Is(err, errRecordsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
