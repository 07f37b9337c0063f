// Package compile turns normalized markup into a PDF through an ordered chain of compiler backends.
package compile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/latex-resume-agent/internal/artifacts"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

var outputIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidOutputID reports whether id can name a compilation's files. The empty string is
// accepted and replaced with a generated ID by Compile.
func ValidOutputID(id string) bool {
	return id == "" || outputIDPattern.MatchString(id)
}

// DefaultLinkLifetime is how long a download link on a compiled artifact stays valid.
const DefaultLinkLifetime = 24 * time.Hour

// Pipeline runs the safety gate, then tries each backend in order until one actually runs.
type Pipeline struct {
	backends     []Backend
	store        artifacts.Store
	linkLifetime time.Duration
}

// NewPipeline returns a pipeline that saves artifacts into store and tries backends in order.
// Stores implementing artifacts.Linker also get a download link on every success.
func NewPipeline(store artifacts.Store, backends ...Backend) *Pipeline {
	return &Pipeline{backends: backends, store: store, linkLifetime: DefaultLinkLifetime}
}

// BackendConfig configures the default backend chain.
type BackendConfig struct {
	Timeout        time.Duration
	DockerImage    string
	MemoryLimit    string
	RemoteURL      string
	RemoteInterval time.Duration
	// DisableRemote drops the remote service from the chain.
	DisableRemote bool
}

// DefaultBackends returns sandboxed, local, then remote backends.
func DefaultBackends(cfg BackendConfig) []Backend {
	docker := NewDockerBackend(cfg.Timeout)
	if cfg.DockerImage != "" {
		docker.Image = cfg.DockerImage
	}
	if cfg.MemoryLimit != "" {
		docker.MemoryLimit = cfg.MemoryLimit
	}
	backends := []Backend{docker, NewLocalBackend(cfg.Timeout)}
	if !cfg.DisableRemote {
		backends = append(backends, NewRemoteBackend(cfg.RemoteURL, cfg.Timeout, cfg.RemoteInterval))
	}
	return backends
}

// Backends returns the configured chain.
func (p *Pipeline) Backends() []Backend {
	return p.backends
}

// Compile produces a CompilationOutcome for markup. Unsafe markup, timeouts, compile errors and
// a missing compiler are all reported through the outcome; the error return is reserved for
// infrastructure failures such as an unwritable scratch directory.
func (p *Pipeline) Compile(ctx context.Context, markup, outputID string) (*types.CompilationOutcome, error) {
	if outputID == "" {
		outputID = "resume_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	if !outputIDPattern.MatchString(outputID) {
		return nil, &Error{Message: fmt.Sprintf("invalid output id: %q", outputID)}
	}

	if err := CheckSafety(markup); err != nil {
		var unsafe *UnsafeMarkupError
		if errors.As(err, &unsafe) {
			log.Printf("[compile] rejected %s: %s", outputID, strings.Join(unsafe.Issues, "; "))
			return unsafeOutcome(unsafe.Issues), nil
		}
		return nil, err
	}

	dir, err := os.MkdirTemp("", "latex-compile-*")
	if err != nil {
		return nil, &Error{Message: "failed to create temporary working directory", Cause: err}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[compile] failed to remove %s: %v", dir, err)
		}
	}()

	job := Job{Dir: dir, Name: outputID}
	if err := os.WriteFile(job.TexPath(), []byte(markup), 0644); err != nil {
		return nil, &Error{Message: "failed to write LaTeX file to working directory", Cause: err}
	}

	for _, backend := range p.backends {
		result, err := backend.Compile(ctx, job)
		switch {
		case errors.Is(err, ErrBackendUnavailable):
			log.Printf("[compile] %s unavailable, trying next backend: %v", backend.Name(), err)
			continue
		case errors.Is(err, ErrTimeout):
			log.Printf("[compile] %s timed out on %s", backend.Name(), outputID)
			return timeoutOutcome(backend.Name()), nil
		case err != nil:
			return nil, &Error{Message: fmt.Sprintf("%s backend failed", backend.Name()), Cause: err}
		}
		return p.finish(ctx, backend.Name(), job, result)
	}

	log.Printf("[compile] no backend available for %s", outputID)
	return noCompilerOutcome(), nil
}

// finish builds the outcome of a backend run and persists the artifact on success.
func (p *Pipeline) finish(ctx context.Context, backend string, job Job, result *Result) (*types.CompilationOutcome, error) {
	errs, warnings := ParseLog(result.Log)
	outcome := &types.CompilationOutcome{
		Backend:  backend,
		Log:      result.Log,
		Errors:   errs,
		Warnings: warnings,
	}

	_, statErr := os.Stat(job.PDFPath())
	if statErr == nil && result.ExitCode == 0 {
		locator, err := p.save(ctx, job)
		if err != nil {
			return nil, err
		}
		outcome.Success = true
		outcome.Kind = types.OutcomeSuccess
		outcome.Artifact = locator
		outcome.DownloadURL = p.link(ctx, job.Name+".pdf")
		log.Printf("[compile] %s compiled %s with %d warning(s)", backend, job.Name, len(warnings))
		return outcome, nil
	}

	outcome.Kind = types.OutcomeCompileError
	if len(outcome.Errors) == 0 {
		outcome.Errors = append(outcome.Errors, failureError(result, statErr))
	}
	log.Printf("[compile] %s failed on %s: exit %d, %d error(s)", backend, job.Name, result.ExitCode, len(outcome.Errors))
	return outcome, nil
}

func (p *Pipeline) save(ctx context.Context, job Job) (string, error) {
	if p.store == nil {
		return "", &Error{Message: "no artifact store configured"}
	}
	f, err := os.Open(job.PDFPath())
	if err != nil {
		return "", &Error{Message: "failed to open artifact", Cause: err}
	}
	defer f.Close()
	locator, err := p.store.Save(ctx, job.Name+".pdf", f)
	if err != nil {
		return "", &Error{Message: "failed to persist artifact", Cause: err}
	}
	return locator, nil
}

// link returns a temporary download URL for a saved artifact, or "" when the store cannot
// issue one. Failures are logged and never fail the compilation.
func (p *Pipeline) link(ctx context.Context, name string) string {
	linker, ok := p.store.(artifacts.Linker)
	if !ok || p.linkLifetime <= 0 {
		return ""
	}
	url, err := linker.PresignedURL(ctx, name, p.linkLifetime)
	if err != nil {
		log.Printf("[compile] no download link for %s: %v", name, err)
		return ""
	}
	return url
}

func failureError(result *Result, statErr error) types.CompilationError {
	msg := result.Failure
	switch {
	case msg != "":
	case statErr != nil:
		msg = "PDF was not generated"
	default:
		msg = fmt.Sprintf("compiler exited with status %d", result.ExitCode)
	}
	return types.CompilationError{
		Message:  msg,
		Severity: types.SeverityError,
		Category: CategoryBackendFailure,
	}
}

func unsafeOutcome(issues []string) *types.CompilationOutcome {
	errs := make([]types.CompilationError, 0, len(issues))
	for _, issue := range issues {
		errs = append(errs, types.CompilationError{
			Message:    issue,
			Severity:   types.SeverityError,
			Category:   CategorySafety,
			Suggestion: Suggestion(CategorySafety),
		})
	}
	return &types.CompilationOutcome{
		Kind:     types.OutcomeUnsafe,
		Log:      "Compilation refused: unsafe markup",
		Errors:   errs,
		Warnings: []string{},
	}
}

func timeoutOutcome(backend string) *types.CompilationOutcome {
	return &types.CompilationOutcome{
		Kind:    types.OutcomeTimeout,
		Backend: backend,
		Log:     "Compilation timed out",
		Errors: []types.CompilationError{{
			Message:    "Compilation exceeded time limit",
			Severity:   types.SeverityError,
			Category:   CategoryTimeout,
			Suggestion: Suggestion(CategoryTimeout),
		}},
		Warnings: []string{},
	}
}

func noCompilerOutcome() *types.CompilationOutcome {
	return &types.CompilationOutcome{
		Kind: types.OutcomeNoCompiler,
		Log:  ErrNoCompilerAvailable.Error(),
		Errors: []types.CompilationError{{
			Message:    "No compiler available",
			Severity:   types.SeverityError,
			Category:   CategoryNoCompiler,
			Suggestion: Suggestion(CategoryNoCompiler),
		}},
		Warnings: []string{},
	}
}
