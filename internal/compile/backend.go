package compile

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultTimeout is the wall-clock budget of one backend attempt.
const DefaultTimeout = 30 * time.Second

// Job is one document laid out in a scratch directory: Dir/Name.tex.
type Job struct {
	Dir  string
	Name string
}

// TexPath returns the path of the source file.
func (j Job) TexPath() string {
	return filepath.Join(j.Dir, j.Name+".tex")
}

// PDFPath returns where the artifact is expected to appear.
func (j Job) PDFPath() string {
	return filepath.Join(j.Dir, j.Name+".pdf")
}

// Result is what a backend reports after it actually ran.
type Result struct {
	ExitCode int
	Log      string
	// Failure describes a failed run when the log itself carries no parseable error.
	Failure string
}

// Backend compiles a Job.
//
// Compile returns an error wrapping ErrBackendUnavailable when the backend cannot run on this
// host, ErrTimeout when it ran out of time, and a Result once the compiler actually ran.
type Backend interface {
	Name() string
	Compile(ctx context.Context, job Job) (*Result, error)
}

// runCommand runs cmd under timeout and returns combined output and the exit code.
// A missing executable is reported as ErrBackendUnavailable.
func runCommand(ctx context.Context, timeout time.Duration, name string, args []string, dir string) (string, int, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out.String(), -1, ErrTimeout
	}
	if ctx.Err() != nil {
		return out.String(), -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), exitErr.ExitCode(), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", -1, unavailable("%s not found", name)
		}
		return out.String(), -1, &Error{Message: "failed to start " + name, Cause: err}
	}
	return out.String(), 0, nil
}
