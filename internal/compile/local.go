package compile

import (
	"context"
	"os/exec"
	"runtime"
	"time"
)

// LocalBackend runs a pdflatex binary found on the host, without a sandbox.
type LocalBackend struct {
	Binary  string
	Timeout time.Duration
	goos    string
}

// NewLocalBackend returns a backend for the pdflatex on PATH.
func NewLocalBackend(timeout time.Duration) *LocalBackend {
	return &LocalBackend{Binary: "pdflatex", Timeout: timeout, goos: runtime.GOOS}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return "local" }

// Compile implements Backend. It is skipped on Windows.
func (b *LocalBackend) Compile(ctx context.Context, job Job) (*Result, error) {
	if b.goos == "windows" {
		return nil, unavailable("local pdflatex is not used on windows")
	}
	binary := b.Binary
	if binary == "" {
		binary = "pdflatex"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, unavailable("%s not found in PATH", binary)
	}

	out, code, err := runCommand(ctx, b.Timeout, path, []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		job.Name + ".tex",
	}, job.Dir)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Log: out}, nil
}
