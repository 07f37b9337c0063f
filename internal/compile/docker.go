package compile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Docker defaults.
const (
	DefaultDockerImage = "texlive/texlive:latest"
	DefaultMemoryLimit = "256m"
	dockerTmpfs        = "/tmp:rw,size=64m"
	// docker run exits 125 when the daemon itself failed, before the container started
	dockerDaemonExit = 125
)

// DockerBackend runs pdflatex inside a throwaway container with no network, a read-only
// root file system, and bounded memory and CPU.
type DockerBackend struct {
	Binary      string
	Image       string
	MemoryLimit string
	Timeout     time.Duration
}

// NewDockerBackend returns a sandboxed backend with default image and limits.
func NewDockerBackend(timeout time.Duration) *DockerBackend {
	return &DockerBackend{
		Binary:      "docker",
		Image:       DefaultDockerImage,
		MemoryLimit: DefaultMemoryLimit,
		Timeout:     timeout,
	}
}

// Name implements Backend.
func (b *DockerBackend) Name() string { return "docker" }

// Compile implements Backend.
func (b *DockerBackend) Compile(ctx context.Context, job Job) (*Result, error) {
	binary, err := exec.LookPath(b.binary())
	if err != nil {
		return nil, unavailable("%s not found in PATH", b.binary())
	}

	container := "latex-" + uuid.NewString()
	out, code, err := runCommand(ctx, b.Timeout, binary, b.args(container, job), job.Dir)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			b.kill(container)
		}
		return nil, err
	}
	if code == dockerDaemonExit && !strings.Contains(out, "This is pdfTeX") {
		return nil, unavailable("docker daemon: %s", firstLine(out))
	}
	return &Result{ExitCode: code, Log: out}, nil
}

func (b *DockerBackend) binary() string {
	if b.Binary == "" {
		return "docker"
	}
	return b.Binary
}

func (b *DockerBackend) args(container string, job Job) []string {
	image := b.Image
	if image == "" {
		image = DefaultDockerImage
	}
	memory := b.MemoryLimit
	if memory == "" {
		memory = DefaultMemoryLimit
	}
	return []string{
		"run", "--rm",
		"--name", container,
		"--memory=" + memory,
		"--cpus=1",
		"--network=none",
		"--read-only",
		"--tmpfs=" + dockerTmpfs,
		"-v", job.Dir + ":/data:rw",
		"-w", "/data",
		image,
		"pdflatex",
		"-interaction=nonstopmode",
		"-halt-on-error",
		job.Name + ".tex",
	}
}

// kill stops a container left running after the CLI process was killed.
func (b *DockerBackend) kill(container string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, b.binary(), "kill", container).Run(); err != nil {
		log.Printf("[compile] failed to kill container %s: %v", container, err)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return fmt.Sprintf("%.200s", s)
}
