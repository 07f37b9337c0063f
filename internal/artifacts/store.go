// Package artifacts persists compiled documents outside the scratch directory they were built in.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store saves a compiled artifact under a name and returns a locator for it.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Linker is implemented by stores that can issue temporary download links.
type Linker interface {
	PresignedURL(ctx context.Context, name string, lifetime time.Duration) (string, error)
}

var _ Linker = (*S3Store)(nil)

// LocalStore writes artifacts into a directory on the local file system.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a store rooted at dir. The directory is created on first save.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save copies r into dir/name and returns the file path.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to create artifact directory: %s", s.dir), Cause: err}
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to create artifact: %s", path), Cause: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", &Error{Message: fmt.Sprintf("failed to write artifact: %s", path), Cause: err}
	}
	if err := f.Close(); err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to close artifact: %s", path), Cause: err}
	}
	return path, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return &Error{Message: fmt.Sprintf("invalid artifact name: %q", name)}
	}
	return nil
}
