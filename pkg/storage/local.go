package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/talky/callmedia"
)

// LocalSink implements Sink on top of the local filesystem.
// All names are resolved relative to the configured root directory.
type LocalSink struct {
	root string
}

// NewLocal creates a LocalSink rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocal(dir string) (*LocalSink, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalSink{root: abs}, nil
}

// resolve turns a name into an absolute filesystem path below the root.
func (l *LocalSink) resolve(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(cleanName(name)))
}

// Save writes the blob to a temporary file next to the target and renames
// it into place, so a reader never sees a partial recording. The returned
// location is the file path.
func (l *LocalSink) Save(_ context.Context, name string, blob *callmedia.Blob) (string, error) {
	full := l.resolve(nameFor(name, blob))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(full), ".recording-*")
	if err != nil {
		return "", err
	}
	if _, err := blob.WriteTo(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("storage: write %s: %w", full, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Rename(f.Name(), full); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return full, nil
}

// Open opens the named recording for reading.
func (l *LocalSink) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.resolve(name))
}

// Compile-time interface check.
var _ Sink = (*LocalSink)(nil)
