// Package file writes output documents to the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
)

// Sink writes each document kind to its own file under a directory, replacing
// the previous file wholesale.
type Sink struct {
	dir    string
	names  map[string]string
	logger *slog.Logger
}

// NewSink creates a sink writing kind → names[kind] under dir.
func NewSink(dir string, names map[string]string, logger *slog.Logger) *Sink {
	return &Sink{dir: dir, names: names, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Sink) Name() string { return "file" }

// Save writes the event value to the file configured for its kind.
func (s *Sink) Save(_ context.Context, ev domain.OutputEvent) error {
	name, ok := s.names[ev.Kind]
	if !ok {
		return fmt.Errorf("file sink: no file configured for kind %q", ev.Kind)
	}
	path := filepath.Join(s.dir, name)
	if err := WriteAtomic(path, ev.Value); err != nil {
		return err
	}
	s.logger.Info("document written", "kind", ev.Kind, "path", path, "bytes", len(ev.Value))
	return nil
}

// ErrNoDocument is returned by Latest when no document of that kind exists yet.
var ErrNoDocument = errors.New("no document written yet")

// Latest returns the current file contents for kind.
func (s *Sink) Latest(kind string) ([]byte, error) {
	name, ok := s.names[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrNoDocument, kind)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	return data, err
}

// WriteAtomic writes data to a temp file beside path and renames it over path,
// so readers never observe a partial document.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
