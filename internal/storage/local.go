package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalSink writes the archive to a file. The file is written next to its
// final path and renamed into place, so a failed run never leaves a partial
// archive behind.
type LocalSink struct {
	path   string
	logger *slog.Logger
}

// NewLocalSink creates a LocalSink for path.
func NewLocalSink(path string, logger *slog.Logger) *LocalSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSink{path: path, logger: logger}
}

// Location returns the target file path.
func (s *LocalSink) Location() string {
	return s.path
}

// Put writes r to the target file.
func (s *LocalSink) Put(ctx context.Context, r io.Reader, size int64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "Put", Location: s.path, Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".batchcrop-*.tmp")
	if err != nil {
		return &StorageError{Op: "Put", Location: s.path, Err: fmt.Errorf("failed to create file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return &StorageError{Op: "Put", Location: s.path, Err: fmt.Errorf("failed to write file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "Put", Location: s.path, Err: err}
	}
	if size >= 0 && written != size {
		return &StorageError{Op: "Put", Location: s.path, Err: fmt.Errorf("wrote %d of %d bytes", written, size)}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &StorageError{Op: "Put", Location: s.path, Err: err}
	}

	s.logger.Debug("stored archive", "path", s.path, "bytes", written)
	return nil
}
