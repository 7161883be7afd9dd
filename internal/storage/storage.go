// Package storage delivers finished archives to a local path or an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/harliandi/go-batchcrop/internal/archive"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrInvalidOutput is returned for an output location that cannot be parsed.
	ErrInvalidOutput = errors.New("invalid output location")

	// ErrAccessDenied is returned when the storage provider rejects the write.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound is returned when the target bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)

// StorageError wraps a failed write with the location involved.
type StorageError struct {
	Op       string
	Location string
	Err      error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Location, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Sink
// =============================================================================

// Sink receives one finished archive.
type Sink interface {
	// Put stores the archive read from r. size is the exact byte count.
	Put(ctx context.Context, r io.Reader, size int64) error
	// Location describes where the archive ends up, for logs and output.
	Location() string
}

// Output is a parsed --output value.
type Output struct {
	// Scheme is "file" or "s3".
	Scheme string
	Bucket string
	// Path is the local file path or the object key.
	Path string
}

// ParseOutput parses a local path or an s3://bucket/key URL. An empty value
// or a value ending in "/" gets archive.DefaultName appended.
func ParseOutput(s string) (Output, error) {
	if !strings.HasPrefix(s, "s3://") {
		if s == "" || strings.HasSuffix(s, "/") {
			s += archive.DefaultName
		}
		return Output{Scheme: "file", Path: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if u.Host == "" {
		return Output{}, fmt.Errorf("%w: missing bucket in %q", ErrInvalidOutput, s)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += archive.DefaultName
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return Output{}, fmt.Errorf("%w: key %q", ErrInvalidOutput, key)
		}
	}
	return Output{Scheme: "s3", Bucket: u.Host, Path: key}, nil
}

// String formats the output back to its URL form.
func (o Output) String() string {
	if o.Scheme == "s3" {
		return "s3://" + o.Bucket + "/" + o.Path
	}
	return o.Path
}

// NewSink returns the sink for a parsed output.
func NewSink(out Output, cfg S3Config, logger *slog.Logger) Sink {
	if out.Scheme == "s3" {
		return NewS3Sink(cfg, out.Bucket, out.Path, logger)
	}
	return NewLocalSink(out.Path, logger)
}
