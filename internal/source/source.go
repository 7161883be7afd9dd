// Package source collects input images from files, directories and zip
// archives.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/harliandi/go-batchcrop/internal/batch"
)

// ErrNoImages is returned when the given paths contain no image files
var ErrNoImages = errors.New("no image files found")

// imageExtensions are the file extensions treated as images
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".heic": true,
	".heif": true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether name has an image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Loader reads sources, skipping anything that is not an image. Size limits
// are left to the converter so oversized inputs show up as item failures.
type Loader struct {
	Logger *slog.Logger
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Load expands paths into sources. Directories are walked in lexical order,
// .zip files contribute their image entries in archive order.
func (l *Loader) Load(paths ...string) ([]batch.Source, error) {
	var sources []batch.Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}

		var found []batch.Source
		switch {
		case info.IsDir():
			found, err = l.loadDir(p)
		case strings.EqualFold(filepath.Ext(p), ".zip"):
			found, err = l.loadZipFile(p)
		default:
			name := filepath.Base(p)
			if !IsImageFile(name) {
				l.logger().Warn("skipping input without an image extension", "path", p)
				continue
			}
			found, err = l.loadFile(p, name)
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	if len(sources) == 0 {
		return nil, ErrNoImages
	}
	return sources, nil
}

func (l *Loader) loadFile(p, name string) ([]batch.Source, error) {
	if !IsImageFile(name) {
		l.logger().Debug("skipping non-image file", "path", p)
		return nil, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if len(data) == 0 {
		l.logger().Warn("skipping empty file", "path", p)
		return nil, nil
	}
	return []batch.Source{{Name: name, Data: data}}, nil
}

func (l *Loader) loadDir(root string) ([]batch.Source, error) {
	var sources []batch.Source
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		found, err := l.loadFile(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		sources = append(sources, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return sources, nil
}

func (l *Loader) loadZipFile(p string) ([]batch.Source, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return l.LoadZip(data)
}

// LoadZip extracts the image entries of a zip archive. Directories, non-image
// entries and empty entries are skipped; an entry that fails to extract is
// logged and skipped.
func (l *Loader) LoadZip(data []byte) ([]batch.Source, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var sources []batch.Source
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsImageFile(f.Name) {
			continue
		}
		b, err := readEntry(f)
		if err != nil {
			l.logger().Warn("failed to extract entry", "entry", f.Name, "error", err)
			continue
		}
		if len(b) == 0 {
			l.logger().Warn("skipping empty entry", "entry", f.Name)
			continue
		}
		sources = append(sources, batch.Source{Name: f.Name, Data: b})
	}
	return sources, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
