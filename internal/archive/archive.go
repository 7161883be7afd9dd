// Package archive packages processed images into a single flat zip.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/internal/settings"
)

// DefaultName is the archive file name used when none is given.
const DefaultName = "processed_images.zip"

// ErrNoItems is returned when there is nothing to package
var ErrNoItems = errors.New("no items to package")

// Options controls entry naming and metadata.
type Options struct {
	// UniqueNames appends -2, -3, ... to entries whose name is already
	// taken instead of overwriting the earlier entry.
	UniqueNames bool
	// Modified is stamped on every entry. Zero means the current time.
	Modified time.Time
	// Level is the deflate level. Zero means flate.DefaultCompression.
	Level int
}

// Rename records a duplicate item written under a unique entry name.
type Rename struct {
	From string
	To   string
}

// Stats describes a written archive.
type Stats struct {
	Entries int
	// Overwritten lists entry names that a later item replaced.
	Overwritten []string
	// Renamed lists later duplicates in input order.
	Renamed []Rename
	Bytes   int64
}

// EntryName derives the archive entry name for an item: directories are
// dropped, the last extension is replaced with the format's extension.
// "photos/a.b.png" becomes "a.b.webp" and "README" becomes "README.webp".
func EntryName(name string, format settings.Format) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "image"
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + "." + format.Extension()
}

type entry struct {
	name string
	data []byte
}

// plan resolves entry names in input order, applying the collision policy.
func plan(items []converter.Item, format settings.Format, opts Options) ([]entry, Stats) {
	stats := Stats{}
	entries := make([]entry, 0, len(items))
	pos := make(map[string]int, len(items))

	for _, item := range items {
		name := EntryName(item.Name, format)

		if i, ok := pos[name]; ok {
			if !opts.UniqueNames {
				entries[i].data = item.Data
				stats.Overwritten = append(stats.Overwritten, name)
				continue
			}
			unique := uniqueName(name, pos)
			stats.Renamed = append(stats.Renamed, Rename{From: item.Name, To: unique})
			name = unique
		}

		pos[name] = len(entries)
		entries = append(entries, entry{name: name, data: item.Data})
	}

	stats.Entries = len(entries)
	return entries, stats
}

func uniqueName(name string, taken map[string]int) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := stem + "-" + strconv.Itoa(n) + ext
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// countingWriter tracks how many bytes reach the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Write packages items into a zip written to w. Entry order follows item
// order. By default a later item whose entry name is already taken replaces
// the earlier item's data; see Options.UniqueNames.
func Write(w io.Writer, items []converter.Item, format settings.Format, opts Options) (Stats, error) {
	if len(items) == 0 {
		return Stats{}, ErrNoItems
	}
	if !format.Valid() {
		return Stats{}, fmt.Errorf("%w: %q", converter.ErrUnsupportedFormat, format)
	}

	modified := opts.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	level := opts.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	entries, stats := plan(items, format, opts)

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return stats, fmt.Errorf("create entry %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return stats, fmt.Errorf("write entry %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("close archive: %w", err)
	}

	stats.Bytes = cw.n
	return stats, nil
}
