package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/internal/settings"
)

func item(name, data string) converter.Item {
	return converter.Item{
		Name:    name,
		Encoded: converter.Encoded{Data: []byte(data), Format: settings.FormatWebP},
	}
}

// readArchive returns entry names in order and their contents
func readArchive(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		names = append(names, f.Name)
		contents[f.Name] = string(b)
	}
	return names, contents
}

func TestEntryName(t *testing.T) {
	tests := []struct {
		name   string
		format settings.Format
		want   string
	}{
		{"photo.png", settings.FormatWebP, "photo.webp"},
		{"photo.JPG", settings.FormatJPEG, "photo.jpg"},
		{"archive.tar.gz", settings.FormatPNG, "archive.tar.png"},
		{"dir/sub/photo.heic", settings.FormatWebP, "photo.webp"},
		{`C:\pics\shot.bmp`, settings.FormatJPEG, "shot.jpg"},
		{"README", settings.FormatWebP, "README.webp"},
		{".hidden", settings.FormatWebP, ".hidden.webp"},
		{"", settings.FormatPNG, "image.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryName(tt.name, tt.format))
		})
	}
}

func TestWrite(t *testing.T) {
	items := []converter.Item{
		item("b.png", "bbb"),
		item("a.jpg", "aaa"),
		item("nested/c.gif", "ccc"),
	}

	var buf bytes.Buffer
	stats, err := Write(&buf, items, settings.FormatWebP, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Entries)
	assert.Empty(t, stats.Overwritten)
	assert.Equal(t, int64(buf.Len()), stats.Bytes)

	names, contents := readArchive(t, buf.Bytes())
	assert.Equal(t, []string{"b.webp", "a.webp", "c.webp"}, names)
	assert.Equal(t, "aaa", contents["a.webp"])
	assert.Equal(t, "ccc", contents["c.webp"])
}

func TestWrite_DuplicateNamesOverwrite(t *testing.T) {
	items := []converter.Item{
		item("photo.png", "first"),
		item("other.png", "other"),
		item("photo.jpg", "second"),
	}

	var buf bytes.Buffer
	stats, err := Write(&buf, items, settings.FormatWebP, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, []string{"photo.webp"}, stats.Overwritten)

	names, contents := readArchive(t, buf.Bytes())
	assert.Equal(t, []string{"photo.webp", "other.webp"}, names)
	assert.Equal(t, "second", contents["photo.webp"])
}

func TestWrite_UniqueNames(t *testing.T) {
	items := []converter.Item{
		item("photo.png", "1"),
		item("photo.jpg", "2"),
		item("photo-2.png", "3"),
		item("a/photo.gif", "4"),
	}

	var buf bytes.Buffer
	stats, err := Write(&buf, items, settings.FormatJPEG, Options{UniqueNames: true})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Entries)
	assert.Empty(t, stats.Overwritten)
	assert.Equal(t, []Rename{
		{From: "photo.jpg", To: "photo-2.jpg"},
		{From: "photo-2.png", To: "photo-2-2.jpg"},
		{From: "a/photo.gif", To: "photo-3.jpg"},
	}, stats.Renamed)

	names, contents := readArchive(t, buf.Bytes())
	assert.Equal(t, []string{"photo.jpg", "photo-2.jpg", "photo-2-2.jpg", "photo-3.jpg"}, names)
	assert.Equal(t, "1", contents["photo.jpg"])
	assert.Equal(t, "4", contents["photo-3.jpg"])
}

func TestWrite_UniqueNamesRepeatedSource(t *testing.T) {
	items := []converter.Item{
		item("x.jpg", "1"),
		item("x.jpg", "2"),
		item("x.jpg", "3"),
	}

	var buf bytes.Buffer
	stats, err := Write(&buf, items, settings.FormatWebP, Options{UniqueNames: true})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, []Rename{
		{From: "x.jpg", To: "x-2.webp"},
		{From: "x.jpg", To: "x-3.webp"},
	}, stats.Renamed)

	names, contents := readArchive(t, buf.Bytes())
	assert.Equal(t, []string{"x.webp", "x-2.webp", "x-3.webp"}, names)
	assert.Equal(t, "3", contents["x-3.webp"])
}

func TestWrite_Deterministic(t *testing.T) {
	items := []converter.Item{item("a.png", "aaaa"), item("b.png", "bbbb")}
	opts := Options{Modified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	var a, b bytes.Buffer
	_, err := Write(&a, items, settings.FormatPNG, opts)
	require.NoError(t, err)
	_, err = Write(&b, items, settings.FormatPNG, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWrite_Errors(t *testing.T) {
	_, err := Write(io.Discard, nil, settings.FormatWebP, Options{})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = Write(io.Discard, []converter.Item{item("a.png", "x")}, settings.Format("tga"), Options{})
	assert.ErrorIs(t, err, converter.ErrUnsupportedFormat)
}
