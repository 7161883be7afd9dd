package settings

import (
	"fmt"
	"strings"
)

// Format is the output image format of a batch.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatWebP, FormatJPEG, FormatPNG}

// ParseFormat maps a format name (webp, jpg, jpeg, png) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webp":
		return FormatWebP, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// Extension is the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// MimeType returns the media type of encoded output.
func (f Format) MimeType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Lossy reports whether the format takes a quality parameter.
func (f Format) Lossy() bool {
	return f == FormatWebP || f == FormatJPEG
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, s := range Formats {
		if f == s {
			return true
		}
	}
	return false
}
