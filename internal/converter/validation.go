package converter

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrFileTooLarge is returned when the input exceeds the size limit
	ErrFileTooLarge = errors.New("file size exceeds limit")
	// ErrInvalidImageDimensions is returned when image dimensions are invalid
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrImageTooLarge is returned when image dimensions exceed limits
	ErrImageTooLarge = errors.New("image dimensions exceed maximum allowed")
)

// Validation limits
const (
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB max input size
	MaxImageWidth      = 20000            // 20K pixels max width
	MaxImageHeight     = 20000            // 20K pixels max height
	MaxImagePixels     = 250_000_000      // 250 megapixels max total pixels
	minHeaderLen       = 12
)

// ValidateFile checks the input size before decoding
func ValidateFile(data []byte, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}
	if len(data) > maxBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, len(data), maxBytes)
	}
	if len(data) < minHeaderLen {
		return fmt.Errorf("%w: %d bytes is too short for an image", ErrDecode, len(data))
	}
	return nil
}

// ValidateImage checks decoded image dimensions are within acceptable limits
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrDecode
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImageDimensions, width, height)
	}

	if width > MaxImageWidth || height > MaxImageHeight {
		return fmt.Errorf("%w: %dx%d (max: %dx%d)", ErrImageTooLarge, width, height, MaxImageWidth, MaxImageHeight)
	}

	// Check total pixel count (prevent decompression bomb attacks)
	totalPixels := int64(width) * int64(height)
	if totalPixels > MaxImagePixels {
		return fmt.Errorf("%w: %d pixels (max: %d)", ErrImageTooLarge, totalPixels, MaxImagePixels)
	}

	return nil
}

// IsHEIFMagic reports whether data starts with an ISOBMFF "ftyp" box whose
// major brand is one of the HEIF brands.
func IsHEIFMagic(data []byte) bool {
	if len(data) < minHeaderLen {
		return false
	}

	if string(data[4:8]) != "ftyp" {
		return false
	}

	brand := strings.ToLower(string(data[8:12]))
	switch brand {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}
