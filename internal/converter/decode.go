package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"time"

	"github.com/adrium/goheif"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode is returned for malformed or unsupported image bytes
	ErrDecode = errors.New("cannot decode image")
	// ErrDecodeTimeout is returned when decoding takes longer than allowed
	ErrDecodeTimeout = errors.New("image decode timed out")
)

// DefaultDecodeTimeout bounds how long a single source may take to decode.
const DefaultDecodeTimeout = 30 * time.Second

// Asset is a decoded source image.
type Asset struct {
	Name  string
	Image image.Image
}

// decodeSource is swapped out by tests to simulate slow decoders.
var decodeSource = decodeBytes

type decodeResult struct {
	img image.Image
	err error
}

// Decode decodes data into an Asset, giving up after timeout. A timed-out
// decode keeps running in the background and its result is dropped.
func Decode(ctx context.Context, name string, data []byte, timeout time.Duration, maxBytes int) (Asset, error) {
	if err := ValidateFile(data, maxBytes); err != nil {
		return Asset{}, err
	}
	if timeout <= 0 {
		timeout = DefaultDecodeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan decodeResult, 1)
	decode := decodeSource
	go func() {
		img, err := decode(data)
		done <- decodeResult{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Asset{}, fmt.Errorf("%w after %s", ErrDecodeTimeout, timeout)
		}
		return Asset{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return Asset{}, res.err
		}
		if err := ValidateImage(res.img); err != nil {
			return Asset{}, err
		}
		return Asset{Name: name, Image: res.img}, nil
	}
}

// decodeBytes picks the HEIF decoder by magic bytes and falls back to the
// registered image formats, applying EXIF orientation.
func decodeBytes(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: decoder panic: %v", ErrDecode, r)
		}
	}()

	if IsHEIFMagic(data) {
		img, err = goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: heif: %v", ErrDecode, err)
		}
		return img, nil
	}

	img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}
