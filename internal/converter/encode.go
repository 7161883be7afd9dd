package converter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	webp "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/harliandi/go-batchcrop/internal/settings"
	"github.com/harliandi/go-batchcrop/pkg/quality"
)

var (
	// ErrEncode is returned when the codec fails
	ErrEncode = errors.New("cannot encode image")
	// ErrUnsupportedFormat is returned for an output format without a codec
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Encoded is a serialized image.
type Encoded struct {
	Data    []byte
	Format  settings.Format
	Quality int
	// Attempts is how many encodes the size limit took.
	Attempts int
	// OverLimit is set when the output is still larger than the limit,
	// either because even the lowest quality was too big or because the
	// format has no quality to lower.
	OverLimit bool
}

// encodeImage encodes an image to WebP, JPEG or PNG. PNG ignores quality.
func encodeImage(img image.Image, q int, format settings.Format, out *bytes.Buffer) error {
	switch format {
	case settings.FormatWebP:
		return webp.Encode(out, img, &webp.Options{Quality: float32(q)})
	case settings.FormatJPEG:
		return imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(q))
	case settings.FormatPNG:
		return imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Encode serializes img, lowering quality for lossy formats until the output
// fits in maxBytes. A maxBytes of zero means no limit. For PNG the limit is
// only reported, never enforced.
func Encode(img image.Image, format settings.Format, maxBytes int) (Encoded, error) {
	if !format.Valid() {
		return Encoded{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	// Pre-allocate roughly one byte per pixel, capped at 512KB.
	grow := img.Bounds().Dx() * img.Bounds().Dy()
	if grow > 512*1024 {
		grow = 512 * 1024
	}

	encode := func(q int) ([]byte, error) {
		var out bytes.Buffer
		out.Grow(grow)
		if err := encodeImage(img, q, format, &out); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}

	search := quality.Search
	if !format.Lossy() {
		search = quality.Once
	}

	res, err := search(encode, maxBytes)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return Encoded{}, err
		}
		return Encoded{}, fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}

	return Encoded{
		Data:      res.Data,
		Format:    format,
		Quality:   res.Quality,
		Attempts:  res.Attempts,
		OverLimit: !res.Fits,
	}, nil
}
