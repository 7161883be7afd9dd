// Package converter turns one source image into one encoded output image:
// decode, crop and place on a fixed canvas, then size-constrained encode.
package converter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harliandi/go-batchcrop/internal/settings"
	"github.com/harliandi/go-batchcrop/pkg/geometry"
	"github.com/harliandi/go-batchcrop/pkg/metrics"
)

// Options tunes decoding limits.
type Options struct {
	// DecodeTimeout bounds decoding of one source. Zero means the default.
	DecodeTimeout time.Duration
	// MaxInputBytes rejects larger sources before decoding. Zero means the
	// default.
	MaxInputBytes int
}

// Item is a processed image ready for packaging.
type Item struct {
	Name string
	Encoded
}

// MimeType is the media type of the encoded data.
func (i Item) MimeType() string {
	return i.Format.MimeType()
}

// Converter applies one batch's settings to individual images. It is safe
// for concurrent use; every call works on its own drawing surface.
type Converter struct {
	settings settings.Settings
	opts     Options
	surfaces *SurfacePool
	logger   *slog.Logger
}

// New creates a Converter. The settings must already be validated.
func New(s settings.Settings, opts Options, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		settings: s,
		opts:     opts,
		surfaces: NewSurfacePool(),
		logger:   logger,
	}
}

// Settings returns the settings the converter applies.
func (c *Converter) Settings() settings.Settings {
	return c.settings
}

// Convert decodes data and renders it with the converter's settings.
func (c *Converter) Convert(ctx context.Context, name string, data []byte) (Item, error) {
	start := time.Now()
	asset, err := Decode(ctx, name, data, c.opts.DecodeTimeout, c.opts.MaxInputBytes)
	metrics.RecordStage("decode", time.Since(start).Seconds())
	if err != nil {
		return Item{}, err
	}
	return c.Render(asset)
}

// Render crops, composes and encodes a decoded image.
func (c *Converter) Render(asset Asset) (Item, error) {
	s := c.settings
	b := asset.Image.Bounds()

	g, err := geometry.Resolve(b.Dx(), b.Dy(), s.Width, s.Height, s.Anchor, s.Margin)
	if err != nil {
		return Item{}, fmt.Errorf("resolve geometry: %w", err)
	}

	surface := c.surfaces.Acquire(s.Width, s.Height)
	defer c.surfaces.Release(surface)

	start := time.Now()
	Compose(surface, asset.Image, g)
	metrics.RecordStage("compose", time.Since(start).Seconds())

	start = time.Now()
	enc, err := Encode(surface, s.Format, s.MaxBytes())
	metrics.RecordStage("encode", time.Since(start).Seconds())
	if err != nil {
		return Item{}, err
	}
	metrics.RecordEncode(string(s.Format), enc.Attempts, !enc.OverLimit)

	if enc.OverLimit {
		c.logger.Warn("output exceeds size limit",
			"name", asset.Name,
			"format", s.Format,
			"bytes", len(enc.Data),
			"max_bytes", s.MaxBytes(),
			"quality", enc.Quality,
		)
	}

	c.logger.Debug("rendered image",
		"name", asset.Name,
		"source", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"crop", fmt.Sprintf("%.1f,%.1f %.1fx%.1f", g.Source.X, g.Source.Y, g.Source.Width, g.Source.Height),
		"quality", enc.Quality,
		"attempts", enc.Attempts,
		"bytes", len(enc.Data),
	)

	return Item{Name: asset.Name, Encoded: enc}, nil
}
