// Package settings holds the per-batch processing settings and their
// validation.
package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/harliandi/go-batchcrop/pkg/geometry"
	"github.com/harliandi/go-batchcrop/pkg/quality"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for settings that no image could be processed
// with. It is fatal to the whole batch.
var ErrInvalid = errors.New("invalid settings")

// Settings is the immutable configuration shared by every image of a batch.
type Settings struct {
	Width  int
	Height int
	Anchor geometry.Anchor
	Margin geometry.Margin
	// MaxFileSizeKB caps the encoded size of each image. Zero means no cap.
	MaxFileSizeKB int
	Format        Format
}

// Default returns the settings a fresh session starts with.
func Default() Settings {
	return Settings{
		Width:  900,
		Height: 900,
		Anchor: geometry.BottomMiddle,
		Margin: geometry.Margin{
			Enabled: false,
			Size:    200,
			Edge:    geometry.EdgeBottom,
		},
		MaxFileSizeKB: 0,
		Format:        FormatWebP,
	}
}

// Validate checks that the settings describe a usable canvas.
func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: output size %dx%d must be positive", ErrInvalid, s.Width, s.Height)
	}
	if s.Margin.Size < 0 {
		return fmt.Errorf("%w: space size %d must not be negative", ErrInvalid, s.Margin.Size)
	}
	if s.MaxFileSizeKB < 0 {
		return fmt.Errorf("%w: max file size %d must not be negative", ErrInvalid, s.MaxFileSizeKB)
	}
	if !s.Format.Valid() {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalid, s.Format)
	}
	if _, _, err := s.Margin.ContentSize(s.Width, s.Height); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// MaxBytes is the size cap in bytes, or zero when uncapped.
func (s Settings) MaxBytes() int {
	return quality.LimitBytes(s.MaxFileSizeKB)
}

// File is the on-disk form of Settings. Absent keys keep their current value.
type File struct {
	Width         *int    `yaml:"width"`
	Height        *int    `yaml:"height"`
	CropPosition  *string `yaml:"cropPosition"`
	AddSpace      *bool   `yaml:"addSpace"`
	SpaceSize     *int    `yaml:"spaceSize"`
	SpacePosition *string `yaml:"spacePosition"`
	MaxFileSize   *int    `yaml:"maxFileSize"`
	Format        *string `yaml:"format"`
}

// Apply overlays the values present in f onto s.
func (s *Settings) Apply(f File) error {
	if f.Width != nil {
		s.Width = *f.Width
	}
	if f.Height != nil {
		s.Height = *f.Height
	}
	if f.CropPosition != nil {
		a, err := geometry.ParseAnchor(*f.CropPosition)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		s.Anchor = a
	}
	if f.AddSpace != nil {
		s.Margin.Enabled = *f.AddSpace
	}
	if f.SpaceSize != nil {
		s.Margin.Size = *f.SpaceSize
	}
	if f.SpacePosition != nil {
		e, err := geometry.ParseEdge(*f.SpacePosition)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		s.Margin.Edge = e
	}
	if f.MaxFileSize != nil {
		s.MaxFileSizeKB = *f.MaxFileSize
	}
	if f.Format != nil {
		format, err := ParseFormat(*f.Format)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		s.Format = format
	}
	return nil
}

// Parse reads YAML settings on top of the defaults.
func Parse(data []byte) (Settings, error) {
	s := Default()
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("%w: parse settings: %w", ErrInvalid, err)
	}
	if err := s.Apply(f); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads a YAML settings file on top of the defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data)
}

// ToFile converts s back to its on-disk form.
func (s Settings) ToFile() File {
	anchor := s.Anchor.String()
	edge := s.Margin.Edge.String()
	format := string(s.Format)
	f := File{
		Width:         &s.Width,
		Height:        &s.Height,
		CropPosition:  &anchor,
		AddSpace:      &s.Margin.Enabled,
		SpaceSize:     &s.Margin.Size,
		SpacePosition: &edge,
		Format:        &format,
	}
	if s.MaxFileSizeKB > 0 {
		f.MaxFileSize = &s.MaxFileSizeKB
	}
	return f
}
