// Package geometry computes where a source image is cropped and where the
// cropped region lands on a fixed-size output canvas.
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidGeometry is returned when the requested canvas leaves no room for
// image content or the source has no pixels.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Rect is a rectangle with fractional origin and size, in source pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Bounds returns the smallest integer rectangle containing r.
func (r Rect) Bounds() image.Rectangle {
	x0 := int(r.X)
	y0 := int(r.Y)
	x1 := int(r.X + r.Width)
	if float64(x1) < r.X+r.Width {
		x1++
	}
	y1 := int(r.Y + r.Height)
	if float64(y1) < r.Y+r.Height {
		y1++
	}
	return image.Rect(x0, y0, x1, y1)
}

// Geometry is the resolved placement for one image.
type Geometry struct {
	// Source is the region of the source image that is kept.
	Source Rect
	// Dest is the region of the canvas the source region is scaled into.
	Dest image.Rectangle
	// Canvas is the full output size.
	Canvas image.Rectangle
}

// Resolve computes the crop and placement of a srcW x srcH image on an
// outW x outH canvas. The kept source region always has the aspect ratio of
// the content area, so cropping (never letterboxing) reconciles a mismatch.
func Resolve(srcW, srcH, outW, outH int, anchor Anchor, margin Margin) (Geometry, error) {
	if srcW <= 0 || srcH <= 0 {
		return Geometry{}, fmt.Errorf("%w: source %dx%d", ErrInvalidGeometry, srcW, srcH)
	}
	if outW <= 0 || outH <= 0 {
		return Geometry{}, fmt.Errorf("%w: output %dx%d", ErrInvalidGeometry, outW, outH)
	}

	targetW, targetH, err := margin.ContentSize(outW, outH)
	if err != nil {
		return Geometry{}, err
	}

	sw, sh := float64(srcW), float64(srcH)
	sourceAspect := sw / sh
	targetAspect := float64(targetW) / float64(targetH)

	src := Rect{Width: sw, Height: sh}
	switch {
	case sourceAspect > targetAspect:
		src.Width = sh * targetAspect
		src.X = anchor.Horizontal.offset(sw, src.Width)
	case sourceAspect < targetAspect:
		src.Height = sw / targetAspect
		src.Y = anchor.Vertical.offset(sh, src.Height)
	}

	dx, dy := margin.Offset()
	return Geometry{
		Source: src,
		Dest:   image.Rect(dx, dy, dx+targetW, dy+targetH),
		Canvas: image.Rect(0, 0, outW, outH),
	}, nil
}
