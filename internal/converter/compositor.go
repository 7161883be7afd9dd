package converter

import (
	"image"

	"github.com/harliandi/go-batchcrop/pkg/geometry"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Compose clears dst to opaque white and draws the source region of src
// described by g into g.Dest. Transparent source pixels end up blended
// against white; the area outside g.Dest stays white.
func Compose(dst *image.RGBA, src image.Image, g geometry.Geometry) {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	sb := src.Bounds()
	sr := g.Source.Bounds().Add(sb.Min).Intersect(sb)
	if sr.Empty() || g.Dest.Empty() {
		return
	}

	// Map the fractional source rectangle exactly onto the destination.
	sx := float64(g.Dest.Dx()) / g.Source.Width
	sy := float64(g.Dest.Dy()) / g.Source.Height
	ox := float64(sb.Min.X) + g.Source.X
	oy := float64(sb.Min.Y) + g.Source.Y
	s2d := f64.Aff3{
		sx, 0, float64(g.Dest.Min.X) - ox*sx,
		0, sy, float64(g.Dest.Min.Y) - oy*sy,
	}

	content, ok := dst.SubImage(g.Dest.Intersect(dst.Bounds())).(*image.RGBA)
	if !ok {
		return
	}
	draw.CatmullRom.Transform(content, s2d, src, sr, draw.Over, nil)
}
