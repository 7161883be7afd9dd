package converter

import (
	"image"
	"sync"

	"github.com/harliandi/go-batchcrop/pkg/metrics"
)

// SurfacePool manages reusable drawing surfaces to avoid a full-canvas
// allocation per image. A surface is owned by exactly one item between
// Acquire and Release.
type SurfacePool struct {
	mu    sync.Mutex
	sizes map[image.Point]*sync.Pool
}

// NewSurfacePool creates an empty pool
func NewSurfacePool() *SurfacePool {
	return &SurfacePool{sizes: make(map[image.Point]*sync.Pool)}
}

func (p *SurfacePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sp, ok := p.sizes[size]
	if !ok {
		sp = &sync.Pool{}
		p.sizes[size] = sp
	}
	return sp
}

// Acquire returns a width x height surface. Its contents are undefined; the
// compositor clears it before drawing.
func (p *SurfacePool) Acquire(width, height int) *image.RGBA {
	size := image.Pt(width, height)
	if v := p.pool(size).Get(); v != nil {
		metrics.RecordPoolHit()
		return v.(*image.RGBA)
	}
	metrics.RecordPoolMiss()
	return image.NewRGBA(image.Rectangle{Max: size})
}

// Release returns a surface to the pool. The caller must not touch it
// afterwards.
func (p *SurfacePool) Release(s *image.RGBA) {
	if s == nil {
		return
	}
	// Sub-images share the parent's pixels; only pool whole surfaces.
	if s.Rect.Min != (image.Point{}) || len(s.Pix) != 4*s.Rect.Dx()*s.Rect.Dy() {
		return
	}
	p.pool(s.Rect.Size()).Put(s)
}
