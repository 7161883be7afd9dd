package geometry

import (
	"fmt"
	"strings"
)

// Edge is the canvas side that receives the empty-space margin.
type Edge int

const (
	EdgeBottom Edge = iota
	EdgeTop
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "bottom"
	}
}

// ParseEdge maps "top", "bottom", "left" or "right" (any case) to an Edge.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return EdgeTop, nil
	case "bottom":
		return EdgeBottom, nil
	case "left":
		return EdgeLeft, nil
	case "right":
		return EdgeRight, nil
	}
	return 0, fmt.Errorf("unknown space position %q", s)
}

// Margin reserves a background-colored strip along one canvas edge.
type Margin struct {
	Enabled bool
	Size    int
	Edge    Edge
}

// ContentSize returns the area left for image content on an outW x outH
// canvas.
func (m Margin) ContentSize(outW, outH int) (int, int, error) {
	if !m.Enabled {
		return outW, outH, nil
	}
	if m.Size < 0 {
		return 0, 0, fmt.Errorf("%w: negative margin %d", ErrInvalidGeometry, m.Size)
	}

	w, h := outW, outH
	switch m.Edge {
	case EdgeLeft, EdgeRight:
		w -= m.Size
	default:
		h -= m.Size
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: margin %d on %s leaves %dx%d of a %dx%d canvas",
			ErrInvalidGeometry, m.Size, m.Edge, w, h, outW, outH)
	}
	return w, h, nil
}

// Offset is where content starts on the canvas. Leading edges push the
// content; trailing edges leave it at the origin.
func (m Margin) Offset() (int, int) {
	if !m.Enabled {
		return 0, 0
	}
	switch m.Edge {
	case EdgeLeft:
		return m.Size, 0
	case EdgeTop:
		return 0, m.Size
	}
	return 0, 0
}
