package geometry

import (
	"fmt"
	"strings"
)

// Vertical selects which rows of a too-tall source are kept.
type Vertical int

const (
	Top Vertical = iota
	VMiddle
	Bottom
)

// Horizontal selects which columns of a too-wide source are kept.
type Horizontal int

const (
	Left Horizontal = iota
	HMiddle
	Right
)

func (v Vertical) offset(full, kept float64) float64 {
	switch v {
	case Top:
		return 0
	case Bottom:
		return full - kept
	default:
		return (full - kept) / 2
	}
}

func (h Horizontal) offset(full, kept float64) float64 {
	switch h {
	case Left:
		return 0
	case Right:
		return full - kept
	default:
		return (full - kept) / 2
	}
}

func (v Vertical) String() string {
	switch v {
	case Top:
		return "Top"
	case Bottom:
		return "Bottom"
	default:
		return "Middle"
	}
}

func (h Horizontal) String() string {
	switch h {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Middle"
	}
}

// Anchor is one of the nine crop reference points.
type Anchor struct {
	Vertical   Vertical
	Horizontal Horizontal
}

// Named anchors.
var (
	TopLeft      = Anchor{Top, Left}
	TopMiddle    = Anchor{Top, HMiddle}
	TopRight     = Anchor{Top, Right}
	MiddleLeft   = Anchor{VMiddle, Left}
	Center       = Anchor{VMiddle, HMiddle}
	MiddleRight  = Anchor{VMiddle, Right}
	BottomLeft   = Anchor{Bottom, Left}
	BottomMiddle = Anchor{Bottom, HMiddle}
	BottomRight  = Anchor{Bottom, Right}
)

// Anchors lists all anchors in row-major order.
var Anchors = []Anchor{
	TopLeft, TopMiddle, TopRight,
	MiddleLeft, Center, MiddleRight,
	BottomLeft, BottomMiddle, BottomRight,
}

// String renders the anchor in the "Crop Bottom Middle" form used by
// settings files.
func (a Anchor) String() string {
	return "Crop " + a.Vertical.String() + " " + a.Horizontal.String()
}

// ParseAnchor accepts "Crop Bottom Middle", "bottom-middle", "bottom_middle",
// "BottomMiddle" and "center". Unknown input is an error.
func ParseAnchor(s string) (Anchor, error) {
	words := splitWords(s)
	if len(words) > 0 && words[0] == "crop" {
		words = words[1:]
	}

	switch len(words) {
	case 1:
		if words[0] == "middle" || words[0] == "center" || words[0] == "centre" {
			return Center, nil
		}
	case 2:
		v, vok := parseVertical(words[0])
		h, hok := parseHorizontal(words[1])
		if vok && hok {
			return Anchor{v, h}, nil
		}
	}
	return Anchor{}, fmt.Errorf("unknown crop position %q", s)
}

func parseVertical(w string) (Vertical, bool) {
	switch w {
	case "top":
		return Top, true
	case "middle", "center", "centre":
		return VMiddle, true
	case "bottom":
		return Bottom, true
	}
	return 0, false
}

func parseHorizontal(w string) (Horizontal, bool) {
	switch w {
	case "left":
		return Left, true
	case "middle", "center", "centre":
		return HMiddle, true
	case "right":
		return Right, true
	}
	return 0, false
}

// splitWords lowercases s and splits it on spaces, dashes, underscores and
// camel-case boundaries.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	prevLower := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			flush()
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower {
				flush()
			}
			cur.WriteRune(r)
			prevLower = false
		default:
			cur.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z'
		}
	}
	flush()
	return words
}
