// Package depth converts heights into depth map colours.
//
// Params is a plain value handed to whichever renderer draws the mesh; it
// carries no state between renders. The depth clip lives in Clip and is
// applied once, after rendering, by the compositor.
package depth

import (
	"math"

	"github.com/gogpu/gg"
)

// Eps is the tolerance used to classify values at the ends of the range.
const Eps = 1e-5

// flatSpan is the height span below which a model counts as flat.
const flatSpan = 1e-9

// Range is the height interval after orientation.
type Range struct {
	Min, Max float64
}

// Span returns Max-Min, or 1 with flat=true when the range is empty.
func (r Range) Span() (span float64, flat bool) {
	span = r.Max - r.Min
	if math.Abs(span) < flatSpan {
		return 1, true
	}
	return span, false
}

// Normalize returns (z-Min)/span without clamping.
func (r Range) Normalize(z float64) float64 {
	span, _ := r.Span()
	return (z - r.Min) / span
}

// Params controls how a height becomes a colour.
type Params struct {
	Range  Range
	Invert bool
	// Debug tints the range ends and out-of-range heights.
	Debug bool
}

// Sample is a mapped height. Gray is the clamped, possibly inverted value
// in [0,1]; R, G and B equal Gray unless debug tinting is on. Raw is the
// unclamped normalised height.
type Sample struct {
	Gray    float64
	R, G, B float64
	Raw     float64
}

// Map converts a height into a Sample.
func (p Params) Map(z float64) Sample {
	raw := p.Range.Normalize(z)
	norm := Clamp01(raw)
	if p.Invert {
		norm = 1 - norm
	}
	s := Sample{Gray: norm, R: norm, G: norm, B: norm, Raw: raw}
	if p.Debug {
		s.tint(p.Invert)
	}
	return s
}

func (s *Sample) tint(inverted bool) {
	nearZero := s.Gray < Eps
	nearOne := s.Gray > 1-Eps
	if inverted {
		nearZero, nearOne = nearOne, nearZero
	}
	// The top of the range is tinted red and the bottom blue, whichever
	// way the gray runs.
	if nearZero {
		s.B += 0.15
	}
	if nearOne {
		s.R += 0.15
	}
	if s.Raw > 1+Eps {
		s.R += 0.2
		s.B += 0.2
	}
	if s.Raw < -Eps {
		s.G += 0.2
		s.B += 0.2
	}
	s.R = math.Min(s.R, 1)
	s.G = math.Min(s.G, 1)
	s.B = math.Min(s.B, 1)
}

// Color returns the sample as an opaque gg colour.
func (s Sample) Color() gg.RGBA {
	return gg.RGB(s.R, s.G, s.B)
}

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	}
	return 0
}

// Byte converts a [0,1] value to 0..255 with rounding.
func Byte(v float64) uint8 {
	return uint8(math.Round(Clamp01(v) * 255))
}
