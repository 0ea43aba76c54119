// Package composite post-processes a rendered depth pass: it applies the
// depth clip remap and blends the result over the chosen background.
// The raw pass is never modified, so it can be composited again with
// other settings without re-rendering.
package composite

import (
	"image"

	"github.com/gogpu/gg"

	"github.com/unstable-studios/threedepth/pkg/depth"
)

// Composite returns a new image: src remapped through clip, then blended
// over bg. With a transparent background the alpha of src is kept;
// otherwise the output is opaque.
//
// A clip other than the full range reads the gray value from R and writes
// it to all three channels, so any debug tint is dropped. The full range
// leaves the colours untouched.
func Composite(src *image.NRGBA, clip depth.Clip, bg Background) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	remap := !clip.IsIdentity()

	var lut [256]uint8
	if remap {
		for i := range lut {
			lut[i] = clip.ApplyByte(uint8(i))
		}
	}

	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+w]
		d := out.Pix[y*out.Stride : y*out.Stride+w]
		for i := 0; i < w; i += 4 {
			r, g, bl, a := s[i], s[i+1], s[i+2], s[i+3]
			if remap {
				r = lut[r]
				g, bl = r, r
			}
			if bg.Transparent {
				d[i], d[i+1], d[i+2], d[i+3] = r, g, bl, a
				continue
			}
			d[i], d[i+1], d[i+2] = blend(r, g, bl, a, bg.Color)
			d[i+3] = 255
		}
	}
	return out
}

// blend computes fg*a + bg*(1-a) per channel.
func blend(r, g, b, a uint8, bg gg.RGBA) (uint8, uint8, uint8) {
	switch a {
	case 255:
		return r, g, b
	case 0:
		return depth.Byte(bg.R), depth.Byte(bg.G), depth.Byte(bg.B)
	}
	fg := gg.RGBA{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: 1}
	c := bg.Lerp(fg, float64(a)/255)
	return depth.Byte(c.R), depth.Byte(c.G), depth.Byte(c.B)
}
