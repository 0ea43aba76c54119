package geometry

import (
	"math"

	"github.com/unstable-studios/threedepth/pkg/kernel"
)

// DefaultNormalizeSize is the largest dimension Normalize scales to when
// no explicit size is configured.
const DefaultNormalizeSize = 20.0

// Normalize returns a copy of m scaled uniformly so its largest dimension
// equals size, centred on the origin in X and Y, and resting on z=0.
// A mesh with zero extent in every axis is only translated.
func Normalize(m *kernel.Mesh, size float64) *kernel.Mesh {
	out := m.Clone()
	box, ok := Bounds(out)
	if !ok {
		return out
	}
	ext := Extent(box)
	largest := math.Max(ext.X, math.Max(ext.Y, ext.Z))
	scale := 1.0
	if largest > 0 && size > 0 {
		scale = size / largest
	}

	cx := (box.Min.X + box.Max.X) / 2
	cy := (box.Min.Y + box.Max.Y) / 2
	v := out.Vertices
	for i := 0; i+2 < len(v); i += 3 {
		v[i] = float32((float64(v[i]) - cx) * scale)
		v[i+1] = float32((float64(v[i+1]) - cy) * scale)
		v[i+2] = float32((float64(v[i+2]) - box.Min.Z) * scale)
	}
	return out
}
