package geometry

import (
	"github.com/chewxy/math32"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/unstable-studios/threedepth/pkg/kernel"
)

// Bounds returns the axis-aligned bounding box of every vertex in m.
// ok is false when the mesh has no vertices, in which case the zero box
// is returned.
func Bounds(m *kernel.Mesh) (box sdf.Box3, ok bool) {
	if m == nil || m.VertexCount() == 0 {
		return sdf.Box3{}, false
	}
	lo := [3]float32{math32.Inf(1), math32.Inf(1), math32.Inf(1)}
	hi := [3]float32{math32.Inf(-1), math32.Inf(-1), math32.Inf(-1)}
	v := m.Vertices
	for i := 0; i+2 < len(v); i += 3 {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], v[i+k])
			hi[k] = math32.Max(hi[k], v[i+k])
		}
	}
	return sdf.Box3{
		Min: v3.Vec{X: float64(lo[0]), Y: float64(lo[1]), Z: float64(lo[2])},
		Max: v3.Vec{X: float64(hi[0]), Y: float64(hi[1]), Z: float64(hi[2])},
	}, true
}

// Extent returns the box size along each axis.
func Extent(box sdf.Box3) v3.Vec {
	return v3.Vec{
		X: box.Max.X - box.Min.X,
		Y: box.Max.Y - box.Min.Y,
		Z: box.Max.Z - box.Min.Z,
	}
}
