package kernel

// FromTriangles builds an unindexed mesh from explicit triangle corners.
func FromTriangles(tris ...[3][3]float64) *Mesh {
	m := &Mesh{Vertices: make([]float32, 0, len(tris)*9)}
	for _, tri := range tris {
		for _, v := range tri {
			m.Vertices = append(m.Vertices, float32(v[0]), float32(v[1]), float32(v[2]))
		}
	}
	return m
}

// Quad returns an indexed, upward-facing (+Z) rectangle at height z
// spanning [x0,x1]×[y0,y1].
func Quad(x0, y0, x1, y1, z float64) *Mesh {
	return &Mesh{
		Vertices: []float32{
			float32(x0), float32(y0), float32(z),
			float32(x1), float32(y0), float32(z),
			float32(x1), float32(y1), float32(z),
			float32(x0), float32(y1), float32(z),
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Cuboid returns an indexed axis-aligned box with 8 shared vertices and
// 12 triangles wound counter-clockwise when seen from outside.
func Cuboid(x0, y0, z0, x1, y1, z1 float64) *Mesh {
	v := [8][3]float64{
		{x0, y0, z0}, {x1, y0, z0}, {x1, y1, z0}, {x0, y1, z0},
		{x0, y0, z1}, {x1, y0, z1}, {x1, y1, z1}, {x0, y1, z1},
	}
	m := &Mesh{Vertices: make([]float32, 0, 24)}
	for _, p := range v {
		m.Vertices = append(m.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	m.Indices = []uint32{
		0, 2, 1, 0, 3, 2, // bottom (-Z)
		4, 5, 6, 4, 6, 7, // top (+Z)
		0, 1, 5, 0, 5, 4, // front (-Y)
		2, 3, 7, 2, 7, 6, // back (+Y)
		1, 2, 6, 1, 6, 5, // right (+X)
		3, 0, 4, 3, 4, 7, // left (-X)
	}
	return m
}

// Merge concatenates meshes into one. Indexed inputs keep their
// topology with offsets applied; unindexed inputs are indexed
// sequentially.
func Merge(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		base := uint32(m.VertexCount())
		offset := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		if m.Indexed() {
			for _, i := range m.Indices {
				out.Indices = append(out.Indices, i+offset)
			}
			continue
		}
		for i := uint32(0); i < base; i++ {
			out.Indices = append(out.Indices, offset+i)
		}
	}
	return out
}
