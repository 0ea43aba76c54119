package kernel

import (
	"errors"
	"fmt"
)

// ErrInvalidMesh is returned by Validate for inconsistent buffers.
var ErrInvalidMesh = errors.New("kernel: invalid mesh")

// Mesh is a triangle mesh as produced by a loader or a geometry kernel.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex and is optional. When Indices is
// empty the mesh is unindexed and every three consecutive vertices form
// one triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`          // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals,omitempty"` // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices,omitempty"` // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m.TriangleCount() == 0
}

// Indexed reports whether the mesh carries an index buffer.
func (m *Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

// TriangleVertices returns the vertex indices of triangle t.
func (m *Mesh) TriangleVertices(t int) (a, b, c int) {
	if len(m.Indices) > 0 {
		i := t * 3
		return int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
	}
	i := t * 3
	return i, i + 1, i + 2
}

// Validate checks that the buffers are consistent: whole vertices,
// one normal per vertex when normals are present, whole triangles, and
// every index inside the vertex buffer.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex floats is not a multiple of 3", ErrInvalidMesh, len(m.Vertices))
	}
	if len(m.Normals) > 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normal floats for %d vertex floats", ErrInvalidMesh, len(m.Normals), len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d is out of range for %d vertices", ErrInvalidMesh, idx, i, n)
		}
	}
	return nil
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) (x, y, z float64) {
	j := i * 3
	return float64(m.Vertices[j]), float64(m.Vertices[j+1]), float64(m.Vertices[j+2])
}

// Triangle returns the three corner positions of triangle t.
func (m *Mesh) Triangle(t int) [3][3]float64 {
	var tri [3][3]float64
	a, b, c := m.TriangleVertices(t)
	for k, vi := range [3]int{a, b, c} {
		tri[k][0], tri[k][1], tri[k][2] = m.Vertex(vi)
	}
	return tri
}

// Clone returns a deep copy of the mesh. Transforms operate on clones so
// the caller's buffers are never mutated.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{PartName: m.PartName}
	if m.Vertices != nil {
		out.Vertices = append([]float32(nil), m.Vertices...)
	}
	if m.Normals != nil {
		out.Normals = append([]float32(nil), m.Normals...)
	}
	if m.Indices != nil {
		out.Indices = append([]uint32(nil), m.Indices...)
	}
	return out
}
