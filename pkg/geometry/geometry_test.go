package geometry

import (
	"math"
	"slices"
	"testing"

	"github.com/unstable-studios/threedepth/pkg/kernel"
)

func sampleMesh() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{1, 2, 3, 4, 5, 6, -7, 8, -9},
		Normals:  []float32{0, 0, 1, 0, 1, 0, 1, 0, 0},
		Indices:  []uint32{0, 1, 2},
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"z", AxisZ, false},
		{"Y", AxisY, false},
		{" x ", AxisX, false},
		{"w", AxisZ, true},
		{"", AxisZ, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAxis(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAxis(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrientZIsIdentity(t *testing.T) {
	m := sampleMesh()
	got := Orient(m, AxisZ)
	if !slices.Equal(got.Vertices, m.Vertices) {
		t.Errorf("Orient(Z) vertices = %v, want %v", got.Vertices, m.Vertices)
	}
	got.Vertices[0] = 99
	if m.Vertices[0] == 99 {
		t.Error("Orient returned a mesh sharing the caller's buffer")
	}
}

func TestOrientMapping(t *testing.T) {
	tests := []struct {
		axis Axis
		want []float32
	}{
		{AxisZ, []float32{1, 2, 3}},
		{AxisY, []float32{1, 3, 2}},
		{AxisX, []float32{2, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.axis.String(), func(t *testing.T) {
			got := Orient(sampleMesh(), tt.axis)
			if !slices.Equal(got.Vertices[:3], tt.want) {
				t.Errorf("first vertex = %v, want %v", got.Vertices[:3], tt.want)
			}
			if !slices.Equal(got.Indices, []uint32{0, 1, 2}) {
				t.Errorf("indices changed: %v", got.Indices)
			}
		})
	}
}

func TestOrientPreservesCoordinateValues(t *testing.T) {
	src := sampleMesh()
	for _, axis := range []Axis{AxisZ, AxisY, AxisX} {
		t.Run(axis.String(), func(t *testing.T) {
			got := Orient(src, axis)
			for i := 0; i < src.VertexCount(); i++ {
				a := slices.Clone(src.Vertices[i*3 : i*3+3])
				b := slices.Clone(got.Vertices[i*3 : i*3+3])
				slices.Sort(a)
				slices.Sort(b)
				if !slices.Equal(a, b) {
					t.Errorf("vertex %d values %v became %v", i, a, b)
				}
			}
		})
	}
}

func TestOrientMovesNormals(t *testing.T) {
	got := Orient(sampleMesh(), AxisX)
	// Source normal (1,0,0) points along X, which is the new height axis.
	if !slices.Equal(got.Normals[6:9], []float32{0, 0, 1}) {
		t.Errorf("normal = %v, want [0 0 1]", got.Normals[6:9])
	}
}

func TestOrientEmpty(t *testing.T) {
	if got := Orient(&kernel.Mesh{}, AxisY); got == nil || !got.IsEmpty() {
		t.Errorf("Orient(empty) = %+v, want empty mesh", got)
	}
	if Orient(nil, AxisX) != nil {
		t.Error("Orient(nil) should be nil")
	}
}

func TestMirrors(t *testing.T) {
	if AxisZ.Mirrors() || AxisX.Mirrors() || !AxisY.Mirrors() {
		t.Error("only the Y remap is a reflection")
	}
}

func TestBounds(t *testing.T) {
	box, ok := Bounds(sampleMesh())
	if !ok {
		t.Fatal("Bounds reported empty")
	}
	if box.Min.X != -7 || box.Min.Y != 2 || box.Min.Z != -9 {
		t.Errorf("Min = %+v", box.Min)
	}
	if box.Max.X != 4 || box.Max.Y != 8 || box.Max.Z != 6 {
		t.Errorf("Max = %+v", box.Max)
	}
	if _, ok := Bounds(&kernel.Mesh{}); ok {
		t.Error("Bounds of empty mesh should not be ok")
	}
}

func TestNormalize(t *testing.T) {
	m := kernel.Cuboid(10, 10, 5, 14, 12, 6)
	got := Normalize(m, DefaultNormalizeSize)
	box, _ := Bounds(got)
	ext := Extent(box)

	const tol = 1e-4
	if math.Abs(ext.X-20) > tol || math.Abs(ext.Y-10) > tol || math.Abs(ext.Z-5) > tol {
		t.Errorf("extent = %+v, want (20,10,5)", ext)
	}
	if math.Abs(box.Min.Z) > tol {
		t.Errorf("Min.Z = %f, want 0", box.Min.Z)
	}
	if math.Abs(box.Min.X+box.Max.X) > tol || math.Abs(box.Min.Y+box.Max.Y) > tol {
		t.Errorf("not centred: %+v", box)
	}
	if m.Vertices[0] != 10 {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalizePoint(t *testing.T) {
	m := kernel.FromTriangles([3][3]float64{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}})
	got := Normalize(m, 20)
	for i := 0; i < got.VertexCount(); i++ {
		x, y, z := got.Vertex(i)
		if x != 0 || y != 0 || z != 0 {
			t.Fatalf("vertex %d = (%f,%f,%f), want origin", i, x, y, z)
		}
	}
}
