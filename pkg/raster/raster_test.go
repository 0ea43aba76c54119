package raster

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/gogpu/gg"

	"github.com/unstable-studios/threedepth/pkg/camera"
	"github.com/unstable-studios/threedepth/pkg/depth"
	"github.com/unstable-studios/threedepth/pkg/geometry"
	"github.com/unstable-studios/threedepth/pkg/kernel"
)

func plan(t *testing.T, m *kernel.Mesh, zoom float64) camera.Plan {
	t.Helper()
	box, ok := geometry.Bounds(m)
	if !ok {
		t.Fatal("mesh has no bounds")
	}
	p, err := camera.PlanCamera(box, zoom)
	if err != nil {
		t.Fatalf("PlanCamera: %v", err)
	}
	return p
}

func render(t *testing.T, m *kernel.Mesh, p camera.Plan, params depth.Params, w, h int, opts Options) *image.NRGBA {
	t.Helper()
	img, err := Render(context.Background(), m, VertexColors(m, params), p, w, h, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return img
}

func TestCubeTopFaceIsWhite(t *testing.T) {
	m := kernel.Cuboid(0, 0, 0, 1, 1, 1)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	img := render(t, m, plan(t, m, 1), params, 4, 4, Options{Cull: true})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := img.NRGBAAt(x, y)
			if c.R != 255 || c.G != 255 || c.B != 255 || c.A != 255 {
				t.Errorf("pixel (%d,%d) = %v, want opaque white", x, y, c)
			}
		}
	}
	if n := LiveTargets(); n != 0 {
		t.Errorf("LiveTargets() = %d after render, want 0", n)
	}
}

func TestReadbackIsFlipped(t *testing.T) {
	// Only the upper half of the window (high Y) is covered.
	m := kernel.Merge(
		kernel.Quad(0, 0.5, 1, 1, 1),
		kernel.FromTriangles([3][3]float64{{0, 0, 0}, {0, 0, 0}, {1, 0, 0}}),
	)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	img := render(t, m, plan(t, m, 1), params, 4, 4, Options{Cull: true})

	for x := 0; x < 4; x++ {
		if a := img.NRGBAAt(x, 0).A; a != 255 {
			t.Errorf("top row pixel %d alpha = %d, want 255", x, a)
		}
		if a := img.NRGBAAt(x, 3).A; a != 0 {
			t.Errorf("bottom row pixel %d alpha = %d, want 0", x, a)
		}
	}
}

func TestGradient(t *testing.T) {
	// A ramp rising along X.
	m := kernel.FromTriangles(
		[3][3]float64{{0, 0, 0}, {1, 0, 1}, {1, 1, 1}},
		[3][3]float64{{0, 0, 0}, {1, 1, 1}, {0, 1, 0}},
	)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	img := render(t, m, plan(t, m, 1), params, 8, 8, Options{Cull: true})

	prev := -1
	for x := 0; x < 8; x++ {
		v := int(img.NRGBAAt(x, 4).R)
		if v <= prev {
			t.Errorf("column %d gray %d not above %d", x, v, prev)
		}
		prev = v
	}
}

func TestMirroredWinding(t *testing.T) {
	src := kernel.Cuboid(0, 0, 0, 1, 1, 1)
	m := geometry.Orient(src, geometry.AxisY)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	img := render(t, m, plan(t, m, 1), params, 4, 4, Options{Cull: true, FlipWinding: true})

	if c := img.NRGBAAt(1, 1); c.R != 255 || c.A != 255 {
		t.Errorf("center pixel = %v, want the top face at 255", c)
	}
}

func TestCullingOffDrawsBothFaces(t *testing.T) {
	m := kernel.Cuboid(0, 0, 0, 1, 1, 1)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	img := render(t, m, plan(t, m, 1), params, 4, 4, Options{})
	if c := img.NRGBAAt(2, 2); c.R != 255 {
		t.Errorf("pixel = %v, want the top face over the bottom face", c)
	}
}

func TestNearestSurfaceWins(t *testing.T) {
	high := kernel.Quad(0, 0, 2, 2, 5)
	low := kernel.Quad(0, 0, 2, 2, 1)
	params := depth.Params{Range: depth.Range{Min: 1, Max: 5}}

	tests := []struct {
		name string
		m    *kernel.Mesh
	}{
		{"high first", kernel.Merge(high, low)},
		{"low first", kernel.Merge(low, high)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := render(t, tt.m, plan(t, tt.m, 1), params, 8, 8, Options{Cull: true})
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					if c := img.NRGBAAt(x, y); c.R != 255 || c.A != 255 {
						t.Fatalf("pixel (%d,%d) = %v, want the z=5 quad", x, y, c)
					}
				}
			}
		})
	}
}

func TestDepthTestInterpolatesHeight(t *testing.T) {
	// A ramp from z=0 to z=2 along X crossing a flat quad at z=1: the ramp
	// is on top on the right half only.
	ramp := kernel.FromTriangles(
		[3][3]float64{{0, 0, 0}, {2, 0, 2}, {2, 2, 2}},
		[3][3]float64{{0, 0, 0}, {2, 2, 2}, {0, 2, 0}},
	)
	m := kernel.Merge(ramp, kernel.Quad(0, 0, 2, 2, 1))
	params := depth.Params{Range: depth.Range{Min: 0, Max: 2}}
	img := render(t, m, plan(t, m, 1), params, 8, 8, Options{Cull: true})

	for x := 0; x < 8; x++ {
		got := img.NRGBAAt(x, 4).R
		if x < 4 && got != 128 {
			t.Errorf("column %d = %d, want the flat quad at 128", x, got)
		}
		if x >= 4 && got <= 128 {
			t.Errorf("column %d = %d, want the ramp above 128", x, got)
		}
	}
}

func TestZoomCoversMorePixels(t *testing.T) {
	m := kernel.Merge(
		kernel.Quad(0, 0, 2, 2, 0),
		kernel.Quad(0.8, 0.8, 1.2, 1.2, 1),
	)
	params := depth.Params{Range: depth.Range{Min: 0, Max: 1}}
	count := func(zoom float64) int {
		img := render(t, m, plan(t, m, zoom), params, 20, 20, Options{Cull: true})
		n := 0
		for i := 0; i < len(img.Pix); i += 4 {
			if img.Pix[i] > 200 {
				n++
			}
		}
		return n
	}
	if a, b := count(1), count(2); b <= a {
		t.Errorf("zoom 2 covers %d bright pixels, zoom 1 covers %d", b, a)
	}
}

func TestEmptyMesh(t *testing.T) {
	p, _ := camera.PlanCamera(geometryBox(), 1)
	img, err := Render(context.Background(), &kernel.Mesh{}, nil, p, 3, 2, Options{Cull: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i, v := range img.Pix {
		if v != 0 {
			t.Fatalf("byte %d = %d, want blank image", i, v)
		}
	}
}

func TestInvalidTarget(t *testing.T) {
	p, _ := camera.PlanCamera(geometryBox(), 1)
	for _, size := range [][2]int{{0, 4}, {4, -1}, {MaxDimension + 1, 1}} {
		_, err := Render(context.Background(), &kernel.Mesh{}, nil, p, size[0], size[1], Options{})
		if !errors.Is(err, ErrRenderTarget) {
			t.Errorf("size %v: err = %v, want ErrRenderTarget", size, err)
		}
	}
}

func TestColorCountMismatch(t *testing.T) {
	m := kernel.Cuboid(0, 0, 0, 1, 1, 1)
	if _, err := Render(context.Background(), m, []gg.RGBA{gg.White}, plan(t, m, 1), 2, 2, Options{}); err == nil {
		t.Fatal("expected error for missing vertex colours")
	}
}

func TestCanceled(t *testing.T) {
	m := kernel.Cuboid(0, 0, 0, 1, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, m, VertexColors(m, depth.Params{}), plan(t, m, 1), 4, 4, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n := LiveTargets(); n != 0 {
		t.Errorf("LiveTargets() = %d after cancel, want 0", n)
	}
}

func TestReleaseTwice(t *testing.T) {
	tgt, err := NewTarget(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	tgt.Release()
	tgt.Release()
	if n := LiveTargets(); n != 0 {
		t.Errorf("LiveTargets() = %d, want 0", n)
	}
	if _, err := tgt.ReadFlipped(); !errors.Is(err, ErrRenderTarget) {
		t.Errorf("ReadFlipped after release = %v, want ErrRenderTarget", err)
	}
}

func geometryBox() sdf.Box3 {
	return sdf.Box3{Max: v3.Vec{X: 1, Y: 1, Z: 1}}
}
