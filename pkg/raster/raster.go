// Package raster implements the fast depth map renderer: a CPU triangle
// rasterizer that projects the mesh through the camera plan and
// interpolates per-vertex colours across each triangle.
//
// Every pixel keeps the height of the surface drawn into it, and a
// fragment is written only when it is at least as high, so the nearest
// front face wins regardless of triangle order. With culling off, back
// faces take part in the same test; a back face coplanar with a front face
// wins if it comes later. The raycast package samples the exact topmost
// surface at a higher cost.
package raster

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/unstable-studios/threedepth/pkg/camera"
	"github.com/unstable-studios/threedepth/pkg/depth"
	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/logging"
)

// cancelCheckEvery is how many triangles are drawn between context checks.
const cancelCheckEvery = 1024

// Options tunes rasterization.
type Options struct {
	// Cull skips triangles facing away from the camera.
	Cull bool
	// FlipWinding treats clockwise triangles as front facing. Set it when
	// the mesh went through a reflecting axis remap.
	FlipWinding bool
}

// VertexColors maps every vertex height through p.
func VertexColors(m *kernel.Mesh, p depth.Params) []gg.RGBA {
	colors := make([]gg.RGBA, m.VertexCount())
	for i := range colors {
		_, _, z := m.Vertex(i)
		colors[i] = p.Map(z).Color()
	}
	return colors
}

// Render rasterizes m into a width×height image. colors holds one colour
// per vertex. Covered pixels are opaque; the rest stay transparent black.
func Render(ctx context.Context, m *kernel.Mesh, colors []gg.RGBA, plan camera.Plan, width, height int, opts Options) (*image.NRGBA, error) {
	if len(colors) != m.VertexCount() {
		return nil, fmt.Errorf("raster: %d colours for %d vertices", len(colors), m.VertexCount())
	}

	target, err := NewTarget(width, height)
	if err != nil {
		return nil, err
	}
	defer target.Release()

	xf := plan.WorldToTarget(width, height)
	drawn, culled := 0, 0
	for t := 0; t < m.TriangleCount(); t++ {
		if t%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a, b, c := m.TriangleVertices(t)
		var tri [3]point
		for k, vi := range [3]int{a, b, c} {
			x, y, z := m.Vertex(vi)
			tri[k].x, tri[k].y = camera.Apply(xf, x, y)
			tri[k].z = z
			tri[k].c = colors[vi]
		}
		area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
		if opts.FlipWinding {
			area = -area
		}
		if opts.Cull && area <= 0 {
			culled++
			continue
		}
		if fill(target, tri) {
			drawn++
		}
	}
	logging.Logger().Debug("rasterized",
		"triangles", m.TriangleCount(), "drawn", drawn, "culled", culled)

	return target.ReadFlipped()
}

type point struct {
	x, y, z float64
	c       gg.RGBA
}

// edge is twice the signed area of (a, b, (px,py)); positive when the
// three points turn counter-clockwise.
func edge(a, b point, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// fill draws tri, sampling at pixel centres and depth testing against
// the target. It reports whether any pixel was written.
func fill(t *Target, tri [3]point) bool {
	area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
	if area == 0 {
		return false
	}
	if area < 0 {
		tri[1], tri[2] = tri[2], tri[1]
		area = -area
	}

	minX := max(0, int(math.Floor(min(tri[0].x, tri[1].x, tri[2].x))))
	maxX := min(t.Width()-1, int(math.Ceil(max(tri[0].x, tri[1].x, tri[2].x))))
	minY := max(0, int(math.Floor(min(tri[0].y, tri[1].y, tri[2].y))))
	maxY := min(t.Height()-1, int(math.Ceil(max(tri[0].y, tri[1].y, tri[2].y))))

	hit := false
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(tri[1], tri[2], px, py)
			w1 := edge(tri[2], tri[0], px, py)
			w2 := edge(tri[0], tri[1], px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			w0, w1, w2 = w0/area, w1/area, w2/area
			z := w0*tri[0].z + w1*tri[1].z + w2*tri[2].z
			if !t.closer(x, y, z) {
				continue
			}
			r := w0*tri[0].c.R + w1*tri[1].c.R + w2*tri[2].c.R
			g := w0*tri[0].c.G + w1*tri[1].c.G + w2*tri[2].c.G
			b := w0*tri[0].c.B + w1*tri[1].c.B + w2*tri[2].c.B
			t.set(x, y, depth.Byte(r), depth.Byte(g), depth.Byte(b))
			hit = true
		}
	}
	return hit
}
