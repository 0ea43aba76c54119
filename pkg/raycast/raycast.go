// Package raycast implements the accurate depth map renderer. For every
// output pixel it casts a ray straight down through the mesh and keeps
// the topmost intersection, so overlapping and concave surfaces resolve
// correctly. Cost grows with width × height × triangles; an optional XY
// bounding volume hierarchy cuts the triangle factor without changing
// the output.
package raycast

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/unstable-studios/threedepth/pkg/camera"
	"github.com/unstable-studios/threedepth/pkg/depth"
	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/logging"
)

// RayHeadroom is how far above the model top rays start.
const RayHeadroom = 1000.0

// ProgressEvery is the number of scanlines between progress reports.
const ProgressEvery = 10

// ErrAborted wraps the error returned by a progress callback.
var ErrAborted = errors.New("raycast: aborted")

var down = v3.Vec{X: 0, Y: 0, Z: -1}

// Options tunes sampling.
type Options struct {
	// Progress receives the completed fraction every ProgressEvery
	// scanlines and once more with 1 at the end. A non-nil return
	// aborts the render with that error.
	Progress func(fraction float64) error
	// BVH enables the XY acceleration structure.
	BVH bool
}

// Sampler answers topmost-surface queries against a fixed mesh.
type Sampler struct {
	tris    []triangle
	accel   *bvh
	originZ float64
}

// NewSampler prepares m for queries. Rays start at topZ + RayHeadroom.
func NewSampler(m *kernel.Mesh, topZ float64, useBVH bool) *Sampler {
	s := &Sampler{
		tris:    make([]triangle, m.TriangleCount()),
		originZ: topZ + RayHeadroom,
	}
	for i := range s.tris {
		p := m.Triangle(i)
		s.tris[i] = triangle{
			a: v3.Vec{X: p[0][0], Y: p[0][1], Z: p[0][2]},
			b: v3.Vec{X: p[1][0], Y: p[1][1], Z: p[1][2]},
			c: v3.Vec{X: p[2][0], Y: p[2][1], Z: p[2][2]},
		}
	}
	if useBVH {
		s.accel = buildBVH(s.tris)
		logging.Logger().Debug("bvh built", "triangles", len(s.tris), "nodes", len(s.accel.nodes))
	}
	return s
}

// Top returns the greatest height at which the vertical line through
// (x, y) meets the mesh.
func (s *Sampler) Top(x, y float64) (z float64, ok bool) {
	orig := v3.Vec{X: x, Y: y, Z: s.originZ}
	best := math.Inf(1)
	test := func(i int) {
		if t, hit := intersect(orig, down, &s.tris[i]); hit && t < best {
			best = t
		}
	}
	if s.accel != nil {
		s.accel.visit(x, y, test)
	} else {
		for i := range s.tris {
			test(i)
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return s.originZ - best, true
}

// Render samples every pixel of a width×height image through plan.
// Pixels without a hit are opaque black; hits are coloured by params.
func Render(ctx context.Context, m *kernel.Mesh, plan camera.Plan, width, height int, params depth.Params, opts Options) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raycast: invalid size %dx%d", width, height)
	}
	s := NewSampler(m, plan.Bounds.Max.Z, opts.BVH)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	hits := 0
	for py := 0; py < height; py++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for px := 0; px < width; px++ {
			x, y := plan.PixelToWorld(px, py, width, height)
			c := color.NRGBA{A: 255}
			if z, ok := s.Top(x, y); ok {
				smp := params.Map(z)
				c.R, c.G, c.B = depth.Byte(smp.R), depth.Byte(smp.G), depth.Byte(smp.B)
				hits++
			}
			img.SetNRGBA(px, py, c)
		}
		done := py + 1
		if opts.Progress != nil && done%ProgressEvery == 0 && done < height {
			if err := opts.Progress(float64(done) / float64(height)); err != nil {
				return nil, fmt.Errorf("%w at row %d: %w", ErrAborted, done, err)
			}
		}
	}
	if opts.Progress != nil {
		if err := opts.Progress(1); err != nil {
			return nil, fmt.Errorf("%w at completion: %w", ErrAborted, err)
		}
	}
	logging.Logger().Debug("raycast done",
		"pixels", width*height, "hits", hits, "triangles", len(s.tris), "bvh", opts.BVH)
	return img, nil
}
