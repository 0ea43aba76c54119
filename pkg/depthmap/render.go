// Package depthmap turns a triangle mesh into an orthographic depth map.
//
// Render runs the whole pipeline for one Config: orient the mesh, plan
// the camera, render a raw pass with either the fast rasterizer or the
// accurate ray sampler, then apply the depth clip and background. The
// raw pass is kept on the Result so clip and background can change
// without rendering again. Session adds supersede and timeout handling
// for callers that re-render on every setting change.
package depthmap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/unstable-studios/threedepth/pkg/camera"
	"github.com/unstable-studios/threedepth/pkg/composite"
	"github.com/unstable-studios/threedepth/pkg/depth"
	"github.com/unstable-studios/threedepth/pkg/geometry"
	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/logging"
	"github.com/unstable-studios/threedepth/pkg/raster"
	"github.com/unstable-studios/threedepth/pkg/raycast"
)

// Option configures a single Render call.
type Option func(*options)

type options struct {
	progress func(fraction float64) error
	bvh      bool
}

func defaultOptions() options {
	return options{bvh: true}
}

// WithProgress receives accurate-mode progress. Returning an error
// aborts the render with ErrCanceled.
func WithProgress(fn func(fraction float64) error) Option {
	return func(o *options) { o.progress = fn }
}

// WithBVH toggles the accurate sampler's acceleration structure. It is on
// by default and never changes the output.
func WithBVH(enabled bool) Option {
	return func(o *options) { o.bvh = enabled }
}

// Result is the outcome of a render.
type Result struct {
	// Image is the final composited depth map.
	Image *image.NRGBA
	// Raw is the render pass before depth clip and background.
	Raw *image.NRGBA

	Config   Config
	Plan     camera.Plan
	Range    depth.Range
	Warnings []Warning
	Elapsed  time.Duration
}

// Render produces a depth map of m. The caller's mesh is never modified.
// Invalid configs fail with ErrInvalidConfig and inconsistent mesh buffers
// with kernel.ErrInvalidMesh, both before any work starts. A context or
// progress callback that stops the render yields ErrCanceled.
func Render(ctx context.Context, m *kernel.Mesh, cfg Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if m == nil {
		m = &kernel.Mesh{}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := logging.Logger()
	log.Info("render started",
		"triangles", m.TriangleCount(), "axis", cfg.Axis, "accurate", cfg.Accurate,
		"width", cfg.Resolution.Width, "height", cfg.Resolution.Height)

	res := &Result{Config: cfg}

	oriented := geometry.Orient(m, cfg.Axis)
	if cfg.NormalizeSize > 0 {
		oriented = geometry.Normalize(oriented, cfg.NormalizeSize)
	}

	box, ok := geometry.Bounds(oriented)
	if !ok || oriented.IsEmpty() {
		res.warn(WarnEmptyMesh, "mesh has no triangles; output will be blank")
	}
	plan, err := camera.PlanCamera(box, cfg.Zoom)
	if err != nil {
		return nil, ConfigError{Field: "zoom", Message: err.Error()}
	}
	res.Plan = plan
	res.Range = depth.Range{Min: box.Min.Z, Max: box.Max.Z}

	if !oriented.IsEmpty() {
		if plan.FlatFootprint {
			res.warn(WarnFlatFootprint, "model has no extent across the view; using a unit window")
		}
		if _, flat := res.Range.Span(); flat {
			res.warn(WarnFlatHeight, fmt.Sprintf("model is flat along %s; output will be uniform", cfg.Axis))
		}
	}
	log.Debug("camera planned",
		"view", plan.ViewSize, "centerX", plan.Center.X, "centerY", plan.Center.Y,
		"zMin", res.Range.Min, "zMax", res.Range.Max)

	params := depth.Params{Range: res.Range, Invert: cfg.Invert, Debug: cfg.Debug}
	w, h := cfg.Resolution.Width, cfg.Resolution.Height

	if cfg.Accurate {
		res.Raw, err = raycast.Render(ctx, oriented, plan, w, h, params,
			raycast.Options{Progress: o.progress, BVH: o.bvh})
	} else {
		colors := raster.VertexColors(oriented, params)
		res.Raw, err = raster.Render(ctx, oriented, colors, plan, w, h,
			raster.Options{Cull: true, FlipWinding: cfg.Axis.Mirrors()})
	}
	if err != nil {
		log.Error("render failed", "err", err)
		if canceled(err) {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return nil, err
	}

	res.Image = composite.Composite(res.Raw, cfg.Clip, cfg.Background)
	res.Elapsed = time.Since(start)
	for _, wn := range res.Warnings {
		log.Warn("render warning", "code", wn.Code, "message", wn.Message)
	}
	log.Info("render finished", "elapsed", res.Elapsed, "warnings", len(res.Warnings))
	return res, nil
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, raycast.ErrAborted)
}

func (r *Result) warn(code, msg string) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: msg})
}

// HasWarning reports whether the render raised the given warning code.
func (r *Result) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Recomposite applies a new clip and background to the raw pass and
// returns a new Result. The receiver is unchanged.
func (r *Result) Recomposite(clip depth.Clip, bg composite.Background) (*Result, error) {
	if err := clip.Validate(); err != nil {
		return nil, ConfigError{Field: "depthClip", Message: err.Error()}
	}
	out := *r
	out.Config.Clip = clip
	out.Config.Background = bg
	out.Warnings = append([]Warning(nil), r.Warnings...)
	out.Image = composite.Composite(r.Raw, clip, bg)
	return &out, nil
}
