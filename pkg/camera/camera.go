// Package camera plans the top-down orthographic view used to render a
// depth map. A Plan fixes the square world-space window, the eye position
// and near/far planes, and the affine maps between world XY and output
// pixels that both renderers share.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// ErrInvalidZoom is returned for a zoom that is not a finite value > 0.
var ErrInvalidZoom = errors.New("camera: zoom must be a finite number > 0")

// eyeClearance is the distance kept between the top of the model and the eye.
const eyeClearance = 100.0

// Plan is an orthographic camera looking straight down -Z.
//
// The window is centred on the XY centre of the bounds rather than on the
// origin; the mesh is never moved.
type Plan struct {
	Bounds sdf.Box3
	Center vec.Vec2

	// BaseSize is the larger XY extent of Bounds, or 1 when both are zero.
	BaseSize float64
	// ViewSize is BaseSize / zoom, the side of the square window.
	ViewSize float64
	Window   rect.Rect

	Eye       v3.Vec
	Near, Far float64

	// FlatFootprint is set when the mesh has no XY extent and BaseSize
	// was substituted.
	FlatFootprint bool
}

// PlanCamera derives the camera for bounds at the given zoom. zoom=1 fits
// the larger XY extent exactly; zoom>1 crops in.
func PlanCamera(bounds sdf.Box3, zoom float64) (Plan, error) {
	if !(zoom > 0) || math.IsInf(zoom, 0) {
		return Plan{}, fmt.Errorf("%w: got %v", ErrInvalidZoom, zoom)
	}

	sizeX := bounds.Max.X - bounds.Min.X
	sizeY := bounds.Max.Y - bounds.Min.Y
	base := math.Max(sizeX, sizeY)
	flat := false
	if base <= 0 {
		base, flat = 1, true
	}
	view := base / zoom
	half := view / 2

	c := vec.Vec2{
		X: (bounds.Min.X + bounds.Max.X) / 2,
		Y: (bounds.Min.Y + bounds.Max.Y) / 2,
	}

	zSpan := math.Max(bounds.Max.Z-bounds.Min.Z, 1)
	dist := zSpan*2 + eyeClearance

	return Plan{
		Bounds:   bounds,
		Center:   c,
		BaseSize: base,
		ViewSize: view,
		Window: rect.Rect{
			LLx: c.X - half, LLy: c.Y - half,
			URx: c.X + half, URy: c.Y + half,
		},
		Eye:           v3.Vec{X: c.X, Y: c.Y, Z: bounds.Max.Z + dist},
		Near:          dist / 2,
		Far:           dist + zSpan*1.5,
		FlatFootprint: flat,
	}, nil
}

// WorldToImage maps world XY to continuous pixel coordinates with row 0
// at the top of the window.
func (p Plan) WorldToImage(width, height int) matrix.Matrix {
	sx := float64(width) / p.ViewSize
	sy := float64(height) / p.ViewSize
	return matrix.Matrix{sx, 0, 0, -sy, -sx * p.Window.LLx, sy * p.Window.URy}
}

// WorldToTarget maps world XY to render target coordinates, whose row 0
// is the bottom of the window.
func (p Plan) WorldToTarget(width, height int) matrix.Matrix {
	sx := float64(width) / p.ViewSize
	sy := float64(height) / p.ViewSize
	return matrix.Matrix{sx, 0, 0, sy, -sx * p.Window.LLx, -sy * p.Window.LLy}
}

// PixelToWorld returns the world XY of the centre of image pixel (px, py).
func (p Plan) PixelToWorld(px, py, width, height int) (x, y float64) {
	x = p.Window.LLx + (float64(px)+0.5)*p.ViewSize/float64(width)
	y = p.Window.URy - (float64(py)+0.5)*p.ViewSize/float64(height)
	return x, y
}

// Apply transforms (x, y) by m.
func Apply(m matrix.Matrix, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
