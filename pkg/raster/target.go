package raster

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/gogpu/gg"

	"github.com/unstable-studios/threedepth/pkg/logging"
)

// ErrRenderTarget is returned when a render target cannot be created.
var ErrRenderTarget = errors.New("raster: render target unavailable")

// MaxDimension bounds each side of a render target.
const MaxDimension = 16384

var liveTargets atomic.Int64

// LiveTargets returns the number of targets allocated and not yet released.
func LiveTargets() int64 {
	return liveTargets.Load()
}

// Target is an offscreen pixel buffer owned by a single render call.
// Row 0 of the buffer is the bottom of the view. Each pixel carries the
// height of the surface last written to it.
type Target struct {
	pix   *gg.Pixmap
	depth []float64
}

// NewTarget allocates a cleared width×height target.
func NewTarget(width, height int) (*Target, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrRenderTarget, width, height)
	}
	t := &Target{pix: gg.NewPixmap(width, height), depth: make([]float64, width*height)}
	for i := range t.depth {
		t.depth[i] = math.Inf(-1)
	}
	liveTargets.Add(1)
	logging.Logger().Debug("render target allocated", "width", width, "height", height)
	return t, nil
}

// Release frees the buffer. Calling Release more than once is a no-op.
func (t *Target) Release() {
	if t == nil || t.pix == nil {
		return
	}
	t.pix = nil
	t.depth = nil
	liveTargets.Add(-1)
	logging.Logger().Debug("render target released")
}

// Width returns the target width.
func (t *Target) Width() int { return t.pix.Width() }

// Height returns the target height.
func (t *Target) Height() int { return t.pix.Height() }

// closer reports whether a surface at height z is at or above the one
// stored at (x, y), and records z if so. The camera looks down, so higher
// is nearer.
func (t *Target) closer(x, y int, z float64) bool {
	i := y*t.pix.Width() + x
	if z < t.depth[i] {
		return false
	}
	t.depth[i] = z
	return true
}

// set writes an opaque pixel. The alpha is 255 so premultiplied and
// straight values coincide.
func (t *Target) set(x, y int, r, g, b uint8) {
	t.pix.SetPixelPremul(x, y, r, g, b, 255)
}

// ReadFlipped copies the target into a new image whose row 0 is the top
// of the view.
func (t *Target) ReadFlipped() (*image.NRGBA, error) {
	if t.pix == nil {
		return nil, fmt.Errorf("%w: read after release", ErrRenderTarget)
	}
	w, h := t.pix.Width(), t.pix.Height()
	src := t.pix.Data()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+stride], src[(h-1-y)*stride:(h-y)*stride])
	}
	return out, nil
}
