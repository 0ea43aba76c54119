package depthmap

import (
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/unstable-studios/threedepth/pkg/composite"
	"github.com/unstable-studios/threedepth/pkg/logging"
	"github.com/unstable-studios/threedepth/pkg/pngmeta"
)

// JPEGQuality is the quality used for JPEG export.
const JPEGQuality = 95

// PreviewSize is the edge of the preview thumbnail.
const PreviewSize = 256

// SetLogger configures logging for the depth map pipeline. See
// logging.SetLogger.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// EncodePNG encodes the final image with the configured DPI.
func (r *Result) EncodePNG() ([]byte, error) {
	data, err := pngmeta.EncodePNGWithDPI(r.Image, r.Config.DPI)
	if err != nil {
		logging.Logger().Error("png export failed", "err", err)
		return nil, err
	}
	return data, nil
}

// EncodeJPEG writes the image as JPEG. JPEG has no alpha channel, so a
// transparent background is replaced by white.
func (r *Result) EncodeJPEG(w io.Writer, quality int) error {
	img := r.Image
	if r.Config.Background.Transparent {
		img = composite.Composite(r.Raw, r.Config.Clip, composite.White)
	}
	if err := gg.FromImage(img).EncodeJPEG(w, quality); err != nil {
		logging.Logger().Error("jpeg export failed", "err", err)
		return fmt.Errorf("%w: jpeg: %w", pngmeta.ErrEncode, err)
	}
	return nil
}

// Preview scales img to fit within size×size, keeping its aspect ratio.
func Preview(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Preview returns a PreviewSize thumbnail of the final image.
func (r *Result) Preview() *image.NRGBA {
	return Preview(r.Image, PreviewSize)
}
