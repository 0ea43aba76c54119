package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unstable-studios/threedepth/pkg/depthmap"
	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/kernel/sdfx"
	"github.com/unstable-studios/threedepth/pkg/logging"
	"github.com/unstable-studios/threedepth/pkg/pngmeta"
	"github.com/unstable-studios/threedepth/pkg/raster"
)

// Shapes lists the built-in sample models.
var Shapes = []string{"box", "cylinder", "stepped"}

// App binds model loading, rendering and export for the command line.
type App struct {
	kernel  kernel.Kernel
	session *depthmap.Session
}

// MessageData is a JSON-serializable warning or error.
type MessageData struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// RenderResult summarises one render for display.
type RenderResult struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	DPI       int           `json:"dpi"`
	ElapsedMS int64         `json:"elapsedMs"`
	Errors    []MessageData `json:"errors"`
	Warnings  []MessageData `json:"warnings"`

	result *depthmap.Result
}

// OK reports whether the render produced an image.
func (r RenderResult) OK() bool {
	return r.result != nil && len(r.Errors) == 0
}

// NewApp creates an App with an sdfx kernel meshing at the given number
// of cells and a session bounded by timeout (zero for none).
func NewApp(timeout time.Duration, cells int) *App {
	return &App{
		kernel:  sdfx.NewWithCells(cells),
		session: depthmap.NewSession(timeout),
	}
}

// Shape builds one of the sample models.
func (a *App) Shape(name string) (*kernel.Mesh, error) {
	k := a.kernel
	var s kernel.Solid
	switch strings.ToLower(name) {
	case "box":
		s = k.Box(40, 30, 20)
	case "cylinder":
		s = k.Cylinder(20, 12)
	case "stepped":
		base := k.Box(40, 40, 10)
		tower := k.Translate(k.Box(20, 20, 10), 10, 10, 10)
		hole := k.Translate(k.Cylinder(10, 4), 20, 20, 12)
		s = k.Difference(k.Union(base, tower), hole)
	default:
		return nil, fmt.Errorf("unknown shape %q (want one of %s)", name, strings.Join(Shapes, ", "))
	}
	m, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("shape %s: %w", name, err)
	}
	m.PartName = name
	return m, nil
}

// LoadModel reads an STL file.
func (a *App) LoadModel(path string) (*kernel.Mesh, error) {
	m, err := sdfx.LoadSTL(path)
	if err != nil {
		return nil, err
	}
	m.PartName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m, nil
}

// Render renders m with cfg. Failures are reported in Errors, never
// returned, so the result can be shown as is.
func (a *App) Render(ctx context.Context, m *kernel.Mesh, cfg depthmap.Config, opts ...depthmap.Option) RenderResult {
	result := RenderResult{
		Width:    cfg.Resolution.Width,
		Height:   cfg.Resolution.Height,
		DPI:      cfg.DPI,
		Errors:   []MessageData{},
		Warnings: []MessageData{},
	}

	res, err := a.session.Render(ctx, m, cfg, opts...)
	if err != nil {
		logging.Logger().Error("render failed", "err", err)
		result.Errors = classify(err)
		return result
	}

	result.result = res
	result.ElapsedMS = res.Elapsed.Milliseconds()
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, MessageData{Code: w.Code, Message: w.Message})
	}
	return result
}

// classify turns a render error into display messages. Joined config
// errors yield one message per field.
func classify(err error) []MessageData {
	var out []MessageData
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, classify(e)...)
		}
		return out
	}

	var ce depthmap.ConfigError
	switch {
	case errors.As(err, &ce):
		return []MessageData{{Code: "INVALID_CONFIG", Field: ce.Field, Message: ce.Message}}
	case errors.Is(err, kernel.ErrInvalidMesh):
		return []MessageData{{Code: "INVALID_MESH", Message: err.Error()}}
	case errors.Is(err, depthmap.ErrSuperseded):
		return []MessageData{{Code: "SUPERSEDED", Message: err.Error()}}
	case errors.Is(err, depthmap.ErrTimeout):
		return []MessageData{{Code: "TIMEOUT", Message: err.Error()}}
	case errors.Is(err, depthmap.ErrCanceled):
		return []MessageData{{Code: "CANCELED", Message: err.Error()}}
	case errors.Is(err, raster.ErrRenderTarget):
		return []MessageData{{Code: "RENDER_TARGET", Message: err.Error()}}
	}
	return []MessageData{{Code: "RENDER_FAILED", Message: err.Error()}}
}

// Export writes the rendered image to path as "png" or "jpeg". With
// preview set, a thumbnail is written next to it as <name>-preview.png.
func (a *App) Export(r RenderResult, path, format string, preview bool) error {
	if !r.OK() {
		return errors.New("export: nothing rendered")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	switch strings.ToLower(format) {
	case "", "png":
		var data []byte
		data, err = r.result.EncodePNG()
		if err == nil {
			_, err = f.Write(data)
		}
	case "jpg", "jpeg":
		err = r.result.EncodeJPEG(f, depthmap.JPEGQuality)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	logging.Logger().Info("exported", "path", path, "format", format)

	if preview {
		data, err := pngmeta.EncodePNGWithDPI(r.result.Preview(), r.DPI)
		if err != nil {
			return fmt.Errorf("export preview: %w", err)
		}
		pp := strings.TrimSuffix(path, filepath.Ext(path)) + "-preview.png"
		if err := os.WriteFile(pp, data, 0o644); err != nil {
			return fmt.Errorf("export preview: %w", err)
		}
		logging.Logger().Info("exported preview", "path", pp)
	}
	return nil
}
