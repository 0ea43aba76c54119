// Command threedepth renders a mesh into a grayscale depth map.
//
// Usage:
//
//	threedepth -in model.stl -out depth.png -dpi 300
//	threedepth -shape stepped -axis y -accurate -bg white -out depth.jpg -format jpeg
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/unstable-studios/threedepth/pkg/composite"
	"github.com/unstable-studios/threedepth/pkg/depthmap"
	"github.com/unstable-studios/threedepth/pkg/diagnostics"
	"github.com/unstable-studios/threedepth/pkg/geometry"
	"github.com/unstable-studios/threedepth/pkg/kernel"
	"github.com/unstable-studios/threedepth/pkg/kernel/sdfx"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "threedepth:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("threedepth", flag.ContinueOnError)
	var (
		in         = fs.String("in", "", "input STL file")
		shape      = fs.String("shape", "", "built-in model: box, cylinder or stepped")
		cells      = fs.Int("cells", sdfx.DefaultMeshCells, "meshing resolution for built-in models")
		saveSTL    = fs.String("save-stl", "", "also write the source mesh as STL")
		out        = fs.String("out", "depth.png", "output file")
		format     = fs.String("format", "png", "output format: png or jpeg")
		configPath = fs.String("config", "", "JSON config file; flags override it")
		axis       = fs.String("axis", "z", "height axis: x, y or z")
		invert     = fs.Bool("invert", false, "invert the depth map")
		zoom       = fs.Float64("zoom", 1, "zoom factor (> 0)")
		width      = fs.Int("width", 1024, "output width")
		height     = fs.Int("height", 1024, "output height")
		accurate   = fs.Bool("accurate", false, "ray-cast each pixel")
		debug      = fs.Bool("debug", false, "tint top red and bottom blue")
		clipMin    = fs.Float64("clip-min", 0, "depth clip lower bound (0-1)")
		clipMax    = fs.Float64("clip-max", 1, "depth clip upper bound (0-1)")
		bg         = fs.String("bg", "transparent", "background: transparent, white, black or #rrggbb")
		dpi        = fs.Int("dpi", 150, "DPI written to the PNG")
		normalize  = fs.Float64("normalize", 0, "rescale the largest dimension to this size (0 keeps it)")
		preview    = fs.Bool("preview", false, "also write a 256px preview")
		timeout    = fs.Duration("timeout", 0, "abort renders that take longer (0 for none)")
		diagPath   = fs.String("diag", "", "write the last log records to this file")
		verbose    = fs.Bool("v", false, "verbose logging")
		jsonOut    = fs.Bool("json", false, "print the render summary as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	var ring *diagnostics.Ring
	if *diagPath != "" {
		ring = diagnostics.NewRing(diagnostics.DefaultCapacity, slog.LevelDebug)
		handler = diagnostics.Tee(handler, ring)
		defer func() {
			if err := writeDiagnostics(ring, *diagPath); err != nil {
				fmt.Fprintln(os.Stderr, "threedepth:", err)
			}
		}()
	}
	depthmap.SetLogger(slog.New(handler))

	cfg := depthmap.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = depthmap.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "axis":
			a, err := geometry.ParseAxis(*axis)
			flagErr = errors.Join(flagErr, err)
			cfg.Axis = a
		case "invert":
			cfg.Invert = *invert
		case "zoom":
			cfg.Zoom = *zoom
		case "width":
			cfg.Resolution.Width = *width
		case "height":
			cfg.Resolution.Height = *height
		case "accurate":
			cfg.Accurate = *accurate
		case "debug":
			cfg.Debug = *debug
		case "clip-min":
			cfg.Clip.Min = *clipMin
		case "clip-max":
			cfg.Clip.Max = *clipMax
		case "bg":
			b, err := composite.ParseBackground(*bg)
			flagErr = errors.Join(flagErr, err)
			cfg.Background = b
		case "dpi":
			cfg.DPI = *dpi
		case "normalize":
			cfg.NormalizeSize = *normalize
		}
	})
	if flagErr != nil {
		return flagErr
	}

	app := NewApp(*timeout, *cells)
	mesh, err := loadMesh(app, *in, *shape)
	if err != nil {
		return err
	}
	if *saveSTL != "" {
		if err := sdfx.SaveSTL(*saveSTL, mesh); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []depthmap.Option
	if cfg.Accurate && *verbose {
		opts = append(opts, depthmap.WithProgress(func(f float64) error {
			fmt.Fprintf(os.Stderr, "\rrendering %3.0f%%", f*100)
			if f >= 1 {
				fmt.Fprintln(os.Stderr)
			}
			return nil
		}))
	}

	result := app.Render(ctx, mesh, cfg, opts...)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Code, w.Message)
	}
	if !result.OK() {
		for _, e := range result.Errors {
			if e.Field != "" {
				fmt.Fprintf(os.Stderr, "error: %s (%s): %s\n", e.Code, e.Field, e.Message)
			} else {
				fmt.Fprintf(os.Stderr, "error: %s: %s\n", e.Code, e.Message)
			}
		}
		return errors.New("render failed")
	}

	if err := app.Export(result, *out, *format, *preview); err != nil {
		return err
	}
	if !*jsonOut {
		fmt.Printf("wrote %s (%dx%d, %d dpi, %s)\n", *out, result.Width, result.Height, result.DPI,
			time.Duration(result.ElapsedMS)*time.Millisecond)
	}
	return nil
}

func loadMesh(app *App, in, shape string) (*kernel.Mesh, error) {
	switch {
	case in != "" && shape != "":
		return nil, errors.New("use either -in or -shape, not both")
	case in != "":
		return app.LoadModel(in)
	case shape != "":
		return app.Shape(shape)
	}
	return nil, errors.New("no model: pass -in file.stl or -shape name")
}

func writeDiagnostics(ring *diagnostics.Ring, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	if err := ring.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
