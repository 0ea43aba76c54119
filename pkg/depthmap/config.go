package depthmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/unstable-studios/threedepth/pkg/composite"
	"github.com/unstable-studios/threedepth/pkg/depth"
	"github.com/unstable-studios/threedepth/pkg/geometry"
	"github.com/unstable-studios/threedepth/pkg/raster"
)

// Resolutions are the square output sizes offered by the export dialog.
var Resolutions = []int{512, 1024, 2048}

// DPIPresets are the print densities offered by the export dialog.
var DPIPresets = []int{72, 150, 300}

// Resolution is the output size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Square returns a size×size resolution.
func Square(size int) Resolution {
	return Resolution{Width: size, Height: size}
}

// Config is the full set of options for one render. It is a value: a
// render reads it once and never keeps a reference.
type Config struct {
	Axis       geometry.Axis        `json:"axis"`
	Invert     bool                 `json:"invert"`
	Zoom       float64              `json:"zoom"`
	Resolution Resolution           `json:"resolution"`
	Accurate   bool                 `json:"accurate"`
	Debug      bool                 `json:"debugColors"`
	Clip       depth.Clip           `json:"depthClip"`
	Background composite.Background `json:"background"`
	DPI        int                  `json:"dpi"`

	// NormalizeSize, when > 0, rescales the model so its largest
	// dimension equals this value before rendering.
	NormalizeSize float64 `json:"normalizeSize,omitempty"`
}

// DefaultConfig returns the defaults of the desktop tool: Z up, zoom 1,
// 1024×1024, fast mode, full clip, transparent background, 150 DPI.
func DefaultConfig() Config {
	return Config{
		Axis:       geometry.AxisZ,
		Zoom:       1,
		Resolution: Square(1024),
		Clip:       depth.FullClip,
		Background: composite.Transparent,
		DPI:        150,
	}
}

// Validate checks every field and returns all problems joined. Each one
// is a ConfigError, so errors.Is(err, ErrInvalidConfig) holds.
func (c Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ConfigError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !c.Axis.Valid() {
		add("axis", "unknown axis %d", int(c.Axis))
	}
	if !(c.Zoom > 0) || math.IsInf(c.Zoom, 0) {
		add("zoom", "must be a finite number > 0, got %v", c.Zoom)
	}
	if c.Resolution.Width <= 0 || c.Resolution.Height <= 0 {
		add("resolution", "must be positive, got %dx%d", c.Resolution.Width, c.Resolution.Height)
	} else if c.Resolution.Width > raster.MaxDimension || c.Resolution.Height > raster.MaxDimension {
		add("resolution", "must not exceed %d per side, got %dx%d",
			raster.MaxDimension, c.Resolution.Width, c.Resolution.Height)
	}
	if err := c.Clip.Validate(); err != nil {
		add("depthClip", "%v", err)
	}
	if c.DPI <= 0 {
		add("dpi", "must be > 0, got %d", c.DPI)
	}
	if c.NormalizeSize < 0 || math.IsNaN(c.NormalizeSize) || math.IsInf(c.NormalizeSize, 0) {
		add("normalizeSize", "must be a finite number >= 0, got %v", c.NormalizeSize)
	}
	return errors.Join(errs...)
}

// LoadConfig reads a JSON config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
