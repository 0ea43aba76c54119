package depthmap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned before any rendering work when a Config
	// fails validation. The concrete errors are ConfigError values.
	ErrInvalidConfig = errors.New("depthmap: invalid config")

	// ErrSuperseded is returned by Session.Render when a newer render was
	// started before this one completed. Its result is discarded.
	ErrSuperseded = errors.New("depthmap: render superseded by newer request")

	// ErrTimeout is returned by Session.Render when a render exceeds the
	// session timeout.
	ErrTimeout = errors.New("depthmap: render timed out")

	// ErrCanceled wraps the context or progress error that stopped a render.
	ErrCanceled = errors.New("depthmap: render canceled")
)

// ConfigError describes one invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes every ConfigError match ErrInvalidConfig.
func (e ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Warning codes.
const (
	// WarnFlatHeight: every vertex has the same height; the output is uniform.
	WarnFlatHeight = "FLAT_HEIGHT"
	// WarnFlatFootprint: the mesh has no XY extent; a unit window is used.
	WarnFlatFootprint = "FLAT_FOOTPRINT"
	// WarnEmptyMesh: the mesh has no triangles; the output is blank.
	WarnEmptyMesh = "EMPTY_MESH"
)

// Warning is a non-fatal condition found while rendering. The render
// still produced an image.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
