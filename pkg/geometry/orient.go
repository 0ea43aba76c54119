// Package geometry holds the pure mesh transforms that run before a depth
// map is rendered: choosing the height axis, measuring bounds and the
// optional size normalisation. Every transform returns a new mesh and
// leaves its input untouched.
package geometry

import (
	"fmt"
	"strings"

	"github.com/unstable-studios/threedepth/pkg/kernel"
)

// Axis selects which source axis becomes the output height (Z).
type Axis int

const (
	AxisZ Axis = iota
	AxisY
	AxisX
)

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "z":
		return AxisZ, nil
	case "y":
		return AxisY, nil
	case "x":
		return AxisX, nil
	}
	return AxisZ, fmt.Errorf("geometry: unknown axis %q (want x, y or z)", s)
}

func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "z"
	case AxisY:
		return "y"
	case AxisX:
		return "x"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// MarshalText encodes the axis as "x", "y" or "z".
func (a Axis) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("geometry: invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText parses the form accepted by ParseAxis.
func (a *Axis) UnmarshalText(text []byte) error {
	v, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Valid reports whether a is one of the three defined axes.
func (a Axis) Valid() bool {
	return a == AxisZ || a == AxisY || a == AxisX
}

// Mirrors reports whether the remap for a is a reflection. Reflections
// reverse triangle winding, which matters to back-face culling.
func (a Axis) Mirrors() bool {
	return a == AxisY
}

// permute maps a source position to its oriented position:
//
//	Z -> (x, y, z)
//	Y -> (x, z, y)
//	X -> (y, z, x)
func (a Axis) permute(x, y, z float32) (float32, float32, float32) {
	switch a {
	case AxisY:
		return x, z, y
	case AxisX:
		return y, z, x
	}
	return x, y, z
}

// Orient returns a copy of m with the chosen axis moved to Z. Indices are
// copied unchanged. Normals, when present, are permuted like positions.
func Orient(m *kernel.Mesh, axis Axis) *kernel.Mesh {
	out := m.Clone()
	if out == nil || axis == AxisZ {
		return out
	}
	remap(out.Vertices, axis)
	remap(out.Normals, axis)
	return out
}

func remap(buf []float32, axis Axis) {
	for i := 0; i+2 < len(buf); i += 3 {
		buf[i], buf[i+1], buf[i+2] = axis.permute(buf[i], buf[i+1], buf[i+2])
	}
}
