package depth

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidClip is returned by Clip.Validate.
var ErrInvalidClip = errors.New("depth: invalid clip range")

// Clip remaps the sub-range [Min,Max] of normalised depth to [0,1].
// Values below Min become 0 and values above Max become 1.
type Clip struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FullClip is the identity clip.
var FullClip = Clip{Min: 0, Max: 1}

// Validate requires 0 <= Min <= Max <= 1.
func (c Clip) Validate() error {
	if math.IsNaN(c.Min) || math.IsNaN(c.Max) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidClip)
	}
	if c.Min < 0 || c.Max > 1 {
		return fmt.Errorf("%w: [%v,%v] outside [0,1]", ErrInvalidClip, c.Min, c.Max)
	}
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %v > max %v", ErrInvalidClip, c.Min, c.Max)
	}
	return nil
}

// IsIdentity reports whether Apply leaves every value unchanged.
func (c Clip) IsIdentity() bool {
	return c.Min <= 0 && c.Max >= 1
}

// Apply remaps v. When Min == Max the clip is a threshold: values at or
// above it map to 1.
func (c Clip) Apply(v float64) float64 {
	switch {
	case v < c.Min:
		return 0
	case v > c.Max:
		return 1
	case c.Max <= c.Min:
		return 1
	}
	return (v - c.Min) / (c.Max - c.Min)
}

// ApplyByte remaps an 8-bit channel.
func (c Clip) ApplyByte(b uint8) uint8 {
	return Byte(c.Apply(float64(b) / 255))
}
