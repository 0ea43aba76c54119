package composite

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gg"
)

// Background is either transparent or a solid colour.
type Background struct {
	Transparent bool
	Color       gg.RGBA
}

// Preset backgrounds.
var (
	Transparent = Background{Transparent: true}
	White       = Background{Color: gg.White}
	Black       = Background{Color: gg.Black}
)

// ParseBackground accepts "transparent", "white", "black" or a hex colour
// such as "#336699". The alpha of a hex colour is ignored.
func ParseBackground(s string) (Background, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "transparent", "none":
		return Transparent, nil
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	c, err := gg.ParseHex(strings.TrimSpace(s))
	if err != nil {
		return Background{}, fmt.Errorf("composite: background: %w", err)
	}
	c.A = 1
	return Background{Color: c}, nil
}

// String returns the form accepted by ParseBackground.
func (b Background) String() string {
	if b.Transparent {
		return "transparent"
	}
	return fmt.Sprintf("#%02x%02x%02x", to8(b.Color.R), to8(b.Color.G), to8(b.Color.B))
}

// MarshalText encodes the background as its string form.
func (b Background) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses the string form.
func (b *Background) UnmarshalText(text []byte) error {
	v, err := ParseBackground(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
