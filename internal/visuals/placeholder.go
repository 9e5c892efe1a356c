package visuals

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"
)

// solid is a uniform image with finite bounds
type solid struct {
	*image.Uniform
	rect image.Rectangle
}

func (s solid) Bounds() image.Rectangle { return s.rect }

// WritePlaceholder writes a w x h PNG filled with c
func WritePlaceholder(path string, w, h int, c color.Color) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid placeholder size %dx%d", w, h)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	img := solid{Uniform: image.NewUniform(c), rect: image.Rect(0, 0, w, h)}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode placeholder: %w", err)
	}
	return f.Close()
}

// ParseHexColor parses "#rrggbb" or "#rgb". On error it returns opaque black.
func ParseHexColor(s string) (color.RGBA, error) {
	black := color.RGBA{A: 0xff}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return black, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return black, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
