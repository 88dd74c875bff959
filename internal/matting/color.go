package matting

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	ErrInvalidColor = errors.New("invalid hex color")
)

// ParseHexColor parses "#RRGGBB" (the leading '#' is optional) into an opaque RGB color.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ColorOrDefault is ParseHexColor with a fallback for malformed input.
func ColorOrDefault(s string, def color.NRGBA) color.NRGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		return def
	}
	return c
}

func HexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
