package overlay

import (
	"fmt"
	"image/color"
)

// NearBlack is the dark text color used on light backgrounds.
var NearBlack = color.RGBA{R: 0x0a, G: 0x0f, B: 0x1e, A: 0xff}

// White is the light text color used on dark backgrounds.
var White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// ParseHex parses a #RRGGBB color string.
func ParseHex(s string) (color.RGBA, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// ParseHexDefault parses a hex color, falling back to def on any error.
func ParseHexDefault(s string, def color.RGBA) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		return def
	}
	return c
}

// WithAlpha returns the color with its alpha channel replaced.
func WithAlpha(c color.RGBA, alpha float64) color.RGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	c.A = uint8(alpha * 255)
	return c
}

// Luminance computes perceived luminance of a color, normalized to [0, 1].
func Luminance(c color.RGBA) float64 {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255
	return 0.299*r + 0.587*g + 0.114*b
}

// ContrastColor returns a text color that stays legible against the given
// background: near-black over light backgrounds, white over dark ones.
func ContrastColor(bg color.RGBA) color.RGBA {
	if Luminance(bg) > 0.5 {
		return NearBlack
	}
	return White
}
