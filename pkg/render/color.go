package render

import (
	"image/color"
	"math"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack   = color.RGBA{0, 0, 0, 255}
	ColorWhite   = color.RGBA{255, 255, 255, 255}
	ColorRed     = color.RGBA{255, 0, 0, 255}
	ColorGreen   = color.RGBA{0, 255, 0, 255}
	ColorBlue    = color.RGBA{0, 0, 255, 255}
	ColorYellow  = color.RGBA{255, 255, 0, 255}
	ColorCyan    = color.RGBA{0, 255, 255, 255}
	ColorMagenta = color.RGBA{255, 0, 255, 255}
	ColorGray    = color.RGBA{128, 128, 128, 255}
	ColorSky     = color.RGBA{135, 206, 235, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// RGBA creates a color from RGBA values.
func RGBA(r, g, b, a uint8) color.RGBA {
	return color.RGBA{r, g, b, a}
}

// ColorF is a floating-point RGB color used throughout the lighting
// pipeline. Components are nominally in [0,1] but may exceed 1 during
// accumulation; Clamp before converting to a display color.
type ColorF struct {
	R, G, B float64
}

// CF creates a ColorF from components.
func CF(r, g, b float64) ColorF {
	return ColorF{r, g, b}
}

// ColorFFromRGBA converts an 8-bit color to ColorF. Alpha is dropped.
func ColorFFromRGBA(c Color) ColorF {
	return ColorF{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Add returns the componentwise sum.
func (c ColorF) Add(o ColorF) ColorF {
	return ColorF{c.R + o.R, c.G + o.G, c.B + o.B}
}

// Mul returns the componentwise product.
func (c ColorF) Mul(o ColorF) ColorF {
	return ColorF{c.R * o.R, c.G * o.G, c.B * o.B}
}

// Scale multiplies all components by s.
func (c ColorF) Scale(s float64) ColorF {
	return ColorF{c.R * s, c.G * s, c.B * s}
}

// Lerp linearly interpolates between c and o.
func (c ColorF) Lerp(o ColorF, t float64) ColorF {
	return ColorF{
		c.R + (o.R-c.R)*t,
		c.G + (o.G-c.G)*t,
		c.B + (o.B-c.B)*t,
	}
}

// Clamp limits all components to [0,1].
func (c ColorF) Clamp() ColorF {
	return ColorF{
		math.Min(1, math.Max(0, c.R)),
		math.Min(1, math.Max(0, c.G)),
		math.Min(1, math.Max(0, c.B)),
	}
}

// RGBA converts to an opaque 8-bit display color, clamping first.
func (c ColorF) RGBA() Color {
	cl := c.Clamp()
	return Color{
		R: uint8(cl.R*255 + 0.5),
		G: uint8(cl.G*255 + 0.5),
		B: uint8(cl.B*255 + 0.5),
		A: 255,
	}
}

// lerpColor linearly interpolates between two 8-bit colors.
func lerpColor(a, b Color, t float64) Color {
	return Color{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: uint8(float64(a.A) + (float64(b.A)-float64(a.A))*t),
	}
}

// ModulateColor modulates one color by another (texture * lighting).
func ModulateColor(a, b Color) Color {
	return Color{
		R: uint8((int(a.R) * int(b.R)) / 255),
		G: uint8((int(a.G) * int(b.G)) / 255),
		B: uint8((int(a.B) * int(b.B)) / 255),
		A: uint8((int(a.A) * int(b.A)) / 255),
	}
}
