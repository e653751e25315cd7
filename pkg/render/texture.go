package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"math/bits"
	"os"

	xdraw "golang.org/x/image/draw"
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a 2D image for texture mapping.
//
// Dimensions are constrained to powers of two so that repeat wrapping
// reduces to a bit mask on the inner sampling loop.
type Texture struct {
	Width      int
	Height     int
	Pixels     []Color    // Row-major pixel data
	FilterMode FilterMode // Sampling filter mode

	maskU, maskV int // Width-1 and Height-1, valid because sizes are powers of two
}

// isPow2 reports whether n is a positive power of two.
func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// NewTexture creates an empty texture with the given dimensions.
// Width and height must be powers of two.
func NewTexture(width, height int) (*Texture, error) {
	if !isPow2(width) || !isPow2(height) {
		return nil, fmt.Errorf("texture dimensions must be powers of two, got %dx%d", width, height)
	}
	return &Texture{
		Width:      width,
		Height:     height,
		Pixels:     make([]Color, width*height),
		FilterMode: FilterNearest,
		maskU:      width - 1,
		maskV:      height - 1,
	}, nil
}

// LoadTexture loads a texture from an image file. Images whose dimensions
// are not powers of two are resampled up to the next power of two.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return TextureFromImage(img)
}

// TextureFromImage creates a texture from an image.Image, resampling to
// power-of-two dimensions when necessary.
func TextureFromImage(img image.Image) (*Texture, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if !isPow2(width) || !isPow2(height) {
		w2, h2 := nextPow2(width), nextPow2(height)
		dst := image.NewRGBA(image.Rect(0, 0, w2, h2))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		img = dst
		bounds = dst.Bounds()
		width, height = w2, h2
	}

	tex, err := NewTexture(width, height)
	if err != nil {
		return nil, err
	}

	for y := range height {
		for x := range width {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			r, g, b, a := c.RGBA()
			// RGBA returns 16-bit values, scale to 8-bit
			tex.SetPixel(x, y, Color{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: uint8(a >> 8),
			})
		}
	}

	return tex, nil
}

// NewCheckerTexture creates a procedural checkerboard texture.
// Width and height must be powers of two.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) (*Texture, error) {
	tex, err := NewTexture(width, height)
	if err != nil {
		return nil, err
	}
	for y := range height {
		for x := range width {
			cx := x / checkSize
			cy := y / checkSize
			if (cx+cy)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex, nil
}

// NewGradientTexture creates a horizontal gradient texture.
// Width and height must be powers of two.
func NewGradientTexture(width, height int, left, right Color) (*Texture, error) {
	tex, err := NewTexture(width, height)
	if err != nil {
		return nil, err
	}
	for y := range height {
		for x := range width {
			t := float64(x) / float64(width-1)
			tex.SetPixel(x, y, lerpColor(left, right, t))
		}
	}
	return tex, nil
}

// SetPixel sets a pixel in the texture.
func (t *Texture) SetPixel(x, y int, c Color) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y), wrapping out-of-range coordinates.
func (t *Texture) GetPixel(x, y int) Color {
	return t.Pixels[(y&t.maskV)*t.Width+(x&t.maskU)]
}

// Sample samples the texture at UV coordinates (0-1 range, repeat wrapped).
func (t *Texture) Sample(u, v float64) Color {
	// Flip V coordinate (image Y=0 at top, UV V=0 at bottom)
	v = 1.0 - v

	if t.FilterMode == FilterBilinear {
		return t.sampleBilinear(u, v)
	}
	return t.sampleNearest(u, v)
}

// sampleNearest returns the nearest pixel.
func (t *Texture) sampleNearest(u, v float64) Color {
	x := int(math.Floor(u * float64(t.Width)))
	y := int(math.Floor(v * float64(t.Height)))
	return t.GetPixel(x, y)
}

// sampleBilinear returns bilinearly interpolated color.
func (t *Texture) sampleBilinear(u, v float64) Color {
	// Convert to pixel coordinates
	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))

	// Fractional parts
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	// Sample 4 pixels, wrap handled by GetPixel's masks
	c00 := t.GetPixel(x0, y0)
	c10 := t.GetPixel(x0+1, y0)
	c01 := t.GetPixel(x0, y0+1)
	c11 := t.GetPixel(x0+1, y0+1)

	// Bilinear interpolation
	top := lerpColor(c00, c10, tx)
	bot := lerpColor(c01, c11, tx)
	return lerpColor(top, bot, ty)
}
