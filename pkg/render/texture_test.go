package render

import (
	"image"
	"testing"
)

func TestNewTextureRequiresPowerOfTwo(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantErr       bool
	}{
		{"valid square", 64, 64, false},
		{"valid rect", 128, 32, false},
		{"one by one", 1, 1, false},
		{"non pow2 width", 3, 4, true},
		{"non pow2 height", 4, 6, true},
		{"zero width", 0, 8, true},
		{"negative", -4, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := NewTexture(tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTexture(%d, %d) error = %v, wantErr %v", tt.width, tt.height, err, tt.wantErr)
			}
			if err == nil && len(tex.Pixels) != tt.width*tt.height {
				t.Errorf("pixel buffer length = %d, want %d", len(tex.Pixels), tt.width*tt.height)
			}
		})
	}
}

func TestNextPow2(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1000, 1024},
	}
	for _, tt := range tests {
		if got := nextPow2(tt.in); got != tt.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// GetPixel wraps out-of-range coordinates with a mask rather than
// clamping, giving repeat addressing for free.
func TestGetPixelWraps(t *testing.T) {
	tex, err := NewTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	tex.SetPixel(1, 3, ColorRed)

	if got := tex.GetPixel(5, -1); got != ColorRed {
		t.Errorf("GetPixel(5, -1) = %v, want wrapped pixel (1,3) = %v", got, ColorRed)
	}
	if got := tex.GetPixel(1+4, 3+8); got != ColorRed {
		t.Errorf("GetPixel(5, 11) = %v, want wrapped pixel (1,3) = %v", got, ColorRed)
	}
}

// Sample flips V so that V=0 addresses the bottom image row and V near 1
// the top row, matching the usual UV convention.
func TestSampleFlipsV(t *testing.T) {
	tex, err := NewTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	tex.SetPixel(0, 0, ColorBlue) // top image row
	tex.SetPixel(0, 3, ColorRed)  // bottom image row

	if got := tex.Sample(0.1, 0.9); got != ColorBlue {
		t.Errorf("Sample(0.1, 0.9) = %v, want top row %v", got, ColorBlue)
	}
	if got := tex.Sample(0.1, 0.1); got != ColorRed {
		t.Errorf("Sample(0.1, 0.1) = %v, want bottom row %v", got, ColorRed)
	}
}

func TestNewCheckerTexture(t *testing.T) {
	tex, err := NewCheckerTexture(8, 8, 2, ColorWhite, ColorBlack)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, y int
		want Color
	}{
		{0, 0, ColorWhite},
		{1, 1, ColorWhite},
		{2, 0, ColorBlack},
		{0, 2, ColorBlack},
		{2, 2, ColorWhite},
	}
	for _, tt := range tests {
		if got := tex.GetPixel(tt.x, tt.y); got != tt.want {
			t.Errorf("checker (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	if _, err := NewCheckerTexture(6, 8, 2, ColorWhite, ColorBlack); err == nil {
		t.Error("expected error for non power-of-two checker texture")
	}
}

// Textures built from images with odd dimensions are resampled up to
// the next power of two.
func TestTextureFromImageResamples(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 7, 5))
	tex, err := TextureFromImage(img)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 8 || tex.Height != 8 {
		t.Errorf("resampled size = %dx%d, want 8x8", tex.Width, tex.Height)
	}
}

func TestBilinearBlendsNeighbors(t *testing.T) {
	tex, err := NewTexture(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	tex.SetPixel(0, 0, RGB(0, 0, 0))
	tex.SetPixel(1, 0, RGB(200, 200, 200))
	tex.SetPixel(0, 1, RGB(0, 0, 0))
	tex.SetPixel(1, 1, RGB(200, 200, 200))
	tex.FilterMode = FilterBilinear

	// Halfway between the two columns, away from the row seam.
	got := tex.Sample(0.5, 0.75)
	if got.R < 80 || got.R > 120 {
		t.Errorf("bilinear midpoint R = %d, want roughly 100", got.R)
	}
}
