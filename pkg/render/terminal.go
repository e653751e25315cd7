package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// halfBlock renders two vertically stacked pixels per terminal cell:
// the foreground paints the upper half, the background the lower.
const halfBlock = "▀"

// Draw blits the framebuffer onto a terminal screen region. Every cell
// covers two framebuffer rows, so a framebuffer twice the terminal
// height fills the area with square-ish pixels.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	maxCol := min(area.Max.X, fb.Width)
	for row := area.Min.Y; row < area.Max.Y; row++ {
		top := row * 2
		if top >= fb.Height {
			break
		}
		for col := area.Min.X; col < maxCol; col++ {
			scr.SetCell(col, row, &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(col, top)),
					Bg: cellColor(fb.GetPixel(col, top+1)),
				},
			})
		}
	}
}

// cellColor converts a framebuffer pixel to a terminal cell color, with
// fully transparent pixels leaving the cell unpainted.
func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
