package render

import (
	"math"

	"github.com/taigrr/facet/pkg/math3d"
)

// rasterVertex is a vertex after projection, ready for scan conversion.
type rasterVertex struct {
	X, Y  float64 // NDC coordinates, Y growing downward
	Z     float64 // NDC depth, used by the clip test
	Key   float64 // depth key, larger is closer to the camera
	Color ColorF  // per-vertex color when Gouraud shading
	UV    math3d.Vec2
}

// rasterizeTriangle scan-converts a projected triangle into the target
// framebuffer with depth testing.
//
// Depth keys grow toward the camera (1/w for perspective, 2-z for
// orthographic) and the depth buffer starts at zero, so a single
// larger-wins comparison covers both projection modes.
func (r *Renderer) rasterizeTriangle(shader Shader, v0, v1, v2 *rasterVertex, faceColor ColorF, tex *Texture) {
	lx, ly := float64(r.cfg.Width), float64(r.cfg.Height)
	ox, oy := float64(r.offsetX), float64(r.offsetY)

	// NDC to framebuffer pixels; the projection matrix already flipped
	// the Y axis so no inversion happens here.
	x0 := (v0.X+1)*0.5*lx - ox
	y0 := (v0.Y+1)*0.5*ly - oy
	x1 := (v1.X+1)*0.5*lx - ox
	y1 := (v1.Y+1)*0.5*ly - oy
	x2 := (v2.X+1)*0.5*lx - ox
	y2 := (v2.Y+1)*0.5*ly - oy

	// Orient so the edge functions are positive inside. Both windings
	// reach this point whenever culling allows them.
	area := (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		x1, y1, x2, y2 = x2, y2, x1, y1
		area = -area
	}
	invArea := 1.0 / area

	minX := int(math.Max(0, math.Floor(min3(x0, x1, x2))))
	maxX := int(math.Min(float64(r.fb.Width-1), math.Ceil(max3(x0, x1, x2))))
	minY := int(math.Max(0, math.Floor(min3(y0, y1, y2))))
	maxY := int(math.Min(float64(r.fb.Height-1), math.Ceil(max3(y0, y1, y2))))
	if minX > maxX || minY > maxY {
		return
	}

	r.Stats.TrianglesDrawn++

	gouraud := shader&ShaderGouraud != 0
	textured := shader&ShaderTexture != 0 && tex != nil
	persp := r.cfg.Projection == Perspective
	depth := r.cfg.DepthTest == DepthTestEnabled
	fbw := r.fb.Width

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		row := y * fbw
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5

			// Edge functions give barycentric weights directly.
			w0 := ((x2-x1)*(py-y1) - (y2-y1)*(px-x1)) * invArea
			w1 := ((x0-x2)*(py-y2) - (y0-y2)*(px-x2)) * invArea
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			// The key is still needed without depth testing: it carries
			// 1/w for perspective-correct texture mapping.
			key := w0*v0.Key + w1*v1.Key + w2*v2.Key
			if depth && key <= r.zbuf[row+x] {
				continue
			}

			var col Color
			switch {
			case textured:
				var u, v float64
				if persp {
					// The depth key is 1/w, exactly the weight
					// needed for perspective-correct mapping.
					k0, k1, k2 := w0*v0.Key, w1*v1.Key, w2*v2.Key
					u = (k0*v0.UV.X + k1*v1.UV.X + k2*v2.UV.X) / key
					v = (k0*v0.UV.Y + k1*v1.UV.Y + k2*v2.UV.Y) / key
				} else {
					u = w0*v0.UV.X + w1*v1.UV.X + w2*v2.UV.X
					v = w0*v0.UV.Y + w1*v1.UV.Y + w2*v2.UV.Y
				}
				texCol := ColorFFromRGBA(tex.Sample(u, v))
				if gouraud {
					shade := v0.Color.Scale(w0).Add(v1.Color.Scale(w1)).Add(v2.Color.Scale(w2))
					col = texCol.Mul(shade).RGBA()
				} else {
					col = texCol.Mul(faceColor).RGBA()
				}
			case gouraud:
				col = v0.Color.Scale(w0).Add(v1.Color.Scale(w1)).Add(v2.Color.Scale(w2)).RGBA()
			default:
				col = faceColor.RGBA()
			}

			if depth {
				r.zbuf[row+x] = key
			}
			r.fb.Pixels[row+x] = col
		}
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
