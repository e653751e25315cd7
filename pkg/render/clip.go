package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// boxCorners enumerates the 8 corners of a bounding box.
func boxCorners(mn, mx math3d.Vec3) [8]math3d.Vec3 {
	return [8]math3d.Vec3{
		{X: mn.X, Y: mn.Y, Z: mn.Z},
		{X: mn.X, Y: mn.Y, Z: mx.Z},
		{X: mn.X, Y: mx.Y, Z: mn.Z},
		{X: mn.X, Y: mx.Y, Z: mx.Z},
		{X: mx.X, Y: mn.Y, Z: mn.Z},
		{X: mx.X, Y: mn.Y, Z: mx.Z},
		{X: mx.X, Y: mx.Y, Z: mn.Z},
		{X: mx.X, Y: mx.Y, Z: mx.Z},
	}
}

// toNDC projects a model-space point through m and returns NDC
// coordinates. Points at or behind the eye plane get z forced to -2 so
// that they register as outside the near plane.
func (r *Renderer) toNDC(p math3d.Vec3, m math3d.Mat4) (x, y, z float64) {
	s := m.MulVec4(math3d.V4FromV3(p, 1))
	if r.cfg.Projection == Orthographic {
		return s.X, s.Y, s.Z
	}
	x, y, z = s.X/s.W, s.Y/s.W, s.Z/s.W
	if s.W <= 0 {
		z = -2
	}
	return x, y, z
}

// discardBox reports whether a model-space bounding box projects fully
// outside the image, in which case the mesh can be skipped wholesale.
// It tests the 8 corners against 6 half-spaces widened by the image
// offset; only when every corner is outside the same half-space is the
// box rejected, so the test never discards anything visible. An
// all-zero box is treated as uninitialized and never discarded.
func (r *Renderer) discardBox(mn, mx math3d.Vec3, m math3d.Mat4) bool {
	if mn == math3d.Zero3() && mx == math3d.Zero3() {
		return false
	}

	ilx := 2.0 / float64(r.cfg.Width)
	bx := float64(r.offsetX-1)*ilx - 1
	Bx := float64(r.offsetX+r.fb.Width+1)*ilx - 1
	ily := 2.0 / float64(r.cfg.Height)
	by := float64(r.offsetY-1)*ily - 1
	By := float64(r.offsetY+r.fb.Height+1)*ily - 1

	fl := 63 // one bit per half-space, cleared when a corner is inside
	for _, c := range boxCorners(mn, mx) {
		x, y, z := r.toNDC(c, m)
		if x >= bx {
			fl &^= 1
		}
		if x <= Bx {
			fl &^= 2
		}
		if y >= by {
			fl &^= 4
		}
		if y <= By {
			fl &^= 8
		}
		if z >= -1 {
			fl &^= 16
		}
		if z <= 1 {
			fl &^= 32
		}
		if fl == 0 {
			return false
		}
	}
	return true
}

// clipTestNeeded reports whether triangles of a mesh with the given
// bounding box may need the per-triangle clip test. When every corner
// projects strictly inside the clip bounds the test can be skipped for
// the whole mesh.
func (r *Renderer) clipTestNeeded(mn, mx math3d.Vec3, m math3d.Mat4) bool {
	for _, c := range boxCorners(mn, mx) {
		x, y, z := r.toNDC(c, m)
		if x <= -r.clipXY || x >= r.clipXY ||
			y <= -r.clipXY || y >= r.clipXY ||
			z <= -1 || z >= 1 {
			return true
		}
	}
	return false
}
