package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// DrawWireframe renders the edges of a mesh chain as lines, using the
// current model-view and projection matrices. Useful for debugging
// geometry and culling without any shading.
func (r *Renderer) DrawWireframe(m *Mesh, color Color) error {
	if r.fb == nil || r.fb.Width < 1 || r.fb.Height < 1 {
		return ErrNoImage
	}
	for ; m != nil; m = m.Next {
		r.wireframeSingle(m, color)
	}
	return nil
}

func (r *Renderer) wireframeSingle(m *Mesh, color Color) {
	rec := m.recordLen()
	face := m.Faces
	i := 0
	var s0, s1, s2 uint16
	for i < len(face) {
		nbt := int(face[i])
		i++
		if nbt == 0 {
			break
		}
		s0 = face[i] & 0x7fff
		i += rec
		s1 = face[i] & 0x7fff
		i += rec
		s2 = face[i] & 0x7fff
		i += rec
		for {
			r.drawEdge(m.Vertices[s0], m.Vertices[s1], color)
			r.drawEdge(m.Vertices[s1], m.Vertices[s2], color)
			r.drawEdge(m.Vertices[s2], m.Vertices[s0], color)
			nbt--
			if nbt == 0 {
				break
			}
			nv := face[i]
			if nv&reuseFlag != 0 {
				s0 = s2
			} else {
				s1 = s2
			}
			s2 = nv & 0x7fff
			i += rec
		}
	}
}

// DrawLine3D draws a model-space line segment projected onto the
// framebuffer. Segments entirely behind the camera are skipped.
func (r *Renderer) DrawLine3D(a, b math3d.Vec3, color Color) {
	r.drawEdge(a, b, color)
}

func (r *Renderer) drawEdge(a, b math3d.Vec3, color Color) {
	qa := r.modelView.MulVec3(a)
	qb := r.modelView.MulVec3(b)
	if r.cfg.Projection == Perspective && qa.Z >= 0 && qb.Z >= 0 {
		return
	}

	var va, vb rasterVertex
	if r.project(qa, &va) || r.project(qb, &vb) {
		return
	}

	lx, ly := float64(r.cfg.Width), float64(r.cfg.Height)
	x0 := int((va.X+1)*0.5*lx) - r.offsetX
	y0 := int((va.Y+1)*0.5*ly) - r.offsetY
	x1 := int((vb.X+1)*0.5*lx) - r.offsetX
	y1 := int((vb.Y+1)*0.5*ly) - r.offsetY
	r.fb.DrawLine(x0, y0, x1, y1, color)
}

// DrawAxes draws the model-space coordinate axes.
func (r *Renderer) DrawAxes(length float64) {
	origin := math3d.Zero3()
	r.drawEdge(origin, math3d.V3(length, 0, 0), ColorRed)
	r.drawEdge(origin, math3d.V3(0, length, 0), ColorGreen)
	r.drawEdge(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (r *Renderer) DrawGrid(size, step float64, color Color) {
	half := size / 2
	for x := -half; x <= half; x += step {
		r.drawEdge(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), color)
	}
	for z := -half; z <= half; z += step {
		r.drawEdge(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), color)
	}
}
