package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// meshVertex is one slot of the running triangle in the chain walker.
// Attributes other than the view-space position are filled lazily: a
// vertex shared with a culled or dropped triangle is only shaded once
// it reaches a triangle that actually rasterizes.
type meshVertex struct {
	q      math3d.Vec3 // view-space position
	rv     rasterVertex
	indUV  int
	indN   int
	missed bool // attributes not yet computed
}

// DrawMesh renders a mesh (and, when drawChained is set, every mesh
// linked after it) with the requested shader. Shader flags degrade per
// mesh: Gouraud needs normals and Texture needs both coordinates and a
// texture, so each mesh in a chain may render with a different
// effective mode.
//
// When useMeshMaterial is set, the mesh's own material drives the
// lighting and the renderer's material is restored afterwards.
func (r *Renderer) DrawMesh(shader Shader, m *Mesh, useMeshMaterial, drawChained bool) error {
	if err := r.checkTarget(); err != nil {
		return err
	}

	for ; m != nil; m = m.next(drawChained) {
		if len(m.Vertices) == 0 {
			continue
		}
		if useMeshMaterial {
			r.cAmbient = r.ambientColor.Scale(m.AmbientStrength)
			r.cDiffuse = r.diffuseColor.Scale(m.DiffuseStrength)
			r.cSpecular = r.specularColor.Scale(m.SpecularStrength)
			r.cObject = m.Color
			r.precomputeSpecularTable(m.SpecularExponent)
		} else {
			r.precomputeSpecularTable(r.specularExpo)
		}

		mode := shader
		if m.Normals == nil {
			mode &^= ShaderGouraud
		}
		if m.UVs == nil || m.Texture == nil {
			mode &^= ShaderTexture
		}
		r.drawMeshSingle(mode, m)
	}

	if useMeshMaterial {
		// restore the renderer's own material
		r.cAmbient = r.ambientColor.Scale(r.ambientStr)
		r.cDiffuse = r.diffuseColor.Scale(r.diffuseStr)
		r.cSpecular = r.specularColor.Scale(r.specularStr)
		r.cObject = r.materialColor
		r.precomputeSpecularTable(r.specularExpo)
	}
	return nil
}

func (m *Mesh) next(chained bool) *Mesh {
	if !chained {
		return nil
	}
	return m.Next
}

// drawMeshSingle walks one mesh's face stream and rasterizes it.
func (r *Renderer) drawMeshSingle(shader Shader, m *Mesh) {
	fullM := r.proj.Mul(r.modelView)

	// whole-mesh rejection against the widened frustum
	if r.discardBox(m.BoundsMin, m.BoundsMax, fullM) {
		r.Stats.MeshesDiscarded++
		return
	}

	// when the bounding box projects safely inside the clip bounds the
	// per-triangle clip test can be skipped for the entire mesh
	clipTest := r.clipTestNeeded(m.BoundsMin, m.BoundsMax, fullM)

	gouraud := shader&ShaderGouraud != 0
	textured := shader&ShaderTexture != 0
	hasUV := m.UVs != nil
	hasNorm := m.Normals != nil
	ortho := r.cfg.Projection == Orthographic

	var sa, sb, sc meshVertex
	pc0, pc1, pc2 := &sa, &sb, &sc

	face := m.Faces
	i := 0

	// readRecord consumes one vertex record into pc and returns the
	// vertex index (reuse flag included).
	readRecord := func(pc *meshVertex) uint16 {
		v := face[i]
		i++
		if hasUV {
			if textured {
				pc.indUV = int(face[i])
			}
			i++
		}
		if hasNorm {
			if gouraud {
				pc.indN = int(face[i])
			}
			i++
		}
		return v
	}

	for i < len(face) {
		nbt := int(face[i])
		i++
		if nbt == 0 {
			break
		}

		v0 := readRecord(pc0) & 0x7fff
		v1 := readRecord(pc1) & 0x7fff
		v2 := readRecord(pc2) & 0x7fff

		pc0.q = r.modelView.MulVec3(m.Vertices[v0])
		pc1.q = r.modelView.MulVec3(m.Vertices[v1])
		pc2.q = r.modelView.MulVec3(m.Vertices[v2])
		pc0.missed = true
		pc1.missed = true
		pc2.missed = true

		for {
			skip := false

			faceN := pc1.q.Sub(pc0.q).Cross(pc2.q.Sub(pc0.q))
			var cu float64
			if ortho {
				cu = -faceN.Z
			} else {
				cu = faceN.Dot(pc0.q)
			}

			switch {
			case cu*r.cullDir > 0:
				r.Stats.TrianglesCulled++
				skip = true

			case clipTest:
				// project the new vertex, and reprocess retained ones
				// whose last triangle never rasterized
				needClip := r.project(pc2.q, &pc2.rv)
				if pc0.missed {
					needClip = r.project(pc0.q, &pc0.rv) || needClip
				}
				if pc1.missed {
					needClip = r.project(pc1.q, &pc1.rv) || needClip
				}
				if needClip {
					r.Stats.TrianglesClipped++
					skip = true
				}

			default:
				r.project(pc2.q, &pc2.rv)
				if pc0.missed {
					r.project(pc0.q, &pc0.rv)
				}
				if pc1.missed {
					r.project(pc1.q, &pc1.rv)
				}
			}

			if !skip {
				var faceColor ColorF
				if gouraud {
					icu := 1.0
					if r.cullDir == 0 && cu > 0 {
						icu = -1
					}
					if pc0.missed {
						r.shadeMeshVertex(pc0, m, icu, textured)
					}
					if pc1.missed {
						r.shadeMeshVertex(pc1, m, icu, textured)
					}
					r.shadeMeshVertex(pc2, m, icu, textured)
				} else {
					icu := 1.0
					if cu > 0 {
						icu = -1
					}
					fn := faceN.Normalize()
					faceColor = r.phong(icu*fn.Dot(r.lightView), icu*fn.Dot(r.halfway), textured)
				}

				if textured {
					if pc0.missed {
						pc0.rv.UV = m.UVs[pc0.indUV]
					}
					if pc1.missed {
						pc1.rv.UV = m.UVs[pc1.indUV]
					}
					pc2.rv.UV = m.UVs[pc2.indUV]
				}

				pc0.missed = false
				pc1.missed = false
				pc2.missed = false

				r.rasterizeTriangle(shader, &pc0.rv, &pc1.rv, &pc2.rv, faceColor, m.Texture)
			}

			nbt--
			if nbt == 0 {
				break
			}

			// next triangle: one new vertex, bit 15 picks the slot it
			// pushes out
			if face[i]&reuseFlag != 0 {
				pc0, pc2 = pc2, pc0
			} else {
				pc1, pc2 = pc2, pc1
			}
			nv2 := readRecord(pc2) & 0x7fff
			pc2.q = r.modelView.MulVec3(m.Vertices[nv2])
			pc2.missed = true
		}
	}
}

// shadeMeshVertex computes the view-space normal and Phong color for
// one mesh vertex.
func (r *Renderer) shadeMeshVertex(pc *meshVertex, m *Mesh, icu float64, textured bool) {
	n := r.modelView.MulVec3Dir(m.Normals[pc.indN])
	pc.rv.Color = r.phong(icu*n.Dot(r.lightViewScale), icu*n.Dot(r.halfwayScale), textured)
	r.Stats.VerticesShaded++
}
