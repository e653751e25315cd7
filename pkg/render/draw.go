package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// project transforms a view-space point into a rasterVertex, computing
// the NDC position, the depth key, and whether the conservative clip
// test wants the triangle dropped.
func (r *Renderer) project(q math3d.Vec3, rv *rasterVertex) (needClip bool) {
	c := r.proj.MulVec4(math3d.V4FromV3(q, 1))
	if r.cfg.Projection == Orthographic {
		rv.X, rv.Y, rv.Z = c.X, c.Y, c.Z
		rv.Key = 2 - c.Z
	} else {
		rv.X, rv.Y, rv.Z = c.X/c.W, c.Y/c.W, c.Z/c.W
		rv.Key = 1 / c.W
	}
	// A vertex at or behind the eye plane always trips the test; the
	// NDC coordinates are meaningless there.
	return q.Z >= 0 ||
		rv.X < -r.clipXY || rv.X > r.clipXY ||
		rv.Y < -r.clipXY || rv.Y > r.clipXY ||
		rv.Z < -1 || rv.Z > 1
}

// cullFactor computes the back-face culling factor for a view-space
// triangle. Positive means the face winds clockwise on screen.
func (r *Renderer) cullFactor(q0, faceN math3d.Vec3) float64 {
	if r.cfg.Projection == Orthographic {
		return -faceN.Z
	}
	return faceN.Dot(q0)
}

// renderTriangle runs the full pipeline on one triangle: model-view
// transform, back-face culling, conservative clip test (triangles that
// would need clipping are dropped whole), Phong shading, then scan
// conversion. normals and uvs may be nil depending on the shader.
func (r *Renderer) renderTriangle(shader Shader, p0, p1, p2 math3d.Vec3,
	normals *[3]math3d.Vec3, uvs *[3]math3d.Vec2, tex *Texture,
) {
	q0 := r.modelView.MulVec3(p0)
	q1 := r.modelView.MulVec3(p1)
	q2 := r.modelView.MulVec3(p2)

	faceN := q1.Sub(q0).Cross(q2.Sub(q0))
	cu := r.cullFactor(q0, faceN)
	if cu*r.cullDir > 0 {
		r.Stats.TrianglesCulled++
		return
	}

	var rv0, rv1, rv2 rasterVertex
	needClip := r.project(q0, &rv0)
	needClip = r.project(q1, &rv1) || needClip
	needClip = r.project(q2, &rv2) || needClip
	if needClip {
		// Triangles crossing the frustum boundary are dropped rather
		// than clipped.
		r.Stats.TrianglesClipped++
		return
	}

	textured := shader&ShaderTexture != 0
	var faceColor ColorF
	if shader&ShaderGouraud != 0 {
		// Reverse normals only when culling is disabled; normals are
		// assumed to belong to the counter-clockwise face.
		icu := 1.0
		if r.cullDir == 0 && cu > 0 {
			icu = -1
		}
		nn0 := r.modelView.MulVec3Dir(normals[0])
		nn1 := r.modelView.MulVec3Dir(normals[1])
		nn2 := r.modelView.MulVec3Dir(normals[2])
		rv0.Color = r.phong(icu*nn0.Dot(r.lightViewScale), icu*nn0.Dot(r.halfwayScale), textured)
		rv1.Color = r.phong(icu*nn1.Dot(r.lightViewScale), icu*nn1.Dot(r.halfwayScale), textured)
		rv2.Color = r.phong(icu*nn2.Dot(r.lightViewScale), icu*nn2.Dot(r.halfwayScale), textured)
		r.Stats.VerticesShaded += 3
	} else {
		icu := 1.0
		if cu > 0 {
			icu = -1
		}
		fn := faceN.Normalize()
		faceColor = r.phong(icu*fn.Dot(r.lightView), icu*fn.Dot(r.halfway), textured)
	}

	if textured {
		rv0.UV, rv1.UV, rv2.UV = uvs[0], uvs[1], uvs[2]
	}

	r.rasterizeTriangle(shader, &rv0, &rv1, &rv2, faceColor, tex)
}

// renderQuad draws a coplanar quad as two triangles sharing one culling
// and clipping decision, so the diagonal can never show a seam.
func (r *Renderer) renderQuad(shader Shader, p0, p1, p2, p3 math3d.Vec3,
	normals *[4]math3d.Vec3, uvs *[4]math3d.Vec2, tex *Texture,
) {
	q0 := r.modelView.MulVec3(p0)
	q1 := r.modelView.MulVec3(p1)
	q2 := r.modelView.MulVec3(p2)

	// Culling on triangle (0 1 2) decides for the whole quad since P3
	// is coplanar.
	faceN := q1.Sub(q0).Cross(q2.Sub(q0))
	cu := r.cullFactor(q0, faceN)
	if cu*r.cullDir > 0 {
		r.Stats.TrianglesCulled += 2
		return
	}

	q3 := r.modelView.MulVec3(p3)

	var rv0, rv1, rv2, rv3 rasterVertex
	needClip := r.project(q0, &rv0)
	needClip = r.project(q1, &rv1) || needClip
	needClip = r.project(q2, &rv2) || needClip
	needClip = r.project(q3, &rv3) || needClip
	if needClip {
		r.Stats.TrianglesClipped += 2
		return
	}

	textured := shader&ShaderTexture != 0
	var faceColor ColorF
	if shader&ShaderGouraud != 0 {
		icu := 1.0
		if r.cullDir == 0 && cu > 0 {
			icu = -1
		}
		for i, rv := range []*rasterVertex{&rv0, &rv1, &rv2, &rv3} {
			nn := r.modelView.MulVec3Dir(normals[i])
			rv.Color = r.phong(icu*nn.Dot(r.lightViewScale), icu*nn.Dot(r.halfwayScale), textured)
		}
		r.Stats.VerticesShaded += 4
	} else {
		icu := 1.0
		if cu > 0 {
			icu = -1
		}
		fn := faceN.Normalize()
		faceColor = r.phong(icu*fn.Dot(r.lightView), icu*fn.Dot(r.halfway), textured)
	}

	if textured {
		rv0.UV, rv1.UV, rv2.UV, rv3.UV = uvs[0], uvs[1], uvs[2], uvs[3]
	}

	r.rasterizeTriangle(shader, &rv0, &rv1, &rv2, faceColor, tex)
	r.rasterizeTriangle(shader, &rv0, &rv2, &rv3, faceColor, tex)
}

// DrawTriangle draws a flat-shaded triangle using the current material
// color. Vertices are in model space.
func (r *Renderer) DrawTriangle(p0, p1, p2 math3d.Vec3) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	r.renderTriangle(ShaderFlat, p0, p1, p2, nil, nil, nil)
	return nil
}

// DrawTriangleGouraud draws a triangle with per-vertex Phong lighting
// interpolated across the face.
func (r *Renderer) DrawTriangleGouraud(p0, p1, p2, n0, n1, n2 math3d.Vec3) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	normals := [3]math3d.Vec3{n0, n1, n2}
	r.renderTriangle(ShaderGouraud, p0, p1, p2, &normals, nil, nil)
	return nil
}

// DrawTriangleTextured draws a textured triangle with flat face lighting.
func (r *Renderer) DrawTriangleTextured(tex *Texture, p0, p1, p2 math3d.Vec3, t0, t1, t2 math3d.Vec2) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if tex == nil {
		return ErrNoTexture
	}
	uvs := [3]math3d.Vec2{t0, t1, t2}
	r.renderTriangle(ShaderFlat|ShaderTexture, p0, p1, p2, nil, &uvs, tex)
	return nil
}

// DrawTriangleTexturedGouraud draws a textured triangle with per-vertex
// lighting.
func (r *Renderer) DrawTriangleTexturedGouraud(tex *Texture, p0, p1, p2, n0, n1, n2 math3d.Vec3, t0, t1, t2 math3d.Vec2) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if tex == nil {
		return ErrNoTexture
	}
	normals := [3]math3d.Vec3{n0, n1, n2}
	uvs := [3]math3d.Vec2{t0, t1, t2}
	r.renderTriangle(ShaderGouraud|ShaderTexture, p0, p1, p2, &normals, &uvs, tex)
	return nil
}

// DrawQuad draws a flat-shaded quad. The four vertices must be coplanar.
func (r *Renderer) DrawQuad(p0, p1, p2, p3 math3d.Vec3) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	r.renderQuad(ShaderFlat, p0, p1, p2, p3, nil, nil, nil)
	return nil
}

// DrawQuadGouraud draws a coplanar quad with per-vertex lighting.
func (r *Renderer) DrawQuadGouraud(p0, p1, p2, p3, n0, n1, n2, n3 math3d.Vec3) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	normals := [4]math3d.Vec3{n0, n1, n2, n3}
	r.renderQuad(ShaderGouraud, p0, p1, p2, p3, &normals, nil, nil)
	return nil
}

// DrawQuadTextured draws a textured coplanar quad with flat lighting.
func (r *Renderer) DrawQuadTextured(tex *Texture, p0, p1, p2, p3 math3d.Vec3, t0, t1, t2, t3 math3d.Vec2) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if tex == nil {
		return ErrNoTexture
	}
	uvs := [4]math3d.Vec2{t0, t1, t2, t3}
	r.renderQuad(ShaderFlat|ShaderTexture, p0, p1, p2, p3, nil, &uvs, tex)
	return nil
}

// DrawQuadTexturedGouraud draws a textured coplanar quad with
// per-vertex lighting.
func (r *Renderer) DrawQuadTexturedGouraud(tex *Texture, p0, p1, p2, p3, n0, n1, n2, n3 math3d.Vec3, t0, t1, t2, t3 math3d.Vec2) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if tex == nil {
		return ErrNoTexture
	}
	normals := [4]math3d.Vec3{n0, n1, n2, n3}
	uvs := [4]math3d.Vec2{t0, t1, t2, t3}
	r.renderQuad(ShaderGouraud|ShaderTexture, p0, p1, p2, p3, &normals, &uvs, tex)
	return nil
}

// DrawTriangles draws an indexed triangle list. indices holds three
// vertex indices per triangle. normalIndices and uvIndices may be nil;
// the shader degrades accordingly (Gouraud without normals becomes
// flat, texturing without coordinates or a texture is dropped).
func (r *Renderer) DrawTriangles(shader Shader, indices []uint16, vertices []math3d.Vec3,
	normalIndices []uint16, normals []math3d.Vec3,
	uvIndices []uint16, uvs []math3d.Vec2, tex *Texture,
) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if len(indices) == 0 || len(vertices) == 0 {
		return ErrNoVertices
	}
	if normalIndices == nil || normals == nil {
		shader &^= ShaderGouraud
	}
	if uvIndices == nil || uvs == nil || tex == nil {
		shader &^= ShaderTexture
	}

	var nrm [3]math3d.Vec3
	var tuv [3]math3d.Vec2
	for n := 0; n+2 < len(indices); n += 3 {
		pn, pt := (*[3]math3d.Vec3)(nil), (*[3]math3d.Vec2)(nil)
		if shader&ShaderGouraud != 0 {
			nrm[0] = normals[normalIndices[n]]
			nrm[1] = normals[normalIndices[n+1]]
			nrm[2] = normals[normalIndices[n+2]]
			pn = &nrm
		}
		if shader&ShaderTexture != 0 {
			tuv[0] = uvs[uvIndices[n]]
			tuv[1] = uvs[uvIndices[n+1]]
			tuv[2] = uvs[uvIndices[n+2]]
			pt = &tuv
		}
		r.renderTriangle(shader, vertices[indices[n]], vertices[indices[n+1]], vertices[indices[n+2]], pn, pt, tex)
	}
	return nil
}

// DrawQuads draws an indexed quad list, four vertex indices per quad.
// Each quad must be coplanar. Optional attribute arrays behave as in
// DrawTriangles.
func (r *Renderer) DrawQuads(shader Shader, indices []uint16, vertices []math3d.Vec3,
	normalIndices []uint16, normals []math3d.Vec3,
	uvIndices []uint16, uvs []math3d.Vec2, tex *Texture,
) error {
	if err := r.checkTarget(); err != nil {
		return err
	}
	if len(indices) == 0 || len(vertices) == 0 {
		return ErrNoVertices
	}
	if normalIndices == nil || normals == nil {
		shader &^= ShaderGouraud
	}
	if uvIndices == nil || uvs == nil || tex == nil {
		shader &^= ShaderTexture
	}

	var nrm [4]math3d.Vec3
	var tuv [4]math3d.Vec2
	for n := 0; n+3 < len(indices); n += 4 {
		pn, pt := (*[4]math3d.Vec3)(nil), (*[4]math3d.Vec2)(nil)
		if shader&ShaderGouraud != 0 {
			for k := range 4 {
				nrm[k] = normals[normalIndices[n+k]]
			}
			pn = &nrm
		}
		if shader&ShaderTexture != 0 {
			for k := range 4 {
				tuv[k] = uvs[uvIndices[n+k]]
			}
			pt = &tuv
		}
		r.renderQuad(shader, vertices[indices[n]], vertices[indices[n+1]], vertices[indices[n+2]], vertices[indices[n+3]], pn, pt, tex)
	}
	return nil
}
