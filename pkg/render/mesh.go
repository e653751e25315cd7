package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// reuseFlag marks a face-stream vertex index that replaces slot 0 of
// the running triangle instead of slot 1.
const reuseFlag = 0x8000

// Mesh is a 3D model in chain-encoded form, ready for DrawMesh.
//
// Faces holds chains of triangles. Each chain starts with its triangle
// count (a count of 0 ends the stream). The first triangle lists three
// vertex records; every following triangle adds a single record and
// reuses two vertices of the previous triangle, the way triangle fans
// and strips do. A record is the vertex index, then the texture
// coordinate index when UVs is non-nil, then the normal index when
// Normals is non-nil. On continuation records bit 15 of the vertex
// index selects which of the two retained vertices is replaced.
//
// Meshes can be linked through Next so that a model with several
// textures or materials renders with one DrawMesh call.
type Mesh struct {
	Vertices []math3d.Vec3
	Normals  []math3d.Vec3 // nil when the mesh has no normals
	UVs      []math3d.Vec2 // nil when the mesh has no texture coordinates
	Faces    []uint16
	Texture  *Texture

	// Material, used when DrawMesh is told to prefer it over the
	// renderer's current material.
	Color            ColorF
	AmbientStrength  float64
	DiffuseStrength  float64
	SpecularStrength float64
	SpecularExponent int

	// Model-space bounding box; an all-zero box disables the
	// whole-mesh discard test.
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3

	Name string
	Next *Mesh
}

// DefaultMaterial fills in the standard matte silver material.
func (m *Mesh) DefaultMaterial() {
	m.Color = CF(0.75, 0.75, 0.75)
	m.AmbientStrength = 0.15
	m.DiffuseStrength = 0.7
	m.SpecularStrength = 0.5
	m.SpecularExponent = 16
}

// ComputeBounds recomputes the bounding box from the vertex array.
func (m *Mesh) ComputeBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin = math3d.Zero3()
		m.BoundsMax = math3d.Zero3()
		return
	}
	mn, mx := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		mn = mn.Min(v)
		mx = mx.Max(v)
	}
	m.BoundsMin = mn
	m.BoundsMax = mx
}

// recordLen is the number of uint16 slots one vertex record occupies.
func (m *Mesh) recordLen() int {
	n := 1
	if m.UVs != nil {
		n++
	}
	if m.Normals != nil {
		n++
	}
	return n
}

// TriangleCount walks the face stream and returns the total number of
// encoded triangles, chained meshes excluded.
func (m *Mesh) TriangleCount() int {
	rec := m.recordLen()
	total := 0
	i := 0
	for i < len(m.Faces) {
		nbt := int(m.Faces[i])
		i++
		if nbt == 0 {
			break
		}
		total += nbt
		i += 3*rec + (nbt-1)*rec
	}
	return total
}

// Corner identifies one corner of a triangle for the chain builder:
// the vertex index plus its attribute indices. UV and Norm are ignored
// (leave them 0) when the mesh lacks the corresponding array.
type Corner struct {
	Pos, UV, Norm int
}

// ChainBuilder encodes an indexed triangle list into the face-stream
// format, detecting fan/strip continuations so that shared vertices are
// stored (and later shaded) only once.
type ChainBuilder struct {
	hasUV   bool
	hasNorm bool

	faces    []uint16
	countIdx int // index of the open chain's triangle count, -1 if closed

	// the three corner slots of the running triangle
	slot [3]Corner
}

// NewChainBuilder creates a builder. hasUV and hasNorm must match the
// attribute arrays of the mesh the stream is destined for.
func NewChainBuilder(hasUV, hasNorm bool) *ChainBuilder {
	return &ChainBuilder{hasUV: hasUV, hasNorm: hasNorm, countIdx: -1}
}

func (b *ChainBuilder) pushCorner(c Corner, flag uint16) {
	b.faces = append(b.faces, uint16(c.Pos)|flag)
	if b.hasUV {
		b.faces = append(b.faces, uint16(c.UV))
	}
	if b.hasNorm {
		b.faces = append(b.faces, uint16(c.Norm))
	}
}

// AddTriangle appends one triangle. Corner order fixes the winding, so
// callers must pass front faces in their culling order consistently.
func (b *ChainBuilder) AddTriangle(c0, c1, c2 Corner) {
	tri := [3]Corner{c0, c1, c2}

	if b.countIdx >= 0 {
		// Try to continue the open chain: some cyclic rotation of the
		// new triangle must keep two slots and replace the third.
		for rot := range 3 {
			a := tri[rot]
			bb := tri[(rot+1)%3]
			cc := tri[(rot+2)%3]
			if a == b.slot[2] && bb == b.slot[1] {
				// new vertex replaces slot 0
				b.slot[0] = b.slot[2]
				b.slot[2] = cc
				b.pushCorner(cc, reuseFlag)
				b.faces[b.countIdx]++
				return
			}
			if a == b.slot[0] && bb == b.slot[2] {
				// new vertex replaces slot 1
				b.slot[1] = b.slot[2]
				b.slot[2] = cc
				b.pushCorner(cc, 0)
				b.faces[b.countIdx]++
				return
			}
		}
	}

	// start a new chain
	b.countIdx = len(b.faces)
	b.faces = append(b.faces, 1)
	b.pushCorner(c0, 0)
	b.pushCorner(c1, 0)
	b.pushCorner(c2, 0)
	b.slot = tri
}

// Faces closes the stream and returns it. The builder can keep
// accepting triangles afterwards; they start a fresh chain.
func (b *ChainBuilder) Faces() []uint16 {
	b.countIdx = -1
	return append(b.faces, 0)
}
