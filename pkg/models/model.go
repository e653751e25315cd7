// Package models loads 3D model files into renderable mesh chains.
package models

import (
	"fmt"
	"image"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// maxChainVertices is the largest vertex count a single mesh can hold:
// face-stream vertex indices reserve their top bit for reuse encoding.
const maxChainVertices = 1 << 15

// Material carries the PBR parameters read from a model file.
type Material struct {
	Name      string
	BaseColor [4]float64  // RGBA in 0-1 range
	Metallic  float64     // 0 = dielectric, 1 = metal
	Roughness float64     // 0 = smooth, 1 = rough
	BaseImage image.Image // optional base color texture
}

// Primitive is one batch of triangles sharing a material, as read from
// a model file. Indices address all three attribute arrays at once.
type Primitive struct {
	Name      string
	Positions []math3d.Vec3
	Normals   []math3d.Vec3 // nil when the file has none
	UVs       []math3d.Vec2 // nil when the file has none
	Indices   []int         // triangle list, counter-clockwise front faces
	Material  Material
}

// CalculateSmoothNormals fills Normals with area-weighted averages of
// the adjacent face normals.
func (p *Primitive) CalculateSmoothNormals() {
	normals := make([]math3d.Vec3, len(p.Positions))
	for i := 0; i+2 < len(p.Indices); i += 3 {
		i0, i1, i2 := p.Indices[i], p.Indices[i+1], p.Indices[i+2]
		v0 := p.Positions[i0]
		e1 := p.Positions[i1].Sub(v0)
		e2 := p.Positions[i2].Sub(v0)
		// cross product length is proportional to face area, so the
		// accumulated sum is area weighted for free
		n := e1.Cross(e2)
		normals[i0] = normals[i0].Add(n)
		normals[i1] = normals[i1].Add(n)
		normals[i2] = normals[i2].Add(n)
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	p.Normals = normals
}

// BuildMesh converts one primitive into a chain-encoded render mesh.
func (p *Primitive) BuildMesh() (*render.Mesh, error) {
	if len(p.Positions) == 0 || len(p.Indices) < 3 {
		return nil, fmt.Errorf("models: primitive %q has no geometry", p.Name)
	}
	if len(p.Positions) > maxChainVertices {
		return nil, fmt.Errorf("models: primitive %q has %d vertices, limit is %d",
			p.Name, len(p.Positions), maxChainVertices)
	}

	m := &render.Mesh{
		Name:     p.Name,
		Vertices: p.Positions,
		Normals:  p.Normals,
		UVs:      p.UVs,
	}
	m.DefaultMaterial()
	m.Color = render.CF(p.Material.BaseColor[0], p.Material.BaseColor[1], p.Material.BaseColor[2])
	// rough surfaces scatter the highlight: fade the specular term and
	// widen the lobe as roughness grows
	m.SpecularStrength = 0.5 * (1 - p.Material.Roughness)
	m.SpecularExponent = 4 + int((1-p.Material.Roughness)*60)

	if p.Material.BaseImage != nil && p.UVs != nil {
		tex, err := render.TextureFromImage(p.Material.BaseImage)
		if err != nil {
			return nil, fmt.Errorf("models: primitive %q texture: %w", p.Name, err)
		}
		m.Texture = tex
	}

	b := render.NewChainBuilder(p.UVs != nil, p.Normals != nil)
	for i := 0; i+2 < len(p.Indices); i += 3 {
		b.AddTriangle(
			corner(p.Indices[i]),
			corner(p.Indices[i+1]),
			corner(p.Indices[i+2]),
		)
	}
	m.Faces = b.Faces()
	m.ComputeBounds()
	return m, nil
}

func corner(i int) render.Corner {
	return render.Corner{Pos: i, UV: i, Norm: i}
}

// BuildChain converts a slice of primitives into a linked mesh chain so
// a model with several materials renders with a single DrawMesh call.
func BuildChain(prims []Primitive) (*render.Mesh, error) {
	var head, tail *render.Mesh
	for i := range prims {
		m, err := prims[i].BuildMesh()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = m
		} else {
			tail.Next = m
		}
		tail = m
	}
	if head == nil {
		return nil, fmt.Errorf("models: no primitives")
	}
	return head, nil
}

// ChainBounds returns the bounding box of an entire mesh chain.
func ChainBounds(m *render.Mesh) (mn, mx math3d.Vec3) {
	first := true
	for ; m != nil; m = m.Next {
		if len(m.Vertices) == 0 {
			continue
		}
		if first {
			mn, mx = m.BoundsMin, m.BoundsMax
			first = false
			continue
		}
		mn = mn.Min(m.BoundsMin)
		mx = mx.Max(m.BoundsMax)
	}
	return mn, mx
}
