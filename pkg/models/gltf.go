package models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// GLTFLoader loads GLTF/GLB files into renderable mesh chains.
type GLTFLoader struct {
	// CalculateNormals generates smooth normals for primitives that
	// ship without any.
	CalculateNormals bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{CalculateNormals: true}
}

// LoadGLB loads a binary GLTF (.glb) file with default options.
func LoadGLB(path string) (*render.Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a mesh chain, one link per
// primitive, with textures decoded and materials applied.
func (l *GLTFLoader) Load(path string) (*render.Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	prims, err := l.Primitives(doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return BuildChain(prims)
}

// Primitives extracts every triangle primitive of a document. dir is
// the directory external resources are resolved against.
func (l *GLTFLoader) Primitives(doc *gltf.Document, dir string) ([]Primitive, error) {
	images := imageCache{doc: doc, dir: dir}

	var prims []Primitive
	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				// Skip non-triangle primitives (lines, points, etc)
				continue
			}
			p, err := l.primitive(doc, m.Name, prim, &images)
			if err != nil {
				return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
			}
			if p != nil {
				prims = append(prims, *p)
			}
		}
	}
	return prims, nil
}

func (l *GLTFLoader) primitive(doc *gltf.Document, name string, prim *gltf.Primitive, images *imageCache) (*Primitive, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}

	positions, err := readVec3Accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	p := &Primitive{Name: name, Positions: positions}

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		p.Normals, err = readVec3Accessor(doc, normIdx)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := readVec2Accessor(doc, uvIdx)
		if err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
		// GLTF uses top-left origin (V=0 at top); flip for bottom-left
		for i := range uvs {
			uvs[i].Y = 1 - uvs[i].Y
		}
		p.UVs = uvs
	}

	if prim.Indices != nil {
		p.Indices, err = readIndices(doc, int(*prim.Indices))
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		// No indices, assume sequential triangles
		p.Indices = make([]int, len(positions))
		for i := range p.Indices {
			p.Indices[i] = i
		}
	}

	p.Material = Material{BaseColor: [4]float64{1, 1, 1, 1}, Roughness: 1}
	if prim.Material != nil {
		mat := doc.Materials[*prim.Material]
		p.Material.Name = mat.Name
		if pbr := mat.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				for i, v := range pbr.BaseColorFactor {
					p.Material.BaseColor[i] = float64(v)
				}
			}
			p.Material.Metallic = float64(pbr.MetallicFactorOrDefault())
			p.Material.Roughness = float64(pbr.RoughnessFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				tex := doc.Textures[pbr.BaseColorTexture.Index]
				if tex.Source != nil {
					img, err := images.decode(int(*tex.Source))
					if err != nil {
						return nil, fmt.Errorf("material %q: %w", mat.Name, err)
					}
					p.Material.BaseImage = img
				}
			}
		}
	}

	if p.Normals == nil && l.CalculateNormals {
		p.CalculateSmoothNormals()
	}
	return p, nil
}

// imageCache decodes document images at most once.
type imageCache struct {
	doc   *gltf.Document
	dir   string
	cache map[int]image.Image
}

func (c *imageCache) decode(idx int) (image.Image, error) {
	if img, ok := c.cache[idx]; ok {
		return img, nil
	}
	if idx < 0 || idx >= len(c.doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", idx)
	}

	var data []byte
	src := c.doc.Images[idx]
	switch {
	case src.BufferView != nil:
		bv := c.doc.BufferViews[*src.BufferView]
		buf := c.doc.Buffers[bv.Buffer]
		if buf.Data == nil {
			return nil, fmt.Errorf("image %d: buffer has no data", idx)
		}
		data = buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	case src.URI != "":
		var err error
		data, err = os.ReadFile(filepath.Join(c.dir, src.URI))
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", idx, err)
		}
	default:
		return nil, fmt.Errorf("image %d has no source", idx)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", idx, err)
	}
	if c.cache == nil {
		c.cache = make(map[int]image.Image)
	}
	c.cache[idx] = img
	return img, nil
}

// readVec3Accessor reads Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}

	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a GLTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}

	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case []uint8:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint16:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint32:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

// readAccessorData reads raw data from a GLTF accessor.
func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data")
	}

	start := int(bufferView.ByteOffset + accessor.ByteOffset)
	stride := int(bufferView.ByteStride)
	count := int(accessor.Count)

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12 // 3 floats * 4 bytes
		}
		result := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8 // 2 floats * 4 bytes
		}
		result := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorScalar:
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			if stride == 0 {
				stride = 1
			}
			result := make([]uint8, count)
			for i := range count {
				result[i] = bufData[start+i*stride]
			}
			return result, nil
		case gltf.ComponentUshort:
			if stride == 0 {
				stride = 2
			}
			result := make([]uint16, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
			}
			return result, nil
		case gltf.ComponentUint:
			if stride == 0 {
				stride = 4
			}
			result := make([]uint32, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint32(bufData[offset]) |
					uint32(bufData[offset+1])<<8 |
					uint32(bufData[offset+2])<<16 |
					uint32(bufData[offset+3])<<24
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
