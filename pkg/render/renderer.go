package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/facet/pkg/math3d"
)

// Drawing methods report failures through these sentinel errors. A nil
// return means the call completed (even if every triangle was culled or
// dropped). No pixel or depth value is written once an error is detected.
var (
	ErrNoImage       = errors.New("render: no target framebuffer")
	ErrNoDepthBuffer = errors.New("render: no depth buffer")
	ErrNoTexture     = errors.New("render: no texture")
	ErrNoVertices    = errors.New("render: no vertices")
)

// Projection selects how view-space coordinates map to the depth buffer.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// DepthTest selects whether fragments are tested against a depth buffer.
type DepthTest int

const (
	DepthTestEnabled  DepthTest = iota // z-buffered, a depth buffer must be bound
	DepthTestDisabled                  // painter's order, no depth buffer needed
)

// Shader flags select the shading mode for a draw call.
// Gouraud falls back to flat when normals are unavailable, and Texture
// is ignored when texture coordinates or the texture itself are missing.
type Shader int

const (
	ShaderFlat    Shader = 1 << iota // per-face lighting
	ShaderGouraud                    // per-vertex lighting, interpolated
	ShaderTexture                    // texture mapping
)

// MaxViewportDim is the largest supported viewport extent on either axis.
const MaxViewportDim = 2048

// Config holds the fixed parameters of a Renderer.
type Config struct {
	Width      int        // viewport width in pixels
	Height     int        // viewport height in pixels
	Projection Projection // perspective or orthographic depth handling
	DepthTest  DepthTest  // enabled unless set to DepthTestDisabled
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("render: viewport %dx%d must be at least 1x1", c.Width, c.Height)
	}
	if c.Width > MaxViewportDim || c.Height > MaxViewportDim {
		return fmt.Errorf("render: viewport %dx%d exceeds maximum %d", c.Width, c.Height, MaxViewportDim)
	}
	return nil
}

// Stats counts per-frame rendering activity. Reset it whenever convenient;
// the renderer only ever increments the fields.
type Stats struct {
	TrianglesDrawn   int // triangles handed to the scan converter
	TrianglesCulled  int // triangles rejected by back-face culling
	TrianglesClipped int // triangles dropped by the conservative clip test
	MeshesDiscarded  int // whole meshes rejected by the bounding-box test
	VerticesShaded   int // vertices run through the lighting model
}

// Renderer is a software 3D renderer. It holds the full pipeline state:
// target buffers, transform matrices, light and material parameters.
//
// Setters keep derived quantities (model-view matrix, view-space light
// and halfway vectors, premultiplied material colors, the specular power
// table) up to date eagerly, so draw calls never recompute them.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	cfg Config

	fb      *Framebuffer
	zbuf    []float64
	offsetX int
	offsetY int
	cullDir float64
	clipXY  float64 // NDC clip bound, 2048/max(width,height)

	proj  math3d.Mat4 // stored with the Y axis already inverted
	view  math3d.Mat4
	model math3d.Mat4

	lightDir      math3d.Vec3
	ambientColor  ColorF
	diffuseColor  ColorF
	specularColor ColorF
	materialColor ColorF
	ambientStr    float64
	diffuseStr    float64
	specularStr   float64
	specularExpo  int

	// derived values, refreshed by the setters
	modelView      math3d.Mat4
	invNorm        float64     // 1/norm of a unit vector through modelView
	lightView      math3d.Vec3 // unit vector toward the light, view space
	lightViewScale math3d.Vec3 // lightView * invNorm
	halfway        math3d.Vec3 // Blinn-Phong halfway vector, view space
	halfwayScale   math3d.Vec3 // halfway * invNorm
	cAmbient       ColorF      // ambientColor * ambientStr
	cDiffuse       ColorF      // diffuseColor * diffuseStr
	cSpecular      ColorF      // specularColor * specularStr
	cObject        ColorF      // color applied when not texturing

	specTable [specTableSize]float64
	powFact   float64
	tablePow  int // exponent the table was computed for, -1 when stale

	Stats Stats
}

// NewRenderer creates a renderer with the classic default scene: a 45
// degree perspective (or a small orthographic box), the camera at the
// origin looking down -Z, a white light from (-1,-1,-1) and a matte
// silver material.
func NewRenderer(cfg Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mx := cfg.Width
	if cfg.Height > mx {
		mx = cfg.Height
	}
	r := &Renderer{
		cfg:      cfg,
		cullDir:  1,
		clipXY:   float64(MaxViewportDim) / float64(mx),
		view:     math3d.Identity(),
		model:    math3d.Identity(),
		tablePow: -1,
	}
	if cfg.Projection == Orthographic {
		r.SetOrtho(-16, 16, -12, 12, 1, 1000)
	} else {
		r.SetPerspective(45*math.Pi/180, float64(cfg.Width)/float64(cfg.Height), 1, 1000)
	}
	r.SetLookAt(math3d.Zero3(), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0))
	r.SetLight(math3d.V3(-1, -1, -1), CF(1, 1, 1), CF(1, 1, 1), CF(1, 1, 1))
	r.SetModelM(math3d.Identity())
	r.SetMaterial(CF(0.75, 0.75, 0.75), 0.15, 0.7, 0.5, 16)
	return r, nil
}

// Config returns the renderer configuration.
func (r *Renderer) Config() Config { return r.cfg }

// SetImage sets the framebuffer drawn onto. The framebuffer dimensions
// must not exceed the viewport.
func (r *Renderer) SetImage(fb *Framebuffer) {
	r.fb = fb
}

// SetOffset positions the framebuffer inside the viewport. This allows
// rendering a scene in stripes using a framebuffer smaller than the
// full viewport.
func (r *Renderer) SetOffset(ox, oy int) {
	r.offsetX = ox
	r.offsetY = oy
}

// SetZBuffer sets the depth buffer. It must hold at least width*height
// entries for the configured viewport.
func (r *Renderer) SetZBuffer(zbuf []float64) {
	r.zbuf = zbuf
}

// NewZBuffer allocates a depth buffer sized for the viewport and
// installs it.
func (r *Renderer) NewZBuffer() []float64 {
	zb := make([]float64, r.cfg.Width*r.cfg.Height)
	r.zbuf = zb
	return zb
}

// ClearZBuffer erases the depth buffer. Call it before each new frame.
// It is intentionally not cleared between draw calls so that several
// objects can be rendered into the same scene.
func (r *Renderer) ClearZBuffer() {
	for i := range r.zbuf {
		r.zbuf[i] = 0
	}
}

// checkTarget validates the target buffers before any drawing. A depth
// buffer is only required when depth testing is enabled.
func (r *Renderer) checkTarget() error {
	if r.fb == nil || r.fb.Width < 1 || r.fb.Height < 1 {
		return ErrNoImage
	}
	if r.cfg.DepthTest == DepthTestEnabled && len(r.zbuf) < r.cfg.Width*r.cfg.Height {
		return ErrNoDepthBuffer
	}
	return nil
}

// SetProjectionM sets the projection matrix, which maps view space to
// normalized device coordinates. For perspective projection the matrix
// must place -z in the W component.
//
// In view space the camera sits at the origin looking toward the
// negative Z axis with Y pointing up, as in OpenGL.
//
// The matrix is stored with its Y axis inverted so that screen Y grows
// downward; ProjectionM undoes the flip on retrieval.
func (r *Renderer) SetProjectionM(m math3d.Mat4) {
	r.proj = m.InvertYAxis()
}

// ProjectionM returns a copy of the projection matrix as it was given.
func (r *Renderer) ProjectionM() math3d.Mat4 {
	return r.proj.InvertYAxis()
}

// SetPerspective sets a perspective projection. fovy is the vertical
// field of view in radians.
func (r *Renderer) SetPerspective(fovy, aspect, near, far float64) {
	r.SetProjectionM(math3d.Perspective(fovy, aspect, near, far))
}

// SetFrustum sets a perspective projection from the near-plane rectangle.
func (r *Renderer) SetFrustum(left, right, bottom, top, near, far float64) {
	r.SetProjectionM(math3d.Frustum(left, right, bottom, top, near, far))
}

// SetOrtho sets an orthographic projection.
func (r *Renderer) SetOrtho(left, right, bottom, top, near, far float64) {
	r.SetProjectionM(math3d.Orthographic(left, right, bottom, top, near, far))
}

// SetViewM sets the view matrix transforming world coordinates into
// camera coordinates. Changing it moves the camera in world space.
func (r *Renderer) SetViewM(m math3d.Mat4) {
	r.view = m
	r.recomputeModelView()
	r.recomputeLight()
}

// ViewM returns a copy of the current view matrix.
func (r *Renderer) ViewM() math3d.Mat4 { return r.view }

// SetLookAt sets the view matrix so that the camera at eye looks toward
// center, with up giving the camera's up direction.
func (r *Renderer) SetLookAt(eye, center, up math3d.Vec3) {
	r.SetViewM(math3d.LookAt(eye, center, up))
}

// SetModelM sets the model matrix positioning the current object in
// world space.
func (r *Renderer) SetModelM(m math3d.Mat4) {
	r.model = m
	r.recomputeModelView()
	// light direction is view-space only, but its prescaled copies
	// depend on the model-view norm
	r.lightViewScale = r.lightView.Scale(r.invNorm)
	r.halfwayScale = r.halfway.Scale(r.invNorm)
}

// ModelM returns a copy of the current model matrix.
func (r *Renderer) ModelM() math3d.Mat4 { return r.model }

// SetCulling sets the face culling strategy.
//
//   - dir > 0: front faces are counter-clockwise, clockwise faces are
//     culled (the default)
//   - dir < 0: front faces are clockwise, counter-clockwise culled
//   - dir = 0: culling disabled, both faces drawn; supplied normals are
//     assumed to belong to the counter-clockwise face
func (r *Renderer) SetCulling(dir int) {
	switch {
	case dir > 0:
		r.cullDir = 1
	case dir < 0:
		r.cullDir = -1
	default:
		r.cullDir = 0
	}
}

// SetLightDirection sets the direction the light points to, in world
// coordinates. The direction is transformed by the view matrix at
// render time so the light does not move with the camera.
func (r *Renderer) SetLightDirection(dir math3d.Vec3) {
	r.lightDir = dir
	r.recomputeLight()
}

// SetLightAmbient sets the ambient light color.
func (r *Renderer) SetLightAmbient(c ColorF) {
	r.ambientColor = c
	r.cAmbient = c.Scale(r.ambientStr)
}

// SetLightDiffuse sets the diffuse light color.
func (r *Renderer) SetLightDiffuse(c ColorF) {
	r.diffuseColor = c
	r.cDiffuse = c.Scale(r.diffuseStr)
}

// SetLightSpecular sets the specular light color.
func (r *Renderer) SetLightSpecular(c ColorF) {
	r.specularColor = c
	r.cSpecular = c.Scale(r.specularStr)
}

// SetLight sets all light source parameters at once.
func (r *Renderer) SetLight(dir math3d.Vec3, ambient, diffuse, specular ColorF) {
	r.SetLightDirection(dir)
	r.SetLightAmbient(ambient)
	r.SetLightDiffuse(diffuse)
	r.SetLightSpecular(specular)
}

// SetMaterialColor sets the object color used when texturing is off.
func (r *Renderer) SetMaterialColor(c ColorF) {
	r.materialColor = c
	r.cObject = c
}

// SetMaterialAmbientStrength sets how much the material reflects the
// ambient light. Values above 1 simulate emissive surfaces.
func (r *Renderer) SetMaterialAmbientStrength(s float64) {
	r.ambientStr = clampf(s, 0, 10)
	r.cAmbient = r.ambientColor.Scale(r.ambientStr)
}

// SetMaterialDiffuseStrength sets how much the material reflects the
// diffuse light.
func (r *Renderer) SetMaterialDiffuseStrength(s float64) {
	r.diffuseStr = clampf(s, 0, 10)
	r.cDiffuse = r.diffuseColor.Scale(r.diffuseStr)
}

// SetMaterialSpecularStrength sets how much the material reflects the
// specular light.
func (r *Renderer) SetMaterialSpecularStrength(s float64) {
	r.specularStr = clampf(s, 0, 10)
	r.cSpecular = r.specularColor.Scale(r.specularStr)
}

// SetMaterialSpecularExponent sets the specular exponent, between 0
// (no specular highlight) and 100 (very glossy).
func (r *Renderer) SetMaterialSpecularExponent(e int) {
	if e < 0 {
		e = 0
	} else if e > 100 {
		e = 100
	}
	r.specularExpo = e
	r.precomputeSpecularTable(e)
}

// SetMaterial sets all material properties at once.
func (r *Renderer) SetMaterial(color ColorF, ambient, diffuse, specular float64, exponent int) {
	r.SetMaterialColor(color)
	r.SetMaterialAmbientStrength(ambient)
	r.SetMaterialDiffuseStrength(diffuse)
	r.SetMaterialSpecularStrength(specular)
	r.SetMaterialSpecularExponent(exponent)
}

func (r *Renderer) recomputeModelView() {
	r.modelView = r.view.Mul(r.model)
	r.invNorm = 1.0 / r.modelView.MulVec3Dir(math3d.V3(0, 0, 1)).Len()
}

func (r *Renderer) recomputeLight() {
	lv := r.view.MulVec3Dir(r.lightDir)
	r.lightView = lv.Negate().Normalize()
	r.lightViewScale = r.lightView.Scale(r.invNorm)
	// Approximate the view vector by +Z instead of the per-vertex
	// direction: much cheaper, nearly identical highlights.
	r.halfway = r.lightView.Add(math3d.V3(0, 0, 1)).Normalize()
	r.halfwayScale = r.halfway.Scale(r.invNorm)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
