package render

import (
	"errors"
	"math"
	"testing"

	"github.com/taigrr/facet/pkg/math3d"
)

// newTestRenderer creates a renderer with an installed framebuffer and
// depth buffer, camera at the origin looking down -Z.
func newTestRenderer(t *testing.T, width, height int, proj Projection) (*Renderer, *Framebuffer) {
	t.Helper()
	r, err := NewRenderer(Config{Width: width, Height: height, Projection: proj})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	fb := NewFramebuffer(width, height)
	fb.Clear(ColorBlack)
	r.SetImage(fb)
	r.NewZBuffer()
	return r, fb
}

// cubeTriangles returns the 12 triangles of an axis-aligned cube, wound
// counter-clockwise seen from outside.
func cubeTriangles(center math3d.Vec3, half float64) [][3]math3d.Vec3 {
	c := center
	h := half
	p := func(dx, dy, dz float64) math3d.Vec3 {
		return math3d.V3(c.X+dx*h, c.Y+dy*h, c.Z+dz*h)
	}
	// corners: 0..3 front (z+), 4..7 back (z-)
	v := [8]math3d.Vec3{
		p(-1, -1, 1), p(1, -1, 1), p(1, 1, 1), p(-1, 1, 1),
		p(-1, -1, -1), p(1, -1, -1), p(1, 1, -1), p(-1, 1, -1),
	}
	quads := [6][4]int{
		{0, 1, 2, 3}, // front
		{5, 4, 7, 6}, // back
		{4, 0, 3, 7}, // left
		{1, 5, 6, 2}, // right
		{3, 2, 6, 7}, // top
		{4, 5, 1, 0}, // bottom
	}
	tris := make([][3]math3d.Vec3, 0, 12)
	for _, q := range quads {
		tris = append(tris, [3]math3d.Vec3{v[q[0]], v[q[1]], v[q[2]]})
		tris = append(tris, [3]math3d.Vec3{v[q[0]], v[q[2]], v[q[3]]})
	}
	return tris
}

func drawCube(r *Renderer, t *testing.T) {
	t.Helper()
	for _, tri := range cubeTriangles(math3d.V3(0.3, 0.2, -5), 0.5) {
		if err := r.DrawTriangle(tri[0], tri[1], tri[2]); err != nil {
			t.Fatalf("DrawTriangle: %v", err)
		}
	}
}

func TestTargetErrors(t *testing.T) {
	r, err := NewRenderer(Config{Width: 32, Height: 32})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	p0, p1, p2 := math3d.V3(0, 0, -5), math3d.V3(1, 0, -5), math3d.V3(0, 1, -5)

	if err := r.DrawTriangle(p0, p1, p2); !errors.Is(err, ErrNoImage) {
		t.Errorf("no framebuffer: got %v, want ErrNoImage", err)
	}

	r.SetImage(NewFramebuffer(32, 32))
	if err := r.DrawTriangle(p0, p1, p2); !errors.Is(err, ErrNoDepthBuffer) {
		t.Errorf("no depth buffer: got %v, want ErrNoDepthBuffer", err)
	}

	// a short depth buffer is as invalid as a missing one
	r.SetZBuffer(make([]float64, 10))
	if err := r.DrawTriangle(p0, p1, p2); !errors.Is(err, ErrNoDepthBuffer) {
		t.Errorf("short depth buffer: got %v, want ErrNoDepthBuffer", err)
	}

	r.NewZBuffer()
	if err := r.DrawTriangle(p0, p1, p2); err != nil {
		t.Errorf("valid target: got %v, want nil", err)
	}
	if err := r.DrawTriangleTextured(nil, p0, p1, p2,
		math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(0, 1)); !errors.Is(err, ErrNoTexture) {
		t.Errorf("nil texture: got %v, want ErrNoTexture", err)
	}
	if err := r.DrawTriangles(ShaderFlat, nil, nil, nil, nil, nil, nil, nil); !errors.Is(err, ErrNoVertices) {
		t.Errorf("empty batch: got %v, want ErrNoVertices", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"minimal", 1, 1, false},
		{"typical", 320, 240, false},
		{"maximum", MaxViewportDim, MaxViewportDim, false},
		{"zero width", 0, 100, true},
		{"negative height", 100, -1, true},
		{"too wide", MaxViewportDim + 1, 100, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{Width: tc.w, Height: tc.h}.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%dx%d) = %v, wantErr %v", tc.w, tc.h, err, tc.wantErr)
			}
		})
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	r, _ := newTestRenderer(t, 64, 64, Perspective)
	want := math3d.Perspective(math.Pi/3, 1.5, 0.5, 200)
	r.SetProjectionM(want)
	got := r.ProjectionM()
	for i := range 16 {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("ProjectionM[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestCullingComplementarity(t *testing.T) {
	// Per triangle, reversing the cull direction must flip the decision;
	// with culling off every triangle draws.
	culled := func(dir int) []bool {
		r, _ := newTestRenderer(t, 64, 64, Perspective)
		r.SetCulling(dir)
		out := make([]bool, 0, 12)
		for _, tri := range cubeTriangles(math3d.V3(0.3, 0.2, -5), 0.5) {
			before := r.Stats.TrianglesCulled
			if err := r.DrawTriangle(tri[0], tri[1], tri[2]); err != nil {
				t.Fatalf("DrawTriangle: %v", err)
			}
			out = append(out, r.Stats.TrianglesCulled > before)
		}
		if r.Stats.TrianglesClipped != 0 {
			t.Fatalf("cube inside the frustum was clipped: %d", r.Stats.TrianglesClipped)
		}
		return out
	}

	cPos := culled(1)
	cNeg := culled(-1)
	cOff := culled(0)

	total := 0
	for i := range cPos {
		if cPos[i] == cNeg[i] {
			t.Errorf("triangle %d: same cull decision (%v) for both directions", i, cPos[i])
		}
		if cOff[i] {
			t.Errorf("triangle %d culled with culling disabled", i)
		}
		if cPos[i] {
			total++
		}
	}
	// The eye's axis passes through the cube's x/y footprint, so only the
	// front face survives the default direction.
	if total != 10 {
		t.Errorf("culled %d of 12 triangles with the default direction, want 10", total)
	}
}

func TestBehindEyeDropped(t *testing.T) {
	r, fb := newTestRenderer(t, 64, 64, Perspective)
	err := r.DrawTriangle(math3d.V3(-1, -1, 5), math3d.V3(1, -1, 5), math3d.V3(0, 1, 5))
	if err != nil {
		t.Fatalf("DrawTriangle: %v", err)
	}
	if r.Stats.TrianglesClipped != 1 && r.Stats.TrianglesCulled != 1 {
		t.Errorf("behind-eye triangle neither culled nor dropped: %+v", r.Stats)
	}
	if r.Stats.TrianglesDrawn != 0 {
		t.Errorf("behind-eye triangle was rasterized")
	}
	for i, px := range fb.Pixels {
		if px != ColorBlack {
			t.Fatalf("pixel %d written by a dropped triangle", i)
		}
	}
}

func TestStraddlingTriangleDropped(t *testing.T) {
	// One vertex far outside the frustum: the whole triangle is dropped,
	// never partially drawn.
	r, fb := newTestRenderer(t, 64, 64, Perspective)
	err := r.DrawTriangle(math3d.V3(-0.5, -0.5, -5), math3d.V3(0.5, -0.5, -5), math3d.V3(0, 500, -5))
	if err != nil {
		t.Fatalf("DrawTriangle: %v", err)
	}
	if r.Stats.TrianglesClipped != 1 {
		t.Errorf("TrianglesClipped = %d, want 1", r.Stats.TrianglesClipped)
	}
	for i, px := range fb.Pixels {
		if px != ColorBlack {
			t.Fatalf("pixel %d written by a dropped triangle", i)
		}
	}
}

func TestFlatTriangleDraws(t *testing.T) {
	for _, proj := range []Projection{Perspective, Orthographic} {
		name := "perspective"
		if proj == Orthographic {
			name = "orthographic"
		}
		t.Run(name, func(t *testing.T) {
			r, fb := newTestRenderer(t, 64, 64, proj)
			err := r.DrawTriangle(math3d.V3(-2, -2, -10), math3d.V3(2, -2, -10), math3d.V3(0, 2, -10))
			if err != nil {
				t.Fatalf("DrawTriangle: %v", err)
			}
			if r.Stats.TrianglesDrawn != 1 {
				t.Fatalf("TrianglesDrawn = %d, want 1", r.Stats.TrianglesDrawn)
			}
			lit := 0
			for _, px := range fb.Pixels {
				if px != ColorBlack {
					lit++
				}
			}
			if lit == 0 {
				t.Errorf("triangle rasterized but no pixel written")
			}
		})
	}
}

func TestDepthOrdering(t *testing.T) {
	// A near triangle drawn after a far one must still win the depth test.
	r, fb := newTestRenderer(t, 64, 64, Perspective)
	r.SetCulling(0)
	r.SetMaterialColor(CF(1, 0, 0))
	if err := r.DrawTriangle(math3d.V3(-2, -2, -4), math3d.V3(2, -2, -4), math3d.V3(0, 2, -4)); err != nil {
		t.Fatal(err)
	}
	near := fb.GetPixel(32, 32)

	r2, fb2 := newTestRenderer(t, 64, 64, Perspective)
	r2.SetCulling(0)
	r2.SetMaterialColor(CF(0, 0, 1))
	if err := r2.DrawTriangle(math3d.V3(-3, -3, -8), math3d.V3(3, -3, -8), math3d.V3(0, 3, -8)); err != nil {
		t.Fatal(err)
	}
	r2.SetMaterialColor(CF(1, 0, 0))
	if err := r2.DrawTriangle(math3d.V3(-2, -2, -4), math3d.V3(2, -2, -4), math3d.V3(0, 2, -4)); err != nil {
		t.Fatal(err)
	}
	if got := fb2.GetPixel(32, 32); got != near {
		t.Errorf("near triangle lost the depth test: got %v, want %v", got, near)
	}

	// and drawing far after near must not overwrite
	r3, fb3 := newTestRenderer(t, 64, 64, Perspective)
	r3.SetCulling(0)
	r3.SetMaterialColor(CF(1, 0, 0))
	if err := r3.DrawTriangle(math3d.V3(-2, -2, -4), math3d.V3(2, -2, -4), math3d.V3(0, 2, -4)); err != nil {
		t.Fatal(err)
	}
	r3.SetMaterialColor(CF(0, 0, 1))
	if err := r3.DrawTriangle(math3d.V3(-3, -3, -8), math3d.V3(3, -3, -8), math3d.V3(0, 3, -8)); err != nil {
		t.Fatal(err)
	}
	if got := fb3.GetPixel(32, 32); got != near {
		t.Errorf("far triangle overwrote a nearer one: got %v, want %v", got, near)
	}
}

func TestDepthTestDisabled(t *testing.T) {
	// Without depth testing no z-buffer is required and triangles land in
	// painter's order: the last one drawn wins regardless of depth.
	r, err := NewRenderer(Config{Width: 64, Height: 64, DepthTest: DepthTestDisabled})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	fb := NewFramebuffer(64, 64)
	fb.Clear(ColorBlack)
	r.SetImage(fb)
	r.SetCulling(0)

	r.SetMaterialColor(CF(1, 0, 0))
	if err := r.DrawTriangle(math3d.V3(-2, -2, -4), math3d.V3(2, -2, -4), math3d.V3(0, 2, -4)); err != nil {
		t.Fatalf("near triangle without z-buffer: %v", err)
	}
	r.SetMaterialColor(CF(0, 0, 1))
	if err := r.DrawTriangle(math3d.V3(-3, -3, -8), math3d.V3(3, -3, -8), math3d.V3(0, 3, -8)); err != nil {
		t.Fatalf("far triangle without z-buffer: %v", err)
	}

	far := func() Color {
		r2, fb2 := newTestRenderer(t, 64, 64, Perspective)
		r2.SetCulling(0)
		r2.SetMaterialColor(CF(0, 0, 1))
		if err := r2.DrawTriangle(math3d.V3(-3, -3, -8), math3d.V3(3, -3, -8), math3d.V3(0, 3, -8)); err != nil {
			t.Fatal(err)
		}
		return fb2.GetPixel(32, 32)
	}()
	if got := fb.GetPixel(32, 32); got != far {
		t.Errorf("painter's order: got %v, want last-drawn color %v", got, far)
	}
}

func TestRenderDeterminism(t *testing.T) {
	render := func() []Color {
		r, fb := newTestRenderer(t, 64, 64, Perspective)
		n := math3d.V3(0, 0, 1)
		for _, tri := range cubeTriangles(math3d.V3(0, 0, -4), 0.8) {
			if err := r.DrawTriangleGouraud(tri[0], tri[1], tri[2], n, n, n); err != nil {
				t.Fatalf("DrawTriangleGouraud: %v", err)
			}
		}
		return fb.Pixels
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d differs between identical renders: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestQuadMatchesTwoTriangles(t *testing.T) {
	p := [4]math3d.Vec3{
		math3d.V3(-1, -1, -5), math3d.V3(1, -1, -5),
		math3d.V3(1, 1, -5), math3d.V3(-1, 1, -5),
	}

	rq, fbq := newTestRenderer(t, 64, 64, Perspective)
	if err := rq.DrawQuad(p[0], p[1], p[2], p[3]); err != nil {
		t.Fatalf("DrawQuad: %v", err)
	}

	rt, fbt := newTestRenderer(t, 64, 64, Perspective)
	if err := rt.DrawTriangle(p[0], p[1], p[2]); err != nil {
		t.Fatal(err)
	}
	if err := rt.DrawTriangle(p[0], p[2], p[3]); err != nil {
		t.Fatal(err)
	}

	for i := range fbq.Pixels {
		if fbq.Pixels[i] != fbt.Pixels[i] {
			t.Fatalf("pixel %d: quad %v vs triangles %v", i, fbq.Pixels[i], fbt.Pixels[i])
		}
	}
}

func TestQuadSharesCullDecision(t *testing.T) {
	// A back-facing quad rejects both halves with a single test.
	r, _ := newTestRenderer(t, 64, 64, Perspective)
	if err := r.DrawQuad(
		math3d.V3(-1, 1, -5), math3d.V3(1, 1, -5),
		math3d.V3(1, -1, -5), math3d.V3(-1, -1, -5),
	); err != nil {
		t.Fatalf("DrawQuad: %v", err)
	}
	if r.Stats.TrianglesCulled != 2 {
		t.Errorf("TrianglesCulled = %d, want 2", r.Stats.TrianglesCulled)
	}
	if r.Stats.TrianglesDrawn != 0 {
		t.Errorf("back-facing quad was rasterized")
	}
}

func TestOffsetStripes(t *testing.T) {
	// Rendering the scene in two half-height stripes must reproduce the
	// full-frame image exactly.
	full := func() *Framebuffer {
		r, fb := newTestRenderer(t, 64, 64, Perspective)
		drawCube(r, t)
		return fb
	}()

	r, err := NewRenderer(Config{Width: 64, Height: 64})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	stripe := NewFramebuffer(64, 32)
	r.SetImage(stripe)
	r.NewZBuffer()

	for _, oy := range []int{0, 32} {
		stripe.Clear(ColorBlack)
		r.ClearZBuffer()
		r.SetOffset(0, oy)
		drawCube(r, t)
		for y := range 32 {
			for x := range 64 {
				got := stripe.GetPixel(x, y)
				want := full.GetPixel(x, y+oy)
				if got != want {
					t.Fatalf("stripe oy=%d pixel (%d,%d): got %v, want %v", oy, x, y, got, want)
				}
			}
		}
	}
}

func TestLightFixedToWorld(t *testing.T) {
	// The light direction is given in world space: rotating the camera
	// must not change which face of the cube is lit.
	shade := func(viewYaw float64) Color {
		r, fb := newTestRenderer(t, 64, 64, Perspective)
		r.SetCulling(0)
		r.SetLightDirection(math3d.V3(0, 0, -1))
		r.SetMaterialSpecularStrength(0)
		eye := math3d.V3(5*math.Sin(viewYaw), 0, 5*math.Cos(viewYaw))
		r.SetLookAt(eye, math3d.Zero3(), math3d.V3(0, 1, 0))
		// full-screen facing quad at the origin, normal +Z
		fwd := eye.Normalize()
		right := math3d.V3(0, 1, 0).Cross(fwd).Normalize()
		up := fwd.Cross(right)
		p := func(sx, sy float64) math3d.Vec3 {
			return right.Scale(sx).Add(up.Scale(sy))
		}
		if err := r.DrawQuad(p(-1, -1), p(1, -1), p(1, 1), p(-1, 1)); err != nil {
			t.Fatalf("DrawQuad: %v", err)
		}
		return fb.GetPixel(32, 32)
	}

	a := shade(0)
	b := shade(0.3)
	if a == ColorBlack {
		t.Fatalf("lit face rendered black")
	}
	// identical to within rounding of the slightly different normals
	da := int(a.R) - int(b.R)
	if da < -8 || da > 8 {
		t.Errorf("camera motion changed the lighting: %v vs %v", a, b)
	}
}

func TestSetCullingNormalizes(t *testing.T) {
	r, _ := newTestRenderer(t, 8, 8, Perspective)
	r.SetCulling(17)
	if r.cullDir != 1 {
		t.Errorf("SetCulling(17): cullDir = %v, want 1", r.cullDir)
	}
	r.SetCulling(-3)
	if r.cullDir != -1 {
		t.Errorf("SetCulling(-3): cullDir = %v, want -1", r.cullDir)
	}
	r.SetCulling(0)
	if r.cullDir != 0 {
		t.Errorf("SetCulling(0): cullDir = %v, want 0", r.cullDir)
	}
}
