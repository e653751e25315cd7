package render

import (
	"math"
	"testing"

	"github.com/taigrr/facet/pkg/math3d"
)

func newLightingRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Config{Width: 32, Height: 32})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestSpecularTableDisabled(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetMaterialSpecularExponent(0)
	for _, x := range []float64{0, 0.3, 0.7, 1} {
		if got := r.powSpecular(x); got != 0 {
			t.Errorf("powSpecular(%v) = %v with exponent 0, want 0", x, got)
		}
	}
}

func TestPowSpecularFullAlignment(t *testing.T) {
	// A perfectly aligned highlight hits the first table entry exactly.
	r := newLightingRenderer(t)
	for _, expo := range []int{1, 4, 16, 64, 100} {
		r.SetMaterialSpecularExponent(expo)
		if got := r.powSpecular(1); math.Abs(got-1) > 1e-12 {
			t.Errorf("exponent %d: powSpecular(1) = %v, want 1", expo, got)
		}
	}
}

func TestPowSpecularApproximatesPow(t *testing.T) {
	r := newLightingRenderer(t)
	for _, expo := range []int{2, 8, 16, 32} {
		r.SetMaterialSpecularExponent(expo)
		fe := float64(expo)
		for x := 0.7; x <= 1.0; x += 0.01 {
			want := math.Pow(x, fe)
			got := r.powSpecular(x)
			if math.Abs(got-want) > 0.05 {
				t.Errorf("exponent %d: powSpecular(%v) = %v, want ~%v", expo, x, got, want)
			}
		}
	}
}

func TestPowSpecularSaturatesAboveOne(t *testing.T) {
	// Dot products above 1 occur when normals are sheared by a
	// non-uniform model matrix; they must saturate, not index off the
	// front of the table.
	r := newLightingRenderer(t)
	for _, expo := range []int{0, 1, 16, 100} {
		r.SetMaterialSpecularExponent(expo)
		want := r.powSpecular(1)
		for _, x := range []float64{1.001, 1.3, 4, 100} {
			if got := r.powSpecular(x); got != want {
				t.Errorf("exponent %d: powSpecular(%v) = %v, want %v", expo, x, got, want)
			}
		}
	}
}

func TestGouraudNonUniformScale(t *testing.T) {
	// Stretching the model on one axis makes transformed normals longer
	// than unit; per-vertex shading must still complete and draw.
	r, _ := newTestRenderer(t, 64, 64, Perspective)
	r.SetModelM(math3d.Scale(math3d.V3(4, 1, 1)))

	n := math3d.V3(1, 0, 0)
	err := r.DrawTriangleGouraud(
		math3d.V3(-1, -1, -5), math3d.V3(1, -1, -5), math3d.V3(0, 1, -5),
		n, n, n)
	if err != nil {
		t.Fatalf("DrawTriangleGouraud: %v", err)
	}
	if r.Stats.TrianglesDrawn != 1 {
		t.Errorf("TrianglesDrawn = %d, want 1", r.Stats.TrianglesDrawn)
	}
}

func TestPowSpecularMonotonic(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetMaterialSpecularExponent(16)
	prev := math.Inf(1)
	for x := 1.0; x >= 0; x -= 0.005 {
		got := r.powSpecular(x)
		if got > prev+1e-12 {
			t.Fatalf("powSpecular not monotonic: f(%v)=%v after %v", x, got, prev)
		}
		if got < 0 {
			t.Fatalf("powSpecular(%v) = %v, negative", x, got)
		}
		prev = got
	}
	// far off the table the highlight vanishes
	if got := r.powSpecular(0); got != 0 {
		t.Errorf("powSpecular(0) = %v, want 0", got)
	}
}

func TestSpecularTableMemoized(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetMaterialSpecularExponent(16)
	table := r.specTable

	// same exponent: nothing recomputed
	r.precomputeSpecularTable(16)
	if r.specTable != table {
		t.Errorf("table changed on identical exponent")
	}

	// switching away and back restores identical values
	r.SetMaterialSpecularExponent(4)
	if r.specTable == table {
		t.Errorf("table not recomputed for new exponent")
	}
	r.SetMaterialSpecularExponent(16)
	if r.specTable != table {
		t.Errorf("table differs after switching exponents back")
	}
}

func TestSpecularExponentClamped(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetMaterialSpecularExponent(1000)
	if r.specularExpo != 100 {
		t.Errorf("exponent = %d, want clamp to 100", r.specularExpo)
	}
	r.SetMaterialSpecularExponent(-5)
	if r.specularExpo != 0 {
		t.Errorf("exponent = %d, want clamp to 0", r.specularExpo)
	}
}

func TestPhongComponents(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetLight(r.lightDir, CF(1, 1, 1), CF(1, 1, 1), CF(1, 1, 1))
	r.SetMaterial(CF(1, 1, 1), 0.2, 0.5, 0.3, 16)

	t.Run("ambient only", func(t *testing.T) {
		got := r.phong(-1, -1, false)
		if math.Abs(got.R-0.2) > 1e-9 {
			t.Errorf("back-facing vertex R = %v, want ambient 0.2", got.R)
		}
	})

	t.Run("full alignment", func(t *testing.T) {
		got := r.phong(1, 1, false)
		want := 0.2 + 0.5 + 0.3 // ambient + diffuse + specular, clamped to 1
		if want > 1 {
			want = 1
		}
		if math.Abs(got.R-want) > 1e-9 {
			t.Errorf("aligned vertex R = %v, want %v", got.R, want)
		}
	})

	t.Run("clamped", func(t *testing.T) {
		r.SetMaterialAmbientStrength(5) // emissive
		defer r.SetMaterialAmbientStrength(0.2)
		got := r.phong(1, 1, false)
		if got.R > 1 || got.G > 1 || got.B > 1 {
			t.Errorf("phong output not clamped: %+v", got)
		}
	})

	t.Run("textured skips object color", func(t *testing.T) {
		r.SetMaterialColor(CF(0, 0, 0))
		defer r.SetMaterialColor(CF(1, 1, 1))
		if got := r.phong(1, -1, false); got.R != 0 {
			t.Errorf("black object lit untextured: R = %v, want 0", got.R)
		}
		if got := r.phong(1, -1, true); got.R == 0 {
			t.Errorf("textured shade multiplied by object color")
		}
	})
}

func TestDiffuseScalesWithAngle(t *testing.T) {
	r := newLightingRenderer(t)
	r.SetMaterial(CF(1, 1, 1), 0, 1, 0, 0)
	tests := []struct {
		name string
		d    float64
		want float64
	}{
		{"head on", 1, 1},
		{"sixty degrees", 0.5, 0.5},
		{"grazing", 0, 0},
		{"facing away", -0.7, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.phong(tc.d, -1, false)
			if math.Abs(got.R-tc.want) > 1e-9 {
				t.Errorf("phong(d=%v).R = %v, want %v", tc.d, got.R, tc.want)
			}
		})
	}
}
