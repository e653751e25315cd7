package render

import "math"

// specTableSize is the number of entries in the precomputed power table
// used for the specular light component.
const specTableSize = 16

// precomputeSpecularTable fills the power table for the given exponent.
// Calling pow for every shaded vertex is too slow, so the table covers
// the useful range of the base and powSpecular interpolates between
// entries. A nonpositive exponent disables the specular component.
func (r *Renderer) precomputeSpecularTable(exponent int) {
	if r.tablePow == exponent {
		return
	}
	r.tablePow = exponent
	if exponent <= 0 {
		r.powFact = 0
		for k := range r.specTable {
			r.specTable[k] = 0
		}
		return
	}
	expo := float64(exponent)
	bbsp := math.Min(expo, 8)
	r.powFact = expo * specTableSize / bbsp
	for k := range r.specTable {
		v := 1 - (bbsp*float64(k))/(expo*specTableSize)
		r.specTable[k] = math.Pow(v, expo)
	}
}

// powSpecular approximates pow(x, exponent) by linear interpolation in
// the precomputed table. Inputs near 0 fall off the table and return 0.
// Inputs at or above 1 saturate at the first entry: normals sheared by a
// non-uniform model matrix can push the dot product past 1.
func (r *Renderer) powSpecular(x float64) float64 {
	indf := (1 - x) * r.powFact
	if indf <= 0 {
		return r.specTable[0]
	}
	indi := int(indf)
	if indi >= specTableSize-1 {
		return 0
	}
	return r.specTable[indi] + (indf-float64(indi))*(r.specTable[indi+1]-r.specTable[indi])
}

// phong computes a color according to the Phong lighting model.
// vDiffuse and vSpecular are the (possibly unclamped) N.L and N.H dot
// products. When texturing, the object color is left out since the
// texture sample supplies it.
func (r *Renderer) phong(vDiffuse, vSpecular float64, textured bool) ColorF {
	col := r.cAmbient
	col = col.Add(r.cDiffuse.Scale(math.Max(vDiffuse, 0)))
	col = col.Add(r.cSpecular.Scale(r.powSpecular(math.Max(vSpecular, 0))))
	if !textured {
		col = col.Mul(r.cObject)
	}
	return col.Clamp()
}
