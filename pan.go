package boodler

import "math"

// panLaw implements the point-source pan law: a stereo position
// (x,y) maps to independent left/right gains. Inside the unit square the
// gains sum so that the louder side is always unity; outside it, the
// position is normalized back onto the unit square and the result is
// attenuated by the inverse square of how far out it was.
func panLaw(x, y float64) (gl, gr float64) {
	d := math.Max(math.Abs(x), math.Abs(y))
	if d > 1 {
		x /= d
		y /= d
	}
	// y participates only through d from here on.
	if x < 0 {
		gl, gr = 1, 1+x
	} else {
		gl, gr = 1-x, 1
	}
	if d > 1 {
		gl /= d * d
		gr /= d * d
	}
	return gl, gr
}

// normalizeStereoPan renormalizes the two point-source weight pairs
// produced by a stereo sample's two virtual channels so that a centered
// stereo source sums to unity. Exposed as the opt-in `pan-normalize`
// option.
func normalizeStereoPan(gl0, gr0, gl1, gr1 float64) (float64, float64, float64, float64) {
	if sumL := gl0 + gl1; sumL >= 0.001 {
		f := 1 / sumL
		gl0 *= f
		gl1 *= f
	}
	if sumR := gr0 + gr1; sumR >= 0.001 {
		f := 1 / sumR
		gr0 *= f
		gr1 *= f
	}
	return gl0, gr0, gl1, gr1
}
