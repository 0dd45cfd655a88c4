package boodler

// Transform is a stereo placement transform (scale_x, shift_x, scale_y,
// shift_y). It places a point, or a pair of points 2*`scale_x` apart,
// somewhere in the stereo field consumed by the point-source pan law.
type Transform struct {
	ScaleX, ShiftX float64
	ScaleY, ShiftY float64
}

// IdentityTransform is the neutral transform (1, 0, 1, 0) — the default
// used for any missing pan component.
var IdentityTransform = Transform{ScaleX: 1, ShiftX: 0, ScaleY: 1, ShiftY: 0}

// Compose composes outer after inner: composing outer (a,b,c,d) with inner
// (sx,hx,sy,hy) yields (sx*a, hx*a+b, sy*c, hy*c+d). Used to fold a
// channel's pan transform around the transform accumulated from its
// descendants (including, innermost, the note's own pan).
func (outer Transform) Compose(inner Transform) Transform {
	return Transform{
		ScaleX: inner.ScaleX * outer.ScaleX,
		ShiftX: inner.ShiftX*outer.ScaleX + outer.ShiftX,
		ScaleY: inner.ScaleY * outer.ScaleY,
		ShiftY: inner.ShiftY*outer.ScaleY + outer.ShiftY,
	}
}

// lerpTransform linearly interpolates each component of a and b by frac.
func lerpTransform(a, b Transform, frac float64) Transform {
	return Transform{
		ScaleX: a.ScaleX + (b.ScaleX-a.ScaleX)*frac,
		ShiftX: a.ShiftX + (b.ShiftX-a.ShiftX)*frac,
		ScaleY: a.ScaleY + (b.ScaleY-a.ScaleY)*frac,
		ShiftY: a.ShiftY + (b.ShiftY-a.ShiftY)*frac,
	}
}
