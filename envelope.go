package boodler

// VolumeEnvelope is a channel-tree volume fade (t0, t1, v0, v1):
// volume is v0 for t<=t0, v1 for t>=t1, linearly interpolated between.
type VolumeEnvelope struct {
	T0, T1 int64
	V0, V1 float64
}

// constantOver reports whether the envelope is entirely constant across
// [start, end) — i.e. the ramp has already finished or hasn't started yet.
func (e VolumeEnvelope) constantOver(start, end int64) bool {
	return e.T1 <= start || e.T0 >= end
}

// PanEnvelope is a channel-tree pan fade (t0, t1, P0, P1); interpolation is
// per-component linear between the two stereo transforms.
type PanEnvelope struct {
	T0, T1 int64
	P0, P1 Transform
}

func (e PanEnvelope) constantOver(start, end int64) bool {
	return e.T1 <= start || e.T0 >= end
}

// frac returns the envelope's own interpolation fraction at time t, clamped
// to [0,1]. Used to evaluate P0/P1 at a specific instant (not the buffer
// window) when folding a changing pan envelope into the running transform.
func (e PanEnvelope) frac(t int64) float64 {
	switch {
	case t >= e.T1:
		return 1
	case t <= e.T0:
		return 0
	default:
		return float64(t-e.T0) / float64(e.T1-e.T0)
	}
}

// fadeRange is one entry of the per-note volume- or pan-ranges scratch
// array: a linear fade (t0, t1, v0, v1) evaluated once per output
// frame via the range-mul primitive.
type fadeRange struct {
	t0, t1 float64
	v0, v1 float64
}

// valueAt implements the range-mul primitive: v1 at/after t1, v0 at/before
// t0, linear between.
func (r fadeRange) valueAt(t float64) float64 {
	switch {
	case t >= r.t1:
		return r.v1
	case t <= r.t0:
		return r.v0
	default:
		return r.v0 + (t-r.t0)/(r.t1-r.t0)*(r.v1-r.v0)
	}
}
