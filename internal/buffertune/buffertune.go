// Package buffertune provides adaptive ring-buffer depth selection for the
// PortAudio adapter, based on measured underrun rate.
package buffertune

// Ladder is the ordered list of ring-buffer depths (in slots) the tuner
// steps through. The low end favors latency; the high end trades a little
// latency for headroom against a noisy scheduler or a slow mixer thread.
var Ladder = []int{2, 3, 4, 6, 8, 12, 16}

// DefaultDepth is the ring depth used when no measurement is available yet.
const DefaultDepth = 3

// Tuner walks Ladder based on an exponentially smoothed underrun rate.
type Tuner struct {
	current  int
	smoothed float64
}

// New returns a Tuner seeded at the ladder rung closest to initialDepth.
func New(initialDepth int) *Tuner {
	return &Tuner{current: Ladder[stepIndex(initialDepth)]}
}

// stepIndex returns the index of the Ladder rung closest to depth.
func stepIndex(depth int) int {
	best, bestDist := 0, iabs(depth-Ladder[0])
	for i, step := range Ladder {
		if d := iabs(depth - step); d < bestDist {
			bestDist, best = d, i
		}
	}
	return best
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Observe folds one measurement window's underrun rate (0.0-1.0: fraction
// of buffers in the window that found an empty ring slot) into the
// smoothed estimate and steps the ladder: up a rung when underruns are
// frequent, down a rung after a sustained healthy period. Returns the new
// target depth.
func (t *Tuner) Observe(underrunRate float64) int {
	t.smoothed = SmoothRate(t.smoothed, underrunRate, 0.3)
	idx := stepIndex(t.current)
	switch {
	case t.smoothed > 0.02 && idx < len(Ladder)-1:
		idx++
	case t.smoothed < 0.002 && idx > 0:
		idx--
	}
	t.current = Ladder[idx]
	return t.current
}

// TargetDepth returns the most recently computed target ring depth.
func (t *Tuner) TargetDepth() int {
	return t.current
}

// SmoothRate applies exponentially weighted moving average smoothing to a
// raw rate measurement. alpha controls the weight of the new sample (0.0 =
// ignore new, 1.0 = ignore old).
func SmoothRate(smoothed, raw, alpha float64) float64 {
	return alpha*raw + (1-alpha)*smoothed
}
