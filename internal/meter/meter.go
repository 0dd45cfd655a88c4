// Package meter implements a simple peak/RMS level meter over the mixed
// output buffer, for hosts that want a running loudness readout. Kept
// separate from the mixer hot loop; the engine feeds it every mixed buffer
// whether or not the host reads the levels.
package meter

import "math"

// Meter accumulates peak and RMS level over a decaying window. Call
// Observe once per mixed buffer and read Peak/RMS at any time from the
// same goroutine driving Observe; Meter is not safe for concurrent use by
// more than one goroutine.
type Meter struct {
	decay    float64 // 0..1, fraction of the previous peak retained per buffer
	peak     float64
	rms      float64
	smoothed float64
}

// DefaultDecay keeps roughly 90% of the prior peak between buffers, giving
// a meter that falls back to zero over a few hundred milliseconds of
// silence instead of snapping instantly.
const DefaultDecay = 0.9

// New returns a Meter with DefaultDecay.
func New() *Meter {
	return &Meter{decay: DefaultDecay}
}

// Observe folds one interleaved stereo float64 buffer (the same shape the
// mixer writes into the accumulator) into the running peak and RMS
// estimate. Values are expected in the same unclipped range the mixer
// produces (roughly [-0x7FFF, 0x7FFF]).
func (m *Meter) Observe(acc []float64) {
	if len(acc) == 0 {
		return
	}
	var sum, bufPeak float64
	for _, v := range acc {
		av := math.Abs(v)
		if av > bufPeak {
			bufPeak = av
		}
		sum += v * v
	}
	bufRMS := math.Sqrt(sum / float64(len(acc)))

	if bufPeak > m.peak {
		m.peak = bufPeak
	} else {
		m.peak *= m.decay
	}
	m.smoothed = 0.3*bufRMS + 0.7*m.smoothed
	m.rms = m.smoothed
}

// Peak returns the most recent decaying peak level, in the same scale as
// the buffers passed to Observe (full scale is 0x7FFF).
func (m *Meter) Peak() float64 { return m.peak }

// RMS returns the smoothed RMS level, in the same scale as Observe's input.
func (m *Meter) RMS() float64 { return m.rms }

// PeakDB returns Peak converted to dBFS, using fullScale as 0 dB.
func (m *Meter) PeakDB(fullScale float64) float64 {
	return toDB(m.peak, fullScale)
}

// RMSDB returns RMS converted to dBFS, using fullScale as 0 dB.
func (m *Meter) RMSDB(fullScale float64) float64 {
	return toDB(m.rms, fullScale)
}

func toDB(v, fullScale float64) float64 {
	if v <= 0 || fullScale <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v/fullScale)
}

// RMSFloat32 returns the root-mean-square of a float32 PCM frame. Kept as
// a standalone helper (not folded into Meter) since callers that already
// have float32 input, such as a device capture path, can use it without
// allocating a float64 copy first.
func RMSFloat32(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(frame))))
}
