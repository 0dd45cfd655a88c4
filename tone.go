package boodler

import "math"

// GenerateTone synthesizes a fade-enveloped sine wave as 16-bit signed mono
// PCM at the given sample rate, for use as a demo Sample when a host has no
// real audio asset to load. The linear fade-in/out envelope is long enough
// to avoid an audible click at either end.
func GenerateTone(freqHz float64, durationSec float64, sampleRate int) []byte {
	numFrames := int(float64(sampleRate) * durationSec)
	if numFrames < 1 {
		numFrames = 1
	}
	fadeFrames := sampleRate / 50 // 20 ms fade in/out
	if fadeFrames > numFrames/2 {
		fadeFrames = numFrames / 2
	}

	out := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		phase := 2 * math.Pi * freqHz * float64(i) / float64(sampleRate)
		sample := math.Sin(phase)

		envelope := 1.0
		if fadeFrames > 0 {
			if i < fadeFrames {
				envelope = float64(i) / float64(fadeFrames)
			} else if i >= numFrames-fadeFrames {
				envelope = float64(numFrames-1-i) / float64(fadeFrames)
			}
		}

		v := int16(sample * envelope * 0x7FFF)
		out[2*i] = byte(uint16(v))
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
