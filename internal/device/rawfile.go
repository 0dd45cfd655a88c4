package device

import (
	"fmt"
	"io"
	"math"
)

// RawFileAdapter is a blocking-write sink: a single scratch
// buffer, filled and written synchronously inside Write with no ring and
// no writer goroutine, for adapters where the sink itself already blocks
// until the data is durable (a plain file, or a pipe to an external
// recorder process).
type RawFileAdapter struct {
	w            io.WriteCloser
	sampleRate   int
	framesPerBuf int
	scratch      []byte
	float32Out   bool
	bigEndian    bool
}

// NewRawFileAdapter wraps w as an Adapter that writes one interleaved
// stereo buffer per Write call: 16-bit signed PCM by default, or 32-bit
// little-endian float if float32Out is set. bigEndian flips the 16-bit
// byte order (the end=big option); it has no effect on float output.
func NewRawFileAdapter(w io.WriteCloser, sampleRate, framesPerBuf int, float32Out, bigEndian bool) *RawFileAdapter {
	bytesPerFrame := 4
	if float32Out {
		bytesPerFrame = 8
	}
	return &RawFileAdapter{
		w:            w,
		sampleRate:   sampleRate,
		framesPerBuf: framesPerBuf,
		scratch:      make([]byte, framesPerBuf*bytesPerFrame),
		float32Out:   float32Out,
		bigEndian:    bigEndian,
	}
}

// SampleRate returns the configured device rate.
func (a *RawFileAdapter) SampleRate() int { return a.sampleRate }

// FramesPerBuf returns the mixer's chunk size.
func (a *RawFileAdapter) FramesPerBuf() int { return a.framesPerBuf }

// Write clips and encodes acc into the scratch buffer and performs a
// single synchronous write to the underlying sink.
func (a *RawFileAdapter) Write(acc []float64) error {
	if a.float32Out {
		a.encodeFloat32(acc)
	} else {
		a.encodeInt16(acc)
	}
	if _, err := a.w.Write(a.scratch); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func (a *RawFileAdapter) encodeInt16(acc []float64) {
	for i, v := range acc {
		if v > 0x7FFF {
			v = 0x7FFF
		} else if v < -0x7FFF {
			v = -0x7FFF
		}
		s := int16(v)
		if a.bigEndian {
			a.scratch[2*i] = byte(uint16(s) >> 8)
			a.scratch[2*i+1] = byte(uint16(s))
		} else {
			a.scratch[2*i] = byte(uint16(s))
			a.scratch[2*i+1] = byte(uint16(s) >> 8)
		}
	}
}

func (a *RawFileAdapter) encodeFloat32(acc []float64) {
	for i, v := range acc {
		if v > 0x7FFF {
			v = 0x7FFF
		} else if v < -0x7FFF {
			v = -0x7FFF
		}
		bits := math.Float32bits(float32(v / 0x7FFF))
		a.scratch[4*i+0] = byte(bits)
		a.scratch[4*i+1] = byte(bits >> 8)
		a.scratch[4*i+2] = byte(bits >> 16)
		a.scratch[4*i+3] = byte(bits >> 24)
	}
}

// Close closes the underlying sink.
func (a *RawFileAdapter) Close() error {
	return a.w.Close()
}
