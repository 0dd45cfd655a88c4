package device

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"boodler/internal/buffertune"
)

// deviceLogger is a package-local diagnostic sink, separate from the root
// package's defaultLogger.
var deviceLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "boodler.device",
})

// paStream is the subset of *portaudio.Stream the adapter depends on,
// narrowed to a fake-able interface for tests.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Write() error
}

// candidateRates lists the device sample rates to try, in order, when
// opening a stream. hint is tried first; the rest is a descending list of
// rates PortAudio devices commonly support.
func candidateRates(hint int) []int {
	fallback := []int{48000, 44100, 32000, 22050, 16000, 8000}
	rates := make([]int, 0, len(fallback)+1)
	if hint > 0 {
		rates = append(rates, hint)
	}
	for _, r := range fallback {
		if r != hint {
			rates = append(rates, r)
		}
	}
	return rates
}

// resolveOutputDevice finds the named output device, or the host API's
// default output device if name is empty.
func resolveOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: default output device: %v", ErrDeviceInit, err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", ErrDeviceInit, err)
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: output device %q not found", ErrDeviceInit, name)
}

// PortAudioAdapter is a callback-driven sink backed by the
// gordonklaus/portaudio blocking Read/Write binding. The mixer thread
// (producer) feeds buffers into a ring; a dedicated writer goroutine
// (consumer) drains the ring and performs the blocking portaudio.Stream
// Write call that actually paces output against the hardware clock. A true
// OS-invoked callback cannot block, so the writer substitutes silence and
// proceeds immediately whenever the ring underruns, exactly like a native
// callback would.
type PortAudioAdapter struct {
	stream       paStream
	sampleRate   int
	framesPerBuf int

	r     *ring
	tuner *buffertune.Tuner

	outBuf []float32

	stopCh   chan struct{}
	wg       sync.WaitGroup
	writeErr atomic.Pointer[error]

	underrunWindow int
	underrunCount  int
}

// ErrDeviceInit and ErrWrite are this package's own error values; the root
// package defines separate sentinels of the same names.
var (
	ErrDeviceInit = fmt.Errorf("device init failed")
	ErrWrite      = fmt.Errorf("device write failed")
)

// OpenPortAudioAdapter initializes PortAudio, resolves deviceName (or the
// default output device if empty), negotiates a sample rate starting from
// rateHint, and opens an output stream of framesPerBuf frames with a ring
// of ringDepth slots (clamped to >= 2). It starts the stream and spawns the
// writer goroutine before returning.
func OpenPortAudioAdapter(deviceName string, rateHint, framesPerBuf, ringDepth int) (*PortAudioAdapter, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceInit, err)
	}

	dev, err := resolveOutputDevice(deviceName)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	var stream *portaudio.Stream
	var openErr error
	sampleRate := 0
	outBuf := make([]float32, 0)

	for _, rate := range candidateRates(rateHint) {
		buf := make([]float32, 2*framesPerBuf)
		params := portaudio.LowLatencyParameters(nil, dev)
		params.Output.Channels = 2
		params.SampleRate = float64(rate)
		params.FramesPerBuffer = framesPerBuf

		stream, openErr = portaudio.OpenStream(params, buf)
		if openErr == nil {
			sampleRate = rate
			outBuf = buf
			break
		}
	}
	if openErr != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrDeviceInit, openErr)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDeviceInit, err)
	}

	a := &PortAudioAdapter{
		stream:         stream,
		sampleRate:     sampleRate,
		framesPerBuf:   framesPerBuf,
		r:              newRing(ringDepth, framesPerBuf),
		tuner:          buffertune.New(ringDepth),
		outBuf:         outBuf,
		stopCh:         make(chan struct{}),
		underrunWindow: 50,
	}
	a.wg.Add(1)
	go a.writeLoop()
	return a, nil
}

// clipAndConvert clips acc to the 16-bit signed range and scales it down to
// the [-1,1] float32 range PortAudio's float sample format expects.
func clipAndConvert(acc []float64, out []float32) {
	for i, v := range acc {
		if v > 0x7FFF {
			v = 0x7FFF
		} else if v < -0x7FFF {
			v = -0x7FFF
		}
		out[i] = float32(v / 0x7FFF)
	}
}

// writeLoop is the consumer goroutine: it drains the ring with a
// non-blocking take, substituting silence on underrun, and performs the
// actual (blocking) device write on every iteration so output stays paced
// to the hardware clock regardless of whether the mixer kept up.
func (a *PortAudioAdapter) writeLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		data, ok := a.r.tryTake()
		a.recordUnderrun(!ok)
		if ok {
			clipAndConvert(data, a.outBuf)
			a.r.release()
		} else {
			for i := range a.outBuf {
				a.outBuf[i] = 0
			}
		}

		err := a.stream.Write()
		if err == portaudio.OutputUnderflowed {
			// Transient: the device consumed a partial buffer. Retry the
			// same data once; a second failure is treated as fatal.
			deviceLogger.Debug("output underflow, retrying write")
			err = a.stream.Write()
		}
		if err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrWrite, err)
			a.writeErr.Store(&wrapped)
		}
	}
}

// recordUnderrun folds one buffer's hit/miss outcome into the underrun-rate
// window, feeding the adaptive tuner once the window is full. The tuner's
// output is advisory: this adapter does not resize its ring live (unsafe
// mid-stream for a fixed-slot ring); a host noticing a climbing
// TargetRingDepth should reopen the adapter with a larger ringDepth.
func (a *PortAudioAdapter) recordUnderrun(missed bool) {
	if missed {
		a.underrunCount++
	}
	a.underrunWindow--
	if a.underrunWindow > 0 {
		return
	}
	rate := float64(a.underrunCount) / 50
	a.tuner.Observe(rate)
	a.underrunCount = 0
	a.underrunWindow = 50
}

// TargetRingDepth reports the adaptive tuner's current recommended ring
// depth, for a host to act on by reopening the adapter.
func (a *PortAudioAdapter) TargetRingDepth() int { return a.tuner.TargetDepth() }

// CurrentRingDepth reports the ring depth this adapter was opened with.
func (a *PortAudioAdapter) CurrentRingDepth() int { return a.r.depth() }

// SampleRate returns the negotiated device rate.
func (a *PortAudioAdapter) SampleRate() int { return a.sampleRate }

// FramesPerBuf returns the mixer's chunk size.
func (a *PortAudioAdapter) FramesPerBuf() int { return a.framesPerBuf }

// Write hands one mixed buffer to the ring, blocking until a slot is free.
func (a *PortAudioAdapter) Write(acc []float64) error {
	if p := a.writeErr.Load(); p != nil {
		return *p
	}
	a.r.put(acc)
	return nil
}

// Close stops the stream before tearing down, so the writer goroutine's
// blocking Write call is unblocked rather than racing a Close on the
// native stream handle (closing a stream still in use by another goroutine
// can crash inside the native layer). It then waits for the writer to exit
// and for the ring to drain before closing the stream and terminating
// PortAudio.
func (a *PortAudioAdapter) Close() error {
	close(a.stopCh)
	if err := a.stream.Stop(); err != nil {
		deviceLogger.Error("stream stop failed", "err", err)
	}
	a.wg.Wait()
	a.r.drain()

	err := a.stream.Close()
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("%w: close stream: %v", ErrDeviceInit, err)
	}
	return nil
}
