package boodler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"boodler/internal/meter"
)

// meterFullScale is the 0 dBFS reference used when converting the engine's
// level meter to decibels: the positive full-scale value of the 16-bit
// range Sample.Load decodes PCM into, and the level the adapters clip to.
const meterFullScale = 0x7FFF

// Adapter is the producer side of the device-adapter contract: the
// engine hands it one interleaved stereo float64 accumulator buffer per
// tick (unclipped, length 2*FramesPerBuf()); the adapter clips, converts,
// and ships it to a concrete sink. See internal/device for the concrete
// PortAudio and raw-file implementations.
type Adapter interface {
	SampleRate() int
	FramesPerBuf() int
	Write(acc []float64) error
	Close() error
}

// OnTick is the host's per-buffer generator callback. It may enqueue
// notes on e and call e.AdjustTimebase before returning; e.CurrentTime()
// after return is authoritative. Returning stop=true causes RunLoop to
// terminate without mixing or writing the pending buffer. A non-nil error
// is treated as a host-callback error and unwinds RunLoop immediately.
type OnTick func(e *Engine) (stop bool, err error)

// Engine is a single active mixing-engine instance: current_time, the note
// queue, and the device handle. Only one Engine may be active per process
// at a time.
type Engine struct {
	running atomic.Bool
	mu      sync.Mutex

	adapter Adapter
	store   *SampleStore
	mixer   *Mixer
	queue   NoteQueue
	meter   *meter.Meter

	currentTime int64
	acc         []float64
}

var (
	instanceMu     sync.Mutex
	instanceActive atomic.Bool
)

// Init brings up a new Engine instance over adapter. Exactly
// one engine may be active per process; reinitializing without Shutdown
// returns ErrAlreadyRunning. panNormalize selects the opt-in older,
// renormalizing stereo pan law.
func Init(adapter Adapter, panNormalize bool) (*Engine, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if !instanceActive.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	if adapter == nil || adapter.FramesPerBuf() <= 0 {
		instanceActive.Store(false)
		return nil, fmt.Errorf("%w: invalid adapter", ErrDeviceInit)
	}

	e := &Engine{
		adapter: adapter,
		store:   newSampleStore(adapter.SampleRate()),
		mixer:   newMixer(panNormalize),
		meter:   meter.New(),
		acc:     make([]float64, 2*adapter.FramesPerBuf()),
	}
	e.running.Store(true)
	return e, nil
}

// Shutdown tears down the engine: the adapter is closed and the process-wide
// init guard is released. Safe to call more than once.
func (e *Engine) Shutdown() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.adapter.Close(); err != nil {
		defaultLogger.Error("adapter close failed", "err", err)
	}
	instanceActive.Store(false)
}

// FramesPerSecond returns the negotiated device rate.
func (e *Engine) FramesPerSecond() int { return e.adapter.SampleRate() }

// FramesPerBuf returns the mixer's chunk size.
func (e *Engine) FramesPerBuf() int { return e.adapter.FramesPerBuf() }

// CurrentTime returns the engine's current frame-time position.
func (e *Engine) CurrentTime() int64 { return e.currentTime }

// PeakLevel returns the most recent decaying peak level across all mixed
// buffers so far, on the same scale as a loaded Sample's data.
func (e *Engine) PeakLevel() float64 { return e.meter.Peak() }

// RMSLevel returns the smoothed RMS level across all mixed buffers so far.
func (e *Engine) RMSLevel() float64 { return e.meter.RMS() }

// PeakLevelDB returns PeakLevel converted to dBFS.
func (e *Engine) PeakLevelDB() float64 { return e.meter.PeakDB(meterFullScale) }

// RMSLevelDB returns RMSLevel converted to dBFS.
func (e *Engine) RMSLevelDB() float64 { return e.meter.RMSDB(meterFullScale) }

// NewSample returns a new, empty Sample owned by this engine's store.
func (e *Engine) NewSample() *Sample { return e.store.NewSample() }

// LoadSample decodes raw into s.
func (e *Engine) LoadSample(s *Sample, frameRate int, numFrames int64, raw []byte, loopStart, loopEnd int64, numChannels, sampleBits int, isSigned, isBigEndian bool) error {
	return s.Load(frameRate, numFrames, raw, loopStart, loopEnd, numChannels, sampleBits, isSigned, isBigEndian)
}

// UnloadSample frees s's decoded data, keeping it reloadable.
func (e *Engine) UnloadSample(s *Sample) { s.Unload() }

// DeleteSample frees s's decoded data and tombstones it as errored.
func (e *Engine) DeleteSample(s *Sample) { s.Destroy() }

// IsSampleLoaded reports whether s currently has decoded data.
func (e *Engine) IsSampleLoaded(s *Sample) bool { return s.IsLoaded() }

// IsSampleError reports whether s is sticky-failed.
func (e *Engine) IsSampleError(s *Sample) bool { return s.IsError() }

// SampleInfo describes s's current shape.
func (e *Engine) SampleInfo(s *Sample) Info { return s.Info() }

// CreateNote enqueues a single-play note and returns its duration in device
// frames.
func (e *Engine) CreateNote(o CreateOpts) (int64, error) { return e.queue.Create(o) }

// CreateNoteReps enqueues a note with an explicit repetition count.
func (e *Engine) CreateNoteReps(o CreateOpts, reps int) (int64, error) {
	return e.queue.CreateReps(o, reps)
}

// CreateNoteDuration enqueues a note whose repetition count is derived from
// a requested duration in device frames.
func (e *Engine) CreateNoteDuration(o CreateOpts, durationInFrames int64) (int64, error) {
	return e.queue.CreateDuration(o, durationInFrames)
}

// StopNotes destroys every queued note belonging to c or one of c's
// descendants.
func (e *Engine) StopNotes(c Channel) { e.queue.RemoveByChannel(c) }

// AdjustTimebase shifts current_time and every queued note's start time by
// -offset, to keep the frame counter from growing unboundedly over long
// runs.
func (e *Engine) AdjustTimebase(offset int64) {
	e.queue.ShiftTimebase(offset)
	e.currentTime -= offset
}

// RunLoop drives the mixer until onTick requests a stop or the adapter
// reports a write failure. Each iteration is one buffer:
// host tick, mix, write, advance current_time.
func (e *Engine) RunLoop(onTick OnTick) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	for {
		stop, err := onTick(e)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHostCallback, err)
		}
		if stop {
			return nil
		}

		if err := e.mixer.Generate(&e.queue, e.acc, e.currentTime, e.FramesPerBuf()); err != nil {
			return err
		}
		e.meter.Observe(e.acc)
		if err := e.adapter.Write(e.acc); err != nil {
			defaultLogger.Error("device write failed", "err", err)
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		e.currentTime += int64(e.FramesPerBuf())
	}
}
