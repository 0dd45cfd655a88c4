package boodler

import (
	"errors"
	"testing"
)

// fakeAdapter is a minimal in-memory Adapter double for exercising
// Engine.RunLoop without a real sound device.
type fakeAdapter struct {
	rate         int
	framesPerBuf int
	writes       [][]float64
	writeErr     error
	closed       bool
	closeCalls   int
	closeErr     error
}

func (a *fakeAdapter) SampleRate() int   { return a.rate }
func (a *fakeAdapter) FramesPerBuf() int { return a.framesPerBuf }
func (a *fakeAdapter) Write(acc []float64) error {
	if a.writeErr != nil {
		return a.writeErr
	}
	cp := make([]float64, len(acc))
	copy(cp, acc)
	a.writes = append(a.writes, cp)
	return nil
}
func (a *fakeAdapter) Close() error {
	a.closed = true
	a.closeCalls++
	return a.closeErr
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{rate: 44100, framesPerBuf: 16}
}

func TestInitRejectsNilAdapter(t *testing.T) {
	_, err := Init(nil, false)
	if !errors.Is(err, ErrDeviceInit) {
		t.Errorf("Init(nil) = %v, want ErrDeviceInit", err)
	}
}

func TestInitRejectsZeroFramesPerBuf(t *testing.T) {
	a := &fakeAdapter{rate: 44100, framesPerBuf: 0}
	_, err := Init(a, false)
	if !errors.Is(err, ErrDeviceInit) {
		t.Errorf("Init with framesPerBuf=0 = %v, want ErrDeviceInit", err)
	}
}

func TestInitTwiceWithoutShutdownFails(t *testing.T) {
	e, err := Init(newFakeAdapter(), false)
	if err != nil {
		t.Fatalf("first Init: %v", err)
	}
	defer e.Shutdown()

	_, err = Init(newFakeAdapter(), false)
	if err != ErrAlreadyRunning {
		t.Errorf("second Init = %v, want ErrAlreadyRunning", err)
	}
}

func TestShutdownReleasesSlotForNextInit(t *testing.T) {
	e, err := Init(newFakeAdapter(), false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.Shutdown()

	e2, err := Init(newFakeAdapter(), false)
	if err != nil {
		t.Fatalf("Init after Shutdown should succeed, got: %v", err)
	}
	e2.Shutdown()
}

func TestShutdownIsIdempotentAndClosesAdapterOnce(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.Shutdown()
	e.Shutdown()
	e.Shutdown()
	if !a.closed {
		t.Error("adapter should have been closed")
	}
	if a.closeCalls != 1 {
		t.Errorf("adapter.Close called %d times, want 1", a.closeCalls)
	}
}

func TestFramesPerSecondAndFramesPerBuf(t *testing.T) {
	a := &fakeAdapter{rate: 48000, framesPerBuf: 256}
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()
	if e.FramesPerSecond() != 48000 {
		t.Errorf("FramesPerSecond() = %d, want 48000", e.FramesPerSecond())
	}
	if e.FramesPerBuf() != 256 {
		t.Errorf("FramesPerBuf() = %d, want 256", e.FramesPerBuf())
	}
}

// TestRunLoopMixesWritesAndAdvancesTime: each RunLoop iteration performs
// host tick, mix, write, then advances current_time by framesPerBuf.
func TestRunLoopMixesWritesAndAdvancesTime(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	var ticks int
	err = e.RunLoop(func(e *Engine) (bool, error) {
		ticks++
		if ticks > 3 {
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if ticks != 4 {
		t.Errorf("onTick called %d times, want 4 (3 mixed + 1 stop)", ticks)
	}
	if len(a.writes) != 3 {
		t.Errorf("adapter.Write called %d times, want 3", len(a.writes))
	}
	if e.CurrentTime() != 3*int64(e.FramesPerBuf()) {
		t.Errorf("CurrentTime() = %d, want %d", e.CurrentTime(), 3*int64(e.FramesPerBuf()))
	}
}

func TestRunLoopStopBeforeMixingSkipsWrite(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	err = e.RunLoop(func(e *Engine) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if len(a.writes) != 0 {
		t.Errorf("adapter.Write should not be called when the first tick stops, got %d calls", len(a.writes))
	}
	if e.CurrentTime() != 0 {
		t.Errorf("CurrentTime() = %d, want 0", e.CurrentTime())
	}
}

func TestRunLoopAfterShutdownReturnsNotRunning(t *testing.T) {
	e, err := Init(newFakeAdapter(), false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.Shutdown()

	err = e.RunLoop(func(e *Engine) (bool, error) {
		t.Error("onTick should never run on a shut-down engine")
		return true, nil
	})
	if err != ErrNotRunning {
		t.Errorf("RunLoop after Shutdown = %v, want ErrNotRunning", err)
	}
}

func TestRunLoopPropagatesHostCallbackError(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	boom := errors.New("boom")
	err = e.RunLoop(func(e *Engine) (bool, error) { return false, boom })
	if !errors.Is(err, ErrHostCallback) {
		t.Errorf("RunLoop error = %v, want wrapping ErrHostCallback", err)
	}
}

func TestRunLoopPropagatesWriteError(t *testing.T) {
	a := newFakeAdapter()
	a.writeErr = errors.New("device gone")
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	err = e.RunLoop(func(e *Engine) (bool, error) { return false, nil })
	if !errors.Is(err, ErrWrite) {
		t.Errorf("RunLoop error = %v, want wrapping ErrWrite", err)
	}
}

func TestAdjustTimebaseShiftsCurrentTimeAndQueue(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	s := monoSample(t, 1000, 0x4000, -1, -1)
	if _, err := e.CreateNote(CreateOpts{Sample: s, Pitch: 1, Volume: 1, Pan: IdentityTransform, StartTime: 500}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	e.currentTime = 200

	e.AdjustTimebase(200)
	if e.CurrentTime() != 0 {
		t.Errorf("CurrentTime() after shift = %d, want 0", e.CurrentTime())
	}
	if e.queue.head == nil || e.queue.head.startTime != 300 {
		t.Errorf("queued note start time after shift = %v, want 300", e.queue.head)
	}
}

func TestStopNotesRemovesMatchingChannel(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	s := monoSample(t, 1000, 0x4000, -1, -1)
	root := &fakeChannel{name: "root"}
	if _, err := e.CreateNote(CreateOpts{Sample: s, Pitch: 1, Volume: 1, Pan: IdentityTransform, Channel: NewChannelRef(root)}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	e.StopNotes(root)
	if e.queue.head != nil {
		t.Error("StopNotes should have removed the note belonging to its channel")
	}
}

// TestRunLoopFeedsMeter: the engine's level meter
// tracks the mixed output of each buffer written during RunLoop.
func TestRunLoopFeedsMeter(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	if e.PeakLevel() != 0 {
		t.Errorf("fresh engine PeakLevel() = %v, want 0", e.PeakLevel())
	}

	s := monoSample(t, 1000, 0x4000, -1, -1)
	if _, err := e.CreateNote(CreateOpts{Sample: s, Pitch: 1, Volume: 1, Pan: IdentityTransform}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	var ticks int
	err = e.RunLoop(func(e *Engine) (bool, error) {
		ticks++
		return ticks > 1, nil
	})
	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if e.PeakLevel() != 0x4000 {
		t.Errorf("PeakLevel() = %v, want 0x4000", e.PeakLevel())
	}
	if db := e.PeakLevelDB(); db >= 0 {
		t.Errorf("PeakLevelDB() = %v, want < 0 (below full scale)", db)
	}
}

func TestSampleLifecycleThroughEngine(t *testing.T) {
	a := newFakeAdapter()
	e, err := Init(a, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer e.Shutdown()

	s := e.NewSample()
	if e.IsSampleLoaded(s) {
		t.Error("new sample should not be loaded")
	}
	raw := make([]byte, 4)
	if err := e.LoadSample(s, 44100, 2, raw, -1, -1, 1, 16, true, false); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if !e.IsSampleLoaded(s) {
		t.Error("sample should report loaded after LoadSample")
	}
	e.UnloadSample(s)
	if e.IsSampleLoaded(s) {
		t.Error("sample should report unloaded after UnloadSample")
	}
	e.DeleteSample(s)
	if !e.IsSampleError(s) {
		t.Error("sample should be sticky-errored after DeleteSample")
	}
}
