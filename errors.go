package boodler

import "errors"

// Sentinel errors returned by the public API: load errors stick to a
// Sample, write/host-callback errors unwind RunLoop, and allocation
// failure inside the mixer is fatal.
var (
	// ErrUnsupportedFormat is returned by Sample.Load when sampleBits is
	// neither 8 nor 16.
	ErrUnsupportedFormat = errors.New("boodler: unsupported sample bit depth")
	// ErrSizeMismatch is returned by Sample.Load when the supplied byte
	// slice does not match numFrames*numChannels*(sampleBits/8).
	ErrSizeMismatch = errors.New("boodler: sample data size does not match frame/channel count")
	// ErrSampleFailed is returned by Sample.Load on a sticky-failed Sample.
	ErrSampleFailed = errors.New("boodler: sample is in a failed state")
	// ErrSampleNotLoaded is returned when a note-creation call references an
	// unloaded or failed Sample.
	ErrSampleNotLoaded = errors.New("boodler: sample is not loaded")
	// ErrInvalidPitch is returned when pitch*frameRateRatio is non-positive.
	ErrInvalidPitch = errors.New("boodler: pitch produces a non-positive resampling step")

	// ErrAlreadyRunning is returned by Init when an engine instance is
	// already active in this process.
	ErrAlreadyRunning = errors.New("boodler: engine already initialized")
	// ErrNotRunning is returned by RunLoop on an engine that has been shut
	// down.
	ErrNotRunning = errors.New("boodler: engine not initialized")
	// ErrDeviceInit wraps adapter initialization failures.
	ErrDeviceInit = errors.New("boodler: device initialization failed")

	// ErrWrite wraps a device write failure that unwinds RunLoop.
	ErrWrite = errors.New("boodler: device write failed")
	// ErrHostCallback wraps an error surfaced by the host's on-tick callback.
	ErrHostCallback = errors.New("boodler: host callback reported a problem")
	// ErrAllocation is returned when the mixer's ranges scratch array would
	// have to grow past its sanity cap; treated as fatal.
	ErrAllocation = errors.New("boodler: allocation failure in mixer ranges scratch")
)
