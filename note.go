package boodler

// Note is a scheduled playback of a Sample. Notes are created through
// NoteQueue's Create/CreateReps/CreateDuration and are owned by whichever
// NoteQueue they are enqueued in.
type Note struct {
	next *Note // queue link, owned by NoteQueue

	sample *Sample

	startTime int64
	pitch     float64
	volume    float64
	pan       Transform

	channel    ChannelRef
	removeHook func()

	// Running resampling state, advanced one buffer at a time by the mixer.
	framePos  int64
	frameFrac uint32 // 0.16 fixed-point fraction; only the low 16 bits matter
	repsLeft  int    // remaining repetitions after the one currently playing
}

// computeStep converts a native/device rate ratio and a pitch factor into
// the 0.16 fixed-point per-frame phase increment used by the mixer's
// resampler, clamped to [1, 0x10000000].
func computeStep(frameRateRatio, pitch float64) uint32 {
	step := frameRateRatio * pitch * 0x10000
	if step < 1 {
		step = 1
	}
	if step > 0x10000000 {
		step = 0x10000000
	}
	return uint32(step)
}
