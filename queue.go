package boodler

import "math"

// NoteQueue is a time-ordered singly linked list of active notes.
// It is touched only by the mixer thread (and by the host's on-tick
// callback, which runs on that same thread) — it has no internal locking.
type NoteQueue struct {
	head       *Note
	lastInsert *Note // amortized O(1) insert point for time-ordered enqueues
}

// CreateOpts groups the parameters shared by Create, CreateReps, and
// CreateDuration.
type CreateOpts struct {
	Sample     *Sample
	Pitch      float64
	Volume     float64
	Pan        Transform
	StartTime  int64
	Channel    ChannelRef
	RemoveHook func()
}

// Enqueue inserts n into the queue, keeping it sorted by startTime
// ascending. Uses a "last insert pointer" optimization: if n's
// start time is at or after the last-inserted note's, the scan resumes from
// there instead of from the head.
func (q *NoteQueue) Enqueue(n *Note) {
	var link **Note
	if q.lastInsert != nil && n.startTime >= q.lastInsert.startTime {
		link = &q.lastInsert.next
	} else {
		link = &q.head
	}
	for *link != nil && n.startTime > (*link).startTime {
		link = &(*link).next
	}
	n.next = *link
	*link = n
	q.lastInsert = n
}

// RemoveByChannel destroys every note whose channel is c, or whose
// channel's ancestor set contains c, invoking each note's remove hook
// exactly once and releasing its channel reference.
func (q *NoteQueue) RemoveByChannel(c Channel) {
	var prev *Note
	cur := q.head
	for cur != nil {
		next := cur.next
		if cur.channel.Valid() && cur.channel.Channel().IsOrDescendsFrom(c) {
			if prev == nil {
				q.head = next
			} else {
				prev.next = next
			}
			if q.lastInsert == cur {
				q.lastInsert = prev
			}
			q.destroyNote(cur)
			cur = next
			continue
		}
		prev = cur
		cur = next
	}
}

// ShiftTimebase subtracts offset from every queued note's start time.
// The engine additionally shifts its own current_time by the same amount;
// relative order and inter-note spacing are preserved.
func (q *NoteQueue) ShiftTimebase(offset int64) {
	for n := q.head; n != nil; n = n.next {
		n.startTime -= offset
	}
}

// Create enqueues a single-play note (no extra repetitions) and returns its
// duration in device frames.
func (q *NoteQueue) Create(o CreateOpts) (int64, error) {
	return q.CreateReps(o, 1)
}

// CreateReps enqueues a note with the given repetition count (meaningful
// only if the sample has a loop) and returns its total duration in device
// frames.
func (q *NoteQueue) CreateReps(o CreateOpts, reps int) (int64, error) {
	if o.Sample == nil || !o.Sample.IsLoaded() {
		return 0, ErrSampleNotLoaded
	}
	info := o.Sample.Info()
	step := info.FrameRateRatio * o.Pitch
	if step <= 0 {
		return 0, ErrInvalidPitch
	}
	if reps < 1 {
		reps = 1
	}

	var duration int64
	if !info.HasLoop || reps <= 1 {
		reps = 1
		duration = int64(math.Ceil(float64(info.NumFrames) / step))
	} else {
		duration = int64(math.Ceil((float64(info.NumFrames) + float64(info.LoopLen)*float64(reps-1)) / step))
	}

	n := &Note{
		sample:     o.Sample,
		startTime:  o.StartTime,
		pitch:      o.Pitch,
		volume:     o.Volume,
		pan:        o.Pan,
		channel:    o.Channel,
		removeHook: o.RemoveHook,
		repsLeft:   reps - 1,
	}
	q.Enqueue(n)
	return duration, nil
}

// CreateDuration enqueues a note whose repetition count is derived from a
// requested duration in device frames: reps = ceil((duration_in_source_frames
// - margins) / loop_len), where margins = num_frames - loop_len.
// Non-looping samples always play once regardless of the requested duration.
func (q *NoteQueue) CreateDuration(o CreateOpts, durationInFrames int64) (int64, error) {
	if o.Sample == nil || !o.Sample.IsLoaded() {
		return 0, ErrSampleNotLoaded
	}
	info := o.Sample.Info()

	reps := 1
	if info.HasLoop {
		step := info.FrameRateRatio * o.Pitch
		if step <= 0 {
			return 0, ErrInvalidPitch
		}
		durSourceFrames := float64(durationInFrames) * step
		margins := float64(info.NumFrames - info.LoopLen)
		r := math.Ceil((durSourceFrames - margins) / float64(info.LoopLen))
		if r < 1 {
			r = 1
		}
		reps = int(r)
	}
	return q.CreateReps(o, reps)
}

// destroyNote invokes n's remove hook (if any) exactly once and releases
// its channel reference.
func (q *NoteQueue) destroyNote(n *Note) {
	if n.removeHook != nil {
		n.removeHook()
		n.removeHook = nil
	}
	n.channel.Release()
	n.channel = ChannelRef{}
	n.next = nil
}
