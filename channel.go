package boodler

import "sync/atomic"

// Channel is the capability interface the host implements for nodes in its
// external channel tree. The core never
// constructs or owns a Channel; it only reads through this interface while
// folding the tree during a mix, then releases its borrowed handle.
type Channel interface {
	// VolumeEnvelope returns this channel's volume fade as of now. A
	// channel with constant volume should return an envelope whose T1 is
	// <= any time the core will query (or equivalently T0 >= any such
	// time), so constantOver always reports true.
	VolumeEnvelope(now int64) VolumeEnvelope
	// PanEnvelope returns this channel's stereo transform fade as of now.
	PanEnvelope(now int64) PanEnvelope
	// Parent returns the channel's parent, or nil at the root.
	Parent() Channel
	// IsOrDescendsFrom reports whether other is this channel itself or one
	// of its ancestors. Used by NoteQueue.RemoveByChannel.
	IsOrDescendsFrom(other Channel) bool
}

// ChannelRef is a reference-counted handle to a host Channel, shared
// between the NoteQueue (which owns a Note's reference for its lifetime)
// and the mixer's per-buffer channel-tree walk (which borrows it). Go's GC
// reclaims the Channel itself; ChannelRef exists so the shared-ownership
// discipline is explicit and auditable.
type ChannelRef struct {
	ch   Channel
	refc *atomic.Int32
}

// NewChannelRef wraps ch in a new reference-counted handle with one
// outstanding reference. Passing a nil ch is valid and produces an invalid
// (zero) ref.
func NewChannelRef(ch Channel) ChannelRef {
	if ch == nil {
		return ChannelRef{}
	}
	n := &atomic.Int32{}
	n.Store(1)
	return ChannelRef{ch: ch, refc: n}
}

// Valid reports whether r holds a live channel.
func (r ChannelRef) Valid() bool {
	return r.ch != nil
}

// Channel returns the wrapped host Channel, or nil if r is invalid.
func (r ChannelRef) Channel() Channel {
	return r.ch
}

// Retain increments the refcount and returns r unchanged, for callers that
// want to keep a borrowed copy alive past the scope that handed it to them.
func (r ChannelRef) Retain() ChannelRef {
	if r.refc != nil {
		r.refc.Add(1)
	}
	return r
}

// Release decrements the refcount. It is safe to call exactly once per
// Retain/NewChannelRef; calling it more times than that is a caller bug.
func (r ChannelRef) Release() {
	if r.refc != nil {
		r.refc.Add(-1)
	}
}
