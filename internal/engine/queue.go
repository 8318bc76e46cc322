package engine

import (
	"sync/atomic"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// TimedSound binds a canonicalized Sound to its scheduled start on the
// engine's stream clock. Start <= 0 means "as soon as possible". Offset is
// the number of frames already mixed; the sound is retired once
// Offset == Sound.NumFrames(). Created and owned by the control thread
// until the moment the callback frees it.
type TimedSound struct {
	Sound  sound.Sound
	Start  timeval.Time
	Offset int
}

func (ts *TimedSound) len() int { return ts.Sound.NumFrames() }

// ChannelQueue is a fixed-capacity single-producer/single-consumer ring
// buffer of *TimedSound slots. The control thread is the sole writer of
// the producer index and the sole mutator of Paused; the audio callback is
// the sole writer of DoneAt and, apart from ClearHead (which PlayNext calls
// on the control thread for a paused queue), of the consumer index. A slot
// is empty iff it
// holds nil. Capacity is rounded up to a power of two so the index wrap is
// a cheap mask instead of a modulo.
type ChannelQueue struct {
	mask  uint32
	slots []atomic.Pointer[TimedSound]

	producer atomic.Uint32
	consumer atomic.Uint32
	paused   atomic.Bool
	stopped  atomic.Bool

	// DoneAt is the stream-clock time by which the currently-mixing tail
	// will finish; only the callback thread writes it.
	DoneAt timeval.Time
}

// NewChannelQueue allocates a queue with at least the requested capacity.
func NewChannelQueue(capacity int) *ChannelQueue {
	var cap32 = nextPowerOfTwo(capacity)

	return &ChannelQueue{
		mask:  cap32 - 1,
		slots: make([]atomic.Pointer[TimedSound], cap32),
	}
}

func nextPowerOfTwo(n int) uint32 {
	var p uint32 = 1
	for p < uint32(n) {
		p <<= 1
	}

	return p
}

// Push writes ts into the next producer slot. It fails (returns false)
// when that slot is still occupied by an unconsumed TimedSound -- the
// control thread's only signal that the queue is full.
func (q *ChannelQueue) Push(ts *TimedSound) bool {
	var p = q.producer.Load()
	var idx = p & q.mask

	if q.slots[idx].Load() != nil {
		return false
	}

	q.slots[idx].Store(ts)
	q.producer.Store(p + 1)

	return true
}

// Head returns the TimedSound at the consumer index without removing it,
// or nil if the queue is empty.
func (q *ChannelQueue) Head() *TimedSound {
	var c = q.consumer.Load()

	return q.slots[c&q.mask].Load()
}

// Advance frees the head slot and moves the consumer index forward.
// Called by the callback thread, and by ClearHead.
func (q *ChannelQueue) Advance() {
	var c = q.consumer.Load()
	q.slots[c&q.mask].Store(nil)
	q.consumer.Store(c + 1)
}

// ClearHead discards the current head without mixing any more of it, used
// by PlayNext to splice a paused streaming sound out of the way.
func (q *ChannelQueue) ClearHead() {
	if q.Head() == nil {
		return
	}

	q.Advance()
}

// CanAccept reports whether the next producer slot is free.
func (q *ChannelQueue) CanAccept() bool {
	var p = q.producer.Load()

	return q.slots[p&q.mask].Load() == nil
}

// drain frees every queued TimedSound and leaves the queue empty. Callback
// thread only: the control thread flags the queue stopped and the callback
// does the actual discarding, keeping the consumer index single-writer.
func (q *ChannelQueue) drain() {
	for q.Head() != nil {
		q.Advance()
	}
}

// Stopped reports whether the control thread has flagged this queue for
// discard on the next callback.
func (q *ChannelQueue) Stopped() bool { return q.stopped.Load() }

// SetStopped flags (or clears) the queue for discard. Control thread sets
// it; the callback clears it after draining.
func (q *ChannelQueue) SetStopped(s bool) { q.stopped.Store(s) }

// Paused reports whether the queue is currently paused.
func (q *ChannelQueue) Paused() bool { return q.paused.Load() }

// SetPaused flips the paused flag. Control thread only.
func (q *ChannelQueue) SetPaused(p bool) { q.paused.Store(p) }
