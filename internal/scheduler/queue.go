package scheduler

import "github.com/psylab/cadence/internal/timeval"

// MomentQueue is an ordered sequence of Moments plus the start time of the
// most recently dispatched moment. Multiple MomentQueues
// coexist when CompoundMoments or parallel trial blocks are in flight.
type MomentQueue struct {
	moments []Moment
	last    timeval.Time
}

// NewMomentQueue returns a queue seeded with moments, starting at last.
func NewMomentQueue(last timeval.Time, moments ...Moment) *MomentQueue {
	return &MomentQueue{moments: append([]Moment{}, moments...), last: last}
}

// Empty reports whether the queue has no moments left.
func (q *MomentQueue) Empty() bool { return len(q.moments) == 0 }

// Front returns the head moment without removing it. Callers must check
// Empty first.
func (q *MomentQueue) Front() Moment { return q.moments[0] }

// PopFront removes the head moment.
func (q *MomentQueue) PopFront() {
	if len(q.moments) == 0 {
		return
	}

	q.moments = q.moments[1:]
}

// PushFront prepends ms, in order, ahead of whatever is currently queued --
// used by ExpandingMoment to unroll its body so it runs before the rest of
// the queue.
func (q *MomentQueue) PushFront(ms ...Moment) {
	q.moments = append(append([]Moment{}, ms...), q.moments...)
}

// PushBack appends ms after the current contents -- used by FinalMoment to
// re-enqueue itself behind another queue's remaining work.
func (q *MomentQueue) PushBack(ms ...Moment) {
	q.moments = append(q.moments, ms...)
}

// Last returns the start time of the most recently dispatched moment.
func (q *MomentQueue) Last() timeval.Time { return q.last }

// SetLast updates the most-recently-dispatched start time.
func (q *MomentQueue) SetLast(t timeval.Time) { q.last = t }
