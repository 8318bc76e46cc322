package scheduler

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/psylab/cadence/internal/recorder"
	"github.com/psylab/cadence/internal/timeval"
)

// Scheduler runs the single cooperative trial loop: it
// polls the system clock via Tick and forwards input events via Dispatch,
// advancing every non-empty MomentQueue by at most one handle step per
// Tick call. Experiment Data's fields (trial/offset counters, the current
// watcher, the recorder configuration) live here.
type Scheduler struct {
	queues []*MomentQueue

	trial  int
	offset int

	lastEventTime timeval.Time

	defaultWatcher Watcher
	watcher        Watcher

	// currentResponseQueue is the one queue, across all of them, whose
	// front ResponseMoment owns the event-dispatch slot; at most one
	// ResponseMoment is current across all queues.
	currentResponseQueue *MomentQueue

	rec *recorder.Recorder

	logger *log.Logger
}

// New returns a Scheduler with no queues; AddQueue seeds the initial trial
// structure. rec may be nil, in which case OffsetStartMoment boundaries are
// not recorded -- useful for tests that only exercise dispatch order.
func New(rec *recorder.Recorder) *Scheduler {
	return &Scheduler{rec: rec, logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "scheduler"})}
}

// AddQueue registers q as one of the (possibly parallel) MomentQueues the
// scheduler advances.
func (s *Scheduler) AddQueue(q *MomentQueue) { s.queues = append(s.queues, q) }

// SetWatcher installs w as both the current and the default event watcher.
// Moment functions may later call SetWatcher again to temporarily
// override it; OffsetStartMoment resets it back to the default.
func (s *Scheduler) SetWatcher(w Watcher) {
	s.defaultWatcher = w
	s.watcher = w
}

// Trial returns the current trial counter.
func (s *Scheduler) Trial() int { return s.trial }

// Offset returns the current offset (practice) counter.
func (s *Scheduler) Offset() int { return s.offset }

// Snapshot is a point-in-time view of Experiment Data for an
// operator-facing monitor; it is read-only and never mutates the
// Scheduler.
type Snapshot struct {
	Trial         int
	Offset        int
	ActiveQueues  int
	PendingTotal  int
	HasResponse   bool
	LastEventTime timeval.Time
}

// Snapshot reports the current trial/offset counters and queue occupancy.
func (s *Scheduler) Snapshot() Snapshot {
	var active, pending int

	for _, q := range s.queues {
		if !q.Empty() {
			active++
			pending += len(q.moments)
		}
	}

	return Snapshot{
		Trial:         s.trial,
		Offset:        s.offset,
		ActiveQueues:  active,
		PendingTotal:  pending,
		HasResponse:   s.currentResponseQueue != nil,
		LastEventTime: s.lastEventTime,
	}
}

// Done reports whether every queue has been fully drained.
func (s *Scheduler) Done() bool {
	for _, q := range s.queues {
		if !q.Empty() {
			return false
		}
	}

	return true
}

// Dispatch forwards ev to the current watcher and, if a ResponseMoment
// currently owns the event-dispatch slot, evaluates its acceptance
// predicate.
func (s *Scheduler) Dispatch(ev Event) {
	s.lastEventTime = ev.Time

	if s.watcher != nil {
		s.watcher(ev)
	}

	var q = s.currentResponseQueue
	if q == nil || q.Empty() {
		return
	}

	var m = q.Front()
	if m.Kind != KindResponse || m.Accept == nil || !m.Accept(ev) {
		return
	}

	var elapsed = ev.Time - q.Last()

	if m.OnAccept != nil {
		m.OnAccept(ev.Time, ev)
	}

	q.PopFront()
	q.SetLast(ev.Time)
	s.currentResponseQueue = nil

	if m.AtLeast > 0 && elapsed < m.AtLeast {
		// Hold the floor: the response arrived early, so a TimedMoment
		// absorbs the remaining delta before the next moment runs.
		q.PushFront(Timed(m.AtLeast-elapsed, func(timeval.Time) {}))
	}
}

// Tick advances every non-empty queue by at most one handle step.
// CompoundMoment may append new queues to
// s.queues mid-call; the loop bound is fixed before the first step, so
// the index-based loop picks them up on a later Tick, matching
// "dispatches at most one 'handle' step per iteration" rather than
// stepping a freshly-spawned queue within the same Tick.
func (s *Scheduler) Tick(now timeval.Time) {
	for i, n := 0, len(s.queues); i < n; i++ {
		var q = s.queues[i]
		if q.Empty() {
			continue
		}

		s.handle(q, i, now)
	}
}

func (s *Scheduler) handle(q *MomentQueue, idx int, now timeval.Time) {
	var m = q.Front()

	switch m.Kind {
	case KindTimed:
		s.handleTimed(q, m, now)
	case KindOffsetStart:
		s.handleOffsetStart(q, m, now)
	case KindResponse:
		s.handleResponse(q, m, now)
	case KindCompound:
		s.handleCompound(q, m)
	case KindExpanding:
		s.handleExpanding(q, m)
	case KindFinal:
		s.handleFinal(q, m, idx, now)
	}
}

func (s *Scheduler) handleTimed(q *MomentQueue, m Moment, now timeval.Time) {
	if now < q.Last()+m.Delta {
		return
	}

	if m.Fn != nil {
		m.Fn(now)
	}

	q.SetLast(now)
	q.PopFront()
}

func (s *Scheduler) handleOffsetStart(q *MomentQueue, m Moment, now timeval.Time) {
	var code string

	if m.IsTrial {
		s.trial++
		code = "trial_start"
	} else {
		s.offset++
		code = "practice_start"
	}

	if s.rec != nil {
		if err := s.rec.Record(s.offset, s.trial, now, code, nil); err != nil {
			s.logger.Warn("failed to record boundary", "code", code, "err", err)
		}
	}

	s.watcher = s.defaultWatcher
	s.currentResponseQueue = nil

	q.PopFront()

	if m.Fn != nil {
		m.Fn(now)
	}

	q.SetLast(now)
}

func (s *Scheduler) handleResponse(q *MomentQueue, m Moment, now timeval.Time) {
	if s.currentResponseQueue == nil {
		s.currentResponseQueue = q
	}

	if s.currentResponseQueue != q {
		return
	}

	if m.Timeout <= 0 || now < q.Last()+m.Timeout {
		return
	}

	if m.OnTimeout != nil {
		m.OnTimeout(now)
	}

	q.PopFront()
	q.SetLast(now)
	s.currentResponseQueue = nil
}

func (s *Scheduler) handleCompound(q *MomentQueue, m Moment) {
	s.queues = append(s.queues, NewMomentQueue(q.Last(), m.Children...))
	q.PopFront()
}

func (s *Scheduler) handleExpanding(q *MomentQueue, m Moment) {
	q.PopFront()

	if m.Cond == nil || !m.Cond() {
		return
	}

	var body = m.Body()
	if m.Loop {
		body = append(body, m)
	}

	q.PushFront(body...)
}

func (s *Scheduler) handleFinal(q *MomentQueue, m Moment, idx int, now timeval.Time) {
	for j, other := range s.queues {
		if j == idx || other.Empty() {
			continue
		}

		q.PopFront()
		other.PushBack(m)

		return
	}

	q.PopFront()

	if m.Fn != nil {
		m.Fn(now)
	}
}
