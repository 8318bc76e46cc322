// Package scheduler implements the moment/trial scheduler: a time-driven
// cooperative loop that advances queues of tagged "moments" -- timed
// callbacks, response waits, timeouts, compound sequences, and
// conditional/looping blocks -- dispatching input events to the
// currently-active response watcher and recording structured events
// through internal/recorder.
//
// Moment is a tagged sum: one struct with a Kind discriminant and a field
// per variant rather than an interface with six implementations, so
// dispatch is a single switch and a new variant shows up as a missing
// case, not a silently-unimplemented method.
package scheduler

import "github.com/psylab/cadence/internal/timeval"

// Kind discriminates the six Moment variants.
type Kind int

const (
	KindTimed Kind = iota
	KindOffsetStart
	KindResponse
	KindCompound
	KindExpanding
	KindFinal
)

func (k Kind) String() string {
	switch k {
	case KindTimed:
		return "timed"
	case KindOffsetStart:
		return "offset-start"
	case KindResponse:
		return "response"
	case KindCompound:
		return "compound"
	case KindExpanding:
		return "expanding"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// MomentFunc runs a moment's effect at a given stream-clock time.
type MomentFunc func(now timeval.Time)

// ResponseFunc runs when a ResponseMoment's predicate accepts an event.
type ResponseFunc func(now timeval.Time, ev Event)

// ExpandBody produces the Moments an ExpandingMoment unrolls when its
// condition holds.
type ExpandBody func() []Moment

// Moment is a single dispatchable scheduling unit. Only the fields
// relevant to Kind are meaningful; Dispatch's switch never reads a field
// outside its own case.
type Moment struct {
	Kind Kind

	// TimedMoment, FinalMoment
	Delta timeval.Time
	Fn    MomentFunc

	// OffsetStartMoment
	IsTrial bool // true records trial_start and increments Trial; false records practice_start and increments Offset

	// ResponseMoment
	Accept    Predicate
	OnAccept  ResponseFunc
	Timeout   timeval.Time // <= 0 means no timeout
	AtLeast   timeval.Time
	OnTimeout MomentFunc

	// CompoundMoment
	Children []Moment

	// ExpandingMoment
	Cond ExpandCond
	Body ExpandBody
	Loop bool
}

// ExpandCond evaluates an ExpandingMoment's predicate at dispatch time,
// late enough to see state any earlier Moment mutated. A plain Go if or
// for would have already run at script-construction time, before any
// moment executed, so it cannot express trial-count-dependent branching.
type ExpandCond func() bool

// Timed returns a TimedMoment that runs fn after delta seconds have
// elapsed since the enclosing queue's last dispatched moment.
func Timed(delta timeval.Time, fn MomentFunc) Moment {
	return Moment{Kind: KindTimed, Delta: delta, Fn: fn}
}

// OffsetStart marks a trial (isTrial) or practice (!isTrial) boundary.
func OffsetStart(isTrial bool) Moment {
	return Moment{Kind: KindOffsetStart, IsTrial: isTrial}
}

// Response waits for an event satisfying accept, with an optional timeout
// and minimum-delta-t floor (atleast). A zero timeout means "wait
// indefinitely."
func Response(accept Predicate, onAccept ResponseFunc, timeout, atleast timeval.Time, onTimeout MomentFunc) Moment {
	return Moment{
		Kind: KindResponse, Accept: accept, OnAccept: onAccept,
		Timeout: timeout, AtLeast: atleast, OnTimeout: onTimeout,
	}
}

// Compound concatenates children into a parallel sub-queue that starts at
// the enclosing moment's start time.
func Compound(children ...Moment) Moment {
	return Moment{Kind: KindCompound, Children: children}
}

// Expanding evaluates cond at dispatch time and unrolls body()'s Moments
// onto the queue when it holds; loop re-checks cond after body runs,
// implementing the trial-block DSL's while form.
func Expanding(cond ExpandCond, body ExpandBody, loop bool) Moment {
	return Moment{Kind: KindExpanding, Cond: cond, Body: body, Loop: loop}
}

// Final is enqueued onto every queue; it runs fn only once no other queue
// has work left.
func Final(fn MomentFunc) Moment {
	return Moment{Kind: KindFinal, Fn: fn}
}
