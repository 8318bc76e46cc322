package scheduler

import "github.com/psylab/cadence/internal/timeval"

// EventType names the broad category of an input event an external
// source can push: key-down, key-up, and mouse activity. Scheduler does not interpret payloads beyond this
// tag and a free-form Code/X/Y; the watcher function and any
// ResponseMoment predicate give them experiment-specific meaning.
type EventType int

const (
	KeyDown EventType = iota
	KeyUp
	MouseDown
	MouseUp
	MouseMove
)

func (t EventType) String() string {
	switch t {
	case KeyDown:
		return "key-down"
	case KeyUp:
		return "key-up"
	case MouseDown:
		return "mouse-down"
	case MouseUp:
		return "mouse-up"
	case MouseMove:
		return "mouse-move"
	default:
		return "unknown"
	}
}

// Event is a single input occurrence pushed into the Scheduler by an
// external input source (a keyboard reader, a GPIO response box, a mouse
// driver). Time is stamped by the caller against the same clock the
// Scheduler's Tick calls use.
type Event struct {
	Type EventType
	Code string // key name or button id
	X, Y float64
	Time timeval.Time
}

// Predicate reports whether ev satisfies a ResponseMoment's acceptance
// condition.
type Predicate func(ev Event) bool

// Watcher is the single user-supplied function invoked on every input
// event before Moment dispatch. Moment functions may
// replace it mid-experiment (e.g. a practice block installing a stricter
// watcher than the main block).
type Watcher func(ev Event)
