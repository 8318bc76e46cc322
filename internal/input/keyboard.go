// Package input implements the pluggable input-event sources the
// scheduler consumes: a raw-mode keyboard reader for ordinary lab PCs and
// a GPIO response-box reader for rigs with a physical button box wired to
// a Linux GPIO header. Both feed scheduler.Event values into a channel
// the control thread's run loop selects on alongside its ticker.
//
// The keyboard runs the tty in raw mode: a behavioral trial cannot
// tolerate the line-buffering and local echo a cooked tty applies to
// ordinary keyboard input.
package input

import (
	"io"

	"github.com/pkg/term"

	"github.com/psylab/cadence/internal/scheduler"
)

// Keyboard reads single keystrokes from the controlling terminal in raw
// mode and emits them as KeyDown events. Key-up is not observable from a
// plain tty, so Keyboard never emits KeyUp; response predicates that care
// about key-up belong to the GPIOBox source instead.
type Keyboard struct {
	tty    *term.Term
	events chan scheduler.Event
	done   chan struct{}
}

// OpenKeyboard opens device (typically "/dev/tty") in raw mode and starts
// a reader goroutine that pushes one scheduler.Event per keystroke onto
// the returned Keyboard's channel.
func OpenKeyboard(device string) (*Keyboard, error) {
	var tty, err = term.Open(device, term.RawMode)
	if err != nil {
		return nil, err
	}

	var k = &Keyboard{
		tty:    tty,
		events: make(chan scheduler.Event, 32),
		done:   make(chan struct{}),
	}

	go k.readLoop()

	return k, nil
}

func (k *Keyboard) readLoop() {
	var buf [1]byte

	for {
		var n, err = k.tty.Read(buf[:])
		if err != nil {
			if err != io.EOF {
				return
			}

			return
		}

		if n == 0 {
			continue
		}

		select {
		case k.events <- scheduler.Event{Type: scheduler.KeyDown, Code: string(buf[0])}:
		case <-k.done:
			return
		}
	}
}

// Events returns the channel of KeyDown events. The caller stamps each
// event's Time field against the engine/scheduler clock before calling
// Scheduler.Dispatch, since Keyboard has no notion of that clock.
func (k *Keyboard) Events() <-chan scheduler.Event { return k.events }

// Close restores the tty's original mode and closes done, which ends the
// reader goroutine once it observes done while delivering a keystroke.
// The tty itself is not closed, and a Read already blocked is not
// interrupted.
func (k *Keyboard) Close() error {
	close(k.done)

	return k.tty.Restore()
}
