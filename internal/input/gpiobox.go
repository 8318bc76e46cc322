package input

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/psylab/cadence/internal/scheduler"
)

// GPIOBox reads button presses from a physical response box wired to a
// Linux GPIO chip -- common lab hardware for psychophysics rigs where a
// keyboard's debounce and OS-level latency are unacceptable. Each
// requested line maps to one button; rising and falling edges become
// KeyDown/KeyUp events tagged with the caller-supplied button name.
type GPIOBox struct {
	lines  []*gpiocdev.Line
	events chan scheduler.Event
}

// Button names one GPIO offset on chip as a labeled response-box key.
type Button struct {
	Offset int
	Name   string
}

// OpenGPIOBox requests chip (typically "gpiochip0") lines for each Button,
// configured with an internal pull-up so an unconnected button reads
// high, and starts delivering KeyDown/KeyUp events as the lines toggle.
func OpenGPIOBox(chip string, buttons []Button) (*GPIOBox, error) {
	var box = &GPIOBox{events: make(chan scheduler.Event, 32)}

	for _, b := range buttons {
		var name = b.Name

		var line, err = gpiocdev.RequestLine(chip, b.Offset,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				box.handleEdge(name, evt)
			}),
		)
		if err != nil {
			box.Close()

			return nil, fmt.Errorf("input: request line %d on %s: %w", b.Offset, chip, err)
		}

		box.lines = append(box.lines, line)
	}

	return box, nil
}

func (box *GPIOBox) handleEdge(name string, evt gpiocdev.LineEvent) {
	var typ = scheduler.KeyUp
	if evt.Type == gpiocdev.LineEventRisingEdge {
		typ = scheduler.KeyDown
	}

	select {
	case box.events <- scheduler.Event{Type: typ, Code: name}:
	default:
		// Drop the event rather than block the GPIO edge-handler goroutine;
		// a saturated 32-deep queue means the control thread has fallen
		// far enough behind that one more button press won't help.
	}
}

// Events returns the channel of KeyDown/KeyUp events.
func (box *GPIOBox) Events() <-chan scheduler.Event { return box.events }

// Close releases every requested GPIO line.
func (box *GPIOBox) Close() error {
	var firstErr error

	for _, l := range box.lines {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
