// Package hotplug watches for USB audio interfaces being plugged or
// unplugged and re-enters the audio engine's setup, which is already
// idempotent (a second call closes and reopens). A realtime engine that
// can't react to the research PC's sound card disappearing mid-session is
// not something a lab can actually run.
package hotplug

import (
	"context"

	"github.com/jochenvg/go-udev"
)

// ReopenFunc re-enters the engine's setup lifecycle; it is called once per
// observed "add" or "remove" event on the sound subsystem.
type ReopenFunc func()

// Watcher monitors the kernel's udev "sound" subsystem and invokes a
// caller-supplied callback on every add/remove event.
type Watcher struct {
	cancel context.CancelFunc
}

// Watch starts monitoring the sound subsystem in the background and
// returns a Watcher the caller stops with Close. onChange runs on the
// goroutine Watch starts, synchronously per event, so it must not block
// for long -- it typically just schedules an Engine.Setup retry.
func Watch(onChange ReopenFunc) (*Watcher, error) {
	var ctx, cancel = context.WithCancel(context.Background())

	var u udev.Udev

	var mon = u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		cancel()

		return nil, err
	}

	var deviceCh, _, err = mon.DeviceChan(ctx)
	if err != nil {
		cancel()

		return nil, err
	}

	go func() {
		for dev := range deviceCh {
			switch dev.Action() {
			case "add", "remove", "change":
				onChange()
			}
		}
	}()

	return &Watcher{cancel: cancel}, nil
}

// Close stops the background monitor goroutine.
func (w *Watcher) Close() {
	if w == nil || w.cancel == nil {
		return
	}

	w.cancel()
}
