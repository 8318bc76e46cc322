package engine

import "errors"

// Error kinds the audio engine raises.
var (
	ErrDevice       = errors.New("engine: device cannot supply requested rate")
	ErrNoChannels   = errors.New("engine: no channel qualifies")
	ErrRateMismatch = errors.New("engine: sound rate differs from engine rate")
	ErrNotReady     = errors.New("engine: not initialized")
	ErrQueueFull    = errors.New("engine: streaming slot still full")
	ErrBadChannel   = errors.New("engine: channel index out of range")
)
