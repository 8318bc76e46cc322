package dsp

import "errors"

// Error kinds the DSP primitives can raise.
var (
	ErrDurationTooShort = errors.New("dsp: duration too short")
	ErrShape            = errors.New("dsp: invalid shape")
)
