// Package sound implements the immutable PCM buffer model: a rank-1 or
// rank-2 array of samples tagged with an
// invariant sample rate and channel count, plus slicing, channel selection,
// resampling, and canonicalization toward the audio engine's native format.
//
// A Sound's underlying frame data is never mutated once constructed; slicing
// and channel-select return new Sound values that share or recompute frame
// data but never write back into an existing Sound's backing array.
package sound

import (
	"fmt"
	"math"

	"github.com/psylab/cadence/internal/timeval"
)

// Kind tags the element type a Sound claims to hold: a floating point value
// in [-1,+1], or the engine's canonical 16-bit signed normalized fixed
// point in [-1,+1). Sound always stores samples as float64 internally;
// Kind only records which domain the values are promised to respect.
type Kind int

const (
	KindFloat Kind = iota
	KindFixed16
)

func (k Kind) String() string {
	if k == KindFixed16 {
		return "fixed16"
	}
	return "float"
}

// Channel names a single channel for ChannelSelect.
type Channel int

const (
	Left Channel = iota
	Right
)

// Sound is an immutable buffer of sample frames at a fixed rate and channel
// count. frames[i] holds Channels() values for sample frame i.
type Sound struct {
	rate     timeval.Freq
	channels int
	frames   [][]float64
	kind     Kind
}

// New constructs a Sound from frame-major data: frames[i] must have exactly
// channels values. Fails with ErrShape when channels is not 1 or 2, or when
// any row's length disagrees with channels.
func New(rate timeval.Freq, channels int, frames [][]float64) (Sound, error) {
	if channels != 1 && channels != 2 {
		return Sound{}, fmt.Errorf("%w: channels=%d, want 1 or 2", ErrShape, channels)
	}

	for i, row := range frames {
		if len(row) != channels {
			return Sound{}, fmt.Errorf("%w: frame %d has %d columns, want %d", ErrShape, i, len(row), channels)
		}
	}

	return Sound{rate: rate, channels: channels, frames: frames, kind: KindFloat}, nil
}

// NewMono builds a single-channel Sound directly from a flat sample slice.
func NewMono(rate timeval.Freq, samples []float64) Sound {
	var frames = make([][]float64, len(samples))
	for i, s := range samples {
		frames[i] = []float64{s}
	}

	return Sound{rate: rate, channels: 1, frames: frames, kind: KindFloat}
}

// FromAny validates and wraps caller-supplied sample data. It fails with
// ErrType when
// given an integer sample buffer, since integers invite ambiguous
// normalization (is 1 full scale, or 1/32768?).
func FromAny(rate timeval.Freq, channels int, data any) (Sound, error) {
	switch v := data.(type) {
	case []float64:
		if channels != 1 {
			return Sound{}, fmt.Errorf("%w: flat []float64 implies one channel, got channels=%d", ErrShape, channels)
		}

		return NewMono(rate, v), nil
	case [][]float64:
		return New(rate, channels, v)
	case []int, []int16, []int32, []int64:
		return Sound{}, fmt.Errorf("%w: integer sample buffer %T", ErrType, data)
	default:
		return Sound{}, fmt.Errorf("%w: unsupported sample container %T", ErrShape, data)
	}
}

// Rate returns the Sound's invariant sample rate.
func (s Sound) Rate() timeval.Freq { return s.rate }

// Channels returns the Sound's channel count, 1 or 2.
func (s Sound) Channels() int { return s.channels }

// NumFrames returns the number of sample frames.
func (s Sound) NumFrames() int { return len(s.frames) }

// Duration returns the Sound's length as a Time.
func (s Sound) Duration() timeval.Time {
	if s.rate == 0 {
		return 0
	}

	return timeval.Seconds(float64(s.NumFrames()) / float64(s.rate))
}

// Kind reports whether the Sound claims floating-point or fixed16 values.
func (s Sound) Kind() Kind { return s.kind }

// At returns the sample at the given frame and channel.
func (s Sound) At(frame, channel int) float64 { return s.frames[frame][channel] }

// Frames returns the underlying frame-major data. Callers must treat it as
// read-only: Sound values are shared across the control thread and the
// engine's realtime callback, and mutating a returned
// slice would violate every consumer's assumption that a Sound never
// changes after construction.
func (s Sound) Frames() [][]float64 { return s.frames }

// Slice resolves sr against s and returns the sub-range as a new Sound that
// shares the original backing array. An out-of-range span fails with an
// error matching both ErrOutOfRange and timeval.ErrOutOfRange.
func (s Sound) Slice(sr timeval.SampleRange) (Sound, error) {
	var start, end, err = sr.Resolve(s.rate, s.NumFrames())
	if err != nil {
		return Sound{}, fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}

	return Sound{rate: s.rate, channels: s.channels, frames: s.frames[start:end], kind: s.kind}, nil
}

// ChannelSelect returns a stereo Sound where only the requested channel
// carries the input's content; the other channel is silence. A mono input
// is treated as if it were that single channel, broadcast into the chosen
// side. Result is always stereo.
func (s Sound) ChannelSelect(which Channel) Sound {
	var out = make([][]float64, s.NumFrames())

	for i, row := range s.frames {
		var v float64
		if s.channels == 1 {
			v = row[0]
		} else {
			v = row[which]
		}

		var frame = [2]float64{}
		frame[which] = v
		out[i] = frame[:]
	}

	return Sound{rate: s.rate, channels: 2, frames: out, kind: s.kind}
}

// Clip returns a copy of s with every sample clamped to [-1, +1].
func (s Sound) Clip() Sound {
	var out = make([][]float64, s.NumFrames())

	for i, row := range s.frames {
		var clipped = make([]float64, s.channels)
		for c, v := range row {
			clipped[c] = clampUnit(v)
		}

		out[i] = clipped
	}

	return Sound{rate: s.rate, channels: s.channels, frames: out, kind: s.kind}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
