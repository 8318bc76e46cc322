package dsp

import (
	"math"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// rampWindow returns a raised-cosine (Hann) multiplier for position i of n,
// rising from 0 to 1 as i goes 0..n-1.
func rampWindow(i, n int) float64 {
	if n <= 1 {
		return 1
	}

	return 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n-1)))
}

func scaleFrames(s sound.Sound, weight func(i int) float64) sound.Sound {
	var n = s.NumFrames()
	var channels = s.Channels()

	var frames = make([][]float64, n)
	for i := 0; i < n; i++ {
		var w = weight(i)

		var row = make([]float64, channels)
		for c := 0; c < channels; c++ {
			row[c] = s.At(i, c) * w
		}

		frames[i] = row
	}

	var out, _ = sound.New(s.Rate(), channels, frames)

	return out
}

// RampOn fades the first dur of s in from silence with a raised-cosine
// envelope, leaving the remainder untouched.
func RampOn(s sound.Sound, dur timeval.Time) (sound.Sound, error) {
	var n = dur.Samples(s.Rate())
	if n <= 0 || n > s.NumFrames() {
		return sound.Sound{}, ErrDurationTooShort
	}

	return scaleFrames(s, func(i int) float64 {
		if i >= n {
			return 1
		}

		return rampWindow(i, n)
	}), nil
}

// RampOff fades the last dur of s out to silence with a raised-cosine
// envelope, leaving the remainder untouched.
func RampOff(s sound.Sound, dur timeval.Time) (sound.Sound, error) {
	var n = dur.Samples(s.Rate())
	if n <= 0 || n > s.NumFrames() {
		return sound.Sound{}, ErrDurationTooShort
	}

	var total = s.NumFrames()

	return scaleFrames(s, func(i int) float64 {
		var fromEnd = total - 1 - i
		if fromEnd >= n {
			return 1
		}

		return rampWindow(fromEnd, n)
	}), nil
}

// Ramp fades both ends of s in and out over dur each. The two ramp regions
// must not meet or overlap: 2·dur must be shorter than the sound's
// duration, otherwise Ramp fails with ErrDurationTooShort.
func Ramp(s sound.Sound, dur timeval.Time) (sound.Sound, error) {
	var n = dur.Samples(s.Rate())
	if n <= 0 || 2*n >= s.NumFrames() {
		return sound.Sound{}, ErrDurationTooShort
	}

	var total = s.NumFrames()

	return scaleFrames(s, func(i int) float64 {
		if i < n {
			return rampWindow(i, n)
		}

		var fromEnd = total - 1 - i
		if fromEnd < n {
			return rampWindow(fromEnd, n)
		}

		return 1
	}), nil
}

// Attenuate normalizes s to unit RMS across all channels, then scales by
// 10^(-db/20): attenuate(s, a) ≈ attenuate(s, 0)·10^(-a/20).
func Attenuate(s sound.Sound, db float64) sound.Sound {
	var sumSq float64
	var count int

	for i := 0; i < s.NumFrames(); i++ {
		for c := 0; c < s.Channels(); c++ {
			var v = s.At(i, c)
			sumSq += v * v
			count++
		}
	}

	var rms = 1.0
	if count > 0 && sumSq > 0 {
		rms = math.Sqrt(sumSq / float64(count))
	}

	var gain = math.Pow(10, -db/20) / rms

	return scaleFrames(s, func(int) float64 { return gain })
}
