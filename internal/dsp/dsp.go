// Package dsp implements the pure sound-producing primitives: silence,
// noise, tone, harmonic complexes, filters, ramps,
// attenuation, and the mix/mult/leftright/fadeto combinators. Every
// function here returns a new sound.Sound and never mutates an input one.
package dsp

import (
	"math"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

func numFrames(rate timeval.Freq, length timeval.Time) int {
	var n = length.Samples(rate)
	if n < 0 {
		n = 0
	}

	return n
}

func channelCount(stereo bool) int {
	if stereo {
		return 2
	}

	return 1
}

func broadcast(rate timeval.Freq, channels int, gen func(t float64) float64, n int) sound.Sound {
	var frames = make([][]float64, n)

	for i := 0; i < n; i++ {
		var v = gen(float64(i) / float64(rate))

		var row = make([]float64, channels)
		for c := range row {
			row[c] = v
		}

		frames[i] = row
	}

	var s, _ = sound.New(rate, channels, frames)

	return s
}

// Silence returns a zero buffer of ⌊length·rate⌋ frames.
func Silence(rate timeval.Freq, length timeval.Time, stereo bool) sound.Sound {
	var n = numFrames(rate, length)
	var channels = channelCount(stereo)
	var frames = make([][]float64, n)

	for i := range frames {
		frames[i] = make([]float64, channels)
	}

	var s, _ = sound.New(rate, channels, frames)

	return s
}

// RNG is the minimal randomness source Noise needs; *math/rand.Rand
// satisfies it.
type RNG interface {
	Float64() float64
}

// Noise returns uniform samples in (-1,+1). Stereo channels are
// independent draws from the same RNG, in left-then-right order per frame.
func Noise(rate timeval.Freq, length timeval.Time, stereo bool, rng RNG) sound.Sound {
	var n = numFrames(rate, length)
	var channels = channelCount(stereo)
	var frames = make([][]float64, n)

	for i := range frames {
		var row = make([]float64, channels)
		for c := range row {
			var v = 2*rng.Float64() - 1
			for v == -1 {
				v = 2*rng.Float64() - 1
			}

			row[c] = v
		}

		frames[i] = row
	}

	var s, _ = sound.New(rate, channels, frames)

	return s
}

// Tone returns sin(2π·f·t + phase) for t = k/rate, k=0..⌊length·rate⌋-1.
func Tone(rate timeval.Freq, f timeval.Freq, length timeval.Time, stereo bool, phase float64) sound.Sound {
	var n = numFrames(rate, length)
	var channels = channelCount(stereo)

	return broadcast(rate, channels, func(t float64) float64 {
		return math.Sin(f.Angular()*t + phase)
	}, n)
}

// Harmonic is one partial of a HarmonicComplex: its ratio to f0, amplitude,
// and phase offset.
type Harmonic struct {
	Order int // multiple of f0; 1 is the fundamental
	Amp   float64
	Phase float64
}

// HarmonicComplex builds one cycle of duration 1/f0 by summing the
// requested harmonics at their amplitudes and phases, then tiles that
// cycle (wrapping on exact cycle boundaries) to ⌊length·rate⌋ frames.
// Summing a single precomputed cycle this way, rather than evaluating
// every harmonic at every output sample directly, avoids the
// floating-point beating that direct per-sample summation of many pure
// tones accumulates over a long buffer.
func HarmonicComplex(rate timeval.Freq, f0 timeval.Freq, harmonics []Harmonic, length timeval.Time, stereo bool) sound.Sound {
	var total = numFrames(rate, length)
	var channels = channelCount(stereo)

	var cycleFrames = f0.Period().Samples(rate)
	if cycleFrames < 1 {
		cycleFrames = 1
	}

	var cycle = make([]float64, cycleFrames)

	for i := range cycle {
		var t = float64(i) / float64(rate)

		var v float64
		for _, h := range harmonics {
			v += h.Amp * math.Sin((f0*timeval.Freq(h.Order)).Angular()*t+h.Phase)
		}

		cycle[i] = v
	}

	var frames = make([][]float64, total)
	for i := range frames {
		var v = cycle[i%cycleFrames]

		var row = make([]float64, channels)
		for c := range row {
			row[c] = v
		}

		frames[i] = row
	}

	var s, _ = sound.New(rate, channels, frames)

	return s
}
