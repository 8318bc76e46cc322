package dsp

import (
	"math"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// biquad is a direct-form-I second order section, y[n] = b0 x[n] + b1
// x[n-1] + b2 x[n-2] - a1 y[n-1] - a2 y[n-2] (already normalized so a0=1).
// A first-order section sets b2=a2=0.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func (bq biquad) apply(x []float64) []float64 {
	var y = make([]float64, len(x))
	var x1, x2, y1, y2 float64

	for i, xi := range x {
		var yi = bq.b0*xi + bq.b1*x1 + bq.b2*x2 - bq.a1*y1 - bq.a2*y2
		y[i] = yi
		x2, x1 = x1, xi
		y2, y1 = y1, yi
	}

	return y
}

// lowpassBiquad and highpassBiquad are the Audio EQ Cookbook (RBJ) biquad
// forms: a bilinear transform of the analog 2nd-order Butterworth section
// H(s) = wc^2/(s^2 + (wc/Q)s + wc^2), parameterized directly by corner
// frequency and Q so that cascading sections with the per-order Q table in
// butterworthQs reconstructs an Nth-order Butterworth response exactly.
func lowpassBiquad(fc, fs, q float64) biquad {
	var w0 = 2 * math.Pi * fc / fs
	var cosw0 = math.Cos(w0)
	var alpha = math.Sin(w0) / (2 * q)

	var a0 = 1 + alpha
	var b0 = (1 - cosw0) / 2 / a0
	var b1 = (1 - cosw0) / a0
	var b2 = (1 - cosw0) / 2 / a0
	var a1 = -2 * cosw0 / a0
	var a2 = (1 - alpha) / a0

	return biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

func highpassBiquad(fc, fs, q float64) biquad {
	var w0 = 2 * math.Pi * fc / fs
	var cosw0 = math.Cos(w0)
	var alpha = math.Sin(w0) / (2 * q)

	var a0 = 1 + alpha
	var b0 = (1 + cosw0) / 2 / a0
	var b1 = -(1 + cosw0) / a0
	var b2 = (1 + cosw0) / 2 / a0
	var a1 = -2 * cosw0 / a0
	var a2 = (1 - alpha) / a0

	return biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// firstOrderLowpass and firstOrderHighpass are the bilinear-transformed
// single-pole sections used to realize the leftover real pole of an
// odd-order Butterworth design.
func firstOrderLowpass(fc, fs float64) biquad {
	var k = math.Tan(math.Pi * fc / fs)
	var a0 = k + 1

	return biquad{b0: k / a0, b1: k / a0, a1: (k - 1) / a0}
}

func firstOrderHighpass(fc, fs float64) biquad {
	var k = math.Tan(math.Pi * fc / fs)
	var a0 = k + 1

	return biquad{b0: 1 / a0, b1: -1 / a0, a1: (k - 1) / a0}
}

// butterworthQs returns the per-section Q factors for an Nth-order
// Butterworth filter cascaded as floor(N/2) second-order sections sharing
// the same corner frequency, plus one first-order section when N is odd.
func butterworthQs(order int) (qs []float64, hasFirstOrder bool) {
	var pairs = order / 2

	for k := 1; k <= pairs; k++ {
		var theta = float64(2*k-1) * math.Pi / (2 * float64(order))
		qs = append(qs, 1/(2*math.Cos(theta)))
	}

	return qs, order%2 == 1
}

func cascade(corner float64, order int, fs float64, second func(fc, fs, q float64) biquad, first func(fc, fs float64) biquad) []biquad {
	var qs, hasFirst = butterworthQs(order)

	var sections = make([]biquad, 0, len(qs)+1)
	for _, q := range qs {
		sections = append(sections, second(corner, fs, q))
	}

	if hasFirst {
		sections = append(sections, first(corner, fs))
	}

	return sections
}

func applyCascade(s sound.Sound, sections []biquad) sound.Sound {
	var n = s.NumFrames()
	var channels = s.Channels()

	var perChannel = make([][]float64, channels)
	for c := 0; c < channels; c++ {
		perChannel[c] = make([]float64, n)
		for i := 0; i < n; i++ {
			perChannel[c][i] = s.At(i, c)
		}
	}

	for c := range perChannel {
		for _, sec := range sections {
			perChannel[c] = sec.apply(perChannel[c])
		}
	}

	var frames = make([][]float64, n)
	for i := 0; i < n; i++ {
		var row = make([]float64, channels)
		for c := 0; c < channels; c++ {
			row[c] = perChannel[c][i]
		}

		frames[i] = row
	}

	var out, _ = sound.New(s.Rate(), channels, frames)

	return out
}

// Lowpass applies a forward Butterworth low-pass filter of the given order
// at corner, independently per channel.
func Lowpass(s sound.Sound, corner timeval.Freq, order int) sound.Sound {
	var sections = cascade(float64(corner), order, float64(s.Rate()), lowpassBiquad, firstOrderLowpass)

	return applyCascade(s, sections)
}

// Highpass applies a forward Butterworth high-pass filter of the given
// order at corner, independently per channel.
func Highpass(s sound.Sound, corner timeval.Freq, order int) sound.Sound {
	var sections = cascade(float64(corner), order, float64(s.Rate()), highpassBiquad, firstOrderHighpass)

	return applyCascade(s, sections)
}

// Bandpass cascades a high-pass at low and a low-pass at high, each of
// the given Butterworth order, reusing the same building blocks as
// Lowpass/Highpass rather than deriving a dedicated bandpass prototype.
func Bandpass(s sound.Sound, low, high timeval.Freq, order int) sound.Sound {
	return Lowpass(Highpass(s, low, order), high, order)
}

// Bandstop sums a low-band and a high-band component, rejecting the band
// between low and high. Same unspecified-topology reasoning as Bandpass.
func Bandstop(s sound.Sound, low, high timeval.Freq, order int) sound.Sound {
	// Both components derive from the same input, so the shapes always match.
	var out, _ = Mix(Lowpass(s, low, order), Highpass(s, high, order))

	return out
}
