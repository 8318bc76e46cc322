package sound

import (
	"fmt"
	"math"

	"github.com/psylab/cadence/internal/timeval"
)

// Resample returns a copy of s at rate rOut. It runs a windowed-sinc
// low-pass antialiasing filter
// ahead of linear-interpolated decimation when downsampling, and plain
// linear interpolation when upsampling. Downsampling (rOut < s.Rate())
// reports an AliasWarning naming the band above the new Nyquist frequency
// that the low-pass discards.
func (s Sound) Resample(rOut timeval.Freq) (Sound, []Warning) {
	if rOut == s.rate {
		return s, nil
	}

	var (
		src      = s
		warnings []Warning
	)

	if rOut < s.rate {
		var nyquist = float64(rOut) / 2
		src = lowpassFIR(s, nyquist)
		warnings = append(warnings, Warning{
			Kind: AliasWarningKind,
			Msg:  fmt.Sprintf("resampling %.0fHz->%.0fHz discards content above %.1fHz", float64(s.rate), float64(rOut), nyquist),
		})
	}

	var n = src.NumFrames()
	var ratio = float64(src.rate) / float64(rOut) // source frames per output frame
	var outFrames = int(math.Floor(float64(n) / ratio))
	var out = make([][]float64, outFrames)

	for i := range out {
		var pos = float64(i) * ratio
		var lo = int(math.Floor(pos))
		var frac = pos - float64(lo)

		var hi = lo + 1
		if hi >= n {
			hi = n - 1
		}

		if lo >= n {
			lo = n - 1
		}

		var row = make([]float64, src.channels)
		for c := range row {
			row[c] = src.frames[lo][c]*(1-frac) + src.frames[hi][c]*frac
		}

		out[i] = row
	}

	return Sound{rate: rOut, channels: src.channels, frames: out, kind: s.kind}, warnings
}

// lowpassFIR applies a Hann-windowed sinc low-pass filter with corner
// cutoffHz, implemented as direct convolution (edges clamp to the nearest
// valid frame rather than zero-pad, so envelope isn't attenuated at the
// boundaries).
func lowpassFIR(s Sound, cutoffHz float64) Sound {
	const halfTaps = 16

	var taps = 2*halfTaps + 1
	var fc = cutoffHz / float64(s.rate)
	var kernel = make([]float64, taps)
	var sum float64

	for i := 0; i < taps; i++ {
		var k = i - halfTaps

		var sinc float64
		if k == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*float64(k)) / (math.Pi * float64(k))
		}

		var window = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(taps-1))
		kernel[i] = sinc * window
		sum += kernel[i]
	}

	for i := range kernel {
		kernel[i] /= sum
	}

	var n = s.NumFrames()
	var out = make([][]float64, n)

	for i := 0; i < n; i++ {
		var row = make([]float64, s.channels)

		for c := 0; c < s.channels; c++ {
			var acc float64

			for k := 0; k < taps; k++ {
				var idx = i + k - halfTaps
				if idx < 0 {
					idx = 0
				}

				if idx >= n {
					idx = n - 1
				}

				acc += kernel[k] * s.frames[idx][c]
			}

			row[c] = acc
		}

		out[i] = row
	}

	return Sound{rate: s.rate, channels: s.channels, frames: out, kind: s.kind}
}
