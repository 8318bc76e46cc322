package sound

import (
	"math"

	"github.com/psylab/cadence/internal/timeval"
)

// Canonicalize clips to [-1,+1), ensures stereo, resamples if needed, and
// quantizes to 16-bit signed normalized fixed point -- the engine's
// required input format. Unlike ChannelSelect, a mono input
// is duplicated equally into both channels rather than panned to one side,
// since the canonical format is meant to play back as an ordinary stereo
// signal, not a single-sided one.
func (s Sound) Canonicalize(rateOut timeval.Freq) (Sound, []Warning) {
	var out = s.Clip()

	if out.channels == 1 {
		var dup = make([][]float64, out.NumFrames())
		for i, row := range out.frames {
			dup[i] = []float64{row[0], row[0]}
		}

		out = Sound{rate: out.rate, channels: 2, frames: dup, kind: out.kind}
	}

	var warnings []Warning

	if out.rate != rateOut {
		out, warnings = out.Resample(rateOut)
	}

	return out.quantize16(), warnings
}

// quantize16 rounds every sample to the nearest 16-bit signed normalized
// fixed-point value and tags the result KindFixed16.
func (s Sound) quantize16() Sound {
	var out = make([][]float64, s.NumFrames())

	for i, row := range s.frames {
		var q = make([]float64, s.channels)
		for c, v := range row {
			q[c] = quantizeSample(v)
		}

		out[i] = q
	}

	return Sound{rate: s.rate, channels: s.channels, frames: out, kind: KindFixed16}
}

func quantizeSample(v float64) float64 {
	var q = math.Round(v * 32768)
	q = math.Max(-32768, math.Min(32767, q))

	return q / 32768
}
