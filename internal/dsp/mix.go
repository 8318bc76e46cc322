package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// perChannelVectors extracts s's samples into one []float64 per channel,
// so combinators can lean on gonum/floats for the elementwise arithmetic.
func perChannelVectors(s sound.Sound) [][]float64 {
	var channels = s.Channels()
	var n = s.NumFrames()

	var out = make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, n)
		for i := 0; i < n; i++ {
			out[c][i] = s.At(i, c)
		}
	}

	return out
}

func vectorsToSound(rate timeval.Freq, vectors [][]float64) sound.Sound {
	var channels = len(vectors)
	var n = 0
	if channels > 0 {
		n = len(vectors[0])
	}

	var frames = make([][]float64, n)
	for i := 0; i < n; i++ {
		var row = make([]float64, channels)
		for c := range vectors {
			row[c] = vectors[c][i]
		}

		frames[i] = row
	}

	var s, _ = sound.New(rate, channels, frames)

	return s
}

func padTo(v []float64, n int) []float64 {
	if len(v) >= n {
		return v
	}

	var out = make([]float64, n)
	copy(out, v)

	return out
}

// padToOnes is padTo with the multiplicative identity: past the input's
// length, the product passes the other operand through unchanged.
func padToOnes(v []float64, n int) []float64 {
	if len(v) >= n {
		return v
	}

	var out = make([]float64, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = 1
	}

	return out
}

func sameShape(a, b sound.Sound) error {
	if a.Rate() != b.Rate() {
		return fmt.Errorf("%w: rates %.0fHz and %.0fHz differ", ErrShape, a.Rate().Hertz(), b.Rate().Hertz())
	}

	if a.Channels() != b.Channels() {
		return fmt.Errorf("%w: channel counts %d and %d differ", ErrShape, a.Channels(), b.Channels())
	}

	return nil
}

// Mix sums sounds sample-by-sample, zero-padding any that are shorter than
// the longest. It fails with ErrShape when the inputs do not all share a
// rate and channel count.
func Mix(sounds ...sound.Sound) (sound.Sound, error) {
	if len(sounds) == 0 {
		return sound.Sound{}, nil
	}

	var rate = sounds[0].Rate()
	var channels = sounds[0].Channels()

	var maxN = 0
	for _, s := range sounds {
		if err := sameShape(sounds[0], s); err != nil {
			return sound.Sound{}, err
		}

		if s.NumFrames() > maxN {
			maxN = s.NumFrames()
		}
	}

	var acc = make([][]float64, channels)
	for c := range acc {
		acc[c] = make([]float64, maxN)
	}

	for _, s := range sounds {
		var vecs = perChannelVectors(s)
		for c := range acc {
			floats.Add(acc[c], padTo(vecs[c], maxN))
		}
	}

	return vectorsToSound(rate, acc), nil
}

// Mult multiplies two sounds sample-by-sample, one-padding the shorter to
// the longer's length so the longer operand passes through unchanged past
// the shorter's end. It fails with ErrShape when the inputs do not share a
// rate and channel count.
func Mult(a, b sound.Sound) (sound.Sound, error) {
	if err := sameShape(a, b); err != nil {
		return sound.Sound{}, err
	}

	var maxN = a.NumFrames()
	if b.NumFrames() > maxN {
		maxN = b.NumFrames()
	}

	var va, vb = perChannelVectors(a), perChannelVectors(b)

	var out = make([][]float64, a.Channels())
	for c := range out {
		out[c] = make([]float64, maxN)
		floats.MulTo(out[c], padToOnes(va[c], maxN), padToOnes(vb[c], maxN))
	}

	return vectorsToSound(a.Rate(), out), nil
}

// LeftRight combines two mono sounds into one stereo sound, left into
// channel 0 and right into channel 1, zero-padding the shorter of the two
// to the longer's length. It fails with ErrShape when either input is not
// mono or their rates differ.
func LeftRight(left, right sound.Sound) (sound.Sound, error) {
	if left.Channels() != 1 || right.Channels() != 1 {
		return sound.Sound{}, fmt.Errorf("%w: inputs have %d and %d channels, want mono", ErrShape, left.Channels(), right.Channels())
	}

	if left.Rate() != right.Rate() {
		return sound.Sound{}, fmt.Errorf("%w: rates %.0fHz and %.0fHz differ", ErrShape, left.Rate().Hertz(), right.Rate().Hertz())
	}

	var n = left.NumFrames()
	if right.NumFrames() > n {
		n = right.NumFrames()
	}

	var vl = padTo(perChannelVectors(left)[0], n)
	var vr = padTo(perChannelVectors(right)[0], n)

	return vectorsToSound(left.Rate(), [][]float64{vl, vr}), nil
}

// FadeTo crosses a into b over overlap: a plays in full, its last overlap
// is mixed with b's first overlap via complementary raised-cosine ramps,
// and b's remainder follows. The result's duration is dur(a)+dur(b)-overlap.
func FadeTo(a, b sound.Sound, overlap timeval.Time) (sound.Sound, error) {
	if err := sameShape(a, b); err != nil {
		return sound.Sound{}, err
	}

	var aOut, err = RampOff(a, overlap)
	if err != nil {
		return sound.Sound{}, err
	}

	var bIn sound.Sound
	bIn, err = RampOn(b, overlap)
	if err != nil {
		return sound.Sound{}, err
	}

	var overlapFrames = overlap.Samples(a.Rate())
	var aLen = aOut.NumFrames()
	var bLen = bIn.NumFrames()
	var totalLen = aLen + bLen - overlapFrames

	var channels = aOut.Channels()
	var frames = make([][]float64, totalLen)
	for i := range frames {
		frames[i] = make([]float64, channels)
	}

	for i := 0; i < aLen; i++ {
		for c := 0; c < channels; c++ {
			frames[i][c] += aOut.At(i, c)
		}
	}

	var bStart = aLen - overlapFrames
	for i := 0; i < bLen; i++ {
		for c := 0; c < channels; c++ {
			frames[bStart+i][c] += bIn.At(i, c)
		}
	}

	var out, newErr = sound.New(a.Rate(), channels, frames)

	return out, newErr
}
