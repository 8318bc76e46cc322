package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/psylab/cadence/internal/timeval"
)

func constantMono(rate timeval.Freq, n int, v float64) Sound {
	var samples = make([]float64, n)
	for i := range samples {
		samples[i] = v
	}

	return NewMono(rate, samples)
}

func TestNewRejectsBadChannelCount(t *testing.T) {
	var _, err = New(timeval.Hertz(44100), 3, [][]float64{{0, 0, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
}

func TestNewRejectsRowShapeMismatch(t *testing.T) {
	var _, err = New(timeval.Hertz(44100), 2, [][]float64{{0, 0}, {0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
}

func TestFromAnyRejectsIntegerBuffers(t *testing.T) {
	var _, err = FromAny(timeval.Hertz(44100), 1, []int16{0, 1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrType)
}

func TestSliceResolvesTimeSpanToFrames(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 44100, 0.5)

	var half, err = s.Slice(timeval.Span(timeval.Seconds(0), timeval.Seconds(0.5)))
	require.NoError(t, err)
	assert.Equal(t, 22050, half.NumFrames())
}

func TestSliceRejectsNegativeFrom(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 44100, 0.5)

	var _, err = s.Slice(timeval.Span(timeval.Seconds(-1), timeval.Seconds(0.5)))
	require.Error(t, err)
}

func TestChannelSelectMonoBroadcastsSingleSide(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 4, 0.25)

	var left = s.ChannelSelect(Left)
	assert.Equal(t, 2, left.Channels())

	for i := 0; i < left.NumFrames(); i++ {
		assert.Equal(t, 0.25, left.At(i, 0))
		assert.Equal(t, 0.0, left.At(i, 1))
	}
}

func TestChannelSelectStereoSilencesOtherSide(t *testing.T) {
	var frames = [][]float64{{0.1, 0.9}, {0.2, 0.8}}

	var s, err = New(timeval.Hertz(44100), 2, frames)
	require.NoError(t, err)

	var right = s.ChannelSelect(Right)

	for i := 0; i < right.NumFrames(); i++ {
		assert.Equal(t, 0.0, right.At(i, 0))
		assert.Equal(t, frames[i][1], right.At(i, 1))
	}
}

func TestClipClampsToUnitRange(t *testing.T) {
	var s = constantMono(timeval.Hertz(100), 3, 1.5)

	var clipped = s.Clip()
	for i := 0; i < clipped.NumFrames(); i++ {
		assert.Equal(t, 1.0, clipped.At(i, 0))
	}
}

func TestResampleDownsamplesFrameCount(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 44100, 0.2)

	var half, warnings = s.Resample(timeval.Hertz(22050))
	assert.Equal(t, 22050, half.NumFrames())
	require.Len(t, warnings, 1)
	assert.Equal(t, AliasWarningKind, warnings[0].Kind)
}

func TestResamplePreservesDCEnvelope(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 4410, 0.5)

	var resampled, _ = s.Resample(timeval.Hertz(22050))
	for i := 20; i < resampled.NumFrames()-20; i++ {
		assert.InDelta(t, 0.5, resampled.At(i, 0), 1e-6)
	}
}

func TestCanonicalizeEnsuresStereoAndFixed16(t *testing.T) {
	var s = constantMono(timeval.Hertz(44100), 100, 2.0) // out of range on purpose

	var out, _ = s.Canonicalize(timeval.Hertz(44100))
	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, KindFixed16, out.Kind())

	for i := 0; i < out.NumFrames(); i++ {
		assert.LessOrEqual(t, out.At(i, 0), 1.0)
		assert.Equal(t, out.At(i, 0), out.At(i, 1))
	}
}

func TestSoundInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var n = rapid.IntRange(1, 2000).Draw(t, "n")
		var rate = timeval.Hertz(rapid.Float64Range(4000, 96000).Draw(t, "rate"))

		var samples = make([]float64, n)
		for i := range samples {
			samples[i] = rapid.Float64Range(-1, 1).Draw(t, "sample")
		}

		var s = NewMono(rate, samples)
		assert.Equal(t, n, s.NumFrames())
		assert.InDelta(t, float64(n)/float64(rate), s.Duration().Seconds(), 1e-9)
	})
}
