package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psylab/cadence/internal/cache"
	"github.com/psylab/cadence/internal/dsp"
	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	var rate = timeval.Hertz(8000)
	var tone = dsp.Tone(rate, timeval.Hertz(440), timeval.Seconds(0.05), false, 0)

	var path = filepath.Join(t.TempDir(), "tone.wav")
	var l WaveLoader

	require.NoError(t, l.Save(path, tone))

	var got, err = l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, rate, got.Rate())
	assert.Equal(t, 2, got.Channels(), "Save canonicalizes, so the file on disk is stereo")
	require.Equal(t, tone.NumFrames(), got.NumFrames())

	// 16-bit quantization is the only loss the round trip may introduce.
	for i := 0; i < got.NumFrames(); i++ {
		assert.InDelta(t, tone.At(i, 0), got.At(i, 0), 2.0/32768, "frame %d", i)
	}
}

// TestLoadFeedsCacheCanonicalization drives the full stimulus-file path: a
// WAV at a file-native rate is loaded through the Sound Cache, which
// canonicalizes it to the engine rate exactly once.
func TestLoadFeedsCacheCanonicalization(t *testing.T) {
	var fileRate = timeval.Hertz(8000)
	var engineRate = timeval.Hertz(44100)

	var path = filepath.Join(t.TempDir(), "stim.wav")
	var l WaveLoader
	require.NoError(t, l.Save(path, dsp.Tone(fileRate, timeval.Hertz(440), timeval.Seconds(0.05), false, 0)))

	var c, cacheErr = cache.New(engineRate, 4)
	require.NoError(t, cacheErr)

	var loads int
	var compute = func() (sound.Sound, error) {
		loads++
		return l.Load(path)
	}

	var s, _, err = c.Get(path, compute)
	require.NoError(t, err)

	assert.Equal(t, engineRate, s.Rate())
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, sound.KindFixed16, s.Kind())

	_, _, err = c.Get(path, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second fetch must come from the cache, not the file")
}

func TestLoadRejectsNonWavFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	var _, err = WaveLoader{}.Load(path)
	require.Error(t, err)
}
