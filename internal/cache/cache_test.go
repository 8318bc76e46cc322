package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

func monoOf(rate timeval.Freq, v float64) sound.Sound {
	return sound.NewMono(rate, []float64{v, v, v, v})
}

func TestGetMissesThenHits(t *testing.T) {
	var c, err = New(timeval.Hertz(44100), 4)
	require.NoError(t, err)

	var calls int
	var compute = func() (sound.Sound, error) {
		calls++
		return monoOf(timeval.Hertz(44100), 0.5), nil
	}

	var _, _, getErr = c.Get("a", compute)
	require.NoError(t, getErr)
	_, _, getErr = c.Get("a", compute)
	require.NoError(t, getErr)

	assert.Equal(t, 1, calls)
}

func TestGetCanonicalizesOnInsert(t *testing.T) {
	var c, err = New(timeval.Hertz(44100), 4)
	require.NoError(t, err)

	var out, _, getErr = c.Get("a", func() (sound.Sound, error) {
		return monoOf(timeval.Hertz(44100), 0.5), nil
	})
	require.NoError(t, getErr)

	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, sound.KindFixed16, out.Kind())
}

func TestEvictionKeepsCapacityMostRecentlyUsed(t *testing.T) {
	var capacity = 3
	var c, err = New(timeval.Hertz(44100), capacity)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		var key = fmt.Sprintf("key-%d", i)
		var _, _, getErr = c.Get(key, func() (sound.Sound, error) {
			return monoOf(timeval.Hertz(44100), 0.1), nil
		})
		require.NoError(t, getErr)
	}

	assert.Equal(t, capacity, c.Len())

	// the 3 most recently inserted survive; the earliest 2 were evicted.
	for i := 0; i < 2; i++ {
		var calls int
		var key = fmt.Sprintf("key-%d", i)
		var _, _, getErr = c.Get(key, func() (sound.Sound, error) {
			calls++
			return monoOf(timeval.Hertz(44100), 0.1), nil
		})
		require.NoError(t, getErr)
		assert.Equal(t, 1, calls, "evicted key should have recomputed on re-fetch")
	}
}

func TestFlushClearsEntries(t *testing.T) {
	var c, err = New(timeval.Hertz(44100), 4)
	require.NoError(t, err)

	var _, _, getErr = c.Get("a", func() (sound.Sound, error) {
		return monoOf(timeval.Hertz(44100), 0.1), nil
	})
	require.NoError(t, getErr)
	require.Equal(t, 1, c.Len())

	c.Flush(timeval.Hertz(48000))
	assert.Equal(t, 0, c.Len())
}

func TestCacheSizeInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var capacity = rapid.IntRange(1, 16).Draw(t, "capacity")
		var n = rapid.IntRange(0, 40).Draw(t, "n")

		var c, err = New(timeval.Hertz(44100), capacity)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			var key = fmt.Sprintf("k-%d", i)
			var _, _, getErr = c.Get(key, func() (sound.Sound, error) {
				return monoOf(timeval.Hertz(44100), 0.1), nil
			})
			require.NoError(t, getErr)
		}

		var want = n
		if want > capacity {
			want = capacity
		}

		assert.Equal(t, want, c.Len())
	})
}
