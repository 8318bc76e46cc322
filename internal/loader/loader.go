// Package loader implements the external audio-file interface: load(path)
// -> (buffer, rate, channels) and save(path, sound). WaveLoader is the one
// concrete adapter, so the Sound Cache has a real producer to exercise
// without internal/sound or internal/engine ever importing a file-format
// package directly.
package loader

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// WaveLoader reads and writes 16-bit PCM WAV files into and out of
// sound.Sound values.
type WaveLoader struct{}

// Load decodes path into a Sound at its file-native rate and channel
// count; callers canonicalize through internal/cache before handing the
// result to the engine.
func (WaveLoader) Load(path string) (sound.Sound, error) {
	var f, err = os.Open(path)
	if err != nil {
		return sound.Sound{}, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	var dec = wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return sound.Sound{}, fmt.Errorf("loader: %s is not a valid WAV file", path)
	}

	var buf, decErr = dec.FullPCMBuffer()
	if decErr != nil {
		return sound.Sound{}, fmt.Errorf("loader: decode %s: %w", path, decErr)
	}

	var channels = buf.Format.NumChannels
	var rate = timeval.Hertz(float64(buf.Format.SampleRate))
	var scale = float64(int(1) << (buf.SourceBitDepth - 1))

	var frames = make([][]float64, len(buf.Data)/channels)
	for i := range frames {
		var row = make([]float64, channels)
		for c := 0; c < channels; c++ {
			row[c] = float64(buf.Data[i*channels+c]) / scale
		}

		frames[i] = row
	}

	return sound.New(rate, channels, frames)
}

// Save writes s to path as a 16-bit PCM WAV file, canonicalizing it to
// s.Rate() first so the on-disk format always matches the invariant the
// caller's Sound already carries.
func (WaveLoader) Save(path string, s sound.Sound) error {
	var canon, _ = s.Canonicalize(s.Rate())

	var f, err = os.Create(path)
	if err != nil {
		return fmt.Errorf("loader: create %s: %w", path, err)
	}
	defer f.Close()

	var enc = wav.NewEncoder(f, int(canon.Rate()), 16, canon.Channels(), 1)

	var data = make([]int, canon.NumFrames()*canon.Channels())
	for i, row := range canon.Frames() {
		for c, v := range row {
			data[i*canon.Channels()+c] = int(v * 32768)
		}
	}

	var buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: canon.Channels(), SampleRate: int(canon.Rate())},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("loader: write %s: %w", path, err)
	}

	return enc.Close()
}
