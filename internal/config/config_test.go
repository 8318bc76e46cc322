package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExplicitPath(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  rate: 48000
  num_channels: 4
  queue_size: 8
  stream_unit: 128
recorder:
  path: out.csv
  info:
    subject: s01
  user_columns: [rt]
script: oddball
`), 0o644))

	var cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.Engine.Rate)
	assert.Equal(t, "oddball", cfg.Script)
	assert.Equal(t, "s01", cfg.Recorder.Info["subject"])
}

func TestLoadFailsWhenNothingFound(t *testing.T) {
	var _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultProvidesUsableEngineParams(t *testing.T) {
	var cfg = Default()
	assert.Equal(t, 44100, cfg.Engine.Rate)
	assert.Positive(t, cfg.Engine.NumChannels)
}
