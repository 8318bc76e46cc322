// Package config loads the experiment descriptor cadence-run reads at
// startup: engine parameters, recorder info fields, and which trial
// script to run. `cadence.yaml` is looked up along a short, OS-agnostic
// search list (cwd, a `data/` subdirectory, then system share
// directories) rather than a single hardcoded path.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SearchLocations lists the paths Load tries, in order, when the caller
// doesn't supply an explicit path. The first one that exists wins.
var SearchLocations = []string{
	"cadence.yaml",
	"data/cadence.yaml",
	"../data/cadence.yaml",
	"/usr/local/share/cadence/cadence.yaml",
	"/usr/share/cadence/cadence.yaml",
}

// Engine carries the parameters Engine.Setup needs.
type Engine struct {
	Rate        int `yaml:"rate"`
	NumChannels int `yaml:"num_channels"`
	QueueSize   int `yaml:"queue_size"`
	StreamUnit  int `yaml:"stream_unit"`
}

// Recorder carries the recorder.New parameters beyond the output path.
type Recorder struct {
	Path        string            `yaml:"path"`
	Info        map[string]string `yaml:"info"`
	UserColumns []string          `yaml:"user_columns"`
}

// Config is the top-level experiment descriptor.
type Config struct {
	Engine    Engine   `yaml:"engine"`
	Recorder  Recorder `yaml:"recorder"`
	Script    string   `yaml:"script"`
	Advertise bool     `yaml:"advertise"`
}

// Default returns a Config with usable engine defaults: 44.1 kHz, 8
// discrete channels, an 8-deep queue, a 256-frame stream unit.
func Default() Config {
	return Config{
		Engine: Engine{Rate: 44100, NumChannels: 8, QueueSize: 8, StreamUnit: 256},
	}
}

// Load reads and parses the first existing file among path (if non-empty)
// or SearchLocations. It fails if none can be opened or the file found
// does not parse as YAML.
func Load(path string) (Config, error) {
	var candidates = SearchLocations
	if path != "" {
		candidates = []string{path}
	}

	var data []byte

	for _, loc := range candidates {
		var b, err = os.ReadFile(loc)
		if err == nil {
			data = b

			break
		}
	}

	if data == nil {
		return Config{}, fmt.Errorf("config: could not find cadence.yaml in any of %v", candidates)
	}

	var cfg = Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}
