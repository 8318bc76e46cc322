// Command cadence-monitor is a live operator view of the audio engine: a
// ticker-driven redraw loop showing sample rate, current latency, the
// playback-error counter, and channel-queue occupancy, so lateness shows
// up while a session is still running instead of in the CSV afterwards.
// It can also browse mDNS for cadence instances advertised by other
// machines on the lab network and, with --tone, play a reference tone
// through the local engine to exercise the whole output path.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/psylab/cadence/internal/cache"
	"github.com/psylab/cadence/internal/config"
	"github.com/psylab/cadence/internal/discovery"
	"github.com/psylab/cadence/internal/dsp"
	"github.com/psylab/cadence/internal/engine"
	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// peers accumulates mDNS browse results; the dnssd callbacks run on its
// own goroutine while the redraw loop reads the list each tick.
type peers struct {
	mu    sync.Mutex
	names []string
}

func (p *peers) add(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range p.names {
		if n == name {
			return
		}
	}

	p.names = append(p.names, name)
}

func (p *peers) remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			return
		}
	}
}

func (p *peers) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string{}, p.names...)
}

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to cadence.yaml (searched in standard locations if omitted).")
	var intervalMs = pflag.IntP("interval", "i", 250, "Redraw interval in milliseconds.")
	var browse = pflag.Bool("browse", false, "Browse mDNS for cadence instances on the local network.")
	var toneHz = pflag.Float64("tone", 0, "Play a reference tone at this frequency once per second (0 disables).")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cadence-monitor"})

	var cfg, cfgErr = config.Load(*configPath)
	if cfgErr != nil {
		logger.Warn("no config found, using defaults", "err", cfgErr)
		cfg = config.Default()
	}

	var rate = timeval.Hertz(float64(cfg.Engine.Rate))
	var eng = engine.New()

	var c, cacheErr = cache.New(rate, cache.DefaultCapacity)
	if cacheErr != nil {
		logger.Error("failed to build cache", "err", cacheErr)
		os.Exit(1)
	}

	eng.AttachCache(c)

	if err := eng.Setup(rate, cfg.Engine.NumChannels, cfg.Engine.QueueSize, cfg.Engine.StreamUnit); err != nil {
		logger.Error("failed to open audio device", "err", err)
		os.Exit(1)
	}
	defer eng.Close()

	var found = &peers{}

	if *browse {
		var ctx, cancel = context.WithCancel(context.Background())
		defer cancel()

		go func() {
			var err = dnssd.LookupType(ctx, discovery.ServiceType+".local.",
				func(e dnssd.BrowseEntry) { found.add(e.Name) },
				func(e dnssd.BrowseEntry) { found.remove(e.Name) })
			if err != nil && ctx.Err() == nil {
				logger.Warn("mDNS browse stopped", "err", err)
			}
		}()
	}

	var refTone sound.Sound
	if *toneHz > 0 {
		refTone = referenceTone(c, rate, timeval.Hertz(*toneHz))
	}

	var ticker = time.NewTicker(time.Duration(*intervalMs) * time.Millisecond)
	defer ticker.Stop()

	var lastTone time.Time

	for range ticker.C {
		if *toneHz > 0 && time.Since(lastTone) >= time.Second {
			if _, err := eng.Play(refTone, 0, 0); err != nil {
				logger.Warn("reference tone rejected", "err", err)
			}

			lastTone = time.Now()
		}

		fmt.Print("\033[H\033[2J")
		fmt.Println(render(eng.Stats(), eng.LastWarning(), *browse, found.list()))
	}
}

type toneKey struct{ hz float64 }

func referenceTone(c *cache.Cache, rate, f timeval.Freq) sound.Sound {
	var s, _, err = c.Get(toneKey{hz: f.Hertz()}, func() (sound.Sound, error) {
		var raw = dsp.Tone(rate, f, timeval.Seconds(0.1), false, 0)

		return dsp.Ramp(raw, timeval.Milliseconds(5))
	})
	if err != nil {
		log.Error("failed to build reference tone", "err", err)
		os.Exit(1)
	}

	return s
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func render(st engine.Stats, warning string, browsing bool, remote []string) string {
	var latencyStr = fmt.Sprintf("%.2f ms", st.Latency.Seconds()*1000)

	var errStyle = okStyle
	var errStr = "none"
	if st.PlaybackError < 0 {
		errStyle = badStyle
		errStr = fmt.Sprintf("%d frames late", -st.PlaybackError)
	}

	var lines = []string{
		titleStyle.Render("cadence engine"),
		row("rate", fmt.Sprintf("%.0f Hz", st.Rate.Hertz())),
		row("latency", latencyStr),
		row("playback error", errStyle.Render(errStr)),
		row("discrete", fmt.Sprintf("%d/%d busy", st.DiscreteBusy, st.DiscreteTotal)),
		row("streaming", fmt.Sprintf("%d/%d busy", st.StreamingBusy, st.StreamingTotal)),
	}

	if warning != "" {
		lines = append(lines, row("warning", warnStyle.Render(warning)))
	}

	if browsing {
		lines = append(lines, "", titleStyle.Render("instances"))
		if len(remote) == 0 {
			lines = append(lines, labelStyle.Render("(none found)"))
		}
		for _, name := range remote {
			lines = append(lines, okStyle.Render(name))
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
