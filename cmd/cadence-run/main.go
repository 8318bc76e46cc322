// Command cadence-run wires up the audio engine, the moment/trial
// scheduler, the recorder, and a keyboard input source, then runs a
// built-in demo trial. The config's script field is not consulted.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/psylab/cadence/internal/cache"
	"github.com/psylab/cadence/internal/config"
	"github.com/psylab/cadence/internal/discovery"
	"github.com/psylab/cadence/internal/dsp"
	"github.com/psylab/cadence/internal/engine"
	"github.com/psylab/cadence/internal/hotplug"
	"github.com/psylab/cadence/internal/input"
	"github.com/psylab/cadence/internal/recorder"
	"github.com/psylab/cadence/internal/scheduler"
	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to cadence.yaml (searched in standard locations if omitted).")
	var subject = pflag.StringP("subject", "s", "anonymous", "Subject identifier, recorded in every event row.")
	var noAdvertise = pflag.Bool("no-advertise", false, "Disable mDNS advertisement even if the config requests it.")
	var gpioChip = pflag.String("gpio-chip", "", "GPIO chip with a wired response box, e.g. gpiochip0 (empty disables GPIO input).")
	var gpioButtons = pflag.StringSlice("gpio-button", nil, "Response-box button as offset=name, repeatable (e.g. 23=y).")
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

	var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cadence-run"})

	var cfg, cfgErr = config.Load(*configPath)
	if cfgErr != nil {
		logger.Error("failed to load config", "err", cfgErr)
		os.Exit(1)
	}

	if cfg.Recorder.Info == nil {
		cfg.Recorder.Info = map[string]string{}
	}
	cfg.Recorder.Info["subject"] = *subject

	var eng = engine.New()
	var rate = timeval.Hertz(float64(cfg.Engine.Rate))

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

	var watcher, watchErr = hotplug.Watch(func() {
		logger.Warn("sound subsystem changed, re-opening engine")

		if err := eng.Setup(rate, cfg.Engine.NumChannels, cfg.Engine.QueueSize, cfg.Engine.StreamUnit); err != nil {
			logger.Error("failed to re-open audio device after hotplug", "err", err)
		}
	})
	if watchErr != nil {
		logger.Warn("hotplug watcher unavailable", "err", watchErr)
	} else {
		defer watcher.Close()
	}

	if cfg.Advertise && !*noAdvertise {
		var ad, advErr = discovery.Advertise("cadence-run", 0)
		if advErr != nil {
			logger.Warn("mDNS advertisement failed", "err", advErr)
		} else {
			defer ad.Stop()
		}
	}

	var rec, recErr = recorder.New(cfg.Recorder.Path, cfg.Recorder.Info, cfg.Recorder.UserColumns)
	if recErr != nil {
		logger.Error("failed to configure recorder", "err", recErr)
		os.Exit(1)
	}

	if err := rec.Start(time.Now()); err != nil {
		logger.Error("failed to open recorder file", "err", err)
		os.Exit(1)
	}

	var kb, kbErr = input.OpenKeyboard("/dev/tty")
	if kbErr != nil {
		logger.Warn("keyboard input unavailable", "err", kbErr)
	} else {
		defer kb.Close()
	}

	var box *input.GPIOBox
	if *gpioChip != "" {
		var buttons, btnErr = parseButtons(*gpioButtons)
		if btnErr != nil {
			logger.Error("bad --gpio-button", "err", btnErr)
			os.Exit(1)
		}

		var boxErr error
		box, boxErr = input.OpenGPIOBox(*gpioChip, buttons)
		if boxErr != nil {
			logger.Warn("GPIO response box unavailable", "err", boxErr)
			box = nil
		} else {
			defer box.Close()
		}
	}

	var sched = scheduler.New(rec)
	sched.SetWatcher(func(scheduler.Event) {})
	sched.AddQueue(buildDemoTrial(eng, c, rate))

	runLoop(eng, sched, kb, box)
}

// parseButtons turns repeated offset=name flag values into input.Button
// assignments.
func parseButtons(specs []string) ([]input.Button, error) {
	var buttons = make([]input.Button, 0, len(specs))

	for _, spec := range specs {
		var offsetStr, name, ok = strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("want offset=name, got %q", spec)
		}

		var offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("bad offset in %q: %w", spec, err)
		}

		buttons = append(buttons, input.Button{Offset: offset, Name: name})
	}

	return buttons, nil
}

// demoToneKey identifies the demo trial's stimulus for the Sound Cache;
// a real trial script would key each stimulus by its source array or file
// path.
type demoToneKey struct{}

// buildDemoTrial builds a minimal runnable trial rather than a full
// experiment: an OffsetStartMoment, a cached ramped tone played ASAP, and
// a timed ResponseMoment.
func buildDemoTrial(eng *engine.Engine, c *cache.Cache, rate timeval.Freq) *scheduler.MomentQueue {
	return scheduler.NewMomentQueue(0,
		scheduler.OffsetStart(true),
		scheduler.Timed(0, func(now timeval.Time) {
			var canon, _, cacheErr = c.Get(demoToneKey{}, func() (sound.Sound, error) {
				var toneRaw = dsp.Tone(rate, timeval.Hertz(440), timeval.Seconds(0.2), false, 0)

				var tone, rampErr = dsp.Ramp(toneRaw, timeval.Milliseconds(5))
				if rampErr != nil {
					return toneRaw, nil
				}

				return tone, nil
			})
			if cacheErr != nil {
				log.Error("cache lookup failed", "err", cacheErr)
				return
			}

			if _, err := eng.Play(canon, 0, 0); err != nil {
				log.Error("play failed", "err", err)
			}
		}),
		scheduler.Response(
			func(ev scheduler.Event) bool { return ev.Code == "y" || ev.Code == "n" },
			func(now timeval.Time, ev scheduler.Event) { log.Info("response", "code", ev.Code, "at", now) },
			timeval.Seconds(2), 0,
			func(now timeval.Time) { log.Warn("response timed out") },
		),
		scheduler.Final(func(timeval.Time) { log.Info("trial complete") }),
	)
}

func runLoop(eng *engine.Engine, sched *scheduler.Scheduler, kb *input.Keyboard, box *input.GPIOBox) {
	var ticker = time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	var kbEvents, boxEvents <-chan scheduler.Event
	if kb != nil {
		kbEvents = kb.Events()
	}
	if box != nil {
		boxEvents = box.Events()
	}

	for !sched.Done() {
		select {
		case <-ticker.C:
			sched.Tick(eng.Now())
		case ev, ok := <-kbEvents:
			if !ok {
				kbEvents = nil
				continue
			}

			ev.Time = eng.Now()
			sched.Dispatch(ev)
		case ev, ok := <-boxEvents:
			if !ok {
				boxEvents = nil
				continue
			}

			ev.Time = eng.Now()
			sched.Dispatch(ev)
		}
	}
}
