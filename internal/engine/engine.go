// Package engine implements the realtime audio engine: a hardware output
// stream mixed by a driver callback from up to 2N ChannelQueues of
// TimedSounds, with enqueue/pause/resume/stop/close control operations
// and latency/warning reporting back to the scheduler.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/psylab/cadence/internal/cache"
	"github.com/psylab/cadence/internal/sound"
	"github.com/psylab/cadence/internal/timeval"
)

// audioStream is the slice of *portaudio.Stream the Engine depends on,
// narrowed so the mixing and scheduling logic can be exercised without
// real audio hardware.
type audioStream interface {
	Start() error
	Stop() error
	Close() error
	Time() float64
}

type paStream struct{ s *portaudio.Stream }

func (p *paStream) Start() error  { return p.s.Start() }
func (p *paStream) Stop() error   { return p.s.Stop() }
func (p *paStream) Close() error  { return p.s.Close() }
func (p *paStream) Time() float64 { return p.s.Time().Seconds() }

// Engine owns the hardware audio stream and the discrete/streaming
// ChannelQueue sets. The realtime callback is the sole writer of DoneAt,
// latency, lastBufferSize, and playbackError; every other field is owned
// by the control thread.
type Engine struct {
	rate timeval.Freq

	discrete  []*ChannelQueue
	streaming []*ChannelQueue

	stream audioStream
	cache  *cache.Cache

	latency        atomic.Uint64 // math.Float64bits(seconds)
	lastBufferSize atomic.Int32
	playbackError  atomic.Int64
	lastErr        atomic.Pointer[error]
	lastWarning    atomic.Pointer[string]
}

// New returns an Engine with no hardware stream open; call Setup before
// Play/PlayNext/Pause/Resume do anything but return ErrNotReady.
func New() *Engine { return &Engine{} }

// AttachCache links c so that Setup flushes it on every (re)configuration;
// a new sample rate invalidates every canonicalization the cache holds.
func (e *Engine) AttachCache(c *cache.Cache) { e.cache = c }

func newQueueSet(n, capacity int) []*ChannelQueue {
	var qs = make([]*ChannelQueue, n)
	for i := range qs {
		qs[i] = NewChannelQueue(capacity)
	}

	return qs
}

// Setup opens the default stereo output at rate in 16-bit signed PCM and
// allocates 2·numChannels ChannelQueues: numChannels discrete queues of
// capacity queueSize, and numChannels streaming queues of capacity 2. It
// is idempotent in effect -- calling it again closes and replaces any
// stream already open, flushing the attached cache. streamUnit is the
// frames-per-callback the driver is asked for.
func (e *Engine) Setup(rate timeval.Freq, numChannels, queueSize, streamUnit int) error {
	if e.stream != nil {
		_ = e.Close()
	}

	e.rate = rate
	e.playbackError.Store(0)
	e.latency.Store(0)
	e.lastBufferSize.Store(0)
	e.lastErr.Store(nil)
	e.lastWarning.Store(nil)

	if e.cache != nil {
		e.cache.Flush(rate)
	}

	if err := portaudio.Initialize(); err != nil {
		var wrapped = fmt.Errorf("%w: %v", ErrDevice, err)
		e.setError(wrapped)

		return wrapped
	}

	var stream, openErr = portaudio.OpenDefaultStream(0, 2, float64(rate), streamUnit,
		func(out []int16, timeInfo portaudio.StreamCallbackTimeInfo) {
			e.mixInto(out,
				timeval.Seconds(timeInfo.OutputBufferDacTime.Seconds()),
				timeval.Seconds(timeInfo.CurrentTime.Seconds()),
				streamUnit)
		})
	if openErr != nil {
		_ = portaudio.Terminate()

		var wrapped = fmt.Errorf("%w: %v", ErrDevice, openErr)
		e.setError(wrapped)

		return wrapped
	}

	e.discrete = newQueueSet(numChannels, queueSize)
	e.streaming = newQueueSet(numChannels, 2)

	if err := stream.Start(); err != nil {
		e.discrete = nil
		e.streaming = nil
		_ = stream.Close()
		_ = portaudio.Terminate()

		var wrapped = fmt.Errorf("%w: %v", ErrDevice, err)
		e.setError(wrapped)

		return wrapped
	}

	e.stream = &paStream{s: stream}

	return nil
}

// Close stops the stream, releases all queued TimedSounds, and terminates
// the device.
func (e *Engine) Close() error {
	if e == nil || e.stream == nil {
		return ErrNotReady
	}

	var stopErr = e.stream.Stop()
	var closeErr = e.stream.Close()
	var termErr = portaudio.Terminate()

	e.stream = nil
	e.discrete = nil
	e.streaming = nil

	if stopErr != nil {
		return stopErr
	}

	if closeErr != nil {
		return closeErr
	}

	return termErr
}

// Now returns the engine's current stream-clock time.
func (e *Engine) Now() timeval.Time {
	if e == nil || e.stream == nil {
		return 0
	}

	return timeval.Seconds(e.stream.Time())
}

// CurrentLatency is last_buffer_size/rate plus the latency last observed
// in the mixing callback.
func (e *Engine) CurrentLatency() timeval.Time {
	if e == nil || e.rate == 0 {
		return 0
	}

	var lastLatency = math.Float64frombits(e.latency.Load())
	var bufSize = float64(e.lastBufferSize.Load())

	return timeval.Seconds(bufSize/float64(e.rate) + lastLatency)
}

func (e *Engine) autoAssign() (int, error) {
	var best = -1
	var bestDone timeval.Time

	for i, q := range e.discrete {
		if q.Paused() || !q.CanAccept() {
			continue
		}

		if best == -1 || q.DoneAt < bestDone {
			best = i
			bestDone = q.DoneAt
		}
	}

	if best == -1 {
		return 0, ErrNoChannels
	}

	return best, nil
}

// Play enqueues a TimedSound. when <= 0 means "as soon as possible";
// when > 0 is an absolute time on the engine's stream clock. channel == 0
// auto-assigns, among the unpaused discrete channels whose next slot is
// free, the one with the smallest DoneAt; a specific channel is 1-based. s must already be at the engine's rate
// (canonicalize via internal/cache first).
func (e *Engine) Play(s sound.Sound, when timeval.Time, channel int) (int, error) {
	if e == nil || e.discrete == nil {
		return 0, ErrNotReady
	}

	if s.Rate() != e.rate {
		return 0, ErrRateMismatch
	}

	if channel < 0 || channel > len(e.discrete) {
		return 0, ErrBadChannel
	}

	var idx = channel - 1

	if channel == 0 {
		var found, err = e.autoAssign()
		if err != nil {
			return 0, err
		}

		idx = found
	}

	if when > 0 {
		var earliest = e.Now() + e.CurrentLatency()
		if when < earliest {
			e.setWarning(fmt.Sprintf("late playback: requested start %.6fs earlier than earliest representable %.6fs", float64(when), float64(earliest)))
			when = earliest
		}
	}

	var ts = &TimedSound{Sound: s, Start: when}
	if !e.discrete[idx].Push(ts) {
		return 0, ErrNoChannels
	}

	return idx + 1, nil
}

// PlayNext enqueues onto the streaming half of channel (1-based). If the
// channel's producer slot is still occupied, it fails with ErrQueueFull so
// the caller can retry. If the channel is paused, the paused sound is
// spliced out and the channel resumed.
func (e *Engine) PlayNext(s sound.Sound, channel int) error {
	if e == nil || e.streaming == nil {
		return ErrNotReady
	}

	if channel < 1 || channel > len(e.streaming) {
		return ErrBadChannel
	}

	if s.Rate() != e.rate {
		return ErrRateMismatch
	}

	var q = e.streaming[channel-1]

	if q.Paused() {
		q.ClearHead()
		q.SetPaused(false)
	}

	var ts = &TimedSound{Sound: s, Start: 0}
	if !q.Push(ts) {
		return ErrQueueFull
	}

	return nil
}

func (e *Engine) setPaused(channel int, isStream, paused bool) error {
	var set = e.discrete
	if isStream {
		set = e.streaming
	}

	if set == nil {
		return ErrNotReady
	}

	if channel < 0 {
		for _, q := range set {
			q.SetPaused(paused)
		}

		return nil
	}

	if channel < 1 || channel > len(set) {
		return ErrBadChannel
	}

	set[channel-1].SetPaused(paused)

	return nil
}

// Pause flips the paused flag on channel (negative means all queues in
// the selected set).
func (e *Engine) Pause(channel int, isStream bool) error {
	return e.setPaused(channel, isStream, true)
}

// Resume is Pause's inverse.
func (e *Engine) Resume(channel int, isStream bool) error {
	return e.setPaused(channel, isStream, false)
}

// Stop removes a discrete channel's queue from the dispatch set: the
// callback discards everything still queued on its next invocation, so
// audio already mixed into the current buffer still plays (bounded by one
// stream unit). Negative channel stops every discrete queue.
func (e *Engine) Stop(channel int) error {
	if e == nil || e.discrete == nil {
		return ErrNotReady
	}

	if channel < 0 {
		for _, q := range e.discrete {
			q.SetStopped(true)
		}

		return nil
	}

	if channel < 1 || channel > len(e.discrete) {
		return ErrBadChannel
	}

	e.discrete[channel-1].SetStopped(true)

	return nil
}

func (e *Engine) setWarning(msg string) { e.lastWarning.Store(&msg) }

func (e *Engine) setError(err error) { e.lastErr.Store(&err) }

// LastError returns and clears the most recent structured device error.
func (e *Engine) LastError() error {
	var p = e.lastErr.Swap(nil)
	if p == nil {
		return nil
	}

	return *p
}

// LastWarning returns and clears the one-shot warning string. Warnings
// never abort the operation that produced them.
func (e *Engine) LastWarning() string {
	var p = e.lastWarning.Swap(nil)
	if p == nil {
		return ""
	}

	return *p
}

// PlaybackError reports the accumulated lateness counter: negative values
// are frames of observed lateness.
func (e *Engine) PlaybackError() int64 { return e.playbackError.Load() }

// SampleRate returns the engine's configured sample rate.
func (e *Engine) SampleRate() timeval.Freq { return e.rate }

// Stats is a point-in-time snapshot of the engine's load and health,
// meant for an operator-facing monitor rather than the control thread's
// own decisions.
type Stats struct {
	Rate           timeval.Freq
	Latency        timeval.Time
	PlaybackError  int64
	DiscreteBusy   int
	DiscreteTotal  int
	StreamingBusy  int
	StreamingTotal int
}

func countBusy(qs []*ChannelQueue) int {
	var n int

	for _, q := range qs {
		if q.Head() != nil {
			n++
		}
	}

	return n
}

// Stats reports the engine's current load and health for display
// purposes; it never mutates anything the callback thread owns.
func (e *Engine) Stats() Stats {
	if e == nil {
		return Stats{}
	}

	return Stats{
		Rate:           e.rate,
		Latency:        e.CurrentLatency(),
		PlaybackError:  e.PlaybackError(),
		DiscreteBusy:   countBusy(e.discrete),
		DiscreteTotal:  len(e.discrete),
		StreamingBusy:  countBusy(e.streaming),
		StreamingTotal: len(e.streaming),
	}
}
