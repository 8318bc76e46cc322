package engine

import (
	"math"

	"github.com/psylab/cadence/internal/timeval"
)

// mixInto is the mixing callback body: it fills out, a stereo-interleaved
// int16 buffer of frames sample frames, given the device-reported output
// DAC time tOut and current stream time tNow. It
// is pure with respect to everything but the ChannelQueues it's handed and
// e's atomic stat fields, so it can run against synthetic queues in tests
// without any audio hardware.
func (e *Engine) mixInto(out []int16, tOut, tNow timeval.Time, frames int) {
	for i := range out {
		out[i] = 0
	}

	e.latency.Store(math.Float64bits(float64(tOut - tNow)))
	e.lastBufferSize.Store(int32(frames))

	var periodEnd = tOut + timeval.Time(float64(frames)/float64(e.rate))

	// The callback must not allocate: walk the two queue sets in place
	// instead of building a combined slice per invocation.
	for _, q := range e.discrete {
		e.serveQueue(q, out, tOut, periodEnd, frames)
	}
	for _, q := range e.streaming {
		e.serveQueue(q, out, tOut, periodEnd, frames)
	}
}

// serveQueue handles one queue for one callback period: drains it if the
// control thread flagged it stopped, skips it while paused, and otherwise
// mixes from its head.
func (e *Engine) serveQueue(q *ChannelQueue, out []int16, tOut, periodEnd timeval.Time, frames int) {
	if q.Stopped() {
		q.drain()
		q.SetStopped(false)
		q.DoneAt = periodEnd

		return
	}

	if q.Paused() {
		return
	}

	e.mixQueue(q, out, tOut, periodEnd, frames)
}

func (e *Engine) mixQueue(q *ChannelQueue, out []int16, tOut, periodEnd timeval.Time, frames int) {
	var rate = float64(e.rate)

	if q.Head() == nil {
		q.DoneAt = periodEnd
		return
	}

	var writeOffset = 0

	for writeOffset < frames {
		var head = q.Head()
		if head == nil {
			break
		}

		var copyStart = writeOffset

		if head.Offset == 0 {
			switch {
			case head.Start <= 0:
				head.Start = tOut + timeval.Time(float64(writeOffset)/rate)
				copyStart = writeOffset

			default:
				var zeroPad = int(math.Floor((float64(head.Start) - float64(tOut)) * rate))

				switch {
				case zeroPad < writeOffset:
					e.playbackError.Add(-int64(writeOffset - zeroPad))
					copyStart = writeOffset

				case head.Start < periodEnd:
					copyStart = zeroPad

				default:
					// Belongs to a future buffer: stop consuming this queue.
					return
				}
			}

			q.DoneAt = tOut + timeval.Time(float64(copyStart)/rate) + head.Sound.Duration()
		}

		if copyStart > writeOffset {
			writeOffset = copyStart
			if writeOffset >= frames {
				break
			}
		}

		var remainingOut = frames - writeOffset
		var remainingSound = head.len() - head.Offset
		var n = remainingOut
		if remainingSound < n {
			n = remainingSound
		}

		mixFrames(out, head, writeOffset, n)

		head.Offset += n
		writeOffset += n

		if head.Offset == head.len() {
			q.Advance()
		}
	}
}

// mixFrames adds n frames of head's sound, starting at head.Offset, into
// out at frame position writeOffset, left-then-right interleaved. A mono
// source is broadcast to both output channels.
func mixFrames(out []int16, head *TimedSound, writeOffset, n int) {
	var stereo = head.Sound.Channels() == 2

	for i := 0; i < n; i++ {
		var l = head.Sound.At(head.Offset+i, 0)
		var r = l
		if stereo {
			r = head.Sound.At(head.Offset+i, 1)
		}

		var idx = (writeOffset + i) * 2
		out[idx] = addClamped16(out[idx], toInt16(l))
		out[idx+1] = addClamped16(out[idx+1], toInt16(r))
	}
}

func toInt16(v float64) int16 {
	var q = math.Round(v * 32768)
	q = math.Max(-32768, math.Min(32767, q))

	return int16(q)
}

func addClamped16(a, b int16) int16 {
	var sum = int32(a) + int32(b)
	if sum > math.MaxInt16 {
		return math.MaxInt16
	}
	if sum < math.MinInt16 {
		return math.MinInt16
	}

	return int16(sum)
}
