package resample

import (
	"math"

	"github.com/avpipeline/avsample/audio"
)

// PTSTracker maps input timestamps to output timestamps on the combined
// (sourceRate x targetRate) clock and tracks clock drift, modeled on
// swresample's next-pts handling. One tick on the combined clock is
// 1/(sourceRate*targetRate) seconds, so one output sample period is
// sourceRate ticks and one source sample period is targetRate ticks.
//
// Engines call Next with the timestamp of freshly consumed input, Advance
// after emitting output samples, and drain Pending through Absorb while
// they skew their resampling ratio.
type PTSTracker struct {
	sourceRate int
	targetRate int

	enabled     bool
	minComp     float64
	minHardComp float64

	expected  int64
	remaining int64
}

func NewPTSTracker(sourceRate, targetRate int) *PTSTracker {
	return &PTSTracker{
		sourceRate: sourceRate,
		targetRate: targetRate,
		expected:   audio.NoPTS,
	}
}

// EnableCompensation turns drift tracking on. minComp and minHardComp are
// thresholds in seconds.
func (t *PTSTracker) EnableCompensation(minComp, minHardComp float64) {
	t.enabled = true
	t.minComp = minComp
	t.minHardComp = minHardComp
}

// Next corrects an input timestamp for the engine's buffered delay (given
// in combined-clock ticks) and for accumulated drift. Deviations past the
// hard threshold snap the tracker to the input clock; deviations past the
// minimum threshold are queued for gradual absorption; smaller jitter is
// smoothed away entirely.
func (t *PTSTracker) Next(pts, delayTicks int64) int64 {
	out := pts - delayTicks

	if !t.enabled {
		return out
	}
	if t.expected == audio.NoPTS {
		t.expected = out
		return out
	}

	combined := float64(t.sourceRate) * float64(t.targetRate)
	delta := out - t.expected

	if math.Abs(float64(delta)) >= t.minHardComp*combined {
		t.expected = out
		t.remaining = 0
		return out
	}
	if math.Abs(float64(delta)) >= math.Round(t.minComp*combined) {
		t.remaining = delta
	}
	return t.expected
}

// Advance moves the expected clock forward by n output samples.
func (t *PTSTracker) Advance(n int) {
	if t.enabled && t.expected != audio.NoPTS {
		t.expected += int64(n) * int64(t.sourceRate)
	}
}

// Pending returns the drift still to be absorbed, in combined-clock ticks.
// Positive means the input clock is ahead of the expected clock.
func (t *PTSTracker) Pending() int64 {
	return t.remaining
}

// Absorb moves the pending drift toward zero by up to ticks.
func (t *PTSTracker) Absorb(ticks int64) {
	if ticks < 0 {
		ticks = -ticks
	}
	if t.remaining > 0 {
		t.remaining -= ticks
		if t.remaining < 0 {
			t.remaining = 0
		}
	} else if t.remaining < 0 {
		t.remaining += ticks
		if t.remaining > 0 {
			t.remaining = 0
		}
	}
}
