// Package resample converts decoded audio frames between sample formats,
// channel layouts and sample rates, optionally re-chunking the output into
// fixed-size frames and compensating clock drift.
//
// The Resampler follows the codec send/receive protocol: Push one source
// frame (nil to flush), then Pull until ErrAgain before pushing again.
//
// A Resampler is not safe for concurrent use; callers must serialize all
// access to one instance.
package resample

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/avpipeline/avsample/audio"
)

// ErrAgain is returned by Push while converted samples are still pending,
// and by Pull when more input is needed before output can be produced.
var ErrAgain = errors.New("resample: again")

// flushMargin absorbs rounding when sizing the scratch frame for the final
// drain of the engine's history.
const flushMargin = 3

// Compensation thresholds applied when drift compensation is enabled: the
// engine may stretch or compress by up to 10%, kicking in at one source
// sample period of drift.
const (
	minHardComp = 0.1
	maxSoftComp = 0.1
)

// Config fixes a Resampler's conversion at construction time.
type Config struct {
	TargetLayout audio.ChannelLayout
	TargetFormat audio.SampleFormat
	TargetRate   int

	// FrameSamples re-chunks output into frames of exactly this many
	// samples. Zero passes batches through at whatever size the engine
	// produces.
	FrameSamples int

	SourceLayout audio.ChannelLayout
	SourceFormat audio.SampleFormat
	SourceRate   int

	// SourceTimeBase is the time base of input frame PTS values. Defaults
	// to 1/SourceRate.
	SourceTimeBase audio.Rational

	// EnableCompensation lets the engine stretch or compress output timing
	// to keep it aligned with the input clock.
	EnableCompensation bool

	// Engine overrides the built-in converter.
	Engine Engine

	Logger logr.Logger
}

// Resampler converts pushed source frames into target-format batches and
// hands them out through Pull. It owns the conversion engine, a scratch
// frame holding the most recent converted batch, and, in fixed-size mode,
// an assembly frame for exactly-sized output.
type Resampler struct {
	engine Engine

	tmp    *audio.Frame
	tmpCap int
	offset int

	out *audio.Frame

	flushing bool

	targetLayout audio.ChannelLayout
	targetFormat audio.SampleFormat
	targetRate   int
	frameSamples int
	sourceRate   int
	timeBase     audio.Rational

	log logr.Logger
}

// New creates a Resampler. The engine is created, configured and
// initialized as a unit; on any failure no instance is returned and
// everything allocated so far is released. Frames are allocated lazily on
// first Push.
func New(cfg Config) (*Resampler, error) {
	if !cfg.TargetLayout.Valid() || !cfg.TargetFormat.Valid() || cfg.TargetRate <= 0 {
		return nil, fmt.Errorf("resample: invalid target configuration %s/%s/%d",
			cfg.TargetLayout, cfg.TargetFormat, cfg.TargetRate)
	}
	if !cfg.SourceLayout.Valid() || !cfg.SourceFormat.Valid() || cfg.SourceRate <= 0 {
		return nil, fmt.Errorf("resample: invalid source configuration %s/%s/%d",
			cfg.SourceLayout, cfg.SourceFormat, cfg.SourceRate)
	}
	if cfg.FrameSamples < 0 {
		return nil, fmt.Errorf("resample: invalid frame size %d", cfg.FrameSamples)
	}

	tb := cfg.SourceTimeBase
	if !tb.Valid() {
		tb = audio.NewRational(1, cfg.SourceRate)
	}

	eng := cfg.Engine
	if eng == nil {
		eng = newConverter(converterConfig{
			sourceLayout: cfg.SourceLayout,
			sourceFormat: cfg.SourceFormat,
			sourceRate:   cfg.SourceRate,
			targetLayout: cfg.TargetLayout,
			targetFormat: cfg.TargetFormat,
			targetRate:   cfg.TargetRate,
		})
	}

	if cfg.EnableCompensation {
		if err := eng.SetCompensation(1/float64(cfg.SourceRate), minHardComp, maxSoftComp); err != nil {
			eng.Close()
			return nil, fmt.Errorf("resample: configure compensation: %w", err)
		}
	}
	if err := eng.Init(); err != nil {
		eng.Close()
		return nil, fmt.Errorf("resample: initialize engine: %w", err)
	}

	r := &Resampler{
		engine:       eng,
		targetLayout: cfg.TargetLayout,
		targetFormat: cfg.TargetFormat,
		targetRate:   cfg.TargetRate,
		frameSamples: cfg.FrameSamples,
		sourceRate:   cfg.SourceRate,
		timeBase:     tb,
		log:          cfg.Logger,
	}

	r.log.V(1).Info("resampler created",
		"source", fmt.Sprintf("%s/%s/%d", cfg.SourceLayout, cfg.SourceFormat, cfg.SourceRate),
		"target", fmt.Sprintf("%s/%s/%d", cfg.TargetLayout, cfg.TargetFormat, cfg.TargetRate),
		"frameSamples", cfg.FrameSamples,
		"compensation", cfg.EnableCompensation)

	return r, nil
}

// Push converts one source frame into the scratch frame in a single engine
// call. A nil frame signals end of input and drains the engine's buffered
// history. Push refuses with ErrAgain while samples from a previous call
// are still unread; the caller must Pull first.
func (r *Resampler) Push(frame *audio.Frame) error {
	if r.tmp != nil && r.offset < r.tmp.NbSamples() {
		return ErrAgain
	}

	var required int
	if frame != nil {
		n, err := r.engine.MaxOutputSamples(frame.NbSamples())
		if err != nil {
			return fmt.Errorf("resample: output bound: %w", err)
		}
		required = n
	} else {
		r.flushing = true
		required = int(r.engine.Delay(int64(r.targetRate))) + flushMargin
		r.log.V(1).Info("flushing", "required", required)
	}

	if r.tmp == nil || required > r.tmpCap {
		tmp, err := audio.AllocFrame(r.targetLayout, r.targetFormat, r.targetRate, required)
		if err != nil {
			return fmt.Errorf("resample: allocate scratch frame: %w", err)
		}
		r.tmp = tmp
		r.tmpCap = required
	}

	_ = r.tmp.SetNbSamples(0)
	r.offset = 0

	if _, err := r.engine.Convert(r.tmp, frame); err != nil {
		return fmt.Errorf("resample: convert: %w", err)
	}

	if frame != nil && frame.PTS() != audio.NoPTS {
		orig := audio.Rescale(frame.PTS(),
			int64(r.timeBase.Num)*int64(r.targetRate)*int64(r.sourceRate),
			int64(r.timeBase.Den))
		r.tmp.SetPTS(audio.RoundedDiv(r.engine.NextPTS(orig), int64(r.sourceRate)))
	} else {
		r.tmp.SetPTS(audio.NoPTS)
	}

	return nil
}

// Pull returns the next converted frame, or ErrAgain when nothing is ready.
// Returned frames are independent copies; the caller owns them.
//
// Without a fixed frame size, Pull hands out the whole converted batch at
// once. With a fixed frame size, it assembles frames of exactly
// FrameSamples samples, emitting a shorter final frame only while flushing.
func (r *Resampler) Pull() (*audio.Frame, error) {
	if r.tmp == nil {
		return nil, ErrAgain
	}

	if r.frameSamples == 0 {
		r.flushing = false
		if r.tmp.NbSamples() > 0 {
			out := r.tmp.Clone()
			_ = r.tmp.SetNbSamples(0)
			return out, nil
		}
		return nil, ErrAgain
	}

	if r.out == nil {
		out, err := audio.AllocFrame(r.targetLayout, r.targetFormat, r.targetRate, r.frameSamples)
		if err != nil {
			return nil, fmt.Errorf("resample: allocate output frame: %w", err)
		}
		_ = out.SetNbSamples(0)
		r.out = out
	}

	required := r.frameSamples - r.out.NbSamples()
	available := r.tmp.NbSamples() - r.offset

	copyCount := required
	if available < required {
		copyCount = available
	}

	if copyCount > 0 {
		if r.out.NbSamples() == 0 {
			if pts := r.tmp.PTS(); pts != audio.NoPTS {
				r.out.SetPTS(pts + int64(r.offset))
			} else {
				r.out.SetPTS(audio.NoPTS)
			}
		}
		if err := audio.CopySamples(r.out, r.tmp, r.out.NbSamples(), r.offset, copyCount); err != nil {
			return nil, fmt.Errorf("resample: assemble frame: %w", err)
		}
		r.offset += copyCount
		_ = r.out.SetNbSamples(r.out.NbSamples() + copyCount)
	}

	if !r.flushing && r.out.NbSamples() < r.frameSamples {
		return nil, ErrAgain
	}

	out := r.out.Clone()
	_ = r.out.SetNbSamples(0)

	if r.offset >= r.tmp.NbSamples() {
		r.flushing = false
	}

	return out, nil
}

// Close releases the engine and the internal frames. The Resampler must not
// be used afterwards.
func (r *Resampler) Close() {
	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	r.tmp = nil
	r.out = nil
}
