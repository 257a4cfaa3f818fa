//go:build cgo

// Package swresample adapts FFmpeg's libswresample, through the go-astiav
// bindings, to the resample.Engine interface. It requires cgo and the
// FFmpeg libraries at build time, which is why it lives outside the core
// resample package.
package swresample

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/avpipeline/avsample/audio"
	"github.com/avpipeline/avsample/resample"
)

// Config mirrors the conversion fixed at engine creation. Only packed
// sample formats are supported: the binding exposes frame data as a single
// plane.
type Config struct {
	SourceLayout audio.ChannelLayout
	SourceFormat audio.SampleFormat
	SourceRate   int
	TargetLayout audio.ChannelLayout
	TargetFormat audio.SampleFormat
	TargetRate   int
}

// Engine drives an astiav.SoftwareResampleContext. The context keeps its
// own interpolation history; the engine tracks consumed and produced sample
// counts to report that history as a delay, since the binding does not
// expose the delay query directly.
type Engine struct {
	cfg Config

	swr      *astiav.SoftwareResampleContext
	srcFrame *astiav.Frame
	dstFrame *astiav.Frame

	tracker *resample.PTSTracker

	inSamples  int64
	outSamples int64

	initialized bool
}

var _ resample.Engine = (*Engine)(nil)

// New creates an uninitialized engine; Init allocates the FFmpeg resources.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		tracker: resample.NewPTSTracker(cfg.SourceRate, cfg.TargetRate),
	}
}

// SetCompensation configures the drift tracker. The binding does not expose
// swresample's compensation options, so drift past the soft threshold is
// corrected in the timestamp domain only.
func (e *Engine) SetCompensation(minComp, minHardComp, maxSoftComp float64) error {
	if e.initialized {
		return errors.New("swresample: compensation must be configured before init")
	}
	if minComp <= 0 || minHardComp <= 0 || maxSoftComp <= 0 {
		return fmt.Errorf("swresample: invalid compensation parameters %g/%g/%g",
			minComp, minHardComp, maxSoftComp)
	}
	e.tracker.EnableCompensation(minComp, minHardComp)
	return nil
}

func (e *Engine) Init() error {
	if e.initialized {
		return nil
	}
	if _, err := sampleFormat(e.cfg.SourceFormat); err != nil {
		return err
	}
	if _, err := sampleFormat(e.cfg.TargetFormat); err != nil {
		return err
	}
	if _, err := channelLayout(e.cfg.SourceLayout); err != nil {
		return err
	}
	if _, err := channelLayout(e.cfg.TargetLayout); err != nil {
		return err
	}
	if e.cfg.SourceRate <= 0 || e.cfg.TargetRate <= 0 {
		return fmt.Errorf("swresample: invalid rates %d -> %d", e.cfg.SourceRate, e.cfg.TargetRate)
	}

	e.swr = astiav.AllocSoftwareResampleContext()
	if e.swr == nil {
		return errors.New("swresample: alloc resample context")
	}
	e.srcFrame = astiav.AllocFrame()
	e.dstFrame = astiav.AllocFrame()
	if e.srcFrame == nil || e.dstFrame == nil {
		e.Close()
		return errors.New("swresample: alloc frames")
	}

	e.initialized = true
	return nil
}

func (e *Engine) Delay(base int64) int64 {
	d := audio.Rescale(e.inSamples, base, int64(e.cfg.SourceRate)) -
		audio.Rescale(e.outSamples, base, int64(e.cfg.TargetRate))
	if d < 0 {
		return 0
	}
	return d
}

func (e *Engine) MaxOutputSamples(n int) (int, error) {
	if !e.initialized {
		return 0, errors.New("swresample: engine not initialized")
	}
	converted := audio.Rescale(int64(n), int64(e.cfg.TargetRate), int64(e.cfg.SourceRate))
	return int(e.Delay(int64(e.cfg.TargetRate))+converted) + 8, nil
}

func (e *Engine) Convert(dst, src *audio.Frame) (int, error) {
	if !e.initialized {
		return 0, errors.New("swresample: engine not initialized")
	}

	var in *astiav.Frame
	if src != nil {
		e.srcFrame.Unref()
		lay, _ := channelLayout(src.ChannelLayout())
		sf, _ := sampleFormat(src.SampleFormat())
		e.srcFrame.SetChannelLayout(lay)
		e.srcFrame.SetSampleRate(src.SampleRate())
		e.srcFrame.SetSampleFormat(sf)
		e.srcFrame.SetNbSamples(src.NbSamples())
		if err := e.srcFrame.AllocBuffer(0); err != nil {
			return 0, fmt.Errorf("swresample: alloc source buffer: %w", err)
		}
		if err := e.srcFrame.Data().SetBytes(src.Plane(0), 0); err != nil {
			return 0, fmt.Errorf("swresample: marshal source samples: %w", err)
		}
		in = e.srcFrame
	}

	e.dstFrame.Unref()
	lay, _ := channelLayout(dst.ChannelLayout())
	sf, _ := sampleFormat(dst.SampleFormat())
	e.dstFrame.SetChannelLayout(lay)
	e.dstFrame.SetSampleRate(dst.SampleRate())
	e.dstFrame.SetSampleFormat(sf)
	e.dstFrame.SetNbSamples(dst.Capacity())
	if err := e.dstFrame.AllocBuffer(0); err != nil {
		return 0, fmt.Errorf("swresample: alloc destination buffer: %w", err)
	}

	if err := e.swr.ConvertFrame(in, e.dstFrame); err != nil {
		return 0, fmt.Errorf("swresample: convert: %w", err)
	}

	n := e.dstFrame.NbSamples()
	if n > dst.Capacity() {
		n = dst.Capacity()
	}
	if n > 0 {
		b, err := e.dstFrame.Data().Bytes(0)
		if err != nil {
			return 0, fmt.Errorf("swresample: read converted samples: %w", err)
		}
		stride := dst.SampleFormat().BytesPerSample() * dst.Channels()
		copy(dst.Plane(0), b[:n*stride])
	}
	_ = dst.SetNbSamples(n)

	if src != nil {
		e.inSamples += int64(src.NbSamples())
	}
	e.outSamples += int64(n)
	e.tracker.Advance(n)

	return n, nil
}

func (e *Engine) NextPTS(pts int64) int64 {
	return e.tracker.Next(pts, e.Delay(int64(e.cfg.TargetRate))*int64(e.cfg.SourceRate))
}

func (e *Engine) Close() {
	if e.srcFrame != nil {
		e.srcFrame.Free()
		e.srcFrame = nil
	}
	if e.dstFrame != nil {
		e.dstFrame.Free()
		e.dstFrame = nil
	}
	if e.swr != nil {
		e.swr.Free()
		e.swr = nil
	}
	e.initialized = false
}

func sampleFormat(f audio.SampleFormat) (astiav.SampleFormat, error) {
	switch f {
	case audio.SampleFormatU8:
		return astiav.SampleFormatU8, nil
	case audio.SampleFormatS16:
		return astiav.SampleFormatS16, nil
	case audio.SampleFormatS32:
		return astiav.SampleFormatS32, nil
	case audio.SampleFormatFlt:
		return astiav.SampleFormatFlt, nil
	case audio.SampleFormatDbl:
		return astiav.SampleFormatDbl, nil
	}
	return astiav.SampleFormatNone, fmt.Errorf("swresample: unsupported sample format %s (packed formats only)", f)
}

func channelLayout(l audio.ChannelLayout) (astiav.ChannelLayout, error) {
	switch l {
	case audio.ChannelLayoutMono:
		return astiav.ChannelLayoutMono, nil
	case audio.ChannelLayoutStereo:
		return astiav.ChannelLayoutStereo, nil
	case audio.ChannelLayout21:
		return astiav.ChannelLayout21, nil
	case audio.ChannelLayout51:
		return astiav.ChannelLayout51, nil
	}
	return astiav.ChannelLayout{}, fmt.Errorf("swresample: unsupported channel layout %s", l)
}
