package resample

import (
	"fmt"
	"math"

	"github.com/avpipeline/avsample/audio"
)

type converterConfig struct {
	sourceLayout audio.ChannelLayout
	sourceFormat audio.SampleFormat
	sourceRate   int
	targetLayout audio.ChannelLayout
	targetFormat audio.SampleFormat
	targetRate   int
}

// converter is the built-in Engine: linear interpolation with a fractional
// read position carried across calls, channel mixing and sample format
// conversion through normalized float64 samples, and drift compensation
// driven by a PTSTracker.
//
// Pending input that cannot be interpolated yet (at least the final sample
// of every call) stays buffered per channel until the next call or a flush.
type converter struct {
	cfg      converterConfig
	channels int
	ratio    float64 // source samples consumed per output sample

	buf [][]float64 // mixed pending input, one slice per target channel
	pos float64     // fractional read position into buf

	initialized bool

	tracker     *PTSTracker
	compEnabled bool
	maxSoftComp float64
}

func newConverter(cfg converterConfig) *converter {
	return &converter{
		cfg:     cfg,
		tracker: NewPTSTracker(cfg.sourceRate, cfg.targetRate),
	}
}

func (c *converter) SetCompensation(minComp, minHardComp, maxSoftComp float64) error {
	if c.initialized {
		return fmt.Errorf("resample: compensation must be configured before init")
	}
	if minComp <= 0 || minHardComp <= 0 || maxSoftComp <= 0 || maxSoftComp >= 1 {
		return fmt.Errorf("resample: invalid compensation parameters %g/%g/%g",
			minComp, minHardComp, maxSoftComp)
	}
	c.compEnabled = true
	c.maxSoftComp = maxSoftComp
	c.tracker.EnableCompensation(minComp, minHardComp)
	return nil
}

func (c *converter) Init() error {
	if c.initialized {
		return nil
	}
	if !c.cfg.sourceLayout.Valid() || !c.cfg.sourceFormat.Valid() || c.cfg.sourceRate <= 0 {
		return fmt.Errorf("resample: invalid source configuration %s/%s/%d",
			c.cfg.sourceLayout, c.cfg.sourceFormat, c.cfg.sourceRate)
	}
	if !c.cfg.targetLayout.Valid() || !c.cfg.targetFormat.Valid() || c.cfg.targetRate <= 0 {
		return fmt.Errorf("resample: invalid target configuration %s/%s/%d",
			c.cfg.targetLayout, c.cfg.targetFormat, c.cfg.targetRate)
	}
	c.channels = c.cfg.targetLayout.Channels()
	c.ratio = float64(c.cfg.sourceRate) / float64(c.cfg.targetRate)
	c.buf = make([][]float64, c.channels)
	c.initialized = true
	return nil
}

// buffered returns the pending input in source samples, including the
// fractional position.
func (c *converter) buffered() float64 {
	if len(c.buf) == 0 {
		return 0
	}
	return float64(len(c.buf[0])) - c.pos
}

func (c *converter) Delay(base int64) int64 {
	return int64(math.Round(c.buffered() / float64(c.cfg.sourceRate) * float64(base)))
}

func (c *converter) MaxOutputSamples(n int) (int, error) {
	if !c.initialized {
		return 0, fmt.Errorf("resample: engine not initialized")
	}
	ratio := c.ratio
	if c.compEnabled {
		// soft compensation may slow consumption down to this rate
		ratio *= 1 - c.maxSoftComp
	}
	return int(math.Ceil((c.buffered()+float64(n))/ratio)) + 2, nil
}

func (c *converter) Convert(dst, src *audio.Frame) (int, error) {
	if !c.initialized {
		return 0, fmt.Errorf("resample: engine not initialized")
	}
	if dst.ChannelLayout() != c.cfg.targetLayout || dst.SampleFormat() != c.cfg.targetFormat ||
		dst.SampleRate() != c.cfg.targetRate {
		return 0, fmt.Errorf("resample: destination frame is %s/%s/%d, want %s/%s/%d",
			dst.ChannelLayout(), dst.SampleFormat(), dst.SampleRate(),
			c.cfg.targetLayout, c.cfg.targetFormat, c.cfg.targetRate)
	}

	if src != nil {
		if err := c.appendMixed(src); err != nil {
			return 0, err
		}
	}

	flush := src == nil
	n := c.interpolate(dst, flush)

	if flush {
		for ch := range c.buf {
			c.buf[ch] = c.buf[ch][:0]
		}
		c.pos = 0
	}

	c.tracker.Advance(n)

	_ = dst.SetNbSamples(n)
	return n, nil
}

// appendMixed converts src to normalized floats, mixes it to the target
// channel count and appends it to the pending buffer.
func (c *converter) appendMixed(src *audio.Frame) error {
	if src.ChannelLayout() != c.cfg.sourceLayout || src.SampleFormat() != c.cfg.sourceFormat ||
		src.SampleRate() != c.cfg.sourceRate {
		return fmt.Errorf("resample: source frame is %s/%s/%d, want %s/%s/%d",
			src.ChannelLayout(), src.SampleFormat(), src.SampleRate(),
			c.cfg.sourceLayout, c.cfg.sourceFormat, c.cfg.sourceRate)
	}

	srcCh := src.Channels()
	n := src.NbSamples()

	for i := 0; i < n; i++ {
		switch {
		case srcCh == c.channels:
			for ch := 0; ch < c.channels; ch++ {
				c.buf[ch] = append(c.buf[ch], src.Sample(ch, i))
			}
		case srcCh == 1:
			v := src.Sample(0, i)
			for ch := 0; ch < c.channels; ch++ {
				c.buf[ch] = append(c.buf[ch], v)
			}
		case c.channels == 1:
			var sum float64
			for ch := 0; ch < srcCh; ch++ {
				sum += src.Sample(ch, i)
			}
			c.buf[0] = append(c.buf[0], sum/float64(srcCh))
		default:
			// copy overlapping channels, silence any extra target channels
			for ch := 0; ch < c.channels; ch++ {
				if ch < srcCh {
					c.buf[ch] = append(c.buf[ch], src.Sample(ch, i))
				} else {
					c.buf[ch] = append(c.buf[ch], 0)
				}
			}
		}
	}
	return nil
}

// interpolate emits linearly interpolated samples into dst up to its
// capacity and drops fully consumed input. When flushing, interpolation is
// allowed to run up to the final buffered sample.
func (c *converter) interpolate(dst *audio.Frame, flush bool) int {
	if len(c.buf) == 0 || len(c.buf[0]) == 0 {
		return 0
	}

	last := len(c.buf[0]) - 1
	limit := dst.Capacity()
	n := 0

	for n < limit {
		i := int(c.pos)
		if flush {
			if i > last {
				break
			}
		} else if i+1 > last {
			break
		}
		i2 := i + 1
		if i2 > last {
			i2 = last
		}
		frac := c.pos - float64(i)

		for ch := 0; ch < c.channels; ch++ {
			v := c.buf[ch][i]*(1-frac) + c.buf[ch][i2]*frac
			dst.SetSample(ch, n, v)
		}
		n++
		c.pos += c.step()
	}

	consumed := int(c.pos)
	if consumed > 0 {
		if consumed > len(c.buf[0]) {
			consumed = len(c.buf[0])
		}
		for ch := range c.buf {
			c.buf[ch] = append(c.buf[ch][:0], c.buf[ch][consumed:]...)
		}
		c.pos -= float64(consumed)
	}

	return n
}

// step returns how many source samples the next output sample consumes,
// skewed while soft drift compensation is absorbing an offset.
func (c *converter) step() float64 {
	pending := c.tracker.Pending()
	if pending == 0 {
		return c.ratio
	}

	var step float64
	if pending > 0 {
		step = c.ratio * (1 + c.maxSoftComp)
	} else {
		step = c.ratio * (1 - c.maxSoftComp)
	}

	// skewed consumption absorbs part of the tracked offset
	c.tracker.Absorb(int64(math.Round(math.Abs(step-c.ratio) * float64(c.cfg.targetRate))))
	return step
}

func (c *converter) NextPTS(pts int64) int64 {
	delayTicks := int64(math.Round(c.buffered() * float64(c.cfg.targetRate)))
	return c.tracker.Next(pts, delayTicks)
}

func (c *converter) Close() {
	c.buf = nil
	c.initialized = false
}
