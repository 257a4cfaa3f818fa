package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame holds PCM samples for one audio buffer. Planar formats keep one
// plane per channel, packed formats interleave all channels in plane 0.
// The occupied length (NbSamples) is tracked independently of the allocated
// capacity so storage can be reused across conversion calls.
type Frame struct {
	layout    ChannelLayout
	format    SampleFormat
	rate      int
	nbSamples int
	capacity  int
	pts       int64
	data      [][]byte
}

// AllocFrame allocates a frame with storage for nbSamples samples per
// channel. The occupied length starts at nbSamples and the PTS undefined.
func AllocFrame(layout ChannelLayout, format SampleFormat, rate, nbSamples int) (*Frame, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("audio: invalid channel layout %d", layout)
	}
	if !format.Valid() {
		return nil, fmt.Errorf("audio: invalid sample format %d", format)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", rate)
	}
	if nbSamples < 0 {
		return nil, fmt.Errorf("audio: invalid sample count %d", nbSamples)
	}

	channels := layout.Channels()
	bps := format.BytesPerSample()

	var data [][]byte
	if format.IsPlanar() {
		data = make([][]byte, channels)
		for ch := range data {
			data[ch] = make([]byte, nbSamples*bps)
		}
	} else {
		data = [][]byte{make([]byte, nbSamples*channels*bps)}
	}

	return &Frame{
		layout:    layout,
		format:    format,
		rate:      rate,
		nbSamples: nbSamples,
		capacity:  nbSamples,
		pts:       NoPTS,
		data:      data,
	}, nil
}

func (f *Frame) ChannelLayout() ChannelLayout { return f.layout }
func (f *Frame) SampleFormat() SampleFormat   { return f.format }
func (f *Frame) SampleRate() int              { return f.rate }
func (f *Frame) Channels() int                { return f.layout.Channels() }
func (f *Frame) NbSamples() int               { return f.nbSamples }
func (f *Frame) Capacity() int                { return f.capacity }
func (f *Frame) PTS() int64                   { return f.pts }
func (f *Frame) SetPTS(pts int64)             { f.pts = pts }

// SetNbSamples adjusts the occupied length within the allocated capacity.
func (f *Frame) SetNbSamples(n int) error {
	if n < 0 || n > f.capacity {
		return fmt.Errorf("audio: sample count %d out of range [0, %d]", n, f.capacity)
	}
	f.nbSamples = n
	return nil
}

// Plane returns the raw storage of one plane. Packed formats have a single
// plane at index 0.
func (f *Frame) Plane(i int) []byte {
	return f.data[i]
}

// Planes returns the number of storage planes.
func (f *Frame) Planes() int {
	return len(f.data)
}

// Clone returns a deep copy holding only the occupied samples. The copy
// shares no storage with the receiver.
func (f *Frame) Clone() *Frame {
	c, _ := AllocFrame(f.layout, f.format, f.rate, f.nbSamples)
	c.pts = f.pts
	if f.format.IsPlanar() {
		bps := f.format.BytesPerSample()
		for ch := range c.data {
			copy(c.data[ch], f.data[ch][:f.nbSamples*bps])
		}
	} else {
		stride := f.format.BytesPerSample() * f.layout.Channels()
		copy(c.data[0], f.data[0][:f.nbSamples*stride])
	}
	return c
}

// CopySamples copies count samples per channel from src starting at
// srcOffset into dst starting at dstOffset. Both frames must share the same
// layout and format, and the ranges must fit the destination capacity and
// the source occupancy.
func CopySamples(dst, src *Frame, dstOffset, srcOffset, count int) error {
	if dst.format != src.format || dst.layout != src.layout {
		return fmt.Errorf("audio: copy between mismatched frames (%s/%s vs %s/%s)",
			dst.layout, dst.format, src.layout, src.format)
	}
	if count < 0 || srcOffset < 0 || dstOffset < 0 {
		return fmt.Errorf("audio: negative copy range")
	}
	if srcOffset+count > src.nbSamples {
		return fmt.Errorf("audio: source range [%d, %d) exceeds occupancy %d", srcOffset, srcOffset+count, src.nbSamples)
	}
	if dstOffset+count > dst.capacity {
		return fmt.Errorf("audio: destination range [%d, %d) exceeds capacity %d", dstOffset, dstOffset+count, dst.capacity)
	}

	if src.format.IsPlanar() {
		bps := src.format.BytesPerSample()
		for ch := range src.data {
			copy(dst.data[ch][dstOffset*bps:], src.data[ch][srcOffset*bps:(srcOffset+count)*bps])
		}
		return nil
	}

	stride := src.format.BytesPerSample() * src.layout.Channels()
	copy(dst.data[0][dstOffset*stride:], src.data[0][srcOffset*stride:(srcOffset+count)*stride])
	return nil
}

func (f *Frame) planeIndex(ch, i int) (plane, pos int) {
	if f.format.IsPlanar() {
		return ch, i
	}
	return 0, i*f.layout.Channels() + ch
}

// Sample reads the sample of channel ch at index i as a normalized float64
// in [-1, 1).
func (f *Frame) Sample(ch, i int) float64 {
	plane, pos := f.planeIndex(ch, i)
	b := f.data[plane]
	switch f.format.Packed() {
	case SampleFormatU8:
		return (float64(b[pos]) - 128) / 128
	case SampleFormatS16:
		return float64(int16(binary.LittleEndian.Uint16(b[pos*2:]))) / 32768
	case SampleFormatS32:
		return float64(int32(binary.LittleEndian.Uint32(b[pos*4:]))) / 2147483648
	case SampleFormatFlt:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[pos*4:])))
	case SampleFormatDbl:
		return math.Float64frombits(binary.LittleEndian.Uint64(b[pos*8:]))
	}
	return 0
}

// SetSample writes a normalized float64 sample, clipping to the range of
// integer formats.
func (f *Frame) SetSample(ch, i int, v float64) {
	plane, pos := f.planeIndex(ch, i)
	b := f.data[plane]
	switch f.format.Packed() {
	case SampleFormatU8:
		b[pos] = byte(clip(v*128, -128, 127) + 128)
	case SampleFormatS16:
		binary.LittleEndian.PutUint16(b[pos*2:], uint16(int16(clip(v*32768, -32768, 32767))))
	case SampleFormatS32:
		binary.LittleEndian.PutUint32(b[pos*4:], uint32(int32(clip(v*2147483648, -2147483648, 2147483647))))
	case SampleFormatFlt:
		binary.LittleEndian.PutUint32(b[pos*4:], math.Float32bits(float32(v)))
	case SampleFormatDbl:
		binary.LittleEndian.PutUint64(b[pos*8:], math.Float64bits(v))
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
