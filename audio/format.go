// Package audio provides the core data model shared by the conversion
// pipeline: sample formats, channel layouts, rational time bases and
// planar/packed sample frames.
package audio

// SampleFormat identifies how a single sample is encoded in memory.
// Packed formats interleave channels in one plane, planar formats keep one
// plane per channel.
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatFlt
	SampleFormatDbl
	SampleFormatU8P
	SampleFormatS16P
	SampleFormatS32P
	SampleFormatFltP
	SampleFormatDblP
)

// BytesPerSample returns the storage size of one sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return 1
	case SampleFormatS16, SampleFormatS16P:
		return 2
	case SampleFormatS32, SampleFormatS32P, SampleFormatFlt, SampleFormatFltP:
		return 4
	case SampleFormatDbl, SampleFormatDblP:
		return 8
	}
	return 0
}

// IsPlanar reports whether the format stores each channel in its own plane.
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case SampleFormatU8P, SampleFormatS16P, SampleFormatS32P, SampleFormatFltP, SampleFormatDblP:
		return true
	}
	return false
}

// Packed returns the interleaved counterpart of the format.
func (f SampleFormat) Packed() SampleFormat {
	switch f {
	case SampleFormatU8P:
		return SampleFormatU8
	case SampleFormatS16P:
		return SampleFormatS16
	case SampleFormatS32P:
		return SampleFormatS32
	case SampleFormatFltP:
		return SampleFormatFlt
	case SampleFormatDblP:
		return SampleFormatDbl
	}
	return f
}

// Planar returns the planar counterpart of the format.
func (f SampleFormat) Planar() SampleFormat {
	switch f {
	case SampleFormatU8:
		return SampleFormatU8P
	case SampleFormatS16:
		return SampleFormatS16P
	case SampleFormatS32:
		return SampleFormatS32P
	case SampleFormatFlt:
		return SampleFormatFltP
	case SampleFormatDbl:
		return SampleFormatDblP
	}
	return f
}

func (f SampleFormat) Valid() bool {
	return f.BytesPerSample() > 0
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatFlt:
		return "flt"
	case SampleFormatDbl:
		return "dbl"
	case SampleFormatU8P:
		return "u8p"
	case SampleFormatS16P:
		return "s16p"
	case SampleFormatS32P:
		return "s32p"
	case SampleFormatFltP:
		return "fltp"
	case SampleFormatDblP:
		return "dblp"
	}
	return "none"
}
