package audio

// ChannelLayout identifies a speaker arrangement.
type ChannelLayout int

const (
	ChannelLayoutNone ChannelLayout = iota
	ChannelLayoutMono
	ChannelLayoutStereo
	ChannelLayout21
	ChannelLayout51
)

// Channels returns the number of channels in the layout.
func (l ChannelLayout) Channels() int {
	switch l {
	case ChannelLayoutMono:
		return 1
	case ChannelLayoutStereo:
		return 2
	case ChannelLayout21:
		return 3
	case ChannelLayout51:
		return 6
	}
	return 0
}

func (l ChannelLayout) Valid() bool {
	return l.Channels() > 0
}

func (l ChannelLayout) String() string {
	switch l {
	case ChannelLayoutMono:
		return "mono"
	case ChannelLayoutStereo:
		return "stereo"
	case ChannelLayout21:
		return "2.1"
	case ChannelLayout51:
		return "5.1"
	}
	return "none"
}
