package resample

import "github.com/avpipeline/avsample/audio"

// Engine converts audio between a fixed source and target configuration. It
// keeps whatever history it needs to interpolate correctly across calls and
// reports how much of that history is still buffered.
//
// Engines are driven by a single Resampler and need no internal locking.
type Engine interface {
	// SetCompensation configures drift compensation before Init. minComp
	// and minHardComp are thresholds in seconds; maxSoftComp is the
	// maximum relative stretch applied while correcting gradually.
	SetCompensation(minComp, minHardComp, maxSoftComp float64) error

	// Init validates the configuration. The engine is unusable until Init
	// succeeds.
	Init() error

	// MaxOutputSamples returns an upper bound on the number of target-rate
	// samples one Convert call can produce for n input samples, including
	// buffered history.
	MaxOutputSamples(n int) (int, error)

	// Delay returns the currently buffered history expressed in samples of
	// the given rate.
	Delay(base int64) int64

	// Convert consumes src (nil drains the remaining history) and writes
	// converted samples into dst up to its capacity, setting its occupied
	// length. It returns the number of samples written.
	Convert(dst, src *audio.Frame) (int, error)

	// NextPTS feeds an input timestamp on the combined
	// (sourceRate x targetRate) clock into the drift tracker and returns
	// the corrected timestamp of the next output sample on that clock.
	NextPTS(pts int64) int64

	// Close releases engine resources.
	Close()
}
