package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	for _, tc := range []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"identity", 1024, 48000, 48000, 1024},
		{"up", 100, 48000, 44100, 109},
		{"down", 109, 44100, 48000, 100},
		{"negative", -100, 48000, 44100, -109},
		{"zero", 0, 48000, 44100, 0},
		{"large pts", 90_000_000, 48000 * 44100, 90000, 90_000_000 / 90000 * 48000 * 44100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Rescale(tc.a, tc.b, tc.c))
		})
	}
}

func TestRoundedDiv(t *testing.T) {
	require.EqualValues(t, 1, RoundedDiv(50, 100))
	require.EqualValues(t, 0, RoundedDiv(49, 100))
	require.EqualValues(t, -1, RoundedDiv(-50, 100))
	require.EqualValues(t, 0, RoundedDiv(-49, 100))
	require.EqualValues(t, -1, RoundedDiv(-46472, 44100))
}

func TestRationalValid(t *testing.T) {
	require.True(t, NewRational(1, 44100).Valid())
	require.False(t, Rational{}.Valid())
	require.False(t, NewRational(0, 44100).Valid())
	require.False(t, NewRational(1, 0).Valid())
}

func TestRationalFloat64(t *testing.T) {
	require.InDelta(t, 0.5, NewRational(1, 2).Float64(), 1e-12)
}
