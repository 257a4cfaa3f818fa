package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFrame(t *testing.T) {
	t.Run("packed", func(t *testing.T) {
		f, err := AllocFrame(ChannelLayoutStereo, SampleFormatS16, 48000, 1024)
		require.NoError(t, err)
		require.Equal(t, 1, f.Planes())
		require.Len(t, f.Plane(0), 1024*2*2)
		require.Equal(t, 1024, f.NbSamples())
		require.Equal(t, 1024, f.Capacity())
		require.EqualValues(t, NoPTS, f.PTS())
	})

	t.Run("planar", func(t *testing.T) {
		f, err := AllocFrame(ChannelLayoutStereo, SampleFormatFltP, 48000, 512)
		require.NoError(t, err)
		require.Equal(t, 2, f.Planes())
		require.Len(t, f.Plane(0), 512*4)
		require.Len(t, f.Plane(1), 512*4)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := AllocFrame(ChannelLayoutNone, SampleFormatS16, 48000, 16)
		require.Error(t, err)
		_, err = AllocFrame(ChannelLayoutMono, SampleFormatNone, 48000, 16)
		require.Error(t, err)
		_, err = AllocFrame(ChannelLayoutMono, SampleFormatS16, 0, 16)
		require.Error(t, err)
		_, err = AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, -1)
		require.Error(t, err)
	})
}

func TestSetNbSamples(t *testing.T) {
	f, err := AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, 64)
	require.NoError(t, err)

	require.NoError(t, f.SetNbSamples(0))
	require.Equal(t, 0, f.NbSamples())
	require.Equal(t, 64, f.Capacity())

	require.NoError(t, f.SetNbSamples(64))
	require.Error(t, f.SetNbSamples(65))
	require.Error(t, f.SetNbSamples(-1))
}

func TestSampleRoundtrip(t *testing.T) {
	for _, tc := range []struct {
		format SampleFormat
		tol    float64
	}{
		{SampleFormatU8, 1.0 / 127},
		{SampleFormatS16, 1.0 / 32767},
		{SampleFormatS32, 1e-9},
		{SampleFormatFlt, 1e-6},
		{SampleFormatDbl, 0},
		{SampleFormatS16P, 1.0 / 32767},
		{SampleFormatFltP, 1e-6},
		{SampleFormatDblP, 0},
	} {
		t.Run(tc.format.String(), func(t *testing.T) {
			f, err := AllocFrame(ChannelLayoutStereo, tc.format, 48000, 4)
			require.NoError(t, err)

			values := []float64{0, 0.5, -0.25, -1}
			for i, v := range values {
				f.SetSample(0, i, v)
				f.SetSample(1, i, -v)
			}
			for i, v := range values {
				require.InDelta(t, v, f.Sample(0, i), tc.tol, "ch 0 sample %d", i)
				require.InDelta(t, -v, f.Sample(1, i), tc.tol, "ch 1 sample %d", i)
			}
		})
	}
}

func TestSampleClipping(t *testing.T) {
	f, err := AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, 2)
	require.NoError(t, err)

	f.SetSample(0, 0, 2.0)
	f.SetSample(0, 1, -2.0)
	require.InDelta(t, 1.0, f.Sample(0, 0), 1e-4)
	require.InDelta(t, -1.0, f.Sample(0, 1), 1e-4)
}

func TestCloneIndependence(t *testing.T) {
	f, err := AllocFrame(ChannelLayoutStereo, SampleFormatDbl, 48000, 8)
	require.NoError(t, err)
	f.SetPTS(42)
	for i := 0; i < 8; i++ {
		f.SetSample(0, i, float64(i)/10)
		f.SetSample(1, i, -float64(i)/10)
	}

	c := f.Clone()
	require.Equal(t, 8, c.NbSamples())
	require.EqualValues(t, 42, c.PTS())

	f.SetSample(0, 3, 0.99)
	require.InDelta(t, 0.3, c.Sample(0, 3), 0)
}

func TestCloneOnlyOccupied(t *testing.T) {
	f, err := AllocFrame(ChannelLayoutMono, SampleFormatDbl, 48000, 16)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		f.SetSample(0, i, 1)
	}
	require.NoError(t, f.SetNbSamples(4))

	c := f.Clone()
	require.Equal(t, 4, c.NbSamples())
	require.Equal(t, 4, c.Capacity())
}

func TestCopySamples(t *testing.T) {
	t.Run("packed with offsets", func(t *testing.T) {
		src, err := AllocFrame(ChannelLayoutStereo, SampleFormatDbl, 48000, 8)
		require.NoError(t, err)
		for i := 0; i < 8; i++ {
			src.SetSample(0, i, float64(i))
			src.SetSample(1, i, float64(-i))
		}

		dst, err := AllocFrame(ChannelLayoutStereo, SampleFormatDbl, 48000, 8)
		require.NoError(t, err)
		require.NoError(t, CopySamples(dst, src, 2, 4, 3))

		for i := 0; i < 3; i++ {
			require.InDelta(t, float64(4+i), dst.Sample(0, 2+i), 0)
			require.InDelta(t, float64(-(4+i)), dst.Sample(1, 2+i), 0)
		}
	})

	t.Run("planar", func(t *testing.T) {
		src, err := AllocFrame(ChannelLayoutStereo, SampleFormatS16P, 48000, 4)
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			src.SetSample(0, i, float64(i)/8)
			src.SetSample(1, i, -float64(i)/8)
		}

		dst, err := AllocFrame(ChannelLayoutStereo, SampleFormatS16P, 48000, 4)
		require.NoError(t, err)
		require.NoError(t, CopySamples(dst, src, 0, 0, 4))

		for i := 0; i < 4; i++ {
			require.InDelta(t, src.Sample(0, i), dst.Sample(0, i), 0)
			require.InDelta(t, src.Sample(1, i), dst.Sample(1, i), 0)
		}
	})

	t.Run("mismatched frames", func(t *testing.T) {
		a, _ := AllocFrame(ChannelLayoutStereo, SampleFormatS16, 48000, 4)
		b, _ := AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, 4)
		require.Error(t, CopySamples(a, b, 0, 0, 4))
	})

	t.Run("out of range", func(t *testing.T) {
		a, _ := AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, 4)
		b, _ := AllocFrame(ChannelLayoutMono, SampleFormatS16, 48000, 4)
		require.Error(t, CopySamples(a, b, 0, 2, 3))
		require.Error(t, CopySamples(a, b, 2, 0, 3))
		require.Error(t, CopySamples(a, b, 0, 0, -1))
	})
}

func TestFormatProperties(t *testing.T) {
	require.Equal(t, 2, SampleFormatS16.BytesPerSample())
	require.Equal(t, 8, SampleFormatDblP.BytesPerSample())
	require.False(t, SampleFormatFlt.IsPlanar())
	require.True(t, SampleFormatFltP.IsPlanar())
	require.Equal(t, SampleFormatS16, SampleFormatS16P.Packed())
	require.Equal(t, SampleFormatS16P, SampleFormatS16.Planar())
	require.False(t, SampleFormatNone.Valid())
}

func TestLayoutChannels(t *testing.T) {
	require.Equal(t, 1, ChannelLayoutMono.Channels())
	require.Equal(t, 2, ChannelLayoutStereo.Channels())
	require.Equal(t, 3, ChannelLayout21.Channels())
	require.Equal(t, 6, ChannelLayout51.Channels())
	require.Equal(t, 0, ChannelLayoutNone.Channels())
}
