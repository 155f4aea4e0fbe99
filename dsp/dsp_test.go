package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSincSampleReproducesExactSampleAtIntegerPosition(t *testing.T) {
	src := []float32{0, 1, 2, 3, 4, 5, 6, 7} // mono
	got := SincSample(src, 1, 0, 3)
	require.InDelta(t, 3.0, got, 1e-3)
}

func TestSincSampleOutOfRangeIsZero(t *testing.T) {
	src := []float32{1, 1, 1, 1}
	require.Equal(t, float32(0), SincSample(src, 1, 0, -1000))
	require.Equal(t, float32(0), SincSample(nil, 2, 0, 0))
}

func TestResolveChannelDirectPassesThroughWithinRange(t *testing.T) {
	ch, avg := ResolveChannel(ChannelMapDirect, 2, 1)
	require.Equal(t, 1, ch)
	require.False(t, avg)
}

func TestResolveChannelDirectClampsExtraOutputsToLastSourceChannel(t *testing.T) {
	ch, avg := ResolveChannel(ChannelMapDirect, 1, 1) // mono source, stereo out
	require.Equal(t, 0, ch)
	require.False(t, avg)
}

func TestResolveChannelDuplicateAlwaysReadsChannelZero(t *testing.T) {
	ch, avg := ResolveChannel(ChannelMapDuplicate, 4, 1)
	require.Equal(t, 0, ch)
	require.False(t, avg)
}

func TestResolveChannelAverageRequestsAveraging(t *testing.T) {
	_, avg := ResolveChannel(ChannelMapAverage, 4, 0)
	require.True(t, avg)
}

func TestResolveChannelModuloWraps(t *testing.T) {
	ch, _ := ResolveChannel(ChannelMapModulo, 3, 4)
	require.Equal(t, 1, ch) // 4 % 3
}

func TestAverageFrameAveragesAllChannels(t *testing.T) {
	src := []float32{0, 10, 20} // 3 channels, one frame
	got := AverageFrame(src, 3, 0)
	require.InDelta(t, 10.0, got, 1e-3)
}

func TestBiquadLowpassAttenuatesHighFrequency(t *testing.T) {
	var b Biquad
	sampleRate := 48000.0
	b.Configure(BiquadLowpass, 200, 0.707, 0, sampleRate)

	// drive with a high-frequency tone well above cutoff and measure RMS
	// after letting the filter settle.
	var rms float64
	n := 2000
	freq := 15000.0
	for i := 0; i < n; i++ {
		x := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		y := b.Process(0, x)
		if i > n/2 {
			rms += y * y
		}
	}
	rms = math.Sqrt(rms / float64(n/2))
	require.Less(t, rms, 0.2) // well attenuated relative to unity input amplitude
}

func TestBiquadResetClearsState(t *testing.T) {
	var b Biquad
	b.Configure(BiquadLowpass, 1000, 0.707, 0, 48000)
	for i := 0; i < 100; i++ {
		b.Process(0, 1)
	}
	b.Reset()
	require.Equal(t, 0.0, b.Process(0, 0))
}

func TestOnePoleConvergesTowardTarget(t *testing.T) {
	var p OnePole
	p.SetTimeConstant(0.01, 48000)
	var last float64
	for i := 0; i < 10000; i++ {
		last = p.Process(1)
	}
	require.InDelta(t, 1.0, last, 1e-3)
}

func TestOnePoleZeroTimeConstantIsInstant(t *testing.T) {
	var p OnePole
	p.SetTimeConstant(0, 48000)
	require.Equal(t, 5.0, p.Process(5))
}

func TestOnePoleSetStateAndState(t *testing.T) {
	var p OnePole
	p.SetState(2.5)
	require.Equal(t, 2.5, p.State())
}

func TestDelayLineWriteReadRoundTrip(t *testing.T) {
	sampleRate := 48000.0
	d := NewDelayLine(1.0, sampleRate)
	d.Write(1, -1)
	for i := 0; i < 99; i++ {
		d.Write(0, 0)
	}
	got := d.Read(0, 100.0/sampleRate)
	require.InDelta(t, 1.0, got, 1e-2)
}

func TestDelayLineResizeResetsHistory(t *testing.T) {
	d := NewDelayLine(1.0, 48000)
	d.Write(1, 1)
	d.Resize(0.5, 44100)
	require.Equal(t, 44100.0, d.SampleRateHint())
	require.InDelta(t, 0, d.Read(0, 0), 1e-6)
}

func TestStateVariableProducesDistinctTaps(t *testing.T) {
	var s StateVariable
	s.Configure(1000, 0.7, 48000)
	low, high, band, notch := s.Process(0, 1)
	require.NotEqual(t, low, high)
	require.NotEqual(t, band, notch)
}

func TestStateVariableResetClearsMemory(t *testing.T) {
	var s StateVariable
	s.Configure(1000, 0.7, 48000)
	for i := 0; i < 50; i++ {
		s.Process(0, 1)
	}
	s.Reset()
	low, high, band, notch := s.Process(1, 0)
	require.Equal(t, 0.0, low)
	require.Equal(t, 0.0, high)
	require.Equal(t, 0.0, band)
	require.Equal(t, 0.0, notch)
}
