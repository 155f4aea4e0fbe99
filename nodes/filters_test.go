package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBiquadFilterAttenuatesAboveCutoffInLowpassShape(t *testing.T) {
	b := NewBiquadFilter()
	b.SetParameter(biquadParamShape, 0) // lowpass
	b.SetParameter(biquadParamCutoff, 200)

	sampleRate := 48000.0
	n := 2000
	in := make([]float32, n*2)
	freq := 15000.0
	for i := 0; i < n; i++ {
		s := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
		in[2*i] = s
		in[2*i+1] = s
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, n*2)
	b.Process([][]float32{in}, out, nil, nil, sampleRate)

	var rms float64
	for i := n; i < n*2; i++ {
		rms += float64(out[0][i]) * float64(out[0][i])
	}
	rms = math.Sqrt(rms / float64(n))
	require.Less(t, rms, 0.2)
}

func TestBiquadFilterResetClearsHistory(t *testing.T) {
	b := NewBiquadFilter()
	in := make([]float32, 200)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 200)
	b.Process([][]float32{in}, out, nil, nil, 48000)
	b.Reset()
	require.Equal(t, 0.0, b.bq.Process(0, 0))
}

func TestStateVariableFilterTapsDifferByOutputSelect(t *testing.T) {
	s := NewStateVariableFilter()
	s.SetParameter(svfParamCutoff, 1000)
	s.SetParameter(svfParamResonance, 0.7)

	in := make([]float32, 200)
	for i := range in {
		in[i] = 1
	}

	low := make([][]float32, 1)
	low[0] = make([]float32, 200)
	s.SetParameter(svfParamOutput, 0)
	s.Process([][]float32{in}, low, nil, nil, 48000)

	s2 := NewStateVariableFilter()
	s2.SetParameter(svfParamCutoff, 1000)
	s2.SetParameter(svfParamResonance, 0.7)
	s2.SetParameter(svfParamOutput, 1)
	high := make([][]float32, 1)
	high[0] = make([]float32, 200)
	s2.Process([][]float32{in}, high, nil, nil, 48000)

	require.NotEqual(t, low[0], high[0])
}

func TestStateVariableFilterResetClearsMemory(t *testing.T) {
	s := NewStateVariableFilter()
	in := make([]float32, 100)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 100)
	s.Process([][]float32{in}, out, nil, nil, 48000)
	s.Reset()
	out2 := make([][]float32, 1)
	out2[0] = make([]float32, 2)
	silence := make([]float32, 2)
	s.Process([][]float32{silence}, out2, nil, nil, 48000)
	require.Equal(t, float32(0), out2[0][0])
}

func TestParametricEQIsNearIdentityAtZeroGain(t *testing.T) {
	p := NewParametricEQ()
	in := make([]float32, 200)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) * 0.3))
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 200)
	p.Process([][]float32{in}, out, nil, nil, 48000)

	for i := 50; i < 200; i++ { // skip the filter's settling transient
		require.InDelta(t, in[i], out[0][i], 0.05)
	}
}
