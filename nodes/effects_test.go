package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDelayProducesEchoAfterTapTime(t *testing.T) {
	d := NewDelay()
	d.SetParameter(delayParamTime, 0.001) // 48 samples at 48kHz
	d.SetParameter(delayParamFeedback, 0)
	d.SetParameter(delayParamMix, 1) // fully wet

	in := make([]float32, 200*2)
	in[0], in[1] = 1, 1 // a single impulse
	out := make([][]float32, 1)
	out[0] = make([]float32, 200*2)
	d.Process([][]float32{in}, out, nil, nil, 48000)

	require.Greater(t, out[0][96], float32(0)) // echo shows up ~48 frames later
}

func TestDelayResetClearsHistory(t *testing.T) {
	d := NewDelay()
	in := make([]float32, 200)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 200)
	d.Process([][]float32{in}, out, nil, nil, 48000)
	d.Reset()
	require.Equal(t, float32(0), d.line.Read(0, 0.1))
}

func TestReverbCloneGetsIndependentTailState(t *testing.T) {
	r := NewReverb()
	in := make([]float32, 400)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 400)
	r.Process([][]float32{in}, out, nil, nil, 48000)

	clone := r.Clone().(*Reverb)
	silence := make([]float32, 4)
	cloneOut := make([][]float32, 1)
	cloneOut[0] = make([]float32, 4)
	clone.Process([][]float32{silence}, cloneOut, nil, nil, 48000)
	require.Equal(t, float32(0), cloneOut[0][0]) // fresh delay lines, no carried tail
}

func TestChorusMixZeroIsDryPassthrough(t *testing.T) {
	c := NewChorus()
	c.SetParameter(chorusParamMix, 0)
	in := []float32{0.5, -0.25}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	c.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}

func TestFlangerMixZeroIsDryPassthrough(t *testing.T) {
	f := NewFlanger()
	f.SetParameter(flangerParamMix, 0)
	in := []float32{0.5, -0.25}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	f.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}

func TestPhaserMixZeroIsDryPassthrough(t *testing.T) {
	p := NewPhaser()
	p.SetParameter(phaserParamMix, 0)
	in := []float32{0.5, -0.25}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	p.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}

func TestCompressorReducesGainAboveThreshold(t *testing.T) {
	c := NewCompressor()
	c.SetParameter(compParamThreshold, -12)
	c.SetParameter(compParamRatio, 4)
	c.SetParameter(compParamAttack, 0.0001)

	in := make([]float32, 400)
	for i := range in {
		in[i] = 0.9 // well above -12dB threshold
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 400)
	c.Process([][]float32{in}, out, nil, nil, 48000)
	require.Less(t, math.Abs(float64(out[0][399])), 0.9)
}

func TestCompressorLeavesSignalUnityBelowThreshold(t *testing.T) {
	c := NewCompressor()
	c.SetParameter(compParamThreshold, -6)
	in := make([]float32, 400)
	for i := range in {
		in[i] = 0.01 // far below threshold
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 400)
	c.Process([][]float32{in}, out, nil, nil, 48000)
	require.InDelta(t, 0.01, out[0][399], 0.005)
}

func TestLimiterClampsPeaksToThreshold(t *testing.T) {
	l := NewLimiter()
	l.SetParameter(limiterParamThreshold, -6) // ~0.501 linear
	in := make([]float32, 2000)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2000)
	l.Process([][]float32{in}, out, nil, nil, 48000)
	thresholdLin := math.Pow(10, -6.0/20)
	require.LessOrEqual(t, math.Abs(float64(out[0][1999])), thresholdLin+0.01)
}

func TestDistortionSaturatesTowardUnity(t *testing.T) {
	d := NewDistortion()
	d.SetParameter(0, 50) // max drive
	d.SetParameter(1, 1)  // fully wet
	in := []float32{0.1}
	out := make([][]float32, 1)
	out[0] = make([]float32, 1)
	d.Process([][]float32{in}, out, nil, nil, 48000)
	require.Greater(t, math.Abs(float64(out[0][0])), 0.9)
}

func TestDistortionMixZeroIsDryPassthrough(t *testing.T) {
	d := NewDistortion()
	d.SetParameter(1, 0)
	in := []float32{0.3, -0.4}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	d.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}

func TestBitcrusherHoldsSampleAcrossDivisorWindow(t *testing.T) {
	b := NewBitcrusher()
	b.SetParameter(1, 2) // hold for 2 frames
	in := []float32{1, 1, 0.2, 0.2, 0.2, 0.2, 0.9, 0.9}
	out := make([][]float32, 1)
	out[0] = make([]float32, 8)
	b.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, out[0][0], out[0][2])    // held across the first window
	require.NotEqual(t, out[0][0], out[0][4]) // new window re-quantizes a fresh sample
	require.Equal(t, out[0][4], out[0][6])    // held across the second window
}

func TestQuantizeAmplitudeSnapsToDiscreteLevels(t *testing.T) {
	got := quantizeAmplitude(0.1, 2) // 1-bit: only -1, 0, 1 survive
	require.Equal(t, float32(0), got)
}

func TestRingModulatorUsesInternalCarrierWhenUnmodulated(t *testing.T) {
	r := NewRingModulator()
	r.SetParameter(0, 1000)
	in := make([]float32, 200)
	for i := range in {
		in[i] = 1
	}
	out := make([][]float32, 1)
	out[0] = make([]float32, 200)
	r.Process([][]float32{in, nil}, out, nil, nil, 48000)
	require.NotEqual(t, float32(0), out[0][50]) // internal sine carrier modulates the signal
}

func TestVocoderCarriesModulatorEnvelopeOntoCarrier(t *testing.T) {
	v := NewVocoder()
	carrier := make([]float32, 400)
	for i := 0; i < len(carrier); i += 2 {
		carrier[i] = float32(math.Sin(float64(i) * 0.3))
		carrier[i+1] = carrier[i]
	}
	modulatorSilent := make([]float32, 400)
	modulatorLoud := make([]float32, 400)
	for i := range modulatorLoud {
		modulatorLoud[i] = 1
	}

	outSilent := make([][]float32, 1)
	outSilent[0] = make([]float32, 400)
	v.Process([][]float32{carrier, modulatorSilent}, outSilent, nil, nil, 48000)

	v2 := NewVocoder()
	outLoud := make([][]float32, 1)
	outLoud[0] = make([]float32, 400)
	v2.Process([][]float32{carrier, modulatorLoud}, outLoud, nil, nil, 48000)

	var silentEnergy, loudEnergy float64
	for i := 200; i < 400; i++ {
		silentEnergy += float64(outSilent[0][i]) * float64(outSilent[0][i])
		loudEnergy += float64(outLoud[0][i]) * float64(outLoud[0][i])
	}
	require.Greater(t, loudEnergy, silentEnergy)
}
