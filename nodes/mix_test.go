package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGainScalesSamplesLinearly(t *testing.T) {
	g := NewGain()
	g.SetParameter(0, 2)
	in := []float32{1, -1, 0.5, -0.5}
	out := make([][]float32, 1)
	out[0] = make([]float32, 4)
	g.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, []float32{2, -2, 1, -1}, out[0])
}

func TestPanHardLeftSilencesRightChannel(t *testing.T) {
	p := NewPan()
	p.SetParameter(0, -1)
	in := []float32{1, 1} // one stereo frame, mono content
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	p.Process([][]float32{in}, out, nil, nil, 48000)
	require.InDelta(t, 1.0, out[0][0], 1e-6)
	require.InDelta(t, 0.0, out[0][1], 1e-6)
}

func TestPanCenterAppliesEqualPowerToBothChannels(t *testing.T) {
	p := NewPan()
	in := []float32{1, 1}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	p.Process([][]float32{in}, out, nil, nil, 48000)
	require.InDelta(t, math.Sqrt2/2, out[0][0], 1e-6)
	require.InDelta(t, math.Sqrt2/2, out[0][1], 1e-6)
}

func TestMixerSumsAllInputsWithPerChannelGain(t *testing.T) {
	m := NewMixer(3)
	m.SetParameter(0, 1)
	m.SetParameter(1, 0.5)
	m.SetParameter(2, 2)

	a := []float32{1, 1}
	b := []float32{2, 2}
	c := []float32{1, 1}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	m.Process([][]float32{a, b, c}, out, nil, nil, 48000)
	// 1*1 + 0.5*2 + 2*1 = 4
	require.InDelta(t, 4.0, out[0][0], 1e-6)
}

func TestMixerMinimumInputCountIsTwo(t *testing.T) {
	m := NewMixer(0)
	require.Equal(t, 2, m.inputCount)
}

func TestSplitterDuplicatesInputToBothOutputs(t *testing.T) {
	s := NewSplitter()
	in := []float32{1, 2, 3}
	outA := make([]float32, 3)
	outB := make([]float32, 3)
	s.Process([][]float32{in}, [][]float32{outA, outB}, nil, nil, 48000)
	require.Equal(t, in, outA)
	require.Equal(t, in, outB)
}

func TestMathNodeAppliesEachOperation(t *testing.T) {
	cases := []struct {
		op   float64
		want float32
	}{
		{mathOpAdd, 7},
		{mathOpSub, 3},
		{mathOpMul, 10},
		{mathOpMin, 2},
		{mathOpMax, 5},
	}
	for _, c := range cases {
		m := NewMathNode()
		m.SetParameter(0, c.op)
		out := make([][]float32, 1)
		out[0] = make([]float32, 1)
		m.Process([][]float32{{5}, {2}}, out, nil, nil, 48000)
		require.Equal(t, c.want, out[0][0])
	}
}
