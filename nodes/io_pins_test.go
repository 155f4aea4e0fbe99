package nodes

import (
	"testing"

	"github.com/beamforge/beam/graph"
	"github.com/stretchr/testify/require"
)

func TestMidiToCVNoteOnSetsGatePitchVelocity(t *testing.T) {
	m := NewMidiToCV()
	out := [][]float32{make([]float32, 2), make([]float32, 2), make([]float32, 2), make([]float32, 2)}
	midiIn := [][]graph.MidiEvent{{{Status: 0x90, Data1: 72, Data2: 127}}}
	m.Process(nil, out, midiIn, nil, 48000)

	require.InDelta(t, 1.0, out[0][0], 1e-6) // (72-60)/12 = 1 octave
	require.Equal(t, float32(1), out[1][0])  // gate high
	require.InDelta(t, 1.0, out[2][0], 1e-6) // full velocity
}

func TestMidiToCVNoteOffClearsGateButKeepsPitch(t *testing.T) {
	m := NewMidiToCV()
	out := [][]float32{make([]float32, 1), make([]float32, 1), make([]float32, 1), make([]float32, 1)}
	m.Process(nil, out, [][]graph.MidiEvent{{{Status: 0x90, Data1: 60, Data2: 100}}}, nil, 48000)
	m.Process(nil, out, [][]graph.MidiEvent{{{Status: 0x80, Data1: 60, Data2: 0}}}, nil, 48000)
	require.Equal(t, float32(0), out[1][0])
	require.InDelta(t, 0.0, out[0][0], 1e-6) // pitch held from the note on
}

func TestMidiToCVChannelAftertouchScalesToUnitRange(t *testing.T) {
	m := NewMidiToCV()
	out := [][]float32{make([]float32, 1), make([]float32, 1), make([]float32, 1), make([]float32, 1)}
	m.Process(nil, out, [][]graph.MidiEvent{{{Status: 0xD0, Data1: 127}}}, nil, 48000)
	require.InDelta(t, 1.0, out[3][0], 1e-6)
}

func TestCVToAudioDuplicatesToStereo(t *testing.T) {
	c := NewCVToAudio()
	in := []float32{0.5, -0.5}
	out := make([][]float32, 1)
	out[0] = make([]float32, 4)
	c.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, []float32{0.5, 0.5, -0.5, -0.5}, out[0])
}

func TestQuantizerSnapsToNearestAllowedSemitone(t *testing.T) {
	q := NewQuantizer()
	q.SetParameter(0, 1<<0|1<<4|1<<7) // C major triad root (C, E, G)
	in := []float32{2.0 / 12.0}       // D, not in mask
	out := make([][]float32, 1)
	out[0] = make([]float32, 1)
	q.Process([][]float32{in}, out, nil, nil, 48000)
	got := out[0][0] * 12
	require.True(t, got == 0 || got == 4) // walks out to C or E
}

func TestQuantizerPassesThroughExactScaleMembers(t *testing.T) {
	q := NewQuantizer()
	q.SetParameter(0, 4095) // chromatic, every step allowed
	in := []float32{7.0 / 12.0}
	out := make([][]float32, 1)
	out[0] = make([]float32, 1)
	q.Process([][]float32{in}, out, nil, nil, 48000)
	require.InDelta(t, 7.0/12.0, out[0][0], 1e-6)
}

func TestAutomationInputInterpolatesBetweenBreakpoints(t *testing.T) {
	a := NewAutomationInput()
	a.SetCurve([]automationPoint{
		{TimeSeconds: 0, Value: 0},
		{TimeSeconds: 2, Value: 10},
	})
	a.SetPlayhead(1)
	out := make([][]float32, 1)
	out[0] = make([]float32, 1)
	a.Process(nil, out, nil, nil, 48000)
	require.InDelta(t, 5.0, out[0][0], 1e-6)
}

func TestAutomationInputClampsBeforeFirstAndAfterLastPoint(t *testing.T) {
	a := NewAutomationInput()
	a.SetCurve([]automationPoint{
		{TimeSeconds: 1, Value: 3},
		{TimeSeconds: 2, Value: 9},
	})
	out := make([][]float32, 1)
	out[0] = make([]float32, 1)

	a.SetPlayhead(0)
	a.Process(nil, out, nil, nil, 48000)
	require.InDelta(t, 3.0, out[0][0], 1e-6)

	a.SetPlayhead(5)
	a.Process(nil, out, nil, nil, 48000)
	require.InDelta(t, 9.0, out[0][0], 1e-6)
}

func TestAutomationInputSetCurveSortsUnorderedPoints(t *testing.T) {
	a := NewAutomationInput()
	a.SetCurve([]automationPoint{
		{TimeSeconds: 5, Value: 1},
		{TimeSeconds: 0, Value: 0},
	})
	require.Equal(t, 0.0, a.points[0].TimeSeconds)
	require.Equal(t, 5.0, a.points[1].TimeSeconds)
}

func TestAutomationInputSatisfiesPlayheadAwareCapability(t *testing.T) {
	var n graph.Node = NewAutomationInput()
	_, ok := n.(graph.PlayheadAware)
	require.True(t, ok)
}

func TestAudioInputInjectSurvivesUntouchedOutput(t *testing.T) {
	a := NewAudioInput()
	a.Inject([]float32{1, 2, 3, 4})
	out := make([][]float32, 1)
	out[0] = make([]float32, 4)
	a.Process(nil, out, nil, nil, 48000)
	require.Equal(t, []float32{1, 2, 3, 4}, out[0])
}

func TestAudioInputResetClearsInjectedFrame(t *testing.T) {
	a := NewAudioInput()
	a.Inject([]float32{1, 2})
	a.Reset()
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	a.Process(nil, out, nil, nil, 48000)
	require.Equal(t, []float32{0, 0}, out[0])
}

func TestAudioOutputPassesThrough(t *testing.T) {
	a := NewAudioOutput()
	in := []float32{1, 2, 3, 4}
	out := make([][]float32, 1)
	out[0] = make([]float32, 4)
	a.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}

func TestMidiInputLeavesOutputsUntouchedForInjection(t *testing.T) {
	m := NewMidiInput()
	sentinel := []graph.MidiEvent{{Status: 0x90, Data1: 1, Data2: 1}}
	midiOut := [][]graph.MidiEvent{sentinel}
	m.Process(nil, nil, nil, midiOut, 48000)
	require.Equal(t, sentinel, midiOut[0])
}

func TestMidiOutputCopiesInputEvents(t *testing.T) {
	m := NewMidiOutput()
	in := []graph.MidiEvent{{Status: 0x90, Data1: 60, Data2: 100}}
	midiOut := [][]graph.MidiEvent{nil}
	m.Process(nil, nil, [][]graph.MidiEvent{in}, midiOut, 48000)
	require.Equal(t, in, midiOut[0])
}

func TestTemplateInputPinEmitsSetValuesAndMidi(t *testing.T) {
	p := NewTemplateInputPin()
	p.SetPitch(0.5)
	p.SetGate(true)
	p.SetVelocity(0.8)
	events := []graph.MidiEvent{{Status: 0x90, Data1: 60, Data2: 100}}
	p.SetMidi(events)

	out := [][]float32{make([]float32, 1), make([]float32, 1), make([]float32, 1)}
	midiOut := [][]graph.MidiEvent{nil}
	p.Process(nil, out, nil, midiOut, 48000)

	require.InDelta(t, 0.5, out[0][0], 1e-6)
	require.Equal(t, float32(1), out[1][0])
	require.InDelta(t, 0.8, out[2][0], 1e-6)
	require.Equal(t, events, midiOut[0])
}

func TestTemplateInputPinResetClearsAllState(t *testing.T) {
	p := NewTemplateInputPin()
	p.SetPitch(1)
	p.SetGate(true)
	p.Reset()
	require.Equal(t, 0.0, p.pitch)
	require.Equal(t, 0.0, p.gate)
}

func TestTemplateOutputPinPassesThrough(t *testing.T) {
	p := NewTemplateOutputPin()
	in := []float32{1, 2}
	out := make([][]float32, 1)
	out[0] = make([]float32, 2)
	p.Process([][]float32{in}, out, nil, nil, 48000)
	require.Equal(t, in, out[0])
}
