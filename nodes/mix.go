package nodes

import (
	"math"

	"github.com/beamforge/beam/graph"
)

// Gain scales its audio input by a linear gain factor.
type Gain struct {
	paramSet
}

func NewGain() *Gain {
	return &Gain{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "gain", Min: 0, Max: 4, Default: 1, Unit: ""},
	})}
}

func (g *Gain) TypeTag() string           { return TagGain }
func (g *Gain) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (g *Gain) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (g *Gain) Reset()                    {}
func (g *Gain) Clone() graph.Node         { return &Gain{paramSet: g.paramSet.clone()} }

func (g *Gain) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	gain := float32(g.val(0))
	in := audioCVIn[0]
	out := audioCVOut[0]
	n := len(out)
	if len(in) < n {
		n = len(in)
	}
	for i := 0; i < n; i++ {
		out[i] = in[i] * gain
	}
}

// Pan applies equal-power stereo panning to a (possibly already-stereo)
// audio input: pan -1 is hard left, +1 is hard right.
type Pan struct {
	paramSet
}

func NewPan() *Pan {
	return &Pan{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "pan", Min: -1, Max: 1, Default: 0, Unit: ""},
	})}
}

func (p *Pan) TypeTag() string           { return TagPan }
func (p *Pan) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (p *Pan) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (p *Pan) Reset()                    {}
func (p *Pan) Clone() graph.Node         { return &Pan{paramSet: p.paramSet.clone()} }

func (p *Pan) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	pan := p.val(0)
	angle := (pan + 1) * math.Pi / 4
	leftGain := float32(math.Cos(angle))
	rightGain := float32(math.Sin(angle))
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		mono := (l + r) / 2
		out[2*i] = mono * leftGain
		out[2*i+1] = mono * rightGain
	}
}

// Mixer sums N audio inputs, each with its own gain parameter, into one
// audio output.
type Mixer struct {
	paramSet
	inputCount int
}

// NewMixer builds a mixer with the given number of audio inputs (minimum 2).
func NewMixer(inputCount int) *Mixer {
	if inputCount < 2 {
		inputCount = 2
	}
	defs := make([]graph.Parameter, inputCount)
	for i := range defs {
		defs[i] = graph.Parameter{ID: i, Name: "gain", Min: 0, Max: 2, Default: 1, Unit: ""}
	}
	return &Mixer{paramSet: newParamSet(defs), inputCount: inputCount}
}

func (m *Mixer) TypeTag() string { return TagMixer }
func (m *Mixer) InputPorts() []graph.Port {
	p := make([]graph.Port, m.inputCount)
	for i := range p {
		p[i] = graph.Port{Name: "in", Type: graph.Audio, Index: i}
	}
	return p
}
func (m *Mixer) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (m *Mixer) Reset()                    {}
func (m *Mixer) Clone() graph.Node {
	return &Mixer{paramSet: m.paramSet.clone(), inputCount: m.inputCount}
}

func (m *Mixer) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	out := audioCVOut[0]
	for i := range out {
		out[i] = 0
	}
	for ch, in := range audioCVIn {
		gain := float32(m.val(ch))
		n := len(out)
		if len(in) < n {
			n = len(in)
		}
		for i := 0; i < n; i++ {
			out[i] += in[i] * gain
		}
	}
}

// Splitter duplicates one audio input onto two audio outputs, so a signal
// can feed two downstream chains without an implicit fan-out at the wiring
// layer.
type Splitter struct{}

func NewSplitter() *Splitter { return &Splitter{} }

func (s *Splitter) TypeTag() string          { return TagSplitter }
func (s *Splitter) InputPorts() []graph.Port { return ports(audioPort("in")) }
func (s *Splitter) OutputPorts() []graph.Port {
	return ports(audioPort("out_a"), audioPort("out_b"))
}
func (s *Splitter) Parameters() []graph.Parameter    { return nil }
func (s *Splitter) GetParameter(int) (float64, bool) { return 0, false }
func (s *Splitter) SetParameter(int, float64) bool   { return false }
func (s *Splitter) Reset()                           {}
func (s *Splitter) Clone() graph.Node                { return &Splitter{} }

func (s *Splitter) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	in := audioCVIn[0]
	n := len(audioCVOut[0])
	if len(in) < n {
		n = len(in)
	}
	copy(audioCVOut[0][:n], in[:n])
	copy(audioCVOut[1][:n], in[:n])
}

// MathNode applies a selectable arithmetic operation between two CV inputs:
// add, subtract, multiply, min, max.
type MathNode struct {
	paramSet
}

const (
	mathOpAdd = iota
	mathOpSub
	mathOpMul
	mathOpMin
	mathOpMax
)

func NewMathNode() *MathNode {
	return &MathNode{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "operation", Min: 0, Max: 4, Default: 0, Unit: ""},
	})}
}

func (m *MathNode) TypeTag() string           { return TagMath }
func (m *MathNode) InputPorts() []graph.Port  { return ports(cvPort("a"), cvPort("b")) }
func (m *MathNode) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (m *MathNode) Reset()                    {}
func (m *MathNode) Clone() graph.Node         { return &MathNode{paramSet: m.paramSet.clone()} }

func (m *MathNode) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	op := int(m.val(0))
	a := audioCVIn[0]
	b := audioCVIn[1]
	out := audioCVOut[0]
	for i := range out {
		var av, bv float32
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		switch op {
		case mathOpSub:
			out[i] = av - bv
		case mathOpMul:
			out[i] = av * bv
		case mathOpMin:
			if av < bv {
				out[i] = av
			} else {
				out[i] = bv
			}
		case mathOpMax:
			if av > bv {
				out[i] = av
			} else {
				out[i] = bv
			}
		default:
			out[i] = av + bv
		}
	}
}
