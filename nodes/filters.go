package nodes

import (
	"github.com/beamforge/beam/dsp"
	"github.com/beamforge/beam/graph"
)

// BiquadFilter wraps dsp.Biquad with a selectable shape parameter, exposing
// the seven RBJ cookbook topologies as one node type.
type BiquadFilter struct {
	paramSet
	bq dsp.Biquad
}

const (
	biquadParamShape = iota
	biquadParamCutoff
	biquadParamQ
	biquadParamGainDB
)

func NewBiquadFilter() *BiquadFilter {
	return &BiquadFilter{paramSet: newParamSet([]graph.Parameter{
		{ID: biquadParamShape, Name: "shape", Min: 0, Max: 6, Default: 0, Unit: ""},
		{ID: biquadParamCutoff, Name: "cutoff", Min: 20, Max: 20000, Default: 1000, Unit: "hz"},
		{ID: biquadParamQ, Name: "q", Min: 0.1, Max: 20, Default: 0.707, Unit: ""},
		{ID: biquadParamGainDB, Name: "gain_db", Min: -24, Max: 24, Default: 0, Unit: "db"},
	})}
}

func (b *BiquadFilter) TypeTag() string           { return TagBiquadFilter }
func (b *BiquadFilter) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (b *BiquadFilter) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (b *BiquadFilter) Reset()                    { b.bq.Reset() }
func (b *BiquadFilter) Clone() graph.Node {
	return &BiquadFilter{paramSet: b.paramSet.clone()}
}

func (b *BiquadFilter) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	b.bq.Configure(dsp.BiquadShape(int(b.val(biquadParamShape))), b.val(biquadParamCutoff), b.val(biquadParamQ), b.val(biquadParamGainDB), sampleRate)
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float64
		if 2*i+1 < len(in) {
			l, r = float64(in[2*i]), float64(in[2*i+1])
		}
		out[2*i] = float32(b.bq.Process(0, l))
		out[2*i+1] = float32(b.bq.Process(1, r))
	}
}

// StateVariableFilter wraps dsp.StateVariable, exposing all four
// simultaneous taps via an output-select parameter (0=low, 1=high,
// 2=band, 3=notch).
type StateVariableFilter struct {
	paramSet
	svf dsp.StateVariable
}

const (
	svfParamCutoff = iota
	svfParamResonance
	svfParamOutput
)

func NewStateVariableFilter() *StateVariableFilter {
	return &StateVariableFilter{paramSet: newParamSet([]graph.Parameter{
		{ID: svfParamCutoff, Name: "cutoff", Min: 20, Max: 20000, Default: 1000, Unit: "hz"},
		{ID: svfParamResonance, Name: "resonance", Min: 0, Max: 1, Default: 0.2, Unit: ""},
		{ID: svfParamOutput, Name: "output", Min: 0, Max: 3, Default: 0, Unit: ""},
	})}
}

func (s *StateVariableFilter) TypeTag() string           { return TagStateVariable }
func (s *StateVariableFilter) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (s *StateVariableFilter) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (s *StateVariableFilter) Reset()                    { s.svf.Reset() }
func (s *StateVariableFilter) Clone() graph.Node {
	return &StateVariableFilter{paramSet: s.paramSet.clone()}
}

func (s *StateVariableFilter) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	s.svf.Configure(s.val(svfParamCutoff), s.val(svfParamResonance), sampleRate)
	sel := int(s.val(svfParamOutput))
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float64
		if 2*i+1 < len(in) {
			l, r = float64(in[2*i]), float64(in[2*i+1])
		}
		lLow, lHigh, lBand, lNotch := s.svf.Process(0, l)
		rLow, rHigh, rBand, rNotch := s.svf.Process(1, r)
		out[2*i] = float32(selectTap(lLow, lHigh, lBand, lNotch, sel))
		out[2*i+1] = float32(selectTap(rLow, rHigh, rBand, rNotch, sel))
	}
}

func selectTap(low, high, band, notch float64, sel int) float64 {
	switch sel {
	case 1:
		return high
	case 2:
		return band
	case 3:
		return notch
	default:
		return low
	}
}

// ParametricEQ chains three peaking biquads in series, each with its own
// center frequency, Q, and gain — a fixed 3-band parametric EQ.
type ParametricEQ struct {
	paramSet
	bands [3]dsp.Biquad
}

func NewParametricEQ() *ParametricEQ {
	defs := make([]graph.Parameter, 0, 9)
	centers := [3]float64{250, 1000, 4000}
	for b := 0; b < 3; b++ {
		base := b * 3
		defs = append(defs,
			graph.Parameter{ID: base + 0, Name: "band_freq", Min: 20, Max: 20000, Default: centers[b], Unit: "hz"},
			graph.Parameter{ID: base + 1, Name: "band_q", Min: 0.1, Max: 10, Default: 1, Unit: ""},
			graph.Parameter{ID: base + 2, Name: "band_gain_db", Min: -18, Max: 18, Default: 0, Unit: "db"},
		)
	}
	return &ParametricEQ{paramSet: newParamSet(defs)}
}

func (p *ParametricEQ) TypeTag() string           { return TagParametricEQ }
func (p *ParametricEQ) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (p *ParametricEQ) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (p *ParametricEQ) Reset() {
	for i := range p.bands {
		p.bands[i].Reset()
	}
}
func (p *ParametricEQ) Clone() graph.Node { return &ParametricEQ{paramSet: p.paramSet.clone()} }

func (p *ParametricEQ) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	for b := 0; b < 3; b++ {
		base := b * 3
		p.bands[b].Configure(dsp.BiquadPeak, p.val(base+0), p.val(base+1), p.val(base+2), sampleRate)
	}
	in := audioCVIn[0]
	out := audioCVOut[0]
	n := len(out)
	if len(in) < n {
		n = len(in)
	}
	copy(out, in[:n])
	for i, frames := 0, n/2; i < frames; i++ {
		l, r := float64(out[2*i]), float64(out[2*i+1])
		for b := 0; b < 3; b++ {
			l = p.bands[b].Process(0, l)
			r = p.bands[b].Process(1, r)
		}
		out[2*i] = float32(l)
		out[2*i+1] = float32(r)
	}
}
