package nodes

import (
	"math"

	"github.com/beamforge/beam/graph"
)

const twoPi = 2 * math.Pi

// Oscillator is a band-naive (non-bandlimited) single-waveform generator:
// sine, saw, square, or triangle, selected by the waveform parameter.
type Oscillator struct {
	paramSet
	phase float64
}

const (
	oscParamFreq = iota
	oscParamWaveform
	oscParamAmplitude
)

func NewOscillator() *Oscillator {
	return &Oscillator{paramSet: newParamSet([]graph.Parameter{
		{ID: oscParamFreq, Name: "frequency", Min: 0.01, Max: 20000, Default: 440, Unit: "hz"},
		{ID: oscParamWaveform, Name: "waveform", Min: 0, Max: 3, Default: 0, Unit: ""},
		{ID: oscParamAmplitude, Name: "amplitude", Min: 0, Max: 1, Default: 0.8, Unit: ""},
	})}
}

func (o *Oscillator) TypeTag() string           { return TagOscillator }
func (o *Oscillator) InputPorts() []graph.Port  { return ports(cvPort("pitch_mod")) }
func (o *Oscillator) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (o *Oscillator) Reset()                    { o.phase = 0 }

func (o *Oscillator) Clone() graph.Node {
	return &Oscillator{paramSet: o.paramSet.clone(), phase: o.phase}
}

func (o *Oscillator) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	freq := o.val(oscParamFreq)
	wave := int(o.val(oscParamWaveform))
	amp := o.val(oscParamAmplitude)
	out := audioCVOut[0]

	var pitchMod []float32
	if len(audioCVIn) > 0 {
		pitchMod = audioCVIn[0]
	}

	frames := len(out) / 2
	for i := 0; i < frames; i++ {
		f := freq
		if i < len(pitchMod) {
			f *= math.Pow(2, float64(pitchMod[i]))
		}
		var s float64
		switch wave {
		case 1: // saw
			s = 2*(o.phase/twoPi) - 1
		case 2: // square
			if o.phase < math.Pi {
				s = 1
			} else {
				s = -1
			}
		case 3: // triangle
			s = 2*math.Abs(2*(o.phase/twoPi)-1) - 1
		default: // sine
			s = math.Sin(o.phase)
		}
		v := float32(s * amp)
		out[2*i] = v
		out[2*i+1] = v

		o.phase += twoPi * f / sampleRate
		for o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
}

// Wavetable plays back a single-cycle waveform table with linear
// interpolation, loaded via SetTable — grounded on the phase-accumulator and
// interpolation approach of a wavetable synthesis engine in the example
// corpus.
type Wavetable struct {
	paramSet
	table []float64
	phase float64
}

func NewWavetable() *Wavetable {
	sine := make([]float64, 128)
	for i := range sine {
		sine[i] = math.Sin(twoPi * float64(i) / float64(len(sine)))
	}
	return &Wavetable{
		paramSet: newParamSet([]graph.Parameter{
			{ID: oscParamFreq, Name: "frequency", Min: 0.01, Max: 20000, Default: 440, Unit: "hz"},
			{ID: oscParamAmplitude, Name: "amplitude", Min: 0, Max: 1, Default: 0.8, Unit: ""},
		}),
		table: sine,
	}
}

// SetTable installs a new single-cycle waveform, resetting phase.
func (w *Wavetable) SetTable(samples []float64) {
	cp := make([]float64, len(samples))
	copy(cp, samples)
	w.table = cp
	w.phase = 0
}

func (w *Wavetable) TypeTag() string           { return TagWavetable }
func (w *Wavetable) InputPorts() []graph.Port  { return ports(cvPort("pitch_mod")) }
func (w *Wavetable) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (w *Wavetable) Reset()                    { w.phase = 0 }

func (w *Wavetable) Clone() graph.Node {
	cp := make([]float64, len(w.table))
	copy(cp, w.table)
	return &Wavetable{paramSet: w.paramSet.clone(), table: cp, phase: w.phase}
}

func (w *Wavetable) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	if len(w.table) == 0 {
		return
	}
	freq := w.val(oscParamFreq)
	amp := w.val(oscParamAmplitude)
	out := audioCVOut[0]
	tableLen := float64(len(w.table))

	var pitchMod []float32
	if len(audioCVIn) > 0 {
		pitchMod = audioCVIn[0]
	}

	frames := len(out) / 2
	for i := 0; i < frames; i++ {
		f := freq
		if i < len(pitchMod) {
			f *= math.Pow(2, float64(pitchMod[i]))
		}
		idx := math.Floor(w.phase)
		frac := w.phase - idx
		i0 := int(idx) % len(w.table)
		i1 := (i0 + 1) % len(w.table)
		s := w.table[i0]*(1-frac) + w.table[i1]*frac

		v := float32(s * amp)
		out[2*i] = v
		out[2*i+1] = v

		w.phase += f * tableLen / sampleRate
		for w.phase >= tableLen {
			w.phase -= tableLen
		}
	}
}

// Noise emits white noise scaled by an amplitude parameter. The generator
// is a simple xorshift so output is deterministic given a seed; Clone copies
// the current state, so a clone continues the same sequence as its source.
type Noise struct {
	paramSet
	state uint32
}

func NewNoise() *Noise {
	return &Noise{
		paramSet: newParamSet([]graph.Parameter{
			{ID: 0, Name: "amplitude", Min: 0, Max: 1, Default: 0.5, Unit: ""},
		}),
		state: 0x9e3779b9,
	}
}

func (n *Noise) TypeTag() string           { return TagNoise }
func (n *Noise) InputPorts() []graph.Port  { return nil }
func (n *Noise) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (n *Noise) Reset()                    { n.state = 0x9e3779b9 }
func (n *Noise) Clone() graph.Node         { return &Noise{paramSet: n.paramSet.clone(), state: n.state} }

func (n *Noise) next() float32 {
	n.state ^= n.state << 13
	n.state ^= n.state >> 17
	n.state ^= n.state << 5
	return float32(n.state)/float32(math.MaxUint32)*2 - 1
}

func (n *Noise) Process(_, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	amp := n.val(0)
	out := audioCVOut[0]
	for i := 0; i < len(out); i += 2 {
		l := n.next() * float32(amp)
		r := n.next() * float32(amp)
		out[i] = l
		out[i+1] = r
	}
}

// Constant emits a fixed CV value every block — used to feed static pitch,
// gate, or modulation-depth inputs.
type Constant struct {
	paramSet
}

func NewConstant() *Constant {
	return &Constant{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "value", Min: -10, Max: 10, Default: 0, Unit: ""},
	})}
}

func (c *Constant) TypeTag() string           { return TagConstant }
func (c *Constant) InputPorts() []graph.Port  { return nil }
func (c *Constant) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (c *Constant) Reset()                    {}
func (c *Constant) Clone() graph.Node         { return &Constant{paramSet: c.paramSet.clone()} }

func (c *Constant) Process(_, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	v := float32(c.val(0))
	out := audioCVOut[0]
	for i := range out {
		out[i] = v
	}
}

// LFO is a low-frequency CV generator: sine, saw, square, or triangle,
// selected identically to Oscillator but output on a CV port and with a
// musically useful rate range.
type LFO struct {
	paramSet
	phase float64
}

func NewLFO() *LFO {
	return &LFO{paramSet: newParamSet([]graph.Parameter{
		{ID: oscParamFreq, Name: "rate", Min: 0.001, Max: 50, Default: 2, Unit: "hz"},
		{ID: oscParamWaveform, Name: "waveform", Min: 0, Max: 3, Default: 0, Unit: ""},
		{ID: oscParamAmplitude, Name: "depth", Min: 0, Max: 1, Default: 1, Unit: ""},
	})}
}

func (l *LFO) TypeTag() string           { return TagLFO }
func (l *LFO) InputPorts() []graph.Port  { return nil }
func (l *LFO) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (l *LFO) Reset()                    { l.phase = 0 }
func (l *LFO) Clone() graph.Node         { return &LFO{paramSet: l.paramSet.clone(), phase: l.phase} }

func (l *LFO) Process(_, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	rate := l.val(oscParamFreq)
	wave := int(l.val(oscParamWaveform))
	depth := l.val(oscParamAmplitude)
	out := audioCVOut[0]

	for i := range out {
		var s float64
		switch wave {
		case 1:
			s = 2*(l.phase/twoPi) - 1
		case 2:
			if l.phase < math.Pi {
				s = 1
			} else {
				s = -1
			}
		case 3:
			s = 2*math.Abs(2*(l.phase/twoPi)-1) - 1
		default:
			s = math.Sin(l.phase)
		}
		out[i] = float32(s * depth)

		l.phase += twoPi * rate / sampleRate
		for l.phase >= twoPi {
			l.phase -= twoPi
		}
	}
}

// SampleAndHold latches its input CV whenever the trigger CV input crosses
// above 0.5 from below.
type SampleAndHold struct {
	held     float64
	prevTrig float64
}

func NewSampleAndHold() *SampleAndHold { return &SampleAndHold{} }

func (s *SampleAndHold) TypeTag() string { return TagSampleAndHold }
func (s *SampleAndHold) InputPorts() []graph.Port {
	return ports(cvPort("in"), cvPort("trigger"))
}
func (s *SampleAndHold) OutputPorts() []graph.Port        { return ports(cvPort("out")) }
func (s *SampleAndHold) Parameters() []graph.Parameter    { return nil }
func (s *SampleAndHold) GetParameter(int) (float64, bool) { return 0, false }
func (s *SampleAndHold) SetParameter(int, float64) bool   { return false }
func (s *SampleAndHold) Reset()                           { s.held, s.prevTrig = 0, 0 }
func (s *SampleAndHold) Clone() graph.Node {
	return &SampleAndHold{held: s.held, prevTrig: s.prevTrig}
}

func (s *SampleAndHold) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	in := audioCVIn[0]
	trig := audioCVIn[1]
	out := audioCVOut[0]
	for i := range out {
		var t float64
		if i < len(trig) {
			t = float64(trig[i])
		}
		if t >= 0.5 && s.prevTrig < 0.5 {
			if i < len(in) {
				s.held = float64(in[i])
			}
		}
		s.prevTrig = t
		out[i] = float32(s.held)
	}
}

// SlewLimiter caps the rate of change of its input CV to at most
// rise/fall units per second, smoothing stepped control signals.
type SlewLimiter struct {
	paramSet
	state float64
}

func NewSlewLimiter() *SlewLimiter {
	return &SlewLimiter{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "rise_per_sec", Min: 0.001, Max: 1000, Default: 10, Unit: ""},
		{ID: 1, Name: "fall_per_sec", Min: 0.001, Max: 1000, Default: 10, Unit: ""},
	})}
}

func (s *SlewLimiter) TypeTag() string           { return TagSlewLimiter }
func (s *SlewLimiter) InputPorts() []graph.Port  { return ports(cvPort("in")) }
func (s *SlewLimiter) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (s *SlewLimiter) Reset()                    { s.state = 0 }
func (s *SlewLimiter) Clone() graph.Node {
	return &SlewLimiter{paramSet: s.paramSet.clone(), state: s.state}
}

func (s *SlewLimiter) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	rise := s.val(0) / sampleRate
	fall := s.val(1) / sampleRate
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i := range out {
		var target float64
		if i < len(in) {
			target = float64(in[i])
		}
		delta := target - s.state
		if delta > rise {
			delta = rise
		} else if delta < -fall {
			delta = -fall
		}
		s.state += delta
		out[i] = float32(s.state)
	}
}
