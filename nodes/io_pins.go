package nodes

import "github.com/beamforge/beam/graph"

// MidiToCV converts MIDI note on/off/aftertouch messages on its input port
// into four continuously-held CV streams: pitch (1V/oct-style, in octaves
// above middle C), gate, velocity, and aftertouch.
type MidiToCV struct {
	pitch, gate, velocity, aftertouch float64
}

func NewMidiToCV() *MidiToCV { return &MidiToCV{} }

func (m *MidiToCV) TypeTag() string          { return TagMidiToCV }
func (m *MidiToCV) InputPorts() []graph.Port { return ports(midiPort("midi_in")) }
func (m *MidiToCV) OutputPorts() []graph.Port {
	return ports(cvPort("pitch"), cvPort("gate"), cvPort("velocity"), cvPort("aftertouch"))
}
func (m *MidiToCV) Parameters() []graph.Parameter    { return nil }
func (m *MidiToCV) GetParameter(int) (float64, bool) { return 0, false }
func (m *MidiToCV) SetParameter(int, float64) bool   { return false }
func (m *MidiToCV) Reset() {
	m.pitch, m.gate, m.velocity, m.aftertouch = 0, 0, 0, 0
}
func (m *MidiToCV) Clone() graph.Node { cp := *m; return &cp }

func (m *MidiToCV) Process(_, audioCVOut [][]float32, midiIn, _ [][]graph.MidiEvent, _ float64) {
	for _, e := range midiIn[0] {
		status := e.Status & 0xF0
		switch status {
		case 0x90: // note on
			if e.Data2 == 0 {
				m.gate = 0
				continue
			}
			m.pitch = float64(int(e.Data1)-60) / 12.0
			m.gate = 1
			m.velocity = float64(e.Data2) / 127.0
		case 0x80: // note off
			m.gate = 0
		case 0xA0: // polyphonic aftertouch
			m.aftertouch = float64(e.Data2) / 127.0
		case 0xD0: // channel aftertouch
			m.aftertouch = float64(e.Data1) / 127.0
		}
	}

	for i := range audioCVOut[0] {
		audioCVOut[0][i] = float32(m.pitch)
	}
	for i := range audioCVOut[1] {
		audioCVOut[1][i] = float32(m.gate)
	}
	for i := range audioCVOut[2] {
		audioCVOut[2][i] = float32(m.velocity)
	}
	for i := range audioCVOut[3] {
		audioCVOut[3][i] = float32(m.aftertouch)
	}
}

// CVToAudio reinterprets a CV stream as an audio signal, duplicating it to
// both stereo channels. Existing as a distinct node type (rather than
// allowing CV ports to connect directly to audio inputs) keeps the graph's
// port type-checking strict.
type CVToAudio struct{}

func NewCVToAudio() *CVToAudio { return &CVToAudio{} }

func (c *CVToAudio) TypeTag() string                  { return TagCVToAudio }
func (c *CVToAudio) InputPorts() []graph.Port         { return ports(cvPort("in")) }
func (c *CVToAudio) OutputPorts() []graph.Port        { return ports(audioPort("out")) }
func (c *CVToAudio) Parameters() []graph.Parameter    { return nil }
func (c *CVToAudio) GetParameter(int) (float64, bool) { return 0, false }
func (c *CVToAudio) SetParameter(int, float64) bool   { return false }
func (c *CVToAudio) Reset()                           {}
func (c *CVToAudio) Clone() graph.Node                { return &CVToAudio{} }

func (c *CVToAudio) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var v float32
		if i < len(in) {
			v = in[i]
		}
		out[2*i] = v
		out[2*i+1] = v
	}
}

// Quantizer snaps an incoming 1V/oct-style pitch CV to the nearest step of
// a fixed scale (chromatic by default; scale_mask selects which of the 12
// semitones within an octave are allowed, as bit flags).
type Quantizer struct {
	paramSet
}

func NewQuantizer() *Quantizer {
	return &Quantizer{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "scale_mask", Min: 1, Max: 4095, Default: 4095, Unit: ""},
	})}
}

func (q *Quantizer) TypeTag() string           { return TagQuantizer }
func (q *Quantizer) InputPorts() []graph.Port  { return ports(cvPort("in")) }
func (q *Quantizer) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (q *Quantizer) Reset()                    {}
func (q *Quantizer) Clone() graph.Node         { return &Quantizer{paramSet: q.paramSet.clone()} }

func (q *Quantizer) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	mask := uint16(q.val(0))
	in := audioCVIn[0]
	out := audioCVOut[0]
	for i := range out {
		var v float32
		if i < len(in) {
			v = in[i]
		}
		out[i] = quantizeToMask(v, mask)
	}
}

func quantizeToMask(octaves float32, mask uint16) float32 {
	semis := octaves * 12
	rounded := int(semis + 0.5)
	if float32(rounded) > semis {
		rounded--
		if float32(rounded+1) <= semis+0.5 {
			rounded++
		}
	}
	octave := rounded / 12
	step := rounded % 12
	if step < 0 {
		step += 12
		octave--
	}
	if mask&(1<<uint(step)) == 0 {
		// walk outward to the nearest allowed step within the octave
		for d := 1; d <= 6; d++ {
			if mask&(1<<uint((step+d)%12)) != 0 {
				step = (step + d) % 12
				break
			}
			if mask&(1<<uint((step-d+12)%12)) != 0 {
				step = (step - d + 12) % 12
				break
			}
		}
	}
	return float32(octave) + float32(step)/12.0
}

// AutomationInput exposes a parameter-automation curve (a caller-supplied
// piecewise-linear breakpoint list keyed by playhead seconds) as a CV
// output, sampled by the current playhead position set via SetPlayhead.
type AutomationInput struct {
	points   []automationPoint
	playhead float64
}

type automationPoint struct {
	TimeSeconds float64
	Value       float64
}

func NewAutomationInput() *AutomationInput { return &AutomationInput{} }

// SetCurve replaces the breakpoint list. Points need not be pre-sorted;
// SetCurve sorts them by time.
func (a *AutomationInput) SetCurve(points []automationPoint) {
	cp := make([]automationPoint, len(points))
	copy(cp, points)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j-1].TimeSeconds > cp[j].TimeSeconds; j-- {
			cp[j-1], cp[j] = cp[j], cp[j-1]
		}
	}
	a.points = cp
}

func (a *AutomationInput) TypeTag() string                  { return TagAutomationInput }
func (a *AutomationInput) InputPorts() []graph.Port         { return nil }
func (a *AutomationInput) OutputPorts() []graph.Port        { return ports(cvPort("out")) }
func (a *AutomationInput) Parameters() []graph.Parameter    { return nil }
func (a *AutomationInput) GetParameter(int) (float64, bool) { return 0, false }
func (a *AutomationInput) SetParameter(int, float64) bool   { return false }
func (a *AutomationInput) Reset()                           { a.playhead = 0 }

func (a *AutomationInput) Clone() graph.Node {
	cp := make([]automationPoint, len(a.points))
	copy(cp, a.points)
	return &AutomationInput{points: cp, playhead: a.playhead}
}

func (a *AutomationInput) Process(_, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	v := float32(a.sample(a.playhead))
	out := audioCVOut[0]
	for i := range out {
		out[i] = v
	}
}

func (a *AutomationInput) sample(t float64) float64 {
	if len(a.points) == 0 {
		return 0
	}
	if t <= a.points[0].TimeSeconds {
		return a.points[0].Value
	}
	last := len(a.points) - 1
	if t >= a.points[last].TimeSeconds {
		return a.points[last].Value
	}
	for i := 0; i < last; i++ {
		p0, p1 := a.points[i], a.points[i+1]
		if t >= p0.TimeSeconds && t <= p1.TimeSeconds {
			span := p1.TimeSeconds - p0.TimeSeconds
			if span <= 0 {
				return p1.Value
			}
			frac := (t - p0.TimeSeconds) / span
			return p0.Value + (p1.Value-p0.Value)*frac
		}
	}
	return a.points[last].Value
}

// SetPlayhead implements graph.PlayheadAware.
func (a *AutomationInput) SetPlayhead(seconds float64) { a.playhead = seconds }

// AudioInput is an external-audio injection pin: Inject stages interleaved
// PCM before AudioGraph.Process runs, and the node's own Process call copies
// the staged frame into its output buffer.
type AudioInput struct {
	frame []float32
}

func NewAudioInput() *AudioInput { return &AudioInput{} }

// Inject stages one block's worth of interleaved stereo samples to be
// exposed as this node's output for the next Process call.
func (a *AudioInput) Inject(interleaved []float32) {
	if cap(a.frame) < len(interleaved) {
		a.frame = make([]float32, len(interleaved))
	}
	a.frame = a.frame[:len(interleaved)]
	copy(a.frame, interleaved)
}

func (a *AudioInput) TypeTag() string                  { return TagAudioInput }
func (a *AudioInput) InputPorts() []graph.Port         { return nil }
func (a *AudioInput) OutputPorts() []graph.Port        { return ports(audioPort("out")) }
func (a *AudioInput) Parameters() []graph.Parameter    { return nil }
func (a *AudioInput) GetParameter(int) (float64, bool) { return 0, false }
func (a *AudioInput) SetParameter(int, float64) bool   { return false }
func (a *AudioInput) Reset()                           { a.frame = a.frame[:0] }
func (a *AudioInput) Clone() graph.Node                { return &AudioInput{} }

func (a *AudioInput) Process(_, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	out := audioCVOut[0]
	n := len(out)
	if n > len(a.frame) {
		n = len(a.frame)
	}
	copy(out[:n], a.frame[:n])
}

// AudioOutput is a plain passthrough pin used to designate a stable tap
// point for a graph's final mix, independent of which node happens to sit
// last in topological order.
type AudioOutput struct{}

func NewAudioOutput() *AudioOutput { return &AudioOutput{} }

func (a *AudioOutput) TypeTag() string                  { return TagAudioOutput }
func (a *AudioOutput) InputPorts() []graph.Port         { return ports(audioPort("in")) }
func (a *AudioOutput) OutputPorts() []graph.Port        { return ports(audioPort("out")) }
func (a *AudioOutput) Parameters() []graph.Parameter    { return nil }
func (a *AudioOutput) GetParameter(int) (float64, bool) { return 0, false }
func (a *AudioOutput) SetParameter(int, float64) bool   { return false }
func (a *AudioOutput) Reset()                           {}
func (a *AudioOutput) Clone() graph.Node                { return &AudioOutput{} }

func (a *AudioOutput) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	copy(audioCVOut[0], audioCVIn[0])
}

// MidiInput is the MIDI analogue of AudioInput: marked as a graph MIDI
// target via AudioGraph.SetMidiTarget, it leaves its own first MIDI output
// untouched so injected live events pass through.
type MidiInput struct{}

func NewMidiInput() *MidiInput { return &MidiInput{} }

func (m *MidiInput) TypeTag() string                                               { return TagMidiInput }
func (m *MidiInput) InputPorts() []graph.Port                                      { return nil }
func (m *MidiInput) OutputPorts() []graph.Port                                     { return ports(midiPort("out")) }
func (m *MidiInput) Parameters() []graph.Parameter                                 { return nil }
func (m *MidiInput) GetParameter(int) (float64, bool)                              { return 0, false }
func (m *MidiInput) SetParameter(int, float64) bool                                { return false }
func (m *MidiInput) Reset()                                                        {}
func (m *MidiInput) Clone() graph.Node                                             { return &MidiInput{} }
func (m *MidiInput) Process(_, _ [][]float32, _, _ [][]graph.MidiEvent, _ float64) {}

// MidiOutput taps MIDI out of the graph for recording/monitoring.
type MidiOutput struct{}

func NewMidiOutput() *MidiOutput { return &MidiOutput{} }

func (m *MidiOutput) TypeTag() string                  { return TagMidiOutput }
func (m *MidiOutput) InputPorts() []graph.Port         { return ports(midiPort("in")) }
func (m *MidiOutput) OutputPorts() []graph.Port        { return ports(midiPort("out")) }
func (m *MidiOutput) Parameters() []graph.Parameter    { return nil }
func (m *MidiOutput) GetParameter(int) (float64, bool) { return 0, false }
func (m *MidiOutput) SetParameter(int, float64) bool   { return false }
func (m *MidiOutput) Reset()                           {}
func (m *MidiOutput) Clone() graph.Node                { return &MidiOutput{} }

func (m *MidiOutput) Process(_, _ [][]float32, midiIn, midiOut [][]graph.MidiEvent, _ float64) {
	midiOut[0] = append(midiOut[0][:0], midiIn[0]...)
}

// TemplateInputPin is the voice allocator's injection point into a template
// graph: before each block, the allocator calls SetPitch/SetGate/
// SetVelocity/SetMidi with the voice's routed values.
type TemplateInputPin struct {
	pitch, gate, velocity float64
	midi                  []graph.MidiEvent
}

func NewTemplateInputPin() *TemplateInputPin { return &TemplateInputPin{} }

func (t *TemplateInputPin) SetPitch(octaves float64) { t.pitch = octaves }
func (t *TemplateInputPin) SetGate(on bool) {
	if on {
		t.gate = 1
	} else {
		t.gate = 0
	}
}
func (t *TemplateInputPin) SetVelocity(v float64)            { t.velocity = v }
func (t *TemplateInputPin) SetMidi(events []graph.MidiEvent) { t.midi = events }

func (t *TemplateInputPin) TypeTag() string          { return TagTemplateInputPin }
func (t *TemplateInputPin) InputPorts() []graph.Port { return nil }
func (t *TemplateInputPin) OutputPorts() []graph.Port {
	return ports(cvPort("pitch"), cvPort("gate"), cvPort("velocity"), midiPort("midi"))
}
func (t *TemplateInputPin) Parameters() []graph.Parameter    { return nil }
func (t *TemplateInputPin) GetParameter(int) (float64, bool) { return 0, false }
func (t *TemplateInputPin) SetParameter(int, float64) bool   { return false }
func (t *TemplateInputPin) Reset()                           { *t = TemplateInputPin{} }
func (t *TemplateInputPin) Clone() graph.Node                { return &TemplateInputPin{} }

func (t *TemplateInputPin) Process(_, audioCVOut [][]float32, _, midiOut [][]graph.MidiEvent, _ float64) {
	for i := range audioCVOut[0] {
		audioCVOut[0][i] = float32(t.pitch)
	}
	for i := range audioCVOut[1] {
		audioCVOut[1][i] = float32(t.gate)
	}
	for i := range audioCVOut[2] {
		audioCVOut[2][i] = float32(t.velocity)
	}
	midiOut[0] = append(midiOut[0][:0], t.midi...)
}

// TemplateOutputPin marks where a voice's rendered audio is read back by
// the allocator; it is a plain passthrough so it can also serve as the
// template graph's designated output node.
type TemplateOutputPin struct{}

func NewTemplateOutputPin() *TemplateOutputPin { return &TemplateOutputPin{} }

func (t *TemplateOutputPin) TypeTag() string                  { return TagTemplateOutputPin }
func (t *TemplateOutputPin) InputPorts() []graph.Port         { return ports(audioPort("in")) }
func (t *TemplateOutputPin) OutputPorts() []graph.Port        { return ports(audioPort("out")) }
func (t *TemplateOutputPin) Parameters() []graph.Parameter    { return nil }
func (t *TemplateOutputPin) GetParameter(int) (float64, bool) { return 0, false }
func (t *TemplateOutputPin) SetParameter(int, float64) bool   { return false }
func (t *TemplateOutputPin) Reset()                           {}
func (t *TemplateOutputPin) Clone() graph.Node                { return &TemplateOutputPin{} }

func (t *TemplateOutputPin) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	copy(audioCVOut[0], audioCVIn[0])
}
