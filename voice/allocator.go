// Package voice implements the polyphonic voice allocator: a graph.Node
// that clones a template AudioGraph once per voice, routes incoming MIDI
// notes to voices by an idle-first, then steal-oldest-releasing, then
// steal-oldest-sustaining policy, and mixes every voice's rendered block
// into its own output.
package voice

import (
	"github.com/beamforge/beam/graph"
	"github.com/beamforge/beam/nodes"
)

const paramMaxVoices = 0

const defaultMaxVoices = 8

type voiceState int

const (
	stateIdle voiceState = iota
	stateSustaining
	stateReleasing
)

// endOfTailer is implemented by envelope-style nodes (nodes.ADSR) that can
// report their own decay-to-silence, used as the idle-transition watchdog.
// A template with no such node falls back to a fixed tail-time watchdog.
type endOfTailer interface {
	EndOfTail() bool
}

type voiceSlot struct {
	g          *graph.AudioGraph
	inputPin   *nodes.TemplateInputPin
	state      voiceState
	note       uint8
	velocity   uint8
	triggerSeq uint64
	releaseSeq uint64
	tailTimer  float64 // seconds since release, used when no endOfTailer is found
	hasTail    bool    // whether any node in g implements endOfTailer
	out        []float32
}

// Allocator is the VoiceAllocator node.
type Allocator struct {
	template    *graph.AudioGraph
	blockSize   int
	maxVoices   int
	voices      []*voiceSlot
	noteToVoice map[uint8]int
	seq         uint64
	releaseSeq  uint64
	playhead    float64

	params []graph.Parameter
}

// NewAllocator creates an allocator around an empty template graph the
// caller builds with AddNode/Connect before the first RebuildVoices call.
func NewAllocator(blockSize int) *Allocator {
	a := &Allocator{
		template:    graph.New(blockSize),
		blockSize:   blockSize,
		maxVoices:   defaultMaxVoices,
		noteToVoice: make(map[uint8]int),
		params: []graph.Parameter{
			{ID: paramMaxVoices, Name: "max_voices", Min: 1, Max: 64, Default: float64(defaultMaxVoices), Unit: ""},
		},
	}
	return a
}

func (a *Allocator) TypeTag() string { return "voice_allocator" }
func (a *Allocator) InputPorts() []graph.Port {
	return []graph.Port{{Name: "midi_in", Type: graph.Midi, Index: 0}}
}
func (a *Allocator) OutputPorts() []graph.Port {
	return []graph.Port{{Name: "out", Type: graph.Audio, Index: 0}}
}

func (a *Allocator) Parameters() []graph.Parameter { return a.params }

func (a *Allocator) GetParameter(id int) (float64, bool) {
	if id == paramMaxVoices {
		return float64(a.maxVoices), true
	}
	return 0, false
}

func (a *Allocator) SetParameter(id int, value float64) bool {
	if id != paramMaxVoices {
		return false
	}
	a.SetMaxVoices(int(value))
	return true
}

func (a *Allocator) Reset() {
	for _, v := range a.voices {
		v.g.Reset()
		v.state = stateIdle
		v.tailTimer = 0
	}
	a.noteToVoice = make(map[uint8]int)
}

// Clone deep-copies the allocator: a fresh template clone and a fresh set
// of voice clones, with no notes in flight.
func (a *Allocator) Clone() graph.Node {
	cp := &Allocator{
		template:    a.template.CloneGraph(),
		blockSize:   a.blockSize,
		maxVoices:   a.maxVoices,
		noteToVoice: make(map[uint8]int),
		params:      append([]graph.Parameter(nil), a.params...),
	}
	cp.RebuildVoices()
	return cp
}

// MaxVoices implements graph.VoiceAllocatorNode.
func (a *Allocator) MaxVoices() int { return a.maxVoices }

// SetMaxVoices implements graph.VoiceAllocatorNode; changing the voice
// count rebuilds the voice pool from the current template.
func (a *Allocator) SetMaxVoices(n int) {
	if n < 1 {
		n = 1
	}
	a.maxVoices = n
	a.RebuildVoices()
}

// ActiveVoiceCount implements graph.VoiceAllocatorNode.
func (a *Allocator) ActiveVoiceCount() int {
	n := 0
	for _, v := range a.voices {
		if v.state != stateIdle {
			n++
		}
	}
	return n
}

// TemplateGraph implements graph.VoiceAllocatorNode: returns the mutable
// template subgraph the caller edits before calling RebuildVoices.
func (a *Allocator) TemplateGraph() *graph.AudioGraph { return a.template }

// RebuildVoices implements graph.VoiceAllocatorNode: clones the template
// max_voices times, preserving its current parameter values, and discards
// the previous voice pool. Any notes in flight are silenced.
func (a *Allocator) RebuildVoices() {
	voices := make([]*voiceSlot, a.maxVoices)
	for i := range voices {
		vg := a.template.CloneGraph()
		pin, hasTail := findTemplateInputPin(vg), findEndOfTailer(vg)
		voices[i] = &voiceSlot{
			g:        vg,
			inputPin: pin,
			out:      make([]float32, a.blockSize*2),
			hasTail:  hasTail,
		}
	}
	a.voices = voices
	a.noteToVoice = make(map[uint8]int)
}

func findTemplateInputPin(g *graph.AudioGraph) *nodes.TemplateInputPin {
	for _, pair := range g.Nodes() {
		if pin, ok := pair.Node.(*nodes.TemplateInputPin); ok {
			return pin
		}
	}
	return nil
}

func findEndOfTailer(g *graph.AudioGraph) bool {
	for _, pair := range g.Nodes() {
		if _, ok := pair.Node.(endOfTailer); ok {
			return true
		}
	}
	return false
}

func tailReports(g *graph.AudioGraph) bool {
	for _, pair := range g.Nodes() {
		if e, ok := pair.Node.(endOfTailer); ok && !e.EndOfTail() {
			return false
		}
	}
	return true
}

// fixedTailSeconds is the fallback release watchdog duration used when a
// template has no node reporting end-of-tail.
const fixedTailSeconds = 2.0

func (a *Allocator) noteOn(note, velocity uint8) {
	if len(a.voices) == 0 {
		return
	}
	if idx, ok := a.noteToVoice[note]; ok {
		a.trigger(a.voices[idx], note, velocity)
		return
	}

	// 1. any idle voice
	for i, v := range a.voices {
		if v.state == stateIdle {
			a.noteToVoice[note] = i
			a.trigger(v, note, velocity)
			return
		}
	}

	// 2. steal oldest releasing
	best := -1
	for i, v := range a.voices {
		if v.state != stateReleasing {
			continue
		}
		if best == -1 || v.releaseSeq < a.voices[best].releaseSeq {
			best = i
		}
	}
	if best == -1 {
		// 3. steal oldest sustaining
		for i, v := range a.voices {
			if v.state != stateSustaining {
				continue
			}
			if best == -1 || v.triggerSeq < a.voices[best].triggerSeq {
				best = i
			}
		}
	}
	if best == -1 {
		return
	}
	for n, idx := range a.noteToVoice {
		if idx == best {
			delete(a.noteToVoice, n)
		}
	}
	a.noteToVoice[note] = best
	a.trigger(a.voices[best], note, velocity)
}

func (a *Allocator) trigger(v *voiceSlot, note, velocity uint8) {
	a.seq++
	v.note = note
	v.velocity = velocity
	v.state = stateSustaining
	v.triggerSeq = a.seq
	v.tailTimer = 0
	if v.inputPin != nil {
		v.inputPin.SetPitch(float64(int(note)-60) / 12.0)
		v.inputPin.SetGate(true)
		v.inputPin.SetVelocity(float64(velocity) / 127.0)
	}
}

func (a *Allocator) noteOff(note uint8) {
	idx, ok := a.noteToVoice[note]
	if !ok {
		return
	}
	v := a.voices[idx]
	if v.note != note || v.state != stateSustaining {
		return
	}
	a.releaseSeq++
	v.state = stateReleasing
	v.releaseSeq = a.releaseSeq
	v.tailTimer = 0
	if v.inputPin != nil {
		v.inputPin.SetGate(false)
	}
}

// Process implements graph.Node: route MIDI, step every active voice, mix.
func (a *Allocator) Process(_, audioCVOut [][]float32, midiIn, _ [][]graph.MidiEvent, sampleRate float64) {
	var broadcast []graph.MidiEvent
	byNote := make(map[uint8][]graph.MidiEvent)

	for _, e := range midiIn[0] {
		status := e.Status & 0xF0
		switch status {
		case 0x90:
			if e.Data2 == 0 {
				a.noteOff(e.Data1)
			} else {
				a.noteOn(e.Data1, e.Data2)
			}
			byNote[e.Data1] = append(byNote[e.Data1], e)
		case 0x80:
			a.noteOff(e.Data1)
			byNote[e.Data1] = append(byNote[e.Data1], e)
		case 0xA0: // polyphonic aftertouch is note-addressed
			byNote[e.Data1] = append(byNote[e.Data1], e)
		default: // CC, pitch bend, channel aftertouch: heard by every voice
			broadcast = append(broadcast, e)
		}
	}

	out := audioCVOut[0]
	for i := range out {
		out[i] = 0
	}

	blockSeconds := float64(len(out)/2) / sampleRate

	for _, v := range a.voices {
		if v.state == stateIdle {
			continue
		}
		if v.inputPin != nil {
			routed := append(append([]graph.MidiEvent(nil), broadcast...), byNote[v.note]...)
			v.inputPin.SetMidi(routed)
		}
		v.g.Process(v.out, nil, a.playhead)

		n := len(out)
		if len(v.out) < n {
			n = len(v.out)
		}
		for i := 0; i < n; i++ {
			out[i] += v.out[i]
		}

		if v.state == stateReleasing {
			idle := false
			if v.hasTail {
				idle = tailReports(v.g)
			} else {
				v.tailTimer += blockSeconds
				idle = v.tailTimer >= fixedTailSeconds
			}
			if idle {
				v.state = stateIdle
				for n2, idx := range a.noteToVoice {
					if a.voices[idx] == v {
						delete(a.noteToVoice, n2)
					}
				}
			}
		}
	}
}

// SetPlayhead implements graph.PlayheadAware: propagated to every voice.
func (a *Allocator) SetPlayhead(seconds float64) { a.playhead = seconds }

var (
	_ graph.Node               = (*Allocator)(nil)
	_ graph.VoiceAllocatorNode = (*Allocator)(nil)
	_ graph.PlayheadAware      = (*Allocator)(nil)
)
