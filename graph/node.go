package graph

// Node is the capability set every processing node implements: a polymorphic
// record of behavior rather than a class hierarchy. Nodes with
// richer APIs (voice allocator, samplers, automation, oscilloscope) expose
// them through small capability interfaces reached by a checked type
// assertion (AsVoiceAllocator, AsSampleSettable, AsScope, PlayheadAware),
// not through raw-pointer casts.
type Node interface {
	// TypeTag is a stable identifier used by the preset registry (e.g.
	// "voice_allocator", "sampler").
	TypeTag() string

	// InputPorts and OutputPorts are immutable for the node's lifetime.
	InputPorts() []Port
	OutputPorts() []Port

	// Parameters returns the node's addressable parameter set in stable
	// id order.
	Parameters() []Parameter
	GetParameter(id int) (float64, bool)
	SetParameter(id int, value float64) bool

	// Process evaluates one block. audioCVIn/audioCVOut are indexed by
	// type-local position (see typeLocalIndex), sized blockSize*2 for
	// Audio ports and blockSize for CV ports. midiIn/midiOut are indexed
	// by type-local MIDI port position. Process must not allocate on a
	// well-behaved real-time node; the catalog in package nodes honors
	// this.
	Process(audioCVIn [][]float32, audioCVOut [][]float32, midiIn [][]MidiEvent, midiOut [][]MidiEvent, sampleRate float64)

	// Reset flushes transient state (delay lines, envelopes, LFO phase)
	// at the caller's discretion.
	Reset()

	// Clone returns an independent copy of the node with its parameter
	// values and any loaded content (tables, samples, curves), used by
	// clone_graph. Running state is carried over by some nodes (oscillator
	// phase, noise generator state) and starts fresh in others (filters,
	// delay-based effects, sampler playback).
	Clone() Node
}

// PlayheadAware is implemented by nodes that need the current render
// position (e.g. AutomationInput).
type PlayheadAware interface {
	SetPlayhead(seconds float64)
}

// VoiceAllocatorNode is the capability-set entry a VoiceAllocator node
// implements so the arranger / preset loader can reach its richer API
// without an open inheritance relationship. Checked with AsVoiceAllocator.
type VoiceAllocatorNode interface {
	Node
	MaxVoices() int
	SetMaxVoices(n int)
	ActiveVoiceCount() int
	RebuildVoices()
	TemplateGraph() *AudioGraph
}

// AsVoiceAllocator performs the checked downcast to the voice allocator's
// template-graph editing API.
func AsVoiceAllocator(n Node) (VoiceAllocatorNode, bool) {
	v, ok := n.(VoiceAllocatorNode)
	return v, ok
}

// SampleSettable is the capability-set entry samplers expose for loading
// PCM content without an exported concrete sampler type leaking into the
// graph package.
type SampleSettable interface {
	Node
	SetSample(channels int, sampleRate float64, pcm []float32) error
}

// AsSampleSettable performs the checked downcast for sampler-specific APIs.
func AsSampleSettable(n Node) (SampleSettable, bool) {
	s, ok := n.(SampleSettable)
	return s, ok
}

// Scope is the capability-set entry the Oscilloscope node exposes so a
// read-only control-thread viewer can pull recent samples without locking
// the audio thread.
type Scope interface {
	Node
	Snapshot() (audio []float32, cv []float32)
}

// AsScope performs the checked downcast for oscilloscope-specific APIs.
func AsScope(n Node) (Scope, bool) {
	s, ok := n.(Scope)
	return s, ok
}

// ErrorHandler receives faults that must not propagate out of the audio
// thread: node panics are isolated per block.
type ErrorHandler interface {
	HandleError(err error)
}

// Factory constructs a fresh node instance of a given type tag, used by the
// catalog registry and by preset reconstruction.
type Factory func() Node
