// Package arranger implements the track/clip timeline: Project renders a
// tree of AudioTrack/MidiTrack/Group nodes into a block, honoring
// solo/mute propagation, pooled clip playback, and live MIDI injection.
package arranger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/beamforge/beam/graph"
)

// Track is the common interface every timeline node implements, whether it
// produces audio directly (AudioTrack), via an instrument graph (MidiTrack),
// or by summing children (Group).
type Track interface {
	ID() string
	Name() string
	Volume() float32
	SetVolume(float32)
	Pan() float32
	SetPan(float32)
	Muted() bool
	SetMuted(bool)
	Soloed() bool
	SetSoloed(bool)
}

// BaseTrack provides the common volume/pan/mute/solo state every track
// variant shares, with a mutex-guarded field set generalized from
// "channel bound to a mixer node" to "track mixing into a render block".
type BaseTrack struct {
	mu     sync.RWMutex
	id     string
	name   string
	volume float32
	pan    float32
	muted  bool
	soloed bool
}

// NewBaseTrack creates a track with default volume 1, centered pan.
func NewBaseTrack(name string) BaseTrack {
	return BaseTrack{id: uuid.New().String(), name: name, volume: 1, pan: 0}
}

func (b *BaseTrack) ID() string   { return b.id }
func (b *BaseTrack) Name() string { return b.name }

func (b *BaseTrack) Volume() float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.volume
}

func (b *BaseTrack) SetVolume(v float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
}

func (b *BaseTrack) Pan() float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pan
}

func (b *BaseTrack) SetPan(p float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pan = p
}

func (b *BaseTrack) Muted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.muted
}

func (b *BaseTrack) SetMuted(m bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = m
}

func (b *BaseTrack) Soloed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.soloed
}

func (b *BaseTrack) SetSoloed(s bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.soloed = s
}

// ClipInstance places one clip's content at a point on the track timeline.
type ClipInstance struct {
	PoolIndex       int     // index into the owning track's clip pool
	StartSeconds    float64 // timeline position the clip begins at
	SourceOffset    float64 // seconds into the source content to start reading from
	DurationSeconds float64
	Gain            float32
}

// AudioTrack plays AudioClipPool content directly into the mix.
type AudioTrack struct {
	BaseTrack
	Pool      *AudioClipPool
	Instances []ClipInstance
}

func NewAudioTrack(name string, pool *AudioClipPool) *AudioTrack {
	return &AudioTrack{BaseTrack: NewBaseTrack(name), Pool: pool}
}

// MidiTrack gathers MIDI from clip instances plus a live queue and drives
// an instrument AudioGraph.
type MidiTrack struct {
	BaseTrack
	Pool       *MidiClipPool
	Instances  []ClipInstance
	Instrument *graph.AudioGraph
	live       *liveMidiQueue
}

func NewMidiTrack(name string, pool *MidiClipPool, instrument *graph.AudioGraph) *MidiTrack {
	return &MidiTrack{BaseTrack: NewBaseTrack(name), Pool: pool, Instrument: instrument, live: newLiveMidiQueue()}
}

// SendNoteOn enqueues a live "virtual piano" note-on.
func (t *MidiTrack) SendNoteOn(note, velocity uint8) {
	t.live.push(graph.MidiEvent{Status: 0x90, Data1: note, Data2: velocity})
}

// SendNoteOff enqueues a live note-off.
func (t *MidiTrack) SendNoteOff(note uint8) {
	t.live.push(graph.MidiEvent{Status: 0x80, Data1: note, Data2: 0})
}

// Group sums its children's render output, scaled by its own volume.
type Group struct {
	BaseTrack
	Children []Track
}

func NewGroup(name string, children ...Track) *Group {
	return &Group{BaseTrack: NewBaseTrack(name), Children: children}
}

// liveMidiQueue is a small mutex-guarded FIFO for the control-thread
// "virtual piano" path; it is drained once per render call. Unlike the
// engine-level command/event queues (engineio, lock-free ring
// buffers on the audio callback's hot path) this one is test/TUI-facing
// and a plain mutex is an acceptable, simpler fit.
type liveMidiQueue struct {
	mu     sync.Mutex
	events []graph.MidiEvent
}

func newLiveMidiQueue() *liveMidiQueue { return &liveMidiQueue{} }

func (q *liveMidiQueue) push(e graph.MidiEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

func (q *liveMidiQueue) drain() []graph.MidiEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
