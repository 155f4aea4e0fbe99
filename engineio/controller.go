package engineio

import (
	"github.com/charmbracelet/log"

	"github.com/beamforge/beam/arranger"
	"github.com/beamforge/beam/audioio"
	"github.com/beamforge/beam/graph"
	"github.com/beamforge/beam/midiio"
)

// DeviceCallback is the shape a real audio backend invokes once per
// block: fill out with channels-interleaved float32 samples at
// sampleRate.
type DeviceCallback func(out []float32, sampleRate uint32, channels int)

// positionPublishInterval bounds how often a PlaybackPosition event is
// published, so a UI polling the event queue never sees more than ~33
// updates a second regardless of block size.
const positionPublishInterval = 0.03

// Controller is the block clock: it owns a Project and its pools, drains
// queued Commands once per block, advances the playhead, and renders a
// timeline of tracks into a caller-supplied buffer.
type Controller struct {
	proj      *arranger.Project
	audioPool *arranger.AudioClipPool
	midiPool  *arranger.MidiClipPool
	bufPool   *arranger.BufferPool
	cmds      *CommandQueue
	events    *EventQueue
	blockSize int
	maxVoices int

	playhead       float64
	playing        bool
	lastPosPublish float64

	logger *log.Logger
}

// NewController wires a Project and its clip pools to fresh command/event
// queues, ready to be driven by Callback or Run.
func NewController(proj *arranger.Project, audioPool *arranger.AudioClipPool, midiPool *arranger.MidiClipPool, blockSize, maxVoices int) *Controller {
	return &Controller{
		proj:      proj,
		audioPool: audioPool,
		midiPool:  midiPool,
		bufPool:   arranger.NewBufferPool(blockSize, proj.Channels),
		cmds:      NewCommandQueue(256),
		events:    NewEventQueue(256),
		blockSize: blockSize,
		maxVoices: maxVoices,
		logger:    log.Default().WithPrefix("engineio"),
	}
}

// Commands returns the queue a host transport pushes control messages
// into.
func (c *Controller) Commands() *CommandQueue { return c.cmds }

// Events returns the queue a host transport drains notifications from.
func (c *Controller) Events() *EventQueue { return c.events }

// Playhead reports the current transport position in seconds.
func (c *Controller) Playhead() float64 { return c.playhead }

// Playing reports whether the transport is advancing.
func (c *Controller) Playing() bool { return c.playing }

// Callback drains pending commands, renders one block into out, and
// advances the playhead — the function to hand a real device as its
// DeviceCallback, or to call directly in an offline render loop.
func (c *Controller) Callback(out []float32, sampleRate uint32, channels int) {
	c.drainCommands(float64(sampleRate))

	frameCount := len(out) / channels
	if c.playing {
		c.proj.Render(out, c.audioPool, c.midiPool, c.bufPool, c.playhead)
		c.playhead += float64(frameCount) / float64(sampleRate)
	} else {
		for i := range out {
			out[i] = 0
		}
	}

	if c.playhead-c.lastPosPublish >= positionPublishInterval {
		c.events.Push(NewPlaybackPositionEvent(c.playhead))
		c.lastPosPublish = c.playhead
	}
}

// Run drives Callback in a loop against cb, an offline or file-rendering
// DeviceCallback, until the caller-supplied done channel is closed. A Stop
// command halts the transport but does not end the loop. A live device
// instead calls Callback directly from its own audio thread.
func (c *Controller) Run(cb DeviceCallback, sampleRate uint32, channels, blockFrames int, done <-chan struct{}) {
	out := make([]float32, blockFrames*channels)
	for {
		select {
		case <-done:
			return
		default:
		}
		c.Callback(out, sampleRate, channels)
		cb(out, sampleRate, channels)
	}
}

func (c *Controller) drainCommands(sampleRate float64) {
	for _, cmd := range c.cmds.Drain() {
		switch cmd.Kind {
		case CmdPlay:
			c.playing = true
		case CmdPause:
			c.playing = false
		case CmdStop:
			c.playing = false
			c.playhead = 0
			c.events.Push(NewPlaybackStoppedEvent())
		case CmdSeek:
			c.playhead = cmd.Seconds
		case CmdCreateTrack:
			c.createTrack(cmd)
		case CmdAddClip:
			c.addClip(cmd)
		case CmdSendMidiOn:
			c.sendMidiOn(cmd)
		case CmdSendMidiOff:
			c.sendMidiOff(cmd)
		case CmdLoadMidiClip:
			c.loadMidiClip(cmd, sampleRate)
		case CmdAddAudioFile:
			c.addAudioFile(cmd)
		case CmdReset:
			c.reset()
		default:
			c.logger.Warn("unknown command kind", "kind", cmd.Kind)
		}
	}
}

func (c *Controller) createTrack(cmd Command) {
	var t arranger.Track
	switch cmd.TrackKind {
	case TrackAudio:
		t = arranger.NewAudioTrack(cmd.NameString(), c.audioPool)
	case TrackMidi:
		t = arranger.NewMidiTrack(cmd.NameString(), c.midiPool, graph.New(c.blockSize))
	default:
		return
	}
	c.proj.Roots = append(c.proj.Roots, t)
	c.events.Push(NewTrackCreatedEvent(t.ID()))
}

func (c *Controller) addClip(cmd Command) {
	t := findTrack(c.proj.Roots, cmd.TrackIDString())
	inst := arranger.ClipInstance{
		PoolIndex:       int(cmd.PoolIndex),
		StartSeconds:    cmd.StartSeconds,
		SourceOffset:    cmd.SourceOffset,
		DurationSeconds: cmd.DurationSeconds,
		Gain:            cmd.Gain,
	}
	switch tr := t.(type) {
	case *arranger.AudioTrack:
		tr.Instances = append(tr.Instances, inst)
	case *arranger.MidiTrack:
		tr.Instances = append(tr.Instances, inst)
	default:
		c.logger.Warn("add_clip: track not found", "track_id", cmd.TrackIDString())
	}
}

func (c *Controller) sendMidiOn(cmd Command) {
	if tr, ok := findTrack(c.proj.Roots, cmd.TrackIDString()).(*arranger.MidiTrack); ok {
		tr.SendNoteOn(cmd.Note, cmd.Velocity)
	}
}

func (c *Controller) sendMidiOff(cmd Command) {
	if tr, ok := findTrack(c.proj.Roots, cmd.TrackIDString()).(*arranger.MidiTrack); ok {
		tr.SendNoteOff(cmd.Note)
	}
}

func (c *Controller) loadMidiClip(cmd Command, sampleRate float64) {
	tr, ok := findTrack(c.proj.Roots, cmd.TrackIDString()).(*arranger.MidiTrack)
	if !ok {
		c.logger.Warn("loadmidi: track not found", "track_id", cmd.TrackIDString())
		return
	}
	events, err := midiio.DecodeSMF(cmd.PathString(), int(sampleRate))
	if err != nil {
		c.logger.Error("loadmidi: decode failed", "path", cmd.PathString(), "err", err)
		return
	}
	clipEvents := make([]arranger.MidiClipEvent, len(events))
	var duration float64
	for i, e := range events {
		seconds := float64(e.Timestamp) / sampleRate
		clipEvents[i] = arranger.MidiClipEvent{TimeSeconds: seconds, Status: e.Status, Data1: e.Data1, Data2: e.Data2}
		if seconds > duration {
			duration = seconds
		}
	}
	idx := c.midiPool.Add(&arranger.MidiClip{Events: clipEvents, DurationSeconds: duration})
	tr.Instances = append(tr.Instances, arranger.ClipInstance{
		PoolIndex:       idx,
		StartSeconds:    cmd.StartSeconds,
		DurationSeconds: duration,
		Gain:            1,
	})
}

func (c *Controller) addAudioFile(cmd Command) {
	f, err := audioio.Decode(cmd.PathString())
	if err != nil {
		c.logger.Error("add_audio_file: decode failed", "path", cmd.PathString(), "err", err)
		return
	}
	idx := c.audioPool.Add(f)
	c.events.Push(NewAudioFileAddedEvent(idx))
}

func (c *Controller) reset() {
	c.playing = false
	c.playhead = 0
	c.lastPosPublish = 0
	c.proj.Roots = nil
	c.events.Push(NewProjectResetEvent())
}

// findTrack searches the track tree (including Group children) for id,
// returning nil if not found.
func findTrack(roots []arranger.Track, id string) arranger.Track {
	for _, t := range roots {
		if t.ID() == id {
			return t
		}
		if g, ok := t.(*arranger.Group); ok {
			if found := findTrack(g.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}
