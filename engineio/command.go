package engineio

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/smallnest/ringbuffer"
)

// ErrQueueFull is returned by CommandQueue.Push when the ring buffer has
// no room: command-side overflow is a hard error surfaced to the caller,
// unlike the event side which drops the oldest entry.
var ErrQueueFull = errors.New("engineio: command queue full")

// Kind enumerates the control-plane verbs a host transport can send: CLI
// verbs plus the virtual-piano note messages.
type Kind uint8

const (
	CmdPlay Kind = iota
	CmdPause
	CmdStop
	CmdSeek
	CmdCreateTrack
	CmdAddClip
	CmdSendMidiOn
	CmdSendMidiOff
	CmdLoadMidiClip
	CmdAddAudioFile
	CmdReset
)

// TrackKind distinguishes CreateTrack's target track type.
type TrackKind uint8

const (
	TrackAudio TrackKind = iota
	TrackMidi
)

const (
	trackIDLen = 36 // uuid string, canonical form
	nameLen    = 64
	pathLen    = 256
)

// Command is a fixed-layout control-plane message. Every field is present
// in every command; unused fields are zero. Fixed size keeps encode/decode
// allocation-free on the hot path: the queue crosses a real transport
// boundary (ring buffer, not a channel of interfaces), so the wire shape
// has to be concrete.
type Command struct {
	Kind            Kind
	TrackKind       TrackKind
	Note            uint8
	Velocity        uint8
	PoolIndex       int32
	Seconds         float64
	StartSeconds    float64
	SourceOffset    float64
	DurationSeconds float64
	Gain            float32
	TrackID         [trackIDLen]byte
	Name            [nameLen]byte
	Path            [pathLen]byte
}

const commandFrameSize = 1 + 1 + 1 + 1 + 4 + 8 + 8 + 8 + 8 + 4 + trackIDLen + nameLen + pathLen

func setFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

func getFixedString(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	return string(src[:n])
}

func NewPlayCommand() Command  { return Command{Kind: CmdPlay} }
func NewPauseCommand() Command { return Command{Kind: CmdPause} }
func NewStopCommand() Command  { return Command{Kind: CmdStop} }
func NewResetCommand() Command { return Command{Kind: CmdReset} }

func NewSeekCommand(seconds float64) Command {
	return Command{Kind: CmdSeek, Seconds: seconds}
}

func NewCreateTrackCommand(kind TrackKind, name string) Command {
	c := Command{Kind: CmdCreateTrack, TrackKind: kind}
	setFixedString(c.Name[:], name)
	return c
}

func NewAddClipCommand(trackID string, poolIndex int, start, sourceOffset, duration float64, gain float32) Command {
	c := Command{
		Kind: CmdAddClip, PoolIndex: int32(poolIndex),
		StartSeconds: start, SourceOffset: sourceOffset, DurationSeconds: duration, Gain: gain,
	}
	setFixedString(c.TrackID[:], trackID)
	return c
}

func NewSendMidiOnCommand(trackID string, note, velocity uint8) Command {
	c := Command{Kind: CmdSendMidiOn, Note: note, Velocity: velocity}
	setFixedString(c.TrackID[:], trackID)
	return c
}

func NewSendMidiOffCommand(trackID string, note uint8) Command {
	c := Command{Kind: CmdSendMidiOff, Note: note}
	setFixedString(c.TrackID[:], trackID)
	return c
}

func NewLoadMidiClipCommand(trackID, path string, start float64) Command {
	c := Command{Kind: CmdLoadMidiClip, StartSeconds: start}
	setFixedString(c.TrackID[:], trackID)
	setFixedString(c.Path[:], path)
	return c
}

func NewAddAudioFileCommand(path string) Command {
	c := Command{Kind: CmdAddAudioFile}
	setFixedString(c.Path[:], path)
	return c
}

func (c Command) TrackIDString() string { return getFixedString(c.TrackID[:]) }
func (c Command) NameString() string    { return getFixedString(c.Name[:]) }
func (c Command) PathString() string    { return getFixedString(c.Path[:]) }

func encodeCommand(c Command) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, commandFrameSize))
	_ = binary.Write(buf, binary.LittleEndian, c)
	return buf.Bytes()
}

func decodeCommand(b []byte) (Command, error) {
	var c Command
	if len(b) < commandFrameSize {
		return c, errors.New("engineio: short command frame")
	}
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &c)
	return c, err
}

// CommandQueue is a bounded lock-free ring buffer of Commands, fed by a
// host transport and drained once per render block on the audio thread.
type CommandQueue struct {
	rb *ringbuffer.RingBuffer
}

// NewCommandQueue creates a queue holding up to capacity commands.
func NewCommandQueue(capacity int) *CommandQueue {
	return &CommandQueue{rb: ringbuffer.New(capacity * commandFrameSize)}
}

// Push enqueues a command, returning ErrQueueFull if there is no room.
func (q *CommandQueue) Push(c Command) error {
	frame := encodeCommand(c)
	n, err := q.rb.TryWrite(frame)
	if err != nil || n < len(frame) {
		return ErrQueueFull
	}
	return nil
}

// Drain removes and decodes every pending command, in FIFO order.
func (q *CommandQueue) Drain() []Command {
	var out []Command
	frame := make([]byte, commandFrameSize)
	for {
		n, err := q.rb.TryRead(frame)
		if err != nil || n < commandFrameSize {
			break
		}
		c, err := decodeCommand(frame)
		if err != nil {
			break
		}
		out = append(out, c)
	}
	return out
}
