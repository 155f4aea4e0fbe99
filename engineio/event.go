package engineio

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/smallnest/ringbuffer"
)

// EventKind enumerates the notifications the render core publishes back
// to a host transport.
type EventKind uint8

const (
	EvPlaybackPosition EventKind = iota
	EvPlaybackStopped
	EvTrackCreated
	EvRecordingStopped
	EvProjectReset
	EvAudioFileAdded
)

// Event is a fixed-layout notification, mirroring Command's wire shape.
type Event struct {
	Kind      EventKind
	PoolIndex int32
	Seconds   float64
	TrackID   [trackIDLen]byte
}

const eventFrameSize = 1 + 4 + 8 + trackIDLen

func NewPlaybackPositionEvent(seconds float64) Event {
	return Event{Kind: EvPlaybackPosition, Seconds: seconds}
}

func NewPlaybackStoppedEvent() Event { return Event{Kind: EvPlaybackStopped} }
func NewProjectResetEvent() Event    { return Event{Kind: EvProjectReset} }

func NewTrackCreatedEvent(trackID string) Event {
	e := Event{Kind: EvTrackCreated}
	setFixedString(e.TrackID[:], trackID)
	return e
}

func NewAudioFileAddedEvent(poolIndex int) Event {
	return Event{Kind: EvAudioFileAdded, PoolIndex: int32(poolIndex)}
}

func (e Event) TrackIDString() string { return getFixedString(e.TrackID[:]) }

func encodeEvent(e Event) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, eventFrameSize))
	_ = binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

func decodeEvent(b []byte) (Event, error) {
	var e Event
	if len(b) < eventFrameSize {
		return e, errors.New("engineio: short event frame")
	}
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &e)
	return e, err
}

// EventQueue is a bounded ring buffer of Events. Unlike CommandQueue, a
// full queue drops its oldest entry rather than erroring: losing a stale
// playback-position tick is harmless, and the audio thread publishing
// events must never block or fail on a slow-draining UI.
type EventQueue struct {
	rb *ringbuffer.RingBuffer
}

func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{rb: ringbuffer.New(capacity * eventFrameSize)}
}

// Push enqueues e, discarding the oldest queued event to make room if
// the buffer is full.
func (q *EventQueue) Push(e Event) {
	frame := encodeEvent(e)
	if n, err := q.rb.TryWrite(frame); err == nil && n == len(frame) {
		return
	}
	discard := make([]byte, eventFrameSize)
	q.rb.TryRead(discard)
	q.rb.TryWrite(frame)
}

// Drain removes and decodes every pending event, in FIFO order.
func (q *EventQueue) Drain() []Event {
	var out []Event
	frame := make([]byte, eventFrameSize)
	for {
		n, err := q.rb.TryRead(frame)
		if err != nil || n < eventFrameSize {
			break
		}
		e, err := decodeEvent(frame)
		if err != nil {
			break
		}
		out = append(out, e)
	}
	return out
}
