package engineio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventQueueRoundTrip(t *testing.T) {
	q := NewEventQueue(4)
	q.Push(NewPlaybackPositionEvent(1.25))
	q.Push(NewTrackCreatedEvent("track-9"))

	drained := q.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, EvPlaybackPosition, drained[0].Kind)
	require.InDelta(t, 1.25, drained[0].Seconds, 1e-9)
	require.Equal(t, EvTrackCreated, drained[1].Kind)
	require.Equal(t, "track-9", drained[1].TrackIDString())
}

func TestEventQueueDropsOldestOnOverflow(t *testing.T) {
	q := NewEventQueue(2)
	q.Push(NewPlaybackPositionEvent(1))
	q.Push(NewPlaybackPositionEvent(2))
	q.Push(NewPlaybackPositionEvent(3)) // should evict the first (1.0)

	drained := q.Drain()
	require.Len(t, drained, 2)
	require.InDelta(t, 2, drained[0].Seconds, 1e-9)
	require.InDelta(t, 3, drained[1].Seconds, 1e-9)
}
