package arranger

import (
	"testing"

	"github.com/beamforge/beam/graph"
	"github.com/stretchr/testify/require"
)

func TestNewBaseTrackDefaultsToUnityVolumeAndCenterPan(t *testing.T) {
	bt := NewBaseTrack("lead")
	require.Equal(t, "lead", bt.Name())
	require.Equal(t, float32(1), bt.Volume())
	require.Equal(t, float32(0), bt.Pan())
	require.False(t, bt.Muted())
	require.False(t, bt.Soloed())
	require.NotEmpty(t, bt.ID())
}

func TestBaseTrackSettersRoundTrip(t *testing.T) {
	bt := NewBaseTrack("lead")
	bt.SetVolume(0.5)
	bt.SetPan(-1)
	bt.SetMuted(true)
	bt.SetSoloed(true)
	require.Equal(t, float32(0.5), bt.Volume())
	require.Equal(t, float32(-1), bt.Pan())
	require.True(t, bt.Muted())
	require.True(t, bt.Soloed())
}

func TestNewBaseTrackAssignsDistinctIDs(t *testing.T) {
	a := NewBaseTrack("a")
	b := NewBaseTrack("b")
	require.NotEqual(t, a.ID(), b.ID())
}

func TestNewAudioTrackStartsWithNoInstances(t *testing.T) {
	pool := NewAudioClipPool()
	tr := NewAudioTrack("drums", pool)
	require.Empty(t, tr.Instances)
	require.Same(t, pool, tr.Pool)
}

func TestNewGroupHoldsProvidedChildren(t *testing.T) {
	a := NewAudioTrack("a", NewAudioClipPool())
	b := NewAudioTrack("b", NewAudioClipPool())
	g := NewGroup("bus", a, b)
	require.Len(t, g.Children, 2)
	require.Equal(t, "bus", g.Name())
}

func TestMidiTrackSendNoteOnOffEnqueuesOntoLiveQueue(t *testing.T) {
	tr := NewMidiTrack("synth", NewMidiClipPool(), nil)
	tr.SendNoteOn(60, 100)
	tr.SendNoteOff(60)

	events := tr.live.drain()
	require.Len(t, events, 2)
	require.Equal(t, uint8(0x90), events[0].Status)
	require.Equal(t, uint8(60), events[0].Data1)
	require.Equal(t, uint8(100), events[0].Data2)
	require.Equal(t, uint8(0x80), events[1].Status)
	require.Equal(t, uint8(0), events[1].Data2)
}

func TestLiveMidiQueueDrainEmptiesTheQueue(t *testing.T) {
	q := newLiveMidiQueue()
	require.Empty(t, q.drain())

	q.push(graph.MidiEvent{Status: 0x90, Data1: 64, Data2: 90})
	require.Len(t, q.drain(), 1)
	require.Empty(t, q.drain())
}
