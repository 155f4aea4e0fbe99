package midiio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestTickToSecondsAtConstantTempo(t *testing.T) {
	tempoMap := []tempoEvent{{tick: 0, microsPerBeat: 500000}} // 120 BPM
	got := tickToSeconds(480, 480, tempoMap)                   // one quarter note
	require.InDelta(t, 0.5, got, 1e-9)
}

func TestTickToSecondsZeroTickIsZeroSeconds(t *testing.T) {
	tempoMap := []tempoEvent{{tick: 0, microsPerBeat: 500000}}
	require.Equal(t, 0.0, tickToSeconds(0, 480, tempoMap))
}

func TestTickToSecondsAccumulatesAcrossATempoChange(t *testing.T) {
	tempoMap := []tempoEvent{
		{tick: 0, microsPerBeat: 500000},   // 120 BPM for the first 480 ticks
		{tick: 480, microsPerBeat: 250000}, // then 240 BPM
	}
	got := tickToSeconds(960, 480, tempoMap)
	require.InDelta(t, 0.75, got, 1e-9) // 0.5s + 0.25s
}

func TestTickToSecondsStoppingMidwayThroughASegment(t *testing.T) {
	tempoMap := []tempoEvent{
		{tick: 0, microsPerBeat: 500000},
		{tick: 480, microsPerBeat: 250000},
	}
	got := tickToSeconds(720, 480, tempoMap) // 480 ticks at 120bpm + 240 ticks at 240bpm
	require.InDelta(t, 0.5+0.125, got, 1e-9)
}

func TestExtractTempoMapDefaultsTo120BPMWithNoTempoMetaEvents(t *testing.T) {
	s := &smf.SMF{}
	got := extractTempoMap(s)
	require.Equal(t, []tempoEvent{{tick: 0, microsPerBeat: 500000}}, got)
}
