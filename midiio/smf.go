// Package midiio decodes Standard MIDI Files into engine-sample-stamped
// events, and maps a computer keyboard onto MIDI notes for the CLI's live
// play mode.
package midiio

import (
	"bytes"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/beamforge/beam/graph"
)

type tempoEvent struct {
	tick          int
	microsPerBeat int
}

// DecodeSMF reads an SMF file and flattens every track's messages into one
// timeline of graph.MidiEvent with Timestamp in engine samples at
// sampleRate, resolving tempo-map changes the way a sequencer would.
func DecodeSMF(path string, sampleRate int) ([]graph.MidiEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ppq := 480
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ppq = int(mt)
	}

	tempoMap := extractTempoMap(s)

	type timed struct {
		tick int
		msg  smf.Message
	}
	var timeline []timed
	for _, track := range s.Tracks {
		abs := 0
		for _, ev := range track {
			abs += int(ev.Delta)
			if ev.Message.IsMeta() || !ev.Message.IsPlayable() {
				continue
			}
			timeline = append(timeline, timed{tick: abs, msg: ev.Message})
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].tick < timeline[j].tick })

	events := make([]graph.MidiEvent, 0, len(timeline))
	for _, tm := range timeline {
		seconds := tickToSeconds(tm.tick, ppq, tempoMap)
		raw := tm.msg.Bytes()
		e := graph.MidiEvent{Timestamp: uint64(seconds * float64(sampleRate))}
		if len(raw) > 0 {
			e.Status = raw[0]
		}
		if len(raw) > 1 {
			e.Data1 = raw[1]
		}
		if len(raw) > 2 {
			e.Data2 = raw[2]
		}
		events = append(events, e)
	}
	return events, nil
}

// extractTempoMap walks every track for Set Tempo meta events, defaulting
// to 120 BPM when none are found.
func extractTempoMap(s *smf.SMF) []tempoEvent {
	events := []tempoEvent{{tick: 0, microsPerBeat: 500000}}
	for _, track := range s.Tracks {
		abs := 0
		for _, ev := range track {
			abs += int(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) {
				events = append(events, tempoEvent{tick: abs, microsPerBeat: int(60000000 / bpm)})
			}
		}
	}
	return events
}

// tickToSeconds converts an absolute tick to wall-clock seconds, walking
// the tempo map segment by segment (ported from the tempo-aware wait-time
// calculation a sequencer needs for variable-tempo files).
func tickToSeconds(tick, ppq int, tempoMap []tempoEvent) float64 {
	total := 0.0
	cur := 0
	idx := 0
	for cur < tick {
		tempo := tempoMap[idx]
		timePerTick := (float64(tempo.microsPerBeat) / 1000000.0) / float64(ppq)

		segEnd := tick
		if idx+1 < len(tempoMap) && tempoMap[idx+1].tick < segEnd {
			segEnd = tempoMap[idx+1].tick
		}
		total += float64(segEnd-cur) * timePerTick
		cur = segEnd
		if idx+1 < len(tempoMap) && cur >= tempoMap[idx+1].tick {
			idx++
		}
	}
	return total
}
