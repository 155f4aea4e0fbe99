package arranger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/beamforge/beam/graph"
	"github.com/beamforge/beam/nodes"
)

// newGateInstrument builds a minimal instrument graph whose output holds the
// current MIDI gate level, for observing whether a MidiTrack delivered a
// note-on within a given block.
func newGateInstrument(blockSize int) *graph.AudioGraph {
	g := graph.New(blockSize)
	m2cv := g.AddNode(nodes.NewMidiToCV())
	cv2a := g.AddNode(nodes.NewCVToAudio())
	if err := g.Connect(m2cv, 1, cv2a, 0); err != nil { // gate -> audio
		panic(err)
	}
	g.SetOutputNode(cv2a)
	return g
}

func TestProjectRenderZeroesOutputWhenNoRoots(t *testing.T) {
	p := NewProject(48000, 2)
	out := []float32{1, 2, 3, 4}
	p.Render(out, NewAudioClipPool(), NewMidiClipPool(), NewBufferPool(2, 2), 0)
	require.Equal(t, []float32{0, 0, 0, 0}, out)
}

func TestProjectRenderMutedAudioTrackIsSilent(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16)
	for i := range pcm {
		pcm[i] = 1
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	tr := NewAudioTrack("drums", pool)
	tr.Instances = []ClipInstance{{PoolIndex: idx, StartSeconds: 0, DurationSeconds: 8.0 / 48000, Gain: 1}}
	tr.SetMuted(true)

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.Equal(t, float32(0), s)
	}
}

func TestProjectRenderSoloIsolatesSoloedTrackFromItsSiblings(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16)
	for i := range pcm {
		pcm[i] = 1
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	soloed := NewAudioTrack("soloed", pool)
	soloed.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}
	soloed.SetSoloed(true)

	silent := NewAudioTrack("silent", pool)
	silent.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}

	p := NewProject(48000, 2)
	p.Roots = []Track{soloed, silent}

	out := make([]float32, 16)
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 1.0, s, 1e-6) // only the soloed track's gain=1 content sums in
	}
}

func TestProjectRenderGroupSoloIncludesUnsoloedChildrenButNotSiblings(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16)
	for i := range pcm {
		pcm[i] = 1
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	child := NewAudioTrack("child", pool)
	child.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}

	group := NewGroup("bus", child)
	group.SetSoloed(true)

	sibling := NewAudioTrack("sibling", pool)
	sibling.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}

	p := NewProject(48000, 2)
	p.Roots = []Track{group, sibling}

	out := make([]float32, 16)
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 1.0, s, 1e-6)
	}
}

func TestProjectRenderAudioTrackPlaysOnlyWithinInstanceOverlapWindow(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16) // 8 stereo frames
	for i := range pcm {
		pcm[i] = float32(i)
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	tr := NewAudioTrack("drums", pool)
	tr.Instances = []ClipInstance{{
		PoolIndex: idx, StartSeconds: 4.0 / 48000, SourceOffset: 0, DurationSeconds: 4.0 / 48000, Gain: 1,
	}}

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16) // 8-frame block
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)

	for i := 0; i < 8; i++ {
		require.Equal(t, float32(0), out[2*i], "frame %d left", i)
		require.Equal(t, float32(0), out[2*i+1], "frame %d right", i)
	}
	for i := 8; i < 16; i++ {
		require.InDelta(t, pcm[i-8], out[i], 1e-3)
	}
}

func TestProjectRenderAudioTrackAppliesInstanceGainAndTrackVolume(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16)
	for i := range pcm {
		pcm[i] = 1
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	tr := NewAudioTrack("drums", pool)
	tr.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 0.5}}
	tr.SetVolume(0.5)

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 0.25, s, 1e-6)
	}
}

func TestProjectRenderMidiTrackDeliversClipEventsToInstrument(t *testing.T) {
	midiPool := NewMidiClipPool()
	clipIdx := midiPool.Add(&MidiClip{
		Events:          []MidiClipEvent{{TimeSeconds: 0, Status: 0x90, Data1: 60, Data2: 100}},
		DurationSeconds: 1,
	})

	instrument := newGateInstrument(8)
	tr := NewMidiTrack("synth", midiPool, instrument)
	tr.Instances = []ClipInstance{{PoolIndex: clipIdx, StartSeconds: 0, DurationSeconds: 1}}

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, NewAudioClipPool(), midiPool, NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 1.0, s, 1e-6)
	}
}

func TestProjectRenderMidiTrackSkipsClipOutsideBlockWindow(t *testing.T) {
	midiPool := NewMidiClipPool()
	clipIdx := midiPool.Add(&MidiClip{
		Events:          []MidiClipEvent{{TimeSeconds: 10, Status: 0x90, Data1: 60, Data2: 100}},
		DurationSeconds: 1,
	})

	instrument := newGateInstrument(8)
	tr := NewMidiTrack("synth", midiPool, instrument)
	tr.Instances = []ClipInstance{{PoolIndex: clipIdx, StartSeconds: 10, DurationSeconds: 1}}

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, NewAudioClipPool(), midiPool, NewBufferPool(8, 2), 0) // playhead at 0, clip starts at 10s
	for _, s := range out {
		require.Equal(t, float32(0), s)
	}
}

func TestProjectRenderMidiTrackDeliversLiveNotesAlongsideClipMidi(t *testing.T) {
	instrument := newGateInstrument(8)
	tr := NewMidiTrack("synth", NewMidiClipPool(), instrument)
	tr.SendNoteOn(60, 100)

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, NewAudioClipPool(), NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 1.0, s, 1e-6)
	}
}

func TestProjectRenderMidiTrackWithNoInstrumentIsSilent(t *testing.T) {
	tr := NewMidiTrack("synth", NewMidiClipPool(), nil)
	tr.SendNoteOn(60, 100)

	p := NewProject(48000, 2)
	p.Roots = []Track{tr}

	out := make([]float32, 16)
	p.Render(out, NewAudioClipPool(), NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.Equal(t, float32(0), s)
	}
}

func TestProjectRenderGroupSumsChildrenAndScalesByGroupVolume(t *testing.T) {
	pool := NewAudioClipPool()
	pcm := make([]float32, 16)
	for i := range pcm {
		pcm[i] = 1
	}
	idx := pool.Add(&AudioFile{Channels: 2, SampleRate: 48000, PCM: pcm})

	a := NewAudioTrack("a", pool)
	a.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}
	b := NewAudioTrack("b", pool)
	b.Instances = []ClipInstance{{PoolIndex: idx, DurationSeconds: 8.0 / 48000, Gain: 1}}

	group := NewGroup("bus", a, b)
	group.SetVolume(0.5)

	p := NewProject(48000, 2)
	p.Roots = []Track{group}

	out := make([]float32, 16)
	p.Render(out, pool, NewMidiClipPool(), NewBufferPool(8, 2), 0)
	for _, s := range out {
		require.InDelta(t, 1.0, s, 1e-6) // (1+1) summed, then *0.5 group volume
	}
}

// TestActiveImplementsMuteSoloAlgebra checks active's four-branch rule
// against an independent oracle for every combination of muted/soloed/
// anySolo/parentIsSoloed: muted always wins, an soloed ancestor always
// wins over that, otherwise a solo anywhere in the set silences everyone
// but the soloed tracks themselves.
func TestActiveImplementsMuteSoloAlgebra(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		muted := rapid.Bool().Draw(t, "muted")
		soloed := rapid.Bool().Draw(t, "soloed")
		anySolo := rapid.Bool().Draw(t, "any_solo")
		parentIsSoloed := rapid.Bool().Draw(t, "parent_is_soloed")

		tr := NewAudioTrack("t", nil)
		tr.SetMuted(muted)
		tr.SetSoloed(soloed)

		want := !muted && (parentIsSoloed || !anySolo || soloed)
		got := active(tr, anySolo, parentIsSoloed)
		require.Equal(t, want, got)
	})
}
