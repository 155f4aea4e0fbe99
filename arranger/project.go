package arranger

import "github.com/beamforge/beam/graph"

// Project is the root of the timeline: a list of root tracks (AudioTrack,
// MidiTrack, or Group) rendered into one block per call.
type Project struct {
	Roots      []Track
	SampleRate float64
	Channels   int
}

func NewProject(sampleRate float64, channels int) *Project {
	return &Project{SampleRate: sampleRate, Channels: channels}
}

// Render implements Project.render(out_block, pools, playhead, sample_rate,
// channels): zero out_block, compute any_solo, recurse summing every
// active root track/group into it.
func (p *Project) Render(outBlock []float32, audioPool *AudioClipPool, midiPool *MidiClipPool, bufPool *BufferPool, playheadSeconds float64) {
	for i := range outBlock {
		outBlock[i] = 0
	}

	anySolo := false
	for _, t := range p.Roots {
		if anySoloed(t) {
			anySolo = true
			break
		}
	}

	frameCount := len(outBlock) / p.Channels
	blockSeconds := float64(frameCount) / p.SampleRate

	for _, t := range p.Roots {
		p.renderTrack(t, outBlock, audioPool, midiPool, bufPool, playheadSeconds, blockSeconds, anySolo, false)
	}
}

// anySoloed reports whether t or (recursively, for a Group) any of its
// descendants has solo set — used once up front to compute any_solo.
func anySoloed(t Track) bool {
	if t.Soloed() {
		return true
	}
	if g, ok := t.(*Group); ok {
		for _, c := range g.Children {
			if anySoloed(c) {
				return true
			}
		}
	}
	return false
}

// active reports whether t should render this block: if a parent group is
// soloed, only mute matters; else active iff (any_solo => soloed) and not
// muted.
func active(t Track, anySolo, parentIsSoloed bool) bool {
	if t.Muted() {
		return false
	}
	if parentIsSoloed {
		return true
	}
	if anySolo {
		return t.Soloed()
	}
	return true
}

func (p *Project) renderTrack(t Track, out []float32, audioPool *AudioClipPool, midiPool *MidiClipPool, bufPool *BufferPool, playheadSeconds, blockSeconds float64, anySolo, parentIsSoloed bool) {
	if !active(t, anySolo, parentIsSoloed) {
		return
	}

	switch tr := t.(type) {
	case *AudioTrack:
		p.renderAudioTrack(tr, out, audioPool, playheadSeconds, blockSeconds)
	case *MidiTrack:
		p.renderMidiTrack(tr, out, midiPool, bufPool, playheadSeconds, blockSeconds)
	case *Group:
		scratch := bufPool.Acquire()
		defer bufPool.Release(scratch)
		childSoloed := parentIsSoloed || tr.Soloed()
		for _, c := range tr.Children {
			p.renderTrack(c, scratch, audioPool, midiPool, bufPool, playheadSeconds, blockSeconds, anySolo, childSoloed)
		}
		gain := tr.Volume()
		n := len(out)
		if len(scratch) < n {
			n = len(scratch)
		}
		for i := 0; i < n; i++ {
			out[i] += scratch[i] * gain
		}
	}
}

func (p *Project) renderAudioTrack(t *AudioTrack, out []float32, pool *AudioClipPool, playheadSeconds, blockSeconds float64) {
	if t.Pool == nil {
		return
	}
	volume := t.Volume()
	frameCount := len(out) / 2
	blockStart := playheadSeconds
	blockEnd := playheadSeconds + blockSeconds

	scratch := make([]float32, len(out))
	for _, inst := range t.Instances {
		instEnd := inst.StartSeconds + inst.DurationSeconds
		if instEnd <= blockStart || inst.StartSeconds >= blockEnd {
			continue
		}
		overlapStart := maxF(inst.StartSeconds, blockStart)
		overlapEnd := minF(instEnd, blockEnd)
		if overlapEnd <= overlapStart {
			continue
		}
		sourceOffset := inst.SourceOffset + (overlapStart - inst.StartSeconds)
		startFrameInBlock := int((overlapStart - blockStart) * p.SampleRate)
		overlapFrames := int((overlapEnd - overlapStart) * p.SampleRate)
		if overlapFrames <= 0 || startFrameInBlock >= frameCount {
			continue
		}
		if startFrameInBlock+overlapFrames > frameCount {
			overlapFrames = frameCount - startFrameInBlock
		}

		pool.ReadStereo(inst.PoolIndex, sourceOffset, overlapFrames, p.SampleRate, scratch[:overlapFrames*2])
		gain := inst.Gain * volume
		for i := 0; i < overlapFrames; i++ {
			out[2*(startFrameInBlock+i)] += scratch[2*i] * gain
			out[2*(startFrameInBlock+i)+1] += scratch[2*i+1] * gain
		}
	}
}

func (p *Project) renderMidiTrack(t *MidiTrack, out []float32, pool *MidiClipPool, bufPool *BufferPool, playheadSeconds, blockSeconds float64) {
	if t.Instrument == nil {
		return
	}
	volume := t.Volume()
	blockStart := playheadSeconds
	blockEnd := playheadSeconds + blockSeconds

	var events []graph.MidiEvent
	for _, inst := range t.Instances {
		clip := pool.Get(inst.PoolIndex)
		if clip == nil {
			continue
		}
		instEnd := inst.StartSeconds + inst.DurationSeconds
		if instEnd <= blockStart || inst.StartSeconds >= blockEnd {
			continue
		}
		for _, e := range clip.Events {
			absTime := inst.StartSeconds + (e.TimeSeconds - inst.SourceOffset)
			if absTime < blockStart || absTime >= blockEnd {
				continue
			}
			offsetSamples := uint64((absTime - blockStart) * p.SampleRate)
			events = append(events, graph.MidiEvent{
				Timestamp: offsetSamples, Status: e.Status, Data1: e.Data1, Data2: e.Data2,
			})
		}
	}
	events = append(events, t.live.drain()...)

	scratch := bufPool.Acquire()
	defer bufPool.Release(scratch)

	t.Instrument.SetSampleRate(p.SampleRate)
	t.Instrument.Process(scratch, events, playheadSeconds)
	n := len(out)
	if len(scratch) < n {
		n = len(scratch)
	}
	for i := 0; i < n; i++ {
		out[i] += scratch[i] * volume
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
