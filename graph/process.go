package graph

import (
	"fmt"
	"sort"
)

// rebuildPlan recomputes the cached topological order and incoming-edge
// index when the graph's topology is dirty. Ties are broken by insertion
// order so that repeated Process calls over an unchanged graph produce
// bit-identical output.
func (g *AudioGraph) rebuildPlan() {
	if !g.planDirty {
		return
	}

	g.incoming = make(map[uint32][]Edge, len(g.edges))
	indegree := make(map[uint32]int)
	adjacency := make(map[uint32][]uint32)

	for i := range g.slots {
		if g.slots[i].alive {
			indegree[uint32(i)] = 0
		}
	}
	for _, e := range g.edges {
		g.incoming[e.To.Index] = append(g.incoming[e.To.Index], e)
		indegree[e.To.Index]++
		adjacency[e.From.Index] = append(adjacency[e.From.Index], e.To.Index)
	}

	var ready []uint32
	for idx, d := range indegree {
		if d == 0 {
			ready = append(ready, idx)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return g.insertSeq[ready[i]] < g.insertSeq[ready[j]] })

	order := make([]uint32, 0, len(indegree))
	for len(ready) > 0 {
		// pop lowest insertion-order node
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)

		var unlocked []uint32
		for _, next := range adjacency[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		sort.Slice(unlocked, func(i, j int) bool { return g.insertSeq[unlocked[i]] < g.insertSeq[unlocked[j]] })

		merged := make([]uint32, 0, len(ready)+len(unlocked))
		merged = append(merged, ready...)
		merged = append(merged, unlocked...)
		sort.Slice(merged, func(i, j int) bool { return g.insertSeq[merged[i]] < g.insertSeq[merged[j]] })
		ready = merged
	}

	// A residual cycle (shouldn't happen: Connect rejects them) falls back
	// to insertion order so Process never deadlocks on a corrupt plan.
	if len(order) != len(indegree) {
		order = g.insertionOrder()
		if g.errorHandler != nil {
			g.errorHandler.HandleError(ErrWouldCreateCycle)
		}
	}

	g.topoOrder = order
	g.planDirty = false
}

func zeroAudioCV(bufs [][]float32) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
	}
}

func zeroMidi(bufs [][]MidiEvent) {
	for i := range bufs {
		bufs[i] = bufs[i][:0]
	}
}

// Process evaluates one block in six steps:
//  1. zero every node's output buffers
//  2. inject live MIDI onto every MIDI-target node's first MIDI output slot
//  3. compute (or reuse) the topological evaluation order
//  4. for each node in order, gather type-local fan-in from scratch buffers,
//     summing audio/CV and concatenating MIDI, then invoke Process with
//     panic recovery isolating a faulting node to a silent block
//  5. nothing else touches a node's own outputs — they are exactly what its
//     Process call wrote (this is why midi_target injection in step 2
//     precedes step 4: pass-through input-pin node types deliberately leave
//     their own MIDI output untouched so injected events survive)
//  6. mix the designated output node's first output port into outBlock
func (g *AudioGraph) Process(outBlock []float32, midiIn []MidiEvent, playheadSeconds float64) {
	for i := range outBlock {
		outBlock[i] = 0
	}

	for i := range g.slots {
		if !g.slots[i].alive {
			continue
		}
		zeroAudioCV(g.slots[i].outAudioCV)
		zeroMidi(g.slots[i].outMidi)
	}

	for i := range g.slots {
		s := &g.slots[i]
		if !s.alive || !s.isMidiTarget || len(s.outMidi) == 0 {
			continue
		}
		s.outMidi[0] = append(s.outMidi[0], midiIn...)
	}

	for i := range g.slots {
		s := &g.slots[i]
		if !s.alive {
			continue
		}
		if pa, ok := s.node.(PlayheadAware); ok {
			pa.SetPlayhead(playheadSeconds)
		}
	}

	g.rebuildPlan()

	for _, idx := range g.topoOrder {
		s := &g.slots[idx]
		g.evaluateNode(idx, s, g.sampleRate)
	}

	if g.hasOutputNode {
		if outIdx, ok := g.resolve(g.outputNode); ok {
			out := g.slots[outIdx].outAudioCV
			if len(out) > 0 {
				n := len(out[0])
				if n > len(outBlock) {
					n = len(outBlock)
				}
				copy(outBlock[:n], out[0][:n])
			}
		}
	}
}

func (g *AudioGraph) evaluateNode(idx uint32, s *nodeSlot, sampleRate float64) {
	defer func() {
		if r := recover(); r != nil {
			zeroAudioCV(s.outAudioCV)
			if g.errorHandler != nil {
				g.errorHandler.HandleError(nodeFaultError{idx: idx, recovered: r})
			}
		}
	}()

	inPorts := s.node.InputPorts()
	audioCVCount, midiCount := countByKind(inPorts)

	audioCVIn := make([][]float32, audioCVCount)
	midiInBufs := make([][]MidiEvent, midiCount)

	scratchUsed := 0
	midiScratchUsed := 0

	for _, p := range inPorts {
		local, isMidi, ok := typeLocalIndex(inPorts, p.Index)
		if !ok {
			continue
		}
		if isMidi {
			var merged []MidiEvent
			if midiScratchUsed < scratchSlots {
				merged = g.midiScratch[midiScratchUsed][:0]
				midiScratchUsed++
			}
			for _, e := range g.incoming[idx] {
				if e.ToPort != p.Index {
					continue
				}
				src, srcOK := g.resolve(e.From)
				if !srcOK {
					continue
				}
				srcLocal, srcIsMidi, srcOK2 := typeLocalIndex(g.slots[src].node.OutputPorts(), e.FromPort)
				if !srcOK2 || !srcIsMidi || srcLocal >= len(g.slots[src].outMidi) {
					continue
				}
				merged = append(merged, g.slots[src].outMidi[srcLocal]...)
			}
			midiInBufs[local] = merged
			continue
		}

		size := g.blockSize
		if p.Type == Audio {
			size = 2 * g.blockSize
		}
		var buf []float32
		if scratchUsed < scratchSlots {
			buf = g.audioCVScratch[scratchUsed][:size]
			for i := range buf {
				buf[i] = 0
			}
			scratchUsed++
		} else {
			buf = make([]float32, size)
		}

		for _, e := range g.incoming[idx] {
			if e.ToPort != p.Index {
				continue
			}
			src, srcOK := g.resolve(e.From)
			if !srcOK {
				continue
			}
			srcLocal, srcIsMidi, srcOK2 := typeLocalIndex(g.slots[src].node.OutputPorts(), e.FromPort)
			if !srcOK2 || srcIsMidi || srcLocal >= len(g.slots[src].outAudioCV) {
				continue
			}
			srcBuf := g.slots[src].outAudioCV[srcLocal]
			n := len(buf)
			if len(srcBuf) < n {
				n = len(srcBuf)
			}
			for i := 0; i < n; i++ {
				buf[i] += srcBuf[i]
			}
		}
		audioCVIn[local] = buf
	}

	s.node.Process(audioCVIn, s.outAudioCV, midiInBufs, s.outMidi, sampleRate)
}

// nodeFaultError identifies which node slot panicked, for the error
// handler's log line.
type nodeFaultError struct {
	idx       uint32
	recovered interface{}
}

func (e nodeFaultError) Error() string {
	return fmt.Sprintf("node %d panicked: %v", e.idx, e.recovered)
}
