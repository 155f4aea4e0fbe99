package graph

// CloneGraph deep-copies every live node (via Node.Clone) and every edge
// into a fresh AudioGraph with the same block size, sample rate, MIDI-target
// set, and output-node designation. Used by the voice allocator to
// instantiate one graph per voice from a template.
func (g *AudioGraph) CloneGraph() *AudioGraph {
	clone := New(g.blockSize)
	clone.sampleRate = g.sampleRate

	// old slot index -> new handle, so edges can be remapped.
	remap := make(map[uint32]Handle, len(g.slots))

	for i := range g.slots {
		s := &g.slots[i]
		if !s.alive {
			continue
		}
		h := clone.AddNode(s.node.Clone())
		remap[uint32(i)] = h
		if s.isMidiTarget {
			clone.SetMidiTarget(h, true)
		}
	}

	for _, e := range g.edges {
		from, ok1 := remap[e.From.Index]
		to, ok2 := remap[e.To.Index]
		if !ok1 || !ok2 {
			continue
		}
		// Already validated in the source graph; ignore the (impossible)
		// error from re-validating a known-good edge shape.
		_ = clone.Connect(from, e.FromPort, to, e.ToPort)
	}

	if g.hasOutputNode {
		if newHandle, ok := remap[g.outputNode.Index]; ok {
			clone.SetOutputNode(newHandle)
		}
	}

	return clone
}
