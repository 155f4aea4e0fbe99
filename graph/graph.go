package graph

import (
	"fmt"
)

// scratchSlots is the number of reusable scratch input buffers the engine
// keeps per signal kind, wide enough to cover any node in the catalog.
const scratchSlots = 16

type nodeSlot struct {
	node       Node
	generation uint32
	alive      bool

	// Output buffers, type-separated and indexed per typeLocalIndex.
	outAudioCV [][]float32
	outMidi    [][]MidiEvent

	isMidiTarget bool
}

// AudioGraph is a stable-handle directed graph of Nodes connected by typed
// edges. It is acyclic by construction: Connect rejects any edge that would
// create a path back to its source.
type AudioGraph struct {
	slots    []nodeSlot
	freeList []uint32
	edges    []Edge

	insertSeq []uint32 // slot index -> insertion order, for topo tie-breaks
	nextSeq   uint32

	outputNode    Handle
	hasOutputNode bool

	blockSize  int
	sampleRate float64

	audioCVScratch [scratchSlots][]float32
	midiScratch    [scratchSlots][]MidiEvent

	// Cached evaluation plan, rebuilt only when topology changes.
	planDirty bool
	topoOrder []uint32
	incoming  map[uint32][]Edge

	errorHandler ErrorHandler
}

// New creates an empty graph sized for blockSize frames per process call.
func New(blockSize int) *AudioGraph {
	if blockSize <= 0 {
		blockSize = 512
	}
	g := &AudioGraph{
		blockSize:    blockSize,
		sampleRate:   48000,
		planDirty:    true,
		incoming:     make(map[uint32][]Edge),
		errorHandler: NewDefaultErrorHandler(nil),
	}
	g.allocateScratch()
	return g
}

// SetSampleRate updates the rate passed to every node's Process call. It
// does not itself resize any node's internal buffers — nodes that own
// sample-rate-dependent state (delay lines, filters) re-derive their
// coefficients from the sampleRate argument they receive each block.
func (g *AudioGraph) SetSampleRate(sr float64) {
	if sr > 0 {
		g.sampleRate = sr
	}
}

// SampleRate returns the rate currently passed to nodes.
func (g *AudioGraph) SampleRate() float64 { return g.sampleRate }

// SetErrorHandler overrides how node-process faults are reported.
func (g *AudioGraph) SetErrorHandler(h ErrorHandler) {
	if h != nil {
		g.errorHandler = h
	}
}

// SetBlockSize resizes every node's output buffers and the scratch pool.
// Existing node state (parameters, internal DSP memory) is untouched; only
// buffer sizes change.
func (g *AudioGraph) SetBlockSize(blockSize int) {
	if blockSize <= 0 || blockSize == g.blockSize {
		return
	}
	g.blockSize = blockSize
	for i := range g.slots {
		if g.slots[i].alive {
			g.allocateNodeBuffers(uint32(i))
		}
	}
	g.allocateScratch()
}

func (g *AudioGraph) allocateScratch() {
	for i := 0; i < scratchSlots; i++ {
		g.audioCVScratch[i] = make([]float32, 2*g.blockSize)
		g.midiScratch[i] = make([]MidiEvent, 0, MaxMidiEventsPerBlock)
	}
}

func (g *AudioGraph) allocateNodeBuffers(idx uint32) {
	s := &g.slots[idx]
	outPorts := s.node.OutputPorts()
	audioCVCount, midiCount := countByKind(outPorts)

	s.outAudioCV = make([][]float32, audioCVCount)
	for _, p := range outPorts {
		local, isMidi, ok := typeLocalIndex(outPorts, p.Index)
		if !ok || isMidi {
			continue
		}
		size := g.blockSize
		if p.Type == Audio {
			size = 2 * g.blockSize
		}
		s.outAudioCV[local] = make([]float32, size)
	}
	s.outMidi = make([][]MidiEvent, midiCount)
	for i := range s.outMidi {
		s.outMidi[i] = make([]MidiEvent, 0, MaxMidiEventsPerBlock)
	}
}

// AddNode inserts a node into the graph, allocating its output buffers, and
// returns a stable handle.
func (g *AudioGraph) AddNode(n Node) Handle {
	var idx uint32
	if len(g.freeList) > 0 {
		idx = g.freeList[len(g.freeList)-1]
		g.freeList = g.freeList[:len(g.freeList)-1]
	} else {
		idx = uint32(len(g.slots))
		g.slots = append(g.slots, nodeSlot{})
		g.insertSeq = append(g.insertSeq, 0)
	}

	gen := g.slots[idx].generation + 1
	g.slots[idx] = nodeSlot{node: n, generation: gen, alive: true}
	g.insertSeq[idx] = g.nextSeq
	g.nextSeq++
	g.allocateNodeBuffers(idx)
	g.planDirty = true

	return Handle{Index: idx, Generation: gen}
}

func (g *AudioGraph) resolve(h Handle) (uint32, bool) {
	if int(h.Index) >= len(g.slots) {
		return 0, false
	}
	s := &g.slots[h.Index]
	if !s.alive || s.generation != h.Generation {
		return 0, false
	}
	return h.Index, true
}

// Node returns the live node behind a handle, if any.
func (g *AudioGraph) Node(h Handle) (Node, bool) {
	idx, ok := g.resolve(h)
	if !ok {
		return nil, false
	}
	return g.slots[idx].node, true
}

// RemoveNode drops a node, cascading removal of its incident edges, and
// clears it from the MIDI-target set and the output-node slot if referenced.
func (g *AudioGraph) RemoveNode(h Handle) {
	idx, ok := g.resolve(h)
	if !ok {
		return
	}

	filtered := g.edges[:0]
	for _, e := range g.edges {
		if e.From == h || e.To == h {
			continue
		}
		filtered = append(filtered, e)
	}
	g.edges = filtered

	if g.hasOutputNode && g.outputNode == h {
		g.hasOutputNode = false
		g.outputNode = Handle{}
	}

	g.slots[idx].alive = false
	g.slots[idx].node = nil
	g.slots[idx].outAudioCV = nil
	g.slots[idx].outMidi = nil
	g.freeList = append(g.freeList, idx)
	g.planDirty = true
}

// hasPath reports whether a directed path exists from `from` to `to` using
// only currently-alive edges.
func (g *AudioGraph) hasPath(from, to Handle) bool {
	if from == to {
		return true
	}
	visited := map[Handle]bool{from: true}
	stack := []Handle{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.edges {
			if e.From != cur {
				continue
			}
			if e.To == to {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// Connect validates port indices and signal types, rejects cycles, and adds
// the edge. Connecting an already-identical edge is idempotent.
func (g *AudioGraph) Connect(from Handle, fromPort int, to Handle, toPort int) error {
	fromNode, ok := g.Node(from)
	if !ok {
		return fmt.Errorf("connect: source: %w", ErrUnknownHandle)
	}
	toNode, ok := g.Node(to)
	if !ok {
		return fmt.Errorf("connect: destination: %w", ErrUnknownHandle)
	}

	outPorts := fromNode.OutputPorts()
	inPorts := toNode.InputPorts()
	if fromPort < 0 || fromPort >= len(outPorts) {
		return fmt.Errorf("connect: source port %d: %w", fromPort, ErrInvalidPort)
	}
	if toPort < 0 || toPort >= len(inPorts) {
		return fmt.Errorf("connect: destination port %d: %w", toPort, ErrInvalidPort)
	}

	fromType := outPorts[fromPort].Type
	toType := inPorts[toPort].Type
	if fromType != toType {
		return &TypeMismatchError{Expected: toType, Got: fromType}
	}

	for _, e := range g.edges {
		if e.From == from && e.FromPort == fromPort && e.To == to && e.ToPort == toPort {
			return nil // idempotent
		}
	}

	if g.hasPath(to, from) {
		return fmt.Errorf("connect: %w", ErrWouldCreateCycle)
	}

	g.edges = append(g.edges, Edge{From: from, FromPort: fromPort, To: to, ToPort: toPort})
	g.planDirty = true
	return nil
}

// Disconnect removes exactly the matching edge if present; a no-op
// otherwise.
func (g *AudioGraph) Disconnect(from Handle, fromPort int, to Handle, toPort int) {
	for i, e := range g.edges {
		if e.From == from && e.FromPort == fromPort && e.To == to && e.ToPort == toPort {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.planDirty = true
			return
		}
	}
}

// SetMidiTarget marks/unmarks a node as a sink for incoming live MIDI.
func (g *AudioGraph) SetMidiTarget(h Handle, on bool) {
	idx, ok := g.resolve(h)
	if !ok {
		return
	}
	g.slots[idx].isMidiTarget = on
}

// IsMidiTarget reports whether h is currently marked as a live-MIDI sink.
func (g *AudioGraph) IsMidiTarget(h Handle) bool {
	idx, ok := g.resolve(h)
	if !ok {
		return false
	}
	return g.slots[idx].isMidiTarget
}

// SetOutputNode designates the node whose first output port is mixed into
// the graph's final stereo result.
func (g *AudioGraph) SetOutputNode(h Handle) {
	if _, ok := g.resolve(h); !ok {
		g.hasOutputNode = false
		return
	}
	g.outputNode = h
	g.hasOutputNode = true
}

// OutputNode returns the currently designated output node, if any.
func (g *AudioGraph) OutputNode() (Handle, bool) {
	return g.outputNode, g.hasOutputNode
}

// Reset calls Reset on every node.
func (g *AudioGraph) Reset() {
	for i := range g.slots {
		if g.slots[i].alive {
			g.slots[i].node.Reset()
		}
	}
}

// Edges returns a copy of the current edge list, for preset serialization.
func (g *AudioGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Nodes returns every live (handle, node) pair, in insertion order.
func (g *AudioGraph) Nodes() []struct {
	Handle Handle
	Node   Node
} {
	type pair struct {
		Handle Handle
		Node   Node
	}
	var out []pair
	order := g.insertionOrder()
	for _, idx := range order {
		s := &g.slots[idx]
		out = append(out, pair{Handle: Handle{Index: idx, Generation: s.generation}, Node: s.node})
	}
	result := make([]struct {
		Handle Handle
		Node   Node
	}, len(out))
	for i, p := range out {
		result[i] = struct {
			Handle Handle
			Node   Node
		}{p.Handle, p.Node}
	}
	return result
}

func (g *AudioGraph) insertionOrder() []uint32 {
	idxs := make([]uint32, 0, len(g.slots))
	for i := range g.slots {
		if g.slots[i].alive {
			idxs = append(idxs, uint32(i))
		}
	}
	for i := 1; i < len(idxs); i++ {
		for j := i; j > 0 && g.insertSeq[idxs[j-1]] > g.insertSeq[idxs[j]]; j-- {
			idxs[j-1], idxs[j] = idxs[j], idxs[j-1]
		}
	}
	return idxs
}
