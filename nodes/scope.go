package nodes

import "github.com/beamforge/beam/graph"

// Oscilloscope is a pass-through audio/CV tap that buffers recent samples
// into fixed-size ring buffers, readable from the control thread via
// Snapshot without touching audio-thread state.
type Oscilloscope struct {
	audioRing  []float32
	cvRing     []float32
	audioWrite int
	cvWrite    int
	audioFull  bool
	cvFull     bool
}

const scopeDefaultSamples = 2048

func NewOscilloscope() *Oscilloscope {
	return &Oscilloscope{
		audioRing: make([]float32, scopeDefaultSamples*2),
		cvRing:    make([]float32, scopeDefaultSamples),
	}
}

// SetCapacity resizes the ring buffers to hold the requested number of
// audio frames / CV samples, discarding buffered history.
func (o *Oscilloscope) SetCapacity(samples int) {
	if samples <= 0 {
		samples = scopeDefaultSamples
	}
	o.audioRing = make([]float32, samples*2)
	o.cvRing = make([]float32, samples)
	o.audioWrite, o.cvWrite, o.audioFull, o.cvFull = 0, 0, false, false
}

func (o *Oscilloscope) TypeTag() string { return TagOscilloscope }
func (o *Oscilloscope) InputPorts() []graph.Port {
	return ports(audioPort("in"), cvPort("cv_in"))
}
func (o *Oscilloscope) OutputPorts() []graph.Port {
	return ports(audioPort("out"), cvPort("cv_out"))
}
func (o *Oscilloscope) Parameters() []graph.Parameter    { return nil }
func (o *Oscilloscope) GetParameter(int) (float64, bool) { return 0, false }
func (o *Oscilloscope) SetParameter(int, float64) bool   { return false }
func (o *Oscilloscope) Reset() {
	for i := range o.audioRing {
		o.audioRing[i] = 0
	}
	for i := range o.cvRing {
		o.cvRing[i] = 0
	}
	o.audioWrite, o.cvWrite, o.audioFull, o.cvFull = 0, 0, false, false
}

func (o *Oscilloscope) Clone() graph.Node {
	cp := &Oscilloscope{
		audioRing: make([]float32, len(o.audioRing)),
		cvRing:    make([]float32, len(o.cvRing)),
	}
	copy(cp.audioRing, o.audioRing)
	copy(cp.cvRing, o.cvRing)
	cp.audioWrite, cp.cvWrite, cp.audioFull, cp.cvFull = o.audioWrite, o.cvWrite, o.audioFull, o.cvFull
	return cp
}

func (o *Oscilloscope) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	in := audioCVIn[0]
	out := audioCVOut[0]
	n := len(out)
	if len(in) < n {
		n = len(in)
	}
	copy(out[:n], in[:n])
	for i := 0; i < n; i++ {
		if len(o.audioRing) == 0 {
			break
		}
		o.audioRing[o.audioWrite] = in[i]
		o.audioWrite++
		if o.audioWrite >= len(o.audioRing) {
			o.audioWrite = 0
			o.audioFull = true
		}
	}

	cvIn := audioCVIn[1]
	cvOut := audioCVOut[1]
	m := len(cvOut)
	if len(cvIn) < m {
		m = len(cvIn)
	}
	copy(cvOut[:m], cvIn[:m])
	for i := 0; i < m; i++ {
		if len(o.cvRing) == 0 {
			break
		}
		o.cvRing[o.cvWrite] = cvIn[i]
		o.cvWrite++
		if o.cvWrite >= len(o.cvRing) {
			o.cvWrite = 0
			o.cvFull = true
		}
	}
}

// Snapshot implements graph.Scope: returns the buffered history in
// chronological order (oldest sample first).
func (o *Oscilloscope) Snapshot() (audio []float32, cv []float32) {
	audio = ringSnapshot(o.audioRing, o.audioWrite, o.audioFull)
	cv = ringSnapshot(o.cvRing, o.cvWrite, o.cvFull)
	return
}

func ringSnapshot(ring []float32, writePos int, full bool) []float32 {
	if len(ring) == 0 {
		return nil
	}
	if !full {
		out := make([]float32, writePos)
		copy(out, ring[:writePos])
		return out
	}
	out := make([]float32, len(ring))
	copy(out, ring[writePos:])
	copy(out[len(ring)-writePos:], ring[:writePos])
	return out
}
