package arranger

import "github.com/beamforge/beam/dsp"

// AudioFile is decoded PCM content backing one AudioClipPool entry
// (produced by package audioio; kept signal-agnostic here).
type AudioFile struct {
	Channels   int
	SampleRate float64
	PCM        []float32 // interleaved
	Path       string    // original source file, empty if decoded from embedded bundle bytes
}

// DurationSeconds returns the file's length.
func (f *AudioFile) DurationSeconds() float64 {
	if f.Channels == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := len(f.PCM) / f.Channels
	return float64(frames) / f.SampleRate
}

// AudioClipPool is the shared table of decoded audio content that
// AudioTrack clip instances index into by PoolIndex.
type AudioClipPool struct {
	entries []*AudioFile
}

func NewAudioClipPool() *AudioClipPool { return &AudioClipPool{} }

// Add appends a decoded file and returns its pool index.
func (p *AudioClipPool) Add(f *AudioFile) int {
	p.entries = append(p.entries, f)
	return len(p.entries) - 1
}

func (p *AudioClipPool) Get(index int) *AudioFile {
	if index < 0 || index >= len(p.entries) {
		return nil
	}
	return p.entries[index]
}

// ReadStereo resamples frameCount engine-rate frames of pool entry index,
// starting offsetSeconds into the source, into the stereo-interleaved out
// buffer at engine sampleRate, via the shared windowed-sinc kernel also used by
// the sampler node's playback resampling.
func (p *AudioClipPool) ReadStereo(index int, offsetSeconds float64, frameCount int, sampleRate float64, out []float32) {
	f := p.Get(index)
	if f == nil || f.Channels == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}
	ratio := f.SampleRate / sampleRate
	startFrame := offsetSeconds * f.SampleRate
	for i := 0; i < frameCount; i++ {
		pos := startFrame + float64(i)*ratio
		ch0, avg0 := dsp.ResolveChannel(dsp.ChannelMapDirect, f.Channels, 0)
		ch1, avg1 := dsp.ResolveChannel(dsp.ChannelMapDirect, f.Channels, 1)
		var l, r float32
		if avg0 {
			l = dsp.AverageFrame(f.PCM, f.Channels, pos)
		} else {
			l = dsp.SincSample(f.PCM, f.Channels, ch0, pos)
		}
		if avg1 {
			r = dsp.AverageFrame(f.PCM, f.Channels, pos)
		} else {
			r = dsp.SincSample(f.PCM, f.Channels, ch1, pos)
		}
		if 2*i+1 < len(out) {
			out[2*i] = l
			out[2*i+1] = r
		}
	}
}

// MidiClip is a sequence of timestamped MIDI events relative to the
// clip's own start; clip-sourced MIDI keeps its original sample offset
// once translated into the block.
type MidiClip struct {
	Events          []MidiClipEvent
	DurationSeconds float64
}

// MidiClipEvent is one MIDI message at a clip-relative time offset.
type MidiClipEvent struct {
	TimeSeconds float64
	Status      uint8
	Data1       uint8
	Data2       uint8
}

// MidiClipPool is the shared table of MIDI clip content MidiTrack clip
// instances index into by PoolIndex.
type MidiClipPool struct {
	entries []*MidiClip
}

func NewMidiClipPool() *MidiClipPool { return &MidiClipPool{} }

func (p *MidiClipPool) Add(c *MidiClip) int {
	p.entries = append(p.entries, c)
	return len(p.entries) - 1
}

func (p *MidiClipPool) Get(index int) *MidiClip {
	if index < 0 || index >= len(p.entries) {
		return nil
	}
	return p.entries[index]
}

// BufferPool is a free-list of reusable scratch buffers sized to the
// engine's block size, letting Group recursion avoid allocating on the
// audio thread. Acquire/Release are O(1); the pool is
// owned and driven exclusively by the single audio thread, so no locking
// is needed (unlike BaseTrack's state, which control threads also touch).
type BufferPool struct {
	blockSize int
	channels  int
	free      [][]float32
}

// NewBufferPool creates a pool whose buffers hold blockSize frames of
// channels-interleaved audio.
func NewBufferPool(blockSize, channels int) *BufferPool {
	return &BufferPool{blockSize: blockSize, channels: channels}
}

// Acquire returns a zeroed scratch buffer, reusing one from the free list
// when available.
func (p *BufferPool) Acquire() []float32 {
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		for i := range buf {
			buf[i] = 0
		}
		return buf
	}
	return make([]float32, p.blockSize*p.channels)
}

// Release returns buf to the free list for reuse.
func (p *BufferPool) Release(buf []float32) {
	if len(buf) != p.blockSize*p.channels {
		return
	}
	p.free = append(p.free, buf)
}
