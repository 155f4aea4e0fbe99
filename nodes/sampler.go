package nodes

import (
	"math"

	"github.com/beamforge/beam/dsp"
	"github.com/beamforge/beam/graph"
)

// Sampler plays back a single loaded PCM buffer at a pitch/gate-driven rate,
// resampling with dsp.SincSample and mapping the source's channel count onto
// the engine's stereo output per a selectable dsp.ChannelMapMode.
type Sampler struct {
	paramSet
	pcm        []float32
	channels   int
	sourceRate float64
	pos        float64
	playing    bool
	prevGate   float64
	loopStart  float64
	loopEnd    float64
	loopMode   int // 0=one-shot, 1=loop, 2=ping-pong
	direction  float64
}

const samplerParamChannelMap = 0

func NewSampler() *Sampler {
	return &Sampler{
		paramSet: newParamSet([]graph.Parameter{
			{ID: samplerParamChannelMap, Name: "channel_map", Min: 0, Max: 3, Default: 0, Unit: ""},
		}),
		sourceRate: 48000,
		direction:  1,
	}
}

func (s *Sampler) TypeTag() string { return TagSampler }
func (s *Sampler) InputPorts() []graph.Port {
	return ports(cvPort("pitch"), cvPort("gate"))
}
func (s *Sampler) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (s *Sampler) Reset() {
	s.pos, s.playing, s.prevGate, s.direction = 0, false, 0, 1
}
func (s *Sampler) Clone() graph.Node {
	cp := make([]float32, len(s.pcm))
	copy(cp, s.pcm)
	return &Sampler{
		paramSet: s.paramSet.clone(), pcm: cp, channels: s.channels, sourceRate: s.sourceRate,
		loopStart: s.loopStart, loopEnd: s.loopEnd, loopMode: s.loopMode, direction: 1,
	}
}

// SetSample implements graph.SampleSettable.
func (s *Sampler) SetSample(channels int, sampleRate float64, pcm []float32) error {
	if channels <= 0 {
		channels = 1
	}
	s.channels = channels
	s.sourceRate = sampleRate
	s.pcm = pcm
	frames := float64(len(pcm) / channels)
	s.loopStart, s.loopEnd = 0, frames
	return nil
}

// Sample returns the currently loaded PCM content, for preset saving.
func (s *Sampler) Sample() (channels int, sampleRate float64, pcm []float32) {
	return s.channels, s.sourceRate, s.pcm
}

// SetLoop configures looped playback over [start, end) source frames.
func (s *Sampler) SetLoop(mode int, startFrame, endFrame float64) {
	s.loopMode = mode
	s.loopStart, s.loopEnd = startFrame, endFrame
}

func (s *Sampler) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	out := audioCVOut[0]
	if len(s.pcm) == 0 || s.channels == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	mapMode := dsp.ChannelMapMode(int(s.val(samplerParamChannelMap)))

	pitch := audioCVIn[0]
	gate := audioCVIn[1]
	frameCount := len(s.pcm) / s.channels

	for i, n := 0, len(out)/2; i < n; i++ {
		var p, g float64
		if i < len(pitch) {
			p = float64(pitch[i])
		}
		if i < len(gate) {
			g = float64(gate[i])
		}
		gateHigh := g >= 0.5
		if gateHigh && s.prevGate < 0.5 {
			s.pos = 0
			s.playing = true
			s.direction = 1
		} else if !gateHigh {
			s.playing = false
		}
		s.prevGate = g

		var l, r float32
		if s.playing {
			ch0, avg0 := dsp.ResolveChannel(mapMode, s.channels, 0)
			ch1, avg1 := dsp.ResolveChannel(mapMode, s.channels, 1)
			if avg0 {
				l = dsp.AverageFrame(s.pcm, s.channels, s.pos)
			} else {
				l = dsp.SincSample(s.pcm, s.channels, ch0, s.pos)
			}
			if avg1 {
				r = dsp.AverageFrame(s.pcm, s.channels, s.pos)
			} else {
				r = dsp.SincSample(s.pcm, s.channels, ch1, s.pos)
			}

			advance := (s.sourceRate / sampleRate) * pow2(p)
			s.pos += advance * s.direction

			s.applyLoop(float64(frameCount))
		}
		out[2*i] = l
		out[2*i+1] = r
	}
}

func (s *Sampler) applyLoop(frameCount float64) {
	end := s.loopEnd
	if end <= 0 || end > frameCount {
		end = frameCount
	}
	start := s.loopStart
	switch s.loopMode {
	case 1: // loop
		if s.pos >= end {
			span := end - start
			if span <= 0 {
				s.pos = start
				return
			}
			for s.pos >= end {
				s.pos -= span
			}
		}
	case 2: // ping-pong
		if s.pos >= end {
			s.pos = end - (s.pos - end)
			s.direction = -1
		} else if s.pos <= start {
			s.pos = start + (start - s.pos)
			s.direction = 1
		}
	default: // one-shot
		if s.pos >= frameCount {
			s.playing = false
			s.pos = frameCount
		}
	}
}

func pow2(octaves float64) float64 {
	if octaves == 0 {
		return 1
	}
	return exp2(octaves)
}

func exp2(x float64) float64 { return math.Pow(2, x) }

// SamplerLayer describes one zone of a MultiSampler's keymap.
type SamplerLayer struct {
	KeyMin, KeyMax           int
	RootKey                  int
	VelocityMin, VelocityMax int
	LoopStart, LoopEnd       float64
	LoopMode                 int
	Channels                 int
	SourceRate               float64
	PCM                      []float32
}

type multiVoice struct {
	layer   *SamplerLayer
	pos     float64
	gain    float64
	note    int
	playing bool
}

// MultiSampler maps an incoming MIDI note-on to the first layer (in
// insertion order) whose key/velocity range covers it, then plays that
// layer back pitch-shifted relative to its root_key.
type MultiSampler struct {
	layers []SamplerLayer
	voice  multiVoice
}

func NewMultiSampler() *MultiSampler { return &MultiSampler{} }

// AddLayer appends a keymap zone. Layers are matched in the order added.
func (m *MultiSampler) AddLayer(l SamplerLayer) {
	m.layers = append(m.layers, l)
}

// Layers returns the multi-sampler's keymap zones, for preset saving.
func (m *MultiSampler) Layers() []SamplerLayer { return m.layers }

func (m *MultiSampler) TypeTag() string                  { return TagMultiSampler }
func (m *MultiSampler) InputPorts() []graph.Port         { return ports(midiPort("midi_in")) }
func (m *MultiSampler) OutputPorts() []graph.Port        { return ports(audioPort("out")) }
func (m *MultiSampler) Parameters() []graph.Parameter    { return nil }
func (m *MultiSampler) GetParameter(int) (float64, bool) { return 0, false }
func (m *MultiSampler) SetParameter(int, float64) bool   { return false }
func (m *MultiSampler) Reset()                           { m.voice = multiVoice{} }

func (m *MultiSampler) Clone() graph.Node {
	layers := make([]SamplerLayer, len(m.layers))
	copy(layers, m.layers)
	return &MultiSampler{layers: layers}
}

func (m *MultiSampler) resolveLayer(note, velocity int) *SamplerLayer {
	for i := range m.layers {
		l := &m.layers[i]
		if note < l.KeyMin || note > l.KeyMax {
			continue
		}
		if velocity < l.VelocityMin || velocity > l.VelocityMax {
			continue
		}
		return l
	}
	return nil
}

func (m *MultiSampler) Process(_, audioCVOut [][]float32, midiIn, _ [][]graph.MidiEvent, sampleRate float64) {
	for _, e := range midiIn[0] {
		status := e.Status & 0xF0
		switch status {
		case 0x90:
			if e.Data2 == 0 {
				m.voice.playing = false
				continue
			}
			if l := m.resolveLayer(int(e.Data1), int(e.Data2)); l != nil {
				m.voice = multiVoice{layer: l, pos: 0, playing: true, note: int(e.Data1), gain: float64(e.Data2) / 127.0}
			}
		case 0x80:
			if m.voice.note == int(e.Data1) {
				m.voice.playing = false
			}
		}
	}

	out := audioCVOut[0]
	v := &m.voice
	if !v.playing || v.layer == nil || len(v.layer.PCM) == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	l := v.layer
	semis := v.note - l.RootKey
	pitchRatio := exp2(float64(semis) / 12.0)
	frameCount := len(l.PCM) / l.Channels
	loopEnd := l.LoopEnd
	if loopEnd <= 0 || loopEnd > float64(frameCount) {
		loopEnd = float64(frameCount)
	}

	for i, n := 0, len(out)/2; i < n; i++ {
		var lch, rch float32
		if v.playing {
			lch = dsp.SincSample(l.PCM, l.Channels, 0, v.pos)
			rc := 1
			if l.Channels < 2 {
				rc = 0
			}
			rch = dsp.SincSample(l.PCM, l.Channels, rc, v.pos)
			v.pos += (l.SourceRate / sampleRate) * pitchRatio
			if l.LoopMode == 1 {
				span := loopEnd - l.LoopStart
				if span > 0 {
					for v.pos >= loopEnd {
						v.pos -= span
					}
				}
			} else if v.pos >= float64(frameCount) {
				v.playing = false
			}
		}
		out[2*i] = lch * float32(v.gain)
		out[2*i+1] = rch * float32(v.gain)
	}
}
