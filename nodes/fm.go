package nodes

import (
	"math"

	"github.com/beamforge/beam/graph"
)

// FMSynth is a two-operator phase-modulation voice: a modulator sine
// oscillator's output, scaled by index, is added to the carrier's phase. ratio sets the modulator frequency as a multiple of the
// carrier frequency, matching the classic DX-style operator pair.
type FMSynth struct {
	paramSet
	carrierPhase   float64
	modulatorPhase float64
}

const (
	fmParamFreq = iota
	fmParamRatio
	fmParamIndex
	fmParamAmplitude
)

func NewFMSynth() *FMSynth {
	return &FMSynth{paramSet: newParamSet([]graph.Parameter{
		{ID: fmParamFreq, Name: "frequency", Min: 0.01, Max: 20000, Default: 220, Unit: "hz"},
		{ID: fmParamRatio, Name: "ratio", Min: 0.01, Max: 32, Default: 2, Unit: ""},
		{ID: fmParamIndex, Name: "index", Min: 0, Max: 50, Default: 3, Unit: ""},
		{ID: fmParamAmplitude, Name: "amplitude", Min: 0, Max: 1, Default: 0.8, Unit: ""},
	})}
}

func (f *FMSynth) TypeTag() string { return TagFMSynth }
func (f *FMSynth) InputPorts() []graph.Port {
	return ports(cvPort("pitch_mod"), cvPort("index_mod"))
}
func (f *FMSynth) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (f *FMSynth) Reset()                    { f.carrierPhase, f.modulatorPhase = 0, 0 }
func (f *FMSynth) Clone() graph.Node {
	return &FMSynth{paramSet: f.paramSet.clone(), carrierPhase: f.carrierPhase, modulatorPhase: f.modulatorPhase}
}

func (f *FMSynth) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	freq := f.val(fmParamFreq)
	ratio := f.val(fmParamRatio)
	index := f.val(fmParamIndex)
	amp := f.val(fmParamAmplitude)
	out := audioCVOut[0]

	var pitchMod, indexMod []float32
	if len(audioCVIn) > 0 {
		pitchMod = audioCVIn[0]
	}
	if len(audioCVIn) > 1 {
		indexMod = audioCVIn[1]
	}

	frames := len(out) / 2
	for i := 0; i < frames; i++ {
		carrierFreq := freq
		if i < len(pitchMod) {
			carrierFreq *= math.Pow(2, float64(pitchMod[i]))
		}
		modFreq := carrierFreq * ratio

		idx := index
		if i < len(indexMod) {
			idx += float64(indexMod[i])
		}

		modulator := math.Sin(f.modulatorPhase)
		s := math.Sin(f.carrierPhase + idx*modulator)
		v := float32(s * amp)
		out[2*i] = v
		out[2*i+1] = v

		f.carrierPhase += twoPi * carrierFreq / sampleRate
		for f.carrierPhase >= twoPi {
			f.carrierPhase -= twoPi
		}
		f.modulatorPhase += twoPi * modFreq / sampleRate
		for f.modulatorPhase >= twoPi {
			f.modulatorPhase -= twoPi
		}
	}
}
