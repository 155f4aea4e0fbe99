package nodes

import "github.com/beamforge/beam/graph"

// Type tags: the stable identifiers used by presets and by the registry.
// Every entry here has a matching factory registered in init().
const (
	TagOscillator        = "oscillator"
	TagWavetable         = "wavetable"
	TagNoise             = "noise"
	TagConstant          = "constant"
	TagMidiToCV          = "midi_to_cv"
	TagCVToAudio         = "cv_to_audio"
	TagBiquadFilter      = "biquad_filter"
	TagStateVariable     = "state_variable_filter"
	TagParametricEQ      = "parametric_eq"
	TagGain              = "gain"
	TagPan               = "pan"
	TagMixer             = "mixer"
	TagADSR              = "adsr"
	TagLFO               = "lfo"
	TagDelay             = "delay"
	TagReverb            = "reverb"
	TagChorus            = "chorus"
	TagFlanger           = "flanger"
	TagPhaser            = "phaser"
	TagCompressor        = "compressor"
	TagLimiter           = "limiter"
	TagDistortion        = "distortion"
	TagBitcrusher        = "bitcrusher"
	TagRingModulator     = "ring_modulator"
	TagVocoder           = "vocoder"
	TagEnvelopeFollower  = "envelope_follower"
	TagSampleAndHold     = "sample_and_hold"
	TagSlewLimiter       = "slew_limiter"
	TagMath              = "math"
	TagQuantizer         = "quantizer"
	TagSplitter          = "splitter"
	TagSampler           = "sampler"
	TagMultiSampler      = "multi_sampler"
	TagFMSynth           = "fm_synth"
	TagAutomationInput   = "automation_input"
	TagAudioInput        = "audio_input"
	TagAudioOutput       = "audio_output"
	TagMidiInput         = "midi_input"
	TagMidiOutput        = "midi_output"
	TagTemplateInputPin  = "template_input_pin"
	TagTemplateOutputPin = "template_output_pin"
	TagOscilloscope      = "oscilloscope"
)

var registry = map[string]graph.Factory{}

func register(tag string, f graph.Factory) {
	registry[tag] = f
}

// New constructs a fresh node of the given type tag, or (nil, false) if the
// tag is unknown — the preset loader surfaces that as
// persist.ErrUnknownNodeType.
func New(tag string) (graph.Node, bool) {
	f, ok := registry[tag]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Tags returns every registered type tag, for catalog listings.
func Tags() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

func init() {
	register(TagOscillator, func() graph.Node { return NewOscillator() })
	register(TagWavetable, func() graph.Node { return NewWavetable() })
	register(TagNoise, func() graph.Node { return NewNoise() })
	register(TagConstant, func() graph.Node { return NewConstant() })
	register(TagLFO, func() graph.Node { return NewLFO() })
	register(TagSampleAndHold, func() graph.Node { return NewSampleAndHold() })
	register(TagSlewLimiter, func() graph.Node { return NewSlewLimiter() })

	register(TagMidiToCV, func() graph.Node { return NewMidiToCV() })
	register(TagCVToAudio, func() graph.Node { return NewCVToAudio() })
	register(TagQuantizer, func() graph.Node { return NewQuantizer() })
	register(TagAutomationInput, func() graph.Node { return NewAutomationInput() })
	register(TagAudioInput, func() graph.Node { return NewAudioInput() })
	register(TagAudioOutput, func() graph.Node { return NewAudioOutput() })
	register(TagMidiInput, func() graph.Node { return NewMidiInput() })
	register(TagMidiOutput, func() graph.Node { return NewMidiOutput() })
	register(TagTemplateInputPin, func() graph.Node { return NewTemplateInputPin() })
	register(TagTemplateOutputPin, func() graph.Node { return NewTemplateOutputPin() })

	register(TagBiquadFilter, func() graph.Node { return NewBiquadFilter() })
	register(TagStateVariable, func() graph.Node { return NewStateVariableFilter() })
	register(TagParametricEQ, func() graph.Node { return NewParametricEQ() })

	register(TagGain, func() graph.Node { return NewGain() })
	register(TagPan, func() graph.Node { return NewPan() })
	register(TagMixer, func() graph.Node { return NewMixer(4) })
	register(TagSplitter, func() graph.Node { return NewSplitter() })
	register(TagMath, func() graph.Node { return NewMathNode() })

	register(TagADSR, func() graph.Node { return NewADSR() })
	register(TagEnvelopeFollower, func() graph.Node { return NewEnvelopeFollower() })

	register(TagDelay, func() graph.Node { return NewDelay() })
	register(TagReverb, func() graph.Node { return NewReverb() })
	register(TagChorus, func() graph.Node { return NewChorus() })
	register(TagFlanger, func() graph.Node { return NewFlanger() })
	register(TagPhaser, func() graph.Node { return NewPhaser() })
	register(TagCompressor, func() graph.Node { return NewCompressor() })
	register(TagLimiter, func() graph.Node { return NewLimiter() })
	register(TagDistortion, func() graph.Node { return NewDistortion() })
	register(TagBitcrusher, func() graph.Node { return NewBitcrusher() })
	register(TagRingModulator, func() graph.Node { return NewRingModulator() })
	register(TagVocoder, func() graph.Node { return NewVocoder() })

	register(TagSampler, func() graph.Node { return NewSampler() })
	register(TagMultiSampler, func() graph.Node { return NewMultiSampler() })
	register(TagFMSynth, func() graph.Node { return NewFMSynth() })
	register(TagOscilloscope, func() graph.Node { return NewOscilloscope() })
}
