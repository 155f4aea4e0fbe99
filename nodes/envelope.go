package nodes

import (
	"github.com/beamforge/beam/dsp"
	"github.com/beamforge/beam/graph"
)

type envStage int

const (
	envIdle envStage = iota
	envAttackStage
	envDecayStage
	envSustainStage
	envReleaseStage
)

// ADSR is a classic four-stage envelope generator driven by a gate CV
// input (>=0.5 triggers attack, <0.5 triggers release) and producing a 0-1
// CV output. EndOfTail reports whether the envelope has fully decayed,
// which VoiceAllocator uses to retire a releasing voice.
type ADSR struct {
	paramSet
	stage envStage
	level float64
}

const (
	adsrParamAttack = iota
	adsrParamDecay
	adsrParamSustain
	adsrParamRelease
)

func NewADSR() *ADSR {
	return &ADSR{paramSet: newParamSet([]graph.Parameter{
		{ID: adsrParamAttack, Name: "attack", Min: 0.0001, Max: 20, Default: 0.01, Unit: "s"},
		{ID: adsrParamDecay, Name: "decay", Min: 0.0001, Max: 20, Default: 0.1, Unit: "s"},
		{ID: adsrParamSustain, Name: "sustain", Min: 0, Max: 1, Default: 0.7, Unit: ""},
		{ID: adsrParamRelease, Name: "release", Min: 0.0001, Max: 20, Default: 0.3, Unit: "s"},
	})}
}

func (a *ADSR) TypeTag() string           { return TagADSR }
func (a *ADSR) InputPorts() []graph.Port  { return ports(cvPort("gate")) }
func (a *ADSR) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (a *ADSR) Reset()                    { a.stage, a.level = envIdle, 0 }
func (a *ADSR) Clone() graph.Node         { return &ADSR{paramSet: a.paramSet.clone()} }

// EndOfTail reports whether the envelope has finished releasing back to
// (near) silence — the voice allocator's idle-transition watchdog.
func (a *ADSR) EndOfTail() bool { return a.stage == envIdle }

func (a *ADSR) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	attack := a.val(adsrParamAttack)
	decay := a.val(adsrParamDecay)
	sustain := a.val(adsrParamSustain)
	release := a.val(adsrParamRelease)

	gate := audioCVIn[0]
	out := audioCVOut[0]
	prevGateHigh := a.stage != envIdle && a.stage != envReleaseStage

	for i := range out {
		var g float64
		if i < len(gate) {
			g = float64(gate[i])
		}
		gateHigh := g >= 0.5
		if gateHigh && !prevGateHigh {
			a.stage = envAttackStage
		} else if !gateHigh && prevGateHigh {
			a.stage = envReleaseStage
		}
		prevGateHigh = gateHigh

		switch a.stage {
		case envAttackStage:
			step := 1.0 / (attack * sampleRate)
			a.level += step
			if a.level >= 1 {
				a.level = 1
				a.stage = envDecayStage
			}
		case envDecayStage:
			step := (1 - sustain) / (decay * sampleRate)
			a.level -= step
			if a.level <= sustain {
				a.level = sustain
				a.stage = envSustainStage
			}
		case envSustainStage:
			a.level = sustain
		case envReleaseStage:
			step := sustain / (release * sampleRate)
			if step <= 0 {
				step = 1
			}
			a.level -= step
			if a.level <= 0.0005 {
				a.level = 0
				a.stage = envIdle
			}
		case envIdle:
			a.level = 0
		}
		out[i] = float32(a.level)
	}
}

// EnvelopeFollower tracks the amplitude envelope of an audio input using an
// asymmetric one-pole smoother (fast attack, slower release), emitting a CV
// output.
type EnvelopeFollower struct {
	paramSet
	attackPole  dsp.OnePole
	releasePole dsp.OnePole
	state       float64
}

const (
	envFollowParamAttack = iota
	envFollowParamRelease
)

func NewEnvelopeFollower() *EnvelopeFollower {
	return &EnvelopeFollower{paramSet: newParamSet([]graph.Parameter{
		{ID: envFollowParamAttack, Name: "attack", Min: 0.0001, Max: 1, Default: 0.01, Unit: "s"},
		{ID: envFollowParamRelease, Name: "release", Min: 0.0001, Max: 5, Default: 0.2, Unit: "s"},
	})}
}

func (e *EnvelopeFollower) TypeTag() string           { return TagEnvelopeFollower }
func (e *EnvelopeFollower) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (e *EnvelopeFollower) OutputPorts() []graph.Port { return ports(cvPort("out")) }
func (e *EnvelopeFollower) Reset() {
	e.attackPole.Reset()
	e.releasePole.Reset()
	e.state = 0
}
func (e *EnvelopeFollower) Clone() graph.Node {
	return &EnvelopeFollower{paramSet: e.paramSet.clone()}
}

func (e *EnvelopeFollower) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	e.attackPole.SetTimeConstant(e.val(envFollowParamAttack), sampleRate)
	e.releasePole.SetTimeConstant(e.val(envFollowParamRelease), sampleRate)

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out); i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		rectified := float64(l)
		if rectified < 0 {
			rectified = -rectified
		}
		absR := float64(r)
		if absR < 0 {
			absR = -absR
		}
		if absR > rectified {
			rectified = absR
		}

		if rectified > e.state {
			e.state = e.attackPole.Process(rectified)
			e.releasePole.SetState(e.state)
		} else {
			e.state = e.releasePole.Process(rectified)
			e.attackPole.SetState(e.state)
		}
		out[i] = float32(e.state)
	}
}
