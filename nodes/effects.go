package nodes

import (
	"math"

	"github.com/beamforge/beam/dsp"
	"github.com/beamforge/beam/graph"
)

// Delay is a stereo feedback delay line, feedback clamped to
// dsp.MaxFeedback for BIBO stability.
type Delay struct {
	paramSet
	line *dsp.DelayLine
}

const (
	delayParamTime = iota
	delayParamFeedback
	delayParamMix
)

func NewDelay() *Delay {
	return &Delay{
		paramSet: newParamSet([]graph.Parameter{
			{ID: delayParamTime, Name: "time", Min: 0.001, Max: 4, Default: 0.3, Unit: "s"},
			{ID: delayParamFeedback, Name: "feedback", Min: 0, Max: dsp.MaxFeedback, Default: 0.35, Unit: ""},
			{ID: delayParamMix, Name: "mix", Min: 0, Max: 1, Default: 0.3, Unit: ""},
		}),
		line: dsp.NewDelayLine(4, 48000),
	}
}

func (d *Delay) TypeTag() string           { return TagDelay }
func (d *Delay) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (d *Delay) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (d *Delay) Reset()                    { d.line.Reset() }
func (d *Delay) Clone() graph.Node {
	return &Delay{paramSet: d.paramSet.clone(), line: dsp.NewDelayLine(4, 48000)}
}

func (d *Delay) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	if d.line.Len() == 0 || sampleRate != d.cachedRate() {
		d.line.Resize(4, sampleRate)
	}
	time := d.val(delayParamTime)
	feedback := float32(dsp.ClampFeedback(float32(d.val(delayParamFeedback))))
	mix := float32(d.val(delayParamMix))

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		dl := d.line.Read(0, time)
		dr := d.line.Read(1, time)
		d.line.Write(l+dl*feedback, r+dr*feedback)
		out[2*i] = l*(1-mix) + dl*mix
		out[2*i+1] = r*(1-mix) + dr*mix
	}
}

func (d *Delay) cachedRate() float64 { return d.line.SampleRateHint() }

// Reverb is a simple parallel-comb plus series-allpass reverberator (the
// classic Schroeder topology), built from four comb and two allpass delay
// lines with fixed tap times, driven by a single decay parameter.
type Reverb struct {
	paramSet
	combs     [4]*dsp.DelayLine
	allpasses [2]*dsp.DelayLine
}

const (
	reverbParamDecay = iota
	reverbParamMix
)

var combTapsSeconds = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
var allpassTapsSeconds = [2]float64{0.005, 0.0017}

func NewReverb() *Reverb {
	r := &Reverb{paramSet: newParamSet([]graph.Parameter{
		{ID: reverbParamDecay, Name: "decay", Min: 0, Max: 0.98, Default: 0.6, Unit: ""},
		{ID: reverbParamMix, Name: "mix", Min: 0, Max: 1, Default: 0.25, Unit: ""},
	})}
	for i := range r.combs {
		r.combs[i] = dsp.NewDelayLine(combTapsSeconds[i]+0.01, 48000)
	}
	for i := range r.allpasses {
		r.allpasses[i] = dsp.NewDelayLine(allpassTapsSeconds[i]+0.01, 48000)
	}
	return r
}

func (r *Reverb) TypeTag() string           { return TagReverb }
func (r *Reverb) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (r *Reverb) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (r *Reverb) Reset() {
	for _, c := range r.combs {
		c.Reset()
	}
	for _, a := range r.allpasses {
		a.Reset()
	}
}
func (r *Reverb) Clone() graph.Node { return NewReverbFrom(r) }

// NewReverbFrom copies parameter values into a fresh Reverb with its own
// delay-line state (reverb tails are not meaningfully shareable between
// clones).
func NewReverbFrom(src *Reverb) *Reverb {
	r := NewReverb()
	r.paramSet = src.paramSet.clone()
	return r
}

func (r *Reverb) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	decay := float32(r.val(reverbParamDecay))
	mix := float32(r.val(reverbParamMix))

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var dry float32
		if 2*i+1 < len(in) {
			dry = (in[2*i] + in[2*i+1]) / 2
		}

		var wet float32
		for c, line := range r.combs {
			d := line.Read(0, combTapsSeconds[c])
			line.Write(dry+d*decay, dry+d*decay)
			wet += d
		}
		wet /= float32(len(r.combs))

		for a, line := range r.allpasses {
			d := line.Read(0, allpassTapsSeconds[a])
			line.Write(wet+d*0.5, wet+d*0.5)
			wet = d - wet*0.5
		}

		l := dry*(1-mix) + wet*mix
		out[2*i] = l
		out[2*i+1] = l
	}
}

// Chorus modulates a short delay line's tap position with an LFO, producing
// a doubled/thickened sound.
type Chorus struct {
	paramSet
	line  *dsp.DelayLine
	phase float64
}

const (
	choursParamRate = iota
	chorusParamDepth
	chorusParamMix
)

func NewChorus() *Chorus {
	return &Chorus{
		paramSet: newParamSet([]graph.Parameter{
			{ID: choursParamRate, Name: "rate", Min: 0.01, Max: 10, Default: 0.5, Unit: "hz"},
			{ID: chorusParamDepth, Name: "depth", Min: 0, Max: 0.01, Default: 0.003, Unit: "s"},
			{ID: chorusParamMix, Name: "mix", Min: 0, Max: 1, Default: 0.5, Unit: ""},
		}),
		line: dsp.NewDelayLine(0.05, 48000),
	}
}

func (c *Chorus) TypeTag() string           { return TagChorus }
func (c *Chorus) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (c *Chorus) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (c *Chorus) Reset()                    { c.line.Reset(); c.phase = 0 }
func (c *Chorus) Clone() graph.Node {
	return &Chorus{paramSet: c.paramSet.clone(), line: dsp.NewDelayLine(0.05, 48000)}
}

func (c *Chorus) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	rate := c.val(choursParamRate)
	depth := c.val(chorusParamDepth)
	mix := float32(c.val(chorusParamMix))

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		mod := (math.Sin(c.phase) + 1) / 2 * depth
		d := c.line.Read(0, 0.01+mod)
		c.line.Write(l, r)
		out[2*i] = l*(1-mix) + d*mix
		out[2*i+1] = r*(1-mix) + d*mix

		c.phase += twoPi * rate / sampleRate
		for c.phase >= twoPi {
			c.phase -= twoPi
		}
	}
}

// Flanger is Chorus with a shorter delay range and feedback, producing the
// characteristic swept-comb-filter sound.
type Flanger struct {
	paramSet
	line  *dsp.DelayLine
	phase float64
}

const (
	flangerParamRate = iota
	flangerParamDepth
	flangerParamFeedback
	flangerParamMix
)

func NewFlanger() *Flanger {
	return &Flanger{
		paramSet: newParamSet([]graph.Parameter{
			{ID: flangerParamRate, Name: "rate", Min: 0.01, Max: 10, Default: 0.25, Unit: "hz"},
			{ID: flangerParamDepth, Name: "depth", Min: 0, Max: 0.005, Default: 0.002, Unit: "s"},
			{ID: flangerParamFeedback, Name: "feedback", Min: 0, Max: dsp.MaxFeedback, Default: 0.4, Unit: ""},
			{ID: flangerParamMix, Name: "mix", Min: 0, Max: 1, Default: 0.5, Unit: ""},
		}),
		line: dsp.NewDelayLine(0.02, 48000),
	}
}

func (f *Flanger) TypeTag() string           { return TagFlanger }
func (f *Flanger) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (f *Flanger) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (f *Flanger) Reset()                    { f.line.Reset(); f.phase = 0 }
func (f *Flanger) Clone() graph.Node {
	return &Flanger{paramSet: f.paramSet.clone(), line: dsp.NewDelayLine(0.02, 48000)}
}

func (f *Flanger) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	rate := f.val(flangerParamRate)
	depth := f.val(flangerParamDepth)
	feedback := float32(dsp.ClampFeedback(float32(f.val(flangerParamFeedback))))
	mix := float32(f.val(flangerParamMix))

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		mod := (math.Sin(f.phase) + 1) / 2 * depth
		d := f.line.Read(0, 0.001+mod)
		f.line.Write(l+d*feedback, r+d*feedback)
		out[2*i] = l*(1-mix) + d*mix
		out[2*i+1] = r*(1-mix) + d*mix

		f.phase += twoPi * rate / sampleRate
		for f.phase >= twoPi {
			f.phase -= twoPi
		}
	}
}

// Phaser sweeps a chain of notch biquads with an LFO to produce a moving
// notch pattern.
type Phaser struct {
	paramSet
	stages [4]dsp.Biquad
	phase  float64
}

const (
	phaserParamRate = iota
	phaserParamDepth
	phaserParamCenter
	phaserParamMix
)

func NewPhaser() *Phaser {
	return &Phaser{paramSet: newParamSet([]graph.Parameter{
		{ID: phaserParamRate, Name: "rate", Min: 0.01, Max: 10, Default: 0.3, Unit: "hz"},
		{ID: phaserParamDepth, Name: "depth", Min: 0, Max: 1, Default: 0.7, Unit: ""},
		{ID: phaserParamCenter, Name: "center", Min: 200, Max: 4000, Default: 800, Unit: "hz"},
		{ID: phaserParamMix, Name: "mix", Min: 0, Max: 1, Default: 0.5, Unit: ""},
	})}
}

func (p *Phaser) TypeTag() string           { return TagPhaser }
func (p *Phaser) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (p *Phaser) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (p *Phaser) Reset() {
	for i := range p.stages {
		p.stages[i].Reset()
	}
	p.phase = 0
}
func (p *Phaser) Clone() graph.Node { return &Phaser{paramSet: p.paramSet.clone()} }

func (p *Phaser) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	rate := p.val(phaserParamRate)
	depth := p.val(phaserParamDepth)
	center := p.val(phaserParamCenter)
	mix := float32(p.val(phaserParamMix))

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		sweep := (math.Sin(p.phase) + 1) / 2 * depth
		cutoff := center * (1 + sweep)
		for s := range p.stages {
			p.stages[s].Configure(dsp.BiquadNotch, cutoff, 0.7, 0, sampleRate)
		}
		wl, wr := float64(l), float64(r)
		for s := range p.stages {
			wl = p.stages[s].Process(0, wl)
			wr = p.stages[s].Process(1, wr)
		}
		out[2*i] = l*(1-mix) + float32(wl)*mix
		out[2*i+1] = r*(1-mix) + float32(wr)*mix

		p.phase += twoPi * rate / sampleRate
		for p.phase >= twoPi {
			p.phase -= twoPi
		}
	}
}

// Compressor is a feedforward peak compressor: above threshold, gain is
// reduced by 1/ratio in dB, smoothed by attack/release one-poles.
type Compressor struct {
	paramSet
	envelope dsp.OnePole
}

const (
	compParamThreshold = iota
	compParamRatio
	compParamAttack
	compParamRelease
	compParamMakeup
)

func NewCompressor() *Compressor {
	return &Compressor{paramSet: newParamSet([]graph.Parameter{
		{ID: compParamThreshold, Name: "threshold_db", Min: -60, Max: 0, Default: -18, Unit: "db"},
		{ID: compParamRatio, Name: "ratio", Min: 1, Max: 20, Default: 4, Unit: ""},
		{ID: compParamAttack, Name: "attack", Min: 0.0001, Max: 1, Default: 0.005, Unit: "s"},
		{ID: compParamRelease, Name: "release", Min: 0.001, Max: 3, Default: 0.15, Unit: "s"},
		{ID: compParamMakeup, Name: "makeup_db", Min: 0, Max: 24, Default: 0, Unit: "db"},
	})}
}

func (c *Compressor) TypeTag() string           { return TagCompressor }
func (c *Compressor) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (c *Compressor) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (c *Compressor) Reset()                    { c.envelope.Reset() }
func (c *Compressor) Clone() graph.Node         { return &Compressor{paramSet: c.paramSet.clone()} }

func linearToDB(v float64) float64 {
	if v < 1e-9 {
		v = 1e-9
	}
	return 20 * math.Log10(v)
}

func (c *Compressor) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	thresholdDB := c.val(compParamThreshold)
	ratio := c.val(compParamRatio)
	attack := c.val(compParamAttack)
	release := c.val(compParamRelease)
	makeup := math.Pow(10, c.val(compParamMakeup)/20)

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		peak := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
		if peak > c.envelope.State() {
			c.envelope.SetTimeConstant(attack, sampleRate)
		} else {
			c.envelope.SetTimeConstant(release, sampleRate)
		}
		smoothed := c.envelope.Process(peak)

		gain := 1.0
		db := linearToDB(smoothed)
		if db > thresholdDB {
			over := db - thresholdDB
			reduced := over - over/ratio
			gain = math.Pow(10, -reduced/20)
		}
		gain *= makeup

		out[2*i] = float32(float64(l) * gain)
		out[2*i+1] = float32(float64(r) * gain)
	}
}

// Limiter is a Compressor preconfigured with a very high ratio and fast
// attack, clamping peaks to the threshold.
type Limiter struct {
	paramSet
	envelope dsp.OnePole
}

const (
	limiterParamThreshold = iota
	limiterParamRelease
)

func NewLimiter() *Limiter {
	return &Limiter{paramSet: newParamSet([]graph.Parameter{
		{ID: limiterParamThreshold, Name: "threshold_db", Min: -24, Max: 0, Default: -1, Unit: "db"},
		{ID: limiterParamRelease, Name: "release", Min: 0.001, Max: 1, Default: 0.05, Unit: "s"},
	})}
}

func (l *Limiter) TypeTag() string           { return TagLimiter }
func (l *Limiter) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (l *Limiter) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (l *Limiter) Reset()                    { l.envelope.Reset() }
func (l *Limiter) Clone() graph.Node         { return &Limiter{paramSet: l.paramSet.clone()} }

func (l *Limiter) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	thresholdLin := math.Pow(10, l.val(limiterParamThreshold)/20)
	l.envelope.SetTimeConstant(l.val(limiterParamRelease), sampleRate)

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var left, right float32
		if 2*i+1 < len(in) {
			left, right = in[2*i], in[2*i+1]
		}
		peak := math.Max(math.Abs(float64(left)), math.Abs(float64(right)))
		gain := 1.0
		if peak > thresholdLin {
			target := thresholdLin / peak
			if target < l.envelope.State() {
				l.envelope.SetTimeConstant(0.0005, sampleRate)
			}
			gain = l.envelope.Process(target)
		} else {
			gain = l.envelope.Process(1)
		}
		out[2*i] = float32(float64(left) * gain)
		out[2*i+1] = float32(float64(right) * gain)
	}
}

// Distortion applies a tanh waveshaper with a drive parameter controlling
// how hard the signal is pushed into saturation.
type Distortion struct {
	paramSet
}

func NewDistortion() *Distortion {
	return &Distortion{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "drive", Min: 1, Max: 50, Default: 4, Unit: ""},
		{ID: 1, Name: "mix", Min: 0, Max: 1, Default: 1, Unit: ""},
	})}
}

func (d *Distortion) TypeTag() string           { return TagDistortion }
func (d *Distortion) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (d *Distortion) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (d *Distortion) Reset()                    {}
func (d *Distortion) Clone() graph.Node         { return &Distortion{paramSet: d.paramSet.clone()} }

func (d *Distortion) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	drive := d.val(0)
	mix := float32(d.val(1))
	in := audioCVIn[0]
	out := audioCVOut[0]
	n := len(out)
	if len(in) < n {
		n = len(in)
	}
	for i := 0; i < n; i++ {
		dry := in[i]
		wet := float32(math.Tanh(float64(dry) * drive))
		out[i] = dry*(1-mix) + wet*mix
	}
}

// Bitcrusher reduces effective bit depth and sample rate for a lo-fi
// effect: amplitude quantization plus sample-and-hold decimation.
type Bitcrusher struct {
	paramSet
	holdCounter float64
	heldL       float32
	heldR       float32
}

func NewBitcrusher() *Bitcrusher {
	return &Bitcrusher{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "bit_depth", Min: 1, Max: 16, Default: 8, Unit: ""},
		{ID: 1, Name: "sample_rate_divisor", Min: 1, Max: 50, Default: 4, Unit: ""},
	})}
}

func (b *Bitcrusher) TypeTag() string           { return TagBitcrusher }
func (b *Bitcrusher) InputPorts() []graph.Port  { return ports(audioPort("in")) }
func (b *Bitcrusher) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (b *Bitcrusher) Reset()                    { b.holdCounter, b.heldL, b.heldR = 0, 0, 0 }
func (b *Bitcrusher) Clone() graph.Node         { return &Bitcrusher{paramSet: b.paramSet.clone()} }

func (b *Bitcrusher) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, _ float64) {
	bits := b.val(0)
	divisor := b.val(1)
	if divisor < 1 {
		divisor = 1
	}
	levels := math.Pow(2, bits)

	in := audioCVIn[0]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r float32
		if 2*i+1 < len(in) {
			l, r = in[2*i], in[2*i+1]
		}
		if b.holdCounter <= 0 {
			b.heldL = quantizeAmplitude(l, levels)
			b.heldR = quantizeAmplitude(r, levels)
			b.holdCounter = divisor
		}
		b.holdCounter--
		out[2*i] = b.heldL
		out[2*i+1] = b.heldR
	}
}

func quantizeAmplitude(x float32, levels float64) float32 {
	return float32(math.Round(float64(x)*levels/2) / (levels / 2))
}

// RingModulator multiplies its audio input by its modulator CV input. Only
// when the modulator buffer is missing or shorter than the block (a direct
// Process call with nil) does it use an internal sine at carrier_hz; inside
// an AudioGraph an unconnected modulator arrives as a zeroed block, so the
// output is silent.
type RingModulator struct {
	paramSet
	phase float64
}

func NewRingModulator() *RingModulator {
	return &RingModulator{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "carrier_hz", Min: 1, Max: 5000, Default: 220, Unit: "hz"},
	})}
}

func (r *RingModulator) TypeTag() string { return TagRingModulator }
func (r *RingModulator) InputPorts() []graph.Port {
	return ports(audioPort("in"), cvPort("modulator"))
}
func (r *RingModulator) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (r *RingModulator) Reset()                    { r.phase = 0 }
func (r *RingModulator) Clone() graph.Node         { return &RingModulator{paramSet: r.paramSet.clone()} }

func (r *RingModulator) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	carrier := r.val(0)
	in := audioCVIn[0]
	mod := audioCVIn[1]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var l, r2 float32
		if 2*i+1 < len(in) {
			l, r2 = in[2*i], in[2*i+1]
		}
		var m float64
		if i < len(mod) {
			m = float64(mod[i])
		} else {
			m = math.Sin(r.phase)
		}
		out[2*i] = l * float32(m)
		out[2*i+1] = r2 * float32(m)

		r.phase += twoPi * carrier / sampleRate
		for r.phase >= twoPi {
			r.phase -= twoPi
		}
	}
}

// Vocoder imposes the spectral envelope of a modulator signal onto a
// carrier, approximated here with a bank of fixed-center bandpass biquads
// (a classic channel-vocoder structure) rather than an FFT implementation.
type Vocoder struct {
	paramSet
	carrierBands   [8]dsp.Biquad
	modulatorBands [8]dsp.Biquad
	envelope       [8]dsp.OnePole
}

var vocoderBandHz = [8]float64{200, 350, 600, 1000, 1700, 2800, 4500, 7000}

func NewVocoder() *Vocoder {
	return &Vocoder{paramSet: newParamSet([]graph.Parameter{
		{ID: 0, Name: "envelope_follow", Min: 0.001, Max: 0.1, Default: 0.01, Unit: "s"},
	})}
}

func (v *Vocoder) TypeTag() string { return TagVocoder }
func (v *Vocoder) InputPorts() []graph.Port {
	return ports(audioPort("carrier"), audioPort("modulator"))
}
func (v *Vocoder) OutputPorts() []graph.Port { return ports(audioPort("out")) }
func (v *Vocoder) Reset() {
	for i := range v.carrierBands {
		v.carrierBands[i].Reset()
		v.modulatorBands[i].Reset()
		v.envelope[i].Reset()
	}
}
func (v *Vocoder) Clone() graph.Node { return &Vocoder{paramSet: v.paramSet.clone()} }

func (v *Vocoder) Process(audioCVIn, audioCVOut [][]float32, _, _ [][]graph.MidiEvent, sampleRate float64) {
	follow := v.val(0)
	for b := range v.carrierBands {
		v.carrierBands[b].Configure(dsp.BiquadBandpass, vocoderBandHz[b], 4, 0, sampleRate)
		v.modulatorBands[b].Configure(dsp.BiquadBandpass, vocoderBandHz[b], 4, 0, sampleRate)
		v.envelope[b].SetTimeConstant(follow, sampleRate)
	}

	carrier := audioCVIn[0]
	modulator := audioCVIn[1]
	out := audioCVOut[0]
	for i, n := 0, len(out)/2; i < n; i++ {
		var cl, cr, ml float32
		if 2*i+1 < len(carrier) {
			cl, cr = carrier[2*i], carrier[2*i+1]
		}
		if 2*i < len(modulator) {
			ml = modulator[2*i]
		}

		var l, r float64
		for b := range v.carrierBands {
			modBand := v.modulatorBands[b].Process(0, float64(ml))
			amp := v.envelope[b].Process(math.Abs(modBand))
			carrierBandL := v.carrierBands[b].Process(0, float64(cl))
			carrierBandR := v.carrierBands[b].Process(1, float64(cr))
			l += carrierBandL * amp
			r += carrierBandR * amp
		}
		out[2*i] = float32(l)
		out[2*i+1] = float32(r)
	}
}
