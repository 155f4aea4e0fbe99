package dsp

import "math"

// SincTaps is the width (tap count) of the windowed-sinc interpolation
// kernel used by samplers and by the arranger's clip resampler: a 32-tap
// Blackman-windowed sinc kernel, SincTaps/2 taps either side of the read
// position.
const SincTaps = 32

// blackman evaluates the Blackman window at phase t in [0,1].
func blackman(t float64) float64 {
	return 0.42 - 0.5*math.Cos(2*math.Pi*t) + 0.08*math.Cos(4*math.Pi*t)
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// SincSample reads interleaved source samples at fractional frame position
// pos using a SincTaps-tap Blackman-windowed sinc kernel. channels is the
// source's channel count; ch selects which source channel to read (with
// wraparound, so callers can implement direct/duplicate/average/modulo
// channel-count fallback by choosing which ch to pass).
func SincSample(src []float32, channels, ch int, pos float64) float32 {
	frameCount := len(src) / channels
	if frameCount == 0 {
		return 0
	}
	center := int(math.Floor(pos))
	frac := pos - float64(center)

	var acc float64
	const half = SincTaps / 2
	for k := -half + 1; k <= half; k++ {
		idx := center + k
		if idx < 0 || idx >= frameCount {
			continue
		}
		d := float64(k) - frac
		w := blackman((d + half) / SincTaps)
		tap := sinc(d) * w
		acc += float64(src[idx*channels+ch]) * tap
	}
	return float32(acc)
}

// ChannelMapMode chooses how a sampler maps a source channel count onto the
// engine's stereo output when they differ.
type ChannelMapMode int

const (
	ChannelMapDirect    ChannelMapMode = iota // channel i -> i, extras dropped
	ChannelMapDuplicate                       // mono source duplicated to both outputs
	ChannelMapAverage                         // average all source channels into both outputs
	ChannelMapModulo                          // output channel i reads source channel i % srcChannels
)

// ResolveChannel returns the source channel index to read for a given engine
// output channel (0=left, 1=right), given the source's channel count and the
// configured mapping mode.
func ResolveChannel(mode ChannelMapMode, srcChannels, outCh int) (ch int, average bool) {
	if srcChannels <= 0 {
		return 0, false
	}
	switch mode {
	case ChannelMapDuplicate:
		return 0, false
	case ChannelMapAverage:
		return 0, true
	case ChannelMapModulo:
		return outCh % srcChannels, false
	default: // ChannelMapDirect
		if outCh < srcChannels {
			return outCh, false
		}
		return srcChannels - 1, false
	}
}

// AverageFrame sums every source channel at fractional position pos into one
// value, used by ChannelMapAverage.
func AverageFrame(src []float32, channels int, pos float64) float32 {
	if channels <= 0 {
		return 0
	}
	var sum float64
	for c := 0; c < channels; c++ {
		sum += float64(SincSample(src, channels, c, pos))
	}
	return float32(sum / float64(channels))
}
