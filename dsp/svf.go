package dsp

import "math"

// StateVariable is a Chamberlin-topology state-variable filter producing
// simultaneous lowpass/highpass/bandpass/notch taps from one pass, stereo.
type StateVariable struct {
	f, q float64

	low  [2]float64
	band [2]float64
}

// Configure sets cutoff/resonance for sampleRate.
func (s *StateVariable) Configure(cutoffHz, resonance, sampleRate float64) {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	nyquist := sampleRate / 2
	if cutoffHz <= 0 {
		cutoffHz = 20
	}
	if cutoffHz > nyquist*0.49 {
		cutoffHz = nyquist * 0.49
	}
	s.f = 2 * math.Sin(math.Pi*cutoffHz/sampleRate)
	if resonance < 0.01 {
		resonance = 0.01
	}
	s.q = 1 / resonance
}

// Process returns low, high, band, notch taps for one sample on channel ch.
func (s *StateVariable) Process(ch int, x float64) (low, high, band, notch float64) {
	low = s.low[ch] + s.f*s.band[ch]
	high = x - low - s.q*s.band[ch]
	band = s.f*high + s.band[ch]
	notch = high + low

	s.low[ch] = low
	s.band[ch] = band
	return low, high, band, notch
}

// Reset flushes filter memory.
func (s *StateVariable) Reset() {
	s.low = [2]float64{}
	s.band = [2]float64{}
}
