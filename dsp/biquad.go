// Package dsp holds the numeric kernels shared by the node catalog and the
// arranger's clip resampler: filter coefficient design, a windowed-sinc
// resampling kernel, a circular delay line, and small one-pole helpers.
package dsp

import "math"

// BiquadShape selects the filter response a Biquad computes coefficients for.
type BiquadShape int

const (
	BiquadLowpass BiquadShape = iota
	BiquadHighpass
	BiquadBandpass
	BiquadNotch
	BiquadPeak
	BiquadLowShelf
	BiquadHighShelf
)

// Biquad is a direct-form-II-transposed biquadratic filter, stereo (two
// independent channel states sharing one set of coefficients).
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	z1 [2]float64
	z2 [2]float64
}

// Configure recomputes coefficients for the given shape/cutoff/Q/gain at
// sampleRate. GainDB only matters for Peak/LowShelf/HighShelf.
func (b *Biquad) Configure(shape BiquadShape, cutoffHz, q, gainDB float64, sampleRate float64) {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if cutoffHz <= 0 {
		cutoffHz = 20
	}
	nyquist := sampleRate / 2
	if cutoffHz > nyquist*0.999 {
		cutoffHz = nyquist * 0.999
	}
	if q <= 0 {
		q = 0.707
	}

	omega := 2 * math.Pi * cutoffHz / sampleRate
	sinW, cosW := math.Sin(omega), math.Cos(omega)
	alpha := sinW / (2 * q)
	a := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch shape {
	case BiquadLowpass:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case BiquadHighpass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case BiquadBandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case BiquadNotch:
		b0 = 1
		b1 = -2 * cosW
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	case BiquadPeak:
		b0 = 1 + alpha*a
		b1 = -2 * cosW
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW
		a2 = 1 - alpha/a
	case BiquadLowShelf:
		sq := math.Sqrt(a) * 2 * alpha
		b0 = a * ((a + 1) - (a-1)*cosW + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW)
		b2 = a * ((a + 1) - (a-1)*cosW - sq)
		a0 = (a + 1) + (a-1)*cosW + sq
		a1 = -2 * ((a - 1) + (a+1)*cosW)
		a2 = (a + 1) + (a-1)*cosW - sq
	case BiquadHighShelf:
		sq := math.Sqrt(a) * 2 * alpha
		b0 = a * ((a + 1) + (a-1)*cosW + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW)
		b2 = a * ((a + 1) + (a-1)*cosW - sq)
		a0 = (a + 1) - (a-1)*cosW + sq
		a1 = 2 * ((a - 1) - (a+1)*cosW)
		a2 = (a + 1) - (a-1)*cosW - sq
	default:
		b0, a0 = 1, 1
	}

	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
}

// Process filters one sample on the given channel (0 or 1).
func (b *Biquad) Process(ch int, x float64) float64 {
	y := b.b0*x + b.z1[ch]
	b.z1[ch] = b.b1*x - b.a1*y + b.z2[ch]
	b.z2[ch] = b.b2*x - b.a2*y
	return y
}

// Reset clears filter memory (flushes transient state).
func (b *Biquad) Reset() {
	b.z1 = [2]float64{}
	b.z2 = [2]float64{}
}
