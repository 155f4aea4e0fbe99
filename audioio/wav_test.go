package audioio

import (
	"bytes"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beamforge/beam/arranger"
)

func sineSamples(n int, channels int) []float32 {
	pcm := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*float64(i)/float64(n)))
		for c := 0; c < channels; c++ {
			pcm[i*channels+c] = v
		}
	}
	return pcm
}

func TestIntDivisorKnownBitDepths(t *testing.T) {
	for _, bd := range []int{16, 24, 32} {
		d, err := intDivisor(bd)
		require.NoError(t, err)
		require.Greater(t, d, float32(0))
	}
}

func TestIntDivisorUnsupportedBitDepthErrors(t *testing.T) {
	_, err := intDivisor(8)
	require.Error(t, err)
}

func TestEncodeWAVThenDecodeWAVRoundTripsPCM(t *testing.T) {
	in := &arranger.AudioFile{Channels: 2, SampleRate: 48000, PCM: sineSamples(256, 2)}

	tmp, err := os.CreateTemp(t.TempDir(), "round-*.wav")
	require.NoError(t, err)
	path := tmp.Name()

	require.NoError(t, EncodeWAV(tmp, in))
	require.NoError(t, tmp.Close())

	out, err := DecodeWAV(path)
	require.NoError(t, err)
	require.Equal(t, 2, out.Channels)
	require.Equal(t, 48000.0, out.SampleRate)
	require.Equal(t, path, out.Path)
	require.Len(t, out.PCM, len(in.PCM))
	for i := range in.PCM {
		require.InDelta(t, in.PCM[i], out.PCM[i], 1e-3) // 24-bit quantization
	}
}

func TestDecodeWAVReaderRejectsNonWAVData(t *testing.T) {
	_, err := DecodeWAVReader(bytes.NewReader([]byte("not a wav file at all")))
	require.Error(t, err)
}

func TestDecodeDispatchesWAVByExtension(t *testing.T) {
	in := &arranger.AudioFile{Channels: 1, SampleRate: 44100, PCM: sineSamples(64, 1)}

	tmp, err := os.CreateTemp(t.TempDir(), "dispatch-*.wav")
	require.NoError(t, err)
	path := tmp.Name()
	require.NoError(t, EncodeWAV(tmp, in))
	require.NoError(t, tmp.Close())

	out, err := Decode(path)
	require.NoError(t, err)
	require.Equal(t, 1, out.Channels)
}

func TestDecodeUnsupportedExtensionReturnsError(t *testing.T) {
	_, err := Decode("clip.ogg")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
