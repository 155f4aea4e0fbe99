// Package audioio decodes and encodes the audio file formats used by
// clip pools and project bundles: WAV via go-audio/wav, FLAC via
// tphakala/flac.
package audioio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/beamforge/beam/arranger"
)

var ErrUnsupportedFormat = errors.New("audioio: unsupported file format")

// Decode reads path and dispatches to the matching decoder by extension.
func Decode(path string) (*arranger.AudioFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return DecodeWAV(path)
	case ".flac":
		return DecodeFLAC(path)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// DecodeWAV loads a WAV file into an interleaved float32 AudioFile, scaled
// by the file's own bit depth (mirroring birdnet-go's readAudioData).
func DecodeWAV(path string) (*arranger.AudioFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := DecodeWAVReader(file)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// DecodeWAVReader loads WAV content from an in-memory seeker, for bundle
// entries read out of a ZIP archive.
func DecodeWAVReader(r io.ReadSeeker) (*arranger.AudioFile, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("audioio: not a valid WAV file")
	}

	divisor, err := intDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	channels := int(decoder.NumChans)
	sampleRate := float64(decoder.SampleRate)

	buf := &audio.IntBuffer{
		Data:   make([]int, 4096*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	var pcm []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			pcm = append(pcm, float32(s)/divisor)
		}
	}

	return &arranger.AudioFile{Channels: channels, SampleRate: sampleRate, PCM: pcm}, nil
}

func intDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.New("audioio: unsupported WAV bit depth")
	}
}

// EncodeWAV writes f to w as 24-bit PCM, the bundle export default.
func EncodeWAV(w io.WriteSeeker, f *arranger.AudioFile) error {
	enc := wav.NewEncoder(w, int(f.SampleRate), 24, f.Channels, 1)
	const scale = 8388607.0
	buf := &audio.IntBuffer{
		Data:   make([]int, len(f.PCM)),
		Format: &audio.Format{SampleRate: int(f.SampleRate), NumChannels: f.Channels},
	}
	for i, s := range f.PCM {
		buf.Data[i] = int(s * scale)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
