package audioio

import (
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/beamforge/beam/arranger"
)

// DecodeFLAC loads a FLAC file into an interleaved float32 AudioFile,
// scaled by the stream's declared bit depth.
func DecodeFLAC(path string) (*arranger.AudioFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := DecodeFLACReader(file)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// DecodeFLACReader loads FLAC content from a reader, for bundle entries
// read out of a ZIP archive.
func DecodeFLACReader(r io.Reader) (*arranger.AudioFile, error) {
	stream, err := flac.Decode(r)
	if err != nil {
		return nil, err
	}

	channels := int(stream.Info.NChannels)
	sampleRate := float64(stream.Info.SampleRate)
	divisor, err := intDivisor(int(stream.Info.BitsPerSample))
	if err != nil {
		return nil, err
	}

	var pcm []float32
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			break // io.EOF or trailing garbage both end decode
		}
		frameLen := len(frame.Subframes[0].Samples)
		for i := 0; i < frameLen; i++ {
			for ch := 0; ch < channels; ch++ {
				pcm = append(pcm, float32(frame.Subframes[ch].Samples[i])/divisor)
			}
		}
	}

	return &arranger.AudioFile{Channels: channels, SampleRate: sampleRate, PCM: pcm}, nil
}
