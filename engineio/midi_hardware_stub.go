//go:build !(darwin && cgo)

package engineio

import "errors"

// ErrHardwareMidiUnsupported is returned by OpenHardwareMidiInput on
// platforms without a native portmidi backend linked in.
var ErrHardwareMidiUnsupported = errors.New("engineio: hardware MIDI input not supported on this build")

// HardwareMidiInput stub: hardware MIDI input requires the darwin+cgo
// build (see midi_hardware.go). The CLI's virtual-piano keyboard mapping
// (midiio.KeyToNote) remains available on every platform.
type HardwareMidiInput struct{}

func OpenHardwareMidiInput() (*HardwareMidiInput, error) {
	return nil, ErrHardwareMidiUnsupported
}

func (h *HardwareMidiInput) Close() error { return nil }

func (h *HardwareMidiInput) Forward(trackID string, push func(Command)) {}
