//go:build darwin && cgo

package engineio

import (
	"github.com/rakyll/portmidi"
)

// HardwareMidiInput bridges a real MIDI controller into the engine's live
// note queue. Only available on darwin with cgo, which is where
// portmidi's native dependency can actually link.
type HardwareMidiInput struct {
	stream *portmidi.Stream
	events <-chan portmidi.Event
}

// OpenHardwareMidiInput opens the system default MIDI input device, or
// returns an error if none is present.
func OpenHardwareMidiInput() (*HardwareMidiInput, error) {
	if err := portmidi.Initialize(); err != nil {
		return nil, err
	}
	deviceID := portmidi.DefaultInputDeviceID()
	stream, err := portmidi.NewInputStream(deviceID, 1024)
	if err != nil {
		return nil, err
	}
	return &HardwareMidiInput{stream: stream, events: stream.Listen()}, nil
}

// Close releases the underlying MIDI stream.
func (h *HardwareMidiInput) Close() error {
	if h.stream == nil {
		return nil
	}
	return h.stream.Close()
}

// Forward reads available hardware MIDI events and enqueues each as a
// SendMidiOn/SendMidiOff command against trackID, for the caller to push
// through a Controller's CommandQueue.
func (h *HardwareMidiInput) Forward(trackID string, push func(Command)) {
	for {
		select {
		case ev, ok := <-h.events:
			if !ok {
				return
			}
			status := uint8(ev.Status) & 0xF0
			note := uint8(ev.Data1)
			velocity := uint8(ev.Data2)
			switch {
			case status == 0x90 && velocity > 0:
				push(NewSendMidiOnCommand(trackID, note, velocity))
			case status == 0x80 || (status == 0x90 && velocity == 0):
				push(NewSendMidiOffCommand(trackID, note))
			}
		default:
			return
		}
	}
}
