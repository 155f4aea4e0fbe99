package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/beamforge/beam/engineio"
	"github.com/beamforge/beam/midiio"
)

// noteHoldDuration is how long a key-triggered note stays on: a raw
// terminal reports key presses, not key releases, so play mode fakes a
// note-off after a fixed hold instead of waiting for one.
const noteHoldDuration = 150 * time.Millisecond

// runPlayMode puts the terminal in raw mode and maps keystrokes onto
// MIDI notes on the REPL's current track ("awsedftgyhujkolp;'" -> notes
// 60..77), until the user presses Escape or 'q'. It then restores the
// terminal and returns control to the line-oriented REPL.
func runPlayMode(r *repl) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprintln(r.out, "(play mode needs an interactive terminal; skipping keyboard input)")
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(r.out, "could not enter raw mode: %v\n", err)
		return
	}
	defer term.Restore(fd, oldState)

	fmt.Fprint(r.out, "-- play mode: type notes, Esc or 'q' to return --\r\n")

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		b := buf[0]
		if b == 27 || b == 'q' {
			fmt.Fprint(r.out, "\r\n-- leaving play mode --\r\n")
			return
		}
		note, ok := midiio.KeyToNote(rune(b))
		if !ok || r.curTrack == "" {
			continue
		}
		trackID := r.curTrack
		r.push(engineio.NewSendMidiOnCommand(trackID, note, 100))
		go func() {
			time.Sleep(noteHoldDuration)
			r.ctrl.Commands().Push(engineio.NewSendMidiOffCommand(trackID, note))
		}()
	}
}
