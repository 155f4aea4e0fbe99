package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/beamforge/beam/engineio"
)

// repl is the line-oriented command interpreter: it owns no engine state
// of its own beyond a local shadow of track identity (trackRegistry) and
// the "current" selections later verbs implicitly act on, matching the
// control thread's command-queue-only mutation rule.
type repl struct {
	ctrl     *engineio.Controller
	out      io.Writer
	tracks   trackRegistry
	curTrack string // id of the most recently created track, which play-mode keystrokes act on
	curPool  int    // audio-pool index "select" last chose, used by "clip"
	logger   *log.Logger
}

func newREPL(ctrl *engineio.Controller, out io.Writer) *repl {
	return &repl{ctrl: ctrl, out: out, logger: log.Default().WithPrefix("beamctl")}
}

// run reads verbs from in until EOF or a "quit" command.
func (r *repl) run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(r.out, "beamctl ready. type 'help' for commands.")
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !r.dispatch(line) {
			return
		}
	}
}

// dispatch handles one line, returning false if the REPL should exit.
func (r *repl) dispatch(line string) bool {
	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "play":
		r.push(engineio.NewPlayCommand())
		runPlayMode(r)
	case "pause":
		r.push(engineio.NewPauseCommand())
	case "stop":
		r.push(engineio.NewStopCommand())
	case "seek":
		r.cmdSeek(args)
	case "track":
		r.cmdCreateTrack(args, engineio.TrackMidi)
	case "audiotrack":
		r.cmdCreateTrack(args, engineio.TrackAudio)
	case "select":
		r.cmdSelect(args)
	case "clip":
		r.cmdClip(args)
	case "loadmidi":
		r.cmdLoadMidi(args)
	case "reset":
		r.push(engineio.NewResetCommand())
		r.tracks = trackRegistry{}
		r.curTrack = ""
	case "quit":
		return false
	case "help":
		r.printHelp()
	default:
		fmt.Fprintf(r.out, "unknown command %q, type 'help'\n", verb)
	}
	return true
}

func (r *repl) push(c engineio.Command) {
	if err := r.ctrl.Commands().Push(c); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
}

func (r *repl) cmdSeek(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: seek <sec>")
		return
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(r.out, "invalid seconds: %v\n", err)
		return
	}
	r.push(engineio.NewSeekCommand(seconds))
}

func (r *repl) cmdCreateTrack(args []string, kind engineio.TrackKind) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: track <name> | audiotrack <name>")
		return
	}
	name := args[0]
	r.push(engineio.NewCreateTrackCommand(kind, name))

	id, ok := r.awaitTrackCreated(500 * time.Millisecond)
	if !ok {
		fmt.Fprintln(r.out, "warning: track creation not confirmed in time")
		return
	}
	r.tracks.add(name, id)
	r.curTrack = id
	fmt.Fprintf(r.out, "created track %q (%s)\n", name, id)
}

// awaitTrackCreated polls the event queue until a TrackCreated event
// appears or timeout elapses — the only sanctioned way for a control
// thread to learn what id the audio thread assigned: read state via
// snapshot events.
func (r *repl) awaitTrackCreated(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, e := range r.ctrl.Events().Drain() {
			if e.Kind == engineio.EvTrackCreated {
				return e.TrackIDString(), true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return "", false
}

func (r *repl) cmdSelect(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: select <idx>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(r.out, "invalid index: %v\n", err)
		return
	}
	r.curPool = idx
	fmt.Fprintf(r.out, "selected audio pool index %d\n", idx)
}

func (r *repl) cmdClip(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(r.out, "usage: clip <track> <start> <dur>")
		return
	}
	id, ok := r.tracks.idByName(args[0])
	if !ok {
		fmt.Fprintf(r.out, "unknown track %q\n", args[0])
		return
	}
	start, err1 := strconv.ParseFloat(args[1], 64)
	dur, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(r.out, "invalid start/dur")
		return
	}
	r.push(engineio.NewAddClipCommand(id, r.curPool, start, 0, dur, 1))
}

func (r *repl) cmdLoadMidi(args []string) {
	if len(args) != 2 && len(args) != 3 {
		fmt.Fprintln(r.out, "usage: loadmidi <track> <path> [start]")
		return
	}
	id, ok := r.tracks.idByName(args[0])
	if !ok {
		fmt.Fprintf(r.out, "unknown track %q\n", args[0])
		return
	}
	start := 0.0
	if len(args) == 3 {
		var err error
		start, err = strconv.ParseFloat(args[2], 64)
		if err != nil {
			fmt.Fprintln(r.out, "invalid start")
			return
		}
	}
	r.push(engineio.NewLoadMidiClipCommand(id, args[1], start))
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, `verbs:
  play                          start transport and enter play-mode keyboard input
  pause                         stop transport without resetting position
  stop                          stop transport and rewind to 0
  seek <sec>                    move the playhead
  track <name>                  create a MIDI track and make it current
  audiotrack <name>             create an audio track and make it current
  select <idx>                  choose the audio-pool index "clip" places
  clip <track> <start> <dur>    place a clip of the selected pool entry
  loadmidi <track> <path> [start]  decode an SMF file onto a MIDI track
  reset                         clear the project
  quit                          exit
  help                          this text`)
}
