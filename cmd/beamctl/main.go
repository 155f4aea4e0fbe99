// Command beamctl is the line-oriented REPL control surface for the
// render core: it loads or creates a project, drives the block clock on
// a background ticker, and dispatches typed verbs onto the engine's
// command queue.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/beamforge/beam/arranger"
	"github.com/beamforge/beam/engineio"
	"github.com/beamforge/beam/persist"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		projectPath = flag.StringP("project", "p", "", "path to a .beam project bundle to load")
		configPath  = flag.StringP("config", "c", "", "path to a YAML engine config")
	)
	flag.Parse()

	logger := log.Default().WithPrefix("beamctl")

	cfg := engineio.DefaultConfig()
	if *configPath != "" {
		loaded, err := engineio.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "err", err)
			return 1
		}
		cfg = loaded
	}
	if *projectPath != "" {
		cfg.ProjectPath = *projectPath
	}

	blockSize := cfg.ResolvedBufferSize()

	var (
		proj      *arranger.Project
		audioPool *arranger.AudioClipPool
		midiPool  *arranger.MidiClipPool
	)

	if cfg.ProjectPath != "" {
		result, err := persist.LoadBundle(cfg.ProjectPath, blockSize)
		if err != nil {
			logger.Error("failed to load project", "path", cfg.ProjectPath, "err", err)
			return 1
		}
		if len(result.MissingFiles) > 0 {
			logger.Warn("some media files could not be resolved", "files", result.MissingFiles)
		}
		proj, audioPool, midiPool = result.Project, result.AudioPool, result.MidiPool
	} else {
		proj = arranger.NewProject(cfg.SampleRate, cfg.Channels)
		audioPool = arranger.NewAudioClipPool()
		midiPool = arranger.NewMidiClipPool()
	}

	ctrl := engineio.NewController(proj, audioPool, midiPool, blockSize, cfg.MaxVoices)

	done := make(chan struct{})
	go driveClock(ctrl, uint32(cfg.SampleRate), cfg.Channels, blockSize, done)
	defer close(done)

	r := newREPL(ctrl, os.Stdout)
	r.run(os.Stdin)

	fmt.Fprintln(os.Stdout, "goodbye.")
	return 0
}

// driveClock renders blocks at real-time pace in the background so the
// playhead advances and position events are published while the REPL
// blocks on stdin, discarding the rendered audio: beamctl has no device
// backend of its own, and the controller loop is transport-agnostic.
func driveClock(ctrl *engineio.Controller, sampleRate uint32, channels, blockSize int, done <-chan struct{}) {
	scratch := make([]float32, blockSize*channels)
	blockDuration := time.Duration(float64(blockSize) / float64(sampleRate) * float64(time.Second))
	ticker := time.NewTicker(blockDuration)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctrl.Callback(scratch, sampleRate, channels)
		}
	}
}
