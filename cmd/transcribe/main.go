// Command transcribe converts a WAV recording into note events.
//
// Usage:
//
//	transcribe [flags] input.wav
//
// The recording is mixed to mono and resampled to the model rate, run through
// the constant-Q front end and the four sub-models, and decoded into notes.
//
// Examples:
//
//	transcribe -model ./model song.wav
//	transcribe -model ./model -midi song.mid song.wav
//	transcribe -model ./model -json -design-kernels song.wav
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-pitch/logging"
	"github.com/cwbudde/algo-pitch/notes"
	"github.com/cwbudde/algo-pitch/pcm"
	"github.com/cwbudde/algo-pitch/transcribe"
)

func main() {
	modelDir := flag.String("model", "", "directory with kernel assets and model weight files")
	configPath := flag.String("config", "", "JSON configuration file (overrides defaults)")
	jsonOut := flag.Bool("json", false, "print note events as JSON")
	midiOut := flag.String("midi", "", "write a MIDI file to this path")
	design := flag.Bool("design-kernels", false, "design the CQT kernel and lowpass filter instead of loading them")
	onset := flag.Float64("onset-threshold", 0.5, "onset peak threshold")
	frame := flag.Float64("frame-threshold", 0.3, "note frame threshold")
	bpm := flag.Float64("bpm", notes.DefaultBPM, "tempo written to the MIDI file")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: transcribe [flags] input.wav\n\n")
		fmt.Fprintf(os.Stderr, "Transcribes a WAV recording into note events.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.NewDefaultLogger()
	logger.SetLevel(logging.ParseLevel(*level))
	logging.SetGlobalLogger(logger)

	cfg := transcribe.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = transcribe.LoadConfig(*configPath); err != nil {
			fail(logger, err, "loading config")
		}
	}
	if *modelDir != "" {
		cfg.ModelDir = *modelDir
	}
	if *design {
		cfg.DesignKernels = true
	}

	opts := notes.DefaultOptions(cfg.Constants)
	opts.OnsetThreshold = *onset
	opts.FrameThreshold = *frame

	if err := run(flag.Arg(0), cfg, opts, *jsonOut, *midiOut, *bpm, logger); err != nil {
		fail(logger, err, "transcription failed")
	}
}

func run(input string, cfg transcribe.Config, opts notes.Options, jsonOut bool, midiPath string, bpm float64, logger logging.Logger) error {
	model, err := transcribe.Open(cfg, transcribe.WithLogger(logger))
	if err != nil {
		return err
	}

	samples, err := pcm.Load(input, cfg.Constants.SampleRate)
	if err != nil {
		return err
	}
	logger.Info("read audio", logging.Fields{"file": input, "samples": len(samples)})

	pg, err := model.Transcribe(samples)
	if err != nil {
		return err
	}

	events, err := notes.Decode(pg, opts)
	if err != nil {
		return err
	}
	logger.Info("decoded notes", logging.Fields{"frames": pg.Frames, "notes": len(events)})

	if midiPath != "" {
		if err := writeMIDI(midiPath, events, bpm); err != nil {
			return err
		}
		logger.Info("wrote MIDI", logging.Fields{"file": midiPath})
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	printEvents(os.Stdout, events)
	return nil
}

func writeMIDI(path string, events []notes.Event, bpm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := notes.WriteMIDI(f, events, bpm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printEvents(w io.Writer, events []notes.Event) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "START\tEND\tPITCH\tVELOCITY\n")
	for _, e := range events {
		fmt.Fprintf(tw, "%.3f\t%.3f\t%d\t%d\n", e.Start, e.End, e.Pitch, e.Velocity())
	}
	tw.Flush()
}

func fail(logger logging.Logger, err error, msg string) {
	logger.Error(err, msg)
	os.Exit(1)
}
