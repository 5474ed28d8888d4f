package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/cbegin/wavestep-go"
	"github.com/cbegin/wavestep-go/internal/audio"
	"github.com/cbegin/wavestep-go/internal/config"
)

const defaultPlaylist = "C4 sine,E4 sine,G4 sine, 1, Cmaj\n" +
	"A3 triangle,C4 triangle,E4 triangle, 1, Amin\n" +
	"F3 square,A3 square,C4 square, 1, Fmaj\n" +
	"G3 sawtooth,B3 sawtooth,D4 sawtooth, 2, Gmaj\n"

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		listPath   = flag.String("file", "", "path to a player list (- for stdin)")
		inline     = flag.String("text", "", "inline player list")
		tempo      = flag.Float64("tempo", 0, "tempo in BPM (overrides config)")
		loop       = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|none (overrides config)")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error (overrides config)")
		export     = flag.Bool("export", false, "print the normalized player list and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tempo":
			cfg.Tempo = *tempo
		case "loop":
			cfg.Loop = *loop
		case "backend":
			cfg.Backend = *backend
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}

	text, err := resolveListInput(*listPath, *inline)
	if err != nil {
		log.Fatal(err)
	}

	var out audio.Output = audio.Discard{}
	if !*export {
		out, err = audio.Open(cfg.Backend, cfg.OutputSampleRate, logger)
		if err != nil {
			log.Fatal(err)
		}
	}
	defer out.Close()

	studio := wavestep.NewStudio(cfg.SampleRate,
		wavestep.WithEmitter(out),
		wavestep.WithTempo(cfg.Tempo),
		wavestep.WithLoop(cfg.Loop),
		wavestep.WithEmitSpacing(cfg.EmitSpacing),
		wavestep.WithLogger(logger),
	)
	n, err := studio.Import(text)
	if err != nil {
		log.Fatal(err)
	}
	if n == 0 {
		log.Fatal("no playable lines in player list")
	}
	if *export {
		fmt.Print(studio.Export())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := playSession(ctx, studio, studio.Watch(), *loops, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func resolveListInput(path, inline string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	switch strings.TrimSpace(path) {
	case "":
		return defaultPlaylist, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
