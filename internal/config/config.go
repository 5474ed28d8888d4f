// Package config loads the YAML settings shared by the wavestep tools.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinTempo = 10.0
	MaxTempo = 1000.0
)

// Backends lists the accepted audio backend names.
var Backends = []string{"ebiten", "oto", "none"}

type Config struct {
	// SampleRate converts preview indices to time; it does not size the preview.
	SampleRate int `yaml:"sample_rate"`
	// OutputSampleRate is the audio device rate.
	OutputSampleRate  int           `yaml:"output_sample_rate"`
	Tempo             float64       `yaml:"tempo"`
	Loop              bool          `yaml:"loop"`
	Backend           string        `yaml:"backend"`
	LogLevel          string        `yaml:"log_level"`
	AnimationInterval time.Duration `yaml:"animation_interval"`
	EmitSpacing       time.Duration `yaml:"emit_spacing"`
	BranchingRedo     bool          `yaml:"branching_redo"`
}

func Default() Config {
	return Config{
		SampleRate:        44100,
		OutputSampleRate:  48000,
		Tempo:             100,
		Backend:           "ebiten",
		LogLevel:          "info",
		AnimationInterval: 100 * time.Millisecond,
		EmitSpacing:       5 * time.Millisecond,
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.OutputSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("output_sample_rate must be positive, got %d", c.OutputSampleRate))
	}
	if c.Tempo < MinTempo || c.Tempo > MaxTempo {
		errs = append(errs, fmt.Errorf("tempo must be within [%g, %g], got %g", MinTempo, MaxTempo, c.Tempo))
	}
	if !slices.Contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if _, err := ResolveLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.AnimationInterval < 0 || c.EmitSpacing < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	return errors.Join(errs...)
}

// ClampTempo keeps a user-entered tempo inside the supported range.
func ClampTempo(bpm float64) float64 {
	return max(MinTempo, min(MaxTempo, bpm))
}

func ResolveLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger builds a text logger on stderr.
func NewLogger(level string) (*slog.Logger, error) {
	logLevel, err := ResolveLogLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler), nil
}
