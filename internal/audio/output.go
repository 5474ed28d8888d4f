package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cbegin/wavestep-go/internal/osc"
)

const (
	BackendEbiten = "ebiten"
	BackendOto    = "oto"
	BackendNone   = "none"
)

// closeSlack keeps a finished player around a little past its tone so the
// driver can drain its buffer.
const closeSlack = 250 * time.Millisecond

// Output is a fire-and-forget tone sink. Close waits for tones in flight.
type Output interface {
	Emit(c osc.Component, d time.Duration)
	Close() error
}

// Open creates the output for a backend name.
func Open(backend string, sampleRate int, log *slog.Logger) (Output, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendEbiten, "":
		return NewEbitenOutput(sampleRate, log)
	case BackendOto:
		return NewOtoOutput(sampleRate, log)
	case BackendNone:
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (expected %s|%s|%s)", backend, BackendEbiten, BackendOto, BackendNone)
	}
}

// Discard drops every tone.
type Discard struct{}

func (Discard) Emit(osc.Component, time.Duration) {}
func (Discard) Close() error                      { return nil }
