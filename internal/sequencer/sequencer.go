package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbegin/wavestep-go/internal/osc"
)

const (
	DefaultTempo       = 100.0
	DefaultEmitSpacing = 5 * time.Millisecond
)

var ErrInvalidTempo = errors.New("tempo must be a positive number of beats per minute")

// Emitter is the audio output port. Emit starts a tone and returns without
// waiting for it to finish.
type Emitter interface {
	Emit(c osc.Component, d time.Duration)
}

// Step is the scheduler's frozen view of one player.
type Step struct {
	ID     int
	Steps  float64
	Voices []osc.Component
}

// EventKind identifies scheduler lifecycle events.
type EventKind int

const (
	EventStepStarted EventKind = iota
	EventLoopCompleted
	EventPlaybackEnded
)

type Event struct {
	Kind     EventKind
	ID       int           // step ID for EventStepStarted
	Duration time.Duration // slot length for EventStepStarted
}

type Options struct {
	Tempo       float64       // beats per minute (0 = DefaultTempo)
	Loop        bool
	EmitSpacing time.Duration // gap between voices of one step (0 = DefaultEmitSpacing, <0 = none)
	OnEvent     func(Event)   // called on the session goroutine; keep it brief
	Logger      *slog.Logger
}

// MaxStepDuration caps a single slot. Products of tempo and steps that do not
// fit a time.Duration saturate here.
const MaxStepDuration = time.Duration(math.MaxInt64)

// StepDuration converts a steps multiplier into wall time at tempo BPM.
func StepDuration(tempo, steps float64) time.Duration {
	ns := 60000 / tempo * steps * float64(time.Millisecond)
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= float64(MaxStepDuration):
		return MaxStepDuration
	}
	return time.Duration(ns)
}

// Scheduler plays a list of steps one after another, each for a slot derived
// from the tempo. At most one session runs at a time. Stop is cooperative and
// only observed between steps.
type Scheduler struct {
	emitter Emitter
	spacing time.Duration
	onEvent func(Event)
	log     *slog.Logger

	tempo atomic.Uint64 // math.Float64bits
	loop  atomic.Bool

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	current    int
	hasCurrent bool

	eventCh   chan Event
	eventChMu sync.Mutex
}

type emitCmd struct {
	voices []osc.Component
	dur    time.Duration
}

func New(emitter Emitter, opts Options) *Scheduler {
	s := &Scheduler{
		emitter: emitter,
		spacing: opts.EmitSpacing,
		onEvent: opts.OnEvent,
		log:     opts.Logger,
	}
	if s.spacing == 0 {
		s.spacing = DefaultEmitSpacing
	} else if s.spacing < 0 {
		s.spacing = 0
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if err := s.SetTempo(opts.Tempo); err != nil {
		s.SetTempo(DefaultTempo)
	}
	s.loop.Store(opts.Loop)
	return s
}

// SetTempo changes the tempo. A running session picks it up at the next step.
func (s *Scheduler) SetTempo(bpm float64) error {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return ErrInvalidTempo
	}
	s.tempo.Store(math.Float64bits(bpm))
	return nil
}

func (s *Scheduler) Tempo() float64 { return math.Float64frombits(s.tempo.Load()) }

// SetLoop is read when a session reaches the end of its list.
func (s *Scheduler) SetLoop(enabled bool) { s.loop.Store(enabled) }

func (s *Scheduler) Loop() bool { return s.loop.Load() }

// Play starts a session over a copy of steps. It returns false and does
// nothing if a session is already running or steps is empty.
func (s *Scheduler) Play(steps []Step) bool {
	if len(steps) == 0 {
		return false
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	snapshot := make([]Step, len(steps))
	for i, st := range steps {
		snapshot[i] = Step{ID: st.ID, Steps: st.Steps, Voices: slices.Clone(st.Voices)}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.log.Debug("playback started", "steps", len(snapshot), "tempo", s.Tempo(), "loop", s.Loop())
	go s.run(ctx, snapshot, done)
	return true
}

func (s *Scheduler) run(ctx context.Context, steps []Step, done chan struct{}) {
	emits := make(chan emitCmd, len(steps))
	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		s.emitLoop(emits)
	}()
	defer func() {
		close(emits)
		<-emitted
		s.finish(done)
	}()

	for {
		for _, st := range steps {
			if ctx.Err() != nil {
				s.log.Debug("playback stopped at step boundary", "next", st.ID)
				return
			}
			d := StepDuration(s.Tempo(), st.Steps)
			s.setCurrent(st.ID)
			s.log.Debug("step", "id", st.ID, "duration", d)
			s.sendEvent(Event{Kind: EventStepStarted, ID: st.ID, Duration: d})
			select {
			case emits <- emitCmd{voices: st.Voices, dur: d}:
			default:
				s.log.Warn("emitter backlog full, dropping step audio", "id", st.ID)
			}
			time.Sleep(d)
		}
		if !s.loop.Load() {
			return
		}
		s.sendEvent(Event{Kind: EventLoopCompleted})
	}
}

func (s *Scheduler) emitLoop(emits <-chan emitCmd) {
	for cmd := range emits {
		s.emitVoices(cmd.voices, cmd.dur)
	}
}

func (s *Scheduler) emitVoices(voices []osc.Component, d time.Duration) {
	for i, v := range voices {
		if i > 0 && s.spacing > 0 {
			time.Sleep(s.spacing)
		}
		s.emitter.Emit(v, d)
	}
}

// Sound emits voices for d outside of any session, spaced the same way as a
// step. It returns immediately and never affects Current, Running, or events.
func (s *Scheduler) Sound(voices []osc.Component, d time.Duration) {
	if len(voices) == 0 {
		return
	}
	voices = slices.Clone(voices)
	go s.emitVoices(voices, d)
}

func (s *Scheduler) finish(done chan struct{}) {
	s.mu.Lock()
	s.running = false
	s.hasCurrent = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.log.Debug("playback ended")
	s.sendEvent(Event{Kind: EventPlaybackEnded})
	close(done)
}

// Stop asks the running session to end. The step currently sounding plays out
// its full slot first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the current session ends. It returns immediately when
// nothing is playing.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current returns the ID of the step being played.
func (s *Scheduler) Current() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCurrent
}

func (s *Scheduler) setCurrent(id int) {
	s.mu.Lock()
	s.current = id
	s.hasCurrent = true
	s.mu.Unlock()
}

// Watch returns a channel that receives scheduler events. The channel is
// buffered (cap 16) and events are dropped when it is full. Only the most
// recent Watch channel receives events.
func (s *Scheduler) Watch() <-chan Event {
	ch := make(chan Event, 16)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

func (s *Scheduler) sendEvent(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}
