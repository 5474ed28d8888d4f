// Package wavestep composes waveforms from oscillator components, freezes
// them into players, and plays the player list at a shared tempo.
package wavestep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cbegin/wavestep-go/internal/notes"
	"github.com/cbegin/wavestep-go/internal/osc"
	"github.com/cbegin/wavestep-go/internal/playlist"
	"github.com/cbegin/wavestep-go/internal/sequencer"
	"github.com/cbegin/wavestep-go/internal/wave"
)

var (
	ErrPlaybackActive   = errors.New("playback is active")
	ErrEmptyWaveform    = errors.New("waveform has no components")
	ErrInvalidFrequency = errors.New("frequency must be a finite number >= 0")
)

// LiveDuration is how long PlayLive sounds the live waveform.
const LiveDuration = time.Second

// Surface is re-exported so callers can attach a canvas without importing
// internal packages.
type Surface = wave.Surface

type studioConfig struct {
	emitter     sequencer.Emitter
	tempo       float64
	loop        bool
	surface     wave.Surface
	logger      *slog.Logger
	branching   bool
	interval    time.Duration
	emitSpacing time.Duration
	onEvent     func(sequencer.Event)
}

type StudioOption func(*studioConfig)

// WithEmitter routes playback tones to e. Without it playback is silent.
func WithEmitter(e sequencer.Emitter) StudioOption {
	return func(c *studioConfig) { c.emitter = e }
}

func WithTempo(bpm float64) StudioOption {
	return func(c *studioConfig) { c.tempo = bpm }
}

func WithLoop(enabled bool) StudioOption {
	return func(c *studioConfig) { c.loop = enabled }
}

func WithSurface(s Surface) StudioOption {
	return func(c *studioConfig) { c.surface = s }
}

func WithLogger(l *slog.Logger) StudioOption {
	return func(c *studioConfig) { c.logger = l }
}

// WithBranchingRedo keeps undone components across new additions.
func WithBranchingRedo() StudioOption {
	return func(c *studioConfig) { c.branching = true }
}

func WithAnimationInterval(d time.Duration) StudioOption {
	return func(c *studioConfig) { c.interval = d }
}

// WithEmitSpacing sets the gap between voices of one step.
func WithEmitSpacing(d time.Duration) StudioOption {
	return func(c *studioConfig) { c.emitSpacing = d }
}

// WithEventHook is called on the playback goroutine for every scheduler event.
func WithEventHook(fn func(sequencer.Event)) StudioOption {
	return func(c *studioConfig) { c.onEvent = fn }
}

type nopEmitter struct{}

func (nopEmitter) Emit(osc.Component, time.Duration) {}

// Studio owns the live waveform, its edit history, the player list, and the
// scheduler. Editing methods are meant to be called from one goroutine.
// Animate may run on another; edits made while it runs fail with
// wave.ErrBusy. Transport state is safe to query from any goroutine.
type Studio struct {
	sampleRate int
	buffer     *wave.Buffer
	history    *wave.History
	players    PlayerList
	sched      *sequencer.Scheduler
	nextID     int
	log        *slog.Logger
}

func NewStudio(sampleRate int, opts ...StudioOption) *Studio {
	cfg := studioConfig{emitter: nopEmitter{}, tempo: sequencer.DefaultTempo}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	var bufOpts []wave.Option
	if cfg.surface != nil {
		bufOpts = append(bufOpts, wave.WithSurface(cfg.surface))
	}
	if cfg.interval > 0 {
		bufOpts = append(bufOpts, wave.WithAnimationInterval(cfg.interval))
	}
	buf := wave.New(sampleRate, bufOpts...)

	var histOpts []wave.HistoryOption
	if cfg.branching {
		histOpts = append(histOpts, wave.WithBranchingRedo())
	}

	return &Studio{
		sampleRate: sampleRate,
		buffer:     buf,
		history:    wave.NewHistory(buf, histOpts...),
		sched: sequencer.New(cfg.emitter, sequencer.Options{
			Tempo:       cfg.tempo,
			Loop:        cfg.loop,
			EmitSpacing: cfg.emitSpacing,
			OnEvent:     cfg.onEvent,
			Logger:      cfg.logger,
		}),
		nextID: 1,
		log:    cfg.logger,
	}
}

func (s *Studio) SampleRate() int             { return s.sampleRate }
func (s *Studio) Buffer() *wave.Buffer        { return s.buffer }
func (s *Studio) History() *wave.History      { return s.history }
func (s *Studio) Components() []osc.Component { return s.buffer.Components() }

// hold claims the live buffer for one edit. It fails with wave.ErrBusy while
// an animation owns the buffer.
func (s *Studio) hold() (release func(), err error) {
	if !s.buffer.TryAcquire() {
		return nil, wave.ErrBusy
	}
	return s.buffer.Release, nil
}

func checkFrequency(freq float64) error {
	if !(freq >= 0) || math.IsInf(freq, 0) {
		return fmt.Errorf("frequency %v: %w", freq, ErrInvalidFrequency)
	}
	return nil
}

// Set replaces the live waveform with a single component.
func (s *Studio) Set(freq float64, kind osc.Kind) error {
	if err := checkFrequency(freq); err != nil {
		return err
	}
	release, err := s.hold()
	if err != nil {
		return err
	}
	defer release()
	if err := s.buffer.Set(freq, kind, osc.DefaultAmp); err != nil {
		return err
	}
	s.history.Forget()
	s.refresh()
	return nil
}

// Add mixes one more component into the live waveform.
func (s *Studio) Add(freq float64, kind osc.Kind) error {
	if err := checkFrequency(freq); err != nil {
		return err
	}
	release, err := s.hold()
	if err != nil {
		return err
	}
	defer release()
	if err := s.history.Add(freq, kind, osc.DefaultAmp); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// SetChord replaces the live waveform with every note of a table chord.
func (s *Studio) SetChord(name string, octave int, kind osc.Kind) error {
	freqs, err := chordFrequencies(name, octave)
	if err != nil {
		return err
	}
	release, err := s.hold()
	if err != nil {
		return err
	}
	defer release()
	comps := make([]osc.Component, len(freqs))
	for i, f := range freqs {
		comps[i] = osc.Component{Freq: f, Kind: kind, Amp: osc.DefaultAmp}
	}
	if err := s.buffer.Replace(comps...); err != nil {
		return err
	}
	s.history.Forget()
	s.refresh()
	return nil
}

// AddChord mixes each note of a table chord into the live waveform. Each
// note is undone separately.
func (s *Studio) AddChord(name string, octave int, kind osc.Kind) error {
	freqs, err := chordFrequencies(name, octave)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return &osc.InvalidKindError{Kind: kind}
	}
	release, err := s.hold()
	if err != nil {
		return err
	}
	defer release()
	for _, f := range freqs {
		if err := s.history.Add(f, kind, osc.DefaultAmp); err != nil {
			return err
		}
	}
	s.refresh()
	return nil
}

func chordFrequencies(name string, octave int) ([]float64, error) {
	freqs, ok := notes.ChordFrequencies(name, octave)
	if !ok {
		return nil, fmt.Errorf("unknown chord %q at octave %d", name, octave)
	}
	return freqs, nil
}

// Undo removes the most recent component. It reports false when there is
// nothing to undo or an animation is running.
func (s *Studio) Undo() bool {
	release, err := s.hold()
	if err != nil {
		return false
	}
	defer release()
	if !s.history.Undo() {
		return false
	}
	s.refresh()
	return true
}

func (s *Studio) Redo() bool {
	release, err := s.hold()
	if err != nil {
		return false
	}
	defer release()
	if !s.history.Redo() {
		return false
	}
	s.refresh()
	return true
}

// Animate replays the build-up of the live waveform one component at a time.
// It may run on its own goroutine; edits made meanwhile return wave.ErrBusy.
func (s *Studio) Animate(ctx context.Context) error {
	return s.buffer.PlayAnimation(ctx)
}

func (s *Studio) Render() error {
	release, err := s.hold()
	if err != nil {
		return err
	}
	defer release()
	return s.buffer.Render()
}

func (s *Studio) refresh() {
	if !s.buffer.Renderable() {
		return
	}
	if err := s.buffer.Render(); err != nil {
		s.log.Warn("render failed", "err", err)
	}
}

// PlayLive sounds the live components for LiveDuration without starting a
// playback session.
func (s *Studio) PlayLive() error {
	waves := s.buffer.Components()
	if len(waves) == 0 {
		return ErrEmptyWaveform
	}
	s.sched.Sound(waves, LiveDuration)
	return nil
}

// Audition sounds one player for its slot at the current tempo without
// starting a playback session.
func (s *Studio) Audition(id int) error {
	p, ok := s.players.Get(id)
	if !ok {
		return fmt.Errorf("audition %d: %w", id, ErrUnknownPlayer)
	}
	s.sched.Sound(p.Waves, sequencer.StepDuration(s.sched.Tempo(), p.Steps))
	return nil
}

// Commit freezes the live waveform into a new player appended to the list.
// An empty label is derived from the components.
func (s *Studio) Commit(label string) (Player, error) {
	release, err := s.hold()
	if err != nil {
		return Player{}, err
	}
	defer release()
	waves := s.buffer.Components()
	if len(waves) == 0 {
		return Player{}, ErrEmptyWaveform
	}
	if label == "" {
		label = deriveLabel(waves)
	}
	p := Player{
		ID:      s.allocID(),
		Label:   label,
		Steps:   1,
		Waves:   waves,
		Samples: s.buffer.Snapshot(),
	}
	s.players.append(p)
	s.log.Debug("player committed", "id", p.ID, "label", p.Label, "components", len(waves))
	return p.clone(), nil
}

func (s *Studio) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

// deriveLabel names a chord when the components spell one at a single
// octave, a note when there is exactly one table frequency, else "wave".
func deriveLabel(waves []osc.Component) string {
	names := make([]string, 0, len(waves))
	octave := -1
	sameOctave := true
	for _, w := range waves {
		n, o, ok := notes.Pitch(w.Freq)
		if !ok {
			return "wave"
		}
		if octave >= 0 && o != octave {
			sameOctave = false
		}
		octave = o
		names = append(names, n)
	}
	if sameOctave {
		if chord, ok := notes.ChordName(names); ok {
			return chord
		}
	}
	if len(names) == 1 {
		return names[0]
	}
	return "wave"
}

func (s *Studio) Players() []Player            { return s.players.All() }
func (s *Studio) Player(id int) (Player, bool) { return s.players.Get(id) }

func (s *Studio) Remove(id int) error {
	if s.sched.Running() {
		return ErrPlaybackActive
	}
	return s.players.Remove(id)
}

func (s *Studio) Move(from, to int) error {
	if s.sched.Running() {
		return ErrPlaybackActive
	}
	return s.players.Move(from, to)
}

// SetSteps may be called during playback; the running session keeps the
// value it started with.
func (s *Studio) SetSteps(id int, steps float64) error { return s.players.SetSteps(id, steps) }

func (s *Studio) SetLabel(id int, label string) error { return s.players.SetLabel(id, label) }

// Play starts the player list from the top. It reports false when the list
// is empty or a session is already running.
func (s *Studio) Play() bool {
	ps := s.players.players
	steps := make([]sequencer.Step, len(ps))
	for i, p := range ps {
		steps[i] = sequencer.Step{ID: p.ID, Steps: p.Steps, Voices: p.Waves}
	}
	ok := s.sched.Play(steps)
	if ok {
		s.log.Info("playback started", "players", len(steps), "tempo", s.sched.Tempo(), "loop", s.sched.Loop())
	}
	return ok
}

func (s *Studio) Stop()                         { s.sched.Stop() }
func (s *Studio) Wait()                         { s.sched.Wait() }
func (s *Studio) Watch() <-chan sequencer.Event { return s.sched.Watch() }
func (s *Studio) SetTempo(bpm float64) error    { return s.sched.SetTempo(bpm) }
func (s *Studio) Tempo() float64                { return s.sched.Tempo() }
func (s *Studio) SetLoop(enabled bool)          { s.sched.SetLoop(enabled) }
func (s *Studio) Loop() bool                    { return s.sched.Loop() }
func (s *Studio) Playing() bool                 { return s.sched.Running() }
func (s *Studio) Current() (int, bool)          { return s.sched.Current() }

// Export writes the player list in the line format. Table frequencies are
// written as note ids.
func (s *Studio) Export() string {
	lines := make([]playlist.Line, 0, s.players.Len())
	for _, p := range s.players.players {
		terms := make([]playlist.Term, len(p.Waves))
		for i, w := range p.Waves {
			f, ok := notes.Name(w.Freq)
			if !ok {
				f = playlist.FormatNumber(w.Freq)
			}
			terms[i] = playlist.Term{Freq: f, Kind: w.Kind}
		}
		lines = append(lines, playlist.Line{Terms: terms, Steps: p.Steps, Label: p.Label})
	}
	return playlist.Encode(lines)
}

// Import replaces the player list with the players decoded from text and
// returns how many were loaded. Terms that do not resolve to a frequency are
// dropped, and a line left without terms is skipped.
func (s *Studio) Import(text string) (int, error) {
	if s.sched.Running() {
		return 0, ErrPlaybackActive
	}
	var players []Player
	for _, line := range playlist.Decode(text) {
		waves := make([]osc.Component, 0, len(line.Terms))
		for _, term := range line.Terms {
			f, err := notes.Frequency(term.Freq)
			if err != nil {
				s.log.Debug("import term dropped", "term", term.Freq, "err", err)
				continue
			}
			waves = append(waves, osc.Component{Freq: f, Kind: term.Kind, Amp: osc.DefaultAmp})
		}
		if len(waves) == 0 {
			continue
		}
		samples, err := Synthesize(s.sampleRate, waves)
		if err != nil {
			return 0, fmt.Errorf("import %q: %w", line.Label, err)
		}
		players = append(players, Player{
			Label:   line.Label,
			Steps:   line.Steps,
			Waves:   waves,
			Samples: samples,
		})
	}
	for i := range players {
		players[i].ID = s.allocID()
	}
	s.players.replace(players)
	s.log.Info("players imported", "count", len(players))
	return len(players), nil
}
