package wavestep

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/wavestep-go/internal/osc"
	"github.com/cbegin/wavestep-go/internal/sequencer"
	"github.com/cbegin/wavestep-go/internal/wave"
)

const testRate = 8000

func mustCommit(t *testing.T, s *Studio, label string) Player {
	t.Helper()
	p, err := s.Commit(label)
	if err != nil {
		t.Fatalf("Commit(%q): %v", label, err)
	}
	return p
}

func TestCommitDerivesLabel(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(s *Studio) error
		label string
		want  string
	}{
		{
			name: "single note",
			edit: func(s *Studio) error { return s.Set(261.63, osc.Sine) },
			want: "C",
		},
		{
			name: "chord",
			edit: func(s *Studio) error { return s.SetChord("Amin", 4, osc.Triangle) },
			want: "Amin",
		},
		{
			name: "off table",
			edit: func(s *Studio) error { return s.Set(300, osc.Square) },
			want: "wave",
		},
		{
			name: "two unrelated notes",
			edit: func(s *Studio) error {
				if err := s.Set(261.63, osc.Sine); err != nil {
					return err
				}
				return s.Add(440, osc.Sine)
			},
			want: "wave",
		},
		{
			name:  "explicit label kept",
			edit:  func(s *Studio) error { return s.Set(440, osc.Sine) },
			label: "lead",
			want:  "lead",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStudio(testRate)
			if err := tt.edit(s); err != nil {
				t.Fatalf("edit: %v", err)
			}
			p := mustCommit(t, s, tt.label)
			if p.Label != tt.want {
				t.Fatalf("label = %q, want %q", p.Label, tt.want)
			}
			if p.Steps != 1 {
				t.Fatalf("steps = %v, want 1", p.Steps)
			}
		})
	}
}

func TestCommitEmptyWaveform(t *testing.T) {
	s := NewStudio(testRate)
	if _, err := s.Commit(""); !errors.Is(err, ErrEmptyWaveform) {
		t.Fatalf("err = %v, want ErrEmptyWaveform", err)
	}
}

func TestCommitFreezesSamples(t *testing.T) {
	s := NewStudio(testRate)
	if err := s.Set(440, osc.Sine); err != nil {
		t.Fatal(err)
	}
	p := mustCommit(t, s, "")
	if err := s.Add(880, osc.Square); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Player(p.ID)
	if !slices.Equal(got.Samples, p.Samples) || len(got.Waves) != 1 {
		t.Fatalf("committed player changed after a later edit")
	}
	if len(got.Samples) != wave.PreviewLength {
		t.Fatalf("samples = %d, want %d", len(got.Samples), wave.PreviewLength)
	}
}

func TestUndoRedoThroughStudio(t *testing.T) {
	s := NewStudio(testRate)
	if s.Undo() || s.Redo() {
		t.Fatalf("undo/redo on empty studio reported a change")
	}
	if err := s.AddChord("Cmaj", 4, osc.Sine); err != nil {
		t.Fatal(err)
	}
	if len(s.Components()) != 3 {
		t.Fatalf("components = %d, want 3", len(s.Components()))
	}
	if !s.Undo() || len(s.Components()) != 2 {
		t.Fatalf("undo did not remove one note")
	}
	if !s.Redo() || len(s.Components()) != 3 {
		t.Fatalf("redo did not restore the note")
	}
}

func TestChordErrors(t *testing.T) {
	s := NewStudio(testRate)
	if err := s.SetChord("Hmaj", 4, osc.Sine); err == nil {
		t.Fatalf("unknown chord accepted")
	}
	if err := s.AddChord("Cmaj", 4, osc.Kind(42)); !errors.Is(err, osc.ErrInvalidWaveKind) {
		t.Fatalf("err = %v, want ErrInvalidWaveKind", err)
	}
	if len(s.Components()) != 0 {
		t.Fatalf("failed chord left components behind")
	}
}

func TestMoveReorders(t *testing.T) {
	s := NewStudio(testRate)
	var ids []int
	for _, f := range []float64{261.63, 293.66, 329.63} {
		if err := s.Set(f, osc.Sine); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, mustCommit(t, s, "").ID)
	}
	if err := s.Move(0, 2); err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, p := range s.Players() {
		got = append(got, p.ID)
	}
	want := []int{ids[1], ids[2], ids[0]}
	if !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if err := s.Move(0, 3); err == nil {
		t.Fatalf("out of range move accepted")
	}
	if err := s.Remove(999); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}

func TestSetStepsValidates(t *testing.T) {
	s := NewStudio(testRate)
	if err := s.Set(440, osc.Sine); err != nil {
		t.Fatal(err)
	}
	p := mustCommit(t, s, "")
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := s.SetSteps(p.ID, bad); !errors.Is(err, ErrInvalidSteps) {
			t.Fatalf("SetSteps(%v) err = %v, want ErrInvalidSteps", bad, err)
		}
	}
	if err := s.SetSteps(p.ID, 0.5); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Player(p.ID); got.Steps != 0.5 {
		t.Fatalf("steps = %v, want 0.5", got.Steps)
	}
}

func TestListLockedWhilePlaying(t *testing.T) {
	s := NewStudio(testRate, WithTempo(60))
	if s.Play() {
		t.Fatalf("empty list started playback")
	}
	if err := s.Set(440, osc.Sine); err != nil {
		t.Fatal(err)
	}
	p := mustCommit(t, s, "")
	mustCommit(t, s, "")
	if !s.Play() {
		t.Fatalf("Play returned false")
	}
	if err := s.Move(0, 1); !errors.Is(err, ErrPlaybackActive) {
		t.Fatalf("Move err = %v, want ErrPlaybackActive", err)
	}
	if err := s.Remove(p.ID); !errors.Is(err, ErrPlaybackActive) {
		t.Fatalf("Remove err = %v, want ErrPlaybackActive", err)
	}
	if _, err := s.Import("A4 sine, 1, x"); !errors.Is(err, ErrPlaybackActive) {
		t.Fatalf("Import err = %v, want ErrPlaybackActive", err)
	}
	if err := s.SetSteps(p.ID, 2); err != nil {
		t.Fatalf("SetSteps during playback: %v", err)
	}
	s.Stop()
	s.Wait()
	if s.Playing() {
		t.Fatalf("still playing after Wait")
	}
	if err := s.Move(0, 1); err != nil {
		t.Fatalf("Move after stop: %v", err)
	}
}

type countingEmitter struct{ n chan osc.Component }

func (e countingEmitter) Emit(c osc.Component, _ time.Duration) { e.n <- c }

func TestPlayEmitsCommittedVoices(t *testing.T) {
	em := countingEmitter{n: make(chan osc.Component, 8)}
	s := NewStudio(testRate, WithEmitter(em), WithTempo(6000), WithEmitSpacing(-1))
	if err := s.SetChord("Cmaj", 4, osc.Square); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, s, "")
	var ended bool
	events := s.Watch()
	if !s.Play() {
		t.Fatal("Play returned false")
	}
	s.Wait()
	for len(events) > 0 {
		if ev := <-events; ev.Kind == sequencer.EventPlaybackEnded {
			ended = true
		}
	}
	if !ended {
		t.Fatalf("no playback-ended event")
	}
	if len(em.n) != 3 {
		t.Fatalf("emitted %d voices, want 3", len(em.n))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewStudio(testRate)
	if err := src.SetChord("Amin", 4, osc.Triangle); err != nil {
		t.Fatal(err)
	}
	a := mustCommit(t, src, "")
	if err := src.Set(300.5, osc.Sawtooth); err != nil {
		t.Fatal(err)
	}
	if err := src.Add(440, osc.Square); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, src, "buzz")
	if err := src.SetSteps(a.ID, 2.5); err != nil {
		t.Fatal(err)
	}

	text := src.Export()
	if !strings.HasPrefix(text, "A4 triangle,C4 triangle,E4 triangle, 2.5, Amin\n") {
		t.Fatalf("export = %q", text)
	}

	dst := NewStudio(testRate)
	n, err := dst.Import(text)
	if err != nil {
		t.Fatal(err)
	}
	want, got := src.Players(), dst.Players()
	if n != len(want) || len(got) != len(want) {
		t.Fatalf("imported %d players, want %d", n, len(want))
	}
	for i := range want {
		if got[i].Label != want[i].Label || got[i].Steps != want[i].Steps {
			t.Fatalf("player %d = %q/%v, want %q/%v", i, got[i].Label, got[i].Steps, want[i].Label, want[i].Steps)
		}
		if !slices.Equal(got[i].Waves, want[i].Waves) {
			t.Fatalf("player %d waves = %v, want %v", i, got[i].Waves, want[i].Waves)
		}
		if !slices.Equal(got[i].Samples, want[i].Samples) {
			t.Fatalf("player %d samples differ after import", i)
		}
	}
	if dst.Export() != text {
		t.Fatalf("second export differs:\n%s\nvs\n%s", dst.Export(), text)
	}
}

func TestImportReplacesAndSkips(t *testing.T) {
	s := NewStudio(testRate)
	if err := s.Set(440, osc.Sine); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, s, "old")

	text := strings.Join([]string{
		"C4 sine, E4, 2, first",
		"garbage",
		"Q9 sine, 1, unresolved",
		"G4 square, 3",
		"",
	}, "\n")
	n, err := s.Import(text)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}
	ps := s.Players()
	if ps[0].Label != "first" || len(ps[0].Waves) != 2 || ps[0].Steps != 2 {
		t.Fatalf("first = %+v", ps[0])
	}
	if ps[1].Label != "Wave" || ps[1].Steps != 3 || ps[1].Waves[0].Kind != osc.Square {
		t.Fatalf("second = %+v", ps[1])
	}
	if ps[0].ID == ps[1].ID {
		t.Fatalf("duplicate ids")
	}
}

func TestSynthesize(t *testing.T) {
	waves := []osc.Component{
		{Freq: 440, Kind: osc.Sine, Amp: osc.DefaultAmp},
		{Freq: 660, Kind: osc.Square, Amp: osc.DefaultAmp},
	}
	got, err := Synthesize(testRate, waves)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(got); i += 97 {
		tm := float64(i) / testRate
		want := waves[0].Eval(tm) + waves[1].Eval(tm)
		if math.Abs(got[i]-want) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want)
		}
	}
	if _, err := Synthesize(testRate, []osc.Component{{Freq: 1, Kind: osc.Kind(-1)}}); err == nil {
		t.Fatalf("invalid kind accepted")
	}
}

type nopSurface struct{}

func (nopSurface) Size() (int, int)    { return 200, 100 }
func (nopSurface) Clear()              {}
func (nopSurface) MoveTo(x, y float64) {}
func (nopSurface) LineTo(x, y float64) {}
func (nopSurface) Stroke()             {}

func TestEditsRejectedWhileAnimating(t *testing.T) {
	s := NewStudio(testRate, WithSurface(nopSurface{}), WithAnimationInterval(time.Hour))
	if err := s.Add(220, osc.Sine); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(330, osc.Square); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Animate(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Buffer().Animating() {
		if time.Now().After(deadline) {
			t.Fatalf("animation never started")
		}
		time.Sleep(time.Millisecond)
	}

	edits := map[string]error{
		"Set":      s.Set(440, osc.Sine),
		"Add":      s.Add(440, osc.Sine),
		"SetChord": s.SetChord("Cmaj", 4, osc.Sine),
		"AddChord": s.AddChord("Cmaj", 4, osc.Sine),
		"Render":   s.Render(),
	}
	for name, err := range edits {
		if !errors.Is(err, wave.ErrBusy) {
			t.Fatalf("%s err = %v, want ErrBusy", name, err)
		}
	}
	if _, err := s.Commit(""); !errors.Is(err, wave.ErrBusy) {
		t.Fatalf("Commit err = %v, want ErrBusy", err)
	}
	if s.Undo() || s.Redo() {
		t.Fatalf("undo/redo ran during animation")
	}

	cancel()
	<-done
	if err := s.Add(440, osc.Sine); err != nil {
		t.Fatalf("Add after animation: %v", err)
	}
	if n := len(s.Components()); n != 3 {
		t.Fatalf("components = %d, want 3", n)
	}
}

func TestAnimateAlongsideEdits(t *testing.T) {
	s := NewStudio(testRate, WithSurface(nopSurface{}), WithAnimationInterval(time.Millisecond))
	if err := s.Add(220, osc.Triangle); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 5 {
			_ = s.Animate(context.Background())
		}
	}()
	for i := range 200 {
		if i%3 == 2 {
			s.Undo()
			continue
		}
		if err := s.Add(float64(100+i), osc.Sine); err != nil && !errors.Is(err, wave.ErrBusy) {
			t.Fatalf("Add: %v", err)
		}
	}
	<-done

	want, err := Synthesize(testRate, s.Components())
	if err != nil {
		t.Fatal(err)
	}
	got := s.Buffer().Snapshot()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEditRejectsInvalidFrequency(t *testing.T) {
	s := NewStudio(testRate)
	for _, f := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := s.Set(f, osc.Sine); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("Set(%v) err = %v, want ErrInvalidFrequency", f, err)
		}
		if err := s.Add(f, osc.Sine); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("Add(%v) err = %v, want ErrInvalidFrequency", f, err)
		}
	}
	if err := s.Set(0, osc.Sine); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if err := s.Add(1234.5, osc.Sawtooth); err != nil {
		t.Fatalf("Add(1234.5): %v", err)
	}
}

type toneRecord struct {
	c osc.Component
	d time.Duration
}

type recordingEmitter struct{ ch chan toneRecord }

func (e recordingEmitter) Emit(c osc.Component, d time.Duration) { e.ch <- toneRecord{c, d} }

func receiveTones(t *testing.T, ch <-chan toneRecord, n int) []toneRecord {
	t.Helper()
	var out []toneRecord
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case r := <-ch:
			out = append(out, r)
		case <-timeout:
			t.Fatalf("received %d tones, want %d", len(out), n)
		}
	}
	return out
}

func TestPlayLiveSoundsComponents(t *testing.T) {
	em := recordingEmitter{ch: make(chan toneRecord, 8)}
	s := NewStudio(testRate, WithEmitter(em))
	if err := s.PlayLive(); !errors.Is(err, ErrEmptyWaveform) {
		t.Fatalf("PlayLive on empty err = %v, want ErrEmptyWaveform", err)
	}
	if err := s.SetChord("Cmaj", 4, osc.Square); err != nil {
		t.Fatal(err)
	}
	if err := s.PlayLive(); err != nil {
		t.Fatal(err)
	}
	if s.Playing() {
		t.Fatalf("PlayLive started a playback session")
	}
	tones := receiveTones(t, em.ch, 3)
	for i, tone := range tones {
		if tone.d != LiveDuration {
			t.Fatalf("tone %d lasts %v, want %v", i, tone.d, LiveDuration)
		}
		if tone.c != s.Components()[i] {
			t.Fatalf("tone %d = %+v, want %+v", i, tone.c, s.Components()[i])
		}
	}
}

func TestAuditionSoundsOnePlayer(t *testing.T) {
	em := recordingEmitter{ch: make(chan toneRecord, 8)}
	s := NewStudio(testRate, WithEmitter(em), WithTempo(120))
	if err := s.Set(440, osc.Triangle); err != nil {
		t.Fatal(err)
	}
	mustCommit(t, s, "")
	if err := s.SetChord("Amin", 4, osc.Sine); err != nil {
		t.Fatal(err)
	}
	p := mustCommit(t, s, "")
	if err := s.SetSteps(p.ID, 2); err != nil {
		t.Fatal(err)
	}

	if err := s.Audition(p.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Current(); ok || s.Playing() {
		t.Fatalf("Audition touched the playback session")
	}
	tones := receiveTones(t, em.ch, 3)
	for i, tone := range tones {
		if tone.d != time.Second {
			t.Fatalf("tone %d lasts %v, want 1s at 120bpm x2", i, tone.d)
		}
		if tone.c != p.Waves[i] {
			t.Fatalf("tone %d = %+v, want %+v", i, tone.c, p.Waves[i])
		}
	}
	if err := s.Audition(999); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}
