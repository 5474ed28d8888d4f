package wave

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/wavestep-go/internal/osc"
)

func assertClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIncrementalAddMatchesRecompute(t *testing.T) {
	cases := []struct {
		name  string
		comps []osc.Component
	}{
		{"single sine", []osc.Component{{Freq: 440, Kind: osc.Sine, Amp: 0.1}}},
		{"mixed", []osc.Component{
			{Freq: 261.63, Kind: osc.Sine, Amp: 0.1},
			{Freq: 329.63, Kind: osc.Square, Amp: 0.1},
			{Freq: 392, Kind: osc.Triangle, Amp: 0.2},
			{Freq: 1000, Kind: osc.Sawtooth, Amp: 0.05},
		}},
		{"zero and high", []osc.Component{
			{Freq: 0, Kind: osc.Square, Amp: 0.1},
			{Freq: 19999.5, Kind: osc.Sine, Amp: 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New(44100)
			for _, c := range tc.comps {
				if err := b.Add(c.Freq, c.Kind, c.Amp); err != nil {
					t.Fatalf("add: %v", err)
				}
			}
			incremental := b.Snapshot()
			b.RecomputeAll()
			assertClose(t, b.Samples(), incremental, 1e-9)
		})
	}
}

func TestSamplesMatchComponentSum(t *testing.T) {
	b := New(48000)
	_ = b.Set(220, osc.Triangle, 0.1)
	_ = b.Add(660, osc.Sawtooth, 0.1)
	for i, v := range b.Samples() {
		tm := float64(i) / 48000
		want := osc.Eval(osc.Triangle, 220, 0.1, tm) + osc.Eval(osc.Sawtooth, 660, 0.1, tm)
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("sample %d: got %v, want %v", i, v, want)
		}
	}
}

func TestSetThenAddFirstSample(t *testing.T) {
	b := New(44100)
	if err := b.Set(440, osc.Sine, osc.DefaultAmp); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.Add(880, osc.Square, osc.DefaultAmp); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := b.Samples()[0]; math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("samples[0] = %v, want 0.1", got)
	}
}

func TestSetReplacesComponents(t *testing.T) {
	b := New(44100)
	_ = b.Add(100, osc.Sine, 0.1)
	_ = b.Add(200, osc.Sine, 0.1)
	_ = b.Set(300, osc.Square, 0.1)
	comps := b.Components()
	if len(comps) != 1 || comps[0].Freq != 300 || comps[0].Kind != osc.Square {
		t.Fatalf("expected single 300Hz square, got %+v", comps)
	}
	if b.Samples()[0] != 0.1 {
		t.Fatalf("expected recomputed samples, got %v", b.Samples()[0])
	}
}

func TestInvalidKindLeavesBufferUntouched(t *testing.T) {
	b := New(44100)
	_ = b.Add(440, osc.Sine, 0.1)
	before := b.Snapshot()
	if err := b.Add(440, osc.Kind(7), 0.1); !errors.Is(err, osc.ErrInvalidWaveKind) {
		t.Fatalf("expected ErrInvalidWaveKind, got %v", err)
	}
	if err := b.Replace(osc.Component{Freq: 1, Kind: osc.Kind(-3)}); !errors.Is(err, osc.ErrInvalidWaveKind) {
		t.Fatalf("expected ErrInvalidWaveKind from Replace, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("component count changed: %d", b.Len())
	}
	assertClose(t, b.Samples(), before, 0)
}

func TestSnapshotIsACopy(t *testing.T) {
	b := New(44100)
	_ = b.Set(440, osc.Square, 0.1)
	snap := b.Snapshot()
	_ = b.Add(440, osc.Square, 0.1)
	if snap[0] != 0.1 {
		t.Fatalf("snapshot aliased live samples: %v", snap[0])
	}
	comps := b.Components()
	comps[0].Freq = 1
	if b.Components()[0].Freq != 440 {
		t.Fatalf("Components aliased the live list")
	}
}

func TestResetKeepsComponents(t *testing.T) {
	b := New(44100)
	_ = b.Set(440, osc.Square, 0.1)
	b.Reset()
	for i, v := range b.Samples() {
		if v != 0 {
			t.Fatalf("sample %d not zeroed: %v", i, v)
		}
	}
	if b.Len() != 1 {
		t.Fatalf("reset dropped components")
	}
	if len(b.Samples()) != PreviewLength {
		t.Fatalf("preview length = %d, want %d", len(b.Samples()), PreviewLength)
	}
}
