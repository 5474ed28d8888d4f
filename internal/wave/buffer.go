// Package wave holds the live additive waveform: a fixed-length preview buffer
// summed from oscillator components, plus its edit history.
package wave

import (
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/viterin/vek"

	"github.com/cbegin/wavestep-go/internal/osc"
)

// PreviewLength is the number of samples in every preview buffer. It does not
// depend on the sample rate.
const PreviewLength = 1024

const defaultAnimationInterval = 100 * time.Millisecond

var (
	ErrNotRenderable = errors.New("wave: buffer has no drawing surface")
	ErrBusy          = errors.New("wave: animation already running")
)

type Option func(*Buffer)

// WithSurface attaches a drawing surface. Buffers without one are headless.
func WithSurface(s Surface) Option {
	return func(b *Buffer) { b.surface = s }
}

// WithAnimationInterval sets the pause between steps of PlayAnimation.
func WithAnimationInterval(d time.Duration) Option {
	return func(b *Buffer) {
		if d >= 0 {
			b.interval = d
		}
	}
}

// Buffer is not safe for concurrent use. Callers that animate on one
// goroutine and edit on another must hold the buffer through TryAcquire
// for every edit; PlayAnimation holds it for its whole run.
type Buffer struct {
	sampleRate int
	samples    []float64
	scratch    []float64
	components []osc.Component
	surface    Surface
	interval   time.Duration
	busy       atomic.Bool
	animating  atomic.Bool
}

func New(sampleRate int, opts ...Option) *Buffer {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	b := &Buffer{
		sampleRate: sampleRate,
		samples:    make([]float64, PreviewLength),
		scratch:    make([]float64, PreviewLength),
		interval:   defaultAnimationInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) SampleRate() int { return b.sampleRate }

// TryAcquire claims exclusive use of the buffer. It fails while an animation
// or another holder has it.
func (b *Buffer) TryAcquire() bool { return b.busy.CompareAndSwap(false, true) }

// Release gives back a claim taken with TryAcquire.
func (b *Buffer) Release() { b.busy.Store(false) }

// Set replaces the whole tone with a single component.
func (b *Buffer) Set(freq float64, kind osc.Kind, amp float64) error {
	return b.Replace(osc.Component{Freq: freq, Kind: kind, Amp: amp})
}

// Replace swaps in a new component list and recomputes every sample.
func (b *Buffer) Replace(components ...osc.Component) error {
	for _, c := range components {
		if !c.Kind.Valid() {
			return &osc.InvalidKindError{Kind: c.Kind}
		}
	}
	b.components = append(b.components[:0], components...)
	b.RecomputeAll()
	return nil
}

// Add appends a component and accumulates it onto the existing samples
// without touching earlier contributions.
func (b *Buffer) Add(freq float64, kind osc.Kind, amp float64) error {
	c := osc.Component{Freq: freq, Kind: kind, Amp: amp}
	if err := b.accumulate(c); err != nil {
		return err
	}
	b.components = append(b.components, c)
	return nil
}

// Reset zeroes the samples and leaves the components alone.
func (b *Buffer) Reset() {
	clear(b.samples)
}

// RecomputeAll rebuilds the samples from the components in insertion order.
func (b *Buffer) RecomputeAll() {
	b.Reset()
	for _, c := range b.components {
		// components are validated on the way in
		_ = b.accumulate(c)
	}
}

func (b *Buffer) accumulate(c osc.Component) error {
	f, err := osc.Func(c.Kind, c.Freq, c.Amp)
	if err != nil {
		return err
	}
	sr := float64(b.sampleRate)
	for i := range b.scratch {
		b.scratch[i] = f(float64(i) / sr)
	}
	vek.Add_Inplace(b.samples, b.scratch)
	return nil
}

// Snapshot returns a copy of the samples.
func (b *Buffer) Snapshot() []float64 { return slices.Clone(b.samples) }

// Samples exposes the live samples for drawing. Callers must not modify or
// retain the slice.
func (b *Buffer) Samples() []float64 { return b.samples }

// Components returns a copy of the component list.
func (b *Buffer) Components() []osc.Component { return slices.Clone(b.components) }

func (b *Buffer) Len() int { return len(b.components) }

func (b *Buffer) push(c osc.Component) {
	b.components = append(b.components, c)
}

func (b *Buffer) pop() (osc.Component, bool) {
	n := len(b.components)
	if n == 0 {
		return osc.Component{}, false
	}
	c := b.components[n-1]
	b.components = b.components[:n-1]
	return c, true
}
