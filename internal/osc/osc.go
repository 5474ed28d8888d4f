package osc

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

// DefaultAmp is the amplitude used when a caller does not pick one.
const DefaultAmp = 0.1

// Kind selects one of the four oscillator shapes.
type Kind int

const (
	Sine Kind = iota
	Square
	Triangle
	Sawtooth
)

var kindNames = [...]string{
	Sine:     "sine",
	Square:   "square",
	Triangle: "triangle",
	Sawtooth: "sawtooth",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the four supported shapes.
func (k Kind) Valid() bool { return k >= Sine && k <= Sawtooth }

// ErrInvalidWaveKind is wrapped by every error caused by an out-of-range Kind.
var ErrInvalidWaveKind = errors.New("invalid wave kind")

type InvalidKindError struct {
	Kind Kind
	Name string // set when the kind came from text
}

func (e *InvalidKindError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid wave kind %q", e.Name)
	}
	return fmt.Sprintf("invalid wave kind %d", int(e.Kind))
}

func (e *InvalidKindError) Unwrap() error { return ErrInvalidWaveKind }

// ParseKind maps a wave type name to a Kind. An empty name means Sine.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Sine, nil
	}
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, &InvalidKindError{Kind: -1, Name: name}
}

// Component is one oscillator summed into a buffer.
type Component struct {
	Freq float64
	Kind Kind
	Amp  float64
}

// Eval returns the component's value at time t (seconds).
func (c Component) Eval(t float64) float64 { return Eval(c.Kind, c.Freq, c.Amp, t) }

// Func returns the oscillator for kind as a function of time.
func Func(kind Kind, freq, amp float64) (func(t float64) float64, error) {
	switch kind {
	case Sine:
		return func(t float64) float64 { return amp * math.Sin(twoPi*freq*t) }, nil
	case Square:
		return func(t float64) float64 {
			if math.Sin(twoPi*freq*t) >= 0 {
				return amp
			}
			return -amp
		}, nil
	case Triangle:
		return func(t float64) float64 {
			return amp * (1 - 2*math.Abs(math.Mod(freq*t+0.25, 1)-0.5))
		}, nil
	case Sawtooth:
		return func(t float64) float64 {
			ft := freq * t
			return amp * 2 * (ft - math.Floor(ft+0.5))
		}, nil
	}
	return nil, &InvalidKindError{Kind: kind}
}

// Eval evaluates a single oscillator sample. An invalid kind is a programming
// error and panics with an *InvalidKindError.
func Eval(kind Kind, freq, amp, t float64) float64 {
	f, err := Func(kind, freq, amp)
	if err != nil {
		panic(err)
	}
	return f(t)
}
