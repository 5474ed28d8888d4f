package audio

import (
	"math"
	"time"

	"github.com/cbegin/wavestep-go/internal/osc"
)

const (
	// ToneGain is the starting gain of every emitted tone.
	ToneGain = 0.1
	// ToneFloor is the gain a tone has decayed to when it ends.
	ToneFloor = 0.001
)

// Tone renders one oscillator component with an exponential decay from
// ToneGain to ToneFloor over its duration, then finishes.
type Tone struct {
	fn         func(t float64) float64
	sampleRate float64
	frames     int
	pos        int
	gain       float64
	decay      float64
}

func NewTone(c osc.Component, d time.Duration, sampleRate int) (*Tone, error) {
	fn, err := voiceFunc(c)
	if err != nil {
		return nil, err
	}
	frames := int(d.Seconds() * float64(sampleRate))
	if frames < 1 {
		frames = 1
	}
	return &Tone{
		fn:         fn,
		sampleRate: float64(sampleRate),
		frames:     frames,
		gain:       ToneGain,
		decay:      math.Pow(ToneFloor/ToneGain, 1/float64(frames)),
	}, nil
}

// Process fills interleaved stereo frames, padding with silence once the
// tone is over.
func (t *Tone) Process(dst []float32) {
	for i := 0; i+1 < len(dst); i += 2 {
		if t.pos >= t.frames {
			dst[i], dst[i+1] = 0, 0
			continue
		}
		v := float32(t.fn(float64(t.pos)/t.sampleRate) * t.gain)
		dst[i], dst[i+1] = v, v
		t.gain *= t.decay
		t.pos++
	}
}

func (t *Tone) Finished() bool { return t.pos >= t.frames }

// Frames is the tone length in sample frames.
func (t *Tone) Frames() int { return t.frames }

// voiceFunc is the unit-amplitude waveform a tone plays. Triangles are made
// symmetric around zero here; the preview triangle spans [0, 1] and would
// put a DC offset on the output.
func voiceFunc(c osc.Component) (func(t float64) float64, error) {
	if c.Kind != osc.Triangle {
		return osc.Func(c.Kind, c.Freq, 1)
	}
	f := c.Freq
	return func(t float64) float64 {
		return 1 - 4*math.Abs(math.Mod(f*t+0.25, 1)-0.5)
	}, nil
}
