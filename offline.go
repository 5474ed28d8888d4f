package wavestep

import (
	"github.com/cbegin/wavestep-go/internal/osc"
	"github.com/cbegin/wavestep-go/internal/wave"
)

// Synthesize renders the preview samples of waves on a headless buffer.
func Synthesize(sampleRate int, waves []osc.Component) ([]float64, error) {
	buf := wave.New(sampleRate)
	if err := buf.Replace(waves...); err != nil {
		return nil, err
	}
	return buf.Snapshot(), nil
}
