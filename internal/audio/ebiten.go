package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/wavestep-go/internal/osc"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// EbitenOutput plays each tone on its own ebiten audio player.
type EbitenOutput struct {
	ctx        *ebitaudio.Context
	sampleRate int
	log        *slog.Logger
	wg         sync.WaitGroup
}

func NewEbitenOutput(sampleRate int, log *slog.Logger) (*EbitenOutput, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	return &EbitenOutput{ctx: ctx, sampleRate: sampleRate, log: log}, nil
}

func (o *EbitenOutput) Emit(c osc.Component, d time.Duration) {
	tone, err := NewTone(c, d, o.sampleRate)
	if err != nil {
		o.log.Error("tone rejected", "freq", c.Freq, "err", err)
		return
	}
	pl, err := o.ctx.NewPlayerF32(NewStreamReader(tone))
	if err != nil {
		o.log.Error("create ebiten player", "err", err)
		return
	}
	pl.Play()
	o.wg.Add(1)
	time.AfterFunc(d+closeSlack, func() {
		defer o.wg.Done()
		if err := pl.Close(); err != nil {
			o.log.Warn("close ebiten player", "err", err)
		}
	})
}

func (o *EbitenOutput) Close() error {
	o.wg.Wait()
	return nil
}
