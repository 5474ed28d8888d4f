package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cbegin/wavestep-go/internal/osc"
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("cannot create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

// OtoOutput plays each tone on its own oto player.
type OtoOutput struct {
	ctx        *oto.Context
	sampleRate int
	log        *slog.Logger
	wg         sync.WaitGroup
}

func NewOtoOutput(sampleRate int, log *slog.Logger) (*OtoOutput, error) {
	ctx, err := sharedOtoContext(sampleRate)
	if err != nil {
		return nil, err
	}
	return &OtoOutput{ctx: ctx, sampleRate: sampleRate, log: log}, nil
}

func (o *OtoOutput) Emit(c osc.Component, d time.Duration) {
	tone, err := NewTone(c, d, o.sampleRate)
	if err != nil {
		o.log.Error("tone rejected", "freq", c.Freq, "err", err)
		return
	}
	pl := o.ctx.NewPlayer(NewStreamReader(tone))
	pl.Play()
	o.wg.Add(1)
	time.AfterFunc(d+closeSlack, func() {
		defer o.wg.Done()
		if err := pl.Close(); err != nil {
			o.log.Warn("close oto player", "err", err)
		}
	})
}

func (o *OtoOutput) Close() error {
	o.wg.Wait()
	return nil
}
