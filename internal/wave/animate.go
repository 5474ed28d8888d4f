package wave

import (
	"context"
	"time"
)

// PlayAnimation rebuilds the waveform one component at a time, rendering after
// each addition and pausing between additions. It holds the buffer for the
// whole run, so a second animation or a TryAcquire in the meantime fails; a
// call made while the buffer is held returns ErrBusy. An empty buffer returns
// at once. If ctx ends early the buffer is restored to the full sum and
// ctx.Err() is returned.
func (b *Buffer) PlayAnimation(ctx context.Context) error {
	if b.surface == nil {
		return ErrNotRenderable
	}
	if !b.TryAcquire() {
		return ErrBusy
	}
	defer b.Release()
	if len(b.components) == 0 {
		return nil
	}
	b.animating.Store(true)
	defer b.animating.Store(false)

	components := b.Components()
	b.Reset()
	if err := b.Render(); err != nil {
		return err
	}

	for i, c := range components {
		_ = b.accumulate(c)
		if err := b.Render(); err != nil {
			return err
		}
		if i == len(components)-1 {
			break
		}
		select {
		case <-time.After(b.interval):
		case <-ctx.Done():
			b.RecomputeAll()
			_ = b.Render()
			return ctx.Err()
		}
	}
	return nil
}

// Animating reports whether PlayAnimation is in flight.
func (b *Buffer) Animating() bool { return b.animating.Load() }
