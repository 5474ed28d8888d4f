package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/wavestep-go"
	"github.com/cbegin/wavestep-go/internal/sequencer"
)

// playSession plays the studio's list and prints progress from events until
// the session is over. With looping on it stops after loops passes (0 means
// never); it also stops when ctx ends. Events are only used for output, so a
// dropped or missing event never keeps it from returning.
func playSession(ctx context.Context, studio *wavestep.Studio, events <-chan sequencer.Event, loops int, out io.Writer) error {
	names := make(map[int]string)
	for _, p := range studio.Players() {
		names[p.ID] = p.Label
	}
	if !studio.Play() {
		return errors.New("playback did not start")
	}

	ended := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		studio.Wait()
		close(ended)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			studio.Stop()
		case <-ended:
		}
		return nil
	})
	g.Go(func() error {
		loopCount := 0
		for {
			select {
			case <-ended:
				fmt.Fprintln(out, "playback completed")
				return nil
			case event := <-events:
				switch event.Kind {
				case sequencer.EventStepStarted:
					fmt.Fprintf(out, "%s (%v)\n", names[event.ID], event.Duration)
				case sequencer.EventLoopCompleted:
					loopCount++
					fmt.Fprintf(out, "loop %d completed\n", loopCount)
					if studio.Loop() && loops > 0 && loopCount >= loops {
						studio.Stop()
					}
				}
			}
		}
	})
	return g.Wait()
}
