package capture

import (
	"context"
	"image"
	"time"
)

// FrameLoop drives fn once per frame for the given duration, feeding each
// rendered frame to the recorder. The elapsed value passed to fn is corrected
// for pause time, so a recording hidden for ten seconds resumes mid-animation
// instead of skipping ahead.
func FrameLoop(ctx context.Context, clock Clock, pause *PauseClock, rec Recorder, fps int, duration time.Duration, fn func(elapsed time.Duration) image.Image) error {
	if fps <= 0 {
		fps = 30
	}
	interval := time.Second / time.Duration(fps)
	start := clock.Now()
	pausedAtStart := time.Duration(0)
	if pause != nil {
		pausedAtStart = pause.Get()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed := clock.Now().Sub(start)
		if pause != nil {
			elapsed -= pause.Get() - pausedAtStart
		}
		if elapsed >= duration {
			return nil
		}
		frame := fn(elapsed)
		if frame != nil {
			if err := rec.AppendFrame(frame); err != nil {
				return err
			}
		}
		select {
		case <-clock.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
