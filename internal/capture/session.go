package capture

import (
	"context"
	"image"
	"time"
)

// Session bundles the timing and recording dependencies every render loop
// needs. One session spans one export.
type Session struct {
	Clock    Clock
	Pause    *PauseClock
	Recorder Recorder
	FPS      int
}

// Loop runs fn through FrameLoop with the session's clock, pause correction
// and recorder.
func (s Session) Loop(ctx context.Context, duration time.Duration, fn func(elapsed time.Duration) image.Image) error {
	return FrameLoop(ctx, s.Clock, s.Pause, s.Recorder, s.FPS, duration, fn)
}
