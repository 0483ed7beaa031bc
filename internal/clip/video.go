package clip

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"tripstitch/internal/capture"
	"tripstitch/internal/ffprobe"
)

// MaxVideoDuration caps how long a single video clip may run.
const MaxVideoDuration = 30 * time.Second

// VideoOptions configures video playback.
type VideoOptions struct {
	FFmpegBin  string // defaults to "ffmpeg"
	FFprobeBin string // defaults to "ffprobe"
	Path       string
	Logger     *slog.Logger
}

// PlayVideo decodes the clip through ffmpeg as cover-fit RGBA frames sized to
// the canvas and feeds them through the frame loop, capped at
// MaxVideoDuration. It returns the seconds actually played so segment math
// can use real durations.
func PlayVideo(ctx context.Context, sess capture.Session, dc *gg.Context, opts VideoOptions, hook func(*gg.Context)) (float64, error) {
	if opts.FFmpegBin == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	info, err := ffprobe.Inspect(ctx, opts.FFprobeBin, opts.Path)
	if err != nil {
		return 0, err
	}
	duration := time.Duration(info.DurationSeconds() * float64(time.Second))
	if duration <= 0 || duration > MaxVideoDuration {
		duration = MaxVideoDuration
	}

	w := dc.Width()
	h := dc.Height()
	fps := sess.FPS
	if fps <= 0 {
		fps = 30
	}

	// Scale-to-cover then center-crop inside ffmpeg so every decoded frame
	// is exactly canvas sized.
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	args := []string{
		"-v", "error",
		"-i", opts.Path,
		"-t", fmt.Sprintf("%.3f", duration.Seconds()),
		"-vf", vf,
		"-r", fmt.Sprintf("%d", fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
	cmd := exec.CommandContext(ctx, opts.FFmpegBin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("video decode pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start video decode: %w", err)
	}

	frameBytes := w * h * 4
	buf := make([]byte, frameBytes)
	frame := &image.RGBA{Pix: buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	framesPlayed := 0
	drained := false

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := sess.Loop(loopCtx, duration, func(time.Duration) image.Image {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			// Source ran out before the cap; end the segment here.
			drained = true
			cancel()
			return nil
		}
		framesPlayed++
		dc.DrawImage(frame, 0, 0)
		if hook != nil {
			hook(dc)
		}
		return dc.Image()
	})

	io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	played := float64(framesPlayed) / float64(fps)
	if loopErr != nil && !(drained && errors.Is(loopErr, context.Canceled)) {
		return played, loopErr
	}
	if waitErr != nil && ctx.Err() == nil && !drained {
		return played, fmt.Errorf("video decode: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	if framesPlayed == 0 {
		return 0, fmt.Errorf("video %s produced no frames", opts.Path)
	}
	opts.Logger.Debug("video clip played", "path", opts.Path, "seconds", played)
	return played, nil
}
