// Package assembler drives a full recap export: one continuous recording
// session walking the title card, per-location map flights and media clips,
// and the final route overview, with pause-aware timing throughout. The
// recording is the single source of truth; segment times are bookkeeping on
// the side.
package assembler

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/fogleman/gg"

	"tripstitch/internal/capture"
	"tripstitch/internal/clip"
	"tripstitch/internal/geo"
	"tripstitch/internal/maprender"
	"tripstitch/internal/overlay"
	"tripstitch/internal/routing"
	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

const (
	renderFPS     = 30
	finalizeGrace = 100 * time.Millisecond
)

// Engine is the slice of the map renderer the assembler drives. It exists so
// tests can substitute a fake for the tile-backed engine.
type Engine interface {
	FlyToFirst(ctx context.Context, sess capture.Session, hook func(*gg.Context), stop maprender.Stop) error
	FlyToNext(ctx context.Context, sess capture.Session, hook func(*gg.Context), prev, next maprender.Stop) error
	FitRoute(stops []maprender.Stop, legs []maprender.RouteLeg)
	WaitForIdle(ctx context.Context, timeout time.Duration)
	DrawFinalRoute(ctx context.Context, sess capture.Session, hook func(*gg.Context), stops []maprender.Stop, legs []maprender.RouteLeg, stats overlay.Stats) error
	Surface() *gg.Context
	Close()
}

// Progress is one phase-boundary event. Total is precomputed before the first
// event and never changes within an export.
type Progress struct {
	Phase string
	Step  int
	Total int
}

// Options configures one export.
type Options struct {
	Trip           *trip.Trip
	TileCachePath  string
	RoutingBaseURL string
	FFmpegBin      string
	FFprobeBin     string
	LogoPath       string
	Logger         *slog.Logger
	OnProgress     func(Progress)
	ShowProgress   bool

	// Dependency seams; nil means the real implementation.
	Clock       capture.Clock
	Visibility  capture.VisibilitySource
	KeepAwake   func() (func(), error)
	NewRecorder func(width, height int) capture.Recorder
	NewEngine   func(ctx context.Context, cfg maprender.Config) (Engine, error)
	Router      *routing.Client
	RouteCache  *routing.Cache
	PlayClip    func(ctx context.Context, sess capture.Session, dc *gg.Context, c trip.Clip, hook func(*gg.Context)) (float64, error)
}

// Result is a finished export.
type Result struct {
	Video       []byte
	Segments    []timeline.Segment
	DurationSec float64
}

// Resolution maps an aspect ratio to output pixels.
func Resolution(ar trip.AspectRatio) (int, int) {
	switch ar {
	case trip.AspectSquare:
		return 1080, 1080
	case trip.AspectLandscape:
		return 1920, 1080
	}
	return 1080, 1920
}

func (o *Options) fill() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = capture.SystemClock{}
	}
	if o.NewRecorder == nil {
		o.NewRecorder = func(w, h int) capture.Recorder {
			return capture.NewFFmpegRecorder(capture.RecorderOptions{
				Binary: o.FFmpegBin,
				FPS:    renderFPS,
				Width:  w,
				Height: h,
				Logger: o.Logger,
			})
		}
	}
	if o.NewEngine == nil {
		o.NewEngine = func(ctx context.Context, cfg maprender.Config) (Engine, error) {
			return maprender.New(ctx, cfg)
		}
	}
	if o.Router == nil {
		o.Router = routing.NewClient(o.RoutingBaseURL, nil, o.Logger)
	}
	if o.RouteCache == nil {
		o.RouteCache = routing.NewCache()
	}
	if o.PlayClip == nil {
		o.PlayClip = func(ctx context.Context, sess capture.Session, dc *gg.Context, c trip.Clip, hook func(*gg.Context)) (float64, error) {
			if c.Kind == trip.MediaVideo {
				return clip.PlayVideo(ctx, sess, dc, clip.VideoOptions{
					FFmpegBin:  o.FFmpegBin,
					FFprobeBin: o.FFprobeBin,
					Path:       c.File,
					Logger:     o.Logger,
				}, hook)
			}
			img, err := gg.LoadImage(c.File)
			if err != nil {
				return 0, fmt.Errorf("load photo %s: %w", c.File, err)
			}
			if err := clip.PlayPhoto(ctx, sess, dc, img, c.AnimationStyle, hook); err != nil {
				return 0, err
			}
			return clip.PhotoDuration.Seconds(), nil
		}
	}
}

func stopsFor(locs []trip.Location) []maprender.Stop {
	stops := make([]maprender.Stop, len(locs))
	for i, l := range locs {
		stops[i] = maprender.Stop{
			Point:  l.Point(),
			Name:   l.DisplayName(),
			Rating: l.Rating,
			Mode:   l.TransportMode,
		}
	}
	return stops
}

// routeLegs pairs fetched geometry with straight-line fallbacks.
func routeLegs(locs []trip.Location, fetched []routing.Leg) []maprender.RouteLeg {
	legs := make([]maprender.RouteLeg, 0, len(locs)-1)
	for i := 1; i < len(locs); i++ {
		leg := maprender.RouteLeg{Mode: locs[i].TransportMode}
		if i-1 < len(fetched) && fetched[i-1].Geometry != nil {
			leg.Points = fetched[i-1].Geometry.Points()
		} else {
			leg.Points = []geo.Point{locs[i-1].Point(), locs[i].Point()}
		}
		legs = append(legs, leg)
	}
	return legs
}

func firstPhotoFile(locs []trip.Location) string {
	for _, l := range locs {
		for _, c := range l.ClipsWithMedia() {
			if c.Kind == trip.MediaPhoto {
				return c.File
			}
		}
	}
	return ""
}

// Assemble runs the export. Cancellation is polled at every phase boundary
// and per clip; a cancelled export tears down and returns no video.
func Assemble(ctx context.Context, opts Options) (*Result, error) {
	opts.fill()
	t := opts.Trip
	if t == nil {
		return nil, fmt.Errorf("no trip to export")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t = t.Snapshot()
	locs := t.SortedLocations()
	width, height := Resolution(t.AspectRatio)

	accent := overlay.ParseHexDefault(t.TitleColor, overlay.White)
	secondary := overlay.ParseHexDefault(t.SecondaryColor, overlay.ParseHexDefault("#1a1a2e", overlay.NearBlack))

	hook := overlay.LogoOverlay(opts.LogoPath)
	if !t.ShowLogo {
		hook = nil
	}

	clipLocs := 0
	for _, loc := range locs {
		if len(loc.ClipsWithMedia()) > 0 {
			clipLocs++
		}
	}
	progressTotal := len(locs) + clipLocs + 4
	step := 0
	emit := func(phase string) {
		step++
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Phase: phase, Step: step, Total: progressTotal})
		}
		opts.Logger.Info("export phase", "phase", phase, "step", step, "total", progressTotal)
	}
	checkCancel := func() error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export cancelled: %w", err)
		}
		return nil
	}

	recorder := opts.NewRecorder(width, height)
	guard := capture.NewGuard(capture.GuardOptions{
		Recorder:  recorder,
		Source:    opts.Visibility,
		Clock:     opts.Clock,
		Logger:    opts.Logger,
		KeepAwake: opts.KeepAwake,
	})
	sess := capture.Session{
		Clock:    opts.Clock,
		Pause:    guard.PauseClock(),
		Recorder: recorder,
		FPS:      renderFPS,
	}

	var engine Engine
	finished := false
	defer func() {
		guard.Close()
		if engine != nil {
			engine.Close()
		}
		if !finished {
			// Reap the encoder; the partial output is discarded.
			recorder.Stop()
		}
	}()

	if err := recorder.Start(); err != nil {
		return nil, err
	}

	emit("prepare")
	builder := timeline.NewBuilder()

	// Title card renders before the map exists, on its own surface.
	if err := checkCancel(); err != nil {
		return nil, err
	}
	emit("title")
	titleDC := gg.NewContext(width, height)
	card := overlay.TitleCard{
		Title:       t.Title,
		Description: t.TitleDescription,
		TitleColor:  accent,
	}
	coverPath := t.TitleMediaFile
	if coverPath == "" {
		coverPath = firstPhotoFile(locs)
	}
	if coverPath != "" {
		if img, err := gg.LoadImage(coverPath); err == nil {
			card.Cover = img
		} else {
			opts.Logger.Warn("title cover unreadable, using gradient", "path", coverPath, "error", err)
		}
	}
	err := sess.Loop(ctx, timeline.TitleDuration, func(time.Duration) image.Image {
		overlay.DrawTitleCard(titleDC, card)
		if hook != nil {
			hook(titleDC)
		}
		return titleDC.Image()
	})
	if err != nil {
		return nil, err
	}
	builder.Append("Trip intro", timeline.KindTitle, timeline.TitleDuration)

	// Map creation happens off-recording; viewport priming can take a
	// network round trip.
	if err := checkCancel(); err != nil {
		return nil, err
	}
	if err := recorder.Pause(); err != nil {
		return nil, err
	}
	style := t.MapStyle
	if style == "" {
		style = "streets"
	}
	engine, err = opts.NewEngine(ctx, maprender.Config{
		Width:        width,
		Height:       height,
		Style:        style,
		CachePath:    opts.TileCachePath,
		Logger:       opts.Logger,
		Accent:       accent,
		Secondary:    secondary,
		Start:        locs[0].Point(),
		ShowProgress: opts.ShowProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("create map engine: %w", err)
	}
	if err := recorder.Resume(); err != nil {
		return nil, err
	}

	// Route geometry downloads while flights and clips play.
	routesCh := make(chan []routing.Leg, 1)
	go func() {
		routesCh <- opts.Router.FetchAll(ctx, t.Legs(), opts.RouteCache)
	}()

	stops := stopsFor(locs)
	for i, loc := range locs {
		if err := checkCancel(); err != nil {
			return nil, err
		}
		emit(fmt.Sprintf("location %d/%d", i+1, len(locs)))

		if i == 0 {
			if err := engine.FlyToFirst(ctx, sess, hook, stops[0]); err != nil {
				return nil, err
			}
			builder.Append(loc.DisplayName(), timeline.KindMap, maprender.FlyToFirstDuration)
		} else {
			// Let the destination tiles land before the camera moves,
			// without recording the wait.
			if err := recorder.Pause(); err != nil {
				return nil, err
			}
			engine.WaitForIdle(ctx, 0)
			if err := recorder.Resume(); err != nil {
				return nil, err
			}
			if err := engine.FlyToNext(ctx, sess, hook, stops[i-1], stops[i]); err != nil {
				return nil, err
			}
			builder.Append(loc.DisplayName(), timeline.KindMap, maprender.FlyToNextDuration)
		}

		clips := loc.ClipsWithMedia()
		if len(clips) == 0 {
			continue
		}
		emit(fmt.Sprintf("clips %d/%d", i+1, len(locs)))
		if err := renderFlash(ctx, sess, engine.Surface(), hook); err != nil {
			return nil, err
		}
		builder.AdvanceCursor(timeline.FlashDuration)

		groupSeconds := 0.0
		for _, c := range clips {
			if err := checkCancel(); err != nil {
				return nil, err
			}
			seconds, err := opts.PlayClip(ctx, sess, engine.Surface(), c, hook)
			if err != nil {
				return nil, fmt.Errorf("play clip %s: %w", c.File, err)
			}
			groupSeconds += seconds
		}
		builder.AppendSeconds(loc.DisplayName()+" memories", timeline.KindClips, groupSeconds)

		if err := renderFlash(ctx, sess, engine.Surface(), hook); err != nil {
			return nil, err
		}
		builder.AdvanceCursor(timeline.FlashDuration)
	}

	// Final overview: fit, prefetch and settle while paused, then record.
	if err := checkCancel(); err != nil {
		return nil, err
	}
	emit("route")
	if err := recorder.Pause(); err != nil {
		return nil, err
	}
	var fetched []routing.Leg
	select {
	case fetched = <-routesCh:
	case <-ctx.Done():
		return nil, fmt.Errorf("export cancelled: %w", ctx.Err())
	}
	legs := routeLegs(locs, fetched)
	engine.FitRoute(stops, legs)
	engine.WaitForIdle(ctx, 0)
	if err := recorder.Resume(); err != nil {
		return nil, err
	}

	points := t.Points()
	stats := overlay.Stats{
		Stops:   len(locs),
		Miles:   geo.TotalDistance(points),
		Minutes: geo.TotalTravelTime(t.Legs()),
	}
	if err := engine.DrawFinalRoute(ctx, sess, hook, stops, legs, stats); err != nil {
		return nil, err
	}
	builder.Append("Trip route", timeline.KindRoute, maprender.FinalRouteDuration)

	if err := checkCancel(); err != nil {
		return nil, err
	}
	emit("finalize")
	select {
	case <-opts.Clock.After(finalizeGrace):
	case <-ctx.Done():
		return nil, fmt.Errorf("export cancelled: %w", ctx.Err())
	}

	result, err := recorder.Stop()
	if err != nil {
		return nil, err
	}
	finished = true
	opts.Logger.Info("export complete",
		"duration_sec", builder.CursorSec(),
		"segments", len(builder.Segments()),
		"bytes", len(result.Bytes),
	)
	return &Result{
		Video:       result.Bytes,
		Segments:    builder.Segments(),
		DurationSec: builder.CursorSec(),
	}, nil
}

// renderFlash paints the white transition frames between map and clips.
func renderFlash(ctx context.Context, sess capture.Session, dc *gg.Context, hook func(*gg.Context)) error {
	return sess.Loop(ctx, timeline.FlashDuration, func(time.Duration) image.Image {
		overlay.DrawWhiteFlash(dc)
		if hook != nil {
			hook(dc)
		}
		return dc.Image()
	})
}
