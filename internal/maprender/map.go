package maprender

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"tripstitch/internal/capture"
	"tripstitch/internal/geo"
	"tripstitch/internal/overlay"
)

// Animation timing. FlyToNextDuration is the sum of the four phase constants
// and the only number segment math may use for a transition.
const (
	FlyToFirstFlight   = 2000 * time.Millisecond
	FlyToFirstHold     = 2000 * time.Millisecond
	FlyToFirstDuration = FlyToFirstFlight + FlyToFirstHold

	flyOutPhase       = 1500 * time.Millisecond
	flyHoldPhase      = 1200 * time.Millisecond
	flyInPhase        = 2000 * time.Millisecond
	flyArrivePhase    = 1200 * time.Millisecond
	FlyToNextDuration = flyOutPhase + flyHoldPhase + flyInPhase + flyArrivePhase

	FinalRouteDuration = 6000 * time.Millisecond
	routeDrawWindow    = 2000 * time.Millisecond

	prevDotWindow = 400 * time.Millisecond

	defaultIdleTimeout = 4000 * time.Millisecond
	initialZoom        = 10.0
)

// Stop is one location as the map engine sees it.
type Stop struct {
	Point  geo.Point
	Name   string
	Rating int
	Mode   geo.TransportMode // transport used to reach this stop
}

// RouteLeg is a drawable path between two consecutive stops. Points come from
// the routing service, or fall back to the straight line between the stops.
type RouteLeg struct {
	Points []geo.Point
	Mode   geo.TransportMode
}

// Config describes a map engine instance.
type Config struct {
	Width, Height int
	Style         string
	CachePath     string // sqlite tile store; empty keeps tiles memory-only
	Client        *http.Client
	Logger        *slog.Logger
	Accent        color.RGBA
	Secondary     color.RGBA
	IdleTimeout   time.Duration
	Start         geo.Point // initial camera center
	ShowProgress  bool
}

// Map is the persistent render engine: one off-screen surface reused across
// every map segment of an export.
type Map struct {
	cfg     Config
	dc      *gg.Context
	fetcher *Fetcher
	store   *TileStore
	cam     Camera

	closeOnce sync.Once
}

// New creates the engine, resolves the style, and primes the initial viewport
// tiles. A style typo or an unreachable tile server for the very first
// viewport is fatal; everything after degrades to filler tiles.
func New(ctx context.Context, cfg Config) (*Map, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("map viewport %dx%d invalid", cfg.Width, cfg.Height)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	style, err := ResolveStyle(cfg.Style)
	if err != nil {
		return nil, err
	}
	store, err := OpenTileStore(cfg.CachePath)
	if err != nil {
		return nil, err
	}

	m := &Map{
		cfg:     cfg,
		dc:      gg.NewContext(cfg.Width, cfg.Height),
		fetcher: NewFetcher(style, store, cfg.Client, cfg.Logger),
		store:   store,
		cam:     Camera{Center: cfg.Start, Zoom: initialZoom},
	}

	primeCtx, cancel := context.WithTimeout(ctx, cfg.IdleTimeout)
	defer cancel()
	for _, t := range TilesForCamera(m.cam, cfg.Width, cfg.Height) {
		if _, err := m.fetcher.Get(primeCtx, t); err != nil {
			store.Close()
			return nil, fmt.Errorf("prime map viewport: %w", err)
		}
	}
	cfg.Logger.Debug("map engine ready", "style", style.Name, "viewport", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return m, nil
}

// Camera returns the current camera.
func (m *Map) Camera() Camera { return m.cam }

// SetCamera jumps the camera without animating.
func (m *Map) SetCamera(cam Camera) { m.cam = cam }

// WaitForIdle prefetches the current viewport and returns when every tile is
// fetched or the timeout passes, whichever is first.
func (m *Map) WaitForIdle(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		timeout = m.cfg.IdleTimeout
	}
	idleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.fetcher.Prefetch(idleCtx, TilesForCamera(m.cam, m.cfg.Width, m.cfg.Height), false)
	}()
	select {
	case <-done:
	case <-idleCtx.Done():
		m.cfg.Logger.Debug("idle wait ended by timeout")
	}
}

// PrefetchCamera downloads tiles for an arbitrary camera in the background,
// typically the final route viewport while clips are still playing.
func (m *Map) PrefetchCamera(ctx context.Context, cam Camera) {
	m.fetcher.Prefetch(ctx, TilesForCamera(cam, m.cfg.Width, m.cfg.Height), m.cfg.ShowProgress)
}

var baseBackground = color.RGBA{R: 0xdd, G: 0xdd, B: 0xd8, A: 0xff}

// renderBase paints the tile layer for the current camera. Tiles not yet in
// cache render as flat filler rather than stalling the frame.
func (m *Map) renderBase() {
	dc := m.dc
	dc.SetColor(baseBackground)
	dc.Clear()

	cam := m.cam
	tz := cam.TileZoom()
	n := math.Exp2(float64(tz))
	s := cam.scale()
	cx, cy := cam.centerWorld()
	tileScreen := s / n

	halfW := float64(m.cfg.Width) / 2 / s
	halfH := float64(m.cfg.Height) / 2 / s
	txMin := int(math.Floor((cx - halfW) * n))
	txMax := int(math.Floor((cx + halfW) * n))
	tyMin := int(math.Floor((cy - halfH) * n))
	tyMax := int(math.Floor((cy + halfH) * n))

	for x := txMin; x <= txMax; x++ {
		for y := tyMin; y <= tyMax; y++ {
			img := m.fetcher.Cached(Tile{X: x, Y: y, Z: tz})
			if img == nil {
				img = emptyTile
			}
			sx := (float64(x)/n-cx)*s + float64(m.cfg.Width)/2
			sy := (float64(y)/n-cy)*s + float64(m.cfg.Height)/2
			factor := tileScreen / float64(img.Bounds().Dx())
			dc.Push()
			dc.Translate(sx, sy)
			dc.Scale(factor, factor)
			dc.DrawImage(img, 0, 0)
			dc.Pop()
		}
	}
}

func (m *Map) project(p geo.Point) (float64, float64) {
	return m.cam.Project(p, m.cfg.Width, m.cfg.Height)
}

func closeCamera(p geo.Point) Camera {
	return Camera{Center: p, Zoom: CloseZoom}
}

// FlyToFirst flies from the wide opening view down to the first stop, then
// holds with the pin and title banner shown.
func (m *Map) FlyToFirst(ctx context.Context, sess capture.Session, hook func(*gg.Context), stop Stop) error {
	from := Camera{Center: stop.Point, Zoom: initialZoom}
	to := closeCamera(stop.Point)

	return sess.Loop(ctx, FlyToFirstDuration, func(elapsed time.Duration) image.Image {
		if elapsed < FlyToFirstFlight {
			t := float64(elapsed) / float64(FlyToFirstFlight)
			m.cam = InterpolateCamera(from, to, t)
		} else {
			m.cam = to
		}
		m.renderBase()
		if elapsed >= FlyToFirstFlight {
			px, py := m.project(stop.Point)
			overlay.DrawPin(m.dc, px, py, "", m.cfg.Accent, 0, false, m.cfg.Secondary)
			overlay.DrawLocationTitle(m.dc, stop.Name, m.cfg.Accent, m.cfg.Secondary, stop.Rating)
		}
		if hook != nil {
			hook(m.dc)
		}
		return m.dc.Image()
	})
}

// FlyToNext animates the four-phase transition between consecutive stops:
// zoom out to a view holding both, hold, zoom in on the next, hold. The
// departed stop stays marked only for the first moments of the zoom-out.
func (m *Map) FlyToNext(ctx context.Context, sess capture.Session, hook func(*gg.Context), prev, next Stop) error {
	var both geo.Bounds
	both.Extend(prev.Point)
	both.Extend(next.Point)
	pad := UniformPadding(0.14 * math.Min(float64(m.cfg.Width), float64(m.cfg.Height)))
	mid := CameraForBounds(both, m.cfg.Width, m.cfg.Height, pad, MinZoom, CloseZoom-2)

	start := closeCamera(prev.Point)
	end := closeCamera(next.Point)

	outEnd := flyOutPhase
	holdEnd := outEnd + flyHoldPhase
	inEnd := holdEnd + flyInPhase

	return sess.Loop(ctx, FlyToNextDuration, func(elapsed time.Duration) image.Image {
		switch {
		case elapsed < outEnd:
			t := float64(elapsed) / float64(flyOutPhase)
			m.cam = InterpolateCamera(start, mid, t)
		case elapsed < holdEnd:
			m.cam = mid
		case elapsed < inEnd:
			t := float64(elapsed-holdEnd) / float64(flyInPhase)
			m.cam = InterpolateCamera(mid, end, t)
		default:
			m.cam = end
		}
		m.renderBase()

		if elapsed < prevDotWindow {
			px, py := m.project(prev.Point)
			m.dc.SetColor(m.cfg.Accent)
			m.dc.DrawCircle(px, py, 8)
			m.dc.Fill()
		}
		if elapsed >= inEnd {
			px, py := m.project(next.Point)
			overlay.DrawPin(m.dc, px, py, "", m.cfg.Accent, 0, false, m.cfg.Secondary)
			overlay.DrawLocationTitle(m.dc, next.Name, m.cfg.Accent, m.cfg.Secondary, next.Rating)
			if next.Mode != "" {
				overlay.DrawTransportBadge(m.dc, next.Mode, m.cfg.Accent, m.cfg.Secondary)
			}
		}
		if hook != nil {
			hook(m.dc)
		}
		return m.dc.Image()
	})
}

// FitRoute positions the camera so every stop and every route vertex is
// visible, with extra headroom at the top for the title area and at the
// bottom for the stats bar.
func (m *Map) FitRoute(stops []Stop, legs []RouteLeg) {
	var b geo.Bounds
	for _, s := range stops {
		b.Extend(s.Point)
	}
	for _, leg := range legs {
		for _, p := range leg.Points {
			b.Extend(p)
		}
	}
	base := 0.14 * math.Min(float64(m.cfg.Width), float64(m.cfg.Height))
	pad := Padding{
		Top:    base + 100,
		Bottom: base + 0.20*float64(m.cfg.Height),
		Left:   base,
		Right:  base,
	}
	m.cam = CameraForBounds(b, m.cfg.Width, m.cfg.Height, pad, MinZoom, MaxZoom)
}

func dashPattern(mode geo.TransportMode) []float64 {
	switch mode {
	case geo.ModeWalked:
		return []float64{2, 4}
	case geo.ModeBiked:
		return []float64{6, 4}
	}
	return nil
}

// drawLegPartial strokes the leading fraction of a leg's polyline.
func (m *Map) drawLegPartial(leg RouteLeg, fraction float64) {
	if len(leg.Points) < 2 || fraction <= 0 {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	last := float64(len(leg.Points)-1) * fraction
	full := int(last)

	trace := func() {
		sx, sy := m.project(leg.Points[0])
		m.dc.MoveTo(sx, sy)
		for i := 1; i <= full; i++ {
			x, y := m.project(leg.Points[i])
			m.dc.LineTo(x, y)
		}
		if full < len(leg.Points)-1 {
			frac := last - float64(full)
			a := leg.Points[full]
			bp := leg.Points[full+1]
			x, y := m.project(geo.Point{
				Lat: a.Lat + (bp.Lat-a.Lat)*frac,
				Lng: a.Lng + (bp.Lng-a.Lng)*frac,
			})
			m.dc.LineTo(x, y)
		}
	}

	// Dark outline under the accent stroke keeps the route visible over
	// light and dark tiles alike.
	m.dc.SetDash()
	m.dc.SetColor(color.RGBA{R: 0x0a, G: 0x0f, B: 0x1e, A: 0xb3})
	m.dc.SetLineWidth(10)
	trace()
	m.dc.Stroke()

	if dash := dashPattern(leg.Mode); dash != nil {
		m.dc.SetDash(dash...)
	} else {
		m.dc.SetDash()
	}
	m.dc.SetColor(m.cfg.Accent)
	m.dc.SetLineWidth(6)
	trace()
	m.dc.Stroke()
	m.dc.SetDash()
}

// DrawFinalRoute renders the closing overview: legs draw in staggered order
// across the opening moments, every stop gets a labeled pin, and the trip
// stats pill sits at the bottom. The camera must already be fitted via
// FitRoute.
func (m *Map) DrawFinalRoute(ctx context.Context, sess capture.Session, hook func(*gg.Context), stops []Stop, legs []RouteLeg, stats overlay.Stats) error {
	perLeg := time.Duration(0)
	if len(legs) > 0 {
		perLeg = routeDrawWindow / time.Duration(len(legs))
	}

	return sess.Loop(ctx, FinalRouteDuration, func(elapsed time.Duration) image.Image {
		m.renderBase()

		for i, leg := range legs {
			startAt := time.Duration(i) * perLeg
			fraction := 1.0
			if perLeg > 0 && elapsed < startAt+perLeg {
				fraction = float64(elapsed-startAt) / float64(perLeg)
			}
			m.drawLegPartial(leg, fraction)
		}

		for _, s := range stops {
			px, py := m.project(s.Point)
			overlay.DrawPin(m.dc, px, py, s.Name, m.cfg.Accent, s.Rating, true, m.cfg.Secondary)
		}
		overlay.DrawStatsBar(m.dc, stats, m.cfg.Accent, m.cfg.Secondary)
		if hook != nil {
			hook(m.dc)
		}
		return m.dc.Image()
	})
}

// Surface exposes the engine's canvas for callers that draw non-map segments
// (title card, clips) on the same surface.
func (m *Map) Surface() *gg.Context { return m.dc }

// Close releases the tile store. Safe to call more than once.
func (m *Map) Close() {
	m.closeOnce.Do(func() {
		if err := m.store.Close(); err != nil {
			m.cfg.Logger.Warn("tile store close failed", "error", err)
		}
	})
}
