package assembler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fogleman/gg"

	"tripstitch/internal/capture"
	"tripstitch/internal/maprender"
	"tripstitch/internal/overlay"
	"tripstitch/internal/routing"
	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

type fakeRecorder struct {
	mu      sync.Mutex
	state   capture.State
	frames  int
	stopped bool
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = capture.StateRecording
	return nil
}

func (r *fakeRecorder) AppendFrame(image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == capture.StatePaused {
		return nil
	}
	if r.state != capture.StateRecording {
		return capture.ErrNotRecording
	}
	r.frames++
	return nil
}

func (r *fakeRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != capture.StateRecording {
		return capture.ErrNotRecording
	}
	r.state = capture.StatePaused
	return nil
}

func (r *fakeRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != capture.StatePaused {
		return capture.ErrNotPaused
	}
	r.state = capture.StateRecording
	return nil
}

func (r *fakeRecorder) Stop() (capture.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == capture.StateStopped {
		return capture.Result{}, capture.ErrNotRecording
	}
	r.state = capture.StateStopped
	r.stopped = true
	return capture.Result{Bytes: []byte("mp4"), Frames: r.frames}, nil
}

func (r *fakeRecorder) State() capture.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

type fakeEngine struct {
	mu        sync.Mutex
	dc        *gg.Context
	flights   []string
	fitted    bool
	routeLegs []maprender.RouteLeg
	closed    bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{dc: gg.NewContext(32, 32)}
}

func (e *fakeEngine) FlyToFirst(ctx context.Context, sess capture.Session, hook func(*gg.Context), stop maprender.Stop) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flights = append(e.flights, "first:"+stop.Name)
	return nil
}

func (e *fakeEngine) FlyToNext(ctx context.Context, sess capture.Session, hook func(*gg.Context), prev, next maprender.Stop) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flights = append(e.flights, fmt.Sprintf("next:%s>%s", prev.Name, next.Name))
	return nil
}

func (e *fakeEngine) FitRoute(stops []maprender.Stop, legs []maprender.RouteLeg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fitted = true
	e.routeLegs = legs
}

func (e *fakeEngine) WaitForIdle(context.Context, time.Duration) {}

func (e *fakeEngine) DrawFinalRoute(ctx context.Context, sess capture.Session, hook func(*gg.Context), stops []maprender.Stop, legs []maprender.RouteLeg, stats overlay.Stats) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flights = append(e.flights, "route")
	return nil
}

func (e *fakeEngine) Surface() *gg.Context { return e.dc }

func (e *fakeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func noRouteServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func driveClock(t *testing.T, clock *capture.FakeClock) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if clock.HasWaiters() {
				clock.Advance(500 * time.Millisecond)
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func exportTrip() *trip.Trip {
	return &trip.Trip{
		ID:          "t1",
		Title:       "Weekend",
		TitleColor:  "#00F5FF",
		AspectRatio: trip.AspectPortrait,
		Locations: []trip.Location{
			{ID: "a", Order: 0, Name: "Golden Gate Bridge, SF", Lat: 37.8199, Lng: -122.4783},
			{ID: "b", Order: 1, Name: "Ferry Building", Lat: 37.7955, Lng: -122.3937, TransportMode: "biked"},
		},
	}
}

func testOptions(t *testing.T, tr *trip.Trip) (Options, *fakeRecorder, *fakeEngine) {
	t.Helper()
	clock := capture.NewFakeClock(time.Unix(0, 0))
	driveClock(t, clock)
	rec := &fakeRecorder{}
	eng := newFakeEngine()
	srv := noRouteServer(t)

	opts := Options{
		Trip:        tr,
		Clock:       clock,
		NewRecorder: func(int, int) capture.Recorder { return rec },
		NewEngine: func(context.Context, maprender.Config) (Engine, error) {
			return eng, nil
		},
		Router: routing.NewClient(srv.URL, srv.Client(), nil),
		PlayClip: func(ctx context.Context, sess capture.Session, dc *gg.Context, c trip.Clip, hook func(*gg.Context)) (float64, error) {
			return 3.0, nil
		},
	}
	return opts, rec, eng
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssembleCliplessTwoLocationTrip(t *testing.T) {
	tr := exportTrip()
	opts, rec, eng := testOptions(t, tr)

	var events []Progress
	opts.OnProgress = func(p Progress) { events = append(events, p) }

	res, err := Assemble(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Video) == 0 {
		t.Fatal("no video bytes")
	}

	segs := res.Segments
	if len(segs) != 4 {
		t.Fatalf("segment count = %d: %+v", len(segs), segs)
	}
	wantDur := []float64{2.5, 4.0, 5.9, 6.0}
	wantKind := []timeline.SegmentKind{timeline.KindTitle, timeline.KindMap, timeline.KindMap, timeline.KindRoute}
	for i, seg := range segs {
		if !approx(seg.DurationSec, wantDur[i]) || seg.Kind != wantKind[i] {
			t.Fatalf("segment %d = %+v, want %v %v", i, seg, wantDur[i], wantKind[i])
		}
	}
	if !approx(res.DurationSec, 18.4) {
		t.Fatalf("total duration = %v", res.DurationSec)
	}
	if got := timeline.Estimate(tr, nil); !approx(got, res.DurationSec) {
		t.Fatalf("estimate %v disagrees with assembled %v", got, res.DurationSec)
	}

	if len(eng.flights) != 3 || eng.flights[0] != "first:Golden Gate Bridge" || eng.flights[2] != "route" {
		t.Fatalf("flight order wrong: %v", eng.flights)
	}
	if !eng.fitted || !eng.closed {
		t.Fatalf("engine lifecycle incomplete: fitted=%v closed=%v", eng.fitted, eng.closed)
	}
	if rec.State() != capture.StateStopped {
		t.Fatalf("recorder state = %v", rec.State())
	}

	// No-route legs fall back to straight lines between the stops.
	if len(eng.routeLegs) != 1 || len(eng.routeLegs[0].Points) != 2 {
		t.Fatalf("fallback legs wrong: %+v", eng.routeLegs)
	}

	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	total := events[0].Total
	for i, ev := range events {
		if ev.Total != total {
			t.Fatalf("total changed mid-export: %+v", events)
		}
		if ev.Step != i+1 {
			t.Fatalf("steps not sequential: %+v", events)
		}
	}
	if events[len(events)-1].Step != total {
		t.Fatalf("export did not reach final step: %+v", events)
	}
}

func TestAssembleClipGroupTiming(t *testing.T) {
	tr := exportTrip()
	tr.Locations[1].Clips = []trip.Clip{
		{ID: "c1", Order: 0, Kind: trip.MediaPhoto, File: "a.jpg"},
		{ID: "c2", Order: 1, Kind: trip.MediaPhoto, File: "b.jpg"},
	}
	opts, _, _ := testOptions(t, tr)

	var events []Progress
	opts.OnProgress = func(p Progress) { events = append(events, p) }

	res, err := Assemble(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	// One clip-bearing location adds one progress step beyond the clipless
	// baseline, and the clip phase reports its own boundary.
	clipEvents := 0
	for _, ev := range events {
		if ev.Total != len(tr.Locations)+1+4 {
			t.Fatalf("total wrong: %+v", events)
		}
		if ev.Phase == "clips 2/2" {
			clipEvents++
		}
	}
	if clipEvents != 1 {
		t.Fatalf("expected one clip phase event: %+v", events)
	}
	if events[len(events)-1].Step != events[0].Total {
		t.Fatalf("export did not reach final step: %+v", events)
	}

	segs := res.Segments
	if len(segs) != 5 {
		t.Fatalf("segment count = %d: %+v", len(segs), segs)
	}
	clipSeg := segs[3]
	if clipSeg.Kind != timeline.KindClips || !approx(clipSeg.DurationSec, 6.0) {
		t.Fatalf("clip segment = %+v", clipSeg)
	}
	// Flash pads advance the cursor around the clip group without
	// becoming segments themselves.
	if !approx(clipSeg.StartSec, 2.5+4.0+5.9+0.2) {
		t.Fatalf("clip segment start = %v", clipSeg.StartSec)
	}
	if !approx(segs[4].StartSec, clipSeg.EndSec()+0.2) {
		t.Fatalf("route start = %v, want pad after clips", segs[4].StartSec)
	}
	if !approx(res.DurationSec, 24.8) {
		t.Fatalf("total = %v", res.DurationSec)
	}
	if got := timeline.Estimate(tr, nil); !approx(got, res.DurationSec) {
		t.Fatalf("estimate %v disagrees with assembled %v", got, res.DurationSec)
	}
}

func TestAssembleCancelledMidClipsLeavesNoOutput(t *testing.T) {
	tr := exportTrip()
	tr.Locations[1].Clips = []trip.Clip{
		{ID: "c1", Order: 0, Kind: trip.MediaPhoto, File: "a.jpg"},
		{ID: "c2", Order: 1, Kind: trip.MediaPhoto, File: "b.jpg"},
	}
	opts, rec, eng := testOptions(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	played := 0
	opts.PlayClip = func(ctx context.Context, sess capture.Session, dc *gg.Context, c trip.Clip, hook func(*gg.Context)) (float64, error) {
		played++
		if played == 1 {
			cancel()
		}
		return 3.0, nil
	}

	res, err := Assemble(ctx, opts)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if res != nil {
		t.Fatalf("cancelled export produced output: %+v", res)
	}
	if played != 1 {
		t.Fatalf("clips kept playing after cancel: %d", played)
	}
	if !eng.closed {
		t.Fatal("engine not torn down")
	}
	if rec.State() != capture.StateStopped {
		t.Fatalf("recorder not reaped: %v", rec.State())
	}
}

func TestAssembleRejectsUnexportableTrip(t *testing.T) {
	opts, _, _ := testOptions(t, &trip.Trip{
		Locations: []trip.Location{{ID: "only", Order: 0, Name: "Solo"}},
	})
	_, err := Assemble(context.Background(), opts)
	if !errors.Is(err, trip.ErrNotExportable) {
		t.Fatalf("expected ErrNotExportable, got %v", err)
	}
}

func TestAssembleEngineFailureStopsExport(t *testing.T) {
	tr := exportTrip()
	opts, rec, _ := testOptions(t, tr)
	opts.NewEngine = func(context.Context, maprender.Config) (Engine, error) {
		return nil, errors.New("tile server down")
	}
	_, err := Assemble(context.Background(), opts)
	if err == nil {
		t.Fatal("expected engine failure to surface")
	}
	if rec.State() != capture.StateStopped {
		t.Fatalf("recorder not reaped: %v", rec.State())
	}
}

func TestResolution(t *testing.T) {
	cases := map[trip.AspectRatio][2]int{
		trip.AspectPortrait:      {1080, 1920},
		trip.AspectSquare:        {1080, 1080},
		trip.AspectLandscape:     {1920, 1080},
		trip.AspectRatio("весь"): {1080, 1920},
	}
	for ar, want := range cases {
		w, h := Resolution(ar)
		if w != want[0] || h != want[1] {
			t.Fatalf("Resolution(%q) = %dx%d", ar, w, h)
		}
	}
}
