package capture

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// PauseClock accumulates hidden time so elapsed computations can subtract it.
// Get includes any pause still in progress.
type PauseClock struct {
	mu       sync.Mutex
	clock    Clock
	total    time.Duration
	pausedAt time.Time
}

// NewPauseClock returns a PauseClock reading time from clock.
func NewPauseClock(clock Clock) *PauseClock {
	return &PauseClock{clock: clock}
}

// Begin marks the start of a pause. Nested Begins are ignored.
func (p *PauseClock) Begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pausedAt.IsZero() {
		p.pausedAt = p.clock.Now()
	}
}

// End closes the current pause and folds it into the total.
func (p *PauseClock) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pausedAt.IsZero() {
		p.total += p.clock.Now().Sub(p.pausedAt)
		p.pausedAt = time.Time{}
	}
}

// Get returns total paused time including an in-progress pause.
func (p *PauseClock) Get() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.total
	if !p.pausedAt.IsZero() {
		total += p.clock.Now().Sub(p.pausedAt)
	}
	return total
}

// Visibility is a hide/show event.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

// VisibilitySource emits hide/show events for the capture guard. Closing the
// source stops the event stream.
type VisibilitySource interface {
	Events() <-chan Visibility
	Close()
}

// SignalVisibility maps SIGTSTP to Hidden and SIGCONT to Visible, the closest
// process-level analog to a window losing focus.
type SignalVisibility struct {
	events  chan Visibility
	signals chan os.Signal
	done    chan struct{}
	once    sync.Once
}

// NewSignalVisibility starts listening for stop/continue signals.
func NewSignalVisibility() *SignalVisibility {
	s := &SignalVisibility{
		events:  make(chan Visibility, 4),
		signals: make(chan os.Signal, 4),
		done:    make(chan struct{}),
	}
	signal.Notify(s.signals, syscall.SIGTSTP, syscall.SIGCONT)
	go s.run()
	return s
}

func (s *SignalVisibility) run() {
	for {
		select {
		case sig := <-s.signals:
			v := Visible
			if sig == syscall.SIGTSTP {
				v = Hidden
			}
			select {
			case s.events <- v:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *SignalVisibility) Events() <-chan Visibility { return s.events }

func (s *SignalVisibility) Close() {
	s.once.Do(func() {
		signal.Stop(s.signals)
		close(s.done)
	})
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	Recorder   Recorder
	Source     VisibilitySource // nil disables visibility handling
	Clock      Clock
	Logger     *slog.Logger
	KeepAwake  func() (release func(), err error) // optional, best effort
	PauseClock *PauseClock // optional; created from Clock when nil
}

// Guard pauses and resumes the recorder on visibility changes and tracks the
// accumulated hidden time. Transitions require both sides to agree: a hide
// pauses only an actively recording encoder, and a show resumes only a pause
// this guard took. A pause held elsewhere (map setup, tile idle waits) is
// never touched.
type Guard struct {
	opts    GuardOptions
	pause   *PauseClock
	release func()

	mu     sync.Mutex
	hidden bool
	paused bool // the guard owns the recorder's current pause

	closeOnce sync.Once
	done      chan struct{}
}

// NewGuard builds the guard and starts watching the visibility source.
// Keep-awake failures are logged and ignored.
func NewGuard(opts GuardOptions) *Guard {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	pause := opts.PauseClock
	if pause == nil {
		pause = NewPauseClock(opts.Clock)
	}
	g := &Guard{opts: opts, pause: pause, done: make(chan struct{})}

	if opts.KeepAwake != nil {
		release, err := opts.KeepAwake()
		if err != nil {
			opts.Logger.Debug("keep-awake unavailable", "error", err)
		} else {
			g.release = release
		}
	}
	if opts.Source != nil {
		go g.watch()
	}
	return g
}

func (g *Guard) watch() {
	for {
		select {
		case v, ok := <-g.opts.Source.Events():
			if !ok {
				return
			}
			g.handle(v)
		case <-g.done:
			return
		}
	}
}

func (g *Guard) handle(v Visibility) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch v {
	case Hidden:
		if g.hidden {
			return
		}
		g.hidden = true
		if g.opts.Recorder.State() != StateRecording {
			return
		}
		g.pause.Begin()
		if err := g.opts.Recorder.Pause(); err != nil {
			g.pause.End()
			g.opts.Logger.Warn("pause on hide failed", "error", err)
			return
		}
		g.paused = true
		g.opts.Logger.Info("capture paused, process hidden")
	case Visible:
		if !g.hidden {
			return
		}
		g.hidden = false
		if !g.paused || g.opts.Recorder.State() != StatePaused {
			return
		}
		g.paused = false
		g.pause.End()
		if err := g.opts.Recorder.Resume(); err != nil {
			g.opts.Logger.Warn("resume on show failed", "error", err)
			return
		}
		g.opts.Logger.Info("capture resumed", "paused_total", g.pause.Get())
	}
}

// PauseClock exposes the guard's accumulated pause time.
func (g *Guard) PauseClock() *PauseClock { return g.pause }

// Close stops visibility handling, releases the keep-awake hold, and closes
// any in-progress pause. Safe to call more than once.
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
		if g.opts.Source != nil {
			g.opts.Source.Close()
		}
		if g.release != nil {
			g.release()
		}
		g.pause.End()
	})
}
