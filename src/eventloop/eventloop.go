// Package eventloop is the single interaction goroutine. Host input,
// triggers and background completions all arrive on channels and are
// handled in order, so session, pin and view state need no locking.
package eventloop

import (
	"context"
	"errors"
	"image"
	"log"
	"time"

	"snapnote/src/clipboard"
	"snapnote/src/geom"
	"snapnote/src/messages"
	"snapnote/src/ocr"
	"snapnote/src/overlay"
	"snapnote/src/pin"
	"snapnote/src/router"
	"snapnote/src/screenshot"
	"snapnote/src/session"
	"snapnote/src/worker"
)

// Host is the window system as seen by the loop. Calls are made from the
// loop goroutine; implementations marshal onto their UI thread.
type Host interface {
	session.Host
	// OpenCapture shows the capture surface with its first frame already
	// set.
	OpenCapture(sessionID string, frame *image.RGBA, logical image.Point)
	PresentCapture(sessionID string, frame *image.RGBA)
	SetCursor(sessionID string, cursor string)
	ScaleFactor() float64
	Quit()
}

// Options configure the loop.
type Options struct {
	Display int
	// ScaleFactor overrides the host-reported scale when > 0.
	ScaleFactor float64
	// Deadline bounds each background job.
	Deadline time.Duration
	Workers  int
	Queue    int
	// Pin sizes pins when Deps.Pins is nil.
	Pin pin.Options
}

// Deps are the collaborators wired into the loop.
type Deps struct {
	Host      Host
	Source    screenshot.Source
	Clipboard clipboard.Service
	Pins      *pin.Manager
	Pipeline  *ocr.Pipeline
	Bus       *router.Router
}

// Loop coordinates capture sessions, pins and result views.
type Loop struct {
	host       Host
	source     screenshot.Source
	bus        *router.Router
	pool       *worker.Pool
	dispatcher *session.Dispatcher
	opts       Options

	events      chan messages.Message
	completions chan func()
	done        chan struct{}

	active *overlay.Session
}

// New creates a loop. If opts.Deadline <= 0, a 20s deadline is used.
func New(deps Deps, opts Options) *Loop {
	if opts.Deadline <= 0 {
		opts.Deadline = 20 * time.Second
	}
	if opts.Queue <= 0 {
		opts.Queue = 4
	}
	l := &Loop{
		host:        deps.Host,
		source:      deps.Source,
		bus:         deps.Bus,
		pool:        worker.New(opts.Workers, opts.Queue),
		opts:        opts,
		events:      make(chan messages.Message, 64),
		completions: make(chan func(), 16),
		done:        make(chan struct{}),
	}
	if deps.Pins == nil {
		deps.Pins = pin.NewManager(opts.Pin, l.publish)
	}
	l.dispatcher = session.New(deps.Host, l, deps.Pins, deps.Pipeline, deps.Clipboard, l.publish)
	return l
}

// Deadline returns the configured job deadline.
func (l *Loop) Deadline() time.Duration { return l.opts.Deadline }

// Dispatcher exposes the output dispatcher.
func (l *Loop) Dispatcher() *session.Dispatcher { return l.dispatcher }

func (l *Loop) publish(m messages.Message) {
	if l.bus != nil {
		l.bus.Publish(messages.ProcessLoop, m)
	}
}

// Post queues an event for the loop. It never blocks; a full queue drops
// the event and returns false.
func (l *Loop) Post(m messages.Message) bool {
	select {
	case l.events <- m:
		return true
	default:
		log.Printf("eventloop: queue full, dropped %s", m.Type())
		return false
	}
}

// Go runs fn on the worker pool under the loop deadline and calls done back
// on the loop goroutine.
func (l *Loop) Go(name string, fn worker.Func, done worker.ResultCallback) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.Deadline)
	ok := l.pool.Submit(ctx, name, fn, func(text string, err error) {
		select {
		case l.completions <- func() {
			cancel()
			done(text, err)
		}:
		case <-l.done:
			cancel()
		}
	})
	if !ok {
		cancel()
		log.Printf("eventloop: worker queue full, %s rejected", name)
	}
	return ok
}

// Run processes events until ctx is cancelled or Quit is handled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		close(l.done)
		l.pool.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-l.events:
			if _, quit := m.(messages.Quit); quit {
				log.Printf("eventloop: quit requested")
				l.host.Quit()
				return nil
			}
			l.handle(m)
		case f := <-l.completions:
			f()
		}
	}
}

func (l *Loop) handle(m messages.Message) {
	switch ev := m.(type) {
	case messages.TriggerCapture:
		l.startCapture(ev.Source)
	case messages.TriggerPinClipboard:
		l.dispatcher.PinClipboard()
	case messages.PointerDown:
		l.withSession(func(s *overlay.Session) overlay.Outcome { return s.PointerDown(geom.Pt(ev.X, ev.Y)) })
	case messages.PointerMove:
		l.withSession(func(s *overlay.Session) overlay.Outcome { return s.PointerMove(geom.Pt(ev.X, ev.Y)) })
	case messages.PointerUp:
		l.withSession(func(s *overlay.Session) overlay.Outcome { return s.PointerUp(geom.Pt(ev.X, ev.Y)) })
	case messages.KeyPressed:
		l.withSession(func(s *overlay.Session) overlay.Outcome { return s.Key(ev.Key) })
	case messages.SurfaceResized:
		l.withSession(func(s *overlay.Session) overlay.Outcome {
			return overlay.Outcome{Redraw: s.Resize(image.Pt(ev.Width, ev.Height))}
		})
	case messages.SurfaceClosed:
		l.withSession(func(*overlay.Session) overlay.Outcome { return overlay.Outcome{Action: messages.ActionCancel} })
	case messages.PinCloseRequested:
		l.dispatcher.ClosePin(ev.ID)
	case messages.ResultAction:
		if err := l.dispatcher.ResultAction(ev.ViewID, ev.Command); err != nil {
			log.Printf("eventloop: result %s on %s: %v", ev.Command, ev.ViewID, err)
		}
	default:
		log.Printf("eventloop: ignoring %s", m.Type())
	}
}

func (l *Loop) withSession(fn func(*overlay.Session) overlay.Outcome) {
	s := l.active
	if s == nil {
		return
	}
	out := fn(s)
	if out.Cursor != "" {
		l.host.SetCursor(s.ID(), out.Cursor)
	}
	if out.Action != "" {
		err := l.dispatcher.Finish(s, out.Action)
		switch {
		case err == nil:
			l.active = nil
		case errors.Is(err, overlay.ErrNotActionable), errors.Is(err, overlay.ErrNotReady):
		default:
			log.Printf("eventloop: %s failed: %v", out.Action, err)
		}
		return
	}
	if out.Redraw {
		l.host.PresentCapture(s.ID(), s.Frame())
	}
}

func (l *Loop) scaleFactor() float64 {
	if l.opts.ScaleFactor > 0 {
		return l.opts.ScaleFactor
	}
	if sf := l.host.ScaleFactor(); sf > 0 {
		return sf
	}
	return 1
}

// startCapture grabs the display in the background and opens the surface
// only once the first frame is ready or has failed, so the surface never
// appears in its own screenshot. A trigger while a session is pending or
// live is a no-op.
func (l *Loop) startCapture(source string) {
	if l.active != nil {
		log.Printf("eventloop: capture from %s ignored, session %s is live", source, l.active.ID())
		return
	}
	screen := l.host.PrimaryScreen().Screen
	s := overlay.New(screen)
	l.active = s
	log.Printf("eventloop: capture %s requested from %s", s.ID(), source)

	req := screenshot.Request{Display: l.opts.Display, ScaleFactor: l.scaleFactor()}
	var c *screenshot.Capture
	ok := l.Go("capture", func(ctx context.Context) (string, error) {
		var err error
		c, err = l.source.Capture(ctx, req)
		return "", err
	}, func(_ string, err error) {
		if l.active != s {
			log.Printf("eventloop: dropping capture for closed session %s", s.ID())
			return
		}
		if err != nil {
			s.Fail(err)
		} else {
			s.Ready(c)
		}
		l.openSurface(s, screen)
	})
	if !ok {
		s.Fail(session.ErrBusy)
		l.openSurface(s, screen)
	}
}

func (l *Loop) openSurface(s *overlay.Session, screen image.Point) {
	l.host.OpenCapture(s.ID(), s.Frame(), screen)
	l.publish(messages.CaptureStarted{SessionID: s.ID(), Display: l.opts.Display})
	log.Printf("eventloop: capture %s shown (%s)", s.ID(), s.Status())
}

// Active returns the live capture session, if any.
func (l *Loop) Active() *overlay.Session { return l.active }
