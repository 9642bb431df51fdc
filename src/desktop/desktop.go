// Package desktop hosts capture surfaces, pins and result views in fyne
// windows. Calls arrive from the event loop goroutine and are marshalled
// onto the fyne thread; user input flows back as messages.
package desktop

import (
	"image"
	"log"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	fynedesktop "fyne.io/fyne/v2/driver/desktop"

	"snapnote/src/messages"
	"snapnote/src/pin"
	"snapnote/src/screenshot"
)

// Poster receives input events. The event loop implements it.
type Poster interface {
	Post(m messages.Message) bool
}

// fallbackScreen is used when display bounds are unavailable.
var fallbackScreen = image.Pt(1280, 800)

// Host implements the event loop host on top of a fyne app.
type Host struct {
	app     fyne.App
	display int
	poster  Poster

	mu    sync.Mutex
	scale float64

	// Touched only on the fyne thread.
	hub     fyne.Window
	capture *captureWindow
	pins    map[string]fyne.Window
	results map[string]*resultView
}

type captureWindow struct {
	id      string
	win     fyne.Window
	surface *surface
}

// New creates a host for app capturing the given display.
func New(app fyne.App, display int) *Host {
	h := &Host{
		app:     app,
		display: display,
		pins:    make(map[string]fyne.Window),
		results: make(map[string]*resultView),
	}
	// The hub is never shown. It keeps the driver running while no other
	// window is open.
	h.hub = app.NewWindow("SnapNote")
	return h
}

// Attach sets the event sink. It must be called before any window opens.
func (h *Host) Attach(p Poster) {
	h.poster = p
}

func (h *Host) post(m messages.Message) {
	if h.poster == nil {
		log.Printf("Desktop: no event loop attached, dropped %s", m.Type())
		return
	}
	h.poster.Post(m)
}

// OpenCapture shows a borderless fullscreen window with frame already set.
func (h *Host) OpenCapture(sessionID string, frame *image.RGBA, logical image.Point) {
	fyne.Do(func() {
		if h.capture != nil {
			h.capture.win.Close()
		}
		win := h.newBorderless("SnapNote capture")
		s := newSurface(frame, h.post)
		win.SetPadded(false)
		win.SetContent(s)
		win.Resize(fyne.NewSize(float32(logical.X), float32(logical.Y)))
		win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
			h.post(messages.KeyPressed{Key: string(ev.Name)})
		})
		win.SetCloseIntercept(func() {
			h.post(messages.SurfaceClosed{})
		})
		win.SetFullScreen(true)
		win.Show()
		win.RequestFocus()
		h.capture = &captureWindow{id: sessionID, win: win, surface: s}
		h.setScale(float64(win.Canvas().Scale()))
		log.Printf("Desktop: capture window %s open (%dx%d logical)", sessionID, logical.X, logical.Y)
	})
}

func (h *Host) newBorderless(title string) fyne.Window {
	if drv, ok := h.app.Driver().(fynedesktop.Driver); ok {
		w := drv.CreateSplashWindow()
		w.SetTitle(title)
		return w
	}
	return h.app.NewWindow(title)
}

// PresentCapture replaces the surface frame.
func (h *Host) PresentCapture(sessionID string, frame *image.RGBA) {
	fyne.Do(func() {
		if c := h.captureFor(sessionID); c != nil {
			c.surface.SetFrame(frame)
		}
	})
}

// SetCursor changes the pointer shape over the surface.
func (h *Host) SetCursor(sessionID string, cursor string) {
	fyne.Do(func() {
		if c := h.captureFor(sessionID); c != nil {
			c.surface.SetCursor(cursorFor(cursor))
		}
	})
}

// CloseCapture destroys the capture window.
func (h *Host) CloseCapture(sessionID string) {
	fyne.Do(func() {
		if c := h.captureFor(sessionID); c != nil {
			c.win.Close()
			h.capture = nil
			log.Printf("Desktop: capture window %s closed", sessionID)
		}
	})
}

func (h *Host) captureFor(id string) *captureWindow {
	if h.capture == nil || h.capture.id != id {
		return nil
	}
	return h.capture
}

func (h *Host) setScale(s float64) {
	if s <= 0 {
		return
	}
	h.mu.Lock()
	h.scale = s
	h.mu.Unlock()
}

// ScaleFactor returns the last scale reported by a window canvas, or 0
// before any window has been shown.
func (h *Host) ScaleFactor() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scale
}

// PrimaryScreen reports the logical size of the capture display.
func (h *Host) PrimaryScreen() pin.Placement {
	scale := h.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	bounds, err := screenshot.GetDisplayBounds(h.display)
	if err != nil || bounds.Empty() {
		return pin.Placement{Screen: fallbackScreen, ScaleFactor: scale}
	}
	return pin.Placement{Screen: logicalSize(bounds.Size(), scale), ScaleFactor: scale}
}

func logicalSize(native image.Point, scale float64) image.Point {
	return image.Pt(int(math.Round(float64(native.X)/scale)), int(math.Round(float64(native.Y)/scale)))
}

// Quit stops the fyne app.
func (h *Host) Quit() {
	fyne.Do(h.app.Quit)
}
