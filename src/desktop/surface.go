package desktop

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	fynedesktop "fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"snapnote/src/messages"
	"snapnote/src/overlay"
)

// surface shows the rendered frame stretched over the window and turns
// mouse input into logical-coordinate pointer events.
type surface struct {
	widget.BaseWidget

	img    *canvas.Image
	post   func(messages.Message)
	cursor fynedesktop.Cursor
	size   fyne.Size
}

var (
	_ fynedesktop.Mouseable  = (*surface)(nil)
	_ fynedesktop.Hoverable  = (*surface)(nil)
	_ fynedesktop.Cursorable = (*surface)(nil)
)

func newSurface(frame *image.RGBA, post func(messages.Message)) *surface {
	img := canvas.NewImageFromImage(frame)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest
	s := &surface{img: img, post: post, cursor: fynedesktop.CrosshairCursor}
	s.ExtendBaseWidget(s)
	return s
}

func (s *surface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(s.img)
}

// Resize reports the new logical size so crops follow the window.
func (s *surface) Resize(size fyne.Size) {
	s.BaseWidget.Resize(size)
	if size == s.size {
		return
	}
	s.size = size
	s.post(messages.SurfaceResized{Width: int(size.Width), Height: int(size.Height)})
}

func (s *surface) SetFrame(frame *image.RGBA) {
	s.img.Image = frame
	s.img.Refresh()
}

func (s *surface) SetCursor(c fynedesktop.Cursor) {
	s.cursor = c
}

func (s *surface) Cursor() fynedesktop.Cursor {
	return s.cursor
}

func (s *surface) MouseDown(ev *fynedesktop.MouseEvent) {
	if ev.Button != fynedesktop.MouseButtonPrimary {
		return
	}
	s.post(messages.PointerDown{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

func (s *surface) MouseUp(ev *fynedesktop.MouseEvent) {
	if ev.Button != fynedesktop.MouseButtonPrimary {
		return
	}
	s.post(messages.PointerUp{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

func (s *surface) MouseIn(ev *fynedesktop.MouseEvent) {
	s.MouseMoved(ev)
}

func (s *surface) MouseMoved(ev *fynedesktop.MouseEvent) {
	s.post(messages.PointerMove{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

func (s *surface) MouseOut() {}

// cursorFor maps overlay cursor names onto the standard cursors fyne offers.
func cursorFor(name string) fynedesktop.Cursor {
	switch name {
	case overlay.CursorDefault:
		return fynedesktop.DefaultCursor
	case "e-resize", "w-resize":
		return fynedesktop.HResizeCursor
	case "n-resize", "s-resize":
		return fynedesktop.VResizeCursor
	case "nw-resize", "ne-resize", "se-resize", "sw-resize":
		return fynedesktop.PointerCursor
	default:
		return fynedesktop.CrosshairCursor
	}
}
