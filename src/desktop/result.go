package desktop

import (
	"image"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"snapnote/src/messages"
	"snapnote/src/ocr"
	"snapnote/src/pin"
	"snapnote/src/screenshot"
)

// Thumbnail bounds for the result view preview.
const (
	thumbWidth  = 480
	thumbHeight = 240
)

type resultView struct {
	win         fyne.Window
	text        *widget.Entry
	translation *widget.Entry
	status      *widget.Label
	translate   *widget.Button
	copy        *widget.Button
	export      *widget.Button
}

// OpenPin shows a fixed-size window holding the pinned image, centered on
// the primary display.
func (h *Host) OpenPin(p pin.Pin) {
	fyne.Do(func() {
		win := newPinWindow(h.app, p, h.post)
		win.Show()
		h.pins[p.ID] = win
		log.Printf("Desktop: pin %s open (%dx%d)", p.ID, p.Size.X, p.Size.Y)
	})
}

func newPinWindow(app fyne.App, p pin.Pin, post func(messages.Message)) fyne.Window {
	win := app.NewWindow("Pin")
	img := canvas.NewImageFromImage(p.Image)
	img.FillMode = canvas.ImageFillContain
	win.SetPadded(false)
	win.SetContent(img)
	win.Resize(fyne.NewSize(float32(p.Size.X), float32(p.Size.Y)))
	win.SetFixedSize(true)
	win.SetCloseIntercept(func() {
		post(messages.PinCloseRequested{ID: p.ID})
	})
	win.CenterOnScreen()
	return win
}

// ClosePin destroys a pin window.
func (h *Host) ClosePin(id string) {
	fyne.Do(func() {
		if win, ok := h.pins[id]; ok {
			delete(h.pins, id)
			win.Close()
		}
	})
}

// ShowResult opens the result view for v or refreshes it.
func (h *Host) ShowResult(v ocr.View) {
	fyne.Do(func() {
		rv, ok := h.results[v.ID]
		if !ok {
			rv = h.newResultView(v)
			h.results[v.ID] = rv
			rv.win.Show()
		}
		rv.update(v)
	})
}

// CloseResult destroys the result view.
func (h *Host) CloseResult(viewID string) {
	fyne.Do(func() {
		if rv, ok := h.results[viewID]; ok {
			delete(h.results, viewID)
			rv.win.Close()
		}
	})
}

func (h *Host) newResultView(v ocr.View) *resultView {
	id := v.ID
	action := func(cmd messages.ResultCommand) func() {
		return func() { h.post(messages.ResultAction{ViewID: id, Command: cmd}) }
	}

	rv := &resultView{
		win:         h.app.NewWindow("Recognized text"),
		text:        widget.NewMultiLineEntry(),
		translation: widget.NewMultiLineEntry(),
		status:      widget.NewLabel(""),
		translate:   widget.NewButton("Translate", action(messages.ResultTranslate)),
		copy:        widget.NewButton("Copy", action(messages.ResultCopy)),
		export:      widget.NewButton("Export to note", action(messages.ResultExport)),
	}
	rv.text.Wrapping = fyne.TextWrapWord
	rv.translation.Wrapping = fyne.TextWrapWord
	rv.translation.Hide()

	var preview fyne.CanvasObject = widget.NewLabel("")
	if thumb, err := thumbnail(v.PNG, thumbWidth, thumbHeight); err == nil {
		img := canvas.NewImageFromImage(thumb)
		img.FillMode = canvas.ImageFillContain
		b := thumb.Bounds()
		img.SetMinSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
		preview = img
	} else {
		log.Printf("Desktop: result preview for %s: %v", id, err)
	}

	buttons := container.NewHBox(rv.translate, rv.copy, rv.export, widget.NewButton("Close", action(messages.ResultClose)))
	body := container.NewVSplit(rv.text, rv.translation)
	rv.win.SetContent(container.NewBorder(
		container.NewVBox(preview, rv.status), buttons, nil, nil, body))
	rv.win.Resize(fyne.NewSize(560, 520))
	rv.win.SetCloseIntercept(action(messages.ResultClose))
	return rv
}

func (rv *resultView) update(v ocr.View) {
	rv.status.SetText(StatusText(v))

	if v.Recognition.Succeeded() {
		rv.text.SetText(v.Recognition.Text)
	}
	if v.Translation.Phase != ocr.PhaseIdle {
		rv.translation.Show()
		switch {
		case v.Translation.Loading():
			rv.translation.SetText("Translating...")
		case v.Translation.Succeeded():
			rv.translation.SetText(v.Translation.Text)
		default:
			rv.translation.SetText("Translation failed: " + v.Translation.Err)
		}
	}

	ready := v.Recognition.Succeeded()
	setEnabled(rv.translate, ready && !v.Translation.Loading())
	setEnabled(rv.copy, ready)
	setEnabled(rv.export, ready && !v.Export.Loading())
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// StatusText is the one-line status shown above the recognized text.
func StatusText(v ocr.View) string {
	switch {
	case v.Recognition.Loading():
		return "Recognizing text..."
	case v.Recognition.Phase == ocr.PhaseError:
		return "Recognition failed: " + v.Recognition.Err
	case v.Export.Loading():
		return "Saving note..."
	case v.Export.Phase == ocr.PhaseError:
		return "Export failed: " + v.Export.Err
	case v.Translation.Loading():
		return "Translating to " + v.Language + "..."
	default:
		return "Done"
	}
}

// thumbnail decodes png and fits it inside maxW x maxH without upscaling.
func thumbnail(png []byte, maxW, maxH int) (image.Image, error) {
	img, err := screenshot.DecodePNG(png)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img, nil
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos), nil
}
