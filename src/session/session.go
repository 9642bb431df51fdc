// Package session dispatches a finished capture to its sink and drives the
// result views that follow a recognition. Every method runs on the event
// loop goroutine; slow work goes through Async.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"

	"snapnote/src/clipboard"
	"snapnote/src/logutil"
	"snapnote/src/messages"
	"snapnote/src/ocr"
	"snapnote/src/overlay"
	"snapnote/src/pin"
	"snapnote/src/screenshot"
	"snapnote/src/worker"
)

// ErrNotActionable is returned for a finish action on a selection that is
// too small. The session is left untouched.
var ErrNotActionable = overlay.ErrNotActionable

// ErrBusy means the worker queue rejected a job.
var ErrBusy = errors.New("busy, please retry")

// Host is the window side of the dispatcher.
type Host interface {
	CloseCapture(sessionID string)
	OpenPin(p pin.Pin)
	ClosePin(id string)
	// ShowResult opens the view or refreshes it if already open.
	ShowResult(v ocr.View)
	CloseResult(viewID string)
	PrimaryScreen() pin.Placement
}

// Async runs fn off the loop. done is called back on the loop goroutine.
// It returns false when the work was not accepted.
type Async interface {
	Go(name string, fn worker.Func, done worker.ResultCallback) bool
}

// Dispatcher routes finish actions and result-view commands.
type Dispatcher struct {
	host      Host
	async     Async
	pins      *pin.Manager
	pipeline  *ocr.Pipeline
	clipboard clipboard.Service
	publish   func(messages.Message)
}

// New wires a dispatcher. publish may be nil.
func New(host Host, async Async, pins *pin.Manager, pipeline *ocr.Pipeline, clip clipboard.Service, publish func(messages.Message)) *Dispatcher {
	if publish == nil {
		publish = func(messages.Message) {}
	}
	return &Dispatcher{
		host:      host,
		async:     async,
		pins:      pins,
		pipeline:  pipeline,
		clipboard: clip,
		publish:   publish,
	}
}

// Finish consumes the session with action. On error nothing has happened
// and the surface stays open; on success the surface is closed.
func (d *Dispatcher) Finish(s *overlay.Session, action messages.Action) error {
	if action == messages.ActionCancel {
		d.host.CloseCapture(s.ID())
		d.publish(messages.CaptureCancelled{SessionID: s.ID()})
		log.Printf("session: %s cancelled", s.ID())
		return nil
	}
	switch action {
	case messages.ActionCopy, messages.ActionPin, messages.ActionRecognize:
	default:
		return fmt.Errorf("unknown finish action %q", action)
	}

	r, err := s.CropRect()
	if err != nil {
		return err
	}
	crop := imaging.Crop(s.Capture().Image, r)
	log.Printf("session: %s %s crop %v (%dx%d native)", s.ID(), action, r, r.Dx(), r.Dy())

	switch action {
	case messages.ActionCopy:
		d.copyImage(crop)
		d.host.CloseCapture(s.ID())
	case messages.ActionPin:
		if err := d.PinImage(crop, s.Capture().ScaleFactor); err != nil {
			return err
		}
		d.host.CloseCapture(s.ID())
	case messages.ActionRecognize:
		d.host.CloseCapture(s.ID())
		if err := d.Recognize(crop); err != nil {
			log.Printf("session: recognition not started: %v", err)
		}
	}
	d.publish(messages.CaptureFinished{SessionID: s.ID(), Action: action, Crop: r})
	return nil
}

func (d *Dispatcher) copyImage(img image.Image) {
	ok := d.async.Go("copy-image", func(ctx context.Context) (string, error) {
		data, err := screenshot.EncodePNG(img)
		if err != nil {
			return "", err
		}
		return "", d.clipboard.WriteImage(data)
	}, func(_ string, err error) {
		if err != nil {
			log.Printf("session: clipboard image write failed: %v", err)
		}
	})
	if !ok {
		log.Printf("session: clipboard image write dropped: %v", ErrBusy)
	}
}

// PinImage opens a pin viewer for img, whose pixels are at scaleFactor.
func (d *Dispatcher) PinImage(img image.Image, scaleFactor float64) error {
	at := d.host.PrimaryScreen()
	if scaleFactor > 0 {
		at.ScaleFactor = scaleFactor
	}
	p, err := d.pins.Create(img, at)
	if err != nil {
		return err
	}
	d.host.OpenPin(p)
	return nil
}

// PinClipboard pins the image currently on the clipboard.
func (d *Dispatcher) PinClipboard() {
	var img image.Image
	ok := d.async.Go("pin-clipboard", func(ctx context.Context) (string, error) {
		data, err := d.clipboard.ReadImage()
		if err != nil {
			return "", err
		}
		img, err = screenshot.DecodePNG(data)
		return "", err
	}, func(_ string, err error) {
		if err != nil {
			log.Printf("session: nothing to pin from clipboard: %v", err)
			return
		}
		if err := d.PinImage(img, 0); err != nil {
			log.Printf("session: pin from clipboard failed: %v", err)
		}
	})
	if !ok {
		log.Printf("session: pin from clipboard dropped: %v", ErrBusy)
	}
}

// ClosePin removes one pin and its window.
func (d *Dispatcher) ClosePin(id string) bool {
	if !d.pins.Close(id) {
		return false
	}
	d.host.ClosePin(id)
	return true
}

// Recognize opens a result view for img and starts recognition. There is a
// single view slot: an open view is closed first and its pending results
// are dropped.
func (d *Dispatcher) Recognize(img image.Image) error {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return err
	}
	for _, id := range d.pipeline.IDs() {
		log.Printf("session: result view %s replaced", id)
		d.CloseResult(id)
	}
	v, job := d.pipeline.Open(data)
	d.host.ShowResult(*v)
	d.run(job)
	return nil
}

// ResultAction handles a button on a result view.
func (d *Dispatcher) ResultAction(viewID string, cmd messages.ResultCommand) error {
	v, ok := d.pipeline.Get(viewID)
	if !ok {
		return ocr.ErrUnknownView
	}
	switch cmd {
	case messages.ResultClose:
		d.CloseResult(viewID)
		return nil
	case messages.ResultCopy:
		if !v.Recognition.Succeeded() {
			return ocr.ErrNotRecognized
		}
		text := v.Recognition.Text
		if v.Translation.Succeeded() {
			text = v.Translation.Text
		}
		if !d.async.Go("copy-text", func(context.Context) (string, error) {
			return "", d.clipboard.WriteText(text)
		}, func(_ string, err error) {
			if err != nil {
				log.Printf("session: clipboard text write failed: %v", err)
			}
		}) {
			return ErrBusy
		}
		return nil
	case messages.ResultTranslate:
		job, err := d.pipeline.Translate(viewID)
		if err != nil {
			return err
		}
		d.host.ShowResult(*v)
		d.run(job)
		return nil
	case messages.ResultExport:
		job, err := d.pipeline.Export(viewID)
		if err != nil {
			return err
		}
		d.host.ShowResult(*v)
		d.run(job)
		return nil
	}
	return fmt.Errorf("unknown result command %q", cmd)
}

// CloseResult closes a view. Results still in flight for it are dropped.
func (d *Dispatcher) CloseResult(viewID string) {
	if d.pipeline.Close(viewID) {
		d.host.CloseResult(viewID)
	}
}

func (d *Dispatcher) run(job ocr.Job) {
	ok := d.async.Go(job.Kind.String(), job.Run, func(text string, err error) {
		d.apply(job.Complete(text, err))
	})
	if !ok {
		d.apply(job.Complete("", ErrBusy))
	}
}

func (d *Dispatcher) apply(c ocr.Completion) {
	v, ok := d.pipeline.Apply(c)
	if !ok {
		return
	}
	if c.Err != nil {
		log.Printf("session: %s for %s failed: %v", c.Kind, v.ID, c.Err)
	} else if c.Kind != ocr.KindExport {
		log.Printf("session: %s for %s: %q", c.Kind, v.ID, logutil.Sanitize(c.Text, logutil.DefaultSanitizeLen))
	}
	if c.Kind == ocr.KindExport && c.Err == nil {
		d.publish(messages.NoteExported{NoteID: v.NoteID, ViewID: v.ID})
		d.CloseResult(v.ID)
		return
	}
	d.host.ShowResult(*v)
}

// Views returns the number of open result views.
func (d *Dispatcher) Views() int { return d.pipeline.Len() }
