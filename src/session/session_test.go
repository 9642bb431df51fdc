package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"snapnote/src/geom"
	"snapnote/src/messages"
	"snapnote/src/notes"
	"snapnote/src/ocr"
	"snapnote/src/overlay"
	"snapnote/src/pin"
	"snapnote/src/screenshot"
	"snapnote/src/worker"
)

type fakeHost struct {
	calls   []string
	pins    []pin.Pin
	results []ocr.View
}

func (h *fakeHost) CloseCapture(id string)    { h.calls = append(h.calls, "close-capture") }
func (h *fakeHost) ClosePin(id string)        { h.calls = append(h.calls, "close-pin") }
func (h *fakeHost) CloseResult(viewID string) { h.calls = append(h.calls, "close-result") }

func (h *fakeHost) OpenPin(p pin.Pin) {
	h.calls = append(h.calls, "open-pin")
	h.pins = append(h.pins, p)
}

func (h *fakeHost) ShowResult(v ocr.View) {
	h.calls = append(h.calls, "show-result")
	h.results = append(h.results, v)
}

func (h *fakeHost) PrimaryScreen() pin.Placement {
	return pin.Placement{Screen: image.Pt(1280, 800), ScaleFactor: 1}
}

// syncAsync runs jobs inline, or parks them when hold is set.
type syncAsync struct {
	hold   bool
	parked []func()
	reject bool
}

func (a *syncAsync) Go(name string, fn worker.Func, done worker.ResultCallback) bool {
	if a.reject {
		return false
	}
	call := func() {
		text, err := fn(context.Background())
		done(text, err)
	}
	if a.hold {
		a.parked = append(a.parked, call)
		return true
	}
	call()
	return true
}

func (a *syncAsync) flush() {
	parked := a.parked
	a.parked = nil
	for _, f := range parked {
		f()
	}
}

type fakeClipboard struct {
	png  []byte
	text string
}

func (c *fakeClipboard) WriteImage(png []byte) error {
	c.png = png
	return nil
}

func (c *fakeClipboard) ReadImage() ([]byte, error) {
	if c.png == nil {
		return nil, errors.New("empty")
	}
	return c.png, nil
}

func (c *fakeClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f *fakeRecognizer) QueryVision(context.Context, []byte) (string, error) { return f.text, f.err }

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	return lang + ":" + text, nil
}

type fakeStore struct{ saved []notes.NoteInput }

func (s *fakeStore) CreateNote(in notes.NoteInput) (notes.Note, error) {
	s.saved = append(s.saved, in)
	return notes.Note{ID: "n1"}, nil
}

type fixture struct {
	host  *fakeHost
	async *syncAsync
	clip  *fakeClipboard
	store *fakeStore
	rec   *fakeRecognizer
	pins  *pin.Manager
	sent  []messages.Message
	d     *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		host:  &fakeHost{},
		async: &syncAsync{},
		clip:  &fakeClipboard{},
		store: &fakeStore{},
		rec:   &fakeRecognizer{text: "Hello\nWorld"},
	}
	publish := func(m messages.Message) { f.sent = append(f.sent, m) }
	f.pins = pin.NewManager(pin.Options{}, publish)
	pipeline := ocr.NewPipeline(f.rec, fakeTranslator{}, f.store, "French")
	f.d = New(f.host, f.async, f.pins, pipeline, f.clip, publish)
	return f
}

// gradient makes every pixel distinct so crops can be checked by value.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(x >> 8), 255})
		}
	}
	return img
}

func readySession(t *testing.T, native image.Point, scale float64, from, to geom.Point) *overlay.Session {
	t.Helper()
	c, err := screenshot.FromImage(gradient(native.X, native.Y), screenshot.Request{ScaleFactor: scale})
	if err != nil {
		t.Fatal(err)
	}
	s := overlay.New(image.Point{})
	s.Ready(c)
	s.PointerDown(from)
	s.PointerMove(to)
	s.PointerUp(to)
	return s
}

func TestFinishTooSmallHasNoSideEffects(t *testing.T) {
	f := newFixture()
	s := readySession(t, image.Pt(400, 300), 1, geom.Pt(10, 10), geom.Pt(12, 100))
	for _, a := range []messages.Action{messages.ActionCopy, messages.ActionPin, messages.ActionRecognize} {
		if err := f.d.Finish(s, a); !errors.Is(err, ErrNotActionable) {
			t.Fatalf("Finish(%s) = %v, want ErrNotActionable", a, err)
		}
	}
	if len(f.host.calls) != 0 || len(f.sent) != 0 || f.clip.png != nil || f.pins.Len() != 0 {
		t.Fatalf("side effects: calls=%v sent=%v", f.host.calls, f.sent)
	}
}

func TestFinishCopyCropsAtNativeResolution(t *testing.T) {
	f := newFixture()
	s := readySession(t, image.Pt(1920, 1200), 1.5, geom.Pt(100, 100), geom.Pt(300, 250))
	if err := f.d.Finish(s, messages.ActionCopy); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	img, err := screenshot.DecodePNG(f.clip.png)
	if err != nil {
		t.Fatalf("clipboard PNG: %v", err)
	}
	if img.Bounds().Size() != image.Pt(300, 225) {
		t.Fatalf("crop size = %v, want 300x225", img.Bounds().Size())
	}
	// Top-left of the crop is native pixel (150,150).
	r, g, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	if r>>8 != 150 || g>>8 != 150 {
		t.Fatalf("crop origin pixel = (%d,%d), want (150,150)", r>>8, g>>8)
	}
	if len(f.host.calls) != 1 || f.host.calls[0] != "close-capture" {
		t.Fatalf("host calls = %v", f.host.calls)
	}
	fin, ok := f.sent[len(f.sent)-1].(messages.CaptureFinished)
	if !ok || fin.Action != messages.ActionCopy || fin.Crop != image.Rect(150, 150, 450, 375) {
		t.Fatalf("notification = %+v", f.sent)
	}
}

func TestFinishPin(t *testing.T) {
	f := newFixture()
	s := readySession(t, image.Pt(800, 600), 1, geom.Pt(10, 10), geom.Pt(60, 40))
	if err := f.d.Finish(s, messages.ActionPin); err != nil {
		t.Fatal(err)
	}
	if f.pins.Len() != 1 || len(f.host.pins) != 1 {
		t.Fatalf("pins = %d", f.pins.Len())
	}
	if got := f.host.pins[0].Size; got != image.Pt(100, 100) {
		t.Fatalf("small pin size = %v, want floor 100x100", got)
	}
	if f.host.calls[0] != "open-pin" || f.host.calls[1] != "close-capture" {
		t.Fatalf("host calls = %v", f.host.calls)
	}

	if !f.d.ClosePin(f.host.pins[0].ID) || f.pins.Len() != 0 {
		t.Fatal("ClosePin failed")
	}
	if f.d.ClosePin(f.host.pins[0].ID) {
		t.Fatal("second ClosePin succeeded")
	}
}

func TestFinishRecognizeClosesSurfaceFirst(t *testing.T) {
	f := newFixture()
	f.async.hold = true
	s := readySession(t, image.Pt(800, 600), 1, geom.Pt(10, 10), geom.Pt(110, 60))
	if err := f.d.Finish(s, messages.ActionRecognize); err != nil {
		t.Fatal(err)
	}
	if f.host.calls[0] != "close-capture" || f.host.calls[1] != "show-result" {
		t.Fatalf("host calls = %v", f.host.calls)
	}
	if first := f.host.results[0]; !first.Recognition.Loading() || len(first.PNG) == 0 {
		t.Fatalf("first view state = %+v", first.Recognition)
	}
	f.async.flush()
	last := f.host.results[len(f.host.results)-1]
	if last.Recognition.Text != "Hello\nWorld" {
		t.Fatalf("recognized = %+v", last.Recognition)
	}
}

func TestResultActions(t *testing.T) {
	f := newFixture()
	if err := f.d.Recognize(gradient(20, 20)); err != nil {
		t.Fatal(err)
	}
	id := f.host.results[0].ID

	if err := f.d.ResultAction(id, messages.ResultCopy); err != nil {
		t.Fatal(err)
	}
	if f.clip.text != "Hello\nWorld" {
		t.Fatalf("copied %q", f.clip.text)
	}

	if err := f.d.ResultAction(id, messages.ResultTranslate); err != nil {
		t.Fatal(err)
	}
	last := f.host.results[len(f.host.results)-1]
	if last.Translation.Text != "French:Hello\nWorld" {
		t.Fatalf("translation = %+v", last.Translation)
	}

	if err := f.d.ResultAction(id, messages.ResultExport); err != nil {
		t.Fatal(err)
	}
	if len(f.store.saved) != 1 || f.store.saved[0].Title != "Hello" {
		t.Fatalf("saved = %+v", f.store.saved)
	}
	if f.host.calls[len(f.host.calls)-1] != "close-result" || f.d.Views() != 0 {
		t.Fatalf("export should close the view, calls=%v", f.host.calls)
	}
	if _, ok := f.sent[len(f.sent)-1].(messages.NoteExported); !ok {
		t.Fatalf("last notification = %T", f.sent[len(f.sent)-1])
	}
	if err := f.d.ResultAction(id, messages.ResultCopy); !errors.Is(err, ocr.ErrUnknownView) {
		t.Fatalf("action on closed view = %v", err)
	}
}

func TestLateRecognitionAfterClose(t *testing.T) {
	f := newFixture()
	f.async.hold = true
	f.d.Recognize(gradient(10, 10))
	id := f.host.results[0].ID
	if err := f.d.ResultAction(id, messages.ResultClose); err != nil {
		t.Fatal(err)
	}
	shown := len(f.host.results)
	f.async.flush()
	if len(f.host.results) != shown {
		t.Fatal("late recognition re-opened a closed view")
	}
}

func TestRecognizeReplacesOpenView(t *testing.T) {
	f := newFixture()
	f.async.hold = true
	f.d.Recognize(gradient(10, 10))
	first := f.host.results[0].ID
	f.rec.text = "second"
	f.d.Recognize(gradient(12, 12))
	second := f.host.results[len(f.host.results)-1].ID

	if first == second || f.d.Views() != 1 {
		t.Fatalf("views = %d, ids %s %s", f.d.Views(), first, second)
	}
	if f.host.calls[1] != "close-result" {
		t.Fatalf("host calls = %v", f.host.calls)
	}
	shown := len(f.host.results)
	f.async.flush()
	if len(f.host.results) != shown+1 {
		t.Fatalf("expected one refresh, got %d", len(f.host.results)-shown)
	}
	last := f.host.results[len(f.host.results)-1]
	if last.ID != second || last.Recognition.Text != "second" {
		t.Fatalf("refreshed view = %+v", last)
	}
}

func TestRecognitionFailureIsolation(t *testing.T) {
	f := newFixture()
	f.rec.err = errors.New("model unavailable")
	f.d.Recognize(gradient(10, 10))
	failed := f.host.results[len(f.host.results)-1]
	if failed.Recognition.Phase != ocr.PhaseError || failed.Recognition.Err != "model unavailable" {
		t.Fatalf("recognition = %+v", failed.Recognition)
	}
	for _, c := range f.host.calls {
		if c == "close-result" {
			t.Fatalf("failed view was closed: %v", f.host.calls)
		}
	}
	if f.d.Views() != 1 {
		t.Fatalf("views = %d", f.d.Views())
	}

	f.rec.err = nil
	f.d.Recognize(gradient(10, 10))
	fresh := f.host.results[len(f.host.results)-1]
	if fresh.ID == failed.ID || !fresh.Recognition.Succeeded() || fresh.Recognition.Text != "Hello\nWorld" {
		t.Fatalf("fresh view = %+v", fresh)
	}
	if fresh.Translation.Phase != ocr.PhaseIdle {
		t.Fatalf("fresh view inherited translation %+v", fresh.Translation)
	}
	if failed.Recognition.Phase != ocr.PhaseError {
		t.Fatalf("failed view changed: %+v", failed.Recognition)
	}
	if f.d.Views() != 1 {
		t.Fatalf("views = %d", f.d.Views())
	}
}

func TestBusyRecognitionBecomesError(t *testing.T) {
	f := newFixture()
	f.async.reject = true
	f.d.Recognize(gradient(10, 10))
	last := f.host.results[len(f.host.results)-1]
	if last.Recognition.Phase != ocr.PhaseError || last.Recognition.Err != ErrBusy.Error() {
		t.Fatalf("recognition = %+v", last.Recognition)
	}
}

func TestCancelAndPinClipboard(t *testing.T) {
	f := newFixture()
	s := overlay.New(image.Pt(100, 100))
	if err := f.d.Finish(s, messages.ActionCancel); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.sent[0].(messages.CaptureCancelled); !ok {
		t.Fatalf("sent = %v", f.sent)
	}

	f.d.PinClipboard()
	if f.pins.Len() != 0 {
		t.Fatal("pinned from an empty clipboard")
	}
	data, _ := screenshot.EncodePNG(gradient(300, 200))
	f.clip.png = data
	f.d.PinClipboard()
	if f.pins.Len() != 1 || f.host.pins[0].Size != image.Pt(300, 200) {
		t.Fatalf("clipboard pin = %+v", f.host.pins)
	}
}
