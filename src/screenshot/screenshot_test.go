package screenshot

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestCapture(t *testing.T) {
	// Requires a display; only check that the call does not panic.
	c, err := NewDisplaySource().Capture(context.Background(), Request{Display: 0, ScaleFactor: 1})
	if err != nil {
		t.Logf("Failed to capture screenshot (expected in headless environment): %v", err)
		return
	}
	if c.NativeSize() != c.Logical {
		t.Errorf("scale 1 capture: native %v != logical %v", c.NativeSize(), c.Logical)
	}
}

func TestCaptureOutOfRangeDisplay(t *testing.T) {
	_, err := NewDisplaySource().Capture(context.Background(), Request{Display: 99})
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDisplaySource().Capture(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFromImageDerivesLogicalSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1920, 1200))
	c, err := FromImage(img, Request{ScaleFactor: 1.5})
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if c.Logical != image.Pt(1280, 800) {
		t.Fatalf("Logical = %v, want 1280x800", c.Logical)
	}
	if c.ScaleFactor != 1.5 {
		t.Fatalf("ScaleFactor = %v", c.ScaleFactor)
	}
}

func TestFromImageRebasesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(100, 50, 110, 60))
	img.SetRGBA(100, 50, color.RGBA{R: 255, A: 255})
	c, err := FromImage(img, Request{})
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if c.Image.Bounds().Min != (image.Point{}) {
		t.Fatalf("bounds = %v, want origin at 0,0", c.Image.Bounds())
	}
	if got := c.Image.RGBAAt(0, 0); got.R != 255 {
		t.Fatalf("pixel not carried over: %v", got)
	}
}

func TestFromImageRejectsEmpty(t *testing.T) {
	if _, err := FromImage(image.NewRGBA(image.Rectangle{}), Request{}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := FromImage(nil, Request{}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for nil, got %v", err)
	}
}

func TestPNGRoundTripAndDataURI(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(2, 1, color.RGBA{B: 200, A: 255})
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	decoded, err := DecodePNG(data)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	if decoded.Bounds().Size() != image.Pt(3, 2) {
		t.Fatalf("decoded size = %v", decoded.Bounds().Size())
	}
	if !strings.HasPrefix(DataURI(data), "data:image/png;base64,iVBOR") {
		t.Fatalf("unexpected data URI prefix: %.40s", DataURI(data))
	}
	if _, err := DecodePNG([]byte("nope")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
