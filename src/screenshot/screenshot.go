// Package screenshot grabs one display into an immutable native-resolution
// raster and handles the PNG form used by the clipboard and the API.
package screenshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"

	"snapnote/src/geom"

	"github.com/kbinani/screenshot"
)

var (
	// ErrCaptureUnavailable means no display source could be obtained.
	ErrCaptureUnavailable = errors.New("screen capture unavailable")
	// ErrDecode means a raster failed to materialize.
	ErrDecode = errors.New("failed to decode captured image")
)

// Request selects the display to capture and the scale factor the host
// reports for it.
type Request struct {
	Display     int
	ScaleFactor float64
}

// Capture is one frozen still of a display at native resolution.
type Capture struct {
	Image       *image.RGBA
	ScaleFactor float64
	// Logical is the display size in logical (input-event) units.
	Logical image.Point
	Display int
}

// NativeSize returns the raster dimensions.
func (c *Capture) NativeSize() image.Point {
	if c == nil || c.Image == nil {
		return image.Point{}
	}
	return c.Image.Bounds().Size()
}

// Source produces captures. Implementations make a single attempt.
type Source interface {
	Capture(ctx context.Context, req Request) (*Capture, error)
}

// DisplaySource captures physical displays.
type DisplaySource struct{}

// NewDisplaySource returns the default Source.
func NewDisplaySource() *DisplaySource { return &DisplaySource{} }

// Capture grabs the requested display. The bounds reported for a display are
// already in native pixels, so the raster carries no resampling.
func (DisplaySource) Capture(ctx context.Context, req Request) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds, err := GetDisplayBounds(req.Display)
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return newCapture(img, req)
}

func newCapture(img *image.RGBA, req Request) (*Capture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrDecode
	}
	if img.Bounds().Min != (image.Point{}) {
		rebased := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		draw.Draw(rebased, rebased.Bounds(), img, img.Bounds().Min, draw.Src)
		img = rebased
	}
	scale := req.ScaleFactor
	if scale <= 0 {
		scale = 1
	}
	c := &Capture{
		Image:       img,
		ScaleFactor: scale,
		Logical:     geom.LogicalSize(img.Bounds().Size(), scale),
		Display:     req.Display,
	}
	log.Printf("screenshot: display %d captured %dx%d native, %dx%d logical (scale %.2f)",
		req.Display, img.Bounds().Dx(), img.Bounds().Dy(), c.Logical.X, c.Logical.Y, scale)
	return c, nil
}

// FromImage wraps an existing raster as a Capture.
func FromImage(img image.Image, req Request) (*Capture, error) {
	if img == nil {
		return nil, ErrDecode
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return newCapture(rgba, req)
}

// NumDisplays returns the number of active displays.
func NumDisplays() int { return screenshot.NumActiveDisplays() }

// GetDisplayBounds returns the native bounds of a display.
func GetDisplayBounds(display int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays found", ErrCaptureUnavailable)
	}
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("%w: display %d out of range (have %d)", ErrCaptureUnavailable, display, n)
	}
	return screenshot.GetDisplayBounds(display), nil
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePNG decodes a PNG buffer.
func DecodePNG(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrDecode
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// DataURI renders PNG bytes as a data: URI.
func DataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}
