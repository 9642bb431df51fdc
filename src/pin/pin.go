// Package pin keeps the registry of floating pinned-image viewers.
package pin

import (
	"errors"
	"image"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"snapnote/src/messages"
)

// Defaults for display sizing.
const (
	DefaultMaxFraction = 0.5
	DefaultMinSize     = 100
)

var ErrEmptyImage = errors.New("pin image is empty")

// Pin is one pinned viewer. Size is in logical units and fixed at
// creation. The host opens the viewer centered on the primary display.
type Pin struct {
	ID        string
	Image     image.Image
	Size      image.Point
	CreatedAt time.Time
}

// Placement describes the primary display a pin opens on.
type Placement struct {
	Screen      image.Point
	ScaleFactor float64
}

// Options tune display sizing.
type Options struct {
	MaxFraction float64
	MinSize     int
}

func (o Options) withDefaults() Options {
	if o.MaxFraction <= 0 || o.MaxFraction > 1 {
		o.MaxFraction = DefaultMaxFraction
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	return o
}

// Manager owns the live pins. Pins never share state beyond membership in
// the registry.
type Manager struct {
	opts    Options
	publish func(messages.Message)

	mu    sync.Mutex
	pins  map[string]*Pin
	order []string
}

// NewManager creates an empty registry. publish may be nil.
func NewManager(opts Options, publish func(messages.Message)) *Manager {
	if publish == nil {
		publish = func(messages.Message) {}
	}
	return &Manager{
		opts:    opts.withDefaults(),
		publish: publish,
		pins:    make(map[string]*Pin),
	}
}

// Create registers a new pin for img. There is no limit on the number of
// pins.
func (m *Manager) Create(img image.Image, at Placement) (Pin, error) {
	if img == nil || img.Bounds().Empty() {
		return Pin{}, ErrEmptyImage
	}
	scale := at.ScaleFactor
	if scale <= 0 {
		scale = 1
	}
	native := img.Bounds().Size()
	logical := image.Pt(
		int(math.Round(float64(native.X)/scale)),
		int(math.Round(float64(native.Y)/scale)),
	)
	size := DisplaySize(logical, at.Screen, m.opts.MaxFraction, m.opts.MinSize)
	p := &Pin{
		ID:        uuid.NewString(),
		Image:     img,
		Size:      size,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.pins[p.ID] = p
	m.order = append(m.order, p.ID)
	n := len(m.pins)
	m.mu.Unlock()

	log.Printf("pin: created %s %dx%d on %dx%d screen (%d live)", p.ID, size.X, size.Y, at.Screen.X, at.Screen.Y, n)
	m.publish(messages.PinCreated{ID: p.ID})
	return *p, nil
}

// Close removes exactly one pin. It reports whether the id was live.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	_, ok := m.pins[id]
	if ok {
		delete(m.pins, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	n := len(m.pins)
	m.mu.Unlock()

	if !ok {
		return false
	}
	log.Printf("pin: closed %s (%d live)", id, n)
	m.publish(messages.PinClosed{ID: id})
	return true
}

// Get returns a live pin.
func (m *Manager) Get(id string) (Pin, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[id]
	if !ok {
		return Pin{}, false
	}
	return *p, true
}

// List returns the live pins in creation order.
func (m *Manager) List() []Pin {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Pin, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.pins[id])
	}
	return out
}

// Len returns the number of live pins.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pins)
}

// DisplaySize scales img down, preserving aspect ratio, to fit within
// fraction of the screen, then floors each axis at min.
func DisplaySize(img, screen image.Point, fraction float64, min int) image.Point {
	w, h := float64(img.X), float64(img.Y)
	maxW, maxH := float64(screen.X)*fraction, float64(screen.Y)*fraction
	if maxW > 0 && maxH > 0 && (w > maxW || h > maxH) {
		s := math.Min(maxW/w, maxH/h)
		w = math.Round(w * s)
		h = math.Round(h * s)
	}
	return image.Pt(maxInt(int(w), min), maxInt(int(h), min))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
