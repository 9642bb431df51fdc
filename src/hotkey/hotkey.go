package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

var ErrNoKeys = errors.New("hotkey has no usable keys")

// Binding ties a combination such as "Ctrl+Alt+A" to a callback.
type Binding struct {
	Name     string
	Combo    string
	Callback func()
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type combo struct {
	binding Binding
	keys    []keyState
}

// Matcher tracks key state for a set of bindings. It is safe for use from
// the hook goroutine and tests alike.
type Matcher struct {
	mu     sync.Mutex
	combos []combo
}

// NewMatcher compiles the bindings. Bindings whose combination cannot be
// mapped are reported in the returned error and skipped.
func NewMatcher(bindings []Binding) (*Matcher, error) {
	m := &Matcher{}
	var errs []error
	for _, b := range bindings {
		c, err := compile(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s (%q): %w", b.Name, b.Combo, err))
			continue
		}
		m.combos = append(m.combos, c)
	}
	return m, errors.Join(errs...)
}

func compile(b Binding) (combo, error) {
	c := combo{binding: b}
	for _, keyName := range parseHotkey(b.Combo) {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			log.Printf("ERROR: Cannot map key '%s' to rawcodes, hotkey may not work correctly", keyName)
			continue
		}
		c.keys = append(c.keys, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return combo{}, ErrNoKeys
	}
	return c, nil
}

// Len returns the number of usable bindings.
func (m *Matcher) Len() int {
	return len(m.combos)
}

// KeyDown records a press and returns the bindings it completed. A fired
// combination resets so holding the keys does not repeat.
func (m *Matcher) KeyDown(rawcode uint16) []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fired []Binding
	for ci := range m.combos {
		c := &m.combos[ci]
		for i := range c.keys {
			if c.keys[i].matches(rawcode) {
				c.keys[i].pressed = true
			}
		}
		if c.allPressed() {
			for i := range c.keys {
				c.keys[i].pressed = false
			}
			fired = append(fired, c.binding)
		}
	}
	return fired
}

// KeyUp records a release.
func (m *Matcher) KeyUp(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ci := range m.combos {
		keys := m.combos[ci].keys
		for i := range keys {
			if keys[i].matches(rawcode) {
				keys[i].pressed = false
			}
		}
	}
}

func (k keyState) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

func (c *combo) allPressed() bool {
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	return true
}

// Listen registers the bindings with the global keyboard hook. Callbacks run
// on the hook goroutine and should only post to the event loop.
func Listen(bindings []Binding) error {
	m, err := NewMatcher(bindings)
	if err != nil {
		log.Printf("Hotkey: %v", err)
	}
	if m.Len() == 0 {
		return ErrNoKeys
	}
	for _, c := range m.combos {
		log.Printf("Hotkey listener configured for %s: %s", c.binding.Name, c.binding.Combo)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		defer gohook.End()

		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				for _, b := range m.KeyDown(ev.Rawcode) {
					log.Printf("Hotkey activated: %s", b.Name)
					if b.Callback != nil {
						b.Callback()
					}
				}
			case gohook.KeyUp:
				m.KeyUp(ev.Rawcode)
			}
		}
		log.Printf("Event channel closed")
	}()
	return nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super", "meta":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

var namedKeys = map[string][]uint16{
	// Modifiers map to both left and right variants.
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"print":     {44}, // VK_SNAPSHOT
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if keyName == "win" || keyName == "super" {
		return namedKeys["cmd"]
	}

	if len(keyName) == 1 {
		switch c := keyName[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}

	// F1-F24 are VK 112-135.
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
