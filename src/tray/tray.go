package tray

import (
	"context"
	"fmt"
	"log"

	"github.com/getlantern/systray"

	"snapnote/src/messages"
)

const title = "SnapNote"

// Actions are invoked from menu clicks. They run on the tray goroutine and
// should only post to the event loop.
type Actions struct {
	Capture      func()
	PinClipboard func()
	Quit         func()
}

// Run blocks running the tray event loop.
func Run(actions Actions) {
	systray.Run(func() { onReady(actions) }, onExit)
}

// Quit removes the tray icon.
func Quit() {
	systray.Quit()
}

func onReady(actions Actions) {
	if icon := Icon(); len(icon) > 0 {
		systray.SetIcon(icon)
	}
	systray.SetTitle(title)
	systray.SetTooltip(Tooltip(0))

	mCapture := systray.AddMenuItem("Capture", "Capture a screen region")
	mPin := systray.AddMenuItem("Pin clipboard", "Pin the clipboard image")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit SnapNote")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				invoke("capture", actions.Capture)
			case <-mPin.ClickedCh:
				invoke("pin clipboard", actions.PinClipboard)
			case <-mQuit.ClickedCh:
				invoke("quit", actions.Quit)
				return
			}
		}
	}()
}

func onExit() {
	log.Printf("Tray: exited")
}

func invoke(name string, fn func()) {
	log.Printf("Tray: %s clicked", name)
	if fn != nil {
		fn()
	}
}

// Tooltip returns the tray tooltip for the given number of open pins.
func Tooltip(pins int) string {
	switch pins {
	case 0:
		return title
	case 1:
		return title + " - 1 pin"
	default:
		return fmt.Sprintf("%s - %d pins", title, pins)
	}
}

// Watch follows pin lifecycle notifications and reports tooltip changes
// until ctx is done or ch closes.
func Watch(ctx context.Context, ch <-chan messages.MessageEnvelope, setTooltip func(string)) {
	pins := 0
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			switch env.Message.(type) {
			case messages.PinCreated:
				pins++
			case messages.PinClosed:
				if pins > 0 {
					pins--
				}
			default:
				continue
			}
			setTooltip(Tooltip(pins))
		}
	}
}

// SetTooltip updates the live tray tooltip.
func SetTooltip(s string) {
	systray.SetTooltip(s)
}
