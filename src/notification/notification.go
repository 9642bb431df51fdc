// Package notification turns lifecycle notifications into user-facing
// status lines and shows blocking startup errors.
package notification

import (
	"context"
	"fmt"
	"log"

	"snapnote/src/messages"
)

// Describe returns the status line for a lifecycle notification, or false
// for messages that are not announced.
func Describe(m messages.Message) (string, bool) {
	switch ev := m.(type) {
	case messages.CaptureFinished:
		size := ev.Crop.Size()
		switch ev.Action {
		case messages.ActionCopy:
			return fmt.Sprintf("Copied %dx%d region to clipboard", size.X, size.Y), true
		case messages.ActionPin:
			return fmt.Sprintf("Pinned %dx%d region", size.X, size.Y), true
		case messages.ActionRecognize:
			return fmt.Sprintf("Recognizing %dx%d region", size.X, size.Y), true
		}
	case messages.CaptureCancelled:
		return "Capture cancelled", true
	case messages.PinClosed:
		return "Pin closed", true
	case messages.NoteExported:
		return "Saved note " + ev.NoteID, true
	}
	return "", false
}

// Follow reports every announced notification from ch until ctx is done or
// ch closes.
func Follow(ctx context.Context, ch <-chan messages.MessageEnvelope, show func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			if line, ok := Describe(env.Message); ok {
				show(line)
			}
		}
	}
}

// LogLine is a show func for Follow that writes to the log.
func LogLine(line string) {
	log.Printf("Notification: %s", line)
}
