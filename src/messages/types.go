package messages

import (
	"image"
)

// Message is the base interface for everything that crosses the event loop
// or the notification bus.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeTriggerCapture      = "TriggerCapture"
	TypeTriggerPinClipboard = "TriggerPinClipboard"
	TypePointerDown         = "PointerDown"
	TypePointerMove         = "PointerMove"
	TypePointerUp           = "PointerUp"
	TypeKeyPressed          = "KeyPressed"
	TypeSurfaceResized      = "SurfaceResized"
	TypeSurfaceClosed       = "SurfaceClosed"
	TypePinCloseRequested   = "PinCloseRequested"
	TypeResultAction        = "ResultAction"
	TypeCaptureStarted      = "CaptureStarted"
	TypeCaptureFinished     = "CaptureFinished"
	TypeCaptureCancelled    = "CaptureCancelled"
	TypePinCreated          = "PinCreated"
	TypePinClosed           = "PinClosed"
	TypeNoteExported        = "NoteExported"
	TypeQuit                = "Quit"
)

// Action is a finish action on a capture surface.
type Action string

const (
	ActionCopy      Action = "copy"
	ActionPin       Action = "pin"
	ActionRecognize Action = "recognize"
	ActionCancel    Action = "cancel"
)

// ResultCommand is a user action on a recognition result view.
type ResultCommand string

const (
	ResultTranslate ResultCommand = "translate"
	ResultCopy      ResultCommand = "copy"
	ResultExport    ResultCommand = "export"
	ResultClose     ResultCommand = "close"
)

// Key names delivered by the surface host.
const (
	KeyEscape = "Escape"
	KeyReturn = "Return"
	KeyEnter  = "KP_Enter"
	KeyF3     = "F3"
)

// TriggerCapture - sent by hotkey, tray or a delegating process to open a capture surface
type TriggerCapture struct {
	Source string
}

func (m TriggerCapture) Type() string { return TypeTriggerCapture }

// TriggerPinClipboard - pin whatever image is on the clipboard
type TriggerPinClipboard struct {
	Source string
}

func (m TriggerPinClipboard) Type() string { return TypeTriggerPinClipboard }

// PointerDown - primary button pressed on the capture surface, logical coordinates
type PointerDown struct {
	X, Y float64
}

func (m PointerDown) Type() string { return TypePointerDown }

// PointerMove - pointer motion on the capture surface, pressed or not
type PointerMove struct {
	X, Y float64
}

func (m PointerMove) Type() string { return TypePointerMove }

// PointerUp - primary button released
type PointerUp struct {
	X, Y float64
}

func (m PointerUp) Type() string { return TypePointerUp }

// KeyPressed - key typed while the capture surface has focus
type KeyPressed struct {
	Key string
}

func (m KeyPressed) Type() string { return TypeKeyPressed }

// SurfaceResized - the capture surface reports its logical size
type SurfaceResized struct {
	Width, Height int
}

func (m SurfaceResized) Type() string { return TypeSurfaceResized }

// SurfaceClosed - the capture surface was closed by the window system
type SurfaceClosed struct{}

func (m SurfaceClosed) Type() string { return TypeSurfaceClosed }

// PinCloseRequested - the user closed a pin window
type PinCloseRequested struct {
	ID string
}

func (m PinCloseRequested) Type() string { return TypePinCloseRequested }

// ResultAction - a button on a result view was pressed
type ResultAction struct {
	ViewID  string
	Command ResultCommand
}

func (m ResultAction) Type() string { return TypeResultAction }

// CaptureStarted - a capture surface was opened
type CaptureStarted struct {
	SessionID string
	Display   int
}

func (m CaptureStarted) Type() string { return TypeCaptureStarted }

// CaptureFinished - a finish action consumed the selection
type CaptureFinished struct {
	SessionID string
	Action    Action
	// Crop is the native-pixel rectangle taken from the frozen raster.
	Crop image.Rectangle
}

func (m CaptureFinished) Type() string { return TypeCaptureFinished }

// CaptureCancelled - the surface closed without a finish action
type CaptureCancelled struct {
	SessionID string
}

func (m CaptureCancelled) Type() string { return TypeCaptureCancelled }

// PinCreated - a pin viewer was opened
type PinCreated struct {
	ID string
}

func (m PinCreated) Type() string { return TypePinCreated }

// PinClosed - a pin viewer was destroyed and its registry entry removed
type PinClosed struct {
	ID string
}

func (m PinClosed) Type() string { return TypePinClosed }

// NoteExported - recognized text was saved to the note store
type NoteExported struct {
	NoteID string
	ViewID string
}

func (m NoteExported) Type() string { return TypeNoteExported }

// Quit - shut the resident down
type Quit struct{}

func (m Quit) Type() string { return TypeQuit }

// MessageEnvelope wraps messages with metadata for routing
type MessageEnvelope struct {
	From    string  // Source component name
	To      string  // Destination component name ("*" for broadcast)
	Message Message // The actual message
}

// Component names for routing
const (
	ProcessLoop     = "eventloop"
	ProcessDesktop  = "desktop"
	ProcessHotkey   = "hotkey"
	ProcessTray     = "tray"
	ProcessDelegate = "singleinstance"
	ProcessLog      = "log"
)
