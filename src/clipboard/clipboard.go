package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	// ErrUnavailable means the system clipboard could not be initialized.
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrNoImage means the clipboard holds no image.
	ErrNoImage = errors.New("clipboard holds no image")
)

// Service is the clipboard as seen by the rest of the program.
type Service interface {
	WriteImage(png []byte) error
	ReadImage() ([]byte, error)
	WriteText(text string) error
}

var (
	initOnce sync.Once
	initErr  error
	writeMu  sync.Mutex
)

// Init initializes the system clipboard once.
func Init() error {
	initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	})
	return initErr
}

// System is the Service backed by the OS clipboard.
type System struct{}

// WriteImage places PNG bytes in the image slot.
func (System) WriteImage(png []byte) error {
	if err := Init(); err != nil {
		return err
	}
	if len(png) == 0 {
		return errors.New("empty image")
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

// ReadImage returns the PNG currently in the image slot.
func (System) ReadImage() ([]byte, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	data := clipboard.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

// WriteText performs a mutex-guarded text write.
func (System) WriteText(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Write is shorthand for System{}.WriteText.
func Write(text string) error {
	return System{}.WriteText(text)
}
