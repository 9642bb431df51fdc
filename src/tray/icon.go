package tray

import (
	"bytes"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/disintegration/imaging"
)

const iconSize = 32

var (
	iconOnce  sync.Once
	iconBytes []byte
)

var (
	frameColor  = color.NRGBA{0x00, 0x78, 0xD4, 0xFF}
	cornerColor = color.NRGBA{0x4C, 0xAF, 0x50, 0xFF}
)

// Icon returns the PNG tray icon: a dashed selection frame with corner
// handles.
func Icon() []byte {
	iconOnce.Do(func() {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, iconImage(), imaging.PNG); err != nil {
			log.Printf("Tray: icon encode failed: %v", err)
			return
		}
		iconBytes = buf.Bytes()
	})
	return iconBytes
}

func iconImage() *image.NRGBA {
	img := imaging.New(iconSize, iconSize, color.NRGBA{})
	const lo, hi = 5, iconSize - 6
	for i := lo; i <= hi; i++ {
		if (i/3)%2 == 1 {
			continue
		}
		for _, p := range [][2]int{{i, lo}, {i, hi}, {lo, i}, {hi, i}} {
			img.SetNRGBA(p[0], p[1], frameColor)
			img.SetNRGBA(p[0]+1, p[1]+1, frameColor)
		}
	}
	for _, c := range [][2]int{{lo, lo}, {hi, lo}, {lo, hi}, {hi, hi}} {
		for dx := -2; dx <= 2; dx++ {
			for dy := -2; dy <= 2; dy++ {
				img.SetNRGBA(c[0]+dx, c[1]+dy, cornerColor)
			}
		}
	}
	return img
}
