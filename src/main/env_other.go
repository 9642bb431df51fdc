//go:build !windows

package main

import (
	"log"

	"snapnote/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	n := screenshot.NumDisplays()
	log.Printf("MONITOR: Detected %d displays", n)
	for i := 0; i < n; i++ {
		if b, err := screenshot.GetDisplayBounds(i); err == nil {
			log.Printf("MONITOR: Display %d - %v", i, b)
		}
	}
}
