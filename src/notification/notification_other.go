//go:build !windows

package notification

import (
	"fmt"
	"log"
	"os"
)

// ShowBlockingError reports a startup error on stderr and in the log.
func ShowBlockingError(title, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
	log.Printf("%s: %s", title, message)
}
