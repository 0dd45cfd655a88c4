package boodler

import (
	"os"

	"github.com/charmbracelet/log"
)

// defaultLogger is the package-level diagnostic sink for the engine's
// logged error paths (device write failures, adapter close failures).
// Hosts that want their own sink should call SetLogger.
var defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "boodler",
})

// SetLogger swaps the package-level diagnostic logger.
func SetLogger(l *log.Logger) {
	if l != nil {
		defaultLogger = l
	}
}
