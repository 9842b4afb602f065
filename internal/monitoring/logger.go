// Package monitoring holds the process-wide diagnostic logger used by the
// loader, the cache and the HTTP layer.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
// Messages carry a bracketed prefix naming their subsystem, e.g. "[dataset]".
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Timed returns a func that logs how long stage took since Timed was called.
//
//	defer monitoring.Timed("summaries")()
func Timed(stage string) func() {
	start := time.Now()
	return func() {
		Logf("[timing] %s took %s", stage, time.Since(start).Round(time.Microsecond))
	}
}
