// Package logger prints pipeline diagnostics to stderr when the
// --verbose flag is set. Indexing and retrieval narrate their steps
// through it; with verbose off every call is a no-op so command
// output stays clean.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose toggles diagnostic output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether diagnostics are enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects diagnostics away from os.Stderr, for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// emit writes one tagged line when verbose is on. Callers hold no
// locks; the read lock here keeps SetOutput safe mid-run.
func emit(tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, tag+" "+format+"\n", args...)
}

// Debug narrates fine-grained pipeline steps.
func Debug(format string, args ...any) { emit("[DEBUG]", format, args...) }

// Info reports notable progress, such as a refresh summary.
func Info(format string, args ...any) { emit("[INFO]", format, args...) }

// Warn reports recoverable problems, such as a skipped document.
func Warn(format string, args ...any) { emit("[WARN]", format, args...) }

// Section prints a banner separating pipeline phases.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
