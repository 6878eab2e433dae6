// Package utils holds small helpers shared by main and the commands.
package utils

import (
	"io"
	"sync"
)

// DeferredWriter buffers writes until Flush is called. Every Write is kept as
// its own entry so a zerolog.ConsoleWriter can format each event on flush.
type DeferredWriter struct {
	mu      sync.Mutex
	entries [][]byte
}

// Write records a copy of p.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, append([]byte(nil), p...))
	return len(p), nil
}

// Len returns the number of buffered entries.
func (d *DeferredWriter) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Flush writes the buffered entries to w in order and empties the buffer.
// It stops at the first error.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}
