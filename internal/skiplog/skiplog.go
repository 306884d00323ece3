// Package skiplog appends one diagnostic line per skipped or failed item to
// a text file. The file is opened in append mode and never truncated, so
// entries from earlier phases of a run survive later ones.
package skiplog

import (
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
)

// Log is an append-only "resource - reason" line log.
type Log struct {
	mu sync.Mutex
	f  *os.File
}

// Open opens (or creates) the skip log at path for appending.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "skiplog: open %s", path)
	}
	return &Log{f: f}, nil
}

// Record appends one entry for the given resource locator and reason.
func (l *Log) Record(resource, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintf(l.f, "%s - %s\n", resource, reason); err != nil {
		return eris.Wrap(err, "skiplog: write entry")
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.f.Close()
}
