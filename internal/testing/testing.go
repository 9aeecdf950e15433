// package testing contains test doubles and helpers shared by the songsim packages.
package testing

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"
)

// ErrWriteFailed is returned by [FailingWriter] and by a [LimitedWriter] that ran out of writes.
var ErrWriteFailed = errors.New("write failed")

// FailingWriter rejects every write. Err overrides [ErrWriteFailed].
type FailingWriter struct {
	Err error

	mu       sync.Mutex
	attempts int
}

func (f *FailingWriter) Write([]byte) (int, error) {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()

	if f.Err != nil {
		return 0, f.Err
	}
	return 0, ErrWriteFailed
}

// Attempts returns how many writes were rejected.
func (f *FailingWriter) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// LimitedWriter forwards the first n writes to a target and fails the rest, for exercising
// error paths partway through an output.
type LimitedWriter struct {
	target    io.Writer
	remaining int
}

// NewLimitedWriter returns a writer that accepts n writes before failing.
func NewLimitedWriter(target io.Writer, n int) *LimitedWriter {
	return &LimitedWriter{target: target, remaining: n}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, ErrWriteFailed
	}
	l.remaining--
	return l.target.Write(p)
}

// AssertFileExists fails the test when path is missing.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file %s to exist", path)
	}
}

// MustReadFile returns the contents of path or stops the test.
func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(content)
}
