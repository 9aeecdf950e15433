package tasks

import (
	"fmt"
	"sync"

	"github.com/desertthunder/songsim/internal/shared"
)

// failureAggregator collects strategy errors for one request.
//
// Errors never leave a strategy on their own; they only surface when every category ended up empty.
type failureAggregator struct {
	mu       sync.Mutex
	last     error
	failures map[string]error
}

func newFailureAggregator() *failureAggregator {
	return &failureAggregator{failures: make(map[string]error)}
}

// record stores err as the most recent failure of strategy. Nil errors are ignored.
func (f *failureAggregator) record(strategy string, err error) {
	if err == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[strategy] = err
	f.last = err
}

// failed returns the recorded failure for strategy, if any.
func (f *failureAggregator) failed(strategy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[strategy]
}

// escalate returns [shared.ErrAllStrategiesFailed] wrapping the last recorded cause when accepted is zero
// and something failed. A run with no tracks and no errors is a valid empty result.
func (f *failureAggregator) escalate(accepted int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if accepted > 0 || f.last == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", shared.ErrAllStrategiesFailed, f.last)
}
