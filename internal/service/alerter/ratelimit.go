package alerter

import (
	"sync"
	"time"
)

// Ledger admits or rejects user-facing alert attempts. Implementations
// are injectable so tests can reset and inspect them without module-level
// singletons.
type Ledger interface {
	// Admit records an attempt at the given instant and reports whether
	// a notification may be shown.
	Admit(now time.Time) bool
	// Size reports how many admissions are currently inside the window.
	Size(now time.Time) int
	// Reset clears the ledger.
	Reset()
}

// slidingWindow is a small ring of admission timestamps. Entries older
// than the window are evicted lazily on each check. In-memory only: the
// window is minutes, so losing it on restart is acceptable.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	stamps []time.Time
}

// NewSlidingWindow returns a ledger admitting at most limit notifications
// per trailing window.
func NewSlidingWindow(window time.Duration, limit int) Ledger {
	return &slidingWindow{window: window, limit: limit}
}

func (w *slidingWindow) Admit(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (w *slidingWindow) Size(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	return len(w.stamps)
}

func (w *slidingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = nil
}

func (w *slidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}
