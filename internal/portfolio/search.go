package portfolio

import (
	"sync"
	"time"
)

// DefaultSearchDelay is how long a query must rest before it is executed.
const DefaultSearchDelay = 500 * time.Millisecond

// SearchDebouncer delays search execution until the user stops typing. A
// pending search is canceled, not merely ignored, when a newer query
// arrives before the delay elapses; queries shorter than the minimum only
// cancel whatever is pending.
type SearchDebouncer struct {
	delay     time.Duration
	minLength int

	mu    sync.Mutex
	timer *time.Timer
}

// NewSearchDebouncer creates a debouncer with the given delay. A
// non-positive delay falls back to DefaultSearchDelay.
func NewSearchDebouncer(delay time.Duration) *SearchDebouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &SearchDebouncer{
		delay:     delay,
		minLength: minSearchLength,
	}
}

// Trigger schedules run(query) after the delay, canceling any pending
// search first. It reports whether a search was scheduled; short queries
// cancel only.
func (d *SearchDebouncer) Trigger(query string, run func(string)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(query) < d.minLength {
		return false
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		run(query)
	})
	return true
}

// Cancel stops any pending search.
func (d *SearchDebouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
