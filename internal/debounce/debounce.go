// Package debounce coalesces bursts of calls into one trailing call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recent function once the window has passed with no new calls
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// New creates a debouncer with the given window
func New(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Duration is the coalescing window
func (d *Debouncer) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

// Debounce schedules fn and drops whatever was scheduled before
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops the pending call and reports whether one was dropped
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Immediate drops the pending call and runs fn now on the caller's goroutine
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}
