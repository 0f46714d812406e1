// Package debounce provides a cancel-and-reschedule timer: only the most
// recent trigger fires, superseded triggers never run.
package debounce

import (
	"sync"
	"time"
)

// Debouncer invokes fn once the delay has elapsed since the last Trigger.
// Triggering again before the delay expires resets the countdown. The zero
// value is not usable; construct with New.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

// New creates a debouncer that calls fn after delay of quiet time.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn to run after the delay, cancelling any pending run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Cancel stops any pending run. Safe to call when nothing is scheduled.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
