// Package debounce coalesces bursts of calls into one delayed call, and
// builds the search-as-you-type trigger on top of it.
package debounce

import (
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the production value.
type AfterFunc func(d time.Duration, f func()) Timer

func timeAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu    sync.Mutex
	timer Timer
}

func New(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = timeAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Call cancels any pending call and schedules fn after the delay.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	var t Timer
	t = d.after(d.delay, func() {
		d.mu.Lock()
		if d.timer == t {
			d.timer = nil
		}
		d.mu.Unlock()
		fn()
	})
	d.timer = t
}

// Cancel drops the pending call, if any, and reports whether one was
// stopped before firing.
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

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
