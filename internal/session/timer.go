package session

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arranges for f to run after d on another goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func()) Timer

// AfterFunc calls fn(d, f).
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer { return fn(d, f) }

// RealScheduler schedules with time.AfterFunc.
var RealScheduler Scheduler = SchedulerFunc(func(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
})

// deferredCheck fires a callback once after a delay unless stopped.
// It is safe for concurrent use.
//
// Invariant: onFire never starts after Stop has returned.
type deferredCheck struct {
	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// scheduleCheck starts a deferredCheck that calls onFire after d.
//
// Precondition: d > 0; onFire must not be nil.
func scheduleCheck(s Scheduler, d time.Duration, onFire func()) *deferredCheck {
	dc := &deferredCheck{}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.timer = s.AfterFunc(d, func() {
		dc.mu.Lock()
		stopped := dc.stopped
		dc.stopped = true
		dc.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
	return dc
}

// Stop prevents the callback from firing. Safe to call multiple times.
func (dc *deferredCheck) Stop() {
	if dc == nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.stopped = true
	if dc.timer != nil {
		dc.timer.Stop()
	}
}
