// Package pendingtest provides a manually driven pending.Scheduler for tests.
package pendingtest

import (
	"sync"
	"time"

	"github.com/gobeyondidentity/keyissuer/pkg/pending"
)

// Scheduler records deferred actions and runs them only when told to.
type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

// Timer is a deferred action created by Scheduler.
type Timer struct {
	s        *Scheduler
	Duration time.Duration
	fn       func()
	stopped  bool
	fired    bool
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements pending.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) pending.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{s: s, Duration: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements pending.Timer.
func (t *Timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Stopped reports whether Stop was called before the timer fired.
func (t *Timer) Stopped() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.stopped
}

// Fire runs the action regardless of whether the timer was stopped. It models
// a timer that had already begun firing when Stop was called.
func (t *Timer) Fire() {
	t.s.mu.Lock()
	t.fired = true
	fn := t.fn
	t.s.mu.Unlock()
	fn()
}

// Timers returns every timer created so far, in creation order.
func (s *Scheduler) Timers() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Timer, len(s.timers))
	copy(out, s.timers)
	return out
}

// Last returns the most recently created timer, or nil.
func (s *Scheduler) Last() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// FireDue runs every timer that has been neither stopped nor fired.
// It returns the number of actions run.
func (s *Scheduler) FireDue() int {
	s.mu.Lock()
	var due []*Timer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}
