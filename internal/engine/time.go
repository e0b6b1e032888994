package engine

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the timer from firing. Returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// TimeSource provides wall-clock time and timers to the engine.
//
// Implemented by RealTime (production) and ManualTime (tests, offline
// evaluation). Callbacks passed to AfterFunc must only enqueue work; they
// may run on an arbitrary goroutine with RealTime.
type TimeSource interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealTime is a TimeSource backed by the time package.
type RealTime struct{}

// Now returns time.Now().
func (RealTime) Now() time.Time {
	return time.Now()
}

// AfterFunc delegates to time.AfterFunc.
func (RealTime) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualTime is a virtual TimeSource that only moves when told to.
//
// Timers fire synchronously inside Advance, in deadline order (ties broken
// by creation order), on the goroutine calling Advance. This makes debounce
// windows fully deterministic in tests.
//
// Thread-safety: all methods are safe for concurrent use; callbacks run
// without the internal lock held so they may schedule new timers.
type ManualTime struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	owner *ManualTime
	id    uint64
	when  time.Time
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if _, ok := t.owner.timers[t.id]; !ok {
		return false
	}
	delete(t.owner.timers, t.id)
	return true
}

// NewManualTime creates a virtual clock positioned at start.
func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{
		now:    start,
		timers: make(map[uint64]*manualTimer),
	}
}

// Now returns the current virtual time.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once virtual time reaches now+d.
func (m *ManualTime) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t := &manualTimer{owner: m, id: m.nextID, when: m.now.Add(d), f: f}
	m.timers[t.id] = t
	return t
}

// Advance moves virtual time forward by d, firing every timer whose
// deadline is reached. Timers scheduled by callbacks during Advance fire
// too if their deadline falls inside the window. Returns the number of
// timers fired.
func (m *ManualTime) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		next := m.earliestLocked()
		if next == nil || next.when.After(target) {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		delete(m.timers, next.id)
		m.now = next.when
		m.mu.Unlock()

		next.f()
		fired++
	}
}

// AdvanceToNext jumps to the earliest pending deadline and fires every
// timer due at that instant. Returns false if no timer is pending.
func (m *ManualTime) AdvanceToNext() bool {
	deadline, ok := m.NextDeadline()
	if !ok {
		return false
	}
	m.Advance(deadline.Sub(m.Now()))
	return true
}

// NextDeadline returns the earliest pending timer deadline.
func (m *ManualTime) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.earliestLocked()
	if next == nil {
		return time.Time{}, false
	}
	return next.when, true
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *ManualTime) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *ManualTime) earliestLocked() *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if best == nil || t.when.Before(best.when) || (t.when.Equal(best.when) && t.id < best.id) {
			best = t
		}
	}
	return best
}
