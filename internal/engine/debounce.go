package engine

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one trailing-edge execution
// per key.
//
// Each Trigger replaces the stored argument and restarts the quiet window
// for its key (last call wins). When the window closes without another
// trigger, fn runs exactly once on the engine loop with the most recent
// argument. Keys are independent: triggers for different keys never
// collapse into each other.
//
// There is no cancellation. A scheduled execution can only be pushed back
// by another Trigger, or dropped wholesale by Stop during teardown.
//
// Thread-safety: Trigger is safe from any goroutine; fn always runs on
// the engine loop.
type Debouncer[K comparable, V any] struct {
	name   string
	engine *Engine
	window time.Duration
	fn     func(ctx context.Context, key K, v V) error

	mu      sync.Mutex
	pending map[K]*debounceEntry[V]
	stopped bool
}

type debounceEntry[V any] struct {
	gen   uint64
	value V
	timer Timer
}

// NewDebouncer creates a debouncer that runs fn on e after window of
// quiet per key. name labels the scheduled tasks in logs.
func NewDebouncer[K comparable, V any](e *Engine, name string, window time.Duration, fn func(ctx context.Context, key K, v V) error) *Debouncer[K, V] {
	return &Debouncer[K, V]{
		name:    name,
		engine:  e,
		window:  window,
		fn:      fn,
		pending: make(map[K]*debounceEntry[V]),
	}
}

// Trigger schedules fn(key, v) after the quiet window, replacing any
// execution already pending for key. Returns true if the trigger was
// coalesced into a pending execution.
func (d *Debouncer[K, V]) Trigger(key K, v V) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	entry, coalesced := d.pending[key]
	if coalesced {
		// A stale task may already sit in the queue if the timer fired;
		// bumping gen turns it into a no-op.
		entry.timer.Stop()
		entry.gen++
		entry.value = v
	} else {
		entry = &debounceEntry[V]{value: v}
		d.pending[key] = entry
	}

	gen := entry.gen
	entry.timer = d.engine.AfterFunc(d.window, Task{
		Name: d.name,
		Run: func(ctx context.Context) error {
			return d.fire(ctx, key, gen)
		},
	})

	return coalesced
}

// Pending returns the number of keys with a scheduled execution.
func (d *Debouncer[K, V]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// IsPending reports whether an execution is scheduled for key.
func (d *Debouncer[K, V]) IsPending(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop drops every pending execution and ignores future triggers.
func (d *Debouncer[K, V]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer[K, V]) fire(ctx context.Context, key K, gen uint64) error {
	d.mu.Lock()
	entry, ok := d.pending[key]
	if !ok || entry.gen != gen {
		d.mu.Unlock()
		return nil
	}
	delete(d.pending, key)
	v := entry.value
	d.mu.Unlock()

	return d.fn(ctx, key, v)
}
