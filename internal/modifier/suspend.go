package modifier

// Waiter is the host's busy indicator. The registry raises it while a
// recomputation is pending so consumers can defer rendering.
type Waiter interface {
	Begin()
	End()
}

// NopWaiter ignores every call.
type NopWaiter struct{}

// Begin implements Waiter.
func (NopWaiter) Begin() {}

// End implements Waiter.
func (NopWaiter) End() {}

// beginSuspend raises the suspend signal. It is a single flag rather than
// a count: a second begin while raised is a no-op, and the first end
// lowers it for every cascade in flight.
func (r *Registry) beginSuspend() {
	if r.suspended {
		return
	}
	r.waiter.Begin()
	r.suspended = true
	r.metrics.SetSuspended(true)
	r.observe(Event{Type: EventSuspendBegin})
}

// endSuspend lowers the suspend signal if it is raised.
func (r *Registry) endSuspend() {
	if !r.suspended {
		return
	}
	r.waiter.End()
	r.suspended = false
	r.metrics.SetSuspended(false)
	r.observe(Event{Type: EventSuspendEnd})
}

// IsSuspended reports whether the suspend signal is raised.
func (r *Registry) IsSuspended() bool {
	return r.suspended
}
