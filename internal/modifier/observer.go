package modifier

import "github.com/roach88/modset/internal/tree"

// EventType names a trace event.
type EventType string

const (
	EventPassBegin    EventType = "pass_begin"
	EventPassEnd      EventType = "pass_end"
	EventReset        EventType = "reset"
	EventRefresh      EventType = "refresh"
	EventSetup        EventType = "setup"
	EventSetupError   EventType = "setup_error"
	EventAvailability EventType = "availability"
	EventLatch        EventType = "latch"
	EventLatchClear   EventType = "latch_clear"
	EventSuspendBegin EventType = "suspend_begin"
	EventSuspendEnd   EventType = "suspend_end"
)

// Event is one step of the cascade, delivered to an Observer.
type Event struct {
	// Seq is stamped from the engine's logical clock.
	Seq    int64
	Type   EventType
	PassID string
	Node   tree.ID
	Kind   string
	// Available carries the written or latched value for availability
	// and latch events.
	Available bool
	// Trigger names what started a pass.
	Trigger string
	Err     error
}

// Observer receives trace events. Observe runs on the engine loop and
// must not block.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

// observe stamps and delivers e. The current pass id is filled in when
// the caller left it empty.
func (r *Registry) observe(e Event) {
	if r.observer == nil {
		return
	}
	e.Seq = r.engine.Clock().Next()
	if e.PassID == "" {
		e.PassID = r.passID
	}
	r.observer.Observe(e)
}
