package testutil

import (
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/tree"
)

// Recorder collects trace events.
type Recorder struct {
	events []modifier.Event
}

// Observe implements modifier.Observer.
func (r *Recorder) Observe(e modifier.Event) {
	r.events = append(r.events, e)
}

// Events returns every recorded event.
func (r *Recorder) Events() []modifier.Event {
	return append([]modifier.Event(nil), r.events...)
}

// Count returns how many events of type t were recorded.
func (r *Recorder) Count(t modifier.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Passes returns the triggers of every pass, in order.
func (r *Recorder) Passes() []string {
	var out []string
	for _, e := range r.events {
		if e.Type == modifier.EventPassBegin {
			out = append(out, e.Trigger)
		}
	}
	return out
}

// PassesFor returns the triggers of passes run for node.
func (r *Recorder) PassesFor(node tree.ID) []string {
	var out []string
	for _, e := range r.events {
		if e.Type == modifier.EventPassBegin && e.Node == node {
			out = append(out, e.Trigger)
		}
	}
	return out
}

// Reset forgets every event.
func (r *Recorder) Reset() {
	r.events = nil
}
