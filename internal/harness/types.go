package harness

import (
	"github.com/roach88/modset/internal/metrics"
	"github.com/roach88/modset/internal/modifier"
)

// TraceEvent is the serialisable form of one observer event.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Pass    string `json:"pass,omitempty"`
	Node    string `json:"node,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Trigger string `json:"trigger,omitempty"`
	// Available is set only for availability and latch events.
	Available *bool  `json:"available,omitempty"`
	Error     string `json:"error,omitempty"`
}

func traceEventOf(e modifier.Event) TraceEvent {
	te := TraceEvent{
		Seq:     e.Seq,
		Type:    string(e.Type),
		Pass:    e.PassID,
		Node:    string(e.Node),
		Kind:    e.Kind,
		Trigger: e.Trigger,
	}
	if e.Type == modifier.EventAvailability || e.Type == modifier.EventLatch {
		v := e.Available
		te.Available = &v
	}
	if e.Err != nil {
		te.Error = e.Err.Error()
	}
	return te
}

// SuspendCounts records calls to the suspend waiter.
type SuspendCounts struct {
	Begins int `json:"begins"`
	Ends   int `json:"ends"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every observer event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Available maps each registered node to its available children.
	Available map[string][]string `json:"available"`

	// Passes is the registry's pass counter at the end of the run.
	Passes int `json:"passes"`

	Suspend SuspendCounts    `json:"suspend"`
	Metrics []metrics.Sample `json:"metrics,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Available: make(map[string][]string),
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Observe implements modifier.Observer.
func (r *Result) Observe(e modifier.Event) {
	r.Trace = append(r.Trace, traceEventOf(e))
}
