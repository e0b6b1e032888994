// Package metrics exposes Prometheus instrumentation for the modifier
// cascade.
//
// A nil *Metrics is valid and records nothing, so packages can accept an
// optional collector without guarding every call.
package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace = "modset"
	subsystem = "cascade"
)

// Metrics holds the cascade collectors.
type Metrics struct {
	passes      *prometheus.CounterVec
	coalesced   *prometheus.CounterVec
	setupErrors *prometheus.CounterVec
	writes      *prometheus.CounterVec
	suspended   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		// Labels: trigger (refresh, upward, storage_ready)
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "Cascade passes executed",
		}, []string{"trigger"}),

		// Labels: channel (refresh, upward, config)
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coalesced_triggers_total",
			Help:      "Triggers folded into an already pending debounced execution",
		}, []string{"channel"}),

		// Labels: kind
		setupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "setup_errors_total",
			Help:      "Modifier set setup failures, by kind",
		}, []string{"kind"}),

		// Labels: available (true, false)
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "availability_writes_total",
			Help:      "Availability changes committed by modifier sets",
		}, []string{"available"}),

		suspended: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspended",
			Help:      "1 while the suspend signal is raised",
		}),
	}

	for _, c := range []prometheus.Collector{m.passes, m.coalesced, m.setupErrors, m.writes, m.suspended} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// PassCompleted counts one cascade pass.
func (m *Metrics) PassCompleted(trigger string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(trigger).Inc()
}

// TriggerCoalesced counts a trigger that joined a pending execution.
func (m *Metrics) TriggerCoalesced(channel string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(channel).Inc()
}

// SetupFailed counts a setup error for kind.
func (m *Metrics) SetupFailed(kind string) {
	if m == nil {
		return
	}
	m.setupErrors.WithLabelValues(kind).Inc()
}

// AvailabilityWritten counts a committed availability change.
func (m *Metrics) AvailabilityWritten(available bool) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(fmt.Sprintf("%t", available)).Inc()
}

// SetSuspended mirrors the suspend flag.
func (m *Metrics) SetSuspended(v bool) {
	if m == nil {
		return
	}
	if v {
		m.suspended.Set(1)
	} else {
		m.suspended.Set(0)
	}
}

// Sample is one gathered metric value.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers counters and gauges from g, sorted by name then labels.
// Histograms and summaries are skipped.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			value, ok := sampleValue(mf.GetType(), metric)
			if !ok {
				continue
			}
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, Sample{Name: mf.GetName(), Labels: labels, Value: value})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return labelKey(out[i].Labels) < labelKey(out[j].Labels)
	})
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var s string
	for _, k := range keys {
		s += k + "=" + labels[k] + ","
	}
	return s
}
