package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/modset/internal/course"
	"github.com/roach88/modset/internal/engine"
	"github.com/roach88/modset/internal/metrics"
	"github.com/roach88/modset/internal/modifier"
	"github.com/roach88/modset/internal/rules"
	"github.com/roach88/modset/internal/store"
	"github.com/roach88/modset/internal/tree"
)

// Epoch is the virtual start time of every run.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var triggerEvents = map[string]tree.Event{
	"refresh":  tree.EventRefresh,
	"modified": tree.EventModified,
	"reset":    tree.EventReset,
}

// countingWaiter implements modifier.Waiter.
type countingWaiter struct {
	counts *SuspendCounts
}

func (w countingWaiter) Begin() { w.counts.Begins++ }
func (w countingWaiter) End()   { w.counts.Ends++ }

// Harness holds the live objects of one run.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	time     *engine.ManualTime
	registry *modifier.Registry
	built    *course.Built
	gatherer *prometheus.Registry
	logger   *slog.Logger
	result   *Result
}

// Run executes a scenario and returns the result. A nil logger discards
// logs.
//
// Each run uses a fresh in-memory database, a manual clock and
// sequential pass ids, so two runs of one scenario yield the same trace.
func Run(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c, err := loadCourse(scenario)
	if err != nil {
		return nil, err
	}
	catalog := rules.Default(c.Seed)
	if errs := course.Validate(c, catalog); len(errs) > 0 {
		return nil, fmt.Errorf("invalid course: %w", errs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	gatherer := prometheus.NewRegistry()
	m, err := metrics.New(gatherer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	mt := engine.NewManualTime(Epoch)
	eng := engine.New(
		engine.WithTimeSource(mt),
		engine.WithLogger(logger),
	)

	result := NewResult()
	opts := []modifier.Option{
		modifier.WithStore(st),
		modifier.WithWaiter(countingWaiter{counts: &result.Suspend}),
		modifier.WithLogger(logger),
		modifier.WithObserver(result),
		modifier.WithMetrics(m),
		modifier.WithPassIDGenerator(engine.NewSequentialGenerator("")),
	}
	if scenario.Window != "" {
		window, err := time.ParseDuration(scenario.Window)
		if err != nil {
			return nil, fmt.Errorf("window: %w", err)
		}
		opts = append(opts, modifier.WithWindow(window))
	}
	reg := modifier.NewRegistry(eng, opts...)
	defer reg.Close()

	built, err := course.Build(c, reg, catalog)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		engine:   eng,
		time:     mt,
		registry: reg,
		built:    built,
		gatherer: gatherer,
		logger:   logger,
		result:   result,
	}

	for i, step := range scenario.Steps {
		if err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		logger.Debug("scenario step applied", "step", i, "action", step.Action, "node", step.Node)
	}

	h.collect()
	if result.Metrics, err = metrics.Snapshot(gatherer); err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	actx := &AssertionContext{Store: st, Tree: built.Tree, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"passes", result.Passes,
		"events", len(result.Trace),
	)
	return result, nil
}

func loadCourse(s *Scenario) (*course.Course, error) {
	if s.Inline != nil {
		return s.Inline, nil
	}
	c, err := course.Load(s.Course)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Harness) node(id string) (*tree.Node, error) {
	n, ok := h.built.Tree.Node(tree.ID(id))
	if !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	return n, nil
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	switch step.Action {
	case StepStart:
		h.registry.Start(ctx)
	case StepStorageReady:
		h.registry.StorageReady(ctx)
	case StepSettle:
		return h.engine.Settle(ctx, 0)
	case StepAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.time.Advance(d)
		h.engine.RunPending(ctx)
	case StepPutState:
		return h.putState(ctx, step)
	default:
		n, err := h.node(step.Node)
		if err != nil {
			return err
		}
		switch step.Action {
		case StepSetAvailable:
			n.SetAvailable(*step.Value)
		case StepSetComplete:
			n.SetInteractionComplete(*step.Value)
		case StepSetConfig:
			n.SetConfig(step.Kind, step.Config)
		case StepTrigger:
			n.Trigger(triggerEvents[step.Event])
		default:
			return fmt.Errorf("unknown action %q", step.Action)
		}
	}
	return nil
}

func (h *Harness) putState(ctx context.Context, step Step) error {
	ids := make([]tree.TrackingID, len(step.IDs))
	for i, id := range step.IDs {
		ids[i] = tree.TrackingID(id)
	}
	token, err := h.store.Serialize(ids)
	if err != nil {
		return err
	}
	record, err := h.store.Get(ctx, step.Namespace)
	if err != nil {
		return err
	}
	record[step.Node] = token
	return h.store.Set(ctx, step.Namespace, record)
}

// collect copies end-of-run state into the result.
func (h *Harness) collect() {
	h.result.Passes = h.registry.Passes()
	for _, n := range h.registry.Nodes() {
		ids := []string{}
		for _, c := range n.AvailableChildren() {
			ids = append(ids, string(c.ID()))
		}
		h.result.Available[string(n.ID())] = ids
	}
}
