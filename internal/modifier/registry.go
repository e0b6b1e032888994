package modifier

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/modset/internal/engine"
	"github.com/roach88/modset/internal/metrics"
	"github.com/roach88/modset/internal/tree"
)

// DefaultWindow is the quiet window shared by every debounced channel.
const DefaultWindow = 50 * time.Millisecond

// Registry is the ordered collection of every active Set. It owns the
// latch table, the suspend flag and the wiring between tree events and
// cascade passes.
//
// One Registry is created per tree at startup and torn down with Close.
type Registry struct {
	engine   *engine.Engine
	store    StateStore
	waiter   Waiter
	logger   *slog.Logger
	observer Observer
	metrics  *metrics.Metrics
	passIDs  engine.PassIDGenerator
	window   time.Duration

	sets      []*Set
	originals map[tree.ID][]*tree.Node
	latch     *Latch
	wirings   map[tree.ID]*nodeWiring

	refresh *engine.Debouncer[tree.ID, refreshRequest]
	upward  *engine.Debouncer[tree.ID, *tree.Node]
	config  *engine.Debouncer[*Set, struct{}]

	suspended    bool
	started      bool
	storageReady bool
	modelsSetUp  bool
	closed       bool
	passID       string
	passes       int
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore sets the state store. Without one, persistence is skipped.
func WithStore(s StateStore) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithWaiter sets the host busy indicator. Default: NopWaiter.
func WithWaiter(w Waiter) Option {
	return func(r *Registry) {
		r.waiter = w
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithObserver sets the trace observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithPassIDGenerator sets the pass id source. Default: UUIDv7Generator.
func WithPassIDGenerator(g engine.PassIDGenerator) Option {
	return func(r *Registry) {
		r.passIDs = g
	}
}

// WithWindow sets the debounce quiet window. Default: DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(r *Registry) {
		r.window = d
	}
}

// NewRegistry creates a registry whose work runs on e.
func NewRegistry(e *engine.Engine, opts ...Option) *Registry {
	r := &Registry{
		engine:    e,
		waiter:    NopWaiter{},
		logger:    slog.Default(),
		passIDs:   engine.UUIDv7Generator{},
		window:    DefaultWindow,
		originals: make(map[tree.ID][]*tree.Node),
		latch:     NewLatch(),
		wirings:   make(map[tree.ID]*nodeWiring),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.refresh = engine.NewDebouncer(e, "modifier.refresh", r.window, r.runRefresh)
	r.upward = engine.NewDebouncer(e, "modifier.upward", r.window, r.runUpward)
	r.config = engine.NewDebouncer(e, "modifier.config", r.window,
		func(_ context.Context, s *Set, _ struct{}) error {
			s.TriggerModified()
			return nil
		})
	return r
}

// Register adds s, keeping the list sorted by order. Ties keep
// registration order. Registering the same set twice is a no-op.
//
// Sets normally register themselves once their node's children are
// ready. A set registered after Start is wired immediately.
func (r *Registry) Register(s *Set) {
	if r.closed {
		r.logger.Warn("register after close ignored", "kind", s.kind, "node", s.node.ID())
		return
	}
	if slices.Contains(r.sets, s) {
		return
	}
	r.sets = append(r.sets, s)
	slices.SortStableFunc(r.sets, func(a, b *Set) int {
		return cmp.Compare(a.order, b.order)
	})

	r.logger.Debug("set registered",
		"kind", s.kind,
		"node", s.node.ID(),
		"order", s.order,
		"sets", len(r.sets),
	)

	if r.started {
		r.wireNode(s.node)
	}
	if r.modelsSetUp {
		r.scheduleRefresh(s.node, TriggerRegister)
	}
}

// ByNodeID returns every set bound to the node, in order.
func (r *Registry) ByNodeID(id tree.ID) []*Set {
	var out []*Set
	for _, s := range r.sets {
		if s.node.ID() == id {
			out = append(out, s)
		}
	}
	return out
}

// Sets returns every registered set, in order.
func (r *Registry) Sets() []*Set {
	return slices.Clone(r.sets)
}

// Nodes returns the distinct target nodes, in order of their first set.
func (r *Registry) Nodes() []*tree.Node {
	var out []*tree.Node
	seen := make(map[*tree.Node]bool)
	for _, s := range r.sets {
		if seen[s.node] {
			continue
		}
		seen[s.node] = true
		out = append(out, s.node)
	}
	return out
}

// Latch returns the registry's latch table.
func (r *Registry) Latch() *Latch {
	return r.latch
}

// Passes returns the number of cascade passes run so far.
func (r *Registry) Passes() int {
	return r.passes
}

// Start signals that the host has finished restoring the tree. Listeners
// are wired for every registered node, and models are set up if storage
// is already ready. Calling Start again is a no-op.
func (r *Registry) Start(ctx context.Context) {
	if r.started || r.closed {
		return
	}
	r.started = true
	for _, n := range r.Nodes() {
		r.wireNode(n)
	}
	r.logger.Info("modifier listeners wired", "nodes", len(r.wirings), "sets", len(r.sets))

	if r.storageReady {
		r.setupAll(ctx)
	}
}

// StorageReady signals that the state store can be read. Models are set
// up once both Start and StorageReady have happened.
func (r *Registry) StorageReady(ctx context.Context) {
	if r.storageReady || r.closed {
		return
	}
	r.storageReady = true
	if r.started {
		r.setupAll(ctx)
	}
}

// Close detaches every listener, drops pending debounced work, lowers the
// suspend signal and forgets all sets.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.closed = true

	r.refresh.Stop()
	r.upward.Stop()
	r.config.Stop()

	for _, w := range r.wirings {
		w.detach()
	}
	for _, s := range r.sets {
		s.detach()
	}
	r.endSuspend()

	r.sets = nil
	r.wirings = make(map[tree.ID]*nodeWiring)
	r.logger.Debug("modifier registry closed")
}

// captureOriginals returns the shared original children of node. The
// first set wired for a node captures them.
func (r *Registry) captureOriginals(node *tree.Node) []*tree.Node {
	if orig, ok := r.originals[node.ID()]; ok {
		return orig
	}
	orig := node.Children()
	r.originals[node.ID()] = orig
	return orig
}

// writeAvailability commits v to m if it differs.
func (r *Registry) writeAvailability(s *Set, m *tree.Node, v bool) {
	if m.IsAvailable() == v {
		return
	}
	r.observe(Event{Type: EventAvailability, Node: m.ID(), Kind: s.kind, Available: v})
	r.metrics.AvailabilityWritten(v)
	m.SetAvailable(v)
}

// reportSetupError logs a set failure and keeps going.
func (r *Registry) reportSetupError(s *Set, err error) {
	r.logger.Error("modifier set failed",
		"kind", s.kind,
		"node", s.node.ID(),
		"pass", r.passID,
		"error", err,
	)
	r.metrics.SetupFailed(s.kind)
	r.observe(Event{Type: EventSetupError, Node: s.node.ID(), Kind: s.kind, Err: err})
}

func (r *Registry) triggerConfigChange(s *Set) {
	if r.config.Trigger(s, struct{}{}) {
		r.metrics.TriggerCoalesced("config")
	}
}
