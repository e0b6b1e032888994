package modifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/modset/internal/tree"
)

// DefaultOrder is the order of a set that does not ask for one.
const DefaultOrder = 1

// Rules decides which of a set's children are available. Implementations
// must route every decision through Set.SetModels.
type Rules interface {
	SetupModels(ctx context.Context, s *Set) error
}

// ConfigInitializer is implemented by rules that derive extra state from
// the set's config. InitConfig runs at wiring and on every Refresh.
type ConfigInitializer interface {
	InitConfig(s *Set) error
}

// ListenerInitializer is implemented by rules that subscribe to tree
// events of their own. SetupListeners runs once, when the set is wired.
type ListenerInitializer interface {
	SetupListeners(s *Set) error
}

// UnimplementedRules is the default Rules. SetupModels reports
// ErrSetupModelsNotImplemented without touching availability.
type UnimplementedRules struct{}

// SetupModels implements Rules.
func (UnimplementedRules) SetupModels(_ context.Context, s *Set) error {
	return s.errorf("setupModels", ErrSetupModelsNotImplemented)
}

// Options configures a new Set.
type Options struct {
	// Kind selects the rule family and the persistence namespace.
	Kind string
	// Node is the set's target. Required.
	Node *tree.Node
	// Order positions the set in the registry. Zero means the config's
	// order key, or DefaultOrder.
	Order int
	// Rules computes the available subset. Defaults to UnimplementedRules.
	Rules Rules
}

// Set is one ordered rule bound to one tree node.
type Set struct {
	reg   *Registry
	kind  string
	node  *tree.Node
	order int
	rules Rules

	config    Config
	originals []*tree.Node
	wired     bool
	subs      []tree.Subscription

	// narrowTo is the pool available when setup started. SetModels
	// intersects with it so later sets cannot undo earlier ones.
	narrowTo map[*tree.Node]bool
}

// New creates a set bound to opts.Node. If the node's children are still
// being attached, wiring (and registration) waits for EventChildrenReady.
func New(reg *Registry, opts Options) (*Set, error) {
	if reg == nil {
		return nil, fmt.Errorf("new set: nil registry")
	}
	if opts.Kind == "" {
		return nil, fmt.Errorf("new set: empty kind")
	}
	if opts.Node == nil {
		return nil, fmt.Errorf("new %s set: nil node", opts.Kind)
	}

	s := &Set{
		reg:   reg,
		kind:  opts.Kind,
		node:  opts.Node,
		order: opts.Order,
		rules: opts.Rules,
	}
	if s.rules == nil {
		s.rules = UnimplementedRules{}
	}
	s.config = Config(s.node.Config(s.kind))
	if s.order == 0 {
		s.order = s.config.Int(KeyOrder, DefaultOrder)
	}

	if s.node.IsAwaitingChildren() {
		sub := s.node.Tree().Once(s.node.ID(), tree.EventChildrenReady, func(tree.Notification) {
			s.wire()
		})
		s.subs = append(s.subs, sub)
		reg.logger.Debug("set deferred until children ready",
			"kind", s.kind,
			"node", s.node.ID(),
		)
		return s, nil
	}

	s.wire()
	return s, nil
}

// wire captures the original children, registers the set and attaches
// its own listeners.
func (s *Set) wire() {
	if s.wired || s.reg.closed {
		return
	}
	s.wired = true
	s.originals = s.reg.captureOriginals(s.node)
	s.reg.Register(s)
	s.initConfig()

	sub := s.node.Tree().On(s.node.ID(), tree.EventConfigChange, func(n tree.Notification) {
		if n.Payload != s.kind {
			return
		}
		s.reg.triggerConfigChange(s)
	})
	s.subs = append(s.subs, sub)

	if li, ok := s.rules.(ListenerInitializer); ok {
		if err := li.SetupListeners(s); err != nil {
			s.reg.reportSetupError(s, s.errorf("setupListeners", err))
		}
	}
}

func (s *Set) initConfig() {
	s.config = Config(s.node.Config(s.kind))
	if ci, ok := s.rules.(ConfigInitializer); ok {
		if err := ci.InitConfig(s); err != nil {
			s.reg.reportSetupError(s, s.errorf("initConfig", err))
		}
	}
}

// Kind returns the set's kind.
func (s *Set) Kind() string { return s.kind }

// Node returns the target node.
func (s *Set) Node() *tree.Node { return s.node }

// NodeID returns the target node's id.
func (s *Set) NodeID() tree.ID { return s.node.ID() }

// Order returns the set's execution order.
func (s *Set) Order() int { return s.order }

// Rules returns the set's rules.
func (s *Set) Rules() Rules { return s.rules }

// Config returns the config derived at the last Refresh.
func (s *Set) Config() Config { return s.config }

// IsEnabled reports the config's enabled key, false when config is absent.
func (s *Set) IsEnabled() bool { return s.config.Enabled() }

// IsWired reports whether the set has been registered.
func (s *Set) IsWired() bool { return s.wired }

// Logger returns the registry's logger annotated with the set.
func (s *Set) Logger() *slog.Logger {
	return s.reg.logger.With("kind", s.kind, "node", s.node.ID())
}

// Collection returns every child of the target, available or not.
func (s *Set) Collection() []*tree.Node {
	return s.node.Children()
}

// OriginalModels returns the children captured when the first set on this
// node was wired.
func (s *Set) OriginalModels() []*tree.Node {
	return append([]*tree.Node(nil), s.originals...)
}

// Models returns the currently available children in original order.
func (s *Set) Models() []*tree.Node {
	return s.node.AvailableChildren()
}

// SetModels makes exactly the listed children available, subject to the
// latch and the ancestor check. Every original child is written: a child
// is available iff it is listed, its latch allows it and every ancestor
// is available. During setup the list is first narrowed to the pool that
// was available when setup began.
func (s *Set) SetModels(list []*tree.Node) {
	include := make(map[*tree.Node]bool, len(list))
	for _, m := range list {
		if s.narrowTo != nil && !s.narrowTo[m] {
			continue
		}
		include[m] = true
	}
	s.applyModels(include)
}

func (s *Set) applyModels(include map[*tree.Node]bool) {
	for _, m := range s.originals {
		included := include[m]
		stillAvailable := s.reg.latch.StillAvailable(m.ID())
		inHierarchy := m.AncestorsAvailable()
		s.reg.writeAvailability(s, m, included && stillAvailable && inHierarchy)
	}
}

// SaveState returns the tracking ids of the available children, or nil
// when none are available.
func (s *Set) SaveState() []tree.TrackingID {
	models := s.Models()
	if len(models) == 0 {
		return nil
	}
	ids := make([]tree.TrackingID, len(models))
	for i, m := range models {
		ids[i] = m.TrackingID()
	}
	return ids
}

// SaveStateName returns the persistence namespace.
func (s *Set) SaveStateName() string { return s.kind }

// Reset stores the current selection under the reset marker, then
// restores the full original pool (still subject to latch and ancestors).
func (s *Set) Reset(ctx context.Context) error {
	s.reg.observe(Event{Type: EventReset, Node: s.node.ID(), Kind: s.kind})
	err := s.persistReset(ctx)
	include := make(map[*tree.Node]bool, len(s.originals))
	for _, m := range s.originals {
		include[m] = true
	}
	s.applyModels(include)
	if err != nil {
		return s.errorf("reset", err)
	}
	return nil
}

// Refresh re-derives config and runs the rules against the current pool.
func (s *Set) Refresh(ctx context.Context) error {
	s.reg.observe(Event{Type: EventRefresh, Node: s.node.ID(), Kind: s.kind})
	s.initConfig()
	return s.setupModels(ctx)
}

// setupModels runs the rules with SetModels narrowed to the current pool.
func (s *Set) setupModels(ctx context.Context) error {
	pool := s.Models()
	s.narrowTo = make(map[*tree.Node]bool, len(pool))
	for _, m := range pool {
		s.narrowTo[m] = true
	}
	defer func() { s.narrowTo = nil }()

	return s.rules.SetupModels(ctx, s)
}

// TriggerRefresh asks the registry to re-run the cascade for this node.
func (s *Set) TriggerRefresh() {
	s.node.Trigger(tree.EventRefresh)
}

// TriggerModified signals a config-relevant change on this node.
func (s *Set) TriggerModified() {
	s.node.Trigger(tree.EventModified)
}

// On attaches h to event on the set's node. The subscription is owned by
// the set and detached when the registry closes, so rules should prefer
// it over subscribing on the tree directly.
func (s *Set) On(event tree.Event, h tree.Handler) tree.Subscription {
	sub := s.node.Tree().On(s.node.ID(), event, h)
	s.subs = append(s.subs, sub)
	return sub
}

func (s *Set) detach() {
	t := s.node.Tree()
	for _, sub := range s.subs {
		t.Off(sub)
	}
	s.subs = nil
}
