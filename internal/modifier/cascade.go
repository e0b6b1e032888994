package modifier

import (
	"context"

	"github.com/roach88/modset/internal/tree"
)

// Pass triggers, as reported on trace events and metrics.
const (
	TriggerStorageReady = "storage_ready"
	TriggerRefresh      = "refresh"
	TriggerModified     = "modified"
	TriggerReset        = "reset"
	TriggerIncomplete   = "incomplete"
	TriggerUpward       = "upward"
	TriggerHierarchy    = "hierarchy"
	TriggerRegister     = "register"
)

type refreshRequest struct {
	node    *tree.Node
	trigger string
}

// nodeWiring holds the subscriptions the registry made for one node.
type nodeWiring struct {
	node      *tree.Node
	nodeSubs  []tree.Subscription
	childSubs []tree.Subscription
}

func (w *nodeWiring) detachChildren() {
	t := w.node.Tree()
	for _, sub := range w.childSubs {
		t.Off(sub)
	}
	w.childSubs = nil
}

func (w *nodeWiring) detach() {
	w.detachChildren()
	t := w.node.Tree()
	for _, sub := range w.nodeSubs {
		t.Off(sub)
	}
	w.nodeSubs = nil
}

// wireNode subscribes to the node's own signals and to its children's
// availability. Wiring a node twice is a no-op.
func (r *Registry) wireNode(node *tree.Node) {
	if _, ok := r.wirings[node.ID()]; ok {
		return
	}
	w := &nodeWiring{node: node}
	r.wirings[node.ID()] = w

	t := node.Tree()
	id := node.ID()
	w.nodeSubs = append(w.nodeSubs,
		t.On(id, tree.EventRefresh, func(tree.Notification) {
			r.scheduleRefresh(node, TriggerRefresh)
		}),
		t.On(id, tree.EventModified, func(tree.Notification) {
			r.scheduleRefresh(node, TriggerModified)
		}),
		t.On(id, tree.EventInteractionCompleteChange, func(n tree.Notification) {
			if n.Node.IsInteractionComplete() {
				return
			}
			r.resetNode(node, TriggerIncomplete)
		}),
		t.On(id, tree.EventReset, func(tree.Notification) {
			r.resetNode(node, TriggerReset)
		}),
	)
	r.attachChildren(w)
}

// attachChildren subscribes the latch handler and the debounced upward
// handler to every child's availability, in that order.
func (r *Registry) attachChildren(w *nodeWiring) {
	t := w.node.Tree()
	for _, c := range w.node.Children() {
		w.childSubs = append(w.childSubs,
			t.On(c.ID(), tree.EventAvailableChange, r.onChildAvailable),
			t.On(c.ID(), tree.EventAvailableChange, r.onChildAvailableDebounced),
		)
	}
}

// onChildAvailable latches an availability change committed outside a
// pass.
func (r *Registry) onChildAvailable(n tree.Notification) {
	v := n.Node.IsAvailable()
	r.latch.Set(n.Node.ID(), v)
	r.observe(Event{Type: EventLatch, Node: n.Node.ID(), Available: v})
}

// onChildAvailableDebounced queues the owning node for recomputation,
// and the registered nodes at or below the child for a hierarchy pass.
// The owning node's pass sees no change for an externally written child,
// so it would not schedule them itself.
func (r *Registry) onChildAvailableDebounced(n tree.Notification) {
	parent := n.Node.Parent()
	if parent == nil {
		return
	}
	if r.upward.Trigger(parent.ID(), parent) {
		r.metrics.TriggerCoalesced("upward")
	}
	r.scheduleDescendants([]*tree.Node{n.Node})
}

func (r *Registry) runUpward(_ context.Context, _ tree.ID, node *tree.Node) error {
	r.beginSuspend()
	r.scheduleRefresh(node, TriggerUpward)
	return nil
}

// resetNode forgets the latches of node's children and schedules a pass.
func (r *Registry) resetNode(node *tree.Node, trigger string) {
	for _, c := range node.Children() {
		if r.latch.Clear(c.ID()) {
			r.observe(Event{Type: EventLatchClear, Node: c.ID()})
		}
	}
	r.scheduleRefresh(node, trigger)
}

func (r *Registry) scheduleRefresh(node *tree.Node, trigger string) {
	if r.refresh.Trigger(node.ID(), refreshRequest{node: node, trigger: trigger}) {
		r.metrics.TriggerCoalesced("refresh")
	}
}

func (r *Registry) runRefresh(ctx context.Context, _ tree.ID, req refreshRequest) error {
	r.refreshNodeSets(ctx, req.node, req.trigger)
	return nil
}

// refreshNodeSets is one cascade pass: every set on node is reset, then
// every set is refreshed, with the node's child listeners detached so the
// pass cannot re-enter itself.
func (r *Registry) refreshNodeSets(ctx context.Context, node *tree.Node, trigger string) {
	sets := r.ByNodeID(node.ID())
	r.runPass(node, trigger, func() {
		for _, s := range sets {
			if err := s.Reset(ctx); err != nil {
				r.logger.Warn("reset state not persisted",
					"kind", s.kind,
					"node", node.ID(),
					"pass", r.passID,
					"error", err,
				)
			}
		}
		for _, s := range sets {
			if err := s.Refresh(ctx); err != nil {
				r.reportSetupError(s, err)
			}
		}
	})
}

// setupAll runs every set's rules once, node by node in set order, when
// both startup and storage are ready.
func (r *Registry) setupAll(ctx context.Context) {
	if r.modelsSetUp {
		return
	}
	r.modelsSetUp = true
	for _, node := range r.Nodes() {
		sets := r.ByNodeID(node.ID())
		r.runPass(node, TriggerStorageReady, func() {
			for _, s := range sets {
				r.observe(Event{Type: EventSetup, Node: node.ID(), Kind: s.kind})
				if err := s.setupModels(ctx); err != nil {
					r.reportSetupError(s, err)
				}
			}
		})
	}
}

// runPass brackets body with the suspend signal and the listener detach,
// then schedules registered nodes below any child whose availability
// changed so the ancestor check is re-applied there.
func (r *Registry) runPass(node *tree.Node, trigger string, body func()) {
	if r.closed {
		return
	}
	r.passes++
	r.passID = r.passIDs.Generate()
	logger := r.logger.With("pass", r.passID, "node", node.ID(), "trigger", trigger)

	r.beginSuspend()

	w := r.wirings[node.ID()]
	if w != nil {
		w.detachChildren()
	}

	before := make(map[*tree.Node]bool)
	for _, c := range node.Children() {
		before[c] = c.IsAvailable()
	}

	r.observe(Event{Type: EventPassBegin, Node: node.ID(), Trigger: trigger})
	logger.Debug("cascade pass started", "sets", len(r.ByNodeID(node.ID())))

	body()

	if w != nil {
		r.attachChildren(w)
	}

	var changed []*tree.Node
	for _, c := range node.Children() {
		if before[c] != c.IsAvailable() {
			changed = append(changed, c)
		}
	}

	r.observe(Event{Type: EventPassEnd, Node: node.ID(), Trigger: trigger})
	logger.Debug("cascade pass finished", "changed", len(changed))
	r.metrics.PassCompleted(trigger)
	r.passID = ""

	r.scheduleDescendants(changed)
	r.endSuspend()
}

// scheduleDescendants queues a hierarchy pass for every registered node
// at or below a changed child.
func (r *Registry) scheduleDescendants(changed []*tree.Node) {
	if len(changed) == 0 {
		return
	}
	for _, n := range r.Nodes() {
		for _, c := range changed {
			if n == c || n.IsDescendantOf(c) {
				r.scheduleRefresh(n, TriggerHierarchy)
				break
			}
		}
	}
}
