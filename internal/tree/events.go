package tree

// Event names a notification emitted on a node.
type Event string

const (
	// EventAvailableChange fires when a node's availability flips.
	EventAvailableChange Event = "change:_isAvailable"

	// EventInteractionCompleteChange fires when a node's interaction
	// completion flips.
	EventInteractionCompleteChange Event = "change:_isInteractionComplete"

	// EventConfigChange fires when a node's config document for a kind is
	// replaced. The handler receives the kind via Payload.
	EventConfigChange Event = "change:config"

	// EventChildrenReady fires once child attachment is finished.
	EventChildrenReady Event = "children:ready"

	// EventRefresh requests a cascade for the node's modifier sets.
	EventRefresh Event = "modifier:refresh"

	// EventModified signals a config-relevant change on the node.
	EventModified Event = "modifier:modified"

	// EventReset requests the node's children be reset and recomputed.
	EventReset Event = "reset"
)

// Notification is delivered to handlers.
type Notification struct {
	Event   Event
	Node    *Node
	Payload string
}

// Handler receives notifications.
type Handler func(n Notification)

// Subscription identifies one attached handler. The zero value is not a
// valid subscription.
type Subscription struct {
	id    uint64
	node  ID
	event Event
}

// Valid reports whether the subscription was returned by On.
func (s Subscription) Valid() bool {
	return s.id != 0
}

type subscriber struct {
	id      uint64
	handler Handler
}

// On attaches h to event on the node with the given id.
// Handlers run in attachment order. Returns the zero Subscription if the
// node does not exist.
func (t *Tree) On(id ID, event Event, h Handler) Subscription {
	if _, ok := t.nodes[id]; !ok {
		return Subscription{}
	}
	t.nextSub++
	key := subKey{node: id, event: event}
	t.subs[key] = append(t.subs[key], subscriber{id: t.nextSub, handler: h})
	return Subscription{id: t.nextSub, node: id, event: event}
}

// Once attaches h so that it runs at most one time.
func (t *Tree) Once(id ID, event Event, h Handler) Subscription {
	var sub Subscription
	sub = t.On(id, event, func(n Notification) {
		t.Off(sub)
		h(n)
	})
	return sub
}

// Off detaches a subscription. Detaching twice is a no-op.
func (t *Tree) Off(sub Subscription) {
	key := subKey{node: sub.node, event: sub.event}
	list := t.subs[key]
	for i, s := range list {
		if s.id == sub.id {
			t.subs[key] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of handlers attached to event on id.
func (t *Tree) Listeners(id ID, event Event) int {
	return len(t.subs[subKey{node: id, event: event}])
}

// Trigger emits a custom event on the node.
func (n *Node) Trigger(event Event) {
	n.tree.emit(n, event, "")
}

func (t *Tree) emit(n *Node, event Event, payload string) {
	list := t.subs[subKey{node: n.id, event: event}]
	if len(list) == 0 {
		return
	}
	// Handlers may attach or detach while we iterate.
	snapshot := make([]subscriber, len(list))
	copy(snapshot, list)
	for _, s := range snapshot {
		if !t.attached(n.id, event, s.id) {
			continue
		}
		s.handler(Notification{Event: event, Node: n, Payload: payload})
	}
}

func (t *Tree) attached(id ID, event Event, subID uint64) bool {
	for _, s := range t.subs[subKey{node: id, event: event}] {
		if s.id == subID {
			return true
		}
	}
	return false
}

type subKey struct {
	node  ID
	event Event
}
