package tree

import (
	"maps"
	"math"
	"reflect"
	"slices"
)

// ID identifies a node within a tree.
type ID string

// TrackingID is a node identity that survives availability toggles and
// reloads. It is the unit persisted for a selection.
type TrackingID string

// AwaitingChildren is the RequireCompletionOf sentinel used while a node's
// children are still being attached.
const AwaitingChildren = math.MaxInt

// Node is one unit of the content tree.
type Node struct {
	tree       *Tree
	id         ID
	trackingID TrackingID
	parent     *Node // non-owning
	children   []*Node

	available           bool
	interactionComplete bool
	requireCompletionOf int
	childrenFinal       bool // set by EndChildren
	tags                []string
	configs             map[string]map[string]any
}

// ID returns the node's id.
func (n *Node) ID() ID { return n.id }

// TrackingID returns the node's stable tracking id.
func (n *Node) TrackingID() TrackingID { return n.trackingID }

// Tree returns the owning tree.
func (n *Node) Tree() *Tree { return n.tree }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// AvailableChildren returns the currently available children in order.
func (n *Node) AvailableChildren() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if c.available {
			out = append(out, c)
		}
	}
	return out
}

// Ancestors returns the parent chain, nearest first. The node itself is
// not included.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// IsDescendantOf reports whether other is a strict ancestor of n.
func (n *Node) IsDescendantOf(other *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// AncestorsAvailable reports whether every ancestor is available. The
// node itself is not considered.
func (n *Node) AncestorsAvailable() bool {
	for p := n.parent; p != nil; p = p.parent {
		if !p.available {
			return false
		}
	}
	return true
}

// IsAvailable reports the node's availability.
func (n *Node) IsAvailable() bool { return n.available }

// SetAvailable sets availability, firing EventAvailableChange on change.
func (n *Node) SetAvailable(v bool) {
	if n.available == v {
		return
	}
	n.available = v
	n.tree.emit(n, EventAvailableChange, "")
}

// IsInteractionComplete reports the node's interaction completion.
func (n *Node) IsInteractionComplete() bool { return n.interactionComplete }

// SetInteractionComplete sets completion, firing
// EventInteractionCompleteChange on change.
func (n *Node) SetInteractionComplete(v bool) {
	if n.interactionComplete == v {
		return
	}
	n.interactionComplete = v
	n.tree.emit(n, EventInteractionCompleteChange, "")
}

// RequireCompletionOf returns the number of children required for
// completion, or AwaitingChildren while children are being attached.
func (n *Node) RequireCompletionOf() int { return n.requireCompletionOf }

// IsAwaitingChildren reports whether child attachment is still open.
func (n *Node) IsAwaitingChildren() bool {
	return n.requireCompletionOf == AwaitingChildren
}

// Tags returns the node's tags.
func (n *Node) Tags() []string { return slices.Clone(n.tags) }

// HasTags reports whether the node carries every tag given.
func (n *Node) HasTags(tags ...string) bool {
	for _, tag := range tags {
		if !slices.Contains(n.tags, tag) {
			return false
		}
	}
	return true
}

// Config returns a shallow copy of the node's config document for kind,
// or nil if none is set.
func (n *Node) Config(kind string) map[string]any {
	doc, ok := n.configs[kind]
	if !ok {
		return nil
	}
	return maps.Clone(doc)
}

// SetConfig replaces the config document for kind, firing
// EventConfigChange with the kind as payload when the document changes.
func (n *Node) SetConfig(kind string, doc map[string]any) {
	if old, ok := n.configs[kind]; ok && reflect.DeepEqual(old, doc) {
		return
	}
	if n.configs == nil {
		n.configs = make(map[string]map[string]any)
	}
	n.configs[kind] = maps.Clone(doc)
	n.tree.emit(n, EventConfigChange, kind)
}

// Kinds returns the kinds that have a config document, sorted.
func (n *Node) Kinds() []string {
	return slices.Sorted(maps.Keys(n.configs))
}
