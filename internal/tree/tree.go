package tree

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrDuplicateID is returned when adding a node whose id is taken.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrUnknownNode is returned when an id does not resolve.
	ErrUnknownNode = errors.New("unknown node")

	// ErrRootExists is returned when adding a second root.
	ErrRootExists = errors.New("tree already has a root")

	// ErrChildrenClosed is returned when attaching a child to a node
	// whose children were already finalised.
	ErrChildrenClosed = errors.New("children already attached")

	// ErrInvalidTrackingID is returned for a tracking id that is not
	// valid UTF-8.
	ErrInvalidTrackingID = errors.New("tracking id is not valid UTF-8")
)

// NodeSpec describes a node to add.
type NodeSpec struct {
	ID         ID
	TrackingID TrackingID
	Tags       []string
	// Unavailable starts the node unavailable. Nodes default to available.
	Unavailable bool
}

// Tree owns a set of nodes and their subscriptions.
type Tree struct {
	nodes   map[ID]*Node
	root    *Node
	subs    map[subKey][]subscriber
	nextSub uint64
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{
		nodes: make(map[ID]*Node),
		subs:  make(map[subKey][]subscriber),
	}
}

// AddNode creates a node under parent. An empty parent creates the root.
//
// Children may be added to a parent until EndChildren is called for it;
// a parent that never had BeginChildren called accepts children freely.
//
// The tracking id is stored NFC-normalised, so ids that differ only in
// Unicode composition identify the same node.
func (t *Tree) AddNode(parent ID, spec NodeSpec) (*Node, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("add node: empty id")
	}
	if !utf8.ValidString(string(spec.TrackingID)) {
		return nil, fmt.Errorf("add node %q: %w", spec.ID, ErrInvalidTrackingID)
	}
	if _, ok := t.nodes[spec.ID]; ok {
		return nil, fmt.Errorf("add node %q: %w", spec.ID, ErrDuplicateID)
	}

	n := &Node{
		tree:       t,
		id:         spec.ID,
		trackingID: TrackingID(norm.NFC.String(string(spec.TrackingID))),
		available:  !spec.Unavailable,
		tags:       append([]string(nil), spec.Tags...),
	}

	if parent == "" {
		if t.root != nil {
			return nil, fmt.Errorf("add node %q: %w", spec.ID, ErrRootExists)
		}
		t.root = n
	} else {
		p, ok := t.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("add node %q: parent %q: %w", spec.ID, parent, ErrUnknownNode)
		}
		if p.childrenFinal {
			return nil, fmt.Errorf("add node %q to %q: %w", spec.ID, parent, ErrChildrenClosed)
		}
		n.parent = p
		p.children = append(p.children, n)
	}

	t.nodes[n.id] = n
	return n, nil
}

// BeginChildren marks id as awaiting children.
func (t *Tree) BeginChildren(id ID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("begin children %q: %w", id, ErrUnknownNode)
	}
	n.requireCompletionOf = AwaitingChildren
	n.childrenFinal = false
	return nil
}

// EndChildren finalises child attachment for id and fires
// EventChildrenReady.
func (t *Tree) EndChildren(id ID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("end children %q: %w", id, ErrUnknownNode)
	}
	n.requireCompletionOf = len(n.children)
	n.childrenFinal = true
	t.emit(n, EventChildrenReady, "")
	return nil
}

// Node looks up a node by id.
func (t *Tree) Node(id ID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Walk visits every node depth-first in child order, starting at the
// root. Returning false from fn prunes that node's subtree.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t.root == nil {
		return
	}
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// FindByTrackingID returns the first node in pool with the tracking id,
// compared after NFC normalisation.
func FindByTrackingID(pool []*Node, id TrackingID) (*Node, bool) {
	id = TrackingID(norm.NFC.String(string(id)))
	for _, n := range pool {
		if n.trackingID == id {
			return n, true
		}
	}
	return nil, false
}
