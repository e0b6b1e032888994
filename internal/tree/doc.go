// Package tree is the hierarchical content model that modifier sets
// operate on.
//
// A Tree owns every Node (an arena keyed by ID). Each node owns its ordered
// children; the parent pointer is a non-owning back-reference used only for
// upward traversal (ancestor checks, cascades to the parent).
//
// Attribute setters fire change events synchronously, and only when the
// value actually changes. Subscriptions are explicit handles so a caller
// can detach exactly the listeners it attached.
//
// The tree is not safe for concurrent use. All mutation is expected to
// happen on the engine loop.
package tree
