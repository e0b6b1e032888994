// Package modifier restricts which children of a content node are
// available, and keeps that restriction consistent as the tree changes.
//
// A Set binds one ordered rule to one tree node. Every Set writes
// availability through the same algorithm (SetModels): a child is
// available only if it is included, its latch allows it, and every
// ancestor is available.
//
// The Registry owns every Set, the latch side table and the reactive
// wiring. Tree events are coalesced per node by engine debouncers and
// executed as cascade passes:
//
//	suspend
//	detach child availability listeners
//	Reset() every set on the node, in order
//	Refresh() every set on the node, in order
//	re-attach listeners
//	schedule registered descendants whose ancestors changed
//	resume
//
// Availability changes made outside a pass are latched and re-enter the
// cascade for the owning node after the quiet window.
//
// Everything in this package runs on the engine loop. None of it is safe
// for concurrent use.
package modifier
