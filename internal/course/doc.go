// Package course loads course definitions: a content tree plus the
// modifier configuration of each node.
//
// Courses are written in YAML or CUE and decode into the same Course
// struct. Validate checks structure with go-playground/validator and then
// applies tree-wide rules (unique ids, known kinds). Build turns a valid
// course into a tree.Tree, creating modifier sets while each node's
// children are still being attached so their registration is deferred
// until the children are ready.
package course
