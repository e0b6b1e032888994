// Package testutil provides deterministic fixtures for cascade tests:
// a manual-time engine, an in-memory state store, a recording waiter and
// a trace recorder.
package testutil
