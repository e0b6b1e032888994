// Package harness runs modifier cascade scenarios.
//
// A scenario loads a course, drives the tree through a list of steps and
// checks assertions against the final tree, the persisted state and the
// observer trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: randomise_restores
//	description: "A saved selection survives a restart"
//	course: ../courses/quiz.yaml
//	steps:
//	  - action: put_state
//	    namespace: randomise
//	    node: quiz
//	    ids: ["2"]
//	  - action: start
//	  - action: storage_ready
//	  - action: settle
//	assertions:
//	  - type: available
//	    node: quiz
//	    expect: [q2]
//
// The course may instead be given inline under "inline".
//
// # Steps
//
//   - start, storage_ready: the two readiness signals of the registry
//   - set_available, set_complete: write a node flag (value)
//   - set_config: replace a node's config document for kind
//   - trigger: emit refresh, modified or reset on a node
//   - put_state: seed the store before storage is ready
//   - advance: move virtual time by duration
//   - settle: run until no tasks or timers remain
//
// # Assertion Types
//
//   - available: the node's available children, in order
//   - save_state: the tracking ids persisted for node under namespace
//   - suspend_balanced: every suspend begin was matched by an end
//   - pass_count: passes run, optionally filtered by node and trigger
//   - trace_count: observer events of one type, optionally per node/kind
//
// # Deterministic Testing
//
// Every run gets a fresh engine on a manual clock, sequential pass ids
// and an in-memory SQLite store, so traces are identical across runs and
// can be compared against golden files.
package harness
