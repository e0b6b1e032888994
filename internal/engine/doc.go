// Package engine implements the cooperative single-writer loop that every
// modifier cascade runs on.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All tree mutations and rule evaluation happen on one goroutine. Work is
// submitted as Tasks to a FIFO queue and executed one at a time, so no two
// cascade passes ever interleave.
//
// Task Processing Flow:
// 1. Callers or timers enqueue Tasks (Engine.Enqueue, Engine.AfterFunc)
// 2. Engine.Run() (or RunPending in tests) dequeues tasks one at a time
// 3. A failing task is logged and the loop continues
//
// Timers never execute domain code directly. A timer expiry only enqueues
// a task, which makes the timer fire the single suspension point of the
// system. Debouncer builds trailing-edge coalescing on top of this.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Trace events and persisted rows are stamped with a monotonic seq from
// Clock.Next(). Wall-clock time only drives timers.
//
// Virtual Time:
// ManualTime lets tests and offline evaluation advance time explicitly.
// Settle() alternates between draining the queue and jumping to the next
// timer deadline until the system is quiet.
package engine
