// Package engine schedules and journals variable synchronization passes.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Passes over one document never overlap. Run owns pass execution in a
// single goroutine; hosts hand notifications over with Enqueue from any
// goroutine.
//
// Debounced Scheduling:
//  1. Enqueue stores the notification in a one-element pending slot,
//     replacing any notification that has not started yet
//  2. Run waits for the quiescence delay, restarting the wait whenever a
//     newer notification replaces the pending one
//  3. The surviving notification is taken out of the slot and processed
//     synchronously; a pass that has started always runs to completion
//
// Processing:
// Process stamps the pass with a logical seq (Clock) and a pass id
// (UUIDv7), wraps the editor in a recording decorator, runs the
// executor, and journals the pass and the mutations it applied.
//
// ERROR HANDLING: A failed pass is logged, journaled as aborted, and the
// loop continues. Nothing is rolled back; the next pass re-derives its
// state from the document.
//
// Logical Clock:
// Journal ordering uses the seq from Clock.Next(), never wall-clock time.
package engine
