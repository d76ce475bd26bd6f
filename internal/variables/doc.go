// Package variables keeps template variables consistent inside a document.
//
// A variable is one logical value, identified by an intention URI, that may
// occur several times in a document. Every occurrence (an instance) is an
// element with a document-unique id. Next to it lives a descriptor: an
// element typed ext:Variable whose property children record the intention
// URI, the id of the instance it describes (idInSnippet) and a lifecycle
// state.
//
// A pass, triggered by a change notification, runs these steps in order:
//
//  1. Reentrancy gate: notifications carrying the manager's own origin are
//     dropped. Anything the manager wrote is already synchronized.
//  2. Fetch or create the metadata block, a single non-editable container
//     at the top of the document.
//  3. Relocate descriptors found outside the block into it (copy, then
//     delete the original).
//  4. Index: one record per descriptor, instances resolved through an id
//     registry built once for the pass.
//  5. Orphan cleanup: descriptors whose instance is gone are removed.
//  6. State sync: freshly inserted (initialized) instances take the content
//     of their group's canonical instance and move to the syncing state.
//  7. Propagation: for each changed node inside an instance, every other
//     instance of the same intention is converged to that instance's
//     content.
//
// # Invariants
//
// After a completed pass:
//   - exactly one metadata block exists and holds every descriptor
//   - no descriptor references an instance that does not exist
//   - all non-initialized instances of a group are content-equal
//
// The manager keeps no state between passes. Every pass re-derives its
// records from the document, so an aborted pass is healed by the next one.
//
// # Concurrency
//
// A pass mutates the document in place without locking. Callers must run
// at most one pass at a time; internal/engine provides the single-writer
// scheduler that guarantees it.
package variables
