// Package harness runs YAML scenarios against the variable manager.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	document: '<div><span id="a">x</span></div>...'
//	focus: a
//	steps:
//	  - edit: { id: a, html: "new text" }
//	  - remove: { id: b }
//	  - pass: {}
//	    changed: [a]
//	    origins: [user]
//	    expect: { status: completed, mutations: 0 }
//	assertions:
//	  - type: content
//	    id: b
//	    text: "new text"
//	  - type: state
//	    id: b
//	    state: syncing
//
// Every step is exactly one pass through engine.Process. An edit or remove
// is applied to the document first, the way a user would, and the pass
// is notified with the edited node (or the removed node's parent) unless
// changed lists other ids.
//
// # Assertion Types
//
//   - content: the text content of element id equals text
//   - state: the descriptor of instance id records state
//   - block_count: number of metadata blocks
//   - descriptor_count: number of descriptors, optionally of one intention
//   - descriptor_absent: no descriptor points at instance id
//   - mutations: journaled mutations of step (or of all steps)
//
// # Deterministic Testing
//
// Scenarios run with a deterministic logical clock, sequential pass ids
// and an in-memory journal, so a scenario produces byte-identical golden
// snapshots on every run.
package harness
