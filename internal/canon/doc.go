// Package canon provides canonical JSON serialization and content
// fingerprints for varsync.
//
// Canonical JSON is used wherever bytes must be stable across runs: golden
// snapshots produced by the harness, origin lists stored in the journal and
// the inputs of markup fingerprints.
//
// The encoding is an RFC 8785 subset:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//   - strings NFC normalized
//   - no floats, no null
package canon
