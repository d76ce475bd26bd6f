package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPass creates a completed pass with minimal required fields.
func createTestPass(id string, seq int64) Pass {
	return Pass{
		ID:         id,
		SequenceID: "seq-" + id,
		Seq:        seq,
		Status:     PassCompleted,
	}
}

func createTestMutation(passID string, ord int, kind string) Mutation {
	return Mutation{
		PassID:      passID,
		Ord:         ord,
		Kind:        kind,
		Target:      "#a",
		Fingerprint: "fp-" + kind,
		Origins:     []string{"editor-plugins/template-variables-manager-card"},
	}
}
