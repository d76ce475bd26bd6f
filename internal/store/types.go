package store

import "fmt"

// PassStatus is the outcome of a journaled pass.
type PassStatus string

const (
	// PassCompleted means the pass ran to the end.
	PassCompleted PassStatus = "completed"
	// PassSkipped means the notification was not admitted (empty or
	// self-originated).
	PassSkipped PassStatus = "skipped"
	// PassAborted means a mutation was rejected and the pass stopped.
	// Mutations applied before the rejection stay journaled.
	PassAborted PassStatus = "aborted"
)

// Valid reports whether s is a known status.
func (s PassStatus) Valid() bool {
	switch s {
	case PassCompleted, PassSkipped, PassAborted:
		return true
	}
	return false
}

// Pass is one journaled pass.
type Pass struct {
	ID         string
	SequenceID string
	Seq        int64
	Status     PassStatus
	// Error is the pass error message, empty unless aborted.
	Error         string
	MutationCount int
}

// Mutation is one editor mutation applied during a pass.
type Mutation struct {
	PassID string
	// Ord is the position of the mutation within its pass, from 0.
	Ord         int
	Kind        string
	Target      string
	Fingerprint string
	Origins     []string
}

func (p Pass) validate() error {
	if p.ID == "" {
		return fmt.Errorf("pass id is empty")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid pass status %q", p.Status)
	}
	if p.MutationCount < 0 {
		return fmt.Errorf("negative mutation count %d", p.MutationCount)
	}
	return nil
}
