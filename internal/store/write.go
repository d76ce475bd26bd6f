package store

import (
	"context"
	"fmt"
)

// WritePass inserts a pass record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WritePass(ctx context.Context, p Pass) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("write pass: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passes
		(id, sequence_id, seq, status, error, mutation_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.SequenceID,
		p.Seq,
		string(p.Status),
		p.Error,
		p.MutationCount,
	)
	if err != nil {
		return fmt.Errorf("write pass %s: %w", p.ID, err)
	}
	return nil
}

// WriteMutation inserts a mutation record.
// Uses ON CONFLICT(pass_id, ord) DO NOTHING for idempotency.
//
// Note: The pass referenced by PassID must exist (foreign key constraint).
func (s *Store) WriteMutation(ctx context.Context, m Mutation) error {
	if m.Ord < 0 {
		return fmt.Errorf("write mutation: negative ord %d", m.Ord)
	}
	originsJSON, err := marshalOrigins(m.Origins)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mutations
		(pass_id, ord, kind, target, fingerprint, origins)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pass_id, ord) DO NOTHING
	`,
		m.PassID,
		m.Ord,
		m.Kind,
		m.Target,
		m.Fingerprint,
		originsJSON,
	)
	if err != nil {
		return fmt.Errorf("write mutation %s/%d: %w", m.PassID, m.Ord, err)
	}
	return nil
}
