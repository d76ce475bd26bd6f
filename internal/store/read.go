package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadPass retrieves a single pass by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadPass(ctx context.Context, id string) (Pass, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sequence_id, seq, status, error, mutation_count
		FROM passes
		WHERE id = ?
	`, id)

	p, err := scanPass(row)
	if err != nil {
		return Pass{}, fmt.Errorf("read pass %s: %w", id, err)
	}
	return p, nil
}

// ReadPasses returns every journaled pass in deterministic order:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadPasses(ctx context.Context) ([]Pass, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sequence_id, seq, status, error, mutation_count
		FROM passes
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []Pass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// ReadMutations returns the mutations of a pass ordered by ord.
//
// Returns an empty slice (not nil) if the pass applied none or does not
// exist.
func (s *Store) ReadMutations(ctx context.Context, passID string) ([]Mutation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pass_id, ord, kind, target, fingerprint, origins
		FROM mutations
		WHERE pass_id = ?
		ORDER BY ord ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	muts := []Mutation{}
	for rows.Next() {
		var (
			m           Mutation
			originsJSON string
		)
		if err := rows.Scan(&m.PassID, &m.Ord, &m.Kind, &m.Target, &m.Fingerprint, &originsJSON); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Origins, err = unmarshalOrigins(originsJSON)
		if err != nil {
			return nil, err
		}
		muts = append(muts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return muts, nil
}

// CountMutationsByFingerprint returns how many journaled mutations carry
// the given fingerprint.
func (s *Store) CountMutationsByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mutations WHERE fingerprint = ?`, fingerprint,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// A process reopening a journal continues its clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM passes`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(row scanner) (Pass, error) {
	var (
		p      Pass
		status string
	)
	if err := row.Scan(&p.ID, &p.SequenceID, &p.Seq, &status, &p.Error, &p.MutationCount); err != nil {
		if err == sql.ErrNoRows {
			return Pass{}, err
		}
		return Pass{}, fmt.Errorf("scan pass: %w", err)
	}
	p.Status = PassStatus(status)
	return p, nil
}
