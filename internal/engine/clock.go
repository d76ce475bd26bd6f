package engine

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Clock stamps passes with the seq numbers that order the journal. Seqs
// start after the last journaled pass, so a restarted process appends
// rather than reusing numbers.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first pass gets seq 1.
func NewClock() *Clock {
	return &Clock{}
}

// lastSeqReader is the part of the journal a clock resumes from.
type lastSeqReader interface {
	LastSeq(ctx context.Context) (int64, error)
}

// ResumeClock returns a clock continuing after the highest seq in journal.
func ResumeClock(ctx context.Context, journal lastSeqReader) (*Clock, error) {
	last, err := journal.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	c := &Clock{}
	c.seq.Store(last)
	return c, nil
}

// Next stamps one pass.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Last returns the seq of the most recently stamped pass, 0 if none.
func (c *Clock) Last() int64 {
	return c.seq.Load()
}
