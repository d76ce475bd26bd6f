package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceMutation is one journaled mutation with the number of journaled
// mutations sharing its fingerprint.
type TraceMutation struct {
	Ord         int      `json:"ord"`
	Kind        string   `json:"kind"`
	Target      string   `json:"target"`
	Fingerprint string   `json:"fingerprint"`
	Origins     []string `json:"origins"`
	Repeats     int      `json:"repeats"`
}

// TracePass is a journaled pass, with its mutations when a single pass
// is traced.
type TracePass struct {
	ID            string          `json:"id"`
	SequenceID    string          `json:"sequence_id"`
	Seq           int64           `json:"seq"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	MutationCount int             `json:"mutation_count"`
	Mutations     []TraceMutation `json:"mutations,omitempty"`
}

// TraceStats summarizes the journal.
type TraceStats struct {
	Passes    int `json:"passes"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Aborted   int `json:"aborted"`
	Mutations int `json:"mutations"`
}

// TraceResult holds the trace output.
type TraceResult struct {
	Passes []TracePass `json:"passes"`
	Stats  TraceStats  `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [pass-id]",
		Short: "Inspect the pass journal",
		Long: `Inspect the pass journal.

Without a pass id, lists every journaled pass in seq order with summary
statistics. With a pass id, shows that pass and the mutations it applied.
Each mutation reports how many journaled mutations share its fingerprint;
the same replacement repeated across passes points at passes that keep
rewriting the same content.

Examples:
  varsync trace --db ./journal.db
  varsync trace --db ./journal.db 0192f4d2-6b1c-7c3e-9a55-2f1f3c7d8e90
  varsync trace --db ./journal.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			passID := ""
			if len(args) == 1 {
				passID = args[0]
			}
			return runTrace(opts, passID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, passID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()
	slog.Debug("journal opened", "path", opts.Database)

	var passes []store.Pass
	if passID != "" {
		p, err := st.ReadPass(ctx, passID)
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("pass not found: %s", passID)
			if opts.Format == "json" {
				_ = newFormatter(cmd, opts.RootOptions).Error(ErrCodeNotFound, msg)
			}
			return NewExitError(ExitCommandError, msg)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read pass", err)
		}
		passes = []store.Pass{p}
	} else {
		passes, err = st.ReadPasses(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read passes", err)
		}
	}

	result := TraceResult{Passes: make([]TracePass, 0, len(passes))}
	for _, p := range passes {
		tp := TracePass{
			ID:            p.ID,
			SequenceID:    p.SequenceID,
			Seq:           p.Seq,
			Status:        string(p.Status),
			Error:         p.Error,
			MutationCount: p.MutationCount,
		}
		if passID != "" {
			tp.Mutations, err = traceMutations(ctx, st, p.ID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read mutations", err)
			}
		}
		result.Passes = append(result.Passes, tp)
		result.Stats.add(p)
	}

	f := newFormatter(cmd, opts.RootOptions)
	if opts.Format == "json" {
		return f.Success(result)
	}
	outputTraceText(cmd, result)
	return nil
}

func traceMutations(ctx context.Context, st *store.Store, passID string) ([]TraceMutation, error) {
	muts, err := st.ReadMutations(ctx, passID)
	if err != nil {
		return nil, err
	}
	out := make([]TraceMutation, 0, len(muts))
	for _, m := range muts {
		repeats, err := st.CountMutationsByFingerprint(ctx, m.Fingerprint)
		if err != nil {
			return nil, err
		}
		out = append(out, TraceMutation{
			Ord:         m.Ord,
			Kind:        m.Kind,
			Target:      m.Target,
			Fingerprint: m.Fingerprint,
			Origins:     m.Origins,
			Repeats:     repeats,
		})
	}
	return out, nil
}

func (s *TraceStats) add(p store.Pass) {
	s.Passes++
	s.Mutations += p.MutationCount
	switch p.Status {
	case store.PassCompleted:
		s.Completed++
	case store.PassSkipped:
		s.Skipped++
	case store.PassAborted:
		s.Aborted++
	}
}

func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	if len(result.Passes) == 0 {
		fmt.Fprintln(w, "No passes journaled.")
		return
	}

	for _, p := range result.Passes {
		fmt.Fprintf(w, "[%d] %s %s (%d mutations) sequence=%s\n", p.Seq, p.ID, p.Status, p.MutationCount, p.SequenceID)
		if p.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", p.Error)
		}
		for _, m := range p.Mutations {
			fmt.Fprintf(w, "    %d. %-7s %s  %s  origins=%s", m.Ord, m.Kind, m.Target, shortFingerprint(m.Fingerprint), strings.Join(m.Origins, ","))
			if m.Repeats > 1 {
				fmt.Fprintf(w, "  seen %dx", m.Repeats)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Passes: %d (%d completed, %d skipped, %d aborted), %d mutations\n",
		result.Stats.Passes, result.Stats.Completed, result.Stats.Skipped, result.Stats.Aborted, result.Stats.Mutations)
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
