package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/config"
	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/engine"
	"github.com/roach88/varsync/internal/store"
	"github.com/roach88/varsync/internal/variables"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Changed  []string // ids reported as changed
	Focus    string   // id holding the caret; defaults to the first changed id
	Out      string   // output file; stdout if empty
	Config   string   // YAML or CUE config file
	Database string   // journal path; overrides the config
}

// SyncResult is the outcome of one sync pass.
type SyncResult struct {
	PassID    string `json:"pass_id"`
	Seq       int64  `json:"seq"`
	Status    string `json:"status"`
	Mutations int    `json:"mutations"`
	Error     string `json:"error,omitempty"`
	Document  string `json:"document,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <document.html>",
		Short: "Run one pass over a document",
		Long: `Run one synchronization pass over an HTML document.

The pass consolidates variable descriptors into the metadata block,
removes descriptors of deleted instances, merges initialized instances
with their group and propagates the content of every changed instance
to the other instances of its intention.

The resulting document is written to --out, or to stdout.

Exit codes:
  0 - Pass completed
  1 - Pass aborted (the partial result is still written)
  2 - Command error (unreadable document, bad config, etc.)

Examples:
  varsync sync doc.html
  varsync sync doc.html --changed v1 --out synced.html
  varsync sync doc.html --changed v1 --db journal.db --config varsync.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Changed, "changed", nil, "id of a changed element (repeatable)")
	cmd.Flags().StringVar(&opts.Focus, "focus", "", "id of the element holding the caret")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (.yaml, .yml or .cue)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")

	return cmd
}

func runSync(ctx context.Context, opts *SyncOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	journal := cfg.Journal
	if opts.Database != "" {
		journal = opts.Database
	}

	markup, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	doc, err := dom.Parse(string(markup))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse document", err)
	}

	changed, err := resolveIDs(doc, opts.Changed)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --changed", err)
	}
	focus := opts.Focus
	if focus == "" && len(opts.Changed) > 0 {
		focus = opts.Changed[0]
	}
	if focus != "" {
		if err := doc.FocusByID(focus); err != nil {
			return WrapExitError(ExitCommandError, "invalid --focus", err)
		}
	}

	logger := slog.Default()
	if opts.Config != "" && !opts.Verbose {
		// log_level from an explicit config wins over the CLI default
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	}
	// one pass, run directly: the quiescence delay only applies to Run
	engineOpts := []engine.EngineOption{engine.WithLogger(logger)}
	if journal != "" {
		st, err := store.Open(journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()

		clock, err := engine.ResumeClock(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		slog.Debug("journal opened", "path", journal, "last_seq", clock.Last())
		engineOpts = append(engineOpts,
			engine.WithJournal(st),
			engine.WithClock(clock),
		)
	}

	manager := variables.NewManager(append(cfg.ManagerOptions(), variables.WithLogger(logger))...)
	eng := engine.New(manager, engineOpts...)

	refs := make([]variables.NodeRef, len(changed))
	for i, n := range changed {
		refs[i] = variables.NodeRef{Node: n}
	}
	out, passErr := eng.Process(ctx, variables.Notification{
		SequenceID: uuid.NewString(),
		Contexts:   []variables.ChangeContext{{Nodes: refs}},
		Editor:     doc,
		Origins:    []dom.Origin{dom.OriginUser},
	})

	rendered, err := doc.Render()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render document", err)
	}

	result := SyncResult{
		PassID:    out.PassID,
		Seq:       out.Seq,
		Status:    string(out.Status),
		Mutations: out.Mutations,
	}
	if passErr != nil {
		result.Error = passErr.Error()
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, []byte(rendered), 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write document", err)
		}
	} else if opts.Format == "json" {
		result.Document = rendered
	}

	if err := outputSync(cmd, opts, result, rendered); err != nil {
		return err
	}

	// the document is written even when the pass failed
	switch {
	case out.Status == store.PassAborted:
		return WrapExitError(ExitFailure, "pass aborted", passErr)
	case passErr != nil:
		return WrapExitError(ExitCommandError, "failed to journal pass", passErr)
	}
	return nil
}

// resolveIDs looks up every id in doc.
func resolveIDs(doc *dom.Document, ids []string) ([]*html.Node, error) {
	nodes := make([]*html.Node, 0, len(ids))
	for _, id := range ids {
		n := doc.NodeByID(id)
		if n == nil {
			return nil, fmt.Errorf("no element with id %q", id)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func outputSync(cmd *cobra.Command, opts *SyncOptions, result SyncResult, rendered string) error {
	f := newFormatter(cmd, opts.RootOptions)

	if opts.Format == "json" {
		var failure *CLIError
		if result.Status == string(store.PassAborted) {
			failure = &CLIError{Code: ErrCodePassAborted, Message: result.Error}
		}
		return f.Result(result, failure)
	}

	if opts.Out == "" {
		fmt.Fprintln(f.Out, rendered)
	}
	// the summary goes to Diag so stdout stays a pure document
	fmt.Fprintf(f.Diag, "pass %s (seq %d): %s, %d mutations\n", result.PassID, result.Seq, result.Status, result.Mutations)
	if result.Error != "" {
		fmt.Fprintf(f.Diag, "  %s\n", result.Error)
	}
	return nil
}
