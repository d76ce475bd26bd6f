package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/engine"
	"github.com/roach88/varsync/internal/store"
	"github.com/roach88/varsync/internal/testutil"
	"github.com/roach88/varsync/internal/variables"
)

// Harness executes one scenario against a fresh document and journal.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	doc    *dom.Document
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Parse the document and place the caret
// 2. Execute each step as one engine pass, journaled
// 3. Read step outcomes back from the journal and check step expectations
// 4. Evaluate assertions against the final document and journal
//
// A returned error means the scenario could not be executed at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	doc, err := dom.Parse(scenario.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if scenario.Focus != "" {
		if err := doc.FocusByID(scenario.Focus); err != nil {
			return nil, err
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	manager := variables.NewManager(variables.WithLogger(logger))
	eng := engine.New(manager,
		engine.WithJournal(st),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("pass")),
		engine.WithLogger(logger),
	)

	h := &Harness{
		store:  st,
		engine: eng,
		doc:    doc,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, sr)
		for _, msg := range checkExpect(i, step.Expect, sr) {
			result.AddError(msg)
		}
	}

	rendered, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	result.Document = rendered

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, doc, variables.DefaultVocabulary()) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep applies the step's edit, runs one pass and reads the pass
// back from the journal.
func (h *Harness) executeStep(ctx context.Context, i int, step Step) (StepResult, error) {
	origins := []dom.Origin{dom.OriginUser}
	if len(step.Origins) > 0 {
		origins = make([]dom.Origin, len(step.Origins))
		for j, o := range step.Origins {
			origins[j] = dom.Origin(o)
		}
	}

	var changed []*html.Node
	switch {
	case step.Edit != nil:
		target := h.doc.NodeByID(step.Edit.ID)
		if target == nil {
			return StepResult{}, fmt.Errorf("step %d: edit: no element with id %q", i, step.Edit.ID)
		}
		if err := h.doc.SetInnerHTML(target, step.Edit.HTML, origins); err != nil {
			return StepResult{}, fmt.Errorf("step %d: edit: %w", i, err)
		}
		changed = []*html.Node{target}
	case step.Remove != nil:
		target := h.doc.NodeByID(step.Remove.ID)
		if target == nil {
			return StepResult{}, fmt.Errorf("step %d: remove: no element with id %q", i, step.Remove.ID)
		}
		parent := target.Parent
		if err := h.doc.RemoveNode(target, origins); err != nil {
			return StepResult{}, fmt.Errorf("step %d: remove: %w", i, err)
		}
		changed = []*html.Node{parent}
	}

	if len(step.Changed) > 0 {
		changed = changed[:0]
		for _, id := range step.Changed {
			n := h.doc.NodeByID(id)
			if n == nil {
				return StepResult{}, fmt.Errorf("step %d: changed: no element with id %q", i, id)
			}
			changed = append(changed, n)
		}
	}

	refs := make([]variables.NodeRef, len(changed))
	for j, n := range changed {
		refs[j] = variables.NodeRef{Node: n}
	}
	n := variables.Notification{
		SequenceID: fmt.Sprintf("step-%d", i),
		Contexts:   []variables.ChangeContext{{Nodes: refs}},
		Editor:     h.doc,
		Origins:    origins,
	}

	// pass errors are part of the outcome and journaled; only the journal
	// itself failing is fatal here
	out, passErr := h.engine.Process(ctx, n)

	p, err := h.store.ReadPass(ctx, out.PassID)
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", i, err)
	}
	muts, err := h.store.ReadMutations(ctx, out.PassID)
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", i, err)
	}

	sr := StepResult{
		Kind:      step.Kind(),
		PassID:    p.ID,
		Status:    string(p.Status),
		Mutations: make([]string, len(muts)),
		Error:     p.Error,
	}
	for j, m := range muts {
		sr.Mutations[j] = m.Kind
	}

	h.logger.Info("step executed",
		"step", i,
		"kind", sr.Kind,
		"pass", sr.PassID,
		"status", sr.Status,
		"mutations", len(sr.Mutations),
		"error", passErr,
	)
	return sr, nil
}

func checkExpect(i int, want *StepExpect, got StepResult) []string {
	if want == nil {
		return nil
	}
	var errs []string
	if want.Status != "" && want.Status != got.Status {
		errs = append(errs, fmt.Sprintf("step %d: expected status %s, got %s (%s)", i, want.Status, got.Status, got.Error))
	}
	if want.Mutations != nil && *want.Mutations != len(got.Mutations) {
		errs = append(errs, fmt.Sprintf("step %d: expected %d mutations, got %d %v", i, *want.Mutations, len(got.Mutations), got.Mutations))
	}
	return errs
}
