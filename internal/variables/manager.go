package variables

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/varsync/internal/dom"
)

// Manager runs variable synchronization passes.
//
// A Manager holds configuration only. It is safe to share, but passes over
// the same document must not overlap.
type Manager struct {
	vocab  Vocabulary
	gate   Gate
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithVocabulary overrides the RDFa terms.
func WithVocabulary(v Vocabulary) Option {
	return func(m *Manager) {
		m.vocab = v
	}
}

// WithOrigin overrides the originator tag the manager writes with and
// suppresses on.
func WithOrigin(origin dom.Origin) Option {
	return func(m *Manager) {
		m.gate = NewGate(origin)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager with the default vocabulary and origin.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		vocab: DefaultVocabulary(),
		gate:  NewGate(DefaultOrigin),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Origin returns the manager's originator tag.
func (m *Manager) Origin() dom.Origin {
	return m.gate.Origin()
}

// Admits reports whether n would start a pass: it must carry at least one
// change context and must not originate from the manager itself.
func (m *Manager) Admits(n Notification) bool {
	return len(n.Contexts) > 0 && !m.gate.Suppresses(n.Origins)
}

// Execute runs one pass for notification n.
//
// The result list is always empty; all effects are document mutations. A
// rejected mutation aborts the pass and is returned as a *PassError with
// code MUTATION_REJECTED. Nothing is rolled back: the next pass re-derives
// everything from the document.
//
// Execute never suspends once started; ctx is only checked on entry.
func (m *Manager) Execute(ctx context.Context, n Notification) ([]Hint, error) {
	result := []Hint{}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if !m.Admits(n) {
		m.logger.Debug("pass skipped",
			"sequence", n.SequenceID,
			"contexts", len(n.Contexts),
			"origins", len(n.Origins),
		)
		return result, nil
	}
	if n.Editor == nil {
		return result, fmt.Errorf("notification %s: no editor", n.SequenceID)
	}

	p := m.newPass(n)
	if err := p.run(n.Contexts); err != nil {
		m.logger.Error("pass aborted",
			"sequence", n.SequenceID,
			"mutations", p.mutations,
			"error", err,
		)
		return result, err
	}
	m.logger.Debug("pass completed",
		"sequence", n.SequenceID,
		"mutations", p.mutations,
	)
	return result, nil
}

// pass carries the state of one pass. It is created per notification and
// dropped afterwards.
type pass struct {
	editor     Editor
	vocab      Vocabulary
	gate       Gate
	logger     *slog.Logger
	sequenceID string
	mutations  int
}

func (m *Manager) newPass(n Notification) *pass {
	return &pass{
		editor:     n.Editor,
		vocab:      m.vocab,
		gate:       m.gate,
		logger:     m.logger,
		sequenceID: n.SequenceID,
	}
}

func (p *pass) tags() []dom.Origin {
	return p.gate.Tags()
}

func (p *pass) run(contexts []ChangeContext) error {
	block, err := p.fetchOrCreateBlock()
	if err != nil {
		return err
	}
	if err := p.relocateStray(block); err != nil {
		return err
	}

	records, _ := p.index()
	records, err = p.prune(records)
	if err != nil {
		return err
	}
	records, err = p.syncInitialized(records)
	if err != nil {
		return err
	}

	for _, c := range contexts {
		for _, ref := range c.Nodes {
			if ref.Node == nil {
				continue
			}
			replaced, err := p.onChangedNode(records, ref.Node)
			if err != nil {
				return err
			}
			if replaced > 0 {
				records, _ = p.index()
			}
		}
	}
	return nil
}
