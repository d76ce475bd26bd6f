package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/store"
	"github.com/roach88/varsync/internal/variables"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stubExecutor reports the sequence ids it executed.
type stubExecutor struct {
	mu   sync.Mutex
	seen []string
	ran  chan string
	err  error
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{ran: make(chan string, 16)}
}

func (s *stubExecutor) Admits(n variables.Notification) bool {
	return len(n.Contexts) > 0
}

func (s *stubExecutor) Execute(_ context.Context, n variables.Notification) ([]variables.Hint, error) {
	s.mu.Lock()
	s.seen = append(s.seen, n.SequenceID)
	s.mu.Unlock()
	s.ran <- n.SequenceID
	return nil, s.err
}

func note(seq string) variables.Notification {
	return variables.Notification{
		SequenceID: seq,
		Contexts:   []variables.ChangeContext{{}},
		Origins:    []dom.Origin{dom.OriginUser},
	}
}

const twoInstances = `<div><span id="a">new</span><span id="b">old</span></div>` +
	`<div typeof="ext:Variable"><div property="ext:intentionUri" content="X"></div><div property="ext:idInSnippet" content="a"></div></div>` +
	`<div typeof="ext:Variable"><div property="ext:intentionUri" content="X"></div><div property="ext:idInSnippet" content="b"></div></div>`

func editNotification(t *testing.T, doc *dom.Document, changed *html.Node) variables.Notification {
	t.Helper()
	return variables.Notification{
		SequenceID: "edit-1",
		Contexts:   []variables.ChangeContext{{Nodes: []variables.NodeRef{{Node: changed}}}},
		Editor:     doc,
		Origins:    []dom.Origin{dom.OriginUser},
	}
}

func TestEngine_New_Defaults(t *testing.T) {
	e := New(newStubExecutor())

	assert.NotNil(t, e.clock)
	assert.NotNil(t, e.slot)
	assert.NotNil(t, e.logger)
	assert.Equal(t, DefaultQuiescenceDelay, e.delay)
	assert.IsType(t, UUIDv7Generator{}, e.ids)
	assert.Nil(t, e.journal)
}

func TestEngine_Process_JournalsCompletedPass(t *testing.T) {
	s := setupTestStore(t)
	doc, err := dom.Parse(twoInstances)
	require.NoError(t, err)
	require.NoError(t, doc.FocusByID("a"))

	m := variables.NewManager(variables.WithLogger(discard))
	e := New(m,
		WithJournal(s),
		WithIDGenerator(NewFixedGenerator("pass-1")),
		WithLogger(discard),
	)

	out, err := e.Process(context.Background(), editNotification(t, doc, doc.NodeByID("a")))
	require.NoError(t, err)

	assert.Equal(t, "pass-1", out.PassID)
	assert.Equal(t, int64(1), out.Seq)
	assert.Equal(t, store.PassCompleted, out.Status)
	assert.Empty(t, out.Hints)
	assert.NotNil(t, out.Hints)
	// block creation, two relocations (prepend + remove each), one replace
	assert.Equal(t, 6, out.Mutations)
	assert.Len(t, doc.Mutations(), 6)

	p, err := s.ReadPass(context.Background(), "pass-1")
	require.NoError(t, err)
	assert.Equal(t, "edit-1", p.SequenceID)
	assert.Equal(t, store.PassCompleted, p.Status)
	assert.Equal(t, 6, p.MutationCount)
	assert.Empty(t, p.Error)

	muts, err := s.ReadMutations(context.Background(), "pass-1")
	require.NoError(t, err)
	require.Len(t, muts, 6)
	assert.Equal(t, "prepend", muts[0].Kind)
	assert.Equal(t, "#root", muts[0].Target)
	assert.Equal(t, "replace", muts[5].Kind)
	assert.Equal(t, "#b", muts[5].Target)
	for _, mut := range muts {
		assert.Equal(t, []string{string(variables.DefaultOrigin)}, mut.Origins)
		assert.Len(t, mut.Fingerprint, 64)
	}
}

func TestEngine_Process_SkipsSelfOriginated(t *testing.T) {
	s := setupTestStore(t)
	doc, err := dom.Parse(twoInstances)
	require.NoError(t, err)

	e := New(variables.NewManager(variables.WithLogger(discard)),
		WithJournal(s),
		WithIDGenerator(NewFixedGenerator("pass-1")),
		WithLogger(discard),
	)

	n := editNotification(t, doc, doc.NodeByID("a"))
	n.Origins = []dom.Origin{variables.DefaultOrigin}
	out, err := e.Process(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, store.PassSkipped, out.Status)
	assert.Zero(t, out.Mutations)
	assert.Empty(t, doc.Mutations())

	p, err := s.ReadPass(context.Background(), "pass-1")
	require.NoError(t, err)
	assert.Equal(t, store.PassSkipped, p.Status)
}

// rejectingEditor refuses every removal.
type rejectingEditor struct {
	*dom.Document
}

func (rejectingEditor) RemoveNode(*html.Node, []dom.Origin) error {
	return dom.ErrMutationRejected
}

func TestEngine_Process_JournalsAbortedPass(t *testing.T) {
	s := setupTestStore(t)
	doc, err := dom.Parse(twoInstances)
	require.NoError(t, err)
	require.NoError(t, doc.FocusByID("a"))

	e := New(variables.NewManager(variables.WithLogger(discard)),
		WithJournal(s),
		WithIDGenerator(NewFixedGenerator("pass-1")),
		WithLogger(discard),
	)

	n := editNotification(t, doc, doc.NodeByID("a"))
	n.Editor = rejectingEditor{doc}
	out, err := e.Process(context.Background(), n)
	require.Error(t, err)
	assert.True(t, variables.IsMutationRejected(err))

	assert.Equal(t, store.PassAborted, out.Status)
	// block created and the first descriptor copied before the removal failed
	assert.Equal(t, 2, out.Mutations)

	p, err := s.ReadPass(context.Background(), "pass-1")
	require.NoError(t, err)
	assert.Equal(t, store.PassAborted, p.Status)
	assert.Contains(t, p.Error, "MUTATION_REJECTED")

	muts, err := s.ReadMutations(context.Background(), "pass-1")
	require.NoError(t, err)
	assert.Len(t, muts, 2)
}

func TestEngine_Process_WithoutJournal(t *testing.T) {
	exec := newStubExecutor()
	e := New(exec, WithIDGenerator(NewFixedGenerator("pass-1", "pass-2")), WithLogger(discard))

	out, err := e.Process(context.Background(), variables.Notification{Contexts: []variables.ChangeContext{{}}})
	require.NoError(t, err)
	assert.Equal(t, store.PassCompleted, out.Status)
	assert.Equal(t, []string{"pass-1"}, exec.seen, "sequence id defaults to the pass id")

	out, err = e.Process(context.Background(), variables.Notification{})
	require.NoError(t, err)
	assert.Equal(t, store.PassSkipped, out.Status)
	assert.Equal(t, int64(2), out.Seq)
}

func TestEngine_Process_ResumedClock(t *testing.T) {
	e := New(newStubExecutor(),
		WithClock(resumed(t, 10)),
		WithIDGenerator(NewFixedGenerator("pass-1")),
		WithLogger(discard),
	)

	out, err := e.Process(context.Background(), note("x"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), out.Seq)
}

func TestEngine_Process_IgnoresQuiescenceDelay(t *testing.T) {
	exec := newStubExecutor()
	e := New(exec, WithQuiescenceDelay(time.Hour), WithLogger(discard))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := e.Process(context.Background(), note("now"))
		done <- out
	}()

	select {
	case out := <-done:
		assert.Equal(t, store.PassCompleted, out.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("Process waited for quiescence")
	}
}

func resumed(t *testing.T, last int64) *Clock {
	t.Helper()
	c, err := ResumeClock(context.Background(), journalAt(last))
	require.NoError(t, err)
	return c
}

func TestEngine_Run_LatestNotificationWins(t *testing.T) {
	exec := newStubExecutor()
	e := New(exec, WithQuiescenceDelay(200*time.Millisecond), WithLogger(discard))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	replaced, err := e.Enqueue(note("first"))
	require.NoError(t, err)
	assert.False(t, replaced)

	time.Sleep(50 * time.Millisecond)
	replaced, err = e.Enqueue(note("second"))
	require.NoError(t, err)
	assert.True(t, replaced)

	select {
	case seq := <-exec.ran:
		assert.Equal(t, "second", seq)
	case <-time.After(5 * time.Second):
		t.Fatal("pass did not run")
	}

	select {
	case seq := <-exec.ran:
		t.Fatalf("unexpected second pass for %s", seq)
	case <-time.After(300 * time.Millisecond):
	}

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestEngine_Run_ProcessesSuccessiveBatches(t *testing.T) {
	exec := newStubExecutor()
	e := New(exec, WithQuiescenceDelay(10*time.Millisecond), WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	for _, seq := range []string{"one", "two"} {
		_, err := e.Enqueue(note(seq))
		require.NoError(t, err)
		select {
		case got := <-exec.ran:
			assert.Equal(t, seq, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("pass %s did not run", seq)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err := e.Enqueue(note("late"))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestEngine_Run_StopDiscardsPending(t *testing.T) {
	exec := newStubExecutor()
	e := New(exec, WithQuiescenceDelay(time.Hour), WithLogger(discard))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	_, err := e.Enqueue(note("never"))
	require.NoError(t, err)
	e.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Empty(t, exec.ran)

	_, err = e.Enqueue(note("late"))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestEngine_Run_ContinuesAfterFailure(t *testing.T) {
	exec := newStubExecutor()
	exec.err = assert.AnError
	e := New(exec, WithQuiescenceDelay(time.Millisecond), WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	for _, seq := range []string{"a", "b"} {
		_, err := e.Enqueue(note(seq))
		require.NoError(t, err)
		select {
		case got := <-exec.ran:
			assert.Equal(t, seq, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("pass %s did not run", seq)
		}
	}
}
