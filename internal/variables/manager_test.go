package variables

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

func TestExecute_ConsolidatesAndPropagates(t *testing.T) {
	doc := newDoc(t, `<div class="body"><span id="v1">Hello</span> and <span id="v2">Hello</span></div>`+
		descriptor("X", "v1", "")+descriptor("X", "v2", ""))
	m := newTestManager()
	ctx := context.Background()

	hints, err := m.Execute(ctx, notify(doc, doc.Root()))
	require.NoError(t, err)
	assert.Empty(t, hints)

	require.Len(t, blocks(doc), 1)
	block := blocks(doc)[0]
	assert.Equal(t, doc.Root().FirstChild, block, "block is the first child of the root")
	metas := doc.QueryAttr(doc.Root(), "typeof", "ext:Variable")
	require.Len(t, metas, 2)
	for _, meta := range metas {
		assert.True(t, dom.Contains(block, meta))
		uri, _ := propertyValue(meta, "ext:intentionUri")
		assert.Equal(t, "X", uri)
	}

	v1 := doc.NodeByID("v1")
	require.NoError(t, doc.SetInnerHTML(v1, "Hello World", []dom.Origin{dom.OriginUser}))

	_, err = m.Execute(ctx, notify(doc, v1.FirstChild))
	require.NoError(t, err)

	assert.Same(t, v1, doc.NodeByID("v1"), "the edited instance is the source and is not replaced")
	v2 := doc.NodeByID("v2")
	require.NotNil(t, v2)
	assert.Equal(t, "Hello World", dom.TextContent(v2))
	assert.Equal(t, 1, doc.SelectionUpdates())
}

func TestExecute_Idempotent(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">Base</span><span id="b"></span><span id="c">stale</span></div>`+
		descriptor("X", "a", "")+descriptor("X", "b", "initialized")+descriptor("Y", "gone", ""))
	m := newTestManager()
	ctx := context.Background()
	require.NoError(t, doc.FocusByID("a"))
	n := notify(doc, doc.NodeByID("a"))

	_, err := m.Execute(ctx, n)
	require.NoError(t, err)
	first := ownMutations(doc)
	require.Greater(t, first, 0)

	before, err := doc.Render()
	require.NoError(t, err)

	_, err = m.Execute(ctx, notify(doc, doc.NodeByID("a")))
	require.NoError(t, err)
	assert.Equal(t, first, ownMutations(doc), "second pass must not mutate")

	after, err := doc.Render()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExecute_MergesInitializedWithBase(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">Base</span><span id="b"></span></div>`+
		descriptor("X", "a", "")+descriptor("X", "b", "initialized"))
	a := doc.NodeByID("a")

	_, err := newTestManager().Execute(context.Background(), notify(doc, doc.Root()))
	require.NoError(t, err)

	assert.Equal(t, "Base", dom.TextContent(doc.NodeByID("b")))
	assert.Equal(t, StateSyncing, stateOf(t, doc, "b"))
	assert.Same(t, a, doc.NodeByID("a"))
	assert.Equal(t, "Base", dom.TextContent(a))
}

func TestExecute_MergeKeepsCaretForPropagation(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">New</span><span id="c">Old</span><span id="b"></span></div>`+
		descriptor("X", "a", "")+descriptor("X", "c", "")+descriptor("X", "b", "initialized"))
	require.NoError(t, doc.FocusByID("b"))
	a := doc.NodeByID("a")

	_, err := newTestManager().Execute(context.Background(), notify(doc, a))
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, "New", dom.TextContent(doc.NodeByID(id)), "instance %s", id)
	}
	assert.True(t, dom.Contains(doc.Root(), doc.CurrentNode()), "caret stays in the document")
	assert.Equal(t, 2, doc.SelectionUpdates(), "once after the merge, once after propagation")
}

func TestExecute_MergeOfFocusedInstanceRestoresCaret(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">Base</span><span id="b"></span></div>`+
		descriptor("X", "a", "")+descriptor("X", "b", "initialized"))
	require.NoError(t, doc.FocusByID("b"))

	_, err := newTestManager().Execute(context.Background(), notify(doc, doc.NodeByID("b")))
	require.NoError(t, err)

	b := doc.NodeByID("b")
	assert.Equal(t, "Base", dom.TextContent(b))
	assert.Same(t, b, doc.CurrentNode(), "caret moves onto the merged instance")
	assert.Equal(t, 1, doc.SelectionUpdates())
}

func TestExecute_RemovesOrphans(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">x</span></div>`+
		descriptor("X", "a", "")+descriptor("X", "deleted", ""))

	_, err := newTestManager().Execute(context.Background(), notify(doc, doc.Root()))
	require.NoError(t, err)

	assert.Empty(t, descriptorsFor(doc, "deleted"))
	assert.Len(t, descriptorsFor(doc, "a"), 1)

	p := newTestPass(newTestManager(), doc)
	records, faults := p.index()
	assert.Empty(t, faults)
	for _, r := range records {
		assert.NotEqual(t, "deleted", r.InstanceID)
	}
}

func TestExecute_SelfSuppression(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">x</span></div>`+descriptor("X", "gone", ""))
	m := newTestManager()

	n := notify(doc, doc.Root())
	n.Origins = []dom.Origin{dom.OriginUser, m.Origin()}

	hints, err := m.Execute(context.Background(), n)
	require.NoError(t, err)
	assert.Empty(t, hints)
	assert.Empty(t, doc.Mutations())
	assert.Empty(t, blocks(doc))
}

func TestExecute_EmptyNotification(t *testing.T) {
	doc := newDoc(t, descriptor("X", "gone", ""))
	n := notify(doc)
	n.Contexts = nil

	_, err := newTestManager().Execute(context.Background(), n)
	require.NoError(t, err)
	assert.Empty(t, doc.Mutations())
}

func TestExecute_CancelledContext(t *testing.T) {
	doc := newDoc(t, descriptor("X", "gone", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hints, err := newTestManager().Execute(ctx, notify(doc, doc.Root()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, hints)
	assert.Empty(t, doc.Mutations())
}

func TestExecute_NilEditor(t *testing.T) {
	n := Notification{SequenceID: "s", Contexts: []ChangeContext{{}}}
	_, err := newTestManager().Execute(context.Background(), n)
	assert.Error(t, err)
}

func TestExecute_MalformedDescriptorDoesNotAbort(t *testing.T) {
	broken := `<div typeof="ext:Variable"><div property="ext:idInSnippet" content="a"></div></div>`
	doc := newDoc(t, `<div><span id="a">x</span></div>`+broken+descriptor("X", "gone", ""))

	_, err := newTestManager().Execute(context.Background(), notify(doc, doc.Root()))
	require.NoError(t, err)
	assert.Empty(t, descriptorsFor(doc, "gone"), "well-formed orphan is still reclaimed")
}

// rejectingEditor refuses removals.
type rejectingEditor struct {
	*dom.Document
}

func (r rejectingEditor) RemoveNode(*html.Node, []dom.Origin) error {
	return dom.ErrMutationRejected
}

func TestExecute_MutationRejectedAbortsPass(t *testing.T) {
	doc := newDoc(t, `<div property="ext:metadata">`+descriptor("X", "gone", "")+`</div>`)
	ed := rejectingEditor{doc}

	_, err := newTestManager().Execute(context.Background(), notify(ed, doc.Root()))
	require.Error(t, err)
	assert.True(t, IsMutationRejected(err))
	assert.True(t, errors.Is(err, dom.ErrMutationRejected))

	var pe *PassError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "test-seq", pe.SequenceID)
}

func TestExecute_ConvergesEveryGroupMember(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">one</span><span id="b">one</span><span id="c">other</span><span id="d">keep</span></div>`+
		descriptor("X", "a", "")+descriptor("X", "b", "")+descriptor("X", "c", "")+descriptor("Y", "d", ""))
	a := doc.NodeByID("a")
	require.NoError(t, doc.SetInnerHTML(a, "<b>new</b> text", nil))

	_, err := newTestManager().Execute(context.Background(), notify(doc, a))
	require.NoError(t, err)

	want, err := dom.InnerHTML(a)
	require.NoError(t, err)
	for _, id := range []string{"b", "c"} {
		got, err := dom.InnerHTML(doc.NodeByID(id))
		require.NoError(t, err)
		assert.Equal(t, want, got, "instance %s", id)
	}
	assert.Equal(t, "keep", dom.TextContent(doc.NodeByID("d")))
	assert.Equal(t, 1, doc.SelectionUpdates(), "caret restored once per batch")
}

func TestExecute_MultipleChangedNodes(t *testing.T) {
	doc := newDoc(t, `<div><span id="a">1</span><span id="b">1</span><span id="c">2</span><span id="d">2</span></div>`+
		descriptor("X", "a", "")+descriptor("X", "b", "")+descriptor("Y", "c", "")+descriptor("Y", "d", ""))
	a, c := doc.NodeByID("a"), doc.NodeByID("c")
	require.NoError(t, doc.SetInnerHTML(a, "x-new", nil))
	require.NoError(t, doc.SetInnerHTML(c, "y-new", nil))

	n := notify(doc, a, nil, c)
	n.Contexts = append(n.Contexts, ChangeContext{Nodes: []NodeRef{{Node: a.FirstChild}}})

	_, err := newTestManager().Execute(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, "x-new", dom.TextContent(doc.NodeByID("b")))
	assert.Equal(t, "y-new", dom.TextContent(doc.NodeByID("d")))
	assert.Equal(t, 2, doc.SelectionUpdates())
}

func TestExecute_CustomOriginAndVocabulary(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.BlockProperty = "my:block"
	m := newTestManager(WithOrigin("custom"), WithVocabulary(vocab))
	doc := newDoc(t, `<div><span id="a">x</span></div>`+descriptor("X", "a", ""))

	_, err := m.Execute(context.Background(), notify(doc, doc.Root()))
	require.NoError(t, err)

	assert.Len(t, doc.QueryAttr(doc.Root(), "property", "my:block"), 1)
	for _, mut := range doc.Mutations() {
		assert.Equal(t, []dom.Origin{"custom"}, mut.Origins)
	}
	assert.Equal(t, dom.Origin("custom"), m.Origin())
}
