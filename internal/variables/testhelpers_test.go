package variables

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// descriptor renders descriptor markup. An empty state omits the state child.
func descriptor(uri, id, state string) string {
	var b strings.Builder
	b.WriteString(`<div typeof="ext:Variable">`)
	b.WriteString(`<div property="ext:intentionUri" content="` + uri + `"></div>`)
	b.WriteString(`<div property="ext:idInSnippet" content="` + id + `"></div>`)
	if state != "" {
		b.WriteString(`<div property="ext:variableState" content="` + state + `">` + state + `</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func newDoc(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.Parse(markup)
	require.NoError(t, err)
	return d
}

func newTestManager(opts ...Option) *Manager {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewManager(opts...)
}

func notify(ed Editor, changed ...*html.Node) Notification {
	refs := make([]NodeRef, 0, len(changed))
	for _, n := range changed {
		refs = append(refs, NodeRef{Node: n})
	}
	return Notification{
		SequenceID: "test-seq",
		Contexts:   []ChangeContext{{Nodes: refs}},
		Editor:     ed,
		Origins:    []dom.Origin{dom.OriginUser},
	}
}

func newTestPass(m *Manager, ed Editor) *pass {
	return m.newPass(Notification{SequenceID: "test-seq", Editor: ed})
}

// ownMutations counts logged mutations tagged with the default origin.
func ownMutations(d *dom.Document) int {
	count := 0
	for _, m := range d.Mutations() {
		for _, o := range m.Origins {
			if o == DefaultOrigin {
				count++
				break
			}
		}
	}
	return count
}

func descriptorsFor(d *dom.Document, id string) []*html.Node {
	var out []*html.Node
	for _, meta := range d.QueryAttr(d.Root(), "typeof", "ext:Variable") {
		if v, _ := propertyValue(meta, "ext:idInSnippet"); v == id {
			out = append(out, meta)
		}
	}
	return out
}

func stateOf(t *testing.T, d *dom.Document, id string) State {
	t.Helper()
	metas := descriptorsFor(d, id)
	require.Len(t, metas, 1, "descriptor for %s", id)
	s, _ := propertyValue(metas[0], "ext:variableState")
	return State(s)
}

func blocks(d *dom.Document) []*html.Node {
	return d.QueryAttr(d.Root(), "property", "ext:metadata")
}
