package variables

import (
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// Record is the working view of one descriptor during a pass.
type Record struct {
	IntentionURI string
	// InstanceID is the idInSnippet value of the descriptor.
	InstanceID string
	// Instance is nil when InstanceID does not resolve (an orphan).
	Instance *html.Node
	State    State
	Meta     *html.Node
}

// Orphan reports whether the record's instance is gone.
func (r Record) Orphan() bool {
	return r.Instance == nil
}

// registry maps instance ids to nodes. It is built with one traversal per
// index and never re-queried; the first element carrying an id wins.
type registry map[string]*html.Node

func buildRegistry(root *html.Node) registry {
	reg := make(registry)
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if id, ok := dom.Attr(n, "id"); ok && id != "" {
			if _, seen := reg[id]; !seen {
				reg[id] = n
			}
		}
		return true
	})
	return reg
}

// index scans the whole document for descriptors and resolves each to its
// instance. Descriptors may live anywhere, not only in the block, since
// freshly inserted snippets bring their own.
//
// A descriptor missing a required property is reported in faults and
// skipped; the rest of the index is still built.
func (p *pass) index() ([]Record, []error) {
	root := p.editor.Root()
	reg := buildRegistry(root)

	metas := p.editor.QueryAttr(root, "typeof", p.vocab.VariableType)
	records := make([]Record, 0, len(metas))
	var faults []error
	for _, meta := range metas {
		rec, err := p.readDescriptor(meta, reg)
		if err != nil {
			p.logger.Warn("skipping descriptor",
				"sequence", p.sequenceID,
				"node", dom.Describe(meta),
				"error", err,
			)
			faults = append(faults, err)
			continue
		}
		records = append(records, rec)
	}
	return records, faults
}

func (p *pass) readDescriptor(meta *html.Node, reg registry) (Record, error) {
	uri, ok := propertyValue(meta, p.vocab.IntentionProperty)
	if !ok {
		return Record{}, newDescriptorMissing(p.sequenceID, dom.Describe(meta), p.vocab.IntentionProperty)
	}
	id, ok := propertyValue(meta, p.vocab.IDProperty)
	if !ok {
		return Record{}, newDescriptorMissing(p.sequenceID, dom.Describe(meta), p.vocab.IDProperty)
	}
	state, _ := propertyValue(meta, p.vocab.StateProperty)

	return Record{
		IntentionURI: uri,
		InstanceID:   id,
		Instance:     reg[id],
		State:        State(state),
		Meta:         meta,
	}, nil
}

// propertyChild returns the direct element child of meta labelled with the
// given property.
func propertyChild(meta *html.Node, property string) *html.Node {
	for c := meta.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if v, ok := dom.Attr(c, "property"); ok && v == property {
			return c
		}
	}
	return nil
}

// propertyValue reads the content attribute of the property child.
func propertyValue(meta *html.Node, property string) (string, bool) {
	child := propertyChild(meta, property)
	if child == nil {
		return "", false
	}
	return dom.Attr(child, "content")
}

// groupOf returns the records sharing intention uri, in index order.
func groupOf(records []Record, uri string) []Record {
	var out []Record
	for _, r := range records {
		if r.IntentionURI == uri {
			out = append(out, r)
		}
	}
	return out
}
