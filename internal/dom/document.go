package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Origin is an originator tag attached to a mutation. Notifications carry
// the origins of the batch that produced them.
type Origin string

// OriginUser tags edits made by the person typing in the document.
const OriginUser Origin = "user"

// MutationKind names the editor capability a mutation went through.
type MutationKind string

const (
	MutationReplace MutationKind = "replace"
	MutationRemove  MutationKind = "remove"
	MutationPrepend MutationKind = "prepend"
	MutationEdit    MutationKind = "edit"
)

// Mutation is one entry of the document's mutation log.
type Mutation struct {
	Kind MutationKind
	// Target is the node the mutation was applied to. For replace and remove
	// it is detached from the document afterwards.
	Target *html.Node
	// Inserted holds the nodes that entered the document, if any.
	Inserted []*html.Node
	Markup   string
	Origins  []Origin
}

// ErrMutationRejected is returned when the document refuses a mutation,
// typically because the target is not attached to the live tree.
var ErrMutationRejected = errors.New("mutation rejected")

// Document is a mutable HTML tree with editor capabilities.
type Document struct {
	root  *html.Node
	focus *html.Node
	// anchor is where a caret invalidated by a replacement or removal will
	// be restored to.
	anchor           *html.Node
	log              []Mutation
	selectionUpdates int
}

// New creates an empty document.
func New() *Document {
	return &Document{root: newRoot()}
}

// Parse builds a document whose root holds the given markup.
func Parse(markup string) (*Document, error) {
	d := New()
	nodes, err := parseFragment(markup, d.root)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	for _, n := range nodes {
		d.root.AppendChild(n)
	}
	return d, nil
}

func newRoot() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
	}
}

func parseFragment(markup string, parent *html.Node) ([]*html.Node, error) {
	context := parent
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}

// Root returns the document root. The root itself is never rendered.
func (d *Document) Root() *html.Node {
	return d.root
}

// CurrentNode returns the node holding the caret, or nil.
func (d *Document) CurrentNode() *html.Node {
	return d.focus
}

// SetCurrentNode moves the caret to n.
func (d *Document) SetCurrentNode(n *html.Node) {
	d.focus = n
	d.anchor = nil
}

// FocusByID moves the caret into the element with the given id.
func (d *Document) FocusByID(id string) error {
	n := d.NodeByID(id)
	if n == nil {
		return fmt.Errorf("focus: no element with id %q", id)
	}
	d.SetCurrentNode(n)
	return nil
}

// QueryAttr returns every descendant of scope carrying attribute key with
// value val, in document order.
func (d *Document) QueryAttr(scope *html.Node, key, val string) []*html.Node {
	var out []*html.Node
	Walk(scope, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if v, ok := Attr(n, key); ok && v == val {
			out = append(out, n)
		}
		return true
	})
	return out
}

// NodeByID returns the first element whose id equals id.
func (d *Document) NodeByID(id string) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if v, ok := Attr(n, "id"); ok && v == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// attached reports whether n is a live, non-root node of the document.
func (d *Document) attached(n *html.Node) bool {
	return n != nil && n != d.root && Contains(d.root, n)
}

// ReplaceNodeWithHTML replaces target with the nodes parsed from markup.
// With createContainer the parsed nodes are wrapped in a div first.
func (d *Document) ReplaceNodeWithHTML(target *html.Node, markup string, createContainer bool, origins []Origin) error {
	if !d.attached(target) {
		return fmt.Errorf("replace: target not in document: %w", ErrMutationRejected)
	}
	nodes, err := parseFragment(markup, target.Parent)
	if err != nil {
		return fmt.Errorf("replace: parse markup: %w", err)
	}
	if createContainer {
		container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
		for _, n := range nodes {
			container.AppendChild(n)
		}
		nodes = []*html.Node{container}
	}

	parent := target.Parent
	for _, n := range nodes {
		parent.InsertBefore(n, target)
	}
	if Contains(target, d.focus) {
		if len(nodes) > 0 {
			d.anchor = nodes[0]
		} else {
			d.anchor = parent
		}
	}
	parent.RemoveChild(target)

	d.record(Mutation{Kind: MutationReplace, Target: target, Inserted: nodes, Markup: markup, Origins: origins})
	return nil
}

// RemoveNode detaches node from the document.
func (d *Document) RemoveNode(node *html.Node, origins []Origin) error {
	if !d.attached(node) {
		return fmt.Errorf("remove: node not in document: %w", ErrMutationRejected)
	}
	parent := node.Parent
	if Contains(node, d.focus) {
		d.anchor = parent
	}
	parent.RemoveChild(node)

	d.record(Mutation{Kind: MutationRemove, Target: node, Origins: origins})
	return nil
}

// PrependChildrenHTML inserts the nodes parsed from markup at the start of
// parent. The inserted nodes are returned only when returnInserted is set.
func (d *Document) PrependChildrenHTML(parent *html.Node, markup string, returnInserted bool, origins []Origin) ([]*html.Node, error) {
	if parent != d.root && !d.attached(parent) {
		return nil, fmt.Errorf("prepend: parent not in document: %w", ErrMutationRejected)
	}
	nodes, err := parseFragment(markup, parent)
	if err != nil {
		return nil, fmt.Errorf("prepend: parse markup: %w", err)
	}
	first := parent.FirstChild
	for _, n := range nodes {
		parent.InsertBefore(n, first)
	}

	d.record(Mutation{Kind: MutationPrepend, Target: parent, Inserted: nodes, Markup: markup, Origins: origins})
	if !returnInserted {
		return nil, nil
	}
	return nodes, nil
}

// SetInnerHTML replaces the children of n and puts the caret inside it. This
// is how a host applies a user edit.
func (d *Document) SetInnerHTML(n *html.Node, markup string, origins []Origin) error {
	if !d.attached(n) {
		return fmt.Errorf("edit: node not in document: %w", ErrMutationRejected)
	}
	nodes, err := parseFragment(markup, n)
	if err != nil {
		return fmt.Errorf("edit: parse markup: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	d.SetCurrentNode(n)

	d.record(Mutation{Kind: MutationEdit, Target: n, Inserted: nodes, Markup: markup, Origins: origins})
	return nil
}

// UpdateSelectionAfterComplexInput re-anchors a caret whose node was
// replaced or removed.
func (d *Document) UpdateSelectionAfterComplexInput() {
	d.selectionUpdates++
	if d.focus != nil && Contains(d.root, d.focus) {
		return
	}
	if d.anchor != nil && Contains(d.root, d.anchor) {
		d.focus = d.anchor
	} else if d.focus != nil {
		d.focus = d.root
	}
	d.anchor = nil
}

// SelectionUpdates counts calls to UpdateSelectionAfterComplexInput.
func (d *Document) SelectionUpdates() int {
	return d.selectionUpdates
}

func (d *Document) record(m Mutation) {
	if len(m.Origins) > 0 {
		m.Origins = append([]Origin(nil), m.Origins...)
	}
	d.log = append(d.log, m)
}

// Mutations returns a copy of the mutation log.
func (d *Document) Mutations() []Mutation {
	out := make([]Mutation, len(d.log))
	copy(out, d.log)
	return out
}

// DrainMutations returns the mutation log and empties it.
func (d *Document) DrainMutations() []Mutation {
	out := d.log
	d.log = nil
	return out
}

// Render returns the markup of the document content.
func (d *Document) Render() (string, error) {
	return InnerHTML(d.root)
}
