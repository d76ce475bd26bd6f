package variables

import (
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// Editor is the part of the host editor a pass consumes. *dom.Document
// implements it.
type Editor interface {
	Root() *html.Node
	CurrentNode() *html.Node
	QueryAttr(scope *html.Node, key, val string) []*html.Node
	ReplaceNodeWithHTML(target *html.Node, markup string, createContainer bool, origins []dom.Origin) error
	RemoveNode(node *html.Node, origins []dom.Origin) error
	PrependChildrenHTML(parent *html.Node, markup string, returnInserted bool, origins []dom.Origin) ([]*html.Node, error)
	UpdateSelectionAfterComplexInput()
}

// NodeRef wraps a changed node reported by the host. A ref without a node
// is ignored.
type NodeRef struct {
	Node *html.Node
}

// ChangeContext groups the node refs of one change region.
type ChangeContext struct {
	Nodes []NodeRef
}

// Notification is a change notification delivered by the host.
type Notification struct {
	// SequenceID identifies the notification in the host's registry.
	SequenceID string
	Contexts   []ChangeContext
	Editor     Editor
	// Origins are the originator tags of the edit batch that produced the
	// notification.
	Origins []dom.Origin
}

// Hint is reserved for results a pass may hand back to the host. Passes
// currently always return an empty list.
type Hint struct {
	Location string
	Message  string
}
