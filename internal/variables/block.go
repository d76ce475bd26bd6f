package variables

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// fetchOrCreateBlock returns the metadata block, creating it as the first
// child of the root when the document has none.
func (p *pass) fetchOrCreateBlock() (*html.Node, error) {
	root := p.editor.Root()
	if blocks := p.editor.QueryAttr(root, "property", p.vocab.BlockProperty); len(blocks) > 0 {
		return blocks[0], nil
	}

	inserted, err := p.editor.PrependChildrenHTML(root, p.vocab.blockMarkup(), true, p.tags())
	if err != nil {
		return nil, newMutationRejected(p.sequenceID, dom.Describe(root), "create metadata block", err)
	}
	p.mutations++
	for _, n := range inserted {
		if n.Type == html.ElementNode {
			p.logger.Info("metadata block created", "sequence", p.sequenceID)
			return n, nil
		}
	}
	return nil, fmt.Errorf("create metadata block: editor returned no element")
}

// relocateStray moves every descriptor outside block into it. The markup is
// copied into the block and the original removed; later steps match
// descriptors by their field values, never by node identity.
func (p *pass) relocateStray(block *html.Node) error {
	root := p.editor.Root()
	moved := 0
	for _, meta := range p.editor.QueryAttr(root, "typeof", p.vocab.VariableType) {
		if dom.Contains(block, meta) {
			continue
		}
		// a descriptor nested in one relocated earlier travelled with it
		if !dom.Contains(root, meta) {
			continue
		}
		markup, err := dom.OuterHTML(meta)
		if err != nil {
			return fmt.Errorf("render descriptor %s: %w", dom.Describe(meta), err)
		}
		if _, err := p.editor.PrependChildrenHTML(block, markup, false, p.tags()); err != nil {
			return newMutationRejected(p.sequenceID, dom.Describe(block), "relocate descriptor", err)
		}
		if err := p.editor.RemoveNode(meta, p.tags()); err != nil {
			return newMutationRejected(p.sequenceID, dom.Describe(meta), "remove relocated descriptor", err)
		}
		p.mutations += 2
		moved++
	}
	if moved > 0 {
		p.logger.Debug("descriptors relocated", "sequence", p.sequenceID, "count", moved)
	}
	return nil
}
