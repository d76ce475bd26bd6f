package variables

import (
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// onChangedNode converges the group of the instance containing changed to
// that instance's content. It returns the number of replaced instances.
//
// Nothing happens when changed lies outside every instance or when the
// caret has left the live document.
func (p *pass) onChangedNode(records []Record, changed *html.Node) (int, error) {
	source := findInstanceFor(records, changed)
	if source == nil {
		return 0, nil
	}
	focus := p.editor.CurrentNode()
	if focus == nil || !dom.Contains(p.editor.Root(), focus) {
		p.logger.Debug("caret outside document, skipping propagation",
			"sequence", p.sequenceID,
			"intention", source.IntentionURI,
		)
		return 0, nil
	}

	replaced := 0
	for _, target := range groupOf(records, source.IntentionURI) {
		if target.Instance == nil {
			continue
		}
		ok, err := p.converge(target.Instance, source.Instance)
		if err != nil {
			return replaced, err
		}
		if ok {
			replaced++
		}
	}

	// a replacement next to or around the caret invalidates its position;
	// restore it once for the whole batch
	if replaced > 0 {
		p.editor.UpdateSelectionAfterComplexInput()
		p.logger.Info("variable propagated",
			"sequence", p.sequenceID,
			"intention", source.IntentionURI,
			"source", source.InstanceID,
			"replaced", replaced,
		)
	}
	return replaced, nil
}

// findInstanceFor returns the first record whose instance contains n.
// Instances never nest, so the first match is the only one.
func findInstanceFor(records []Record, n *html.Node) *Record {
	for i := range records {
		if records[i].Instance != nil && dom.Contains(records[i].Instance, n) {
			return &records[i]
		}
	}
	return nil
}

// converge makes target carry the content of source. The target keeps its
// id: the source is cloned, the id moved onto the clone, and the id removed
// from the old target before the replacement so two live elements never
// share it.
func (p *pass) converge(target, source *html.Node) (bool, error) {
	if target == nil || source == nil || target == source {
		return false, nil
	}
	// a duplicate descriptor may point at an instance replaced earlier in
	// this pass
	if !dom.Contains(p.editor.Root(), target) {
		return false, nil
	}
	if contentEqual(source, target) {
		return false, nil
	}

	id, hasID := dom.Attr(target, "id")
	clone := dom.Clone(source)
	if hasID {
		dom.SetAttr(clone, "id", id)
	} else {
		dom.RemoveAttr(clone, "id")
	}
	markup, err := dom.OuterHTML(clone)
	if err != nil {
		return false, err
	}

	dom.RemoveAttr(target, "id")
	if err := p.editor.ReplaceNodeWithHTML(target, markup, false, p.tags()); err != nil {
		if hasID {
			dom.SetAttr(target, "id", id)
		}
		return false, newMutationRejected(p.sequenceID, "#"+id, "replace instance", err)
	}
	p.mutations++
	return true, nil
}

// contentEqual compares the child lists of a and b deeply. The elements
// themselves are not compared; two instances always differ by id.
func contentEqual(a, b *html.Node) bool {
	type pair struct{ a, b *html.Node }
	stack := []pair{{a, b}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.a.FirstChild, p.b.FirstChild
		for x != nil && y != nil {
			if !nodeEqual(x, y) {
				return false
			}
			stack = append(stack, pair{x, y})
			x, y = x.NextSibling, y.NextSibling
		}
		if x != nil || y != nil {
			return false
		}
	}
	return true
}

// nodeEqual compares two nodes without their children. Attribute order is
// irrelevant.
func nodeEqual(x, y *html.Node) bool {
	if x.Type != y.Type || x.Data != y.Data || x.Namespace != y.Namespace {
		return false
	}
	if len(x.Attr) != len(y.Attr) {
		return false
	}
	for _, ax := range x.Attr {
		found := false
		for _, ay := range y.Attr {
			if ax.Namespace == ay.Namespace && ax.Key == ay.Key {
				found = ax.Val == ay.Val
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
