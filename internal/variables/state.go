package variables

import (
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// syncInitialized merges every initialized instance with its group and
// moves it to the syncing state.
//
// The base of a group is its first non-initialized record. The base always
// wins: an initialized instance is overwritten with the base content, never
// the other way around. An initialized record without a base keeps its own
// content and becomes the base for later initialized records of the group.
//
// Replacing nodes invalidates captured instance references, so when
// anything was written the records are rebuilt from the document. A merge
// may replace the instance holding the caret; the caret is restored once
// after all merges so propagation still sees a live focus.
func (p *pass) syncInitialized(records []Record) ([]Record, error) {
	bases := make(map[string]*html.Node)
	wrote := false
	merged := 0

	for _, r := range records {
		if r.State != StateInitialized {
			continue
		}

		base, ok := bases[r.IntentionURI]
		if !ok {
			base = findBase(records, r.IntentionURI)
		}
		if base != nil {
			replaced, err := p.converge(r.Instance, base)
			if err != nil {
				return nil, err
			}
			if replaced {
				wrote = true
				merged++
				p.logger.Info("initialized instance merged",
					"sequence", p.sequenceID,
					"intention", r.IntentionURI,
					"id", r.InstanceID,
				)
			}
			bases[r.IntentionURI] = base
		} else {
			bases[r.IntentionURI] = r.Instance
		}

		set, err := p.writeState(r.Meta, StateSyncing)
		if err != nil {
			return nil, err
		}
		if set {
			wrote = true
		}
	}

	if merged > 0 {
		p.editor.UpdateSelectionAfterComplexInput()
	}
	if !wrote {
		return records, nil
	}
	fresh, _ := p.index()
	return fresh, nil
}

// findBase returns the instance of the first non-initialized record of the
// group, or nil.
func findBase(records []Record, uri string) *html.Node {
	for _, r := range records {
		if r.IntentionURI == uri && r.State != StateInitialized && r.Instance != nil {
			return r.Instance
		}
	}
	return nil
}

// writeState replaces the state child of meta. A descriptor without a
// state child is left alone.
func (p *pass) writeState(meta *html.Node, s State) (bool, error) {
	child := propertyChild(meta, p.vocab.StateProperty)
	if child == nil {
		return false, nil
	}
	if err := p.editor.ReplaceNodeWithHTML(child, p.vocab.stateMarkup(s), false, p.tags()); err != nil {
		return false, newMutationRejected(p.sequenceID, dom.Describe(meta), "write variable state", err)
	}
	p.mutations++
	return true, nil
}
