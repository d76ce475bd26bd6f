package variables

import "github.com/roach88/varsync/internal/dom"

// prune removes the descriptor of every orphaned record and returns the
// records that still resolve.
func (p *pass) prune(records []Record) ([]Record, error) {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Orphan() {
			kept = append(kept, r)
			continue
		}
		if err := p.editor.RemoveNode(r.Meta, p.tags()); err != nil {
			return nil, newMutationRejected(p.sequenceID, dom.Describe(r.Meta), "remove orphan descriptor", err)
		}
		p.mutations++
		p.logger.Info("orphan descriptor removed",
			"sequence", p.sequenceID,
			"intention", r.IntentionURI,
			"id", r.InstanceID,
		)
	}
	return kept, nil
}
