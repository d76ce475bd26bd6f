package variables

import "github.com/roach88/varsync/internal/dom"

// Gate suppresses passes triggered by the manager's own output.
//
// Provenance is explicit data: every mutation carries originator tags and
// every notification carries the tags of the batch behind it. Several
// consumers may emit interleaved notifications, so a single busy flag
// cannot tell them apart; the tags can.
type Gate struct {
	origin dom.Origin
}

// NewGate creates a gate for the given originator tag.
func NewGate(origin dom.Origin) Gate {
	return Gate{origin: origin}
}

// Origin returns the tag the gate recognises as self.
func (g Gate) Origin() dom.Origin {
	return g.origin
}

// Suppresses reports whether a notification with these origins was caused
// by the gate's owner.
func (g Gate) Suppresses(origins []dom.Origin) bool {
	for _, o := range origins {
		if o == g.origin {
			return true
		}
	}
	return false
}

// Tags returns the originator tags to attach to the owner's mutations.
func (g Gate) Tags() []dom.Origin {
	return []dom.Origin{g.origin}
}
