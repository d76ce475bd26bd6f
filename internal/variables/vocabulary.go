package variables

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
)

// DefaultOrigin is the originator tag the manager attaches to its own
// mutations unless configured otherwise.
const DefaultOrigin dom.Origin = "editor-plugins/template-variables-manager-card"

// State is the lifecycle state recorded in a descriptor.
type State string

const (
	// StateNone is the state of a descriptor without a state value.
	StateNone State = ""
	// StateInitialized marks an instance that was just inserted and must be
	// merged with its group before it may act as a source of truth.
	StateInitialized State = "initialized"
	// StateSyncing marks an instance that has been merged with its group.
	StateSyncing State = "syncing"
)

// Vocabulary holds the RDFa terms used to recognise descriptors and the
// metadata block.
type Vocabulary struct {
	VariableType      string `json:"variable_type" yaml:"variable_type"`
	IntentionProperty string `json:"intention_property" yaml:"intention_property"`
	IDProperty        string `json:"id_property" yaml:"id_property"`
	StateProperty     string `json:"state_property" yaml:"state_property"`
	BlockProperty     string `json:"block_property" yaml:"block_property"`
	BlockClass        string `json:"block_class" yaml:"block_class"`
}

// DefaultVocabulary returns the ext: vocabulary used by template snippets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		VariableType:      "ext:Variable",
		IntentionProperty: "ext:intentionUri",
		IDProperty:        "ext:idInSnippet",
		StateProperty:     "ext:variableState",
		BlockProperty:     "ext:metadata",
		BlockClass:        "ext_metadata",
	}
}

// Validate checks that every term is set.
func (v Vocabulary) Validate() error {
	terms := []struct {
		name, val string
	}{
		{"variable_type", v.VariableType},
		{"intention_property", v.IntentionProperty},
		{"id_property", v.IDProperty},
		{"state_property", v.StateProperty},
		{"block_property", v.BlockProperty},
		{"block_class", v.BlockClass},
	}
	for _, term := range terms {
		if term.val == "" {
			return fmt.Errorf("vocabulary: %s is required", term.name)
		}
	}
	return nil
}

func (v Vocabulary) blockMarkup() string {
	return fmt.Sprintf(`<div class="%s" contenteditable="false" property="%s">&nbsp;</div>`,
		html.EscapeString(v.BlockClass), html.EscapeString(v.BlockProperty))
}

func (v Vocabulary) stateMarkup(s State) string {
	val := html.EscapeString(string(s))
	return fmt.Sprintf(`<div property="%s" content="%s">%s</div>`,
		html.EscapeString(v.StateProperty), val, val)
}
