package harness

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/variables"
)

// AssertionError is returned when an assertion fails.
// It includes the final document to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Document string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Document != "" {
		fmt.Fprintf(&buf, "\nDocument:\n  %s\n", e.Document)
	}
	return buf.String()
}

// EvaluateAssertions checks all assertions against the final document and
// the step results. Returns the messages of the failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, doc *dom.Document, vocab variables.Vocabulary) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, doc, vocab); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, doc *dom.Document, vocab variables.Vocabulary) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     a.Type,
			Expected: expected,
			Actual:   actual,
			Document: result.Document,
		}
	}

	switch a.Type {
	case AssertContent:
		n := doc.NodeByID(a.ID)
		if n == nil {
			return fail(fmt.Sprintf("element %s with text %q", a.ID, a.Text), "no such element")
		}
		if got := dom.TextContent(n); got != a.Text {
			return fail(fmt.Sprintf("element %s with text %q", a.ID, a.Text), fmt.Sprintf("%q", got))
		}

	case AssertState:
		metas := descriptorsFor(doc, vocab, a.ID)
		if len(metas) == 0 {
			return fail(fmt.Sprintf("descriptor for %s", a.ID), "no descriptor")
		}
		got := stateOf(metas[0], vocab)
		if got != a.State {
			return fail(fmt.Sprintf("state %q for %s", a.State, a.ID), fmt.Sprintf("state %q", got))
		}

	case AssertDescriptorAbsent:
		if metas := descriptorsFor(doc, vocab, a.ID); len(metas) > 0 {
			return fail(fmt.Sprintf("no descriptor for %s", a.ID), fmt.Sprintf("%d descriptors", len(metas)))
		}

	case AssertBlockCount:
		got := len(doc.QueryAttr(doc.Root(), "property", vocab.BlockProperty))
		if got != *a.Count {
			return fail(fmt.Sprintf("%d blocks", *a.Count), fmt.Sprintf("%d blocks", got))
		}

	case AssertDescriptorCount:
		got := 0
		for _, meta := range doc.QueryAttr(doc.Root(), "typeof", vocab.VariableType) {
			if a.Intention == "" || propertyContent(meta, vocab.IntentionProperty) == a.Intention {
				got++
			}
		}
		if got != *a.Count {
			return fail(fmt.Sprintf("%d descriptors", *a.Count), fmt.Sprintf("%d descriptors", got))
		}

	case AssertMutations:
		got := result.TotalMutations()
		where := "all steps"
		if a.Step != nil {
			got = len(result.Steps[*a.Step].Mutations)
			where = fmt.Sprintf("step %d", *a.Step)
		}
		if got != *a.Count {
			return fail(fmt.Sprintf("%d mutations in %s", *a.Count, where), fmt.Sprintf("%d mutations", got))
		}

	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func descriptorsFor(doc *dom.Document, vocab variables.Vocabulary, id string) []*html.Node {
	var out []*html.Node
	for _, meta := range doc.QueryAttr(doc.Root(), "typeof", vocab.VariableType) {
		if propertyContent(meta, vocab.IDProperty) == id {
			out = append(out, meta)
		}
	}
	return out
}

func stateOf(meta *html.Node, vocab variables.Vocabulary) string {
	return propertyContent(meta, vocab.StateProperty)
}

// propertyContent reads the content attribute of the direct child of meta
// carrying property.
func propertyContent(meta *html.Node, property string) string {
	for c := meta.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if p, _ := dom.Attr(c, "property"); p == property {
			v, _ := dom.Attr(c, "content")
			return v
		}
	}
	return ""
}
