package engine

import (
	"golang.org/x/net/html"

	"github.com/roach88/varsync/internal/canon"
	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/store"
	"github.com/roach88/varsync/internal/variables"
)

// recordingEditor decorates an editor and records every mutation that the
// editor accepted. Rejected mutations are not recorded.
//
// Targets are recorded by description, not by node: a journal outlives
// the tree it describes.
type recordingEditor struct {
	variables.Editor
	recorded []store.Mutation
	// fault holds the first error from fingerprinting; recording goes on
	fault error
}

func newRecordingEditor(inner variables.Editor) *recordingEditor {
	return &recordingEditor{Editor: inner}
}

func (r *recordingEditor) ReplaceNodeWithHTML(target *html.Node, markup string, createContainer bool, origins []dom.Origin) error {
	var parent, prev *html.Node
	if target != nil {
		parent, prev = target.Parent, target.PrevSibling
	}
	if err := r.Editor.ReplaceNodeWithHTML(target, markup, createContainer, origins); err != nil {
		return err
	}

	// the replacement usually carries the id the target had before the
	// caller cleared it, so describe what now sits in its place
	var first *html.Node
	switch {
	case prev != nil:
		first = prev.NextSibling
	case parent != nil:
		first = parent.FirstChild
	}
	label := dom.Describe(first)
	if label == "" {
		label = dom.Describe(target)
	}
	r.record(dom.MutationReplace, label, markup, origins)
	return nil
}

func (r *recordingEditor) RemoveNode(node *html.Node, origins []dom.Origin) error {
	label := dom.Describe(node)
	if err := r.Editor.RemoveNode(node, origins); err != nil {
		return err
	}
	r.record(dom.MutationRemove, label, "", origins)
	return nil
}

func (r *recordingEditor) PrependChildrenHTML(parent *html.Node, markup string, returnInserted bool, origins []dom.Origin) ([]*html.Node, error) {
	inserted, err := r.Editor.PrependChildrenHTML(parent, markup, returnInserted, origins)
	if err != nil {
		return nil, err
	}
	label := dom.Describe(parent)
	if parent == r.Editor.Root() {
		label = "#root"
	}
	r.record(dom.MutationPrepend, label, markup, origins)
	return inserted, nil
}

func (r *recordingEditor) record(kind dom.MutationKind, target, markup string, origins []dom.Origin) {
	fp, err := canon.MutationFingerprint(string(kind), target, markup)
	if err != nil && r.fault == nil {
		r.fault = err
	}
	tags := make([]string, len(origins))
	for i, o := range origins {
		tags[i] = string(o)
	}
	r.recorded = append(r.recorded, store.Mutation{
		Ord:         len(r.recorded),
		Kind:        string(kind),
		Target:      target,
		Fingerprint: fp,
		Origins:     tags,
	})
}

// Mutations returns the recorded mutations in application order.
func (r *recordingEditor) Mutations() []store.Mutation {
	return r.recorded
}
