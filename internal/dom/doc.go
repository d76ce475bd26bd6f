// Package dom is the host document varsync operates on.
//
// A Document is an HTML tree (golang.org/x/net/html) under a synthetic root
// element, plus the handful of editor capabilities the variable engine
// consumes: attribute-scoped queries, replace/remove/prepend with originator
// tags, focus tracking and caret re-anchoring.
//
// Every mutation made through the Document is appended to a mutation log
// together with the originator tags of the caller. Hosts turn a batch of
// logged mutations into the next change notification, which is how
// provenance travels from one pass to the next.
//
// Documents are not safe for concurrent use. Exactly one goroutine (the
// engine's single-writer loop) may mutate a Document at a time.
package dom
