package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Contains reports whether n is ancestor itself or one of its descendants.
func Contains(ancestor, n *html.Node) bool {
	if ancestor == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Walk visits the descendants of scope in document order, excluding scope.
// Returning false from fn stops the walk.
func Walk(scope *html.Node, fn func(*html.Node) bool) {
	if scope == nil {
		return
	}
	var stack []*html.Node
	for c := scope.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// Clone returns a detached deep copy of n.
func Clone(n *html.Node) *html.Node {
	type pending struct {
		src, parent *html.Node
	}
	root := shallowClone(n)
	var stack []pending
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, pending{c, root})
	}
	// children are pushed in reverse, so popping yields document order and
	// AppendChild keeps it
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cp := shallowClone(p.src)
		p.parent.AppendChild(cp)
		for c := p.src.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, pending{c, cp})
		}
	}
	return root
}

func shallowClone(n *html.Node) *html.Node {
	cp := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		cp.Attr = make([]html.Attribute, len(n.Attr))
		copy(cp.Attr, n.Attr)
	}
	return cp
}

// OuterHTML renders n including its own tag.
func OuterHTML(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// TextContent concatenates the text nodes below n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// Describe renders a short selector-like label for n, for logs and the
// journal: the id when present, otherwise the tag with its first RDFa
// attribute.
func Describe(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.TextNode:
		return "#text"
	case html.ElementNode:
	default:
		return "#node"
	}
	if id, ok := Attr(n, "id"); ok && id != "" {
		return "#" + id
	}
	for _, key := range []string{"property", "typeof"} {
		if v, ok := Attr(n, key); ok {
			return n.Data + "[" + key + "=" + v + "]"
		}
	}
	return n.Data
}
