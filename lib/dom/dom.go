// Package dom is a small document model over golang.org/x/net/html.
//
// It provides the handful of structural operations the reconciler needs:
// locating <head> and <body>, resolving CSS selectors, moving and swapping
// nodes between trees, and reading or writing script text. Nodes always move;
// nothing is deep-copied except where a fresh element is explicitly built.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoBody is returned by Parse when the parsed tree has no <body> element
// (for example a <frameset> document).
var ErrNoBody = errors.New("dom: document has no body")

// Document is an HTML document tree rooted at an html.DocumentNode.
type Document struct {
	Root *html.Node
}

// Parse parses r as a full HTML document. Malformed markup is repaired the
// way browsers do it; only read errors or a missing body fail.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	doc := &Document{Root: root}
	if doc.Body() == nil {
		return nil, ErrNoBody
	}
	return doc, nil
}

// ParseString parses s as a full HTML document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is like ParseString but panics on error. Intended for fixtures.
func MustParse(s string) *Document {
	doc, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return doc
}

// Element returns the <html> element.
func (d *Document) Element() *html.Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return childElement(d.Root, atom.Html)
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return childElement(d.Element(), atom.Head)
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return childElement(d.Element(), atom.Body)
}

// Title returns the text of the first <title> in the head.
func (d *Document) Title() string {
	head := d.Head()
	if head == nil {
		return ""
	}
	if t := FindFirst(head, atom.Title); t != nil {
		return strings.TrimSpace(Text(t))
	}
	return ""
}

// HTML serializes the whole document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Query returns the first element under the body matching the CSS selector.
// The body itself is a candidate.
func (d *Document) Query(selector string) (*html.Node, error) {
	body := d.Body()
	if body == nil {
		return nil, ErrNoBody
	}
	return QueryFirst(body, selector)
}

// QueryFirst compiles selector and returns the first match at or below n.
// A nil node and nil error means nothing matched.
func QueryFirst(n *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchFirst(n), nil
}

// QueryAll returns every match at or below n, in document order.
func QueryAll(n *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchAll(n), nil
}

// OuterHTML serializes n including its own tag.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// Replace puts repl where old is. repl is detached from its current parent
// first, so this is a move, not a copy.
func Replace(old, repl *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	Detach(repl)
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren empties n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// MoveChildren moves every child of src to the end of dst, keeping order.
func MoveChildren(dst, src *html.Node) {
	for c := src.FirstChild; c != nil; c = src.FirstChild {
		src.RemoveChild(c)
		dst.AppendChild(c)
	}
}

// FindAll returns every element below n (n included) with the given tag, in
// document order.
func FindAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// FindFirst returns the first element below n (n included) with the given tag.
func FindFirst(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key on n, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Text returns the concatenated text content below n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// SetText replaces the children of n with a single text node. An empty
// string leaves n with no children.
func SetText(n *html.Node, s string) {
	RemoveChildren(n)
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// NewElement builds a detached element carrying a copy of attrs.
func NewElement(a atom.Atom, attrs []html.Attribute) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	if len(attrs) > 0 {
		n.Attr = append([]html.Attribute(nil), attrs...)
	}
	return n
}

func childElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}
