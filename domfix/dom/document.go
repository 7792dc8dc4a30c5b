// Package dom is the in-memory DOM the reconciler works on. It wraps
// golang.org/x/net/html nodes with element helpers (selectors, inline
// styles, token-list attributes) and reports every write on an attached
// node to registered observers as a mutation.Record, the way a browser
// MutationObserver would.
//
// A Document is not safe for concurrent use. The engine owns it from a
// single loop goroutine.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

// Document is a parsed HTML document with mutation observation.
type Document struct {
	root      *html.Node
	observers []observerEntry
	nextObs   int
}

type observerEntry struct {
	id int
	fn func(mutation.Record)
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses a full HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Reset replaces the whole tree with a freshly parsed document. Observers
// are kept but not notified: a reset is a reload, not a mutation.
func (d *Document) Reset(r io.Reader) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("dom: reset: %w", err)
	}
	d.root = root
	return nil
}

// Observe registers fn to receive every mutation record. The returned
// function unregisters it.
func (d *Document) Observe(fn func(mutation.Record)) (cancel func()) {
	d.nextObs++
	id := d.nextObs
	d.observers = append(d.observers, observerEntry{id: id, fn: fn})
	return func() {
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) emit(rec mutation.Record) {
	// Copy so observers may unregister while being notified.
	obs := append([]observerEntry(nil), d.observers...)
	for _, o := range obs {
		o.fn(rec)
	}
}

// Node returns the underlying document node.
func (d *Document) Node() *html.Node { return d.root }

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Element {
	return d.QuerySelector("body")
}

// Select returns all elements matching sel in document order. An invalid
// selector yields nil.
func (d *Document) Select(sel string) []*Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return d.SelectCompiled(s)
}

// SelectCompiled returns all elements matching a compiled selector.
func (d *Document) SelectCompiled(s Selector) []*Element {
	return d.wrapAll(s.selectNodes(d.root))
}

// QuerySelector returns the first element matching sel, or nil.
func (d *Document) QuerySelector(sel string) *Element {
	all := d.Select(sel)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// ByID returns the element with the given id attribute, or nil.
func (d *Document) ByID(id string) *Element {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && getAttr(n, "id") == id {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// CreateElement returns a detached element. Writes on it are silent until
// it is inserted.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

// ParseFragment parses an HTML fragment in a <div> context and returns the
// resulting detached top-level nodes.
func (d *Document) ParseFragment(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// Render serialises the whole document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{n: n, doc: d}
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = d.wrap(n)
	}
	return out
}

// attached reports whether n is part of the document tree.
func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ErrNotOwned is returned when removing an element domfix did not insert.
var ErrNotOwned = errors.New("dom: element not owned by domfix")

// ErrAttached is returned when inserting a node that already has a parent.
var ErrAttached = errors.New("dom: node already attached")
