package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

// OwnerAttr marks elements inserted by domfix. Only those may be removed
// through RemoveOwned.
const OwnerAttr = "data-fx-owner"

// Element is a handle on an element node. Handles are cheap; two handles on
// the same node are interchangeable (compare with Same).
type Element struct {
	n   *html.Node
	doc *Document
}

// Node returns the underlying html node.
func (e *Element) Node() *html.Node { return e.n }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Same reports whether both handles point at the same node.
func (e *Element) Same(o *Element) bool {
	return e != nil && o != nil && e.n == o.n
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string { return e.n.Data }

// ID returns the id attribute.
func (e *Element) ID() string { return getAttr(e.n, "id") }

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) { return lookupAttr(e.n, key) }

// GetAttr returns the attribute value or "".
func (e *Element) GetAttr(key string) string { return getAttr(e.n, key) }

// Attached reports whether the element is part of the document tree.
func (e *Element) Attached() bool { return e.doc.attached(e.n) }

// XPath returns the element's XPath in the document.
func (e *Element) XPath() string { return xpathOf(e.n) }

// SetAttr sets an attribute. Setting the current value is a no-op and
// produces no mutation record.
func (e *Element) SetAttr(key, val string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return
			}
			old := a.Val
			e.n.Attr[i].Val = val
			e.emitAttr(mutation.OpAttr, key, val, old)
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
	e.emitAttr(mutation.OpAttr, key, val, "")
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			e.emitAttr(mutation.OpAttrDel, key, "", a.Val)
			return
		}
	}
}

func (e *Element) emitAttr(op mutation.Op, key, val, old string) {
	if !e.Attached() {
		return
	}
	e.doc.emit(mutation.Record{
		Op:       op,
		XPath:    e.XPath(),
		Tag:      e.n.Data,
		Name:     key,
		Value:    val,
		OldValue: old,
	})
}

// HasToken reports whether the space-separated attribute attr contains tok.
func (e *Element) HasToken(attr, tok string) bool {
	return containsString(strings.Fields(getAttr(e.n, attr)), tok)
}

// AddToken appends tok to the space-separated attribute attr.
func (e *Element) AddToken(attr, tok string) {
	toks := strings.Fields(getAttr(e.n, attr))
	if containsString(toks, tok) {
		return
	}
	e.SetAttr(attr, strings.Join(append(toks, tok), " "))
}

// RemoveToken removes tok from the space-separated attribute attr.
func (e *Element) RemoveToken(attr, tok string) {
	toks := strings.Fields(getAttr(e.n, attr))
	kept := toks[:0]
	for _, t := range toks {
		if t != tok {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(toks) {
		return
	}
	e.SetAttr(attr, strings.Join(kept, " "))
}

// HasClass reports whether the element carries class c.
func (e *Element) HasClass(c string) bool { return e.HasToken("class", c) }

// AddClass adds class c.
func (e *Element) AddClass(c string) { e.AddToken("class", c) }

// RemoveClass removes class c.
func (e *Element) RemoveClass(c string) { e.RemoveToken("class", c) }

// Style returns the inline value of a style property.
func (e *Element) Style(prop string) string {
	v, _ := styleValue(ParseStyle(getAttr(e.n, "style")), prop)
	return v
}

// SetStyle sets one inline style property.
func (e *Element) SetStyle(prop, val string) {
	e.SetStyles(D(prop, val))
}

// SetStyles sets several inline style properties with a single attribute
// write. If every declaration already holds, nothing is written.
func (e *Element) SetStyles(decls ...Decl) {
	raw, had := lookupAttr(e.n, "style")
	cur := ParseStyle(raw)
	next := append([]Decl(nil), cur...)
	for _, d := range decls {
		next = setDecl(next, d)
	}
	if had && sameDecls(cur, next) {
		return
	}
	if !had && len(next) == 0 {
		return
	}
	e.SetAttr("style", FormatStyle(next))
}

// RemoveStyle removes one inline style property.
func (e *Element) RemoveStyle(prop string) {
	cur := ParseStyle(getAttr(e.n, "style"))
	next, ok := removeDecl(cur, prop)
	if !ok {
		return
	}
	e.SetAttr("style", FormatStyle(next))
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}

// SetText replaces the element's children with a single text node. A no-op
// when the element already holds exactly that text.
func (e *Element) SetText(s string) {
	if c := e.n.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode && c.Data == s {
		return
	}
	if e.n.FirstChild == nil && s == "" {
		return
	}
	old := e.Text()
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	if s != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	if e.Attached() {
		e.doc.emit(mutation.Record{Op: mutation.OpText, XPath: e.XPath(), Tag: e.n.Data, Value: s, OldValue: old})
	}
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children returns the element children in order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Matches reports whether the element matches a compiled selector.
func (e *Element) Matches(s Selector) bool { return s.Match(e.n) }

// Select returns descendants matching sel in document order. An invalid
// selector yields nil.
func (e *Element) Select(sel string) []*Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return e.SelectCompiled(s)
}

// SelectCompiled returns descendants matching a compiled selector.
func (e *Element) SelectCompiled(s Selector) []*Element {
	return e.doc.wrapAll(s.selectNodes(e.n))
}

// QuerySelector returns the first descendant matching sel, or nil.
func (e *Element) QuerySelector(sel string) *Element {
	all := e.Select(sel)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// Closest returns the nearest ancestor-or-self matching sel, or nil.
func (e *Element) Closest(sel string) *Element {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	for n := e.n; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if s.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// AppendChild appends a detached element.
func (e *Element) AppendChild(child *Element) error {
	return e.insertNode(child.n, nil)
}

// InsertBefore inserts a detached element before ref. A nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) error {
	var refNode *html.Node
	if ref != nil {
		if ref.n.Parent != e.n {
			return fmt.Errorf("dom: insert before: reference is not a child")
		}
		refNode = ref.n
	}
	return e.insertNode(child.n, refNode)
}

// PrependChild inserts a detached element as the first child.
func (e *Element) PrependChild(child *Element) error {
	return e.insertNode(child.n, e.n.FirstChild)
}

// AppendHTML parses fragment and appends its top-level nodes. It returns the
// inserted elements.
func (e *Element) AppendHTML(fragment string) ([]*Element, error) {
	nodes, err := e.doc.ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	var out []*Element
	for _, n := range nodes {
		if err := e.insertNode(n, nil); err != nil {
			return out, err
		}
		if n.Type == html.ElementNode {
			out = append(out, e.doc.wrap(n))
		}
	}
	return out, nil
}

func (e *Element) insertNode(n, ref *html.Node) error {
	if n.Parent != nil {
		return ErrAttached
	}
	e.n.InsertBefore(n, ref)
	if !e.Attached() {
		return nil
	}
	idx := 0
	for c := e.n.FirstChild; c != n; c = c.NextSibling {
		idx++
	}
	e.doc.emit(mutation.Record{
		Op:    mutation.OpInsert,
		XPath: e.XPath(),
		Index: idx,
		Tag:   n.Data,
		HTML:  renderNode(n),
	})
	return nil
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	p := e.n.Parent
	if p == nil {
		return
	}
	attached := e.Attached()
	xpath := e.XPath()
	p.RemoveChild(e.n)
	if attached {
		e.doc.emit(mutation.Record{Op: mutation.OpRemove, XPath: xpath, Tag: e.n.Data})
	}
}

// IsOwned reports whether domfix inserted this element.
func (e *Element) IsOwned() bool {
	_, ok := lookupAttr(e.n, OwnerAttr)
	return ok
}

// RemoveOwned removes the element only if domfix inserted it.
func (e *Element) RemoveOwned() error {
	if !e.IsOwned() {
		return fmt.Errorf("%w: %s", ErrNotOwned, e.XPath())
	}
	e.Remove()
	return nil
}

// OuterHTML serialises the element and its subtree.
func (e *Element) OuterHTML() string { return renderNode(e.n) }

// InnerHTML serialises the element's children.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderNode(c))
	}
	return b.String()
}
