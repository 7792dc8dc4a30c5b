// CLAUDE:SUMMARY Computes element XPaths and resolves them back to nodes for record replay.
package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// xpathOf computes the XPath of an element node. Same-tag siblings get a
// 1-based index only when the tag is not unique among its siblings, the
// same convention the live page resolver uses.
func xpathOf(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		parts = append(parts, step(cur))
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func step(n *html.Node) string {
	name := n.Data
	if n.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != name {
			continue
		}
		total++
		if c == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}

// Resolve returns the element at an XPath produced by XPath, or nil.
func (d *Document) Resolve(xpath string) *Element {
	if !strings.HasPrefix(xpath, "/") {
		return nil
	}
	cur := d.root
	for _, seg := range strings.Split(xpath[1:], "/") {
		name, idx := seg, 1
		if open := strings.IndexByte(seg, '['); open >= 0 && strings.HasSuffix(seg, "]") {
			n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
			if err != nil || n < 1 {
				return nil
			}
			name, idx = seg[:open], n
		}
		var next *html.Node
		seen := 0
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == name {
				seen++
				if seen == idx {
					next = c
					break
				}
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	if cur == d.root {
		return nil
	}
	return d.wrap(cur)
}
