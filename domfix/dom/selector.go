// CLAUDE:SUMMARY CSS selector subset (compound, descendant, child, groups) compiled and matched on x/net/html nodes.
package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned when a selector cannot be compiled.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Selector is a compiled CSS selector. Supported subset:
//   - tag, *, #id, .class (any number), tag.class#id
//   - [attr], [attr=val], [attr^=val], [attr$=val], [attr*=val], [attr~=val]
//   - descendant (space) and child (>) combinators
//   - groups separated by commas
type Selector struct {
	src    string
	groups []complexSelector
}

type complexSelector struct {
	parts []compound
	combs []byte // combs[i] joins parts[i] and parts[i+1]: ' ' or '>'
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSelector
}

type attrSelector struct {
	key string
	op  byte // 0 = exists, '=', '^', '$', '*', '~'
	val string
}

// Compile parses a selector.
func Compile(sel string) (Selector, error) {
	s := Selector{src: sel}
	for _, group := range splitTopLevel(sel, ',') {
		group = strings.TrimSpace(group)
		if group == "" {
			return Selector{}, fmt.Errorf("%w: empty group in %q", ErrInvalidSelector, sel)
		}
		cs, err := parseComplex(group)
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
		}
		s.groups = append(s.groups, cs)
	}
	if len(s.groups) == 0 {
		return Selector{}, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}
	return s, nil
}

// MustCompile is Compile that panics on error. For package-level selectors.
func MustCompile(sel string) Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source text.
func (s Selector) String() string { return s.src }

// IsZero reports whether the selector was never compiled.
func (s Selector) IsZero() bool { return len(s.groups) == 0 }

// Match reports whether n matches any group of the selector.
func (s Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, g := range s.groups {
		if g.matchAt(n, len(g.parts)-1) {
			return true
		}
	}
	return false
}

// selectNodes returns the descendants of root matching s, in document order.
// root itself is never included.
func (s Selector) selectNodes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if s.Match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

func (cs complexSelector) matchAt(n *html.Node, i int) bool {
	if !cs.parts[i].match(n) {
		return false
	}
	if i == 0 {
		return true
	}
	if cs.combs[i-1] == '>' {
		p := n.Parent
		return p != nil && p.Type == html.ElementNode && cs.matchAt(p, i-1)
	}
	for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if cs.matchAt(p, i-1) {
			return true
		}
	}
	return false
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		if !a.match(n) {
			return false
		}
	}
	return true
}

func (a attrSelector) match(n *html.Node) bool {
	val, ok := lookupAttr(n, a.key)
	if !ok {
		return false
	}
	switch a.op {
	case 0:
		return true
	case '=':
		return val == a.val
	case '^':
		return a.val != "" && strings.HasPrefix(val, a.val)
	case '$':
		return a.val != "" && strings.HasSuffix(val, a.val)
	case '*':
		return a.val != "" && strings.Contains(val, a.val)
	case '~':
		return containsString(strings.Fields(val), a.val)
	}
	return false
}

// parseComplex splits a group into compounds joined by combinators.
func parseComplex(sel string) (complexSelector, error) {
	var cs complexSelector
	var cur strings.Builder
	pending := byte(0)
	depth := 0
	var quote rune

	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		c, err := parseCompound(cur.String())
		if err != nil {
			return err
		}
		if len(cs.parts) > 0 {
			if pending == 0 {
				pending = ' '
			}
			cs.combs = append(cs.combs, pending)
		} else if pending == '>' {
			return errors.New("leading combinator")
		}
		cs.parts = append(cs.parts, c)
		cur.Reset()
		pending = 0
		return nil
	}

	for _, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case depth > 0:
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			if err := flush(); err != nil {
				return cs, err
			}
		case r == '>':
			if err := flush(); err != nil {
				return cs, err
			}
			if pending == '>' {
				return cs, errors.New("double combinator")
			}
			pending = '>'
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 || depth != 0 {
		return cs, errors.New("unterminated attribute selector")
	}
	if err := flush(); err != nil {
		return cs, err
	}
	if pending == '>' {
		return cs, errors.New("trailing combinator")
	}
	if len(cs.parts) == 0 {
		return cs, errors.New("empty selector")
	}
	return cs, nil
}

// parseCompound parses "tag.class#id[attr=val]" style compounds.
func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	if i < len(s) && s[i] == '*' {
		c.tag = "*"
		i++
	} else if i < len(s) && isIdentByte(s[i]) {
		j := scanIdent(s, i)
		c.tag = strings.ToLower(s[i:j])
		i = j
	}

	for i < len(s) {
		switch s[i] {
		case '#':
			j := scanIdent(s, i+1)
			if j == i+1 {
				return c, fmt.Errorf("empty id in %q", s)
			}
			c.id = s[i+1 : j]
			i = j
		case '.':
			j := scanIdent(s, i+1)
			if j == i+1 {
				return c, fmt.Errorf("empty class in %q", s)
			}
			c.classes = append(c.classes, s[i+1:j])
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated [ in %q", s)
			}
			a, err := parseAttr(s[i+1 : i+end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
			i += end + 1
		default:
			return c, fmt.Errorf("unsupported %q in %q", s[i], s)
		}
	}
	return c, nil
}

func parseAttr(body string) (attrSelector, error) {
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		key := strings.TrimSpace(body)
		if key == "" {
			return attrSelector{}, errors.New("empty attribute name")
		}
		return attrSelector{key: strings.ToLower(key)}, nil
	}

	key := body[:eq]
	var op byte = '='
	if n := len(key); n > 0 && strings.IndexByte("^$*~", key[n-1]) >= 0 {
		op = key[n-1]
		key = key[:n-1]
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return attrSelector{}, errors.New("empty attribute name")
	}
	val := strings.TrimSpace(body[eq+1:])
	val = strings.Trim(val, `"'`)
	return attrSelector{key: strings.ToLower(key), op: op, val: val}, nil
}

func scanIdent(s string, i int) int {
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return i
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
