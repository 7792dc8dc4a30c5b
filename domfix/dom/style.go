package dom

import "strings"

// Decl is one inline style declaration.
type Decl struct {
	Property string `yaml:"property" json:"property"`
	Value    string `yaml:"value" json:"value"`
}

// D is shorthand for a Decl literal.
func D(property, value string) Decl {
	return Decl{Property: property, Value: value}
}

// ParseStyle parses an inline style attribute into ordered declarations.
// Semicolons inside parentheses or quotes (data URIs, url("a;b")) do not
// split declarations. Property names are lowercased, values trimmed.
func ParseStyle(s string) []Decl {
	var decls []Decl
	for _, part := range splitTopLevel(s, ';') {
		colon := strings.IndexByte(part, ':')
		if colon < 0 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(part[:colon]))
		val := strings.TrimSpace(part[colon+1:])
		if prop == "" || val == "" {
			continue
		}
		decls = setDecl(decls, Decl{Property: prop, Value: val})
	}
	return decls
}

// FormatStyle serialises declarations back into an inline style string.
func FormatStyle(decls []Decl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Property+": "+d.Value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// styleValue returns the value of prop in decls.
func styleValue(decls []Decl, prop string) (string, bool) {
	prop = strings.ToLower(prop)
	for _, d := range decls {
		if d.Property == prop {
			return d.Value, true
		}
	}
	return "", false
}

// setDecl replaces an existing declaration in place or appends it.
func setDecl(decls []Decl, d Decl) []Decl {
	d.Property = strings.ToLower(strings.TrimSpace(d.Property))
	d.Value = strings.TrimSpace(d.Value)
	for i := range decls {
		if decls[i].Property == d.Property {
			decls[i].Value = d.Value
			return decls
		}
	}
	return append(decls, d)
}

func removeDecl(decls []Decl, prop string) ([]Decl, bool) {
	prop = strings.ToLower(prop)
	for i := range decls {
		if decls[i].Property == prop {
			return append(decls[:i], decls[i+1:]...), true
		}
	}
	return decls, false
}

func sameDecls(a, b []Decl) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
