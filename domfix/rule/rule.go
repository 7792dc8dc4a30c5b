// Package rule holds the declarative fix registry: each Rule maps a
// selector and condition to an idempotent styling or structural fix,
// scoped to one or more screens.
package rule

import (
	"github.com/hazyhaar/domfix/domfix/dom"
)

// AnyScreen scopes a rule to every screen.
const AnyScreen = "*"

// Predicate filters matched elements. A nil Predicate accepts everything.
type Predicate func(el *dom.Element) bool

// ApplyFunc performs the fix on one element. It must be idempotent: a second
// call on an already fixed element changes nothing.
type ApplyFunc func(el *dom.Element) error

// Rule is one registered fix.
type Rule struct {
	ID          string
	Selector    string
	Screens     []string // screen IDs, or AnyScreen
	AppliesWhen Predicate
	Apply       ApplyFunc
	// IdempotencyKey is the marker token recorded on fixed elements.
	// Defaults to ID.
	IdempotencyKey string

	sel dom.Selector
}

// Key returns the marker token for this rule.
func (r Rule) Key() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return r.ID
}

// Select returns the elements under scope matching the rule's selector, in
// document order.
func (r Rule) Select(scope *dom.Element) []*dom.Element {
	sel := r.sel
	if sel.IsZero() {
		var err error
		if sel, err = dom.Compile(r.Selector); err != nil {
			return nil
		}
	}
	return scope.SelectCompiled(sel)
}

// Accepts runs the AppliesWhen predicate.
func (r Rule) Accepts(el *dom.Element) bool {
	return r.AppliesWhen == nil || r.AppliesWhen(el)
}

func (r Rule) scopedTo(screenID string) bool {
	for _, s := range r.Screens {
		if s == AnyScreen || s == screenID {
			return true
		}
	}
	return false
}

// ScreenDescriptor scopes reconciliation to a screen. Root is the selector of
// the screen container under the observed root; empty means the observed
// root itself. RuleIDs adds rules to the screen on top of those declaring
// the screen in Rule.Screens.
type ScreenDescriptor struct {
	ScreenID string   `yaml:"id" json:"id"`
	Root     string   `yaml:"root" json:"root,omitempty"`
	RuleIDs  []string `yaml:"rules" json:"rules,omitempty"`
}
