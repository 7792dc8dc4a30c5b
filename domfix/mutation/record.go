// Package mutation defines the structured types emitted by domfix.
// Records describe single DOM writes; a Pass groups the records and
// outcome of one reconciliation pass. Sinks, the ledger and the live page
// driver all consume these types.
package mutation

// Op is the type of DOM mutation.
type Op string

const (
	OpInsert  Op = "insert"   // child inserted (XPath = parent, Index = position, HTML = subtree)
	OpRemove  Op = "remove"   // node removed (XPath = removed node)
	OpText    Op = "text"     // element text content replaced
	OpAttr    Op = "attr"     // attribute set
	OpAttrDel Op = "attr_del" // attribute removed
)

// Record is a single DOM mutation.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath"`
	Index    int    `json:"index,omitempty"` // child position for insert
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`      // attribute name for attr/attr_del
	Value    string `json:"value,omitempty"`     // new value
	OldValue string `json:"old_value,omitempty"` // previous value
	HTML     string `json:"html,omitempty"`      // serialised subtree for insert
}

// ChildList reports whether the record changes the tree structure.
func (r Record) ChildList() bool {
	return r.Op == OpInsert || r.Op == OpRemove
}

// Attribute reports whether the record changes an attribute.
func (r Record) Attribute() bool {
	return r.Op == OpAttr || r.Op == OpAttrDel
}
