package reconcile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/rule"
)

const page = `<html><body><div id="screen">
<div class="row" data-badge="a.png"><div class="icon"></div></div>
<div class="row"><div class="icon"></div></div>
<div class="row" data-badge="c.png"><div class="icon"></div></div>
</div></body></html>`

func parse(t *testing.T) (*dom.Document, *dom.Element) {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return doc, doc.ByID("screen")
}

// badgeRules inserts a badge then styles it; the second rule depends on the
// first having run earlier in the same pass.
func badgeRules() []rule.Rule {
	return []rule.Rule{
		{
			ID:       "badge-insert",
			Selector: ".row",
			AppliesWhen: func(el *dom.Element) bool {
				return el.GetAttr("data-badge") != "" && el.QuerySelector(".badge") == nil
			},
			Apply: func(el *dom.Element) error {
				img := el.Document().CreateElement("img")
				img.SetAttr("class", "badge")
				img.SetAttr("src", el.GetAttr("data-badge"))
				img.SetAttr(dom.OwnerAttr, "badge-insert")
				return el.QuerySelector(".icon").AppendChild(img)
			},
		},
		{
			ID:       "badge-style",
			Selector: ".badge",
			Apply: func(el *dom.Element) error {
				el.SetStyles(dom.D("width", "16px"), dom.D("height", "16px"))
				return nil
			},
		},
	}
}

func TestReconcileFixedPoint(t *testing.T) {
	doc, scope := parse(t)
	r := New(Config{})

	first, err := r.Reconcile(scope, badgeRules())
	if err != nil {
		t.Fatal(err)
	}
	if first.Applied != 4 {
		t.Errorf("Applied: got %d, want 4 (2 inserts + 2 styles)", first.Applied)
	}
	if first.Filtered != 1 {
		t.Errorf("Filtered: got %d, want 1", first.Filtered)
	}
	if len(first.Records) == 0 {
		t.Fatal("first pass produced no records")
	}
	after := doc.Render()

	second, err := r.Reconcile(scope, badgeRules())
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Records) != 0 {
		t.Errorf("second pass records: got %d, want 0: %+v", len(second.Records), second.Records)
	}
	if diff := cmp.Diff(after, doc.Render()); diff != "" {
		t.Errorf("second pass changed the DOM (-first +second):\n%s", diff)
	}
	if got := len(doc.Select(".badge")); got != 2 {
		t.Errorf("badges: got %d, want 2", got)
	}
	for _, b := range doc.Select(".badge") {
		if b.Style("width") != "16px" {
			t.Errorf("badge not styled: %s", b.OuterHTML())
		}
	}
}

func TestReconcileFaultIsolation(t *testing.T) {
	doc, scope := parse(t)
	r := New(Config{})

	rules := []rule.Rule{
		{ID: "panics", Selector: ".row", Apply: func(*dom.Element) error { panic("boom") }},
		{ID: "errors", Selector: ".row", Apply: func(*dom.Element) error { return errors.New("nope") }},
		{ID: "predicate-panics", Selector: ".icon", AppliesWhen: func(*dom.Element) bool { panic("bad predicate") },
			Apply: func(*dom.Element) error { return nil }},
		{ID: "works", Selector: ".row", Apply: func(el *dom.Element) error {
			el.SetStyle("display", "flex")
			return nil
		}},
	}

	res, err := r.Reconcile(scope, rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 9 {
		t.Errorf("Failures: got %d, want 9", len(res.Failures))
	}
	for _, f := range res.Failures {
		if !errors.Is(f, ErrRuleApplication) {
			t.Errorf("failure %v does not match ErrRuleApplication", f)
		}
	}
	if !res.Failures[0].Panic || res.Failures[0].RuleID != "panics" {
		t.Errorf("first failure: %+v", res.Failures[0])
	}
	for _, row := range doc.Select(".row") {
		if row.Style("display") != "flex" {
			t.Errorf("later rule did not run on %s", row.XPath())
		}
		if row.HasToken(DefaultMarkerAttr, "panics") || row.HasToken(DefaultMarkerAttr, "errors") {
			t.Errorf("failed rule marked element %s", row.XPath())
		}
	}
	if r.Active() {
		t.Error("Active after pass: got true")
	}
}

func TestReconcileRetriesFailedElements(t *testing.T) {
	_, scope := parse(t)
	r := New(Config{})
	calls := 0
	flaky := []rule.Rule{{ID: "flaky", Selector: "#screen > .row", Apply: func(el *dom.Element) error {
		calls++
		if calls == 1 {
			return errors.New("first call fails")
		}
		return nil
	}}}

	if _, err := r.Reconcile(scope, flaky); err != nil {
		t.Fatal(err)
	}
	res, err := r.Reconcile(scope, flaky)
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied != 1 || res.Skipped != 2 {
		t.Errorf("second pass: applied=%d skipped=%d, want 1 and 2", res.Applied, res.Skipped)
	}
}

func TestReconcileReentrancy(t *testing.T) {
	_, scope := parse(t)
	r := New(Config{})
	var inner error
	rules := []rule.Rule{{ID: "recurse", Selector: "#screen > .row", Apply: func(el *dom.Element) error {
		_, inner = r.Reconcile(scope, nil)
		return nil
	}}}
	if _, err := r.Reconcile(scope, rules); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrReentrancy) {
		t.Errorf("nested pass: got %v, want ErrReentrancy", inner)
	}
}

func TestReconcileMissing(t *testing.T) {
	_, scope := parse(t)
	r := New(Config{MarkerAttr: "data-done"})
	rules := []rule.Rule{{ID: "ghost", Selector: ".does-not-exist", Apply: func(*dom.Element) error { return nil }}}
	res, err := r.Reconcile(scope, rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Missing) != 1 || !errors.Is(res.Missing[0], ErrMissingElement) || res.Missing[0].RuleID != "ghost" {
		t.Errorf("Missing: %+v", res.Missing)
	}
	if len(res.Records) != 0 {
		t.Errorf("Records: got %d, want 0", len(res.Records))
	}

	if _, err := r.Reconcile(nil, rules); !errors.Is(err, ErrMissingElement) {
		t.Errorf("nil scope: got %v, want ErrMissingElement", err)
	}
}

func TestReconcileCustomMarker(t *testing.T) {
	doc, scope := parse(t)
	r := New(Config{MarkerAttr: "data-done"})
	rules := []rule.Rule{{ID: "r", IdempotencyKey: "k", Selector: "#screen > .row", Apply: func(*dom.Element) error { return nil }}}
	if _, err := r.Reconcile(scope, rules); err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Select(`.row[data-done="k"]`)); got != 3 {
		t.Errorf("marked rows: got %d, want 3", got)
	}
}
