package rule

import (
	"errors"
	"testing"

	"github.com/hazyhaar/domfix/domfix/dom"
)

func noop(*dom.Element) error { return nil }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Rule{ID: "badge", Selector: ".token-item", Screens: []string{"wallet"}, Apply: noop}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(Rule{ID: "badge", Selector: ".other", Apply: noop})
	if !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("duplicate: got %v, want ErrDuplicateRule", err)
	}
	var dup *DuplicateRuleError
	if !errors.As(err, &dup) || dup.ID != "badge" {
		t.Errorf("DuplicateRuleError: got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len: got %d, want 1", r.Len())
	}
}

func TestRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"no id", Rule{Selector: "div", Apply: noop}, ErrInvalidRule},
		{"no apply", Rule{ID: "x", Selector: "div"}, ErrInvalidRule},
		{"bad selector", Rule{ID: "x", Selector: "div:hover", Apply: noop}, dom.ErrInvalidSelector},
	}
	for _, tt := range tests {
		if err := r.Register(tt.rule); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestFreeze(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Rule{ID: "a", Selector: "div", Screens: []string{AnyScreen}, Apply: noop})
	r.Freeze()
	if !r.Frozen() {
		t.Fatal("Frozen: got false")
	}
	if err := r.Register(Rule{ID: "b", Selector: "div", Apply: noop}); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("register after freeze: got %v", err)
	}
	if err := r.Describe(ScreenDescriptor{ScreenID: "wallet"}); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("describe after freeze: got %v", err)
	}
}

func TestRulesForScreenOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Rule{ID: "badge-insert", Selector: ".token-item", Screens: []string{"wallet"}, Apply: noop},
		Rule{ID: "detail-only", Selector: ".actions", Screens: []string{"detail"}, Apply: noop},
		Rule{ID: "everywhere", Selector: "body", Screens: []string{AnyScreen}, Apply: noop},
		Rule{ID: "listed", Selector: ".x", Apply: noop},
		Rule{ID: "badge-style", Selector: ".chain-badge", Screens: []string{"wallet"}, Apply: noop},
	)
	if err := r.Describe(ScreenDescriptor{ScreenID: "wallet", Root: "#wallet-screen", RuleIDs: []string{"listed"}}); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, rl := range r.RulesForScreen("wallet") {
		ids = append(ids, rl.ID)
	}
	want := []string{"badge-insert", "everywhere", "listed", "badge-style"}
	if len(ids) != len(want) {
		t.Fatalf("RulesForScreen: got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("RulesForScreen: got %v, want %v", ids, want)
		}
	}

	if got := r.RulesForScreen("settings"); len(got) != 1 || got[0].ID != "everywhere" {
		t.Errorf("settings: got %d rules", len(got))
	}
}

func TestRuleKeyDefaultsToID(t *testing.T) {
	if k := (Rule{ID: "a"}).Key(); k != "a" {
		t.Errorf("Key: got %q", k)
	}
	if k := (Rule{ID: "a", IdempotencyKey: "badge"}).Key(); k != "badge" {
		t.Errorf("Key: got %q", k)
	}
}

func TestDescribeInvalidRoot(t *testing.T) {
	r := NewRegistry()
	if err := r.Describe(ScreenDescriptor{ScreenID: "w", Root: "#a >"}); !errors.Is(err, dom.ErrInvalidSelector) {
		t.Errorf("Describe: got %v", err)
	}
	if err := r.Describe(ScreenDescriptor{}); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Describe without id: got %v", err)
	}
}
