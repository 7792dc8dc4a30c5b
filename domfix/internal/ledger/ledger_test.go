package ledger

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/domfix/dbopen"
	"github.com/hazyhaar/domfix/domfix/mutation"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)))
}

func pass(id string, seq uint64, screen string, at int64, failures ...mutation.Failure) *mutation.Pass {
	return &mutation.Pass{
		ID:        id,
		Seq:       seq,
		ScreenID:  screen,
		Trigger:   mutation.TriggerMutation,
		Applied:   1,
		Failures:  failures,
		Records:   []mutation.Record{{Op: mutation.OpAttr, XPath: "/html/body", Name: "style", Value: "x: y;"}},
		StartedAt: at,
		Duration:  42,
	}
}

func TestInsertAndGet(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	p := pass("p1", 1, "wallet", 1000, mutation.Failure{RuleID: "token-network-badge", XPath: "/html/body/div", Error: "boom"})
	if err := l.Insert(ctx, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := l.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
	if _, err := l.Get(ctx, "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get missing: got %v, want sql.ErrNoRows", err)
	}
	if err := l.Insert(ctx, p); err == nil {
		t.Error("duplicate Insert: want error")
	}
}

func TestRecent(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	for i, screen := range []string{"wallet", "token-detail", "wallet", "send"} {
		id := string(rune('a' + i))
		if err := l.Send(ctx, pass(id, uint64(i+1), screen, int64(1000+i))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := l.Recent(ctx, Query{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"d", "c", "b"}, ids); diff != "" {
		t.Errorf("Recent order mismatch (-want +got):\n%s", diff)
	}

	wallet, err := l.Recent(ctx, Query{ScreenID: "wallet"})
	if err != nil {
		t.Fatal(err)
	}
	if len(wallet) != 2 || wallet[0].ID != "c" {
		t.Errorf("Recent(wallet): got %d passes", len(wallet))
	}
}

func TestFailuresAndPrune(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	fail := mutation.Failure{RuleID: "staking-banner", Error: "boom"}
	l.Insert(ctx, pass("a", 1, "token-detail", 1, fail))
	l.Insert(ctx, pass("b", 2, "token-detail", 2, fail))
	l.Insert(ctx, pass("c", 3, "wallet", 3))

	counts, err := l.FailuresByRule(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{"staking-banner": 2}, counts); diff != "" {
		t.Errorf("FailuresByRule mismatch (-want +got):\n%s", diff)
	}

	n, err := l.Prune(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned: got %d, want 2", n)
	}
	counts, _ = l.FailuresByRule(ctx)
	if len(counts) != 0 {
		t.Errorf("failures survived prune: %v", counts)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Insert(context.Background(), pass("x", 1, "wallet", 1)); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if _, err := l.Get(context.Background(), "x"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
