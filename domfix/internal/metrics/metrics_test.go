package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

func TestObservePass(t *testing.T) {
	m := New()
	m.ObservePass(&mutation.Pass{
		ScreenID: "wallet",
		Trigger:  mutation.TriggerMutation,
		Applied:  3,
		Skipped:  2,
		Failures: []mutation.Failure{{RuleID: "token-network-badge"}},
		Records:  make([]mutation.Record, 5),
		Duration: 1500,
	})
	m.ObservePass(&mutation.Pass{ScreenID: "wallet", Aborted: "reentrant"})
	m.IncrementDropped()

	if got := testutil.ToFloat64(m.Passes.WithLabelValues("wallet", "mutation")); got != 1 {
		t.Errorf("passes: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Applications.WithLabelValues("applied")); got != 3 {
		t.Errorf("applied: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.RuleFailures.WithLabelValues("token-network-badge")); got != 1 {
		t.Errorf("failures: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Mutations); got != 5 {
		t.Errorf("mutations: got %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.Aborted.WithLabelValues("reentrant")); got != 1 {
		t.Errorf("aborted: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ReportsDropped); got != 1 {
		t.Errorf("dropped: got %v, want 1", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObservePass(&mutation.Pass{})
	m.IncrementDropped()
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Mutations.Inc()
	if got := testutil.ToFloat64(b.Mutations); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
