package navhook

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/domfix/domfix/internal/clock"
)

type fakeNav struct {
	listeners []func(from, to string)
	unsubbed  int
}

func (n *fakeNav) OnNavigate(fn func(from, to string)) func() {
	n.listeners = append(n.listeners, fn)
	return func() { n.unsubbed++ }
}

func (n *fakeNav) navigate(from, to string) {
	for _, fn := range n.listeners {
		fn(from, to)
	}
}

func newHook(t *testing.T) (*Hook, *clock.Fake, *[]string) {
	t.Helper()
	clk := clock.NewFake()
	var scheduled []string
	h := New(Config{Clock: clk, Schedule: func(s string) { scheduled = append(scheduled, s) }}, "wallet")
	t.Cleanup(h.Detach)
	return h, clk, &scheduled
}

func TestSettleSchedulesDestination(t *testing.T) {
	h, clk, scheduled := newHook(t)
	nav := &fakeNav{}
	h.Attach(nav)

	nav.navigate("wallet", "token-detail")
	if h.Current() != "token-detail" {
		t.Errorf("Current: got %q, want token-detail", h.Current())
	}
	clk.Advance(299 * time.Millisecond)
	if len(*scheduled) != 0 {
		t.Fatalf("scheduled before settle: %v", *scheduled)
	}
	clk.Advance(time.Millisecond)
	if diff := cmp.Diff([]string{"token-detail"}, *scheduled); diff != "" {
		t.Errorf("scheduled mismatch (-want +got):\n%s", diff)
	}
	if last := h.Last(); last.From != "wallet" || last.To != "token-detail" {
		t.Errorf("Last: %+v", last)
	}
}

func TestNewerTransitionSupersedes(t *testing.T) {
	h, clk, scheduled := newHook(t)
	h.Navigated("wallet", "token-detail")
	clk.Advance(100 * time.Millisecond)
	h.Navigated("token-detail", "send")
	clk.Advance(time.Second)
	if diff := cmp.Diff([]string{"send"}, *scheduled); diff != "" {
		t.Errorf("scheduled mismatch (-want +got):\n%s", diff)
	}
}

func TestNilNavigatorIsNoop(t *testing.T) {
	h, clk, scheduled := newHook(t)
	h.Attach(nil)
	clk.Advance(time.Second)
	if len(*scheduled) != 0 || h.Current() != "wallet" {
		t.Errorf("nil navigator changed state: current=%q scheduled=%v", h.Current(), *scheduled)
	}
}

func TestWrap(t *testing.T) {
	h, clk, scheduled := newHook(t)
	var hostCalls []string
	navigate := h.Wrap(func(to string) { hostCalls = append(hostCalls, to) })

	navigate("receive")
	clk.Advance(time.Second)
	if diff := cmp.Diff([]string{"receive"}, hostCalls); diff != "" {
		t.Errorf("host calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"receive"}, *scheduled); diff != "" {
		t.Errorf("scheduled mismatch (-want +got):\n%s", diff)
	}
	if h.Last().From != "wallet" {
		t.Errorf("Last.From: got %q, want wallet", h.Last().From)
	}
}

func TestDetach(t *testing.T) {
	h, clk, scheduled := newHook(t)
	nav := &fakeNav{}
	h.Attach(nav)
	nav.navigate("wallet", "send")
	h.Detach()
	clk.Advance(time.Second)
	if len(*scheduled) != 0 {
		t.Errorf("scheduled after Detach: %v", *scheduled)
	}
	if nav.unsubbed != 1 {
		t.Errorf("unsubscribe calls: got %d, want 1", nav.unsubbed)
	}
}
