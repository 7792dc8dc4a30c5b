package observer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/internal/clock"
	"github.com/hazyhaar/domfix/domfix/mutation"
)

const page = `<html><body><div id="app"><div class="list"><div class="row">a</div></div></div><div id="outside"></div></body></html>`

type harness struct {
	doc   *dom.Document
	clk   *clock.Fake
	obs   *Observer
	fired atomic.Int32
	busy  atomic.Bool
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{doc: doc, clk: clock.NewFake()}
	cfg.Clock = h.clk
	cfg.Reconciling = h.busy.Load
	cfg.Schedule = func() { h.fired.Add(1) }
	h.obs = New(cfg)
	h.obs.Attach(doc)
	t.Cleanup(h.obs.Stop)
	return h
}

func TestBurstCoalesces(t *testing.T) {
	h := newHarness(t, Config{DebounceWindow: 100 * time.Millisecond})
	list := h.doc.QuerySelector(".list")

	for i := 0; i < 5; i++ {
		if _, err := list.AppendHTML(`<div class="row">n</div>`); err != nil {
			t.Fatal(err)
		}
		h.clk.Advance(30 * time.Millisecond)
	}
	if h.fired.Load() != 0 {
		t.Fatalf("fired during burst: %d", h.fired.Load())
	}
	h.clk.Advance(100 * time.Millisecond)
	if got := h.fired.Load(); got != 1 {
		t.Errorf("passes scheduled: got %d, want 1", got)
	}
	if h.obs.Pending() != 0 {
		t.Errorf("pending after fire: %d", h.obs.Pending())
	}
}

func TestSelfWritesIgnored(t *testing.T) {
	h := newHarness(t, Config{})
	row := h.doc.QuerySelector(".row")

	h.busy.Store(true)
	row.SetStyle("color", "red")
	row.AddClass("fixed")
	h.busy.Store(false)

	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 0 {
		t.Errorf("self writes scheduled %d passes", got)
	}
	if s := h.obs.Stats(); s.SelfWrite != 2 || s.Accepted != 0 {
		t.Errorf("stats: %+v", s)
	}
}

func TestFilter(t *testing.T) {
	h := newHarness(t, Config{Root: "#app"})
	row := h.doc.QuerySelector(".row")

	row.SetAttr("data-x", "1")             // not watched
	h.doc.ByID("outside").SetStyle("a", "b") // outside root
	row.SetText("b")                        // character data
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 0 {
		t.Fatalf("irrelevant records scheduled %d passes", got)
	}

	row.SetAttr("class", "row hot")
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 1 {
		t.Errorf("class change: got %d passes, want 1", got)
	}
}

func TestRootFollowsSiblingChanges(t *testing.T) {
	h := newHarness(t, Config{Root: "#app"})
	row := h.doc.QuerySelector(".row")
	before := h.doc.ByID("app").XPath()

	// A new leading <div> in <body> renumbers #app.
	if err := h.doc.Body().PrependChild(h.doc.CreateElement("div")); err != nil {
		t.Fatal(err)
	}
	if after := h.doc.ByID("app").XPath(); after == before {
		t.Fatalf("app path did not move: %s", after)
	}
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 0 {
		t.Fatalf("body insert scheduled %d passes", got)
	}

	row.AddClass("hot")
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 1 {
		t.Errorf("class change under moved root: got %d passes, want 1", got)
	}
	if s := h.obs.Stats(); s.Accepted != 1 || s.Filtered != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestMaxPendingFiresImmediately(t *testing.T) {
	h := newHarness(t, Config{MaxPending: 3})
	for i := 0; i < 3; i++ {
		h.obs.Notify(mutation.Record{Op: mutation.OpInsert, XPath: "/html/body"})
	}
	if got := h.fired.Load(); got != 1 {
		t.Fatalf("fired: got %d, want 1", got)
	}
	if h.clk.Pending() != 0 {
		t.Errorf("timer still pending after forced fire")
	}
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 1 {
		t.Errorf("stale timer fired: got %d", got)
	}
}

func TestStopCancelsPending(t *testing.T) {
	h := newHarness(t, Config{})
	h.obs.Touch()
	h.obs.Stop()
	h.clk.Advance(time.Second)
	if got := h.fired.Load(); got != 0 {
		t.Errorf("fired after Stop: %d", got)
	}
	h.doc.QuerySelector(".row").SetStyle("x", "y")
	if h.obs.Pending() != 0 {
		t.Error("detached observer still counting")
	}
}

func TestUnderRoot(t *testing.T) {
	tests := []struct {
		xpath, root string
		want        bool
	}{
		{"/html/body/div", "", true},
		{"/html/body/div", "/html/body/div", true},
		{"/html/body/div/span", "/html/body/div", true},
		{"/html/body/div[2]", "/html/body/div", false},
		{"/html/body", "/html/body/div", false},
	}
	for _, tt := range tests {
		if got := underRoot(tt.xpath, tt.root); got != tt.want {
			t.Errorf("underRoot(%q, %q): got %v, want %v", tt.xpath, tt.root, got, tt.want)
		}
	}
}
