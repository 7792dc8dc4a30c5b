// Package observer is the mutation watcher. It filters the document's
// mutation records down to childList changes and style/class attribute
// changes under the observed root, ignores everything written while a pass
// is active, and coalesces bursts into one scheduled pass.
package observer

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/internal/clock"
	"github.com/hazyhaar/domfix/domfix/mutation"
)

// WatchedAttributes are the only attribute names that trigger a pass.
var WatchedAttributes = []string{"style", "class"}

// Config for creating an Observer.
type Config struct {
	DebounceWindow time.Duration
	MaxPending     int
	// Root is the selector of the observed container. Records outside it
	// are dropped. Empty, or no match in the document, observes everything.
	Root string
	// Reconciling reports whether a pass is active. Records arriving while
	// it returns true are the pass's own writes and are dropped.
	Reconciling func() bool
	// Schedule is called once per coalesced burst. It runs on a timer
	// goroutine, or on the goroutine delivering records when MaxPending is
	// reached, and must not block.
	Schedule func()
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Stats are cumulative observer counters.
type Stats struct {
	Accepted  uint64 `json:"accepted"`
	Filtered  uint64 `json:"filtered"`
	SelfWrite uint64 `json:"self_write"`
	Scheduled uint64 `json:"scheduled"`
}

// Observer watches one document. Notify must be called from the goroutine
// that owns the document.
type Observer struct {
	cfg       Config
	logger    *slog.Logger
	debouncer *debouncer
	detach    func()

	rootSel dom.Selector
	doc     *dom.Document
	root    *dom.Element

	accepted  atomic.Uint64
	filtered  atomic.Uint64
	selfWrite atomic.Uint64
	scheduled atomic.Uint64
}

// New creates an Observer.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Reconciling == nil {
		cfg.Reconciling = func() bool { return false }
	}
	o := &Observer{cfg: cfg, logger: cfg.Logger}
	if cfg.Root != "" {
		sel, err := dom.Compile(cfg.Root)
		if err != nil {
			o.logger.Warn("observer: invalid root selector, watching the whole document", "root", cfg.Root, "error", err)
		} else {
			o.rootSel = sel
		}
	}
	o.debouncer = newDebouncer(debounceConfig{
		Window:     cfg.DebounceWindow,
		MaxPending: cfg.MaxPending,
	}, cfg.Clock, o.fire)
	return o
}

// Attach starts receiving the document's mutation records.
func (o *Observer) Attach(doc *dom.Document) {
	if o.detach != nil {
		o.detach()
	}
	o.doc, o.root = doc, nil
	o.detach = doc.Observe(o.Notify)
}

// Stop detaches from the document and drops any pending pass.
func (o *Observer) Stop() {
	if o.detach != nil {
		o.detach()
		o.detach = nil
	}
	o.debouncer.cancel()
}

// Notify handles one mutation record.
func (o *Observer) Notify(rec mutation.Record) {
	if o.cfg.Reconciling() {
		o.selfWrite.Add(1)
		return
	}
	if !o.relevant(rec) {
		o.filtered.Add(1)
		return
	}
	o.accepted.Add(1)
	if o.debouncer.touch() {
		o.logger.Debug("observer: pending limit reached, pass scheduled immediately")
	}
}

// Touch signals an external change (e.g. from a live page) that should be
// reconciled, subject to the same debounce.
func (o *Observer) Touch() {
	if o.cfg.Reconciling() {
		o.selfWrite.Add(1)
		return
	}
	o.accepted.Add(1)
	o.debouncer.touch()
}

// Pending returns the number of changes waiting for the next pass.
func (o *Observer) Pending() int { return o.debouncer.pendingCount() }

// Stats returns cumulative counters.
func (o *Observer) Stats() Stats {
	return Stats{
		Accepted:  o.accepted.Load(),
		Filtered:  o.filtered.Load(),
		SelfWrite: o.selfWrite.Load(),
		Scheduled: o.scheduled.Load(),
	}
}

func (o *Observer) fire() {
	o.scheduled.Add(1)
	if o.cfg.Schedule != nil {
		o.cfg.Schedule()
	}
}

func (o *Observer) relevant(rec mutation.Record) bool {
	if !underRoot(rec.XPath, o.rootXPath()) {
		return false
	}
	switch {
	case rec.ChildList():
		return true
	case rec.Attribute():
		for _, name := range WatchedAttributes {
			if rec.Name == name {
				return true
			}
		}
	}
	return false
}

// rootXPath returns the current path of the observed container. The
// element is kept by identity and its path recomputed, since host changes
// around it shift its sibling index. A detached element is looked up again.
func (o *Observer) rootXPath() string {
	if o.doc == nil || o.rootSel.IsZero() {
		return ""
	}
	if o.root == nil || !o.root.Attached() {
		o.root = nil
		if els := o.doc.SelectCompiled(o.rootSel); len(els) > 0 {
			o.root = els[0]
		}
	}
	if o.root == nil {
		return ""
	}
	return o.root.XPath()
}

func underRoot(xpath, root string) bool {
	if root == "" {
		return true
	}
	return xpath == root || strings.HasPrefix(xpath, root+"/")
}
