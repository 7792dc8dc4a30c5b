// Package reconcile applies registered rules to a DOM scope. Passes are
// idempotent: elements are marked with the rule's idempotency key once
// fixed and skipped afterwards, so a pass over a reconciled tree writes
// nothing.
package reconcile

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/mutation"
	"github.com/hazyhaar/domfix/domfix/rule"
)

// DefaultMarkerAttr is the attribute holding idempotency markers.
const DefaultMarkerAttr = "data-fx"

// Config for creating a Reconciler.
type Config struct {
	MarkerAttr string
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.MarkerAttr == "" {
		c.MarkerAttr = DefaultMarkerAttr
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is the outcome of one Reconcile call.
type Result struct {
	Applied  int
	Skipped  int
	Filtered int
	Missing  []*MissingElementError
	Failures []*RuleApplicationError
	Records  []mutation.Record
}

// Reconciler runs passes. The active flag doubles as the mutation
// watcher's self-exclusion guard.
type Reconciler struct {
	marker string
	logger *slog.Logger
	active atomic.Bool
}

// New creates a Reconciler.
func New(cfg Config) *Reconciler {
	cfg.defaults()
	return &Reconciler{marker: cfg.MarkerAttr, logger: cfg.Logger}
}

// MarkerAttr returns the marker attribute name.
func (r *Reconciler) MarkerAttr() string { return r.marker }

// Active reports whether a pass is running.
func (r *Reconciler) Active() bool { return r.active.Load() }

// Reconcile applies rules, in order, to the elements under scope. Rule
// failures are collected in the result and never abort the pass. The only
// error returned is ErrReentrancy (or a MissingElementError for a nil
// scope), in which case nothing was applied.
func (r *Reconciler) Reconcile(scope *dom.Element, rules []rule.Rule) (*Result, error) {
	if !r.active.CompareAndSwap(false, true) {
		r.logger.Error("reconcile: pass aborted, another pass is active")
		return nil, ErrReentrancy
	}
	defer r.active.Store(false)

	if scope == nil {
		return nil, &MissingElementError{Selector: "<scope>"}
	}

	res := &Result{}
	stop := scope.Document().Observe(func(rec mutation.Record) {
		res.Records = append(res.Records, rec)
	})
	defer stop()

	for _, rl := range rules {
		els := rl.Select(scope)
		if len(els) == 0 {
			res.Missing = append(res.Missing, &MissingElementError{RuleID: rl.ID, Selector: rl.Selector})
			continue
		}
		for _, el := range els {
			// An earlier element's fix may have detached this one.
			if !el.Attached() {
				continue
			}
			ok, err := r.accepts(rl, el)
			if err != nil {
				r.fail(res, err)
				continue
			}
			if !ok {
				res.Filtered++
				continue
			}
			if el.HasToken(r.marker, rl.Key()) {
				res.Skipped++
				continue
			}
			if err := r.apply(rl, el); err != nil {
				r.fail(res, err)
				continue
			}
			if el.Attached() {
				el.AddToken(r.marker, rl.Key())
			}
			res.Applied++
		}
	}

	r.logger.Debug("reconcile: pass done",
		"rules", len(rules), "applied", res.Applied, "skipped", res.Skipped,
		"failures", len(res.Failures), "mutations", len(res.Records))
	return res, nil
}

func (r *Reconciler) fail(res *Result, err *RuleApplicationError) {
	res.Failures = append(res.Failures, err)
	r.logger.Warn("reconcile: rule failed",
		"rule", err.RuleID, "xpath", err.XPath, "panic", err.Panic, "error", err.Err)
}

func (r *Reconciler) accepts(rl rule.Rule, el *dom.Element) (ok bool, rerr *RuleApplicationError) {
	xpath := el.XPath()
	defer func() {
		if p := recover(); p != nil {
			ok = false
			rerr = &RuleApplicationError{RuleID: rl.ID, XPath: xpath, Err: fmt.Errorf("applies-when panic: %v", p), Panic: true}
		}
	}()
	return rl.Accepts(el), nil
}

func (r *Reconciler) apply(rl rule.Rule, el *dom.Element) (rerr *RuleApplicationError) {
	xpath := el.XPath()
	defer func() {
		if p := recover(); p != nil {
			rerr = &RuleApplicationError{RuleID: rl.ID, XPath: xpath, Err: fmt.Errorf("panic: %v", p), Panic: true}
		}
	}()
	if err := rl.Apply(el); err != nil {
		return &RuleApplicationError{RuleID: rl.ID, XPath: xpath, Err: err}
	}
	return nil
}
