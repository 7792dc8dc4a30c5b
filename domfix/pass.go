package domfix

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/internal/observer"
	"github.com/hazyhaar/domfix/domfix/mutation"
	"github.com/hazyhaar/domfix/domfix/reconcile"
)

// Abort reasons reported in mutation.Pass.Aborted.
const (
	AbortSync        = "sync"
	AbortMissingRoot = "missing-root"
	AbortReentrant   = "reentrant"
)

// runPass reconciles one screen. It runs on the loop.
func (e *Engine) runPass(trigger mutation.Trigger, screenID string) *mutation.Pass {
	start := e.clk.Now()
	p := &mutation.Pass{
		ID:        e.ids(),
		Seq:       e.seq.Add(1),
		ScreenID:  screenID,
		Trigger:   trigger,
		StartedAt: start.UnixMilli(),
	}
	defer func() {
		p.Duration = e.clk.Now().Sub(start).Microseconds()
		e.report(p)
	}()

	e.wc.SetScreen(screenID)
	rules := e.reg.RulesForScreen(screenID)
	p.Rules = len(rules)
	if len(rules) == 0 {
		e.logger.Debug("engine: no rules for screen", "screen", screenID)
		return p
	}

	if e.surface != nil {
		if err := e.surface.Sync(e.ctx, e.doc, e.wc); err != nil {
			e.logger.Error("engine: sync failed, pass skipped", "screen", screenID, "error", err)
			p.Aborted = AbortSync
			return p
		}
	}

	scope, missing := e.scope(screenID)
	if scope == nil {
		e.logger.Warn("engine: screen root not found", "screen", screenID, "selector", missing.Selector)
		p.Missing = []string{missing.Selector}
		p.Aborted = AbortMissingRoot
		return p
	}

	res, err := e.rec.Reconcile(scope, rules)
	if err != nil {
		if errors.Is(err, reconcile.ErrReentrancy) {
			p.Aborted = AbortReentrant
		} else {
			p.Aborted = err.Error()
		}
		return p
	}

	p.Applied, p.Skipped, p.Filtered = res.Applied, res.Skipped, res.Filtered
	for _, m := range res.Missing {
		p.Missing = append(p.Missing, m.RuleID)
	}
	for _, f := range res.Failures {
		p.Failures = append(p.Failures, mutation.Failure{RuleID: f.RuleID, XPath: f.XPath, Error: f.Err.Error()})
	}
	p.Records = res.Records

	if e.surface != nil && len(res.Records) > 0 {
		if err := e.surface.Apply(e.ctx, res.Records); err != nil {
			e.logger.Error("engine: replay failed", "screen", screenID, "error", err)
			p.Failures = append(p.Failures, mutation.Failure{RuleID: "replay", Error: err.Error()})
		}
	}

	e.logger.Debug("engine: pass done",
		"seq", p.Seq, "screen", screenID, "trigger", trigger,
		"applied", p.Applied, "skipped", p.Skipped, "mutations", p.Mutations())
	return p
}

// scope resolves the screen container under the observed root.
func (e *Engine) scope(screenID string) (*dom.Element, *reconcile.MissingElementError) {
	root := e.doc.QuerySelector(e.cfg.ObservedRoot)
	if root == nil {
		return nil, &reconcile.MissingElementError{Selector: e.cfg.ObservedRoot}
	}
	sd, ok := e.reg.Screen(screenID)
	if !ok || sd.Root == "" {
		return root, nil
	}
	el := root.QuerySelector(sd.Root)
	if el == nil {
		return nil, &reconcile.MissingElementError{Selector: sd.Root}
	}
	return el, nil
}

// report records p and hands it to the reporter without blocking the loop.
func (e *Engine) report(p *mutation.Pass) {
	e.metrics.ObservePass(p)
	e.mu.Lock()
	e.recent = append(e.recent, p)
	if len(e.recent) > recentPasses {
		e.recent = e.recent[len(e.recent)-recentPasses:]
	}
	e.mu.Unlock()

	select {
	case e.reports <- p:
	default:
		e.metrics.IncrementDropped()
		e.logger.Warn("engine: report queue full, dropping pass", "seq", p.Seq, "screen", p.ScreenID)
	}
}

func (e *Engine) reporter() {
	defer close(e.repEnd)
	for p := range e.reports {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := e.router.Send(ctx, p); err != nil {
			e.logger.Warn("engine: sink delivery failed", "seq", p.Seq, "error", err)
		}
		cancel()
	}
}

// Passes returns up to limit recent pass reports, newest first. A limit of
// zero or less returns all kept reports.
func (e *Engine) Passes(limit int) []*mutation.Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*mutation.Pass, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.recent[i])
	}
	return out
}

// ObserverStats are the mutation watcher counters.
type ObserverStats = observer.Stats

// Status is a point-in-time view of the engine.
type Status struct {
	Running  bool           `json:"running"`
	Live     bool           `json:"live"`
	Screen   string         `json:"screen"`
	Rules    int            `json:"rules"`
	Screens  []string       `json:"screens"`
	Pending  int            `json:"pending"`
	Passes   uint64         `json:"passes"`
	Observer ObserverStats  `json:"observer"`
	LastPass *mutation.Pass `json:"last_pass,omitempty"`
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	st := Status{
		Running:  e.running.Load() && !e.closed.Load(),
		Live:     e.surface != nil,
		Screen:   e.hook.Current(),
		Rules:    e.reg.Len(),
		Pending:  e.obs.Pending(),
		Passes:   e.seq.Load(),
		Observer: e.obs.Stats(),
	}
	for _, sd := range e.cfg.Screens {
		st.Screens = append(st.Screens, sd.ScreenID)
	}
	if last := e.Passes(1); len(last) == 1 {
		st.LastPass = last[0]
	}
	return st
}

// ScreenHTML returns the serialised container of screenID (the observed
// root when the screen has no container).
func (e *Engine) ScreenHTML(ctx context.Context, screenID string) (string, error) {
	var out string
	err := e.Do(ctx, func(*dom.Document) error {
		if screenID == "" {
			screenID = e.hook.Current()
		}
		if e.surface != nil {
			if err := e.surface.Sync(ctx, e.doc, nil); err != nil {
				return err
			}
		}
		el, missing := e.scope(screenID)
		if el == nil {
			return missing
		}
		out = el.OuterHTML()
		return nil
	})
	return out, err
}
