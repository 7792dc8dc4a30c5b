// CLAUDE:SUMMARY Engine orchestrator: owns the document on one loop goroutine, wires registry, reconciler, watcher, navigation hook, sinks and metrics.
// Package domfix keeps a wallet UI consistent with its target design while
// the host page renders, re-renders and navigates.
//
// An Engine owns one DOM document on a single loop goroutine. Host changes
// are submitted with Do or Post; the mutation watcher coalesces the records
// they produce into one reconciliation pass, and the navigation hook runs a
// pass scoped to the destination screen once it settled. Passes apply the
// rule registry idempotently, so a reconciled tree is a fixed point.
//
// Usage:
//
//	eng, err := domfix.New(cfg, domfix.WithDocument(doc), domfix.WithWallet(wc))
//	if err != nil { ... }
//	eng.Start(ctx)
//	defer eng.Close()
//	eng.Do(ctx, func(doc *dom.Document) error { ...host render... })
package domfix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/internal/clock"
	"github.com/hazyhaar/domfix/domfix/internal/config"
	"github.com/hazyhaar/domfix/domfix/internal/ledger"
	"github.com/hazyhaar/domfix/domfix/internal/metrics"
	"github.com/hazyhaar/domfix/domfix/internal/navhook"
	"github.com/hazyhaar/domfix/domfix/internal/observer"
	"github.com/hazyhaar/domfix/domfix/internal/sink"
	"github.com/hazyhaar/domfix/domfix/mutation"
	"github.com/hazyhaar/domfix/domfix/reconcile"
	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/fixes"
	"github.com/hazyhaar/domfix/idgen"
	"github.com/hazyhaar/domfix/wallet"
)

var (
	// ErrClosed is returned by a closed Engine.
	ErrClosed = errors.New("domfix: engine closed")
	// ErrNotRunning is returned when work is submitted before Start.
	ErrNotRunning = errors.New("domfix: engine not running")
)

// recentPasses is the number of pass reports kept in memory.
const recentPasses = 100

// Navigator is the host's navigation listener registration API.
type Navigator = navhook.Navigator

// Surface connects the engine to a rendering page. Sync refreshes the
// document (and wallet state) before a pass; Apply replays the records the
// pass produced.
type Surface interface {
	Sync(ctx context.Context, doc *dom.Document, wc *wallet.Context) error
	Apply(ctx context.Context, recs []mutation.Record) error
}

type options struct {
	logger  *slog.Logger
	clock   clock.Clock
	doc     *dom.Document
	wallet  *wallet.Context
	nav     Navigator
	surface Surface
	sinks   []sink.Sink
	rules   []rule.Rule
	ids     idgen.Generator
	ledger  *ledger.Ledger
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithDocument sets the document the engine owns. Default: an empty page.
func WithDocument(doc *dom.Document) Option { return func(o *options) { o.doc = doc } }

// WithWallet sets the wallet context rules read and actions dispatch to.
func WithWallet(wc *wallet.Context) Option { return func(o *options) { o.wallet = wc } }

// WithNavigator subscribes the navigation hook to the host's listener API.
func WithNavigator(nav Navigator) Option { return func(o *options) { o.nav = nav } }

// WithSurface drives a rendering page instead of a standalone document.
func WithSurface(s Surface) Option { return func(o *options) { o.surface = s } }

// WithSinks adds pass report sinks.
func WithSinks(sinks ...Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithRules registers extra rules after the built-in ones.
func WithRules(rules ...rule.Rule) Option {
	return func(o *options) { o.rules = append(o.rules, rules...) }
}

// WithIDGenerator sets the pass ID generator. Nil keeps idgen.Default.
func WithIDGenerator(gen idgen.Generator) Option { return func(o *options) { o.ids = gen } }

func withClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// Engine is the reconciliation engine.
type Engine struct {
	cfg     *Config
	logger  *slog.Logger
	clk     clock.Clock
	ids     idgen.Generator
	reg     *rule.Registry
	rec     *reconcile.Reconciler
	obs     *observer.Observer
	hook    *navhook.Hook
	wc      *wallet.Context
	doc     *dom.Document
	nav     Navigator
	surface Surface
	router  *sink.Router
	ledger  *ledger.Ledger
	metrics *metrics.Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	work    chan func()
	wanted  chan struct{}
	reports chan *mutation.Pass
	quit    chan struct{}
	loopEnd chan struct{}
	repEnd  chan struct{}

	running   atomic.Bool
	closed    atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	seq       atomic.Uint64

	mu     sync.Mutex
	recent []*mutation.Pass
}

// New builds an Engine: it describes the configured screens, registers the
// built-in fixes followed by configured style rules and extra rules, and
// freezes the registry. A duplicate rule ID fails construction.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		c := *cfg
		cfg = &c
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("domfix: new: %w", err)
	}
	if _, err := dom.Compile(cfg.ObservedRoot); err != nil {
		return nil, fmt.Errorf("domfix: new: observed root: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.ids == nil {
		o.ids = idgen.Default
	}
	if o.wallet == nil {
		o.wallet = wallet.NewContext()
	}
	if o.wallet.Screen() == "" {
		o.wallet.SetScreen(cfg.InitialScreen)
	}
	if o.doc == nil {
		doc, err := dom.ParseString("<!DOCTYPE html><html><head></head><body></body></html>")
		if err != nil {
			return nil, fmt.Errorf("domfix: new: %w", err)
		}
		o.doc = doc
	}

	reg := rule.NewRegistry()
	for _, sd := range cfg.Screens {
		if err := reg.Describe(sd); err != nil {
			return nil, fmt.Errorf("domfix: new: %w", err)
		}
	}
	if err := fixes.Register(reg, o.wallet, cfg.FixOptions()); err != nil {
		return nil, fmt.Errorf("domfix: new: %w", err)
	}
	for _, rl := range o.rules {
		if err := reg.Register(rl); err != nil {
			return nil, fmt.Errorf("domfix: new: %w", err)
		}
	}
	reg.Freeze()

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		logger:  o.logger,
		clk:     o.clock,
		ids:     o.ids,
		reg:     reg,
		wc:      o.wallet,
		doc:     o.doc,
		nav:     o.nav,
		surface: o.surface,
		router:  sink.NewRouter(o.logger, o.sinks...),
		ledger:  o.ledger,
		metrics: metrics.New(),
		ctx:     ctx,
		cancel:  cancel,
		work:    make(chan func(), 64),
		wanted:  make(chan struct{}, 1),
		reports: make(chan *mutation.Pass, cfg.ReportBuffer),
		quit:    make(chan struct{}),
		loopEnd: make(chan struct{}),
		repEnd:  make(chan struct{}),
	}
	e.rec = reconcile.New(reconcile.Config{MarkerAttr: cfg.MarkerAttribute, Logger: o.logger})

	if o.surface == nil && o.doc.QuerySelector(cfg.ObservedRoot) == nil {
		o.logger.Warn("engine: observed root not found, watching the whole document", "root", cfg.ObservedRoot)
	}
	e.obs = observer.New(observer.Config{
		DebounceWindow: cfg.Debounce(),
		MaxPending:     cfg.MaxPending,
		Root:           cfg.ObservedRoot,
		Reconciling:    e.rec.Active,
		Schedule:       e.wantPass,
		Clock:  o.clock,
		Logger: o.logger,
	})
	e.hook = navhook.New(navhook.Config{
		SettleDelay: cfg.SettleDelay(),
		Schedule: func(to string) {
			e.submit(func() { e.runPass(mutation.TriggerNavigate, to) })
		},
		Clock:  o.clock,
		Logger: o.logger,
	}, o.wallet.Screen())

	o.logger.Info("engine: created",
		"rules", reg.Len(), "screens", len(cfg.Screens),
		"root", cfg.ObservedRoot, "live", o.surface != nil)
	return e, nil
}

// Start begins watching and runs the initial pass on the active screen. The
// engine stops when ctx is done or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.startOnce.Do(func() {
		e.obs.Attach(e.doc)
		e.hook.Attach(e.nav)
		e.running.Store(true)
		go e.loop()
		go e.reporter()
		go func() {
			select {
			case <-ctx.Done():
				e.Close()
			case <-e.quit:
			}
		}()
		e.submit(func() { e.runPass(mutation.TriggerInitial, e.hook.Current()) })
		e.logger.Info("engine: started", "screen", e.hook.Current())
	})
	return nil
}

// Close stops the loop, drains pending reports to the sinks and closes them.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.obs.Stop()
		e.hook.Detach()
		close(e.quit)
		if e.running.Load() {
			<-e.loopEnd
			close(e.reports)
			<-e.repEnd
		}
		e.running.Store(false)
		e.cancel()
		err = e.router.Close()
		e.logger.Info("engine: closed")
	})
	return err
}

func (e *Engine) loop() {
	defer close(e.loopEnd)
	for {
		// A requested pass runs before queued work.
		select {
		case <-e.wanted:
			e.runPass(mutation.TriggerMutation, e.hook.Current())
			continue
		default:
		}
		select {
		case <-e.wanted:
			e.runPass(mutation.TriggerMutation, e.hook.Current())
		case fn := <-e.work:
			fn()
		case <-e.quit:
			return
		}
	}
}

// wantPass requests a mutation-triggered pass. It never blocks: requests
// made before the loop picks one up collapse into it.
func (e *Engine) wantPass() {
	select {
	case e.wanted <- struct{}{}:
	default:
	}
}

// submit queues fn on the loop. It reports false once the engine stopped.
func (e *Engine) submit(fn func()) bool {
	return e.enqueue(context.Background(), fn) == nil
}

func (e *Engine) enqueue(ctx context.Context, fn func()) error {
	if e.closed.Load() {
		return ErrClosed
	}
	select {
	case e.work <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrClosed
	}
}

// Do runs fn on the loop with the document and waits for it. Writes fn
// makes are host mutations: the watcher sees them and schedules a pass.
func (e *Engine) Do(ctx context.Context, fn func(doc *dom.Document) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.running.Load() {
		return ErrNotRunning
	}
	done := make(chan error, 1)
	if err := e.enqueue(ctx, func() { done <- fn(e.doc) }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrClosed
	}
}

// Post queues fn on the loop without waiting.
func (e *Engine) Post(fn func(doc *dom.Document)) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.running.Load() {
		return ErrNotRunning
	}
	if !e.submit(func() { fn(e.doc) }) {
		return ErrClosed
	}
	return nil
}

// Touch signals an out-of-band change (a live page mutation). It goes
// through the same debounce as document records.
func (e *Engine) Touch() { e.obs.Touch() }

// Reconcile runs a pass on screenID (the active screen when empty) and
// returns its report.
func (e *Engine) Reconcile(ctx context.Context, screenID string) (*mutation.Pass, error) {
	var p *mutation.Pass
	err := e.Do(ctx, func(*dom.Document) error {
		if screenID == "" {
			screenID = e.hook.Current()
		}
		p = e.runPass(mutation.TriggerManual, screenID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Navigated reports a host screen transition, for hosts that have no
// listener API.
func (e *Engine) Navigated(from, to string) { e.hook.Navigated(from, to) }

// WrapNavigate wraps the host's navigate function so every call is reported.
func (e *Engine) WrapNavigate(navigate func(to string)) func(to string) {
	return e.hook.Wrap(navigate)
}

// Activate dispatches the action of a synthesized button (or any element
// inside one). Call it from within Do.
func (e *Engine) Activate(el *dom.Element) error {
	action, tokenID, ok := fixes.ActionOf(el)
	if !ok {
		return fmt.Errorf("domfix: activate: %s: no %s", el.XPath(), fixes.ActionAttr)
	}
	return e.Dispatch(action, tokenID)
}

// Dispatch routes an action to the host callbacks.
func (e *Engine) Dispatch(action, tokenID string) error {
	if err := e.wc.Dispatch(action, tokenID); err != nil {
		e.logger.Warn("engine: dispatch failed", "action", action, "token", tokenID, "error", err)
		return fmt.Errorf("domfix: dispatch: %w", err)
	}
	e.logger.Debug("engine: dispatched", "action", action, "token", tokenID)
	return nil
}

// Wallet returns the wallet context.
func (e *Engine) Wallet() *wallet.Context { return e.wc }

// Registry returns the frozen rule registry.
func (e *Engine) Registry() *rule.Registry { return e.reg }

// Metrics returns the engine's Prometheus collectors.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }
