// Package live bridges the engine's in-memory document and a real wallet
// page driven over CDP. An injected agent reports DOM changes, host
// navigation and synthesized button clicks back through a runtime binding;
// reconciliation records are replayed in the page by XPath.
package live

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/mutation"
	"github.com/hazyhaar/domfix/wallet"
)

//go:embed observer.js
var agentJS string

// BindingName is the CDP runtime binding the page agent calls.
const BindingName = "__domfix_binding"

// ErrReplay is returned when some records could not be replayed.
var ErrReplay = errors.New("live: replay failed")

// Config for attaching to a page.
type Config struct {
	// Root is the selector of the observed subtree. Default: "#app".
	Root string
	// Timeout bounds each page evaluation. Default: 5s.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Root == "" {
		c.Root = "#app"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// message is one binding payload from the page agent.
type message struct {
	Type   string `json:"type"` // mutation | navigate | action
	Count  int    `json:"count,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Action string `json:"action,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Page is an attached wallet page. It implements the navigation listener
// API, so a navhook.Hook can subscribe to it.
type Page struct {
	page   *rod.Page
	cfg    Config
	logger *slog.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[int]func(from, to string)
	nextID    int
	onChange  func(n int)
	onAction  func(action, tokenID string)
}

func newPage(p *rod.Page, cfg Config) *Page {
	cfg.defaults()
	return &Page{page: p, cfg: cfg, logger: cfg.Logger, listeners: make(map[int]func(from, to string))}
}

// Attach installs the agent in p (now and on every future document) and
// starts listening for its reports until ctx is done or Close is called.
func Attach(ctx context.Context, p *rod.Page, cfg Config) (*Page, error) {
	lp := newPage(p, cfg)

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(p); err != nil {
		lp.logger.Warn("live: addBinding failed (may already exist)", "error", err)
	}

	rootJSON, _ := json.Marshal(lp.cfg.Root)
	script := "window.__domfix_root = " + string(rootJSON) + ";\n" + agentJS
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: script}).Call(p); err != nil {
		return nil, fmt.Errorf("live: register agent: %w", err)
	}

	evCtx, cancel := context.WithCancel(ctx)
	lp.cancel = cancel
	wait := p.Context(evCtx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		lp.handle(e.Payload)
	})
	go wait()

	if _, err := (proto.RuntimeEvaluate{Expression: script}).Call(p); err != nil {
		cancel()
		return nil, fmt.Errorf("live: inject agent: %w", err)
	}
	lp.logger.Info("live: agent injected", "root", lp.cfg.Root)
	return lp, nil
}

// OnChange sets the callback for relevant page mutations. n is the number
// of coalesced records the page reported.
func (p *Page) OnChange(fn func(n int)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// OnAction sets the callback for synthesized button clicks.
func (p *Page) OnAction(fn func(action, tokenID string)) {
	p.mu.Lock()
	p.onAction = fn
	p.mu.Unlock()
}

// OnNavigate registers a navigation listener.
func (p *Page) OnNavigate(fn func(from, to string)) (unsubscribe func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Page) handle(payload string) {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		p.logger.Warn("live: parse binding payload", "error", err)
		return
	}
	p.mu.Lock()
	onChange, onAction := p.onChange, p.onAction
	var navs []func(from, to string)
	if msg.Type == "navigate" {
		for id := 1; id <= p.nextID; id++ {
			if fn, ok := p.listeners[id]; ok {
				navs = append(navs, fn)
			}
		}
	}
	p.mu.Unlock()

	switch msg.Type {
	case "mutation":
		if onChange != nil {
			onChange(msg.Count)
		}
	case "navigate":
		for _, fn := range navs {
			fn(msg.From, msg.To)
		}
	case "action":
		if onAction != nil {
			onAction(msg.Action, msg.Token)
		}
	default:
		p.logger.Debug("live: unknown message", "type", msg.Type)
	}
}

// Sync reloads doc from the page's current DOM and, when the page exposes
// window.currentWalletData, refreshes the wallet state.
func (p *Page) Sync(ctx context.Context, doc *dom.Document, wc *wallet.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return fmt.Errorf("live: pull dom: %w", err)
	}
	if err := doc.Reset(strings.NewReader("<!DOCTYPE html>" + res.Value.Str())); err != nil {
		return fmt.Errorf("live: pull dom: %w", err)
	}

	if wc == nil {
		return nil
	}
	res, err = p.page.Context(ctx).Eval(`() => JSON.stringify(window.currentWalletData || null)`)
	if err != nil {
		return fmt.Errorf("live: pull wallet data: %w", err)
	}
	raw := res.Value.Str()
	if raw == "" || raw == "null" {
		return nil
	}
	data, err := wallet.ParseData([]byte(raw))
	if err != nil {
		p.logger.Warn("live: ignoring wallet data", "error", err)
		return nil
	}
	wc.SetData(data)
	return nil
}

// replayResult is what the agent's apply function returns.
type replayResult struct {
	Applied int      `json:"applied"`
	Errors  []string `json:"errors"`
}

// Apply replays records in the page. The agent suppresses its own
// observer while doing so.
func (p *Page) Apply(ctx context.Context, recs []mutation.Record) error {
	recs = mutation.Compress(recs)
	if len(recs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res, err := p.page.Context(ctx).Eval(`(recs) => window.__domfix_apply(recs)`, recs)
	if err != nil {
		return fmt.Errorf("live: replay: %w", err)
	}
	var out replayResult
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return fmt.Errorf("live: replay result: %w", err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("%w: %d of %d records: %s", ErrReplay, len(out.Errors), len(recs), out.Errors[0])
	}
	p.logger.Debug("live: replayed", "records", out.Applied)
	return nil
}

// Close stops listening for agent reports. The page itself stays open.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}
