package domfix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/domfix/internal/browser"
	"github.com/hazyhaar/domfix/domfix/internal/live"
)

// Live is a wallet page driven over CDP. Its DOM is mirrored into the
// engine's document before each pass and the pass's records are replayed in
// the page.
type Live struct {
	mgr    *browser.Manager
	tab    *browser.Tab
	page   *live.Page
	logger *slog.Logger
}

// OpenLive launches (or connects to) Chrome, opens bc.URL and injects the
// page agent observing root.
func OpenLive(ctx context.Context, bc BrowserConfig, root string, logger *slog.Logger) (*Live, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bc.URL == "" {
		return nil, errors.New("domfix: live: browser url is required")
	}
	headless := true
	if bc.Headless != nil {
		headless = *bc.Headless
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        bc.Remote,
		Headless:         headless,
		Stealth:          bc.Stealth,
		ResourceBlocking: bc.ResourceBlocking,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("domfix: live: %w", err)
	}
	tab, err := browser.OpenTab(ctx, mgr, bc.URL)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("domfix: live: %w", err)
	}
	page, err := live.Attach(ctx, tab.Page, live.Config{Root: root, Logger: logger})
	if err != nil {
		tab.Close()
		mgr.Close()
		return nil, fmt.Errorf("domfix: live: %w", err)
	}
	return &Live{mgr: mgr, tab: tab, page: page, logger: logger}, nil
}

// Options returns the engine options that drive this page: it is the
// engine's surface and navigator.
func (l *Live) Options() []Option {
	return []Option{WithSurface(l.page), WithNavigator(l.page)}
}

// Bind routes page reports to e: relevant mutations go through the watcher
// and clicks on synthesized buttons are dispatched to the page's own host
// callbacks.
func (l *Live) Bind(e *Engine) {
	e.Wallet().SetHost(live.NewHost(l.page))
	l.page.OnChange(func(int) { e.Touch() })
	l.page.OnAction(func(action, tokenID string) {
		err := e.Post(func(*dom.Document) { e.Dispatch(action, tokenID) })
		if err != nil {
			l.logger.Warn("domfix: live: action dropped", "action", action, "error", err)
		}
	})
}

// Close detaches the agent and shuts Chrome down.
func (l *Live) Close() error {
	l.page.Close()
	return errors.Join(l.tab.Close(), l.mgr.Close())
}
