// Package navhook turns host screen transitions into scoped reconciliation
// passes. It subscribes to the host's navigation listener, records the
// transition, and after a settle delay asks for a pass on the destination
// screen. A newer transition supersedes a pending one.
package navhook

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domfix/domfix/internal/clock"
)

// Navigator is the host's navigation listener registration API.
type Navigator interface {
	OnNavigate(fn func(from, to string)) (unsubscribe func())
}

// Transition is one observed screen change.
type Transition struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// Config for creating a Hook.
type Config struct {
	// SettleDelay lets the host finish rendering the destination screen.
	// Default: 300ms.
	SettleDelay time.Duration
	// Schedule is called with the destination screen once it settled. It
	// runs on a timer goroutine and must not block.
	Schedule func(screenID string)
	Clock    clock.Clock
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 300 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Hook tracks the active screen.
type Hook struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current string
	last    Transition
	timer   clock.Timer
	gen     uint64
	unsub   func()
}

// New creates a Hook starting on initial.
func New(cfg Config, initial string) *Hook {
	cfg.defaults()
	return &Hook{cfg: cfg, logger: cfg.Logger, current: initial}
}

// Attach subscribes to nav. A nil Navigator leaves the hook inert and
// reconciliation relies on the mutation watcher alone.
func (h *Hook) Attach(nav Navigator) {
	if nav == nil {
		h.logger.Info("navhook: host exposes no navigation listener, relying on mutation watcher")
		return
	}
	unsub := nav.OnNavigate(h.Navigated)
	h.mu.Lock()
	prev := h.unsub
	h.unsub = unsub
	h.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Wrap returns navigate wrapped so every call is reported to the hook after
// the host ran it. For hosts with a navigate function but no listener API.
func (h *Hook) Wrap(navigate func(to string)) func(to string) {
	return func(to string) {
		from := h.Current()
		navigate(to)
		h.Navigated(from, to)
	}
}

// Navigated records a transition and (re)starts the settle timer.
func (h *Hook) Navigated(from, to string) {
	h.mu.Lock()
	h.current = to
	h.last = Transition{From: from, To: to, At: h.cfg.Clock.Now()}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.gen++
	gen := h.gen
	h.timer = h.cfg.Clock.AfterFunc(h.cfg.SettleDelay, func() { h.settle(gen, to) })
	h.mu.Unlock()

	h.logger.Debug("navhook: transition", "from", from, "to", to)
}

func (h *Hook) settle(gen uint64, to string) {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	h.mu.Unlock()
	if h.cfg.Schedule != nil {
		h.cfg.Schedule(to)
	}
}

// Current returns the active screen.
func (h *Hook) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Last returns the most recent transition.
func (h *Hook) Last() Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Detach unsubscribes and drops any pending settle timer.
func (h *Hook) Detach() {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.gen++
	h.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
