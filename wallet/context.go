package wallet

import (
	"errors"
	"fmt"
	"sync"
)

// Host is the set of callbacks the host application exposes.
type Host interface {
	ShowToast(msg string)
	ShowSendScreen(tokenID string)
	ShowReceiveScreen(tokenID string)
}

// Actions dispatched from synthesized buttons.
const (
	ActionSend    = "send"
	ActionReceive = "receive"
)

var (
	// ErrNoHost is returned when an action fires without a host attached.
	ErrNoHost = errors.New("wallet: no host attached")
	// ErrUnknownAction is returned for unrecognised action names.
	ErrUnknownAction = errors.New("wallet: unknown action")
	// ErrUnknownToken is returned when an action targets a token the active
	// wallet does not hold.
	ErrUnknownToken = errors.New("wallet: unknown token")
)

// Context is the shared state rules read and the engine updates. Safe for
// concurrent use.
type Context struct {
	mu        sync.RWMutex
	wallets   map[string]*Wallet
	active    string
	screen    string
	host      Host
	formatter CurrencyFormatter
}

// Option configures a Context.
type Option func(*Context)

// WithHost sets the host callbacks.
func WithHost(h Host) Option { return func(c *Context) { c.host = h } }

// WithFormatter sets the host currency formatter.
func WithFormatter(f CurrencyFormatter) Option { return func(c *Context) { c.formatter = f } }

// WithData loads wallets and the active wallet.
func WithData(d *Data) Option {
	return func(c *Context) {
		if d == nil {
			return
		}
		c.wallets = d.Wallets
		c.active = d.Active
	}
}

// WithScreen sets the initial active screen.
func WithScreen(screenID string) Option { return func(c *Context) { c.screen = screenID } }

// NewContext creates a Context.
func NewContext(opts ...Option) *Context {
	c := &Context{wallets: make(map[string]*Wallet)}
	for _, o := range opts {
		o(c)
	}
	if c.wallets == nil {
		c.wallets = make(map[string]*Wallet)
	}
	return c
}

// SetData replaces every wallet. The active wallet is kept when d names none.
func (c *Context) SetData(d *Data) {
	if d == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets = d.Wallets
	if c.wallets == nil {
		c.wallets = make(map[string]*Wallet)
	}
	if d.Active != "" {
		c.active = d.Active
	}
}

// PutWallet adds or replaces one wallet.
func (c *Context) PutWallet(w *Wallet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets[w.ID] = w
	if c.active == "" {
		c.active = w.ID
	}
}

// Wallet returns the wallet with the given ID.
func (c *Context) Wallet(id string) (*Wallet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.wallets[id]
	return w, ok
}

// SetActiveWallet switches the active wallet.
func (c *Context) SetActiveWallet(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}

// ActiveWallet returns the active wallet, or nil.
func (c *Context) ActiveWallet() *Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wallets[c.active]
}

// Token looks a token up in the active wallet.
func (c *Context) Token(id string) (Token, bool) {
	w := c.ActiveWallet()
	if w == nil {
		return Token{}, false
	}
	return w.Token(id)
}

// Screen returns the active screen ID.
func (c *Context) Screen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.screen
}

// SetScreen records the active screen ID.
func (c *Context) SetScreen(screenID string) {
	c.mu.Lock()
	c.screen = screenID
	c.mu.Unlock()
}

// Host returns the attached host, or nil.
func (c *Context) Host() Host {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

// SetHost attaches host callbacks.
func (c *Context) SetHost(h Host) {
	c.mu.Lock()
	c.host = h
	c.mu.Unlock()
}

// FormatCurrency uses the host formatter when present, else the fallback.
func (c *Context) FormatCurrency(v float64) string {
	c.mu.RLock()
	f := c.formatter
	c.mu.RUnlock()
	if f != nil {
		return f.FormatCurrency(v)
	}
	return FormatCurrency(v)
}

// Dispatch routes a synthesized button's action to the host. Unknown
// actions and tokens are reported to the user through a toast.
func (c *Context) Dispatch(action, tokenID string) error {
	h := c.Host()
	if h == nil {
		return ErrNoHost
	}
	if _, ok := c.Token(tokenID); !ok {
		h.ShowToast("Token not found")
		return fmt.Errorf("%w: %q", ErrUnknownToken, tokenID)
	}
	switch action {
	case ActionSend:
		h.ShowSendScreen(tokenID)
	case ActionReceive:
		h.ShowReceiveScreen(tokenID)
	default:
		h.ShowToast("Unsupported action: " + action)
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}
