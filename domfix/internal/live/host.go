package live

import (
	"context"

	"github.com/hazyhaar/domfix/wallet"
)

// Host forwards wallet host callbacks to the page's global functions
// (window.showToast, window.showSendScreen, window.showReceiveScreen).
type Host struct {
	page *Page
}

var _ wallet.Host = (*Host)(nil)

// NewHost returns a Host calling into p.
func NewHost(p *Page) *Host { return &Host{page: p} }

func (h *Host) ShowToast(msg string)             { h.call("showToast", msg) }
func (h *Host) ShowSendScreen(tokenID string)    { h.call("showSendScreen", tokenID) }
func (h *Host) ShowReceiveScreen(tokenID string) { h.call("showReceiveScreen", tokenID) }

func (h *Host) call(fn, arg string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.page.cfg.Timeout)
	defer cancel()
	res, err := h.page.page.Context(ctx).Eval(`(fn, arg) => {
		const f = window[fn];
		if (typeof f !== 'function') return false;
		f(arg);
		return true;
	}`, fn, arg)
	if err != nil {
		h.page.logger.Warn("live: host call failed", "fn", fn, "error", err)
		return
	}
	if !res.Value.Bool() {
		h.page.logger.Warn("live: host function missing", "fn", fn)
	}
}
