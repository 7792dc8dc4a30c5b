package observer

import (
	"sync"
	"time"

	"github.com/hazyhaar/domfix/domfix/internal/clock"
)

// debounceConfig controls pass scheduling.
type debounceConfig struct {
	// Window is the debounce time. Default: 100ms.
	Window time.Duration
	// MaxPending schedules a pass immediately once this many relevant
	// records accumulate. Default: 1000.
	MaxPending int
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 100 * time.Millisecond
	}
	if dc.MaxPending <= 0 {
		dc.MaxPending = 1000
	}
}

// debouncer holds a single pending timer. Every touch resets it, so only
// the latest scheduled pass fires; a generation counter discards a timer
// that fired while being replaced.
type debouncer struct {
	cfg     debounceConfig
	clk     clock.Clock
	fireFn  func()
	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	pending int
}

func newDebouncer(cfg debounceConfig, clk clock.Clock, fireFn func()) *debouncer {
	cfg.defaults()
	return &debouncer{cfg: cfg, clk: clk, fireFn: fireFn}
}

// touch registers one relevant change. Returns true if the buffer limit
// triggered an immediate fire.
func (d *debouncer) touch() bool {
	d.mu.Lock()
	d.pending++
	if d.pending >= d.cfg.MaxPending {
		d.resetLocked()
		d.mu.Unlock()
		d.fireFn()
		return true
	}

	// (Re)start the window timer.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clk.AfterFunc(d.cfg.Window, func() { d.expire(gen) })
	d.mu.Unlock()
	return false
}

func (d *debouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.resetLocked()
	d.mu.Unlock()
	d.fireFn()
}

// cancel drops any pending fire.
func (d *debouncer) cancel() {
	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
}

func (d *debouncer) resetLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = 0
}

func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
