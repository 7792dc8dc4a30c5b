// Package sink defines output backends for pass reports.
package sink

import (
	"context"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

// Sink receives one report per reconciliation pass. Implementations deliver
// them to different backends (stdout, webhook, ledger, in-process callback).
type Sink interface {
	Send(ctx context.Context, pass *mutation.Pass) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PassFunc is called for each pass (in-process, zero serialisation).
type PassFunc func(ctx context.Context, pass *mutation.Pass) error

// Callback delivers passes via a Go function call.
type Callback struct {
	fn PassFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn PassFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, pass *mutation.Pass) error {
	if c.fn != nil {
		return c.fn(ctx, pass)
	}
	return nil
}

func (c *Callback) Close() error { return nil }

// Filter forwards only the passes keep accepts.
type Filter struct {
	next Sink
	keep func(*mutation.Pass) bool
}

// NewFilter wraps next.
func NewFilter(next Sink, keep func(*mutation.Pass) bool) *Filter {
	return &Filter{next: next, keep: keep}
}

// Eventful keeps passes that wrote something, failed, or were aborted.
func Eventful(p *mutation.Pass) bool {
	return p.Mutations() > 0 || !p.OK()
}

func (f *Filter) Send(ctx context.Context, pass *mutation.Pass) error {
	if !f.keep(pass) {
		return nil
	}
	return f.next.Send(ctx, pass)
}

func (f *Filter) Close() error { return f.next.Close() }
