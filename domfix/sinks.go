package domfix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazyhaar/domfix/domfix/internal/ledger"
	"github.com/hazyhaar/domfix/domfix/internal/sink"
	"github.com/hazyhaar/domfix/domfix/mutation"
)

// Sink is the output interface for pass reports.
type Sink = sink.Sink

// PassFunc is called for each pass.
type PassFunc = sink.PassFunc

// Ledger is the SQLite pass history.
type Ledger = ledger.Ledger

// LedgerQuery filters ledger history.
type LedgerQuery = ledger.Query

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn func(ctx context.Context, pass *mutation.Pass) error) Sink {
	return sink.NewCallback(fn)
}

// Eventful wraps next so it only receives passes that wrote something,
// failed or were aborted.
func Eventful(next Sink) Sink {
	return sink.NewFilter(next, sink.Eventful)
}

// OpenLedger opens (or creates) a ledger database.
func OpenLedger(path string) (*Ledger, error) {
	return ledger.Open(path)
}

// WithLedger stores every pass in l and serves history queries from it.
func WithLedger(l *Ledger) Option {
	return func(o *options) {
		o.ledger = l
		o.sinks = append(o.sinks, l)
	}
}

// OpenSinks builds the sinks a configuration names. Stdout and webhook
// sinks only receive eventful passes. A ledger entry is returned separately
// for WithLedger; only the first one is opened.
func OpenSinks(cfgs []SinkConfig, logger *slog.Logger) ([]Sink, *Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []Sink
	var led *Ledger
	for i, c := range cfgs {
		switch c.Type {
		case "stdout":
			sinks = append(sinks, Eventful(NewStdoutSink(os.Stdout)))
		case "webhook":
			sinks = append(sinks, Eventful(NewWebhookSink(c.URL, logger)))
		case "ledger":
			if led != nil {
				logger.Warn("domfix: extra ledger sink ignored", "path", c.Path)
				continue
			}
			l, err := OpenLedger(c.Path)
			if err != nil {
				closeAll(sinks)
				return nil, nil, fmt.Errorf("domfix: sinks[%d]: %w", i, err)
			}
			led = l
		default:
			closeAll(sinks)
			if led != nil {
				led.Close()
			}
			return nil, nil, fmt.Errorf("domfix: sinks[%d]: unknown type %q", i, c.Type)
		}
	}
	return sinks, led, nil
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		s.Close()
	}
}

// History returns past passes, newest first: from the ledger when one is
// attached, otherwise from the in-memory reports.
func (e *Engine) History(ctx context.Context, q LedgerQuery) ([]*mutation.Pass, error) {
	if e.ledger != nil {
		return e.ledger.Recent(ctx, q)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []*mutation.Pass
	for _, p := range e.Passes(0) {
		if q.ScreenID != "" && p.ScreenID != q.ScreenID {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// FailuresByRule counts recorded rule failures per rule ID.
func (e *Engine) FailuresByRule(ctx context.Context) (map[string]int, error) {
	if e.ledger != nil {
		return e.ledger.FailuresByRule(ctx)
	}
	out := make(map[string]int)
	for _, p := range e.Passes(0) {
		for _, f := range p.Failures {
			out[f.RuleID]++
		}
	}
	return out, nil
}
