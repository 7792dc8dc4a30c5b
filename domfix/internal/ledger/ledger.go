// Package ledger persists pass reports in SQLite so reconciliation history
// survives restarts and can be queried by screen or by failing rule.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/domfix/dbopen"
	"github.com/hazyhaar/domfix/domfix/mutation"
)

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS passes (
	id           TEXT PRIMARY KEY,
	seq          INTEGER NOT NULL,
	screen_id    TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	applied      INTEGER NOT NULL DEFAULT 0,
	mutations    INTEGER NOT NULL DEFAULT 0,
	failures     INTEGER NOT NULL DEFAULT 0,
	aborted      TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	duration_us  INTEGER NOT NULL DEFAULT 0,
	report       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_screen ON passes(screen_id, started_at);

CREATE TABLE IF NOT EXISTS pass_failures (
	pass_id TEXT NOT NULL REFERENCES passes(id) ON DELETE CASCADE,
	rule_id TEXT NOT NULL,
	xpath   TEXT NOT NULL DEFAULT '',
	error   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pass_failures_rule ON pass_failures(rule_id);
`

// Ledger stores passes.
type Ledger struct {
	db    *sql.DB
	owned bool
}

// Open opens (or creates) a ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &Ledger{db: db, owned: true}, nil
}

// New wraps an existing database. The schema must already be applied.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Insert records a pass and its failures.
func (l *Ledger) Insert(ctx context.Context, p *mutation.Pass) error {
	report, err := mutation.MarshalPass(p)
	if err != nil {
		return fmt.Errorf("ledger: marshal pass: %w", err)
	}
	return dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO passes (id, seq, screen_id, trigger_kind, applied, mutations,
			                    failures, aborted, started_at, duration_us, report)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Seq, p.ScreenID, string(p.Trigger), p.Applied, p.Mutations(),
			len(p.Failures), p.Aborted, p.StartedAt, p.Duration, string(report),
		); err != nil {
			return fmt.Errorf("ledger: insert pass %s: %w", p.ID, err)
		}
		for _, f := range p.Failures {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pass_failures (pass_id, rule_id, xpath, error) VALUES (?, ?, ?, ?)`,
				p.ID, f.RuleID, f.XPath, f.Error,
			); err != nil {
				return fmt.Errorf("ledger: insert failure: %w", err)
			}
		}
		return nil
	})
}

// Query filters Recent.
type Query struct {
	ScreenID string
	Limit    int // default 50
}

// Recent returns the latest passes, newest first.
func (l *Ledger) Recent(ctx context.Context, q Query) ([]*mutation.Pass, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	query := `SELECT report FROM passes`
	var args []any
	if q.ScreenID != "" {
		query += ` WHERE screen_id = ?`
		args = append(args, q.ScreenID)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	defer rows.Close()

	var out []*mutation.Pass
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		p, err := mutation.UnmarshalPass([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("ledger: decode report: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one pass by ID, or sql.ErrNoRows.
func (l *Ledger) Get(ctx context.Context, id string) (*mutation.Pass, error) {
	var raw string
	err := l.db.QueryRowContext(ctx, `SELECT report FROM passes WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return mutation.UnmarshalPass([]byte(raw))
}

// FailuresByRule counts recorded failures per rule ID.
func (l *Ledger) FailuresByRule(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT rule_id, COUNT(*) FROM pass_failures GROUP BY rule_id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: failures by rule: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Prune keeps the newest keep passes and deletes the rest.
func (l *Ledger) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := dbopen.Exec(ctx, l.db, `
		DELETE FROM passes WHERE id NOT IN (
			SELECT id FROM passes ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("ledger: prune: %w", err)
	}
	return res.RowsAffected()
}

// Send implements the sink interface.
func (l *Ledger) Send(ctx context.Context, p *mutation.Pass) error {
	return l.Insert(ctx, p)
}

// Close closes the database if the ledger opened it.
func (l *Ledger) Close() error {
	if l.owned {
		return l.db.Close()
	}
	return nil
}
