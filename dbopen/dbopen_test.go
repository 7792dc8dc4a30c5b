package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenMemoryPragmas(t *testing.T) {
	db := OpenMemory(t, WithBusyTimeout(5000))

	var fk, sync, busy int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if fk != 1 || sync != 1 || busy != 5000 {
		t.Errorf("pragmas: foreign_keys=%d synchronous=%d busy_timeout=%d", fk, sync, busy)
	}
}

func TestOpenFileWithSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	db, err := Open(path, WithMkdirAll(), WithSchema(`CREATE TABLE t (id INTEGER PRIMARY KEY)`))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO t (id) VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestOpenBadSchema(t *testing.T) {
	if _, err := Open(":memory:", WithSchema("CREATE NONSENSE")); err == nil {
		t.Fatal("Open with invalid schema: want error")
	}
}

func TestRunTxRollback(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE t (id INTEGER PRIMARY KEY)`))
	boom := errors.New("boom")

	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (id) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunTx: got %v, want boom", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after rollback: got %d, want 0", n)
	}
}

func TestIsBusy(t *testing.T) {
	if !IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("IsBusy: want true")
	}
	if IsBusy(nil) || IsBusy(errors.New("no such table")) {
		t.Error("IsBusy: want false")
	}
}
