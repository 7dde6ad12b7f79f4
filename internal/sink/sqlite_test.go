package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"scrub/internal/config"
)

/*
Integration test for the SQLite sink against a real file-backed database.
The driver is pure Go, so this runs everywhere the unit tests do.
*/

// TestSQLiteSink_RoundTrip writes a typed table and queries it back.
func TestSQLiteSink_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.db")
	s, err := New(context.Background(), config.SinkConfig{
		Kind:    "sqlite",
		Options: config.Options{"dsn": path, "table": "cleaned", "batch_size": 2},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Write(context.Background(), sampleTable(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "cleaned"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("row count = %d, want 3", n)
	}

	var amount float64
	var day string
	err = db.QueryRow(`SELECT "amount", "day" FROM "cleaned" WHERE "id" = 'a'`).Scan(&amount, &day)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if amount != 1200 {
		t.Errorf("amount = %v, want 1200", amount)
	}
	if day != "2024-05-17T00:00:00Z" {
		t.Errorf("day = %q, want RFC 3339 UTC", day)
	}

	var nulls int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "cleaned" WHERE "id" IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("null count: %v", err)
	}
	if nulls != 1 {
		t.Errorf("NULL ids = %d, want 1", nulls)
	}
}

// TestSQLiteSink_RequiresOptions checks dsn and table validation.
func TestSQLiteSink_RequiresOptions(t *testing.T) {
	t.Parallel()

	if _, err := newSQLiteSink(context.Background(), config.Options{"table": "x"}); err == nil {
		t.Error("missing dsn accepted, want error")
	}
	if _, err := newSQLiteSink(context.Background(), config.Options{"dsn": "file.db"}); err == nil {
		t.Error("missing table accepted, want error")
	}
}
