package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scrub/internal/config"
	"scrub/internal/table"
)

// sqliteSink persists the cleaned table into SQLite using database/sql.
// SQLite has no dedicated bulk-load API, so rows go in as batched INSERTs
// inside a transaction, which keeps performance acceptable for moderate
// volumes.
type sqliteSink struct {
	db        *sql.DB
	tableName string
	batchSize int
}

func newSQLiteSink(ctx context.Context, opts config.Options) (*sqliteSink, error) {
	dsn := opts.String("dsn", "")
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sink: sqlite: dsn must not be empty")
	}
	tableName := opts.String("table", "")
	if tableName == "" {
		return nil, fmt.Errorf("sink: sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: sqlite: ping: %w", err)
	}

	return &sqliteSink{
		db:        db,
		tableName: tableName,
		batchSize: opts.Int("batch_size", defaultBatchSize),
	}, nil
}

// sqliteType maps a column kind to an SQLite storage class.
func sqliteType(k table.Kind) string {
	switch k {
	case table.Numeric:
		return "REAL"
	case table.Boolean:
		return "INTEGER"
	case table.Datetime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (s *sqliteSink) ensureTable(ctx context.Context, t *table.Table) error {
	defs := make([]string, len(t.Cols))
	for i, col := range t.Cols {
		defs[i] = fmt.Sprintf("%q %s", col.Name, sqliteType(col.Kind))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", s.tableName, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sink: sqlite: create table: %w", err)
	}
	return nil
}

func (s *sqliteSink) Write(ctx context.Context, t *table.Table) error {
	if err := s.ensureTable(ctx, t); err != nil {
		return err
	}

	cols := make([]string, t.NumCols())
	placeholders := make([]string, t.NumCols())
	for i, name := range t.Names() {
		cols[i] = fmt.Sprintf("%q", name)
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %q (%s) VALUES (%s)",
		s.tableName, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	return batchRows(ctx, t, s.batchSize, func(rows [][]any) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sink: sqlite: begin tx: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, stmtSQL)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sink: sqlite: prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, driverValues(row)...); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("sink: sqlite: insert: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sink: sqlite: commit: %w", err)
		}
		return nil
	})
}

func (s *sqliteSink) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// driverValues converts typed cells to values database/sql drivers accept.
func driverValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case time.Time:
			out[i] = x.UTC().Format(time.RFC3339)
		default:
			out[i] = v
		}
	}
	return out
}
