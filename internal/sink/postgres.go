package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scrub/internal/config"
	"scrub/internal/table"
)

// postgresSink persists the cleaned table into Postgres using pgx v5 COPY.
// COPY takes the whole row stream in one round-trip per batch, which is the
// cheapest bulk path Postgres offers.
type postgresSink struct {
	pool      *pgxpool.Pool
	tableName string
	batchSize int
	create    bool
}

func newPostgresSink(ctx context.Context, opts config.Options) (*postgresSink, error) {
	dsn := opts.String("dsn", "")
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sink: postgres: dsn must not be empty")
	}
	tableName := opts.String("table", "")
	if tableName == "" {
		return nil, fmt.Errorf("sink: postgres: table must not be empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: postgres: pool: %w", err)
	}

	return &postgresSink{
		pool:      pool,
		tableName: tableName,
		batchSize: opts.Int("batch_size", defaultBatchSize),
		create:    opts.Bool("create_table", true),
	}, nil
}

// pgType maps a column kind to a Postgres type.
func pgType(k table.Kind) string {
	switch k {
	case table.Numeric:
		return "double precision"
	case table.Boolean:
		return "boolean"
	case table.Datetime:
		return "timestamptz"
	default:
		return "text"
	}
}

// identifier splits a possibly schema-qualified name into a pgx.Identifier,
// which pgx quotes per part.
func identifier(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

func (s *postgresSink) ensureTable(ctx context.Context, t *table.Table) error {
	if !s.create {
		return nil
	}
	defs := make([]string, len(t.Cols))
	for i, col := range t.Cols {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{col.Name}.Sanitize(), pgType(col.Kind))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		identifier(s.tableName).Sanitize(), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("sink: postgres: create table: %w", err)
	}
	return nil
}

func (s *postgresSink) Write(ctx context.Context, t *table.Table) error {
	if err := s.ensureTable(ctx, t); err != nil {
		return err
	}

	names := t.Names()
	return batchRows(ctx, t, s.batchSize, func(rows [][]any) error {
		n, err := s.pool.CopyFrom(ctx, identifier(s.tableName), names, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("sink: postgres: copy: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("sink: postgres: copy reported %d of %d rows", n, len(rows))
		}
		return nil
	})
}

func (s *postgresSink) Close(context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
