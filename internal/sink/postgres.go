package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// txRunner is the subset of pkg/postgres.Client used by PostgresSink.
type txRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Table() string
	Close() error
}

// PostgresSink bulk-loads assignments with COPY inside one transaction, so a
// run is either fully visible or absent. The table is created on first use:
//
//	CREATE TABLE cluster_assignments (
//	    run_id     UUID        NOT NULL,
//	    item_key   TEXT        NOT NULL,
//	    cluster    INTEGER     NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (run_id, item_key)
//	);
type PostgresSink struct {
	db txRunner
}

func NewPostgresSink(db txRunner) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, a Assignment) error {
	table := s.db.Table()
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL(table)); err != nil {
			return fmt.Errorf("ensuring table %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, "run_id", "item_key", "cluster", "created_at"))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", table, err)
		}
		for _, item := range a.Items {
			if _, err := stmt.ExecContext(ctx, a.RunID, item.Key, item.Cluster, a.FinishedAt); err != nil {
				stmt.Close()
				return fmt.Errorf("copying item %s: %w", item.Key, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy into %s: %w", table, err)
		}
		return stmt.Close()
	})
}

func schemaSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id     UUID        NOT NULL,
	item_key   TEXT        NOT NULL,
	cluster    INTEGER     NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, item_key)
)`, pq.QuoteIdentifier(table))
}

func (s *PostgresSink) Ping(ctx context.Context) error { return ping(ctx, s.db) }

func (s *PostgresSink) Close() error { return s.db.Close() }
