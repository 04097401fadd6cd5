package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createLoadRunsTable = `
    create table if not exists load_runs(
        table_name varchar not null
        , row_count int8 not null
        , finished_at timestamp not null
    )`

// EnsureHistory creates the load bookkeeping table if missing.
func EnsureHistory(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createLoadRunsTable); err != nil {
		return fmt.Errorf("create load_runs: %w", err)
	}
	return nil
}

// RecordLoadRun appends one bookkeeping row per successfully loaded table.
func RecordLoadRun(ctx context.Context, db *sql.DB, table string, rows int64, finishedAt time.Time) error {
	q := `insert into load_runs(table_name, row_count, finished_at) values ($1, $2, $3)`
	if _, err := db.ExecContext(ctx, q, table, rows, finishedAt); err != nil {
		return fmt.Errorf("record load run for %s: %w", table, err)
	}
	return nil
}

// LatestLoadRun returns the most recent successful load for a table.
func LatestLoadRun(ctx context.Context, db *sql.DB, table string) (time.Time, int64, error) {
	q := `
select finished_at, row_count
from load_runs
where table_name = $1
order by finished_at desc
limit 1`
	var at time.Time
	var rows int64
	if err := db.QueryRowContext(ctx, q, table).Scan(&at, &rows); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, 0, fmt.Errorf("no load recorded for table %q", table)
		}
		return time.Time{}, 0, err
	}
	return at, rows, nil
}
