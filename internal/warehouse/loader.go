package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"
)

// Loader drives the fixed load sequence: recreate tables, COPY each from its
// curated S3 location, then verify row counts and primary-key uniqueness.
type Loader struct {
	db              *sql.DB
	accessKeyID     string
	secretAccessKey string
}

func NewLoader(db *sql.DB, accessKeyID, secretAccessKey string) *Loader {
	return &Loader{db: db, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
}

// Job binds a table to its curated source and the row count the gate/writer
// produced for it.
type Job struct {
	Table        Table
	SourceURI    string
	ExpectedRows int64
}

// JobsFor builds the standard load jobs against the curated bucket.
func JobsFor(bucket string, expected map[string]int64) []Job {
	jobs := make([]Job, 0, len(Tables))
	for _, t := range Tables {
		jobs = append(jobs, Job{
			Table:        t,
			SourceURI:    fmt.Sprintf("s3://%s/%s", bucket, t.Prefix),
			ExpectedRows: expected[t.Name],
		})
	}
	return jobs
}

// Run executes the whole sequence and returns on the first failure.
func (l *Loader) Run(ctx context.Context, jobs []Job) error {
	for _, j := range jobs {
		if err := l.exec(ctx, j.Table.CreateSQL); err != nil {
			return fmt.Errorf("create table %s: %w", j.Table.Name, err)
		}
		log.Printf("recreated table %s", j.Table.Name)
	}
	for _, j := range jobs {
		stmt := copyStatement(j.Table.Name, j.SourceURI, l.accessKeyID, l.secretAccessKey, j.Table.CopyFormat)
		if err := l.exec(ctx, stmt); err != nil {
			return fmt.Errorf("copy into %s from %s: %w", j.Table.Name, j.SourceURI, err)
		}
		log.Printf("loaded table %s from %s", j.Table.Name, j.SourceURI)
	}
	for _, j := range jobs {
		if err := l.CheckRowCount(ctx, j.Table.Name, j.ExpectedRows); err != nil {
			return err
		}
		if j.Table.PrimaryKey != "" {
			if err := l.CheckUnique(ctx, j.Table.Name, j.Table.PrimaryKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// RowCount returns the current row count of a table.
func (l *Loader) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, rowCountQuery(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// CheckRowCount verifies the loaded row count matches the source row count.
func (l *Loader) CheckRowCount(ctx context.Context, table string, want int64) error {
	got, err := l.RowCount(ctx, table)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("row count mismatch for %s: loaded %d, source %d", table, got, want)
	}
	log.Printf("row count check passed for %s: %d rows", table, got)
	return nil
}

// CheckUnique verifies the declared primary key column holds unique values.
func (l *Loader) CheckUnique(ctx context.Context, table, pk string) error {
	var dups int64
	if err := l.db.QueryRowContext(ctx, uniquenessQuery(table, pk)).Scan(&dups); err != nil {
		return fmt.Errorf("uniqueness check %s.%s: %w", table, pk, err)
	}
	if dups != 0 {
		return fmt.Errorf("primary key %s.%s has %d duplicate rows", table, pk, dups)
	}
	log.Printf("uniqueness check passed for %s.%s", table, pk)
	return nil
}

// exec runs one statement with a timeout, logging a short head of the SQL on
// failure so COPY errors are attributable.
func (l *Loader) exec(ctx context.Context, stmt string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		// keep the head short so COPY credentials never reach the log
		head := strings.Join(strings.Fields(stmt), " ")
		if len(head) > 40 {
			head = head[:40] + "..."
		}
		log.Printf("statement failed: %s", head)
		return err
	}
	return nil
}
