package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/fmonctl/internal/history"
)

// Sink writes archived events to a SQLite database.
type Sink struct {
	db *sql.DB
}

// New creates a new SQLite archive sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Shared archive files get concurrent writers from repeated archive runs.
	if _, err := db.Exec("PRAGMA busy_timeout = 3000;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	sink := &Sink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	// Append-only audit table, no primary key.
	stmt := `CREATE TABLE IF NOT EXISTS fmon_events(
		occurred_at TIMESTAMP,
		day TEXT,
		kind TEXT NOT NULL,
		raw TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	var occurred any
	if !e.OccurredAt.IsZero() {
		occurred = e.OccurredAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fmon_events(occurred_at, day, kind, raw)
		VALUES(?, ?, ?, ?);`,
		occurred, e.Day, string(e.Kind), e.Raw)
	return err
}

// Count reports the number of archived rows; used by tests and the perf view.
func (s *Sink) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fmon_events;`).Scan(&n)
	return n, err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
