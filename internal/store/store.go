// Package store manages SQLite persistence for the case board. The analytics
// engine only ever reads a full population snapshot; writes come from the
// intake path and the demo seeder.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Store wraps the SQLite database, opened in WAL mode so a watcher-triggered
// analytics run can read while intake writes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		due_date   TEXT NOT NULL,
		done       INTEGER NOT NULL DEFAULT 0,
		done_at    TEXT
	);

	CREATE TABLE IF NOT EXISTS case_tags (
		case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		tag     TEXT NOT NULL,
		PRIMARY KEY (case_id, tag)
	);

	CREATE TABLE IF NOT EXISTS case_events (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
		at      TEXT NOT NULL,
		action  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeFormat, s)
}

// PutCase inserts or fully replaces one case, including its tags and event
// log. The replacement is transactional; readers never see a half-written
// case.
func (s *Store) PutCase(ctx context.Context, c *model.Case) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	doneAt := sql.NullString{}
	if !c.DoneAt.IsZero() {
		doneAt = sql.NullString{String: formatTime(c.DoneAt), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cases (id, category, created_at, due_date, done, done_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category = excluded.category, created_at = excluded.created_at,
		   due_date = excluded.due_date, done = excluded.done, done_at = excluded.done_at`,
		c.ID, string(c.Category), formatTime(c.CreatedAt), formatTime(c.DueDate),
		boolToInt(c.Done), doneAt,
	); err != nil {
		return fmt.Errorf("upsert case %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM case_tags WHERE case_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tag := range c.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_tags (case_id, tag) VALUES (?, ?)`, c.ID, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM case_events WHERE case_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	for _, e := range c.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_events (case_id, at, action) VALUES (?, ?, ?)`,
			c.ID, formatTime(e.At), e.Action); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// AppendEvent appends one entry to a case's event log.
func (s *Store) AppendEvent(ctx context.Context, caseID string, e model.EventEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO case_events (case_id, at, action) VALUES (?, ?, ?)`,
		caseID, formatTime(e.At), e.Action)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// FetchPopulation loads every case with its tags and chronologically ordered
// event log.
func (s *Store) FetchPopulation(ctx context.Context) ([]*model.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, created_at, due_date, done, done_at FROM cases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []*model.Case
	byID := make(map[string]*model.Case)
	for rows.Next() {
		var c model.Case
		var category, createdAt, dueDate string
		var done int
		var doneAt sql.NullString
		if err := rows.Scan(&c.ID, &category, &createdAt, &dueDate, &done, &doneAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.Category = model.Category(category)
		c.Done = done != 0
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("case %s created_at: %w", c.ID, err)
		}
		if c.DueDate, err = parseTime(dueDate); err != nil {
			return nil, fmt.Errorf("case %s due_date: %w", c.ID, err)
		}
		if doneAt.Valid {
			if c.DoneAt, err = parseTime(doneAt.String); err != nil {
				return nil, fmt.Errorf("case %s done_at: %w", c.ID, err)
			}
		}
		cases = append(cases, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}

	if err := s.loadTags(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadEvents(ctx, byID); err != nil {
		return nil, err
	}
	return cases, nil
}

func (s *Store) loadTags(ctx context.Context, byID map[string]*model.Case) error {
	rows, err := s.db.QueryContext(ctx, `SELECT case_id, tag FROM case_tags ORDER BY case_id, tag`)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var caseID, tag string
		if err := rows.Scan(&caseID, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if c, ok := byID[caseID]; ok {
			c.Tags = append(c.Tags, tag)
		}
	}
	return rows.Err()
}

func (s *Store) loadEvents(ctx context.Context, byID map[string]*model.Case) error {
	rows, err := s.db.QueryContext(ctx, `SELECT case_id, at, action FROM case_events ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var caseID, at, action string
		if err := rows.Scan(&caseID, &at, &action); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		c, ok := byID[caseID]
		if !ok {
			continue
		}
		t, err := parseTime(at)
		if err != nil {
			return fmt.Errorf("case %s event at: %w", caseID, err)
		}
		c.Events = append(c.Events, model.EventEntry{At: t, Action: action})
	}
	return rows.Err()
}

// CountCases returns the number of stored cases.
func (s *Store) CountCases(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
