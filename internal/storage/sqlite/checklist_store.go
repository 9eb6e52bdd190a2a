// Package sqlite stores checklist rows in an embedded SQLite database for
// single-node and development deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

const schema = `
CREATE TABLE IF NOT EXISTS checklist (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  business_id   TEXT    NOT NULL CHECK (length(business_id) <= 100),
  task          TEXT    NOT NULL,
  created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS checklist_business_created_idx
  ON checklist (business_id, created_at_ms DESC);
`

// Open creates the parent directory, opens the database file with a single
// connection and applies the schema.
func Open(ctx context.Context, path string, clock compliance.Clock) (*ChecklistStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	return openDSN(ctx, dsn, clock)
}

func openDSN(ctx context.Context, dsn string, clock compliance.Clock) (*ChecklistStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply checklist schema: %w", err)
	}
	return New(db, clock), nil
}

// ChecklistStore implements compliance.ChecklistStore over database/sql.
type ChecklistStore struct {
	db    *sql.DB
	clock compliance.Clock
}

// New wraps an already-migrated database handle.
func New(db *sql.DB, clock compliance.Clock) *ChecklistStore {
	return &ChecklistStore{db: db, clock: clock}
}

// Close releases the database handle.
func (s *ChecklistStore) Close() error {
	return s.db.Close()
}

func (s *ChecklistStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}

// AddTask inserts one row inside a transaction and returns it with its
// assigned id and timestamp.
func (s *ChecklistStore) AddTask(ctx context.Context, businessID, task string) (compliance.ChecklistTask, error) {
	created := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("AddTask begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO checklist(business_id, task, created_at_ms) VALUES (?, ?, ?);
`, businessID, task, created.UnixMilli())
	if err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("AddTask insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("AddTask last id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("AddTask commit: %w", err)
	}

	return compliance.ChecklistTask{
		ID:         id,
		BusinessID: businessID,
		Task:       task,
		CreatedAt:  time.UnixMilli(created.UnixMilli()).UTC(),
	}, nil
}

// ListTasks returns the business's rows newest first.
func (s *ChecklistStore) ListTasks(ctx context.Context, businessID string) ([]compliance.ChecklistTask, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, business_id, task, created_at_ms
FROM checklist
WHERE business_id = ?
ORDER BY created_at_ms DESC, id DESC;
`, businessID)
	if err != nil {
		return nil, fmt.Errorf("ListTasks query: %w", err)
	}
	defer rows.Close()

	tasks := []compliance.ChecklistTask{}
	for rows.Next() {
		var (
			t         compliance.ChecklistTask
			createdMs int64
		)
		if err := rows.Scan(&t.ID, &t.BusinessID, &t.Task, &createdMs); err != nil {
			return nil, fmt.Errorf("ListTasks scan: %w", err)
		}
		t.CreatedAt = time.UnixMilli(createdMs).UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTasks rows: %w", err)
	}
	return tasks, nil
}
