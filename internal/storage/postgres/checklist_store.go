// Package postgres provides the Postgres-backed checklist store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

const defaultTable = "checklist"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for checklist rows.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Table    string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// connString renders the non-secret connection parameters; the password is
// set on the parsed config so it never appears in a DSN string.
func (c Config) connString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s", c.Host, port, c.User, c.Database, sslMode)
}

type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// ChecklistStore reads and writes checklist rows through a connection pool.
type ChecklistStore struct {
	pool  pool
	table string
}

// Open connects a pool, verifies it with a ping, and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*ChecklistStore, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("postgres host and database are required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.ConnConfig.Password = cfg.Password
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*ChecklistStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ChecklistStore{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ChecklistStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the checklist table and its lookup index if missing.
func (s *ChecklistStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	business_id VARCHAR(100) NOT NULL,
	task TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_business_created_idx ON %[1]s (business_id, created_at DESC)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure checklist schema: %w", err)
	}
	return nil
}

// AddTask inserts a row in its own transaction. Any failure after Begin rolls
// the transaction back so no partial row remains.
func (s *ChecklistStore) AddTask(ctx context.Context, businessID, task string) (row compliance.ChecklistTask, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("begin checklist insert: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	query := fmt.Sprintf(`INSERT INTO %s (business_id, task) VALUES ($1, $2) RETURNING id, created_at`, s.table)
	row = compliance.ChecklistTask{BusinessID: businessID, Task: task}
	if err = tx.QueryRow(ctx, query, businessID, task).Scan(&row.ID, &row.CreatedAt); err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("insert checklist task: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return compliance.ChecklistTask{}, fmt.Errorf("commit checklist task: %w", err)
	}
	row.CreatedAt = row.CreatedAt.UTC()
	return row, nil
}

// ListTasks returns the business's rows newest first; ties resolve by id.
func (s *ChecklistStore) ListTasks(ctx context.Context, businessID string) ([]compliance.ChecklistTask, error) {
	query := fmt.Sprintf(`
SELECT id, business_id, task, created_at
FROM %s
WHERE business_id = $1
ORDER BY created_at DESC, id DESC`, s.table)
	rows, err := s.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list checklist tasks: %w", err)
	}
	defer rows.Close()

	tasks := []compliance.ChecklistTask{}
	for rows.Next() {
		var t compliance.ChecklistTask
		if err := rows.Scan(&t.ID, &t.BusinessID, &t.Task, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist task: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist tasks: %w", err)
	}
	return tasks, nil
}
