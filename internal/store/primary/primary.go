package primary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreImpl implements the pergaminos store interfaces using PostgreSQL.
type StoreImpl struct {
	db *pgxpool.Pool
}

// NewPrimaryStore creates a new PostgreSQL primary store implementation.
func NewPrimaryStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &StoreImpl{db: dbpool}, nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection pool.
func (s *StoreImpl) Close() {
	s.db.Close()
}

// EnsureSchema creates the tables the service needs if they are missing.
// Kept idempotent so serve/worker can both run it on startup.
func (s *StoreImpl) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			company_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			semantic_instructions TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id),
			filename TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			file_path TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'uploaded',
			extracted_data JSONB,
			display_order INTEGER,
			reorder_reasoning TEXT,
			processed_at TIMESTAMPTZ,
			reordered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			uploaded_by TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			subject_id UUID NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'processing',
			progress INTEGER NOT NULL DEFAULT 0,
			result JSONB,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_subject ON tasks(subject_id)`,
		`CREATE TABLE IF NOT EXISTS qa_agents (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			qa_instructions TEXT NOT NULL,
			project_ids UUID[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
