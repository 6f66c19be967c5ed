package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, subject_id, kind, status, progress, result, error, created_at, updated_at`

func scanTask(row pgx.Row, dest *models.Task) error {
	return row.Scan(
		&dest.ID,
		&dest.SubjectID,
		&dest.Kind,
		&dest.Status,
		&dest.Progress,
		&dest.Result,
		&dest.Error,
		&dest.CreatedAt,
		&dest.UpdatedAt,
	)
}

func (s *StoreImpl) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, subject_id, kind, status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, query,
		task.ID, task.SubjectID, task.Kind, task.Status, task.Progress,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask is scoped by subject: a valid task id queried under the wrong
// subject comes back ErrNotFound rather than leaking across subjects.
func (s *StoreImpl) GetTask(ctx context.Context, taskID, subjectID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND subject_id = $2`
	task := &models.Task{}
	if err := scanTask(s.db.QueryRow(ctx, query, taskID, subjectID), task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return task, nil
}

// GetTaskByID reads a task without subject scoping; internal use only.
func (s *StoreImpl) GetTaskByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task := &models.Task{}
	if err := scanTask(s.db.QueryRow(ctx, query, taskID), task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return task, nil
}

// UpdateTask merges the partial fields of update into the task record.
// Nil fields are left untouched (COALESCE keeps the stored value).
func (s *StoreImpl) UpdateTask(ctx context.Context, taskID uuid.UUID, update store.TaskUpdate) error {
	query := `UPDATE tasks SET
		status = COALESCE($1, status),
		progress = COALESCE($2, progress),
		result = COALESCE($3, result),
		error = COALESCE($4, error),
		updated_at = $5
		WHERE id = $6`
	cmdTag, err := s.db.Exec(ctx, query,
		update.Status, update.Progress, update.Result, update.Error, time.Now(), taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found to update: %w", taskID, store.ErrNotFound)
	}
	return nil
}

func (s *StoreImpl) ListRecentTasks(ctx context.Context, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		task := &models.Task{}
		if err := scanTask(rows, task); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}
