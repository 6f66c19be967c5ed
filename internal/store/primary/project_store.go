package primary

import (
	"context"
	"errors"
	"fmt"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `id, name, description, company_id, status, semantic_instructions, created_at, created_by`

func scanProject(row pgx.Row, dest *models.Project) error {
	return row.Scan(
		&dest.ID,
		&dest.Name,
		&dest.Description,
		&dest.CompanyID,
		&dest.Status,
		&dest.SemanticInstructions,
		&dest.CreatedAt,
		&dest.CreatedBy,
	)
}

func (s *StoreImpl) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, name, description, company_id, status, semantic_instructions, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.Exec(ctx, query,
		project.ID, project.Name, project.Description, project.CompanyID,
		project.Status, project.SemanticInstructions, project.CreatedAt, project.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create project %s: %w", project.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	project := &models.Project{}
	if err := scanProject(s.db.QueryRow(ctx, query, id), project); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return project, nil
}

func (s *StoreImpl) ListProjects(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		project := &models.Project{}
		if err := scanProject(rows, project); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

func (s *StoreImpl) CountProjects(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}
