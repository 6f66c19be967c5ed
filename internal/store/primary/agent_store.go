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

const agentColumns = `id, name, description, qa_instructions, project_ids, is_active, created_at, created_by`

func scanAgent(row pgx.Row, dest *models.QAAgent) error {
	return row.Scan(
		&dest.ID,
		&dest.Name,
		&dest.Description,
		&dest.QAInstructions,
		&dest.ProjectIDs,
		&dest.IsActive,
		&dest.CreatedAt,
		&dest.CreatedBy,
	)
}

func (s *StoreImpl) CreateAgent(ctx context.Context, agent *models.QAAgent) error {
	query := `
		INSERT INTO qa_agents (id, name, description, qa_instructions, project_ids, is_active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.Exec(ctx, query,
		agent.ID, agent.Name, agent.Description, agent.QAInstructions,
		agent.ProjectIDs, agent.IsActive, agent.CreatedAt, agent.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create qa agent %s: %w", agent.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetAgent(ctx context.Context, id uuid.UUID) (*models.QAAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM qa_agents WHERE id = $1`
	agent := &models.QAAgent{}
	if err := scanAgent(s.db.QueryRow(ctx, query, id), agent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get qa agent %s: %w", id, err)
	}
	return agent, nil
}

func (s *StoreImpl) ListAgents(ctx context.Context) ([]*models.QAAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM qa_agents ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa agents: %w", err)
	}
	defer rows.Close()

	var out []*models.QAAgent
	for rows.Next() {
		agent := &models.QAAgent{}
		if err := scanAgent(rows, agent); err != nil {
			return nil, fmt.Errorf("failed to scan qa agent row: %w", err)
		}
		out = append(out, agent)
	}
	return out, rows.Err()
}
