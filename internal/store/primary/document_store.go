package primary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, project_id, filename, original_filename, file_path, status,
	extracted_data, display_order, reorder_reasoning, processed_at, reordered_at, created_at, uploaded_by`

// scanDocument scans a single row into a models.Document. Column order
// must match documentColumns.
func scanDocument(row pgx.Row, dest *models.Document) error {
	return row.Scan(
		&dest.ID,
		&dest.ProjectID,
		&dest.Filename,
		&dest.OriginalFilename,
		&dest.FilePath,
		&dest.Status,
		&dest.ExtractedData,
		&dest.DisplayOrder,
		&dest.ReorderReasoning,
		&dest.ProcessedAt,
		&dest.ReorderedAt,
		&dest.CreatedAt,
		&dest.UploadedBy,
	)
}

func (s *StoreImpl) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, project_id, filename, original_filename, file_path, status, created_at, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.Exec(ctx, query,
		doc.ID, doc.ProjectID, doc.Filename, doc.OriginalFilename, doc.FilePath,
		doc.Status, doc.CreatedAt, doc.UploadedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *StoreImpl) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc := &models.Document{}
	if err := scanDocument(s.db.QueryRow(ctx, query, id), doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// ListProjectDocuments orders explicitly ordered documents before
// unordered ones, with creation time breaking remaining ties.
func (s *StoreImpl) ListProjectDocuments(ctx context.Context, projectID uuid.UUID) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE project_id = $1
		ORDER BY (display_order IS NULL), display_order, created_at`
	return s.queryDocuments(ctx, query, projectID)
}

func (s *StoreImpl) ListProjectDocumentsByStatus(ctx context.Context, projectID uuid.UUID, status string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE project_id = $1 AND status = $2
		ORDER BY (display_order IS NULL), display_order, created_at`
	return s.queryDocuments(ctx, query, projectID, status)
}

func (s *StoreImpl) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := scanDocument(rows, doc); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *StoreImpl) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	cmdTag, err := s.db.Exec(ctx, `UPDATE documents SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update document %s status: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found to update status: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *StoreImpl) SetExtractionResult(ctx context.Context, id uuid.UUID, data json.RawMessage, processedAt time.Time) error {
	query := `UPDATE documents SET extracted_data = $1, status = $2, processed_at = $3 WHERE id = $4`
	cmdTag, err := s.db.Exec(ctx, query, data, models.DocumentStatusCompleted, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to store extraction result for document %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found to store extraction result: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *StoreImpl) ApplyReorder(ctx context.Context, id uuid.UUID, displayOrder int, newName, reasoning string, reorderedAt time.Time) error {
	query := `UPDATE documents
		SET display_order = $1, original_filename = $2, reorder_reasoning = $3, reordered_at = $4
		WHERE id = $5`
	cmdTag, err := s.db.Exec(ctx, query, displayOrder, newName, reasoning, reorderedAt, id)
	if err != nil {
		return fmt.Errorf("failed to apply reorder to document %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found to apply reorder: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *StoreImpl) CountDocumentsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
