package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project groups the documents uploaded for one digitization engagement.
// SemanticInstructions, when set, steer both per-document extraction and
// batch reordering prompts.
type Project struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Description          *string   `db:"description" json:"description,omitempty"`
	CompanyID            string    `db:"company_id" json:"company_id"`
	Status               string    `db:"status" json:"status"`
	SemanticInstructions *string   `db:"semantic_instructions" json:"semantic_instructions,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	CreatedBy            string    `db:"created_by" json:"created_by"`
}

// Document is one uploaded PDF and the state of its AI extraction.
// ExtractedData holds either the structured map decoded from the model
// reply or the degraded {raw_response, status:"needs_review"} record.
type Document struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ProjectID        uuid.UUID       `db:"project_id" json:"project_id"`
	Filename         string          `db:"filename" json:"filename"`
	OriginalFilename string          `db:"original_filename" json:"original_filename"`
	FilePath         string          `db:"file_path" json:"file_path"`
	Status           string          `db:"status" json:"status"`
	ExtractedData    json.RawMessage `db:"extracted_data" json:"extracted_data,omitempty"`
	DisplayOrder     *int            `db:"display_order" json:"display_order,omitempty"`
	ReorderReasoning *string         `db:"reorder_reasoning" json:"reorder_reasoning,omitempty"`
	ProcessedAt      *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	ReorderedAt      *time.Time      `db:"reordered_at" json:"reordered_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UploadedBy       string          `db:"uploaded_by" json:"uploaded_by"`
}

// Task is the polled record of one background unit of work. SubjectID is
// the owning project or QA agent; lookups are always scoped to it so task
// ids never leak across subjects. Result is set iff completed, Error iff
// failed, and a terminal task is never mutated again.
type Task struct {
	ID        uuid.UUID       `db:"id" json:"task_id"`
	SubjectID uuid.UUID       `db:"subject_id" json:"subject_id"`
	Kind      string          `db:"kind" json:"kind"`
	Status    string          `db:"status" json:"status"`
	Progress  int             `db:"progress" json:"progress"`
	Result    json.RawMessage `db:"result" json:"result,omitempty"`
	Error     *string         `db:"error" json:"error,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// QAAgent is a saved quality-check configuration that can be run against
// the completed documents of its projects.
type QAAgent struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Description    *string     `db:"description" json:"description,omitempty"`
	QAInstructions string      `db:"qa_instructions" json:"qa_instructions"`
	ProjectIDs     []uuid.UUID `db:"project_ids" json:"project_ids"`
	IsActive       bool        `db:"is_active" json:"is_active"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	CreatedBy      string      `db:"created_by" json:"created_by"`
}

// DocumentChange is one entry of the client-supplied rename/reorder map
// (process-rename-reorder endpoint). CurrentName/CurrentOrder are echoed
// by clients but not trusted for anything.
type DocumentChange struct {
	NewName      string `json:"newName"`
	NewOrder     int    `json:"newOrder"`
	CurrentName  string `json:"currentName,omitempty"`
	CurrentOrder int    `json:"currentOrder,omitempty"`
}
