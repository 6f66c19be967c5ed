package store

import (
	"context"
	"encoding/json"
	"time"

	"pergaminos/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// --- Job Client ---

// JobClient submits background units of work. Callers mint the task id
// first (it is returned to HTTP clients immediately) and the worker picks
// the unit up from there. Nothing here is retried: every enqueue disables
// asynq retries so a failed unit stays failed.
type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueDocumentProcess(ctx context.Context, documentID uuid.UUID) error
	EnqueueReorder(ctx context.Context, taskID, projectID uuid.UUID, instructions, kind string) error
	EnqueueManualChanges(ctx context.Context, taskID, projectID uuid.UUID, changes map[string]models.DocumentChange) error
	EnqueueQARun(ctx context.Context, taskID, agentID uuid.UUID) error
	Close() error
}

// --- Document Store ---

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	// ListProjectDocuments returns the project's documents in display
	// order: explicitly ordered documents first (by display_order), then
	// unordered ones by creation time.
	ListProjectDocuments(ctx context.Context, projectID uuid.UUID) ([]*models.Document, error)
	ListProjectDocumentsByStatus(ctx context.Context, projectID uuid.UUID, status string) ([]*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error
	// SetExtractionResult stores extracted data and stamps processed_at;
	// the document moves to completed in the same write.
	SetExtractionResult(ctx context.Context, id uuid.UUID, data json.RawMessage, processedAt time.Time) error
	// ApplyReorder writes the batch decision for one document. Overlapping
	// batch runs race here with last-write-wins semantics; nothing locks.
	ApplyReorder(ctx context.Context, id uuid.UUID, displayOrder int, newName, reasoning string, reorderedAt time.Time) error
	CountDocumentsByStatus(ctx context.Context) (map[string]int, error)
}

// --- Project Store ---

type ProjectStore interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	CountProjects(ctx context.Context) (int, error)
}

// --- Task Store ---

// TaskUpdate carries the partial fields merged into a task record. Nil
// fields are left untouched.
type TaskUpdate struct {
	Status   *string
	Progress *int
	Result   json.RawMessage
	Error    *string
}

type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	// GetTask is a scoped lookup: a task id valid for a different subject
	// must come back as ErrNotFound, never leak across subjects.
	GetTask(ctx context.Context, taskID, subjectID uuid.UUID) (*models.Task, error)
	// GetTaskByID is the unscoped read used internally by the registry's
	// invariant guard; it must never back a client-facing lookup.
	GetTaskByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID uuid.UUID, update TaskUpdate) error
	ListRecentTasks(ctx context.Context, limit int) ([]*models.Task, error)
}

// --- QA Agent Store ---

type AgentStore interface {
	CreateAgent(ctx context.Context, agent *models.QAAgent) error
	GetAgent(ctx context.Context, id uuid.UUID) (*models.QAAgent, error)
	ListAgents(ctx context.Context) ([]*models.QAAgent, error)
}
