package tasks

// Defines constants and payloads for task types used in Asynq.

import (
	"encoding/json"
	"fmt"

	"pergaminos/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeDocumentProcess is the per-document extraction unit, scheduled
	// implicitly on upload.
	TypeDocumentProcess = "document:process"
	// TypeReorder is the AI-driven batch reorder/rename unit.
	TypeReorder = "documents:reorder"
	// TypeProcess is the legacy process-reorder unit (same pipeline,
	// separate task kind so status endpoints stay distinct).
	TypeProcess = "documents:process"
	// TypeManualChanges is the client-driven rename/reorder unit; no AI
	// call happens, only the task-tracking shape is shared.
	TypeManualChanges = "documents:manual_changes"
	// TypeQARun executes a QA agent over its projects' completed documents.
	TypeQARun = "qa:run"
)

// DocumentProcessPayload identifies the document to extract. No task id:
// upload responses return the document record, processing is implicit.
type DocumentProcessPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// BatchPayload drives both reorder flavors and the legacy process kind.
type BatchPayload struct {
	TaskID       uuid.UUID `json:"task_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Instructions string    `json:"instructions"`
}

// ManualChangesPayload carries the client-decided per-document changes.
type ManualChangesPayload struct {
	TaskID    uuid.UUID                        `json:"task_id"`
	ProjectID uuid.UUID                        `json:"project_id"`
	Changes   map[string]models.DocumentChange `json:"changes"`
}

// QARunPayload identifies a QA agent run.
type QARunPayload struct {
	TaskID  uuid.UUID `json:"task_id"`
	AgentID uuid.UUID `json:"agent_id"`
}

func NewDocumentProcessTask(documentID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshal document process payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentProcess, payload), nil
}

func NewBatchTask(taskType string, taskID, projectID uuid.UUID, instructions string) (*asynq.Task, error) {
	payload, err := json.Marshal(BatchPayload{TaskID: taskID, ProjectID: projectID, Instructions: instructions})
	if err != nil {
		return nil, fmt.Errorf("marshal batch payload: %w", err)
	}
	return asynq.NewTask(taskType, payload), nil
}

func NewManualChangesTask(taskID, projectID uuid.UUID, changes map[string]models.DocumentChange) (*asynq.Task, error) {
	payload, err := json.Marshal(ManualChangesPayload{TaskID: taskID, ProjectID: projectID, Changes: changes})
	if err != nil {
		return nil, fmt.Errorf("marshal manual changes payload: %w", err)
	}
	return asynq.NewTask(TypeManualChanges, payload), nil
}

func NewQARunTask(taskID, agentID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(QARunPayload{TaskID: taskID, AgentID: agentID})
	if err != nil {
		return nil, fmt.Errorf("marshal qa run payload: %w", err)
	}
	return asynq.NewTask(TypeQARun, payload), nil
}
