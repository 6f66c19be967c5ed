package models

/*
Document and Task status/kind constants for use throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// Document status constants. Transitions are forward-only:
// uploaded -> processing -> {completed, failed}.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Task status constants. There is no "queued" state: a task record is
// created at enqueue time already in "processing".
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task kind constants
const (
	TaskKindDocumentProcess = "document_process"
	TaskKindReorder         = "reorder"
	TaskKindProcess         = "process"
	TaskKindQARun           = "qa_run"
)

// Project status constants
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusPaused    = "paused"
)
