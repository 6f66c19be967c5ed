package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Stage is a batch-pipeline milestone mapped to a fixed percentage.
// These are stage markers, not proportional completion estimates.
type Stage int

const (
	StageStarted   Stage = iota // task created
	StageSummaries              // document summaries gathered
	StageModelCall              // AI reply received
	StageApplied                // per-document writes done
	StageDone                   // result aggregated
)

// Percent maps a stage to its progress value.
func (s Stage) Percent() int {
	switch s {
	case StageStarted:
		return 0
	case StageSummaries:
		return 25
	case StageModelCall:
		return 50
	case StageApplied:
		return 75
	case StageDone:
		return 100
	default:
		return 0
	}
}

// TaskRegistry is the persisted record-keeper for background jobs. It
// enforces the two task invariants on top of the store: progress never
// decreases, and a terminal task (completed/failed) is never mutated
// again. It offers no supervision, timeout or cancellation: a task stuck
// mid-execution stays "processing" until a caller notices by polling.
type TaskRegistry struct {
	tasks store.TaskStore
	now   func() time.Time
}

func NewTaskRegistry(tasks store.TaskStore) *TaskRegistry {
	return &TaskRegistry{tasks: tasks, now: time.Now}
}

// Create records a new task in "processing" at progress 0. There is no
// "queued" status: creation and the first processing step are not
// observably distinct to pollers.
func (r *TaskRegistry) Create(ctx context.Context, taskID, subjectID uuid.UUID, kind string) (*models.Task, error) {
	now := r.now()
	task := &models.Task{
		ID:        taskID,
		SubjectID: subjectID,
		Kind:      kind,
		Status:    models.TaskStatusProcessing,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get is a scoped lookup; a task id owned by a different subject is
// models.ErrNotFound to the caller.
func (r *TaskRegistry) Get(ctx context.Context, taskID, subjectID uuid.UUID) (*models.Task, error) {
	task, err := r.tasks.GetTask(ctx, taskID, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// Update merges partial fields into the task record, refusing terminal
// mutations and progress regressions.
func (r *TaskRegistry) Update(ctx context.Context, taskID uuid.UUID, update store.TaskUpdate) error {
	// The guard reads the current record without locking; concurrent
	// updaters of one task do not exist by construction (each unit owns
	// its task and runs its stages sequentially).
	current, err := r.tasks.GetTaskByID(ctx, taskID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if current != nil {
		if current.Terminal() {
			return fmt.Errorf("task %s: %w", taskID, models.ErrTaskTerminal)
		}
		if update.Progress != nil && *update.Progress < current.Progress {
			log.Warnf("Dropping progress regression for task %s: %d -> %d", taskID, current.Progress, *update.Progress)
			update.Progress = nil
		}
	}
	return r.tasks.UpdateTask(ctx, taskID, update)
}

// Advance moves the task's progress to the given stage marker.
func (r *TaskRegistry) Advance(ctx context.Context, taskID uuid.UUID, stage Stage) error {
	p := stage.Percent()
	return r.Update(ctx, taskID, store.TaskUpdate{Progress: &p})
}

// Complete finishes the task: result set, progress 100.
func (r *TaskRegistry) Complete(ctx context.Context, taskID uuid.UUID, result any) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode task result: %w", err)
	}
	status := models.TaskStatusCompleted
	p := StageDone.Percent()
	return r.Update(ctx, taskID, store.TaskUpdate{
		Status:   &status,
		Progress: &p,
		Result:   encoded,
	})
}

// Fail terminates the task with the captured error message. Progress
// stays wherever it last advanced to.
func (r *TaskRegistry) Fail(ctx context.Context, taskID uuid.UUID, msg string) error {
	status := models.TaskStatusFailed
	return r.Update(ctx, taskID, store.TaskUpdate{
		Status: &status,
		Error:  &msg,
	})
}
