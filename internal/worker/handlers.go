package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pergaminos/internal/models"
	"pergaminos/internal/services"
	"pergaminos/internal/store"
	"pergaminos/internal/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Deps bundles everything the job handlers need. Populated from the app
// instance by the worker command.
type Deps struct {
	Processor    *services.DocumentProcessor
	Orchestrator *services.BatchOrchestrator
	Registry     *services.TaskRegistry
	Documents    store.DocumentStore
}

// RegisterHandlers wires every task type onto the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps Deps) {
	mux.HandleFunc(tasks.TypeDocumentProcess, HandleDocumentProcess(deps))
	mux.HandleFunc(tasks.TypeReorder, HandleReorder(deps))
	mux.HandleFunc(tasks.TypeProcess, HandleReorder(deps))
	mux.HandleFunc(tasks.TypeManualChanges, HandleManualChanges(deps))
	mux.HandleFunc(tasks.TypeQARun, HandleQARun(deps))
}

// HandleDocumentProcess runs per-document AI extraction. Jobs are
// enqueued with zero retries, so a returned error is final: the document
// row already carries the failure by the time we return.
func HandleDocumentProcess(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) (err error) {
		var p tasks.DocumentProcessPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		defer func() {
			if r := recover(); r != nil {
				log.Printf("ERROR: Panic in %s handler for document %s: %v", t.Type(), p.DocumentID, r)
				if markErr := deps.Documents.UpdateDocumentStatus(ctx, p.DocumentID, models.DocumentStatusFailed); markErr != nil {
					log.Printf("ERROR: Failed to mark document %s failed after panic: %v", p.DocumentID, markErr)
				}
				err = fmt.Errorf("panic processing document %s: %v", p.DocumentID, r)
			}
		}()

		log.Printf("DEBUG: Processing document %s", p.DocumentID)
		return deps.Processor.Process(ctx, p.DocumentID)
	}
}

// HandleReorder serves both batch task types: the AI pipeline is
// identical whether the intent is pure reorder or rename-plus-reorder,
// the instructions in the payload carry the difference.
func HandleReorder(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) (err error) {
		var p tasks.BatchPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		defer failTaskOnPanic(ctx, deps, t.Type(), p.TaskID, &err)

		log.Printf("DEBUG: Running %s task %s for project %s", t.Type(), p.TaskID, p.ProjectID)
		return deps.Orchestrator.RunReorder(ctx, p.TaskID, p.ProjectID, p.Instructions)
	}
}

func HandleManualChanges(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) (err error) {
		var p tasks.ManualChangesPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		defer failTaskOnPanic(ctx, deps, t.Type(), p.TaskID, &err)

		log.Printf("DEBUG: Applying %d manual changes for task %s", len(p.Changes), p.TaskID)
		return deps.Orchestrator.RunManualChanges(ctx, p.TaskID, p.ProjectID, p.Changes)
	}
}

func HandleQARun(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) (err error) {
		var p tasks.QARunPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		defer failTaskOnPanic(ctx, deps, t.Type(), p.TaskID, &err)

		log.Printf("DEBUG: Running QA task %s for agent %s", p.TaskID, p.AgentID)
		return deps.Orchestrator.RunQualityCheck(ctx, p.TaskID, p.AgentID)
	}
}

// failTaskOnPanic converts a handler panic into a failed task so clients
// polling the task never hang on a unit that died mid-flight.
func failTaskOnPanic(ctx context.Context, deps Deps, taskType string, taskID uuid.UUID, err *error) {
	if r := recover(); r != nil {
		log.Printf("ERROR: Panic in %s handler for task %s: %v", taskType, taskID, r)
		msg := fmt.Sprintf("internal error: %v", r)
		if failErr := deps.Registry.Fail(ctx, taskID, msg); failErr != nil {
			log.Printf("ERROR: Failed to mark task %s failed after panic: %v", taskID, failErr)
		}
		*err = fmt.Errorf("panic in %s handler: %v", taskType, r)
	}
}
