package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/parse"
	"pergaminos/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// BatchOrchestrator drives the batch pipelines: AI reorder/rename,
// client-driven rename/reorder, and QA agent runs. Each run operates on
// the completed documents of one subject under one task record, advancing
// through the fixed stage milestones. Overlapping runs on the same
// project are not serialized: per-document writes race with
// last-write-wins semantics, and each task still reaches its own terminal
// state.
type BatchOrchestrator struct {
	docs     store.DocumentStore
	projects store.ProjectStore
	agents   store.AgentStore
	registry *TaskRegistry
	invoker  Invoker
	selector ModelSelector
	now      func() time.Time
}

func NewBatchOrchestrator(docs store.DocumentStore, projects store.ProjectStore, agents store.AgentStore, registry *TaskRegistry, invoker Invoker, selector ModelSelector) *BatchOrchestrator {
	return &BatchOrchestrator{
		docs:     docs,
		projects: projects,
		agents:   agents,
		registry: registry,
		invoker:  invoker,
		selector: selector,
		now:      time.Now,
	}
}

// availabilityChecker lets a run refuse an unconfigured provider up
// front. The Router implements it; AI-backed pipelines probe the
// invoker for it so the task fails before any milestone advances.
type availabilityChecker interface {
	AvailableFor(sel ModelSelector) bool
}

// checkAvailability fails the task at progress 0 when the selected
// provider has no credential. Invokers without the optional interface
// are assumed reachable; their Invoke call reports unavailability
// later.
func (o *BatchOrchestrator) checkAvailability(ctx context.Context, taskID uuid.UUID) error {
	if ac, ok := o.invoker.(availabilityChecker); ok && !ac.AvailableFor(o.selector) {
		return o.failTask(ctx, taskID, models.ErrAIUnavailable)
	}
	return nil
}

// documentOutcome is one entry of an aggregated batch result.
type documentOutcome struct {
	ID            string `json:"id"`
	NewOrder      int    `json:"new_order"`
	SuggestedName string `json:"suggested_name"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// batchResult is the task.result payload of a completed batch run.
type batchResult struct {
	TotalProcessed int               `json:"total_processed"`
	Documents      []documentOutcome `json:"documents"`
	SkippedIDs     []string          `json:"skipped_ids,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
}

// RunReorder executes the AI-driven reorder/rename pipeline for one
// project. The task record already exists at progress 0 (created by the
// enqueue handler so polling works before the worker picks the unit up).
func (o *BatchOrchestrator) RunReorder(ctx context.Context, taskID, projectID uuid.UUID, instructions string) error {
	if err := o.checkAvailability(ctx, taskID); err != nil {
		return err
	}

	docs, err := o.docs.ListProjectDocumentsByStatus(ctx, projectID, models.DocumentStatusCompleted)
	if err != nil {
		return o.failTask(ctx, taskID, fmt.Errorf("gather documents for project %s: %w", projectID, err))
	}

	summaries := SummarizeDocuments(docs)
	if err := o.registry.Advance(ctx, taskID, StageSummaries); err != nil {
		return err
	}

	systemPrompt, userPrompt, err := BuildReorderPrompts(summaries, instructions)
	if err != nil {
		return o.failTask(ctx, taskID, err)
	}

	reply, err := o.invoker.Invoke(ctx, systemPrompt, userPrompt, o.selector, nil)
	if err != nil {
		// ErrAIUnavailable and provider failures both terminate the task;
		// the message is captured verbatim either way.
		return o.failTask(ctx, taskID, err)
	}
	if err := o.registry.Advance(ctx, taskID, StageModelCall); err != nil {
		return err
	}

	entries, ok := parse.ExtractPlan(reply)
	if !ok {
		// The one place a degraded parse escalates to task failure: there
		// is no per-document destination for a raw-text blob here.
		return o.failTask(ctx, taskID, fmt.Errorf("AI reply contained no usable reorder plan"))
	}

	known := make(map[string]*models.Document, len(docs))
	for _, doc := range docs {
		known[doc.ID.String()] = doc
	}

	outcomes := make([]documentOutcome, 0, len(entries))
	var skipped []string
	reorderedAt := o.now()
	for _, entry := range entries {
		doc, ok := known[entry.ID]
		if !ok {
			// The model referenced an id outside the original set. Skip and
			// report; writing to foreign documents would cross projects.
			log.Warnf("Reorder plan for task %s references unknown document id %q, skipping", taskID, entry.ID)
			skipped = append(skipped, entry.ID)
			continue
		}
		name := entry.SuggestedName
		if name == "" {
			name = doc.OriginalFilename
		}
		if err := o.docs.ApplyReorder(ctx, doc.ID, entry.NewOrder, name, entry.Reasoning, reorderedAt); err != nil {
			return o.failTask(ctx, taskID, fmt.Errorf("apply reorder to document %s: %w", doc.ID, err))
		}
		outcomes = append(outcomes, documentOutcome{
			ID:            entry.ID,
			NewOrder:      entry.NewOrder,
			SuggestedName: name,
			Reasoning:     entry.Reasoning,
		})
	}
	if err := o.registry.Advance(ctx, taskID, StageApplied); err != nil {
		return err
	}

	result := batchResult{
		TotalProcessed: len(outcomes),
		Documents:      outcomes,
		SkippedIDs:     skipped,
		Instructions:   instructions,
	}
	if err := o.registry.Complete(ctx, taskID, result); err != nil {
		return err
	}
	log.Infof("Reorder task %s completed: %d documents, %d skipped", taskID, len(outcomes), len(skipped))
	return nil
}

// RunManualChanges applies a client-supplied rename/reorder map. Same
// task-tracking and milestone shape as RunReorder, different decision
// source: no AI call happens at all.
func (o *BatchOrchestrator) RunManualChanges(ctx context.Context, taskID, projectID uuid.UUID, changes map[string]models.DocumentChange) error {
	docs, err := o.docs.ListProjectDocumentsByStatus(ctx, projectID, models.DocumentStatusCompleted)
	if err != nil {
		return o.failTask(ctx, taskID, fmt.Errorf("gather documents for project %s: %w", projectID, err))
	}
	if err := o.registry.Advance(ctx, taskID, StageSummaries); err != nil {
		return err
	}

	known := make(map[string]*models.Document, len(docs))
	for _, doc := range docs {
		known[doc.ID.String()] = doc
	}
	if err := o.registry.Advance(ctx, taskID, StageModelCall); err != nil {
		return err
	}

	outcomes := make([]documentOutcome, 0, len(changes))
	var skipped []string
	appliedAt := o.now()
	for id, change := range changes {
		doc, ok := known[id]
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		name := change.NewName
		if name == "" {
			name = doc.OriginalFilename
		}
		if err := o.docs.ApplyReorder(ctx, doc.ID, change.NewOrder, name, "", appliedAt); err != nil {
			return o.failTask(ctx, taskID, fmt.Errorf("apply change to document %s: %w", doc.ID, err))
		}
		outcomes = append(outcomes, documentOutcome{ID: id, NewOrder: change.NewOrder, SuggestedName: name})
	}
	if err := o.registry.Advance(ctx, taskID, StageApplied); err != nil {
		return err
	}

	result := batchResult{
		TotalProcessed: len(outcomes),
		Documents:      outcomes,
		SkippedIDs:     skipped,
	}
	if err := o.registry.Complete(ctx, taskID, result); err != nil {
		return err
	}
	log.Infof("Manual changes task %s completed: %d documents, %d skipped", taskID, len(outcomes), len(skipped))
	return nil
}

// RunQualityCheck executes a QA agent over the completed documents of its
// projects. The parsed reply (structured report or degraded needs_review
// record) becomes the task result; unlike reorder, a degraded parse does
// not fail the run because the task result itself is a valid destination
// for raw text.
func (o *BatchOrchestrator) RunQualityCheck(ctx context.Context, taskID, agentID uuid.UUID) error {
	if err := o.checkAvailability(ctx, taskID); err != nil {
		return err
	}

	agent, err := o.agents.GetAgent(ctx, agentID)
	if err != nil {
		return o.failTask(ctx, taskID, fmt.Errorf("load qa agent %s: %w", agentID, err))
	}

	var summaries []DocumentSummary
	for _, projectID := range agent.ProjectIDs {
		docs, err := o.docs.ListProjectDocumentsByStatus(ctx, projectID, models.DocumentStatusCompleted)
		if err != nil {
			return o.failTask(ctx, taskID, fmt.Errorf("gather documents for project %s: %w", projectID, err))
		}
		summaries = append(summaries, SummarizeDocuments(docs)...)
	}
	if err := o.registry.Advance(ctx, taskID, StageSummaries); err != nil {
		return err
	}

	systemPrompt, userPrompt, err := BuildQAPrompts(summaries, agent.QAInstructions)
	if err != nil {
		return o.failTask(ctx, taskID, err)
	}

	reply, err := o.invoker.Invoke(ctx, systemPrompt, userPrompt, o.selector, nil)
	if err != nil {
		return o.failTask(ctx, taskID, err)
	}
	if err := o.registry.Advance(ctx, taskID, StageModelCall); err != nil {
		return err
	}

	report := parse.Extract(reply).Record()
	report["documents_checked"] = len(summaries)
	if err := o.registry.Advance(ctx, taskID, StageApplied); err != nil {
		return err
	}

	if err := o.registry.Complete(ctx, taskID, report); err != nil {
		return err
	}
	log.Infof("QA task %s completed for agent %s over %d documents", taskID, agentID, len(summaries))
	return nil
}

// failTask terminates the task with the captured message and reports the
// original error to the worker for logging. A terminal-state refusal
// means another path already finished the task; the original error still
// wins for reporting.
func (o *BatchOrchestrator) failTask(ctx context.Context, taskID uuid.UUID, cause error) error {
	if err := o.registry.Fail(ctx, taskID, cause.Error()); err != nil && !errors.Is(err, models.ErrTaskTerminal) {
		log.Errorf("Failed to mark task %s failed: %v", taskID, err)
	}
	return cause
}
