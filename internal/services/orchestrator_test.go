package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"pergaminos/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(docs *fakeDocumentStore, projects *fakeProjectStore, agents *fakeAgentStore, registry *TaskRegistry, invoker *fakeInvoker) *BatchOrchestrator {
	o := NewBatchOrchestrator(docs, projects, agents, registry, invoker, ModelSelector{Provider: "gemini", Model: "gemini-1.5-pro"})
	o.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return o
}

// seedCompletedDocs creates n completed documents with staggered
// creation times so the unordered listing is deterministic.
func seedCompletedDocs(projectID uuid.UUID, names ...string) []*models.Document {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	docs := make([]*models.Document, 0, len(names))
	for i, name := range names {
		docs = append(docs, &models.Document{
			ID:               uuid.New(),
			ProjectID:        projectID,
			Filename:         name,
			OriginalFilename: name,
			Status:           models.DocumentStatusCompleted,
			ExtractedData:    json.RawMessage(`{"type":"unknown"}`),
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
	}
	return docs
}

func planReply(entries ...string) string {
	return fmt.Sprintf(`Sure, here is the plan: {"documents": [%s]}`, joinEntries(entries))
}

func joinEntries(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ", "
		}
		out += e
	}
	return out
}

func planEntry(id string, order int, name string) string {
	return fmt.Sprintf(`{"id": %q, "new_order": %d, "suggested_name": %q, "reasoning": "chronological"}`, id, order, name)
}

func TestRunReorderAppliesPlan(t *testing.T) {
	projectID := uuid.New()
	seeded := seedCompletedDocs(projectID, "a.pdf", "b.pdf", "c.pdf")
	docs := newFakeDocumentStore(seeded...)
	projects := newFakeProjectStore(&models.Project{ID: projectID})
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	// The model puts b first, then a, then c.
	invoker := &fakeInvoker{reply: planReply(
		planEntry(seeded[1].ID.String(), 1, "01_contract.pdf"),
		planEntry(seeded[0].ID.String(), 2, "02_invoice.pdf"),
		planEntry(seeded[2].ID.String(), 3, "03_receipt.pdf"),
	)}
	orchestrator := newTestOrchestrator(docs, projects, newFakeAgentStore(), registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	require.NoError(t, orchestrator.RunReorder(ctx, task.ID, projectID, "order chronologically"))

	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	var result batchResult
	require.NoError(t, json.Unmarshal(got.Result, &result))
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Empty(t, result.SkippedIDs)

	listed, err := docs.ListProjectDocuments(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "01_contract.pdf", listed[0].OriginalFilename)
	assert.Equal(t, "02_invoice.pdf", listed[1].OriginalFilename)
	assert.Equal(t, "03_receipt.pdf", listed[2].OriginalFilename)
	assert.Equal(t, seeded[1].ID, listed[0].ID)
	// The stored upload name is not what a rename rewrites.
	assert.Equal(t, "b.pdf", listed[0].Filename)
	require.NotNil(t, listed[0].ReorderedAt)
}

func TestRunReorderUnusablePlanFailsTask(t *testing.T) {
	projectID := uuid.New()
	seeded := seedCompletedDocs(projectID, "a.pdf", "b.pdf")
	docs := newFakeDocumentStore(seeded...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	invoker := &fakeInvoker{reply: "I cannot decide an order for these documents."}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	err = orchestrator.RunReorder(ctx, task.ID, projectID, "")
	require.Error(t, err)

	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	// The model's reply was received before the plan was rejected.
	assert.Equal(t, 50, got.Progress)

	// No document was touched.
	listed, _ := docs.ListProjectDocuments(ctx, projectID)
	for _, doc := range listed {
		assert.Nil(t, doc.DisplayOrder)
	}
}

func TestRunReorderSkipsForeignIDs(t *testing.T) {
	projectID := uuid.New()
	seeded := seedCompletedDocs(projectID, "a.pdf")
	docs := newFakeDocumentStore(seeded...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	foreignID := uuid.New().String()
	invoker := &fakeInvoker{reply: planReply(
		planEntry(seeded[0].ID.String(), 1, "01_deed.pdf"),
		planEntry(foreignID, 2, "02_ghost.pdf"),
	)}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	require.NoError(t, orchestrator.RunReorder(ctx, task.ID, projectID, ""))

	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)

	var result batchResult
	require.NoError(t, json.Unmarshal(got.Result, &result))
	assert.Equal(t, 1, result.TotalProcessed)
	assert.Equal(t, []string{foreignID}, result.SkippedIDs)
}

func TestRunReorderAIUnavailableFailsTask(t *testing.T) {
	projectID := uuid.New()
	docs := newFakeDocumentStore(seedCompletedDocs(projectID, "a.pdf")...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	invoker := &fakeInvoker{err: models.ErrAIUnavailable}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	err = orchestrator.RunReorder(ctx, task.ID, projectID, "")
	assert.ErrorIs(t, err, models.ErrAIUnavailable)

	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "unavailable")
}

// offlineInvoker reports the selected provider as unconfigured before
// any call is made, the way the Router does for a missing credential.
type offlineInvoker struct {
	fakeInvoker
}

func (offlineInvoker) AvailableFor(ModelSelector) bool { return false }

func TestRunReorderUnconfiguredProviderFailsBeforeAnyWork(t *testing.T) {
	projectID := uuid.New()
	docs := newFakeDocumentStore(seedCompletedDocs(projectID, "a.pdf")...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	invoker := &offlineInvoker{}
	orchestrator := NewBatchOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, invoker, ModelSelector{Provider: "gemini", Model: "gemini-1.5-pro"})

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	err = orchestrator.RunReorder(ctx, task.ID, projectID, "")
	assert.ErrorIs(t, err, models.ErrAIUnavailable)
	assert.Zero(t, invoker.calls)

	// The task never advanced past creation.
	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestRunQualityCheckUnconfiguredProviderFailsBeforeAnyWork(t *testing.T) {
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	agent := &models.QAAgent{
		ID:             uuid.New(),
		Name:           "offline agent",
		QAInstructions: "Check everything.",
		ProjectIDs:     []uuid.UUID{uuid.New()},
	}
	agents := newFakeAgentStore(agent)

	invoker := &offlineInvoker{}
	orchestrator := NewBatchOrchestrator(newFakeDocumentStore(), newFakeProjectStore(), agents, registry, invoker, ModelSelector{Provider: "openai", Model: "gpt-4o"})

	task, err := registry.Create(ctx, uuid.New(), agent.ID, models.TaskKindQARun)
	require.NoError(t, err)
	err = orchestrator.RunQualityCheck(ctx, task.ID, agent.ID)
	assert.ErrorIs(t, err, models.ErrAIUnavailable)

	got, err := registry.Get(ctx, task.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestOverlappingRunsBothFinishLastWriteWins(t *testing.T) {
	projectID := uuid.New()
	seeded := seedCompletedDocs(projectID, "a.pdf", "b.pdf")
	docs := newFakeDocumentStore(seeded...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	first := &fakeInvoker{reply: planReply(
		planEntry(seeded[0].ID.String(), 1, "first_a.pdf"),
		planEntry(seeded[1].ID.String(), 2, "first_b.pdf"),
	)}
	second := &fakeInvoker{reply: planReply(
		planEntry(seeded[1].ID.String(), 1, "second_b.pdf"),
		planEntry(seeded[0].ID.String(), 2, "second_a.pdf"),
	)}

	taskA, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)
	taskB, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindReorder)
	require.NoError(t, err)

	require.NoError(t, newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, first).RunReorder(ctx, taskA.ID, projectID, ""))
	require.NoError(t, newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, second).RunReorder(ctx, taskB.ID, projectID, ""))

	gotA, err := registry.Get(ctx, taskA.ID, projectID)
	require.NoError(t, err)
	gotB, err := registry.Get(ctx, taskB.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, gotA.Status)
	assert.Equal(t, models.TaskStatusCompleted, gotB.Status)

	// Documents reflect whichever run wrote last.
	listed, _ := docs.ListProjectDocuments(ctx, projectID)
	assert.Equal(t, "second_b.pdf", listed[0].OriginalFilename)
	assert.Equal(t, "second_a.pdf", listed[1].OriginalFilename)
}

func TestRunManualChangesAppliesMap(t *testing.T) {
	projectID := uuid.New()
	seeded := seedCompletedDocs(projectID, "a.pdf", "b.pdf")
	docs := newFakeDocumentStore(seeded...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	invoker := &fakeInvoker{}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), newFakeAgentStore(), registry, invoker)

	unknownID := uuid.New().String()
	changes := map[string]models.DocumentChange{
		seeded[0].ID.String(): {NewName: "renamed_a.pdf", NewOrder: 2},
		seeded[1].ID.String(): {NewName: "renamed_b.pdf", NewOrder: 1},
		unknownID:             {NewName: "ghost.pdf", NewOrder: 3},
	}

	task, err := registry.Create(ctx, uuid.New(), projectID, models.TaskKindProcess)
	require.NoError(t, err)
	require.NoError(t, orchestrator.RunManualChanges(ctx, task.ID, projectID, changes))

	// The client made every decision; no model call happened.
	assert.Zero(t, invoker.calls)

	got, err := registry.Get(ctx, task.ID, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	var result batchResult
	require.NoError(t, json.Unmarshal(got.Result, &result))
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, []string{unknownID}, result.SkippedIDs)

	listed, _ := docs.ListProjectDocuments(ctx, projectID)
	assert.Equal(t, "renamed_b.pdf", listed[0].OriginalFilename)
	assert.Equal(t, "renamed_a.pdf", listed[1].OriginalFilename)
}

func TestRunQualityCheckStoresReport(t *testing.T) {
	projectID := uuid.New()
	docs := newFakeDocumentStore(seedCompletedDocs(projectID, "a.pdf", "b.pdf")...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	agent := &models.QAAgent{
		ID:             uuid.New(),
		Name:           "completeness check",
		QAInstructions: "Verify every document has a date.",
		ProjectIDs:     []uuid.UUID{projectID},
		IsActive:       true,
	}
	agents := newFakeAgentStore(agent)

	invoker := &fakeInvoker{reply: `{"summary": "all good", "issues": [], "passed": true}`}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), agents, registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), agent.ID, models.TaskKindQARun)
	require.NoError(t, err)
	require.NoError(t, orchestrator.RunQualityCheck(ctx, task.ID, agent.ID))

	got, err := registry.Get(ctx, task.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	var report map[string]any
	require.NoError(t, json.Unmarshal(got.Result, &report))
	assert.Equal(t, true, report["passed"])
	assert.Equal(t, float64(2), report["documents_checked"])
}

func TestRunQualityCheckDegradedReplyStillCompletes(t *testing.T) {
	projectID := uuid.New()
	docs := newFakeDocumentStore(seedCompletedDocs(projectID, "a.pdf")...)
	registry := NewTaskRegistry(newFakeTaskStore())
	ctx := context.Background()

	agent := &models.QAAgent{
		ID:             uuid.New(),
		Name:           "vague agent",
		QAInstructions: "Check everything.",
		ProjectIDs:     []uuid.UUID{projectID},
	}
	agents := newFakeAgentStore(agent)

	invoker := &fakeInvoker{reply: "Everything looks broadly fine to me."}
	orchestrator := newTestOrchestrator(docs, newFakeProjectStore(), agents, registry, invoker)

	task, err := registry.Create(ctx, uuid.New(), agent.ID, models.TaskKindQARun)
	require.NoError(t, err)
	require.NoError(t, orchestrator.RunQualityCheck(ctx, task.ID, agent.ID))

	got, err := registry.Get(ctx, task.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	var report map[string]any
	require.NoError(t, json.Unmarshal(got.Result, &report))
	assert.Equal(t, "needs_review", report["status"])
	assert.Equal(t, invoker.reply, report["raw_response"])
}
