package services

import (
	"context"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
)

// Answerer answers free-form questions about a project's completed
// documents. Unlike the batch pipelines this is synchronous: the caller
// waits for the reply, so no task record is involved.
type Answerer struct {
	docs     store.DocumentStore
	invoker  Invoker
	selector ModelSelector
}

func NewAnswerer(docs store.DocumentStore, invoker Invoker, selector ModelSelector) *Answerer {
	return &Answerer{docs: docs, invoker: invoker, selector: selector}
}

// Answer returns the model's reply plus the number of documents that made
// up the context. ErrAIUnavailable passes through unwrapped so the
// handler can map it to 503.
func (a *Answerer) Answer(ctx context.Context, projectID uuid.UUID, question string) (string, int, error) {
	if question == "" {
		return "", 0, fmt.Errorf("%w: question is required", models.ErrValidation)
	}

	docs, err := a.docs.ListProjectDocumentsByStatus(ctx, projectID, models.DocumentStatusCompleted)
	if err != nil {
		return "", 0, fmt.Errorf("gather documents for project %s: %w", projectID, err)
	}

	summaries := SummarizeDocuments(docs)
	systemPrompt, userPrompt, err := BuildAnswerPrompts(summaries, question)
	if err != nil {
		return "", 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	reply, err := a.invoker.Invoke(callCtx, systemPrompt, userPrompt, a.selector, nil)
	if err != nil {
		return "", 0, err
	}
	return reply, len(summaries), nil
}
