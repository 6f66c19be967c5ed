package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/parse"
	"pergaminos/internal/store"
	"pergaminos/internal/uploads"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DocumentProcessor runs the per-document extraction pipeline and owns
// the document status state machine: uploaded -> processing ->
// {completed, failed}. No step is retried; a failed document stays failed
// until some external re-trigger exists (none is defined today).
type DocumentProcessor struct {
	docs     store.DocumentStore
	projects store.ProjectStore
	invoker  Invoker
	selector ModelSelector
	readFile func(string) ([]byte, error)
	now      func() time.Time
}

func NewDocumentProcessor(docs store.DocumentStore, projects store.ProjectStore, invoker Invoker, selector ModelSelector) *DocumentProcessor {
	return &DocumentProcessor{
		docs:     docs,
		projects: projects,
		invoker:  invoker,
		selector: selector,
		readFile: uploads.ReadFileContent,
		now:      time.Now,
	}
}

// Process extracts structured data from one uploaded document. A
// malformed model reply is not a failure here: it degrades into a stored
// needs_review record and the document still completes. Only provider
// unavailability, transport errors, and storage errors fail the document.
func (p *DocumentProcessor) Process(ctx context.Context, documentID uuid.UUID) error {
	doc, err := p.docs.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	if err := p.docs.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("mark document %s processing: %w", doc.ID, err)
	}

	instructions := ""
	if project, err := p.projects.GetProject(ctx, doc.ProjectID); err == nil && project.SemanticInstructions != nil {
		instructions = *project.SemanticInstructions
	}

	content, err := p.readFile(doc.FilePath)
	if err != nil {
		log.Errorf("Failed to read document file %s: %v", doc.FilePath, err)
		return p.fail(ctx, doc.ID, err)
	}

	systemPrompt, userPrompt := BuildExtractionPrompts(doc, instructions)
	reply, err := p.invoker.Invoke(ctx, systemPrompt, userPrompt, p.selector, &Attachment{
		Filename: doc.OriginalFilename,
		MIMEType: "application/pdf",
		Data:     content,
	})
	if err != nil {
		if errors.Is(err, models.ErrAIUnavailable) {
			log.Warnf("AI unavailable, failing document %s without network call", doc.ID)
		} else {
			log.Errorf("AI invocation failed for document %s: %v", doc.ID, err)
		}
		return p.fail(ctx, doc.ID, err)
	}

	record := parse.Extract(reply).Record()
	encoded, err := json.Marshal(record)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Errorf("encode extraction record: %w", err))
	}

	if err := p.docs.SetExtractionResult(ctx, doc.ID, encoded, p.now()); err != nil {
		return fmt.Errorf("store extraction result for %s: %w", doc.ID, err)
	}

	log.Infof("Document %s processed (project %s)", doc.ID, doc.ProjectID)
	return nil
}

// fail marks the document failed and reports the original error. No
// message is retained at document granularity.
func (p *DocumentProcessor) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := p.docs.UpdateDocumentStatus(ctx, id, models.DocumentStatusFailed); err != nil {
		log.Errorf("Failed to mark document %s failed: %v", id, err)
	}
	return cause
}
