package services

import (
	"encoding/json"
	"strings"
	"time"

	"pergaminos/internal/models"
)

// genericExtractionInstructions is the fallback when a project supplies
// no semantic instructions of its own.
const genericExtractionInstructions = "Extract the key information from this document: " +
	"dates, names, amounts, document type, and any identifiers or reference numbers."

// extractionSystemPrompt frames the per-document extraction call.
const extractionSystemPrompt = "You are a document digitization assistant. " +
	"You read scanned business documents and return ONLY a JSON object with the extracted fields. " +
	"Use ISO-8601 dates (YYYY-MM-DD). Never output null; omit fields that are not present. " +
	"If the document is unreadable, return a JSON object with a 'note' field explaining why."

// BuildExtractionPrompts returns the system and user prompts for one
// document extraction. Instructions come from the owning project, falling
// back to the generic instruction when the project supplies none.
func BuildExtractionPrompts(doc *models.Document, instructions string) (string, string) {
	if strings.TrimSpace(instructions) == "" {
		instructions = genericExtractionInstructions
	}

	var b strings.Builder
	b.WriteString("Document filename: ")
	b.WriteString(doc.OriginalFilename)
	b.WriteString("\n\nInstructions: ")
	b.WriteString(instructions)
	b.WriteString("\n\nThe document content is attached. Respond with a single JSON object.")
	return extractionSystemPrompt, b.String()
}

// DocumentSummary is the per-document record embedded into batch prompts:
// enough context for the model to reason about ordering and naming
// without re-reading any document content.
type DocumentSummary struct {
	ID            string          `json:"id"`
	CurrentName   string          `json:"current_name"`
	ExtractedData json.RawMessage `json:"extracted_data,omitempty"`
	UploadedAt    time.Time       `json:"uploaded_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// SummarizeDocuments builds the summary list for a batch prompt.
func SummarizeDocuments(docs []*models.Document) []DocumentSummary {
	out := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentSummary{
			ID:            doc.ID.String(),
			CurrentName:   doc.OriginalFilename,
			ExtractedData: doc.ExtractedData,
			UploadedAt:    doc.CreatedAt,
			ProcessedAt:   doc.ProcessedAt,
		})
	}
	return out
}

const reorderSystemPrompt = "You are a document organization assistant. " +
	"Given a list of analyzed documents and the client's instructions, decide a display order " +
	"and a descriptive filename for each document. Respond ONLY with a JSON object of the form " +
	`{"documents": [{"id": "...", "new_order": 1, "suggested_name": "...", "reasoning": "..."}]}` +
	" containing exactly one entry per input document. new_order starts at 1."

// BuildReorderPrompts returns the system and user prompts for one batch
// reorder call. The full summary list is embedded in the prompt; this is
// a single round-trip, not a per-document loop.
func BuildReorderPrompts(summaries []DocumentSummary, instructions string) (string, string, error) {
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("Client instructions: ")
	if strings.TrimSpace(instructions) == "" {
		b.WriteString("Order the documents logically and give each a clear descriptive name.")
	} else {
		b.WriteString(instructions)
	}
	b.WriteString("\n\nDocuments:\n")
	b.Write(encoded)
	return reorderSystemPrompt, b.String(), nil
}

const qaSystemPrompt = "You are a document quality-check assistant. " +
	"Review the analyzed documents against the quality instructions and respond ONLY with a JSON object " +
	`of the form {"summary": "...", "issues": [{"document_id": "...", "issue": "...", "severity": "low|medium|high"}], "passed": true}.`

// BuildQAPrompts returns the prompts for one QA agent run.
func BuildQAPrompts(summaries []DocumentSummary, qaInstructions string) (string, string, error) {
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("Quality instructions: ")
	b.WriteString(qaInstructions)
	b.WriteString("\n\nDocuments:\n")
	b.Write(encoded)
	return qaSystemPrompt, b.String(), nil
}

const answerSystemPrompt = "You are an assistant answering questions about a client's digitized documents. " +
	"Base your answer only on the extracted data provided. Answer in plain text, concisely. " +
	"If the documents do not contain the answer, say so."

// BuildAnswerPrompts returns the prompts for an ask-ai call.
func BuildAnswerPrompts(summaries []DocumentSummary, question string) (string, string, error) {
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nDocuments:\n")
	b.Write(encoded)
	return answerSystemPrompt, b.String(), nil
}
