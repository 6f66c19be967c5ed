package services

import (
	"context"
	"fmt"

	"pergaminos/internal/models"
)

// ModelSelector names the provider/model pair for one AI call. Different
// operations select different pairs (a vision-capable model for document
// content, a larger-context text model for batch reasoning), so the
// selector travels with every call instead of living in provider state.
type ModelSelector struct {
	Provider string
	Model    string
}

// Attachment is a binary payload (the uploaded PDF) riding along with an
// extraction call.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Invoker sends a prompt to the selected model and returns the raw text
// reply. Implementations return models.ErrAIUnavailable, without any
// network call, when the selected provider has no credential configured;
// any other error is a transport/provider failure.
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, sel ModelSelector, att *Attachment) (string, error)
}

// Router dispatches calls to the provider named by the selector. It is
// the single Invoker handed to the processing pipeline.
type Router struct {
	openai *OpenAIProvider
	gemini *GeminiProvider
}

func NewRouter(openai *OpenAIProvider, gemini *GeminiProvider) *Router {
	return &Router{openai: openai, gemini: gemini}
}

var _ Invoker = (*Router)(nil)

// AvailableFor reports whether the provider the selector names is
// configured, without touching the network. Batch runs check this
// before doing any work so an unconfigured provider fails the task at
// progress zero instead of partway through.
func (r *Router) AvailableFor(sel ModelSelector) bool {
	switch sel.Provider {
	case "openai":
		return r.openai != nil && r.openai.Available()
	case "gemini":
		return r.gemini != nil && r.gemini.Available()
	default:
		return false
	}
}

func (r *Router) Invoke(ctx context.Context, systemPrompt, userPrompt string, sel ModelSelector, att *Attachment) (string, error) {
	switch sel.Provider {
	case "openai":
		if r.openai == nil {
			return "", models.ErrAIUnavailable
		}
		return r.openai.Invoke(ctx, systemPrompt, userPrompt, sel, att)
	case "gemini":
		if r.gemini == nil {
			return "", models.ErrAIUnavailable
		}
		return r.gemini.Invoke(ctx, systemPrompt, userPrompt, sel, att)
	default:
		return "", fmt.Errorf("unknown AI provider %q", sel.Provider)
	}
}
