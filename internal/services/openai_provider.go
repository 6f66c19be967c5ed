package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"pergaminos/internal/models"

	"github.com/sashabaranov/go-openai"

	log "github.com/sirupsen/logrus"
)

// OpenAIProvider implements the Invoker contract against the OpenAI API.
// It carries the vision path used for document extraction: the PDF rides
// as a base64 data URL in a multi-content user message.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. A missing API key does
// not fail construction: the provider comes up disabled and every Invoke
// reports unavailability so the rest of the system keeps working.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY") // Fallback to env var
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. OpenAI provider will be disabled.")
		return &OpenAIProvider{client: nil}
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Available reports whether the provider has a credential configured.
func (p *OpenAIProvider) Available() bool { return p.client != nil }

func (p *OpenAIProvider) Invoke(ctx context.Context, systemPrompt, userPrompt string, sel ModelSelector, att *Attachment) (string, error) {
	if p.client == nil {
		return "", models.ErrAIUnavailable
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if att != nil {
		dataURL := "data:" + att.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    sel.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	log.Debugf("OpenAI call completed: model=%s input_tokens=%d output_tokens=%d",
		sel.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
