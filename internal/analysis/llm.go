package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/models"
)

// LLMProvider implements Provider against an OpenAI-compatible chat
// completions endpoint.
type LLMProvider struct {
	llm llms.Model
}

// NewLLMProvider builds a provider for the given endpoint and model. The API
// key is required: a missing credential fails here rather than on the first
// analysis request.
func NewLLMProvider(baseURL, model, apiKey string) (*LLMProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis: API key is not configured")
	}
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("analysis: create client: %w", err)
	}
	return &LLMProvider{llm: llm}, nil
}

// Analyze sends the entry collection to the model and decodes the structured
// result.
func (p *LLMProvider) Analyze(ctx context.Context, entries []models.SymptomEntry) (*models.AnalysisResult, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemMessage),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(entries)),
	}

	resp, err := p.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(2000),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, fmt.Errorf("%w: empty response", apperr.ErrProviderMalformed)
	}

	return parseResult(resp.Choices[0].Content)
}

// mapProviderError classifies a transport-level failure into the distinct
// provider error kinds. The underlying client surfaces HTTP status only in
// the error text, so matching is by status code substring.
func mapProviderError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return fmt.Errorf("%w: %v", apperr.ErrProviderAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", apperr.ErrProviderRateLimited, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", apperr.ErrProviderTransport, err)
	default:
		return fmt.Errorf("%w: %v", apperr.ErrProviderTransport, err)
	}
}
