// Package analysis gates, invokes, and persists the asynchronous
// pattern-analysis request against an external provider.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/models"
)

// Provider is the external pattern-analysis service. A call either completes
// with a structured result or fails terminally; there is no cancellation
// beyond ctx and no automatic retry.
type Provider interface {
	Analyze(ctx context.Context, entries []models.SymptomEntry) (*models.AnalysisResult, error)
}

// Unconfigured is the Provider used when no API key is present: every
// request fails with a credential error instead of failing the whole
// application at startup.
type Unconfigured struct{}

// Analyze always reports a missing credential.
func (Unconfigured) Analyze(context.Context, []models.SymptomEntry) (*models.AnalysisResult, error) {
	return nil, fmt.Errorf("%w: no API key configured", apperr.ErrProviderAuth)
}

// parseResult decodes the provider payload and rejects documents that lack
// the required fields: a patterns list, a causes list, and a numeric urgency
// score.
func parseResult(content string) (*models.AnalysisResult, error) {
	content = stripFences(content)

	var raw struct {
		Patterns         []models.Pattern       `json:"patterns"`
		PossibleCauses   []models.PossibleCause `json:"possibleCauses"`
		UrgencyScore     *int                   `json:"urgencyScore"`
		UrgencyReasoning string                 `json:"urgencyReasoning"`
		SelfCareActions  []string               `json:"selfCareActions"`
		DoctorQuestions  []string               `json:"doctorQuestions"`
		RedFlags         []string               `json:"redFlags"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrProviderMalformed, err)
	}
	if raw.Patterns == nil || raw.PossibleCauses == nil || raw.UrgencyScore == nil {
		return nil, fmt.Errorf("%w: missing patterns, possibleCauses, or urgencyScore", apperr.ErrProviderMalformed)
	}

	return &models.AnalysisResult{
		Patterns:         raw.Patterns,
		PossibleCauses:   raw.PossibleCauses,
		UrgencyScore:     *raw.UrgencyScore,
		UrgencyReasoning: raw.UrgencyReasoning,
		SelfCareActions:  raw.SelfCareActions,
		DoctorQuestions:  raw.DoctorQuestions,
		RedFlags:         raw.RedFlags,
	}, nil
}

// stripFences removes a Markdown code fence wrapper, which some models emit
// even in JSON mode.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
