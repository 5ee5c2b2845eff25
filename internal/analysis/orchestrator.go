package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/store"
)

// State is the orchestrator's position in its lifecycle.
type State string

const (
	StateEmpty            State = "empty"
	StateInsufficientData State = "insufficient-data"
	StateAnalyzing        State = "analyzing"
	StateComplete         State = "complete"
	StateError            State = "error"
)

// GateThreshold is the minimum entry count required before an analysis may
// be initiated.
const GateThreshold = 7

// Status is a point-in-time view of the orchestrator for callers.
type Status struct {
	State             State                  `json:"state"`
	Result            *models.AnalysisResult `json:"result,omitempty"`
	Error             string                 `json:"error,omitempty"`
	DaysUntilEligible int                    `json:"daysUntilEligible"`
}

// Orchestrator is the state machine around the analysis request. A single
// instance exists per store; at most one provider call is outstanding at a
// time, enforced by the analyzing state.
type Orchestrator struct {
	store    *store.Store
	provider Provider
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	result *models.AnalysisResult
	errMsg string
}

// New creates an orchestrator and restores its state: a previously stored
// analysis is shown as complete regardless of the current entry count,
// otherwise the state derives from the entry count alone.
func New(st *store.Store, provider Provider, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{store: st, provider: provider, logger: logger}
	if latest, err := st.LatestAnalysis(); err == nil {
		result := latest.Result
		o.result = &result
		o.state = StateComplete
	} else {
		o.state = o.idleState()
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns the full caller-facing view.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:             o.state,
		Result:            o.result,
		Error:             o.errMsg,
		DaysUntilEligible: o.daysUntilEligible(),
	}
}

// DaysUntilEligible reports how many more logged days are needed before the
// gate opens. Purely derived; no state transition.
func (o *Orchestrator) DaysUntilEligible() int {
	return o.daysUntilEligible()
}

// RequestAnalysis runs one gated analysis round trip: transition to
// analyzing, invoke the provider with the entry collection current at
// request time, validate and persist the result, and transition to complete.
// Below the threshold it fails with ErrGateNotMet and the state is
// unchanged. While a request is in flight a second call is rejected with
// ErrAnalysisInFlight rather than queued.
func (o *Orchestrator) RequestAnalysis(ctx context.Context) (*models.AnalysisResult, error) {
	o.mu.Lock()
	if o.state == StateAnalyzing {
		o.mu.Unlock()
		return nil, apperr.ErrAnalysisInFlight
	}
	snapshot := o.store.Entries()
	if len(snapshot) < GateThreshold {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: need at least %d days of data, have %d",
			apperr.ErrGateNotMet, GateThreshold, len(snapshot))
	}
	o.state = StateAnalyzing
	o.errMsg = ""
	o.mu.Unlock()

	result, err := o.provider.Analyze(ctx, snapshot)
	if err != nil {
		o.fail(failureMessage(err))
		return nil, err
	}

	normalizeResult(result)

	if _, err := o.store.AppendAnalysis(*result, snapshot); err != nil {
		o.fail("Analysis succeeded but could not be saved. " + saveFailureHint(err))
		return nil, err
	}

	o.mu.Lock()
	o.state = StateComplete
	o.result = result
	o.mu.Unlock()

	o.logger.Info("analysis complete",
		slog.Int("entries", len(snapshot)),
		slog.Int("urgency", result.UrgencyScore),
		slog.Int("patterns", len(result.Patterns)))
	return result, nil
}

// Reload re-derives the state from the store, restoring the latest stored
// analysis when one exists. Used after an import or clear-all replaces the
// record. A request in flight is left alone.
func (o *Orchestrator) Reload() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateAnalyzing {
		return
	}
	o.errMsg = ""
	if latest, err := o.store.LatestAnalysis(); err == nil {
		result := latest.Result
		o.result = &result
		o.state = StateComplete
		return
	}
	o.result = nil
	o.state = o.idleState()
}

// Reset clears any held result or error and returns to the idle state
// derived from the current entry count.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result = nil
	o.errMsg = ""
	o.state = o.idleState()
}

func (o *Orchestrator) fail(msg string) {
	o.mu.Lock()
	o.state = StateError
	o.errMsg = msg
	o.mu.Unlock()
	o.logger.Warn("analysis failed", slog.String("reason", msg))
}

func (o *Orchestrator) idleState() State {
	if len(o.store.Entries()) >= GateThreshold {
		return StateInsufficientData
	}
	return StateEmpty
}

func (o *Orchestrator) daysUntilEligible() int {
	remaining := GateThreshold - len(o.store.Entries())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// normalizeResult clamps the urgency score into 1-10 and defaults every
// optional field so persisted results are always fully populated.
func normalizeResult(r *models.AnalysisResult) {
	if r.UrgencyScore < 1 {
		r.UrgencyScore = 1
	}
	if r.UrgencyScore > 10 {
		r.UrgencyScore = 10
	}
	if r.UrgencyReasoning == "" {
		r.UrgencyReasoning = "No specific reasoning provided."
	}
	if r.Patterns == nil {
		r.Patterns = []models.Pattern{}
	}
	if r.PossibleCauses == nil {
		r.PossibleCauses = []models.PossibleCause{}
	}
	if r.SelfCareActions == nil {
		r.SelfCareActions = []string{}
	}
	if r.DoctorQuestions == nil {
		r.DoctorQuestions = []string{}
	}
	if r.RedFlags == nil {
		r.RedFlags = []string{}
	}
}

// failureMessage turns a provider error kind into a message the user can act
// on.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrProviderAuth):
		return "Invalid or missing API credential. Check your analysis provider key."
	case errors.Is(err, apperr.ErrProviderRateLimited):
		return "Rate limit exceeded. Please try again in a moment."
	case errors.Is(err, apperr.ErrProviderMalformed):
		return "The analysis service returned an unreadable response. Please try again."
	default:
		return "Analysis failed. Please check your connection and try again."
	}
}

func saveFailureHint(err error) string {
	if errors.Is(err, apperr.ErrStorageFull) {
		return "Storage is full; free up space and retry."
	}
	return "Retry, or export your data as a backup."
}
