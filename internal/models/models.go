// Package models defines the domain types for the symptom journal.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SchemaVersion is the current version stamped on every persisted record.
const SchemaVersion = "1.0.0"

// DateLayout is the canonical day-granularity date form used throughout.
const DateLayout = "2006-01-02"

// Confidence levels used by analysis patterns and causes.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Symptom is a single observation logged on a day.
type Symptom struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`
	Category string `json:"category"`
}

// Validate rejects symptoms with missing fields or severity outside 1-10.
// Out-of-range severity is rejected at the write path, never clamped.
func (s Symptom) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Severity, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&s.Category, validation.Required),
	)
}

// ContextFactors are the daily lifestyle signals recorded alongside symptoms.
// A nil ContextFactors on an entry means "not recorded", distinct from zero.
type ContextFactors struct {
	Stress     int      `json:"stress"`
	Sleep      float64  `json:"sleep"`
	Exercise   bool     `json:"exercise"`
	Medication []string `json:"medication"`
}

// Validate checks the bounded factor ranges.
func (c ContextFactors) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Stress, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.Sleep, validation.Min(0.0), validation.Max(24.0)),
	)
}

// SymptomEntry is one day's logged symptoms, notes, and optional context.
type SymptomEntry struct {
	Date           string          `json:"date"`
	Symptoms       []Symptom       `json:"symptoms"`
	Notes          string          `json:"notes"`
	ContextFactors *ContextFactors `json:"contextFactors,omitempty"`
}

// Validate checks the canonical date form and every nested symptom.
func (e SymptomEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&e.Symptoms),
		validation.Field(&e.ContextFactors),
	)
}

// Pattern is one observed pattern in an analysis result.
type Pattern struct {
	Description string   `json:"description"`
	Confidence  string   `json:"confidence"`
	Evidence    []string `json:"evidence"`
}

// PossibleCause is one candidate explanation in an analysis result.
type PossibleCause struct {
	Cause      string `json:"cause"`
	Likelihood string `json:"likelihood"`
	Reasoning  string `json:"reasoning"`
}

// AnalysisResult is the structured output of the pattern-analysis provider.
type AnalysisResult struct {
	Patterns         []Pattern       `json:"patterns"`
	PossibleCauses   []PossibleCause `json:"possibleCauses"`
	UrgencyScore     int             `json:"urgencyScore"`
	UrgencyReasoning string          `json:"urgencyReasoning"`
	SelfCareActions  []string        `json:"selfCareActions"`
	DoctorQuestions  []string        `json:"doctorQuestions"`
	RedFlags         []string        `json:"redFlags,omitempty"`
}

// StoredAnalysis freezes an analysis result together with the entries that
// produced it. Immutable once created.
type StoredAnalysis struct {
	Timestamp     time.Time      `json:"timestamp"`
	Result        AnalysisResult `json:"result"`
	EntrySnapshot []SymptomEntry `json:"entrySnapshot"`
}

// Preferences are the user-level flags carried on the record.
type Preferences struct {
	DemoMode             bool `json:"demoMode"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

// StorageRecord is the whole persisted document. Exactly one exists per
// device; every store operation rewrites it in full.
type StorageRecord struct {
	SchemaVersion string           `json:"schemaVersion"`
	Entries       []SymptomEntry   `json:"entries"`
	Analyses      []StoredAnalysis `json:"analyses"`
	Preferences   Preferences      `json:"preferences"`
}

// DefaultRecord returns the empty record created on first access.
func DefaultRecord() StorageRecord {
	return StorageRecord{
		SchemaVersion: SchemaVersion,
		Entries:       []SymptomEntry{},
		Analyses:      []StoredAnalysis{},
	}
}

// SeverityLabel maps a 1-10 severity to its display label.
func SeverityLabel(severity int) string {
	switch severity {
	case 0:
		return "None"
	case 1:
		return "Very Mild"
	case 2:
		return "Mild"
	case 3:
		return "Mild-Moderate"
	case 4, 5:
		return "Moderate"
	case 6:
		return "Moderate-Severe"
	case 7:
		return "Severe"
	case 8:
		return "Very Severe"
	case 9:
		return "Extremely Severe"
	case 10:
		return "Emergency"
	default:
		return "Unknown"
	}
}
