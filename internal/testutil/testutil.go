// Package testutil provides shared test helpers: an in-memory medium, a
// silent logger, and entry builders.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/store"
)

// MemMedium is an in-memory Medium with optional write-failure injection.
type MemMedium struct {
	mu      sync.Mutex
	values  map[string]string
	FailSet error // when non-nil, Set returns this error
}

// NewMemMedium creates an empty in-memory medium.
func NewMemMedium() *MemMedium {
	return &MemMedium{values: map[string]string{}}
}

// Get returns the stored value for key.
func (m *MemMedium) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set replaces the value for key, or fails with the injected error.
func (m *MemMedium) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.values[key] = value
	return nil
}

// Seed stores a raw value directly, bypassing failure injection.
func (m *MemMedium) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Close is a no-op.
func (m *MemMedium) Close() error { return nil }

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a store over a fresh in-memory medium with a fixed clock.
func TestStore(t *testing.T) (*store.Store, *MemMedium) {
	t.Helper()
	med := NewMemMedium()
	st := store.New(med, Logger(), store.WithClock(FixedClock(t)))
	return st, med
}

// FixedClock returns a clock that advances one second per call, starting
// from a stable instant, so timestamps are distinct but deterministic.
func FixedClock(t *testing.T) func() time.Time {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

// Sym builds a symptom.
func Sym(name string, severity int, category string) models.Symptom {
	return models.Symptom{Name: name, Severity: severity, Category: category}
}

// Entry builds an entry for date with the given symptoms.
func Entry(date string, symptoms ...models.Symptom) models.SymptomEntry {
	return models.SymptomEntry{Date: date, Symptoms: symptoms}
}

// EntryWithContext builds an entry carrying context factors.
func EntryWithContext(date string, cf models.ContextFactors, symptoms ...models.Symptom) models.SymptomEntry {
	e := Entry(date, symptoms...)
	e.ContextFactors = &cf
	return e
}
