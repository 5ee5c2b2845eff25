// Package store implements the versioned persistent journal store on top of
// a whole-record key-value medium.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/medium"
	"github.com/starkell/halsa/internal/models"
)

// RecordKey is the single key under which the journal record lives.
const RecordKey = "journal"

// maxStoredAnalyses bounds the analysis history. Eviction is by creation
// order, oldest first.
const maxStoredAnalyses = 10

// Store owns the StorageRecord. All mutations are read-modify-write against
// the medium, which only supports whole-record replace.
type Store struct {
	medium medium.Medium
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for analysis timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over the given medium.
func New(m medium.Medium, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{medium: m, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the current record. A missing record yields defaults. A record
// with an older schema version is migrated by shallow-merging its fields onto
// defaults and stamping the current version. An unreadable or corrupt record
// degrades to defaults without surfacing an error; the data is effectively
// reset on the next write.
func (s *Store) Read() models.StorageRecord {
	raw, ok, err := s.medium.Get(RecordKey)
	if err != nil {
		s.logger.Warn("store: medium unreadable, using defaults", slog.String("error", err.Error()))
		return models.DefaultRecord()
	}
	if !ok {
		return models.DefaultRecord()
	}

	// Unmarshaling onto a defaults record is the shallow merge: fields absent
	// from the stored document keep their default values.
	rec := models.DefaultRecord()
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Warn("store: corrupt record, using defaults", slog.String("error", err.Error()))
		return models.DefaultRecord()
	}
	if rec.SchemaVersion != models.SchemaVersion {
		s.logger.Info("store: migrating record",
			slog.String("from", rec.SchemaVersion),
			slog.String("to", models.SchemaVersion))
		rec.SchemaVersion = models.SchemaVersion
	}
	normalize(&rec)
	return rec
}

// Write persists the full record. Write failures propagate to the caller.
func (s *Store) Write(rec models.StorageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	if err := s.medium.Set(RecordKey, string(data)); err != nil {
		return fmt.Errorf("store: persist record: %w", err)
	}
	return nil
}

// Entries returns all entries, sorted ascending by date.
func (s *Store) Entries() []models.SymptomEntry {
	return s.Read().Entries
}

// EntryByDate returns the entry for the given date, or ErrNotFound.
func (s *Store) EntryByDate(date string) (models.SymptomEntry, error) {
	for _, e := range s.Read().Entries {
		if e.Date == date {
			return e, nil
		}
	}
	return models.SymptomEntry{}, apperr.ErrNotFound
}

// AddOrReplaceEntry saves an entry for its date, replacing any existing entry
// on that date. The entry list stays sorted ascending by date string, which
// is a correct ordering because dates are canonical YYYY-MM-DD.
func (s *Store) AddOrReplaceEntry(entry models.SymptomEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("store: %w: %v", apperr.ErrInvalidEntry, err)
	}
	rec := s.Read()
	kept := rec.Entries[:0]
	for _, e := range rec.Entries {
		if e.Date != entry.Date {
			kept = append(kept, e)
		}
	}
	rec.Entries = append(kept, entry)
	sort.Slice(rec.Entries, func(i, j int) bool {
		return rec.Entries[i].Date < rec.Entries[j].Date
	})
	return s.Write(rec)
}

// UpdateEntry replaces the entry at date in place. When no entry exists for
// that date it returns ErrNotFound and writes nothing; it never inserts.
func (s *Store) UpdateEntry(date string, entry models.SymptomEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("store: %w: %v", apperr.ErrInvalidEntry, err)
	}
	rec := s.Read()
	for i, e := range rec.Entries {
		if e.Date == date {
			rec.Entries[i] = entry
			return s.Write(rec)
		}
	}
	return apperr.ErrNotFound
}

// DeleteEntry removes the entry for date if present; absent dates are a no-op.
func (s *Store) DeleteEntry(date string) error {
	rec := s.Read()
	kept := rec.Entries[:0]
	removed := false
	for _, e := range rec.Entries {
		if e.Date == date {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return nil
	}
	rec.Entries = kept
	return s.Write(rec)
}

// ClearEntries removes every entry while keeping analyses and preferences.
func (s *Store) ClearEntries() error {
	rec := s.Read()
	rec.Entries = []models.SymptomEntry{}
	return s.Write(rec)
}

// AppendAnalysis stores a new analysis stamped with the current instant,
// freezing the given entry snapshot, and truncates the history to the most
// recent entries by creation order.
func (s *Store) AppendAnalysis(result models.AnalysisResult, snapshot []models.SymptomEntry) (models.StoredAnalysis, error) {
	stored := models.StoredAnalysis{
		Timestamp:     s.now().UTC(),
		Result:        result,
		EntrySnapshot: snapshot,
	}
	rec := s.Read()
	rec.Analyses = append(rec.Analyses, stored)
	if len(rec.Analyses) > maxStoredAnalyses {
		rec.Analyses = rec.Analyses[len(rec.Analyses)-maxStoredAnalyses:]
	}
	if err := s.Write(rec); err != nil {
		return models.StoredAnalysis{}, err
	}
	return stored, nil
}

// LatestAnalysis returns the most recently appended analysis, or ErrNotFound.
func (s *Store) LatestAnalysis() (models.StoredAnalysis, error) {
	analyses := s.Read().Analyses
	if len(analyses) == 0 {
		return models.StoredAnalysis{}, apperr.ErrNotFound
	}
	return analyses[len(analyses)-1], nil
}

// AllAnalyses returns the bounded analysis history, oldest first.
func (s *Store) AllAnalyses() []models.StoredAnalysis {
	return s.Read().Analyses
}

// ExportSnapshot serializes the full record, pretty-printed for human
// inspection.
func (s *Store) ExportSnapshot() (string, error) {
	data, err := json.MarshalIndent(s.Read(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: export: %w", err)
	}
	return string(data), nil
}

// ImportSnapshot replaces the record with the parsed input, merged onto
// defaults and stamped with the current schema version. Import is
// all-or-nothing: any parse or validation failure leaves the existing record
// untouched and returns ErrImportValidation.
func (s *Store) ImportSnapshot(serialized string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(serialized), &fields); err != nil {
		return fmt.Errorf("%w: not a JSON document: %v", apperr.ErrImportValidation, err)
	}
	rawEntries, ok := fields["entries"]
	if !ok {
		return fmt.Errorf("%w: missing entries list", apperr.ErrImportValidation)
	}
	var entries []models.SymptomEntry
	if err := json.Unmarshal(rawEntries, &entries); err != nil {
		return fmt.Errorf("%w: malformed entries list: %v", apperr.ErrImportValidation, err)
	}
	// Unmarshal leaves the slice nil for JSON null, which is not a list.
	if entries == nil {
		return fmt.Errorf("%w: entries must be a list", apperr.ErrImportValidation)
	}

	rec := models.DefaultRecord()
	if err := json.Unmarshal([]byte(serialized), &rec); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrImportValidation, err)
	}
	rec.SchemaVersion = models.SchemaVersion
	normalize(&rec)
	return s.Write(rec)
}

// ClearAll resets the record to defaults.
func (s *Store) ClearAll() error {
	return s.Write(models.DefaultRecord())
}

// Preferences returns the current preference flags.
func (s *Store) Preferences() models.Preferences {
	return s.Read().Preferences
}

// SetDemoMode flips the demo-mode flag. Demo data itself is written through
// the normal entry path by the caller.
func (s *Store) SetDemoMode(enabled bool) error {
	rec := s.Read()
	rec.Preferences.DemoMode = enabled
	return s.Write(rec)
}

// IsDemoMode reports whether demo mode is active.
func (s *Store) IsDemoMode() bool {
	return s.Read().Preferences.DemoMode
}

// SetNotifications flips the notifications preference.
func (s *Store) SetNotifications(enabled bool) error {
	rec := s.Read()
	rec.Preferences.NotificationsEnabled = enabled
	return s.Write(rec)
}

// normalize replaces nil slices so serialized records always carry explicit
// lists.
func normalize(rec *models.StorageRecord) {
	if rec.Entries == nil {
		rec.Entries = []models.SymptomEntry{}
	}
	if rec.Analyses == nil {
		rec.Analyses = []models.StoredAnalysis{}
	}
}
