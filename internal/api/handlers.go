package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starkell/halsa/internal/analysis"
	"github.com/starkell/halsa/internal/analytics"
	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/sse"
	"github.com/starkell/halsa/internal/store"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	store  *store.Store
	orch   *analysis.Orchestrator
	broker *sse.Broker // nil disables event publishing
	now    func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(st *store.Store, orch *analysis.Orchestrator, broker *sse.Broker) *Handler {
	return &Handler{store: st, orch: orch, broker: broker, now: time.Now}
}

func (h *Handler) publish(event sse.Event) {
	if h.broker != nil {
		h.broker.Publish(event)
	}
}

func (h *Handler) publishEntry(kind, date string) {
	if h.broker != nil {
		h.broker.PublishEntryEvent(kind, date)
	}
}

// entryDate extracts and validates the {date} URL parameter.
func entryDate(r *http.Request) (string, bool) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// ListEntries handles GET /entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries := h.store.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetEntry handles GET /entries/{date}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := entryDate(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	entry, err := h.store.EntryByDate(date)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no entry for "+date))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SaveEntry handles POST /entries: add or replace the entry for its date.
func (h *Handler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var entry models.SymptomEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.AddOrReplaceEntry(entry); err != nil {
		h.writeEntryError(w, entry.Date, err)
		return
	}
	h.publishEntry("saved", entry.Date)
	writeJSON(w, http.StatusCreated, entry)
}

// UpdateEntry handles PUT /entries/{date}: replace only if the date exists.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	date, ok := entryDate(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	var entry models.SymptomEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if entry.Date == "" {
		entry.Date = date
	}
	if entry.Date != date {
		writeJSON(w, http.StatusBadRequest, errorBody("entry date must match URL date"))
		return
	}
	if err := h.store.UpdateEntry(date, entry); err != nil {
		h.writeEntryError(w, date, err)
		return
	}
	h.publishEntry("saved", date)
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /entries/{date}. Deleting an absent date is a
// no-op and still returns 204.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := entryDate(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	if err := h.store.DeleteEntry(date); err != nil {
		slog.Error("delete entry failed", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publishEntry("deleted", date)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeEntryError(w http.ResponseWriter, date string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("no entry for "+date))
	case errors.Is(err, apperr.ErrStorageFull):
		writeJSON(w, http.StatusInsufficientStorage, errorBody("storage full; entry was not saved"))
	case errors.Is(err, apperr.ErrInvalidEntry):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("save entry failed", slog.String("date", date), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Frequencies handles GET /stats/frequencies.
func (h *Handler) Frequencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"frequencies": analytics.SymptomFrequencies(h.store.Entries()),
	})
}

// Trends handles GET /stats/trends.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"trends": analytics.SeverityTrends(h.store.Entries()),
	})
}

// Correlations handles GET /stats/correlations.
func (h *Handler) Correlations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"correlations": analytics.Correlations(h.store.Entries()),
	})
}

// Weekly handles GET /stats/weekly.
func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"weeks": analytics.WeeklySummary(h.store.Entries()),
	})
}

// Categories handles GET /stats/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": analytics.SymptomsByCategory(h.store.Entries()),
	})
}
