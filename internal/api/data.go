package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/demo"
	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/sse"
)

// Export handles GET /export: the full record, pretty-printed, served as a
// download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.ExportSnapshot()
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	filename := fmt.Sprintf("halsa-export-%s.json", h.now().Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, snapshot)
}

// Import handles POST /import: all-or-nothing replacement of the record.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := h.store.ImportSnapshot(string(body)); err != nil {
		switch {
		case errors.Is(err, apperr.ErrImportValidation):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrStorageFull):
			writeJSON(w, http.StatusInsufficientStorage, errorBody("storage full; import was not applied"))
		default:
			slog.Error("import failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.orch.Reload()
	h.publish(sse.Event{Type: "data.imported", Data: map[string]int{"entries": len(h.store.Entries())}})
	writeJSON(w, http.StatusOK, map[string]any{"entries": len(h.store.Entries())})
}

// ClearAll handles DELETE /data: reset the record to defaults.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(); err != nil {
		slog.Error("clear all failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.orch.Reload()
	h.publish(sse.Event{Type: "data.cleared", Data: map[string]string{}})
	w.WriteHeader(http.StatusNoContent)
}

// Preferences handles GET /preferences.
func (h *Handler) Preferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Preferences())
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetDemoMode handles PUT /preferences/demo-mode. Enabling loads the
// generated demo collection through the normal entry path; disabling clears
// all entries again.
func (h *Handler) SetDemoMode(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Enabled == h.store.IsDemoMode() {
		writeJSON(w, http.StatusOK, h.store.Preferences())
		return
	}

	if req.Enabled {
		for _, entry := range demo.Generate(h.now(), h.now().UnixNano()) {
			if err := h.store.AddOrReplaceEntry(entry); err != nil {
				slog.Error("demo data load failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("failed to load demo data"))
				return
			}
		}
	} else {
		if err := h.store.ClearEntries(); err != nil {
			slog.Error("demo data clear failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to clear demo data"))
			return
		}
	}
	if err := h.store.SetDemoMode(req.Enabled); err != nil {
		slog.Error("set demo mode failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.orch.Reload()
	h.publish(sse.Event{Type: "stats.updated", Data: map[string]string{}})
	writeJSON(w, http.StatusOK, h.store.Preferences())
}

// SetNotifications handles PUT /preferences/notifications.
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.SetNotifications(req.Enabled); err != nil {
		slog.Error("set notifications failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, h.store.Preferences())
}
