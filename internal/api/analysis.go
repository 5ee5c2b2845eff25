package api

import (
	"errors"
	"net/http"

	"github.com/starkell/halsa/internal/apperr"
	"github.com/starkell/halsa/internal/sse"
)

// AnalysisStatus handles GET /analysis: current state, held result, failure
// reason, and days until the gate opens.
func (h *Handler) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.Status())
}

// RequestAnalysis handles POST /analysis: the gated provider round trip.
// Requests rejected at the gate or while another is in flight never ran, so
// they emit no events.
func (h *Handler) RequestAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.RequestAnalysis(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrGateNotMet):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
			return
		case errors.Is(err, apperr.ErrAnalysisInFlight):
			writeJSON(w, http.StatusConflict, errorBody("analysis already in progress"))
			return
		}

		status := h.orch.Status()
		h.publish(sse.Event{Type: "analysis.started", Data: map[string]string{}})
		h.publish(sse.Event{Type: "analysis.failed", Data: map[string]string{"reason": status.Error}})
		if errors.Is(err, apperr.ErrStorageFull) {
			writeJSON(w, http.StatusInsufficientStorage, errorBody(status.Error))
		} else {
			writeJSON(w, http.StatusBadGateway, errorBody(status.Error))
		}
		return
	}

	h.publish(sse.Event{Type: "analysis.started", Data: map[string]string{}})
	h.publish(sse.Event{Type: "analysis.completed", Data: map[string]int{"urgencyScore": result.UrgencyScore}})
	writeJSON(w, http.StatusOK, h.orch.Status())
}

// ResetAnalysis handles POST /analysis/reset.
func (h *Handler) ResetAnalysis(w http.ResponseWriter, r *http.Request) {
	h.orch.Reset()
	writeJSON(w, http.StatusOK, h.orch.Status())
}

// ListAnalyses handles GET /analyses: the bounded history, oldest first.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses := h.store.AllAnalyses()
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"total":    len(analyses),
	})
}
