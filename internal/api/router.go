package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starkell/halsa/internal/analysis"
	"github.com/starkell/halsa/internal/sse"
	"github.com/starkell/halsa/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(st *store.Store, orch *analysis.Orchestrator, broker *sse.Broker, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(st, orch, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entry CRUD.
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.SaveEntry)
	r.Get("/entries/{date}", h.GetEntry)
	r.Put("/entries/{date}", h.UpdateEntry)
	r.Delete("/entries/{date}", h.DeleteEntry)

	// Derived statistics.
	r.Get("/stats/frequencies", h.Frequencies)
	r.Get("/stats/trends", h.Trends)
	r.Get("/stats/correlations", h.Correlations)
	r.Get("/stats/weekly", h.Weekly)
	r.Get("/stats/categories", h.Categories)

	// Pattern analysis.
	r.Get("/analysis", h.AnalysisStatus)
	r.Post("/analysis", h.RequestAnalysis)
	r.Post("/analysis/reset", h.ResetAnalysis)
	r.Get("/analyses", h.ListAnalyses)

	// Data management.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Delete("/data", h.ClearAll)

	// Preferences.
	r.Get("/preferences", h.Preferences)
	r.Put("/preferences/demo-mode", h.SetDemoMode)
	r.Put("/preferences/notifications", h.SetNotifications)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
