// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the symptom journal to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starkell/halsa/internal/analysis"
	"github.com/starkell/halsa/internal/analytics"
	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/store"
)

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp   *server.MCPServer
	store *store.Store
	orch  *analysis.Orchestrator
}

// New creates a new MCP server with all journal tools registered.
func New(st *store.Store, orch *analysis.Orchestrator) *Server {
	s := &Server{store: st, orch: orch}

	s.mcp = server.NewMCPServer(
		"Halsa",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("log_entry",
		mcp.WithDescription("Save the symptom entry for a day, replacing any existing entry on that date. "+
			"Symptoms is a JSON array of {name, severity (1-10), category}. "+
			"Context factors, if recorded, is a JSON object of {stress (1-10), sleep (hours), exercise (bool), medication ([]string)}."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Calendar date in YYYY-MM-DD form")),
		mcp.WithString("symptoms", mcp.Required(), mcp.Description("JSON array of symptoms")),
		mcp.WithString("notes", mcp.Description("Free-form notes for the day")),
		mcp.WithString("context_factors", mcp.Description("Optional JSON object of lifestyle factors")),
	), s.logEntry)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Read the symptom entry for a specific date."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Calendar date in YYYY-MM-DD form")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List all logged entries, sorted ascending by date."),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete the symptom entry for a specific date."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Calendar date in YYYY-MM-DD form")),
	), s.deleteEntry)

	s.mcp.AddTool(mcp.NewTool("symptom_frequencies",
		mcp.WithDescription("Occurrence count, category, and mean severity per symptom, most frequent first."),
	), s.symptomFrequencies)

	s.mcp.AddTool(mcp.NewTool("severity_trends",
		mcp.WithDescription("Per-day mean severity, maximum severity, and symptom count."),
	), s.severityTrends)

	s.mcp.AddTool(mcp.NewTool("correlations",
		mcp.WithDescription("Directional correlation signals between each symptom and the stress, sleep, and exercise factors."),
	), s.correlations)

	s.mcp.AddTool(mcp.NewTool("weekly_summary",
		mcp.WithDescription("Per calendar week (Sunday start): mean severity, symptom count, and most frequent symptom."),
	), s.weeklySummary)

	s.mcp.AddTool(mcp.NewTool("request_analysis",
		mcp.WithDescription("Run the AI pattern analysis over the current entries. Requires at least 7 logged days."),
	), s.requestAnalysis)

	s.mcp.AddTool(mcp.NewTool("latest_analysis",
		mcp.WithDescription("Return the most recent stored analysis result, if any."),
	), s.latestAnalysis)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) logEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	symptomsJSON, err := req.RequireString("symptoms")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var symptoms []models.Symptom
	if err := json.Unmarshal([]byte(symptomsJSON), &symptoms); err != nil {
		return mcp.NewToolResultError("symptoms is not a valid JSON array: " + err.Error()), nil
	}

	entry := models.SymptomEntry{
		Date:     date,
		Symptoms: symptoms,
		Notes:    req.GetString("notes", ""),
	}
	if cfJSON := req.GetString("context_factors", ""); cfJSON != "" {
		var cf models.ContextFactors
		if err := json.Unmarshal([]byte(cfJSON), &cf); err != nil {
			return mcp.NewToolResultError("context_factors is not a valid JSON object: " + err.Error()), nil
		}
		entry.ContextFactors = &cf
	}

	if err := s.store.AddOrReplaceEntry(entry); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved entry for %s with %d symptom(s).", date, len(symptoms))), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.store.EntryByDate(date)
	if err != nil {
		return mcp.NewToolResultError("no entry for " + date), nil
	}
	return jsonResult(entry)
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Entries())
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.DeleteEntry(date); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Deleted entry for " + date + " (no-op if absent)."), nil
}

func (s *Server) symptomFrequencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(analytics.SymptomFrequencies(s.store.Entries()))
}

// labeledTrend decorates a trend with the display label for its peak
// severity, so LLM clients do not have to interpret the raw scale.
type labeledTrend struct {
	analytics.SeverityTrend
	MaxSeverityLabel string `json:"maxSeverityLabel"`
}

func (s *Server) severityTrends(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trends := analytics.SeverityTrends(s.store.Entries())
	labeled := make([]labeledTrend, 0, len(trends))
	for _, t := range trends {
		labeled = append(labeled, labeledTrend{
			SeverityTrend:    t,
			MaxSeverityLabel: models.SeverityLabel(t.MaxSeverity),
		})
	}
	return jsonResult(labeled)
}

func (s *Server) correlations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(analytics.Correlations(s.store.Entries()))
}

func (s *Server) weeklySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(analytics.WeeklySummary(s.store.Entries()))
}

func (s *Server) requestAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.orch.RequestAnalysis(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) latestAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	latest, err := s.store.LatestAnalysis()
	if err != nil {
		return mcp.NewToolResultError("no stored analysis"), nil
	}
	return jsonResult(latest)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
