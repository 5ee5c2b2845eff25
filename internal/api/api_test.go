package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starkell/halsa/internal/analysis"
	"github.com/starkell/halsa/internal/api"
	"github.com/starkell/halsa/internal/models"
	"github.com/starkell/halsa/internal/sse"
	"github.com/starkell/halsa/internal/store"
	"github.com/starkell/halsa/internal/testutil"
)

type stubProvider struct {
	result *models.AnalysisResult
	err    error
}

func (p *stubProvider) Analyze(ctx context.Context, entries []models.SymptomEntry) (*models.AnalysisResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	result := *p.result
	return &result, nil
}

func newServer(t *testing.T, provider analysis.Provider) (*httptest.Server, *store.Store) {
	t.Helper()
	st, _ := testutil.TestStore(t)
	if provider == nil {
		provider = &stubProvider{result: &models.AnalysisResult{
			Patterns:       []models.Pattern{},
			PossibleCauses: []models.PossibleCause{},
			UrgencyScore:   3,
		}}
	}
	orch := analysis.New(st, provider, testutil.Logger())
	srv := httptest.NewServer(api.NewRouter(st, orch, nil, false, "", nil))
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

const sampleEntry = `{"date":"2026-03-05","symptoms":[{"name":"Headache","severity":6,"category":"pain"}],"notes":"afternoon"}`

func TestEntryLifecycle(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp := do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/entries", "")
	var list struct {
		Entries []models.SymptomEntry `json:"entries"`
		Total   int                   `json:"total"`
	}
	decode(t, resp, &list)
	if list.Total != 1 || list.Entries[0].Date != "2026-03-05" {
		t.Errorf("list = %+v", list)
	}

	resp = do(t, http.MethodGet, srv.URL+"/entries/2026-03-05", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", resp.StatusCode)
	}

	updated := `{"date":"2026-03-05","symptoms":[{"name":"Headache","severity":3,"category":"pain"}]}`
	resp = do(t, http.MethodPut, srv.URL+"/entries/2026-03-05", updated)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("update status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/entries/2026-03-05", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, srv.URL+"/entries/2026-03-05", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestSaveEntryRejectsInvalid(t *testing.T) {
	srv, _ := newServer(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"bad date", `{"date":"03/05/2026","symptoms":[]}`},
		{"severity out of range", `{"date":"2026-03-05","symptoms":[{"name":"Headache","severity":14,"category":"pain"}]}`},
	}
	for _, tc := range cases {
		resp := do(t, http.MethodPost, srv.URL+"/entries", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestUpdateEntryDateMismatch(t *testing.T) {
	srv, _ := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	other := `{"date":"2026-03-06","symptoms":[{"name":"Headache","severity":3,"category":"pain"}]}`
	resp := do(t, http.MethodPut, srv.URL+"/entries/2026-03-05", other)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on date mismatch", resp.StatusCode)
	}
}

func TestUpdateAbsentEntry(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp := do(t, http.MethodPut, srv.URL+"/entries/2026-03-05", sampleEntry)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	for _, path := range []string{"/stats/frequencies", "/stats/trends", "/stats/correlations", "/stats/weekly", "/stats/categories"} {
		resp := do(t, http.MethodGet, srv.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}
}

func TestAnalysisGateRejected(t *testing.T) {
	srv, _ := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	resp := do(t, http.MethodPost, srv.URL+"/analysis", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 below the gate", resp.StatusCode)
	}
}

func TestAnalysisFlow(t *testing.T) {
	srv, _ := newServer(t, nil)
	for i := 1; i <= 7; i++ {
		body := fmt.Sprintf(`{"date":"2026-03-%02d","symptoms":[{"name":"Headache","severity":5,"category":"pain"}]}`, i)
		resp := do(t, http.MethodPost, srv.URL+"/entries", body)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed status = %d", resp.StatusCode)
		}
	}

	resp := do(t, http.MethodPost, srv.URL+"/analysis", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analysis status = %d", resp.StatusCode)
	}
	var status analysis.Status
	decode(t, resp, &status)
	if status.State != analysis.StateComplete || status.Result == nil {
		t.Errorf("status = %+v", status)
	}

	resp = do(t, http.MethodGet, srv.URL+"/analyses", "")
	var history struct {
		Total int `json:"total"`
	}
	decode(t, resp, &history)
	if history.Total != 1 {
		t.Errorf("history total = %d", history.Total)
	}

	resp = do(t, http.MethodPost, srv.URL+"/analysis/reset", "")
	decode(t, resp, &status)
	if status.State != analysis.StateInsufficientData {
		t.Errorf("state after reset = %q", status.State)
	}
}

func TestAnalysisEvents(t *testing.T) {
	st, _ := testutil.TestStore(t)
	provider := &stubProvider{result: &models.AnalysisResult{
		Patterns:       []models.Pattern{},
		PossibleCauses: []models.PossibleCause{},
		UrgencyScore:   3,
	}}
	orch := analysis.New(st, provider, testutil.Logger())
	broker := sse.NewBroker(time.Hour)
	t.Cleanup(broker.Close)
	srv := httptest.NewServer(api.NewRouter(st, orch, broker, false, "", nil))
	t.Cleanup(srv.Close)

	events := broker.Subscribe()
	t.Cleanup(func() { broker.Unsubscribe(events) })

	drainEntryEvents := func(n int) {
		for i := 0; i < n; i++ {
			select {
			case <-events:
			case <-time.After(time.Second):
				t.Fatal("missing entry event")
			}
		}
	}

	// A gate-rejected request never ran and must emit no analysis events.
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)
	drainEntryEvents(2) // entry.saved + stats.updated
	resp := do(t, http.MethodPost, srv.URL+"/analysis", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	select {
	case msg := <-events:
		t.Fatalf("rejected request published %q", msg)
	case <-time.After(200 * time.Millisecond):
	}

	// A run that passes the gate emits started then completed.
	for i := 1; i <= 7; i++ {
		body := fmt.Sprintf(`{"date":"2026-03-%02d","symptoms":[{"name":"Headache","severity":5,"category":"pain"}]}`, i)
		do(t, http.MethodPost, srv.URL+"/entries", body)
		drainEntryEvents(1) // entry.saved; stats.updated stays throttled
	}
	resp = do(t, http.MethodPost, srv.URL+"/analysis", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var frames []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-events:
			frames = append(frames, string(msg))
		case <-time.After(time.Second):
			t.Fatal("missing analysis event")
		}
	}
	if !strings.Contains(frames[0], "event: analysis.started") {
		t.Errorf("first frame = %q", frames[0])
	}
	if !strings.Contains(frames[1], "event: analysis.completed") {
		t.Errorf("second frame = %q", frames[1])
	}
}

func TestAnalysisProviderFailure(t *testing.T) {
	srv, _ := newServer(t, &stubProvider{err: fmt.Errorf("dial tcp: connection refused")})
	for i := 1; i <= 7; i++ {
		body := fmt.Sprintf(`{"date":"2026-03-%02d","symptoms":[{"name":"Headache","severity":5,"category":"pain"}]}`, i)
		do(t, http.MethodPost, srv.URL+"/entries", body)
	}

	resp := do(t, http.MethodPost, srv.URL+"/analysis", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	srv, _ := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	resp := do(t, http.MethodGet, srv.URL+"/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "halsa-export-") {
		t.Errorf("disposition = %q", cd)
	}
	var rec models.StorageRecord
	decode(t, resp, &rec)
	if len(rec.Entries) != 1 {
		t.Fatalf("export entries = %d", len(rec.Entries))
	}

	// Import into a fresh server.
	snapshot, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	srv2, st2 := newServer(t, nil)
	resp = do(t, http.MethodPost, srv2.URL+"/import", string(snapshot))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}
	if len(st2.Entries()) != 1 {
		t.Errorf("imported entries = %d", len(st2.Entries()))
	}
}

func TestImportRejected(t *testing.T) {
	srv, st := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	resp := do(t, http.MethodPost, srv.URL+"/import", `{"schemaVersion":"1.0.0"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(st.Entries()) != 1 {
		t.Error("rejected import must leave the record untouched")
	}
}

func TestClearAllEndpoint(t *testing.T) {
	srv, st := newServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/entries", sampleEntry)

	resp := do(t, http.MethodDelete, srv.URL+"/data", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(st.Entries()) != 0 {
		t.Error("entries not cleared")
	}
}

func TestDemoModeToggle(t *testing.T) {
	srv, st := newServer(t, nil)

	resp := do(t, http.MethodPut, srv.URL+"/preferences/demo-mode", `{"enabled":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("enable status = %d", resp.StatusCode)
	}
	if !st.IsDemoMode() {
		t.Error("demo mode not enabled")
	}
	if got := len(st.Entries()); got != 14 {
		t.Errorf("demo entries = %d, want 14", got)
	}

	// Enabling again is a no-op.
	do(t, http.MethodPut, srv.URL+"/preferences/demo-mode", `{"enabled":true}`)
	if got := len(st.Entries()); got != 14 {
		t.Errorf("entries after repeat enable = %d", got)
	}

	resp = do(t, http.MethodPut, srv.URL+"/preferences/demo-mode", `{"enabled":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("disable status = %d", resp.StatusCode)
	}
	if st.IsDemoMode() || len(st.Entries()) != 0 {
		t.Errorf("disable: demo=%v entries=%d", st.IsDemoMode(), len(st.Entries()))
	}
}

func TestNotificationsToggle(t *testing.T) {
	srv, st := newServer(t, nil)

	resp := do(t, http.MethodPut, srv.URL+"/preferences/notifications", `{"enabled":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !st.Preferences().NotificationsEnabled {
		t.Error("flag not persisted")
	}
	resp = do(t, http.MethodGet, srv.URL+"/preferences", "")
	var prefs models.Preferences
	decode(t, resp, &prefs)
	if !prefs.NotificationsEnabled {
		t.Errorf("prefs = %+v", prefs)
	}
}

func TestAuthMiddleware(t *testing.T) {
	st, _ := testutil.TestStore(t)
	orch := analysis.New(st, &stubProvider{result: &models.AnalysisResult{UrgencyScore: 1}}, testutil.Logger())
	srv := httptest.NewServer(api.NewRouter(st, orch, nil, true, "secret", nil))
	t.Cleanup(srv.Close)

	resp := do(t, http.MethodGet, srv.URL+"/entries", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/entries", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", resp2.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/entries", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d", resp3.StatusCode)
	}
}
