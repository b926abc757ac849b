package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jurisrank/jurisapi/internal/config"
	"github.com/jurisrank/jurisapi/internal/core"
	"github.com/jurisrank/jurisapi/internal/model"
	"github.com/jurisrank/jurisapi/internal/stats"
	"github.com/jurisrank/jurisapi/internal/store"
)

// newTestServer builds a router with tight default-tier limits and a
// throwaway sqlite store.
func newTestServer(t *testing.T, hourly, perMinute int) (*gin.Engine, *core.RateLimiter, *stats.MemorySink) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.AdminAPIKey = "admin-secret"
	cfg.RateLimit.Tiers = map[string]model.QuotaPolicy{
		string(model.TierDefault): {
			RequestsPerHour:   hourly,
			RequestsPerMinute: perMinute,
		},
		string(model.TierAuthenticated): {RequestsPerHour: 1000},
		string(model.TierPremium):       {RequestsPerHour: 5000},
		string(model.TierAdmin):         {RequestsPerHour: 10000},
	}
	cfg.RateLimit.Endpoints = map[string]model.QuotaPolicy{}

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rl := core.NewRateLimiter(&cfg.RateLimit)
	sink := stats.NewMemorySink()
	return SetupRouter(cfg, rl, sink, db), rl, sink
}

func doSearch(r *gin.Engine, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/search/precedents",
		strings.NewReader(`{"query":"principio de reserva"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ua)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_HeadersOnSuccess(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	w := doSearch(r, "TestAgent/1.0")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	for _, h := range []string{
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		"X-RateLimit-Window",
		"X-RateLimit-Policy",
	} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
	if w.Header().Get("Retry-After") != "" {
		t.Error("Retry-After must not appear on success")
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("limit header = %s, want 10", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("remaining header = %s, want 9", got)
	}
}

func TestRateLimitMiddleware_RejectsWith429(t *testing.T) {
	r, _, _ := newTestServer(t, 2, 0)

	doSearch(r, "TestAgent/1.0")
	doSearch(r, "TestAgent/1.0")
	w := doSearch(r, "TestAgent/1.0")

	if w.Code != 429 {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on rejection")
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error code = %s, want RATE_LIMIT_EXCEEDED", resp.Error.Code)
	}
	if resp.Error.Details == nil {
		t.Fatal("expected rate limit details in error body")
	}
	if resp.Error.Details.Limit != 2 {
		t.Errorf("details limit = %d, want 2", resp.Error.Details.Limit)
	}
	if resp.Error.Details.Window != 3600 {
		t.Errorf("details window = %d, want 3600", resp.Error.Details.Window)
	}
	if resp.Error.Details.RetryAfter <= 0 {
		t.Error("details retry_after should be positive")
	}
}

func TestRateLimitMiddleware_SeparateClients(t *testing.T) {
	r, _, _ := newTestServer(t, 1, 0)

	if w := doSearch(r, "AgentA/1.0"); w.Code != 200 {
		t.Fatalf("client A first call: status = %d, want 200", w.Code)
	}
	// Different UA derives a different anonymous identity with its own quota.
	if w := doSearch(r, "AgentB/1.0"); w.Code != 200 {
		t.Fatalf("client B first call: status = %d, want 200", w.Code)
	}
	if w := doSearch(r, "AgentA/1.0"); w.Code != 429 {
		t.Fatalf("client A second call: status = %d, want 429", w.Code)
	}
}

func TestRateLimitMiddleware_RecordsStats(t *testing.T) {
	r, _, sink := newTestServer(t, 1, 0)

	doSearch(r, "TestAgent/1.0")
	doSearch(r, "TestAgent/1.0")

	total := sink.Total()
	if total.Allowed != 1 || total.Denied != 1 {
		t.Fatalf("sink totals = %+v, want 1 allowed / 1 denied", total)
	}
}

func TestMyUsage(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	req := httptest.NewRequest("GET", "/api/v1/rate-limit/my-usage", nil)
	req.Header.Set("User-Agent", "TestAgent/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool                `json:"success"`
		Data    model.UsageSnapshot `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	// The my-usage call itself was admitted and counted.
	if resp.Data.RequestsMade != 1 {
		t.Errorf("requests_made = %d, want 1", resp.Data.RequestsMade)
	}
	if resp.Data.ClientTier != model.TierDefault {
		t.Errorf("tier = %s, want default", resp.Data.ClientTier)
	}
}

func TestRateLimitStatsEndpoint(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	doSearch(r, "TestAgent/1.0")

	req := httptest.NewRequest("GET", "/api/v1/rate-limit/stats", nil)
	req.Header.Set("User-Agent", "TestAgent/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool                 `json:"success"`
		Data    model.RateLimitStats `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	// The stats call itself is admitted before the handler reads counters.
	if resp.Data.TotalRequests != 2 {
		t.Errorf("total_requests = %d, want 2", resp.Data.TotalRequests)
	}
	if resp.Data.TotalClients != 1 {
		t.Errorf("total_clients = %d, want 1", resp.Data.TotalClients)
	}
}

func TestAdminAuth(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	req := httptest.NewRequest("GET", "/api/admin/config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("unauthenticated admin call: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/admin/config", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("authenticated admin call: status = %d, want 200", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	req := httptest.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
}

func TestAnalysisValidation(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	req := httptest.NewRequest("POST", "/api/v1/analysis/constitutional",
		strings.NewReader(`{"case_facts":"hechos del caso"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TestAgent/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("status = %d, want 400 for missing legal_question", w.Code)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Error.Code != "MISSING_REQUIRED_FIELDS" {
		t.Errorf("error code = %s, want MISSING_REQUIRED_FIELDS", resp.Error.Code)
	}

	// A rejected-as-invalid request still consumed quota on the way in.
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("remaining = %s, want 9", got)
	}
}

func TestHttpMethodNotFound(t *testing.T) {
	r, _, _ := newTestServer(t, 10, 0)

	req := httptest.NewRequest("GET", "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
