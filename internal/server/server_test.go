package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/errors"
	"talentmatch/internal/match"
	"talentmatch/internal/observability"
	"talentmatch/internal/pool"
	"talentmatch/internal/types"
)

type scorerFunc func(ctx context.Context, query, resume, job string) (float64, error)

func (f scorerFunc) Score(ctx context.Context, query, resume, job string) (float64, error) {
	return f(ctx, query, resume, job)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Oracle: config.OracleConfig{
			Endpoint:      "http://localhost:0",
			Timeout:       time.Second,
			MaxBatch:      20,
			MaxConcurrent: 5,
			OnError:       "fail",
		},
		Store: config.StoreConfig{
			Path: filepath.Join(t.TempDir(), "talent_pool.json"),
		},
		App: config.AppConfig{
			MaxFileSize: 1024 * 1024,
		},
		Observability: config.ObservabilityConfig{
			HealthCheck: config.HealthCheckConfig{Timeout: time.Second},
		},
	}
}

func newTestServer(t *testing.T, scorer match.Scorer, apiKeys []string) (*Server, *http.ServeMux) {
	t.Helper()

	logger := errors.NewLogger(8) // above error, quiet during tests
	cfg := testConfig(t)

	apiKeyMap := make(map[string]bool)
	for _, key := range apiKeys {
		apiKeyMap[key] = true
	}

	srv := &Server{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		AppConfig:      cfg,
		APIKeys:        apiKeyMap,
		MaxRequestSize: 1024 * 1024,
		Store:          pool.NewFileStore(cfg.Store.Path, logger),
		Oracle:         match.NewOracleClient(cfg.Oracle, logger),
		Ranker:         match.NewRanker(scorer, cfg.Oracle, logger),
		Logger:         logger,
	}

	om, err := observability.NewObservabilityManager(
		observability.ObservabilityConfig{Enabled: false}, cfg)
	if err != nil {
		t.Fatalf("failed to create observability manager: %v", err)
	}

	return srv, srv.setupRoutes(om)
}

func seedPool(t *testing.T, srv *Server, records string) {
	t.Helper()
	if err := os.WriteFile(srv.Store.Path(), []byte(records), 0o644); err != nil {
		t.Fatalf("failed to seed pool: %v", err)
	}
	srv.Store.Invalidate()
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, resume, _ string) (float64, error) {
		if strings.Contains(resume, "ada") {
			return 0.9, nil
		}
		return 0.3, nil
	})
	_, mux := newTestServer(t, scorer, nil)

	body := `{"query":"Python","candidates":[{"name":"Grace"},{"name":"Ada"}]}`
	rec := postJSON(mux, "/search", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var scored []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &scored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(scored))
	}
	if scored[0]["name"] != "Ada" {
		t.Errorf("expected Ada first, got %v", scored[0]["name"])
	}
	if got := scored[0]["match"].(float64); got != 90 {
		t.Errorf("expected match 90, got %v", got)
	}
	if got := scored[1]["match"].(float64); got != 30 {
		t.Errorf("expected match 30, got %v", got)
	}
}

func TestSearchHandlerValidation(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	_, mux := newTestServer(t, scorer, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"candidates":[]}`},
		{"blank query", `{"query":"   ","candidates":[]}`},
		{"missing candidates", `{"query":"go"}`},
		{"invalid json", `{"query":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(mux, "/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSearchHandlerWrongContentType(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	_, mux := newTestServer(t, scorer, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"go","candidates":[]}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without content-type, got %d", rec.Code)
	}
}

func TestSearchHandlerOracleDown(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) {
		return 0, errors.NewOracleError(errors.ErrCodeOracleUnavailable, "backend down", nil)
	})
	_, mux := newTestServer(t, scorer, nil)

	rec := postJSON(mux, "/search", `{"query":"go","candidates":[{"name":"Ada"}]}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error != "Similarity backend unavailable" {
		t.Errorf("unexpected error kind: %q", resp.Error)
	}
}

func TestUpdateHandler(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"id":"c-1","email":"ann@x.com","name":"Ann"}]`)

	rec := postJSON(mux, "/candidates/update",
		`{"id":"c-1","meeting_id":"M1","status":"interview sent"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success   bool         `json:"success"`
		Candidate types.Record `json:"candidate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Candidate.String(types.KeyMeetingID) != "M1" {
		t.Errorf("expected meeting_id M1, got %q", resp.Candidate.String(types.KeyMeetingID))
	}
	if resp.Candidate.String(types.KeyName) != "Ann" {
		t.Error("unrelated fields must survive the update")
	}

	// The update must be persisted.
	records, err := srv.Store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("failed to reload pool: %v", err)
	}
	if records[0].String(types.KeyStatus) != "interview sent" {
		t.Error("update was not persisted")
	}
}

func TestUpdateHandlerEmailFallbackHeals(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"email":"ann@x.com","name":"Ann"}]`)

	rec := postJSON(mux, "/candidates/update",
		`{"id":"123","email":"ann@x.com","meeting_id":"M1","status":"sent"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	records, err := srv.Store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("failed to reload pool: %v", err)
	}
	if records[0].Identity(types.KeyID) != "123" {
		t.Errorf("expected healed id 123, got %q", records[0].Identity(types.KeyID))
	}
}

func TestUpdateHandlerErrors(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"id":"c-1","email":"ann@x.com"}]`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown candidate", `{"id":"nope","meeting_id":"M1","status":"sent"}`, http.StatusNotFound},
		{"missing meeting_id", `{"id":"c-1","status":"sent"}`, http.StatusBadRequest},
		{"missing status", `{"id":"c-1","meeting_id":"M1"}`, http.StatusBadRequest},
		{"no identity", `{"meeting_id":"M1","status":"sent"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(mux, "/candidates/update", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
	_ = srv
}

func TestUpdateHandlerNumericID(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"id":1,"name":"Ann"}]`)

	// A JSON number id must match the stored numeric id exactly.
	rec := postJSON(mux, "/candidates/update",
		`{"id":1,"meeting_id":"M1","status":"sent"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	_ = srv
}

func TestInterviewHandler(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"id":"c-1","name":"Ann","meeting_id":"tok-1","status":"sent"}]`)

	t.Run("known token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/interviews/tok-1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var record types.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
			t.Fatalf("failed to decode record: %v", err)
		}
		if record.String(types.KeyName) != "Ann" {
			t.Errorf("expected Ann, got %q", record.String(types.KeyName))
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/interviews/tok-missing", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestIntakeHandlerWithoutExtractor(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	_, mux := newTestServer(t, scorer, nil)

	req := httptest.NewRequest(http.MethodPost, "/candidates", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when extraction is not configured, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	_, mux := newTestServer(t, scorer, []string{"secret-key-123"})

	t.Run("missing key", func(t *testing.T) {
		rec := postJSON(mux, "/search", `{"query":"go","candidates":[]}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"go","candidates":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid key via header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"go","candidates":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "secret-key-123")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("valid key via bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"go","candidates":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer secret-key-123")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("health endpoint stays open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code == http.StatusUnauthorized {
			t.Error("health endpoint must not require an API key")
		}
	})
}

func TestHealthHandler(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	seedPool(t, srv, `[{"id":"c-1"}]`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", resp["status"])
	}
	if resp["service"] != "talentmatch" {
		t.Errorf("unexpected service name: %v", resp["service"])
	}
	store, ok := resp["store"].(map[string]any)
	if !ok {
		t.Fatal("expected store section in health response")
	}
	if size := store["pool_size"].(float64); size != 1 {
		t.Errorf("expected pool_size 1, got %v", size)
	}
}

func TestStatsHandler(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, mux := newTestServer(t, scorer, nil)
	srv.RateLimit = &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  5,
		ByIP:           true,
	}
	srv.RateLimiter = NewRateLimiter(60, time.Minute, 5, srv.Logger)
	defer srv.RateLimiter.Close()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode stats response: %v", err)
	}
	if _, ok := resp["rate_limiting"]; !ok {
		t.Error("expected rate_limiting section")
	}
	if _, ok := resp["oracle"]; !ok {
		t.Error("expected oracle section")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	scorer := scorerFunc(func(_ context.Context, _, _, _ string) (float64, error) { return 0.5, nil })
	srv, _ := newTestServer(t, scorer, nil)
	srv.RateLimit = &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  1,
		ByIP:           true,
	}
	srv.RateLimiter = NewRateLimiter(1, time.Minute, 1, srv.Logger)
	defer srv.RateLimiter.Close()

	om, err := observability.NewObservabilityManager(
		observability.ObservabilityConfig{Enabled: false}, srv.AppConfig)
	if err != nil {
		t.Fatalf("failed to create observability manager: %v", err)
	}
	mux := srv.setupRoutes(om)

	body := `{"query":"go","candidates":[]}`

	first := postJSON(mux, "/search", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := postJSON(mux, "/search", body)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request should be rate limited, got %d", second.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"x-forwarded-for", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"invalid forwarded falls through", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("short keys must be fully masked, got %q", got)
	}
	if got := maskAPIKey("abcdefgh12345678"); got != "abcdefgh****" {
		t.Errorf("unexpected mask: %q", got)
	}
}

func TestRankTouchedOracle(t *testing.T) {
	oracleErr := errors.NewOracleError(errors.ErrCodeOracleUnavailable, "backend down", nil)
	validationErr := errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad batch", nil)

	tests := []struct {
		name      string
		err       error
		batchSize int
		want      bool
	}{
		{"oracle failure", oracleErr, 3, true},
		{"validation failure never reached the backend", validationErr, 3, false},
		{"successful batch", nil, 3, true},
		{"empty batch makes no calls", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rankTouchedOracle(tt.err, tt.batchSize); got != tt.want {
				t.Errorf("rankTouchedOracle(%v, %d) = %v, want %v", tt.err, tt.batchSize, got, tt.want)
			}
		})
	}
}
