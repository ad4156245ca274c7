package match

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/errors"
)

func oracleConfig(endpoint string) config.OracleConfig {
	return config.OracleConfig{
		Endpoint:      endpoint,
		Timeout:       5 * time.Second,
		MaxBatch:      20,
		MaxConcurrent: 5,
		OnError:       "fail",
	}
}

func TestOracleClientScore(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantScore float64
		wantErr   bool
	}{
		{
			name:      "valid score",
			status:    http.StatusOK,
			body:      `{"similarity_score": 0.82}`,
			wantScore: 0.82,
		},
		{
			name:      "missing field scores zero",
			status:    http.StatusOK,
			body:      `{"something_else": true}`,
			wantScore: 0,
		},
		{
			name:      "non-numeric field scores zero",
			status:    http.StatusOK,
			body:      `{"similarity_score": "high"}`,
			wantScore: 0,
		},
		{
			name:      "non-object json scores zero",
			status:    http.StatusOK,
			body:      `[1, 2, 3]`,
			wantScore: 0,
		},
		{
			name:    "non-json body",
			status:  http.StatusOK,
			body:    `<html>gateway error</html>`,
			wantErr: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "boom"}`,
			wantErr: true,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewOracleClient(oracleConfig(srv.URL), nil)
			score, err := client.Score(context.Background(), "go developer", "resume text", "go developer")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsOracleUnavailable(err) {
					t.Errorf("expected oracle classification, got: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
		})
	}
}

func TestOracleClientSendsWirePayload(t *testing.T) {
	var captured scoreRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"similarity_score": 0.5}`))
	}))
	defer srv.Close()

	cfg := oracleConfig(srv.URL)
	cfg.APIKey = "secret-key"
	client := NewOracleClient(cfg, nil)

	if _, err := client.Score(context.Background(), "query text", "resume text", "job text"); err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if captured.Query != "query text" || captured.Resume != "resume text" || captured.Job != "job text" {
		t.Errorf("unexpected payload: %+v", captured)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestOracleClientTransportError(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewOracleClient(oracleConfig(srv.URL), nil)
	_, err := client.Score(context.Background(), "q", "r", "j")
	if !errors.IsOracleUnavailable(err) {
		t.Errorf("expected oracle classification for transport error, got: %v", err)
	}
}

func TestOracleClientCircuitBreakerOpens(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := oracleConfig(srv.URL)
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      1,
		FailureThreshold: 0.5,
	}
	client := NewOracleClient(cfg, nil)
	ctx := context.Background()

	// First call fails and trips the breaker.
	if _, err := client.Score(ctx, "q", "r", "j"); !errors.IsOracleUnavailable(err) {
		t.Fatalf("expected oracle error, got: %v", err)
	}

	// Subsequent calls are shed without reaching the backend.
	callsBefore := calls
	if _, err := client.Score(ctx, "q", "r", "j"); !errors.IsOracleUnavailable(err) {
		t.Fatalf("expected oracle error from open breaker, got: %v", err)
	}
	if calls != callsBefore {
		t.Error("open circuit breaker still reached the backend")
	}
	if client.IsHealthy() {
		t.Error("client reports healthy with an open breaker")
	}
}

func TestOracleClientStats(t *testing.T) {
	cfg := oracleConfig("http://localhost:0")
	client := NewOracleClient(cfg, nil)

	stats := client.Stats()
	if enabled, ok := stats["enabled"].(bool); !ok || enabled {
		t.Errorf("expected disabled breaker stats, got: %v", stats)
	}

	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.MinRequests = 3
	cfg.CircuitBreaker.FailureThreshold = 0.6
	client = NewOracleClient(cfg, nil)

	stats = client.Stats()
	if enabled, ok := stats["enabled"].(bool); !ok || !enabled {
		t.Errorf("expected enabled breaker stats, got: %v", stats)
	}
	if stats["state"] != "closed" {
		t.Errorf("expected closed initial state, got: %v", stats["state"])
	}
}
