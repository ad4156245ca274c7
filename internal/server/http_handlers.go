package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler provides a health check endpoint covering the similarity
// backend breaker, the extractor breaker, and the talent pool store
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "talentmatch",
		"version": s.Version,
	}

	overallHealthy := true

	oracleStatus := s.checkOracleHealth()
	response["oracle"] = oracleStatus
	if healthy, ok := oracleStatus["healthy"].(bool); ok && !healthy {
		overallHealthy = false
	}

	response["extractor"] = s.checkExtractorHealth()

	storeStatus := s.checkStoreHealth()
	response["store"] = storeStatus
	if healthy, ok := storeStatus["healthy"].(bool); ok && !healthy {
		overallHealthy = false
	}

	if !overallHealthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// checkOracleHealth reports the similarity backend circuit breaker state
func (s *Server) checkOracleHealth() map[string]any {
	status := map[string]any{
		"healthy":  s.Oracle.IsHealthy(),
		"endpoint": s.AppConfig.Oracle.Endpoint != "",
	}
	status["circuit_breaker"] = s.Oracle.Stats()
	return status
}

// checkExtractorHealth reports whether resume intake can run. An absent
// extractor degrades intake only, not the whole service.
func (s *Server) checkExtractorHealth() map[string]any {
	if s.Extractor == nil {
		return map[string]any{
			"available": false,
			"message":   "resume extraction not configured",
		}
	}
	return map[string]any{
		"available":       true,
		"healthy":         s.Extractor.IsHealthy(),
		"circuit_breaker": s.Extractor.Stats(),
	}
}

// checkStoreHealth verifies the talent pool file is readable
func (s *Server) checkStoreHealth() map[string]any {
	timeout := s.getHealthCheckTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	records, err := s.Store.LoadAll(ctx)
	if err != nil {
		return map[string]any{
			"healthy": false,
			"path":    s.Store.Path(),
			"error":   err.Error(),
		}
	}

	return map[string]any{
		"healthy":   true,
		"path":      s.Store.Path(),
		"pool_size": len(records),
	}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "talentmatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"pool": map[string]any{
			"path": s.Store.Path(),
			"size": s.Store.Size(r.Context()),
		},
		"oracle": s.Oracle.Stats(),
	}

	if s.Extractor != nil {
		response["extractor"] = s.Extractor.Stats()
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	// Add configuration info
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses a JSON request body into the provided struct.
// Numbers are decoded as json.Number so numeric candidate ids keep their
// exact literal form.
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
